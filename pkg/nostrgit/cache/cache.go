// Package cache implements the durable Repo Cache (spec.md §4.F): a
// bbolt-backed key-value store for reconciled repo state, merge analyses
// and commit logs, fronted by an in-process hot layer for repeat reads
// within a process lifetime. Grounded on the teacher's projectsCache idiom
// in pkg/git/engine/gitlab.go, generalized from a single LRU map to a
// durable, TTL-swept store since repo state must survive process restarts.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v2"
	bolt "go.etcd.io/bbolt"
)

// Bucket names for the three key families spec.md §4.F defines.
const (
	bucketRepo    = "repo"
	bucketMerge   = "merge"
	bucketCommits = "commits"
)

// TTL is the durable record lifetime; records older than this are swept by
// Cleanup.
const TTL = 7 * 24 * time.Hour

// HeadFreshnessHorizon is how long a cached HEAD resolution is considered
// fresh before a re-fetch is warranted.
const HeadFreshnessHorizon = time.Hour

// record wraps a cached value with the timestamp needed for TTL sweeping.
type record struct {
	StoredAt time.Time       `json:"stored_at"`
	Value    json.RawMessage `json:"value"`
}

// RepoCache is the durable repo-state cache: a bbolt-backed store with an
// in-process expirable-cache hot layer in front of it for repeat reads.
type RepoCache struct {
	db  *bolt.DB
	hot cache.Cache[string, json.RawMessage]
}

// Open opens (creating if absent) a bbolt database at path and prepares its
// three buckets.
func Open(path string) (*RepoCache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range []string{bucketRepo, bucketMerge, bucketCommits} {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &RepoCache{
		db: db,
		hot: cache.NewCache[string, json.RawMessage]().
			WithLRU().
			WithMaxKeys(500).
			WithTTL(HeadFreshnessHorizon),
	}, nil
}

// Close releases the underlying bbolt handle.
func (c *RepoCache) Close() error { return c.db.Close() }

// RepoKey builds the repo/<id> key family.
func RepoKey(repoID string) string { return "repo/" + repoID }

// MergeKey builds the merge/<rid>/<pid>/<tgt> key family.
func MergeKey(repoID, patchID, target string) string {
	return fmt.Sprintf("merge/%s/%s/%s", repoID, patchID, target)
}

// CommitsKey builds the commits/<rid>/<branch> key family.
func CommitsKey(repoID, branch string) string {
	return fmt.Sprintf("commits/%s/%s", repoID, branch)
}

// PutRepoState stores a repo-state value under RepoKey(repoID).
func (c *RepoCache) PutRepoState(repoID string, value any) error {
	return c.put(bucketRepo, RepoKey(repoID), value)
}

// GetRepoState loads a repo-state value, reporting ok=false on a cache miss.
func (c *RepoCache) GetRepoState(repoID string, out any) (bool, error) {
	return c.get(bucketRepo, RepoKey(repoID), out)
}

// PutMergeAnalysis stores a merge-analysis result.
func (c *RepoCache) PutMergeAnalysis(repoID, patchID, target string, value any) error {
	return c.put(bucketMerge, MergeKey(repoID, patchID, target), value)
}

// GetMergeAnalysis loads a merge-analysis result, reporting ok=false on a miss.
func (c *RepoCache) GetMergeAnalysis(repoID, patchID, target string, out any) (bool, error) {
	return c.get(bucketMerge, MergeKey(repoID, patchID, target), out)
}

// PutCommits stores a commit-log page.
func (c *RepoCache) PutCommits(repoID, branch string, value any) error {
	return c.put(bucketCommits, CommitsKey(repoID, branch), value)
}

// GetCommits loads a commit-log page, reporting ok=false on a miss.
func (c *RepoCache) GetCommits(repoID, branch string, out any) (bool, error) {
	return c.get(bucketCommits, CommitsKey(repoID, branch), out)
}

func (c *RepoCache) put(bucket, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", bucket, key, err)
	}

	rec := record{StoredAt: time.Now(), Value: raw}
	recBytes, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s/%s: %w", bucket, key, err)
	}

	c.hot.Set(bucket+"/"+key, raw, HeadFreshnessHorizon)

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), recBytes)
	})
}

func (c *RepoCache) get(bucket, key string, out any) (bool, error) {
	if raw, ok := c.hot.Get(bucket + "/" + key); ok {
		return true, json.Unmarshal(raw, out)
	}

	var raw []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if v != nil {
			raw = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("view %s/%s: %w", bucket, key, err)
	}
	if raw == nil {
		return false, nil
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return false, fmt.Errorf("unmarshal record %s/%s: %w", bucket, key, err)
	}
	if time.Since(rec.StoredAt) > TTL {
		return false, nil
	}

	c.hot.Set(bucket+"/"+key, rec.Value, HeadFreshnessHorizon)
	return true, json.Unmarshal(rec.Value, out)
}

// Cleanup sweeps every bucket for records older than TTL, deleting them.
// It is meant to be run periodically (e.g. once per process startup, or on
// a daily ticker) rather than on every read.
func (c *RepoCache) Cleanup() (removed int, err error) {
	err = c.db.Update(func(tx *bolt.Tx) error {
		for _, b := range []string{bucketRepo, bucketMerge, bucketCommits} {
			bucket := tx.Bucket([]byte(b))
			var stale [][]byte

			err := bucket.ForEach(func(k, v []byte) error {
				var rec record
				if err := json.Unmarshal(v, &rec); err != nil {
					return nil // leave unparseable records alone
				}
				if time.Since(rec.StoredAt) > TTL {
					stale = append(stale, append([]byte{}, k...))
				}
				return nil
			})
			if err != nil {
				return err
			}

			for _, k := range stale {
				if err := bucket.Delete(k); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	return removed, err
}
