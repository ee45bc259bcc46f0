package fallback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S5 — URL fallback determinism, spec.md §8 invariant 4.
func TestRunnerTriesUrlsInOrderUntilSuccess(t *testing.T) {
	r := New(50 * time.Millisecond)
	var tried []string

	res := r.Run(context.Background(), "repo-1", []string{"https://mirror-a.example/x.git", "https://mirror-b.example/x.git"}, func(ctx context.Context, url string) error {
		tried = append(tried, url)
		if url == "https://mirror-a.example/x.git" {
			return errors.New("CORS: blocked")
		}
		return nil
	})

	require.True(t, res.Success)
	assert.Equal(t, "https://mirror-b.example/x.git", res.UsedURL)
	assert.Equal(t, []string{"https://mirror-a.example/x.git", "https://mirror-b.example/x.git"}, tried)
}

func TestRunnerRemembersLastSuccessfulURL(t *testing.T) {
	r := New(50 * time.Millisecond)

	_ = r.Run(context.Background(), "repo-1", []string{"https://a.example/x.git", "https://b.example/x.git"}, func(ctx context.Context, url string) error {
		if url == "https://b.example/x.git" {
			return nil
		}
		return errors.New("down")
	})

	var tried []string
	r.Run(context.Background(), "repo-1", []string{"https://a.example/x.git", "https://b.example/x.git"}, func(ctx context.Context, url string) error {
		tried = append(tried, url)
		return nil
	})

	assert.Equal(t, "https://b.example/x.git", tried[0])
}

func TestRunnerFiltersMalformedURLs(t *testing.T) {
	r := New(50 * time.Millisecond)
	var tried []string

	res := r.Run(context.Background(), "repo-2", []string{"not a url", "https://good.example/x.git"}, func(ctx context.Context, url string) error {
		tried = append(tried, url)
		return nil
	})

	assert.True(t, res.Success)
	assert.Equal(t, []string{"https://good.example/x.git"}, tried)
}

func TestIsRecoverableMatchesKnownSubstrings(t *testing.T) {
	assert.True(t, IsRecoverable(errors.New("CORS error fetching")))
	assert.True(t, IsRecoverable(errors.New("NoRefspecError: no match")))
	assert.False(t, IsRecoverable(errors.New("disk full")))
}

func TestIsNostrMirrorHost(t *testing.T) {
	assert.True(t, IsNostrMirrorHost("https://relay.ngit.dev/foo.git"))
	assert.True(t, IsNostrMirrorHost("https://mygrasp.example/repo.git"))
	assert.False(t, IsNostrMirrorHost("https://github.com/foo/bar.git"))
}
