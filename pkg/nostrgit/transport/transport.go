// Package transport implements the EventIO capability (spec.md §4.B): a
// thin fetch/publish surface over a set of nostr relays, with no
// reconciliation policy of its own. Built on
// github.com/nbd-wtf/go-nostr's relay client.
package transport

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/nbd-wtf/go-nostr"
)

// Filter mirrors spec.md §4.B's filter shape over nostr.Filter.
type Filter = nostr.Filter

// PublishOutcome reports the result of publishing to a single relay.
type PublishOutcome struct {
	Relay string
	OK    bool
	Error string
}

// PublishResult is the aggregate result of publishing an event.
type PublishResult struct {
	OK      bool
	Relays  []string
	Error   string
	PerRelay []PublishOutcome
}

// EventIO is the capability contract spec.md §4.B defines.
type EventIO interface {
	FetchEvents(ctx context.Context, filters []Filter) ([]nostr.Event, error)
	PublishEvent(ctx context.Context, e nostr.Event) (PublishResult, error)
}

// Relays is an EventIO implementation backed by a fixed list of relay
// URLs, deduplicating fetched events by id (ordering across relays is not
// guaranteed, per spec.md §4.B).
type Relays struct {
	urls []string

	mu    sync.Mutex
	conns map[string]*nostr.Relay
}

// New returns a Relays EventIO over the given relay URLs.
func New(urls []string) *Relays {
	return &Relays{urls: urls, conns: map[string]*nostr.Relay{}}
}

func (r *Relays) connect(ctx context.Context, url string) (*nostr.Relay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.conns[url]; ok {
		return c, nil
	}
	c, err := nostr.RelayConnect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect to relay %s: %w", url, err)
	}
	r.conns[url] = c
	return c, nil
}

// FetchEvents queries every configured relay with filters and deduplicates
// results by event id. A single unreachable relay does not fail the call;
// it is logged and skipped.
func (r *Relays) FetchEvents(ctx context.Context, filters []Filter) ([]nostr.Event, error) {
	seen := map[string]struct{}{}
	var out []nostr.Event

	for _, url := range r.urls {
		conn, err := r.connect(ctx, url)
		if err != nil {
			log.Printf("[WARN] fetch events: %v", err)
			continue
		}

		for _, f := range filters {
			sub, err := conn.Subscribe(ctx, nostr.Filters{f})
			if err != nil {
				log.Printf("[WARN] subscribe to %s: %v", url, err)
				continue
			}

		drain:
			for {
				select {
				case ev, ok := <-sub.Events:
					if !ok {
						break drain
					}
					if ev == nil {
						continue
					}
					if _, dup := seen[ev.ID]; dup {
						continue
					}
					seen[ev.ID] = struct{}{}
					out = append(out, *ev)
				case <-sub.EndOfStoredEvents:
					sub.Unsub()
					break drain
				case <-ctx.Done():
					sub.Unsub()
					break drain
				}
			}
		}
	}

	return out, nil
}

// PublishEvent publishes e to every configured relay, reporting per-relay
// outcomes per spec.md §4.B.
func (r *Relays) PublishEvent(ctx context.Context, e nostr.Event) (PublishResult, error) {
	res := PublishResult{}

	for _, url := range r.urls {
		conn, err := r.connect(ctx, url)
		if err != nil {
			res.PerRelay = append(res.PerRelay, PublishOutcome{Relay: url, OK: false, Error: err.Error()})
			continue
		}

		if err := conn.Publish(ctx, e); err != nil {
			res.PerRelay = append(res.PerRelay, PublishOutcome{Relay: url, OK: false, Error: err.Error()})
			continue
		}

		res.PerRelay = append(res.PerRelay, PublishOutcome{Relay: url, OK: true})
		res.Relays = append(res.Relays, url)
	}

	res.OK = len(res.Relays) > 0
	if !res.OK && len(res.PerRelay) > 0 {
		res.Error = res.PerRelay[len(res.PerRelay)-1].Error
	}
	return res, nil
}

// Close disconnects every relay connection this Relays has opened.
func (r *Relays) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conns {
		_ = c.Close()
	}
}
