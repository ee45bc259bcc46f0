package transport

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
)

// Signer is the signing capability of spec.md §5: a function from an
// unsigned event to a signed one. Implementations may post an RPC to a
// worker/host holding the private key; the core never holds one itself.
type Signer interface {
	Sign(ctx context.Context, unsigned nostr.Event) (nostr.Event, error)
}

// SignerFunc adapts a plain function to Signer.
type SignerFunc func(ctx context.Context, unsigned nostr.Event) (nostr.Event, error)

// Sign implements Signer.
func (f SignerFunc) Sign(ctx context.Context, unsigned nostr.Event) (nostr.Event, error) {
	return f(ctx, unsigned)
}

// Publisher composes a Signer and an EventIO, the explicit capability
// struct spec.md §9 prescribes in place of a boxed sign∘publish closure.
type Publisher struct {
	Signer Signer
	IO     EventIO
}

// SignAndPublish signs unsigned and publishes the result.
func (p Publisher) SignAndPublish(ctx context.Context, unsigned nostr.Event) (nostr.Event, PublishResult, error) {
	signed, err := p.Signer.Sign(ctx, unsigned)
	if err != nil {
		return nostr.Event{}, PublishResult{}, err
	}
	res, err := p.IO.PublishEvent(ctx, signed)
	return signed, res, err
}
