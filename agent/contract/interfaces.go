package contract

import (
	"context"

	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

// Completer is the text-completion capability.
type Completer interface {
	Complete(ctx context.Context, systemInstruction string, turns []statex.Turn, temperature float32) (string, error)
}

// CatalogSearcher answers product questions. The returned turns interleave
// assistant replies with internal tool results.
type CatalogSearcher interface {
	Search(ctx context.Context, systemInstruction string, turns []statex.Turn) ([]statex.Turn, error)
}

// NotificationSender attempts delivery of one message. A nil result means
// nothing was handed over for delivery.
type NotificationSender interface {
	Send(ctx context.Context, destination, subject, body string) (*SendResult, error)
}

type idempotencyKeyCtx struct{}

// WithIdempotencyKey tags ctx with the key a sender uses to deduplicate
// repeated deliveries of the same notification.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

func IdempotencyKey(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyCtx{}).(string)
	return key
}
