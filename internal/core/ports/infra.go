package ports

import (
	"context"
	"time"
)

// ResponseCache stores JSON-serialisable read results grouped by namespace.
// Invalidate drops every entry of a namespace at once.
type ResponseCache interface {
	Load(ctx context.Context, namespace, key string, dst any) (bool, error)
	Store(ctx context.Context, namespace, key string, v any, ttl time.Duration) error
	Invalidate(ctx context.Context, namespace string) error
}

// ContentRenderer turns user-submitted text into safe output.
type ContentRenderer interface {
	// Markdown renders src to sanitised HTML.
	Markdown(src string) string
	// PlainText strips every tag from s.
	PlainText(s string) string
}
