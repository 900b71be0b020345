package kv

import "context"

// Repository is a namespaced key→blob store.
type Repository interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	List(ctx context.Context, namespace string) (map[string][]byte, error)
	Keys(ctx context.Context, namespace string) ([]string, error)
	Clear(ctx context.Context, namespace string) error
}

// Batcher is implemented by substrates that can apply several writes as one
// unit. fn must only use the repository it is handed.
type Batcher interface {
	Batch(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}
