package session

import "context"

// NoopStore is a no-op implementation of Store used when persistence is disabled.
// Every conversation starts fresh.
type NoopStore struct{}

func (s *NoopStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, nil
}

func (s *NoopStore) Set(ctx context.Context, key string, value []byte) error {
	return nil
}

func (s *NoopStore) Delete(ctx context.Context, key string) error {
	return nil
}

func (s *NoopStore) Close() error {
	return nil
}
