package valkeyadapter

import (
	"context"

	"github.com/valkey-io/valkey-go"
)

// Store implements ports.KeyValueStore: persistent keys, no TTL. It backs
// the tracked-subject state so the last known distance survives restarts.
type Store struct {
	client valkey.Client
}

// NewStore wraps a shared client.
func NewStore(client valkey.Client) *Store {
	return &Store{client: client}
}

// Get retrieves a value. A missing key is (nil, false, nil), not an error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	cmd := s.client.Do(ctx, s.client.B().Get().Key(key).Build())
	if err := cmd.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	b, err := cmd.AsBytes()
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set stores a value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.client.Do(ctx, s.client.B().Set().Key(key).Value(string(value)).Build())
	return cmd.Error()
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	cmd := s.client.Do(ctx, s.client.B().Del().Key(key).Build())
	return cmd.Error()
}
