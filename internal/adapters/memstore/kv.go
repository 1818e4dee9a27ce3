// Package memstore provides an in-process ports.KeyValueStore used when no
// Valkey endpoint is configured. State written here does not survive a
// restart, which the tracked-subject store tolerates.
package memstore

import (
	"context"
	"sync"
)

type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *KV {
	return &KV{data: make(map[string][]byte)}
}

func (kv *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	v, ok := kv.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (kv *KV) Set(ctx context.Context, key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	kv.data[key] = stored
	return nil
}

func (kv *KV) Delete(ctx context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.data, key)
	return nil
}
