// Package storagevalkey keeps the local durable store in ValKey.
package storagevalkey

import (
	"context"
	"fmt"
	"strings"

	"github.com/valkey-io/valkey-go"

	"github.com/property360/usersession/internal/serviceerr"
	"github.com/property360/usersession/internal/storage"
)

const objectType = "store"

type Backend struct {
	valkey valkey.Client
	prefix string
}

var _ = storage.Backend(&Backend{})

func NewBackend(valkeyClient valkey.Client, prefix string) *Backend {
	return &Backend{
		valkey: valkeyClient,
		prefix: strings.TrimSuffix(prefix, ":"),
	}
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	bytes, err := b.valkey.Do(ctx, b.valkey.B().Get().Key(b.key(key)).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, serviceerr.ErrNotFound
		}

		return nil, fmt.Errorf("executing get command: %w", err)
	}

	return bytes, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	cmd := b.valkey.B().Set().Key(b.key(key)).Value(valkey.BinaryString(value)).Build()
	if err := b.valkey.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.valkey.Do(ctx, b.valkey.B().Del().Key(b.key(key)).Build()).Error(); err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	return nil
}

func (b *Backend) key(key string) string {
	return fmt.Sprintf("%s:%s:%s", b.prefix, objectType, key)
}
