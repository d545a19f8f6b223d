package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyBackend keeps each resource under the key "<prefix>:<name>"
type ValkeyBackend struct {
	client valkey.Client
	prefix string
}

// NewValkeyBackend connects to Valkey and verifies the connection
func NewValkeyBackend(addr, prefix string) (*ValkeyBackend, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pingCmd := client.B().Ping().Build()
	if err := client.Do(ctx, pingCmd).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	slog.Debug("Initialized Valkey storage backend", "address", addr, "key_prefix", prefix)
	return &ValkeyBackend{client: client, prefix: prefix}, nil
}

// Key returns the Valkey key of the named resource
func (b *ValkeyBackend) Key(name string) string {
	return b.prefix + ":" + name
}

func (b *ValkeyBackend) Read(ctx context.Context, name string) ([]byte, error) {
	cmd := b.client.B().Get().Key(b.Key(name)).Build()
	data, err := b.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to get %s from Valkey: %w", name, err)
	}
	return data, nil
}

func (b *ValkeyBackend) Write(ctx context.Context, name string, data []byte) error {
	cmd := b.client.B().Set().Key(b.Key(name)).Value(valkey.BinaryString(data)).Build()
	if err := b.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to set %s in Valkey: %w", name, err)
	}
	return nil
}

func (b *ValkeyBackend) Close() error {
	b.client.Close()
	return nil
}
