package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

var _ ledger.CredentialPersistence = (*NATS)(nil)

// NATS mirrors credentials into a JetStream key-value bucket, which lets
// several workstations share one session.
type NATS struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
	own  bool
}

// ConnectNATS dials url and opens (or creates) bucket. An empty bucket name
// selects the default one.
func ConnectNATS(ctx context.Context, url, bucket string, opts ...nats.Option) (*NATS, error) {
	if url == "" {
		return nil, constants.ErrStoreURLRequired
	}

	opts = append([]nats.Option{nats.Name("ldesk credential store")}, opts...)

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	store, err := NewNATS(ctx, conn, bucket)
	if err != nil {
		conn.Close()
		return nil, err
	}

	store.own = true

	return store, nil
}

// NewNATS uses an existing connection. The caller keeps ownership of conn.
func NewNATS(ctx context.Context, conn *nats.Conn, bucket string) (*NATS, error) {
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "ldesk session mirror",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("opening key-value bucket %s: %w", bucket, err)
	}

	return &NATS{conn: conn, kv: kv}, nil
}

// Get returns the value for key, or "" if it is not set.
func (n *NATS) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", constants.ErrEmptyPersistedKey
	}

	entry, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to get credential[%s]: %w", key, err)
	}

	return string(entry.Value()), nil
}

// Set stores value under key.
func (n *NATS) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return constants.ErrEmptyPersistedKey
	}

	if _, err := n.kv.Put(ctx, key, []byte(value)); err != nil {
		return fmt.Errorf("failed to set credential[%s]: %w", key, err)
	}

	return nil
}

// Clear removes key.
func (n *NATS) Clear(ctx context.Context, key string) error {
	if key == "" {
		return constants.ErrEmptyPersistedKey
	}

	err := n.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete credential[%s]: %w", key, err)
	}

	return nil
}

// Close drains the connection if this store opened it.
func (n *NATS) Close() error {
	if !n.own {
		return nil
	}

	return n.conn.Drain()
}
