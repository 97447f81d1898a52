// Package storage holds the content-addressed store that published datasets
// are written to. IPFS talks to a node's HTTP API; Memory keeps content in
// process for tests and single-node setups.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for unknown content ids.
var ErrNotFound = errors.New("content store: content not found")

// ContentStore stores immutable blobs and returns their content id.
type ContentStore interface {
	Put(ctx context.Context, name string, content []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Ping(ctx context.Context) error
}
