// Package blob is the single entry point to blob storage. Callers depend on
// the Store interface; concrete drivers live under internal/infra/blob.
package blob

import (
	"context"

	"definecore/internal/blob/core"
	"definecore/internal/infra/blob/fs"
	"definecore/internal/infra/blob/memory"
	"definecore/internal/infra/blob/s3"
)

type (
	Store      = core.Store
	Driver     = core.Driver
	Info       = core.Info
	PutOptions = core.PutOptions
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// ErrNotFound is returned (wrapped) when a key does not exist.
var ErrNotFound = core.ErrNotFound

// NewFilesystem returns a store rooted at a local directory.
func NewFilesystem(root string) (Store, error) {
	s, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemory returns a process-local store.
func NewMemory() Store { return memory.New() }

// NewS3 returns a store backed by an S3 compatible bucket.
func NewS3(ctx context.Context, cfg s3.Config) (Store, error) {
	s, err := s3.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}
