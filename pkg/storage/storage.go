package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned when the source object of a move does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the subset of object storage the archiver needs.
type ObjectStore interface {
	// Move relocates key from to key to inside bucket.
	Move(ctx context.Context, bucket, from, to string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("object storage is not configured")

// Disabled stands in when no storage endpoint is set. Every call fails, so
// file archiving records per-file errors instead of moving anything.
type Disabled struct{}

func (Disabled) Move(context.Context, string, string, string) error { return ErrNotConfigured }

func (Disabled) Exists(context.Context, string, string) (bool, error) { return false, ErrNotConfigured }
