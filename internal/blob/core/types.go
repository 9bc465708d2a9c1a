// Package core defines the object storage contract used by the objectstore
// persistence backend.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string // MIME type, optional
	// IfMatch makes the write conditional on the current object carrying
	// this ETag.
	IfMatch string
	// IfNoneMatch makes the write conditional on no object existing at key.
	IfNoneMatch bool
}

// Info describes a stored blob.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is a flat key/object store. Put replaces any existing object at key
// in a single step; readers see either the previous or the new content. Get
// reports the ETag that a later conditional Put compares against.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Driver() Driver
}

var (
	// ErrNotFound is returned by Get when no object exists at key.
	ErrNotFound = errors.New("blobstore: not found")
	// ErrPreconditionFailed is returned by a conditional Put whose
	// IfMatch or IfNoneMatch condition does not hold.
	ErrPreconditionFailed = errors.New("blobstore: precondition failed")
)

// CheckPrecondition evaluates opts against the current object's ETag; exists
// reports whether there is a current object.
func CheckPrecondition(opts PutOptions, exists bool, etag string) error {
	if opts.IfNoneMatch && exists {
		return ErrPreconditionFailed
	}
	if opts.IfMatch != "" && (!exists || opts.IfMatch != etag) {
		return ErrPreconditionFailed
	}
	return nil
}

// ParseDriver maps a configuration string to a Driver. Empty selects the filesystem.
func ParseDriver(raw string) (Driver, error) {
	switch Driver(raw) {
	case "", DriverFilesystem:
		return DriverFilesystem, nil
	case DriverS3, DriverMemory:
		return Driver(raw), nil
	}
	return "", errors.New("blobstore: unknown driver " + raw)
}
