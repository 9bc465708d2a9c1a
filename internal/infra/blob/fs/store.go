// Package fs implements core.Store on the local filesystem.
package fs

import (
	"bytes"
	"checklist/internal/blob/core"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

var _ core.Store = (*Store)(nil)

// rename is swapped in tests to simulate a failed commit.
var rename = os.Rename

const lockRetry = 5 * time.Millisecond

// Store maps keys to relative file paths under root. Writes go to a temp file
// in the target directory that is synced and renamed over the destination
// while holding an advisory lock on a hidden sibling of the object, so
// conditional puts compare and replace atomically across processes.
type Store struct {
	root string
}

// New returns a filesystem-backed blob store rooted at path, creating it if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./blobdata"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// Root returns the directory objects are stored under.
func (s *Store) Root() string { return s.root }

// sanitizeKey ensures key doesn't escape root and forbids path traversal and absolute paths.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *Store) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(k)), nil
}

func lockPathFor(dataPath string) string {
	return filepath.Join(filepath.Dir(dataPath), "."+filepath.Base(dataPath)+".lock")
}

func etagOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// currentETag hashes the object at dataPath; exists is false when there is none.
func currentETag(dataPath string) (etag string, exists bool, err error) {
	// #nosec G304 -- dataPath is sanitized by pathFor
	data, err := os.ReadFile(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return etagOf(data), true, nil
}

// Put writes r to key, replacing any previous object when the conditions in
// opts hold.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	dataPath, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, err
	}
	dir := filepath.Dir(dataPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return core.Info{}, err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return core.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		_ = tmp.Close()
		return core.Info{}, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return core.Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return core.Info{}, err
	}

	lock := flock.New(lockPathFor(dataPath), flock.SetPermissions(0o640))
	if _, err := lock.TryLockContext(ctx, lockRetry); err != nil {
		return core.Info{}, fmt.Errorf("lock %s: %w", key, err)
	}
	defer func() { _ = lock.Unlock() }()
	if opts.IfMatch != "" || opts.IfNoneMatch {
		etag, exists, err := currentETag(dataPath)
		if err != nil {
			return core.Info{}, err
		}
		if err := core.CheckPrecondition(opts, exists, etag); err != nil {
			return core.Info{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	if err := rename(tmp.Name(), dataPath); err != nil {
		return core.Info{}, err
	}
	return core.Info{
		Key:          key,
		Size:         size,
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(h.Sum(nil)),
		LastModified: time.Now().UTC(),
	}, nil
}

// Get reads the object at key. Missing objects report core.ErrNotFound. The
// ETag is the sha256 of the content, matching what Put reports.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	dataPath, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	// #nosec G304 -- dataPath is sanitized by pathFor
	file, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Info{}, nil, fmt.Errorf("%s: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return core.Info{}, nil, err
	}
	defer func() { _ = file.Close() }()
	st, err := file.Stat()
	if err != nil {
		return core.Info{}, nil, err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return core.Info{}, nil, err
	}
	info := core.Info{Key: key, Size: int64(len(data)), ETag: etagOf(data), LastModified: st.ModTime().UTC()}
	return info, io.NopCloser(bytes.NewReader(data)), nil
}
