// Package docstore reads and writes the whole-document JSON blob used in
// document mode. Every backend hands out a version token with each read and
// refuses a write whose expected token is no longer current.
package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	// ErrNotFound means the document does not exist yet.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrStale means the expected version is no longer current: someone else
	// wrote the document since it was read.
	ErrStale = errors.New("docstore: version is stale")
)

// Revision is the content of a document at one version.
type Revision struct {
	Content []byte
	Version string
}

type Store interface {
	Read(ctx context.Context) (Revision, error)
	// Write replaces the document if its current version equals
	// expectedVersion and returns the new version. An empty expectedVersion
	// creates the document and fails with ErrStale if it already exists.
	Write(ctx context.Context, content []byte, expectedVersion string) (string, error)
}

// Version is the content hash token used by backends without a native one.
func Version(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
