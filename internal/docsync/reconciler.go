// Package docsync keeps a whole-document copy of the user's data in step with
// a remote docstore.Store. The policy is last writer wins without merging: a
// push that loses a race fails with a stale-version error and the local copy
// is kept as the presumed-correct one.
package docsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/apperr"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/docstore"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
)

// Encode serializes a document in the canonical form used for comparison
// and storage: compact JSON with all four collections present.
func Encode(doc model.Document) ([]byte, error) {
	doc = doc.Clone()
	doc.Normalize()
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

func Decode(content []byte) (model.Document, error) {
	var doc model.Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return model.Document{}, fmt.Errorf("decode document: %w", err)
	}
	doc.Normalize()
	return doc, nil
}

type Reconciler struct {
	store  docstore.Store
	logger *slog.Logger
}

func NewReconciler(store docstore.Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, logger: logger.With("component", "docsync")}
}

// Pull fetches the remote document and its version token.
func (r *Reconciler) Pull(ctx context.Context) (model.Document, string, error) {
	rev, err := r.store.Read(ctx)
	if err != nil {
		return model.Document{}, "", apperr.Remote("document.pull", err)
	}
	doc, err := Decode(rev.Content)
	if err != nil {
		return model.Document{}, "", apperr.Parse("document.pull", err)
	}
	return doc, rev.Version, nil
}

// Push writes doc unless it already matches the remote content byte for
// byte. It reports whether a write was issued. A missing remote document is
// created. A concurrent remote edit makes the write fail with an error that
// matches both apperr.ErrRemote and docstore.ErrStale; it is never retried.
func (r *Reconciler) Push(ctx context.Context, doc model.Document) (bool, error) {
	local, err := Encode(doc)
	if err != nil {
		return false, err
	}

	var version string
	rev, err := r.store.Read(ctx)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		r.logger.Info("remote document missing, creating it")
	case err != nil:
		return false, apperr.Remote("document.push", err)
	default:
		if bytes.Equal(rev.Content, local) {
			r.logger.Debug("push skipped, remote is identical")
			return false, nil
		}
		version = rev.Version
	}

	newVersion, err := r.store.Write(ctx, local, version)
	if err != nil {
		if errors.Is(err, docstore.ErrStale) {
			r.logger.Warn("push rejected, remote changed since read", "version", version)
		}
		return false, apperr.Remote("document.push", err)
	}
	r.logger.Debug("document pushed", "version", newVersion, "bytes", len(local))
	return true, nil
}
