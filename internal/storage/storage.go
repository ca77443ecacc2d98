package storage

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidReference indicates a reference that does not belong to the
// gateway's namespace.
var ErrInvalidReference = errors.New("invalid storage reference")

// Gateway abstracts the durable blob area used for student photos.
// References are namespace-relative keys (e.g. "students/<name>").
// Delete is idempotent: removing an absent blob is not an error.
type Gateway interface {
	Store(ctx context.Context, filename string, reader io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
	Exists(ctx context.Context, ref string) bool
	URL(ref string) string
}
