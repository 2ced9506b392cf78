package internal

import (
	"context"
	"io"
)

// Repository stores the output objects of a run under a key.
type Repository interface {
	Write(ctx context.Context, key string, reader io.Reader) error
}
