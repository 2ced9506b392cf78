package preserver

import (
	"context"
	"encoding/json"
	"io"
	"os"
)

// Stdout writes values as JSON to a writer, os.Stdout by default.
type Stdout struct {
	w      io.Writer
	indent bool
}

type Option func(*Stdout)

func WithWriter(w io.Writer) Option {
	return func(s *Stdout) {
		s.w = w
	}
}

func WithIndent(indent bool) Option {
	return func(s *Stdout) {
		s.indent = indent
	}
}

func NewStdout(opts ...Option) *Stdout {
	s := &Stdout{w: os.Stdout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stdout) Preserve(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	enc := json.NewEncoder(s.w)
	if s.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
