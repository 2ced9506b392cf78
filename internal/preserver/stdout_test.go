package preserver

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbolytics/locator/internal"
)

func TestStdout_Preserve(t *testing.T) {
	records := []*internal.Record{
		internal.NewRecord([]string{"b", "a"}, []any{"x", nil}),
	}

	t.Run("compact", func(t *testing.T) {
		var buf bytes.Buffer
		s := NewStdout(WithWriter(&buf))
		require.NoError(t, s.Preserve(context.Background(), records))
		assert.Equal(t, `[{"b":"x","a":null}]`+"\n", buf.String())
	})

	t.Run("indent", func(t *testing.T) {
		var buf bytes.Buffer
		s := NewStdout(WithWriter(&buf), WithIndent(true))
		require.NoError(t, s.Preserve(context.Background(), records))
		assert.Contains(t, buf.String(), "\n  {\n    \"b\": \"x\",")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var buf bytes.Buffer
		err := NewStdout(WithWriter(&buf)).Preserve(ctx, records)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, buf.String())
	})
}
