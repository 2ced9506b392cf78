package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/turbolytics/locator/internal/dsr"
	"github.com/turbolytics/locator/internal/facility"
	"github.com/turbolytics/locator/internal/local"
	"github.com/turbolytics/locator/internal/powerbi"
)

func TestNewLocatorFromFile(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		locator, err := NewLocatorFromFile(filepath.Join("testdata", "locator.yml"))
		require.NoError(t, err)

		assert.Equal(t, "debug", locator.Global.Logger.Level)
		assert.Equal(t, "michigan-misud", locator.Ingest.Name)
		assert.Equal(t, "test-key", locator.Ingest.Source.ResourceKey)
		assert.Equal(t, 10*time.Second, locator.Ingest.Source.Timeout)
		assert.Equal(t, "MI", locator.Ingest.Facility.State)
		require.Len(t, locator.Ingest.Publishers, 1)
		assert.Contains(t, locator.Ingest.Publishers[0].CreateTable, "CREATE TABLE")
	})

	t.Run("defaults", func(t *testing.T) {
		locator, err := NewLocatorFromFile(filepath.Join("testdata", "minimal.yml"))
		require.NoError(t, err)

		assert.Equal(t, powerbi.DefaultBaseURL, locator.Ingest.Source.BaseURL)
		require.NotNil(t, locator.Ingest.Source.ResultIndex)
		assert.Equal(t, dsr.DefaultResultIndex, *locator.Ingest.Source.ResultIndex)
		assert.Equal(t, 30*time.Second, locator.Ingest.Source.Timeout)
		assert.Equal(t, "local", locator.Ingest.Repository.Type)
		assert.Equal(t, facility.DefaultColumns(), locator.Ingest.Facility.Columns)
		assert.Equal(t, facility.DefaultState, locator.Ingest.Facility.State)
	})

	t.Run("partial columns keep defaults", func(t *testing.T) {
		locator, err := NewLocatorFromFile(filepath.Join("testdata", "locator.yml"))
		require.NoError(t, err)
		assert.Equal(t, "G0", locator.Ingest.Facility.Columns.Name)
		assert.Equal(t, "M8", locator.Ingest.Facility.Columns.Website)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewLocatorFromFile(filepath.Join("testdata", "nope.yml"))
		assert.Error(t, err)
	})

	t.Run("relative paths resolve against the config dir", func(t *testing.T) {
		locator, err := NewLocatorFromFile(filepath.Join("testdata", "locator.yml"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("testdata", "addresses.csv"), locator.resolve("addresses.csv"))
		assert.Equal(t, "/abs/x.csv", locator.resolve("/abs/x.csv"))
	})
}

func TestWire_DSRWire(t *testing.T) {
	t.Run("empty keeps defaults", func(t *testing.T) {
		w, err := Wire{}.DSRWire()
		require.NoError(t, err)
		assert.Equal(t, dsr.DefaultWire(), w)
	})

	t.Run("overrides", func(t *testing.T) {
		w, err := Wire{NullKeys: []string{"null"}, ReuseKey: "reuse", BitOrder: "msb"}.DSRWire()
		require.NoError(t, err)
		assert.Equal(t, []string{"null"}, w.NullKeys)
		assert.Equal(t, "reuse", w.ReuseKey)
		assert.Equal(t, "S", w.SchemaKey)
		assert.Equal(t, dsr.MSBFirst, w.BitOrder)
	})

	t.Run("unknown bit order", func(t *testing.T) {
		_, err := Wire{BitOrder: "middle"}.DSRWire()
		assert.ErrorContains(t, err, "bit order")
	})
}

func TestInitializeRepository(t *testing.T) {
	runID := uuid.Must(uuid.NewRandom())

	t.Run("local", func(t *testing.T) {
		dir := t.TempDir()
		c := &Locator{Ingest: Ingest{Repository: Repository{Type: "local", LocalConfig: LocalConfig{Path: dir}}}}
		repo, err := InitializeRepository(c, runID, zap.NewNop())
		require.NoError(t, err)
		require.IsType(t, &local.Repository{}, repo)
		assert.Equal(t, filepath.Join(dir, runID.String()), repo.(*local.Repository).Dir())
	})

	t.Run("s3 without bucket", func(t *testing.T) {
		c := &Locator{Ingest: Ingest{Repository: Repository{Type: "s3"}}}
		_, err := InitializeRepository(c, runID, zap.NewNop())
		assert.ErrorContains(t, err, "bucket")
	})

	t.Run("unknown", func(t *testing.T) {
		c := &Locator{Ingest: Ingest{Repository: Repository{Type: "ftp"}}}
		_, err := InitializeRepository(c, runID, zap.NewNop())
		assert.ErrorContains(t, err, "unknown repository type")
	})
}

func TestInitializePublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported protocol", func(t *testing.T) {
		_, err := InitializePublisher(ctx, Publisher{URL: "ftp://example.com/x"}, zap.NewNop())
		assert.ErrorContains(t, err, "unsupported publisher protocol")
	})

	t.Run("postgres requires create_table", func(t *testing.T) {
		_, err := InitializePublisher(ctx, Publisher{URL: "postgres://localhost/test"}, zap.NewNop())
		assert.ErrorContains(t, err, "create_table")
	})

	t.Run("postgres rejects unknown columns before connecting", func(t *testing.T) {
		_, err := InitializePublisher(ctx, Publisher{
			URL:         "postgres://localhost:1/test",
			CreateTable: "CREATE TABLE facilities (name text, rating int)",
		}, zap.NewNop())
		assert.ErrorContains(t, err, `"rating"`)
	})

	t.Run("kafka requires topic", func(t *testing.T) {
		_, err := InitializePublisher(ctx, Publisher{URL: "kafka://localhost:9092"}, zap.NewNop())
		assert.ErrorContains(t, err, "topic")
	})
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))

	_, err = NewLogger("loud")
	assert.Error(t, err)
}
