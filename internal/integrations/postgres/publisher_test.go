package postgres

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/turbolytics/locator/internal/facility"
)

const testDDL = `CREATE TABLE IF NOT EXISTS facilities (
	name text,
	services text,
	city text,
	zipcode text,
	latitude float,
	longitude float
)`

func TestParseCreateTable(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		table, err := ParseCreateTable(testDDL)
		require.NoError(t, err)
		assert.Equal(t, "facilities", table.Name)
		assert.Equal(t, []string{"name", "services", "city", "zipcode", "latitude", "longitude"}, table.Columns)
	})

	t.Run("invalid sql", func(t *testing.T) {
		_, err := ParseCreateTable("invalid sql")
		assert.Error(t, err)
	})

	t.Run("not a create table", func(t *testing.T) {
		_, err := ParseCreateTable("SELECT name FROM facilities")
		assert.ErrorContains(t, err, "CREATE TABLE")
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := ParseCreateTable("CREATE TABLE facilities (name text, rating int)")
		assert.ErrorContains(t, err, `"rating"`)
	})
}

func TestIntegrationPostgresPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate pgContainer: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	uri, err := url.Parse(connStr)
	require.NoError(t, err)

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	p, err := NewPublisher(ctx, uri, testDDL, logger)
	require.NoError(t, err)
	defer p.Close(ctx)

	city, acme, beta := "Lansing", "Acme Recovery", "Beta Health"
	facilities := []facility.Facility{
		{
			Name:        &acme,
			Services:    []string{"Outpatient", "Detox"},
			City:        &city,
			Coordinates: [2]float64{42.7325, -84.5555},
			State:       "MI",
		},
		{
			Name:        &beta,
			Coordinates: [2]float64{42.7401, -84.5512},
			State:       "MI",
		},
	}
	require.NoError(t, p.Publish(ctx, facilities))

	conn, err := pgx.Connect(ctx, connStr)
	require.NoError(t, err)
	defer conn.Close(ctx)

	var count int
	require.NoError(t, conn.QueryRow(ctx, "SELECT COUNT(*) FROM facilities").Scan(&count))
	assert.Equal(t, 2, count)

	var services string
	var gotCity, zipcode *string
	var lat float64
	require.NoError(t, conn.QueryRow(ctx,
		"SELECT services, city, zipcode, latitude FROM facilities WHERE name = $1", "Acme Recovery",
	).Scan(&services, &gotCity, &zipcode, &lat))
	assert.Equal(t, "Outpatient; Detox", services)
	assert.Equal(t, "Lansing", *gotCity)
	assert.Nil(t, zipcode)
	assert.InDelta(t, 42.7325, lat, 1e-9)
}
