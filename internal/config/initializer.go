package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/turbolytics/locator/internal"
	"github.com/turbolytics/locator/internal/dsr"
	"github.com/turbolytics/locator/internal/facility"
	"github.com/turbolytics/locator/internal/ingest"
	"github.com/turbolytics/locator/internal/integrations/kafka"
	"github.com/turbolytics/locator/internal/integrations/mongo"
	"github.com/turbolytics/locator/internal/integrations/postgres"
	"github.com/turbolytics/locator/internal/local"
	"github.com/turbolytics/locator/internal/powerbi"
	"github.com/turbolytics/locator/internal/s3"
)

// resolve makes a path from the config file relative to the file's directory.
func (l *Locator) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || l.dir == "" {
		return p
	}
	return filepath.Join(l.dir, p)
}

func InitializeDecoder(c *Locator, logger *zap.Logger) (*dsr.Decoder, error) {
	w, err := c.Ingest.Wire.DSRWire()
	if err != nil {
		return nil, err
	}
	return dsr.NewDecoder(
		dsr.WithWire(w),
		dsr.WithLogger(logger.Named("dsr")),
	), nil
}

func InitializeRepository(c *Locator, runID uuid.UUID, logger *zap.Logger) (internal.Repository, error) {
	repo := c.Ingest.Repository
	switch repo.Type {
	case "local":
		return local.ForRun(
			c.resolve(repo.LocalConfig.Path),
			runID,
			local.WithLogger(logger),
		), nil
	case "s3":
		return s3.New(
			s3.WithLogger(logger),
			s3.WithRegion(repo.S3Config.Region),
			s3.WithBucket(repo.S3Config.Bucket),
			s3.WithEndpoint(repo.S3Config.Endpoint),
			s3.WithPrefix(path.Join(repo.S3Config.Prefix, runID.String())),
			s3.WithForcePathStyle(repo.S3Config.ForcePathStyle),
		)
	default:
		return nil, fmt.Errorf("unknown repository type: %s", repo.Type)
	}
}

// InitializePublisher connects the publisher matching the URL scheme.
func InitializePublisher(ctx context.Context, p Publisher, logger *zap.Logger) (ingest.Publisher, error) {
	uri, err := url.Parse(p.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid publisher URL: %w", err)
	}

	switch uri.Scheme {
	case "kafka":
		logger.Info("initializing kafka publisher", zap.String("host", uri.Host))
		return kafka.NewPublisher(uri, logger)
	case "mongodb", "mongodb+srv":
		logger.Info("initializing mongo publisher", zap.String("host", uri.Host))
		return mongo.NewPublisher(ctx, uri, logger)
	case "postgres", "postgresql":
		if p.CreateTable == "" {
			return nil, fmt.Errorf("postgres publisher requires create_table")
		}
		logger.Info("initializing postgres publisher", zap.String("host", uri.Host))
		return postgres.NewPublisher(ctx, uri, p.CreateTable, logger)
	default:
		return nil, fmt.Errorf("unsupported publisher protocol: %s", uri.Scheme)
	}
}

func InitializeIngester(ctx context.Context, c *Locator, runID uuid.UUID, logger *zap.Logger) (*ingest.Ingester, error) {
	src := c.Ingest.Source

	var body []byte
	if src.RequestPath != "" {
		var err error
		body, err = os.ReadFile(c.resolve(src.RequestPath))
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
	}

	client := powerbi.New(
		powerbi.WithLogger(logger.Named("powerbi")),
		powerbi.WithBaseURL(src.BaseURL),
		powerbi.WithResourceKey(src.ResourceKey),
		powerbi.WithTimeout(src.Timeout),
	)

	decoder, err := InitializeDecoder(c, logger)
	if err != nil {
		return nil, err
	}

	coords, err := facility.LoadCoordinatesFromFile(c.resolve(c.Ingest.Facility.CoordinatesPath))
	if err != nil {
		return nil, fmt.Errorf("loading coordinates: %w", err)
	}
	cleaner := facility.NewCleaner(coords,
		facility.WithLogger(logger.Named("facility")),
		facility.WithColumns(c.Ingest.Facility.Columns),
		facility.WithState(c.Ingest.Facility.State),
	)

	repository, err := InitializeRepository(c, runID, logger)
	if err != nil {
		return nil, err
	}

	var publishers []ingest.Publisher
	for _, pc := range c.Ingest.Publishers {
		p, err := InitializePublisher(ctx, pc, logger)
		if err != nil {
			for _, opened := range publishers {
				opened.Close(ctx)
			}
			return nil, err
		}
		publishers = append(publishers, p)
	}

	return ingest.New(
		ingest.WithLogger(logger),
		ingest.WithName(c.Ingest.Name),
		ingest.WithClient(client),
		ingest.WithRequestBody(body),
		ingest.WithResultIndex(*src.ResultIndex),
		ingest.WithDecoder(decoder),
		ingest.WithCleaner(cleaner),
		ingest.WithRepository(repository),
		ingest.WithPublishers(publishers...),
	), nil
}
