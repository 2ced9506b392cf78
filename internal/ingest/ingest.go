package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/turbolytics/locator/internal"
	"github.com/turbolytics/locator/internal/catalog"
	"github.com/turbolytics/locator/internal/dsr"
	"github.com/turbolytics/locator/internal/facility"
)

const (
	RecordsKey    = "records.json"
	FacilitiesKey = "facilities.json"
)

// Querier fetches a parsed query response.
type Querier interface {
	QueryData(ctx context.Context, body []byte) (map[string]any, error)
}

// Publisher receives the facilities of a successful run.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, facilities []facility.Facility) error
	Close(ctx context.Context) error
}

type Option func(*Ingester)

func WithLogger(logger *zap.Logger) Option {
	return func(i *Ingester) {
		i.logger = logger
	}
}

func WithName(name string) Option {
	return func(i *Ingester) {
		i.name = name
	}
}

func WithClient(client Querier) Option {
	return func(i *Ingester) {
		i.client = client
	}
}

func WithRequestBody(body []byte) Option {
	return func(i *Ingester) {
		i.body = body
	}
}

func WithResultIndex(index int) Option {
	return func(i *Ingester) {
		i.resultIndex = index
	}
}

func WithDecoder(d *dsr.Decoder) Option {
	return func(i *Ingester) {
		i.decoder = d
	}
}

func WithCleaner(c *facility.Cleaner) Option {
	return func(i *Ingester) {
		i.cleaner = c
	}
}

func WithRepository(r internal.Repository) Option {
	return func(i *Ingester) {
		i.repository = r
	}
}

func WithPublishers(p ...Publisher) Option {
	return func(i *Ingester) {
		i.publishers = append(i.publishers, p...)
	}
}

// Ingester runs one query through the decoder and cleaner and preserves
// the result.
type Ingester struct {
	name        string
	body        []byte
	resultIndex int

	client     Querier
	decoder    *dsr.Decoder
	cleaner    *facility.Cleaner
	repository internal.Repository
	publishers []Publisher

	logger *zap.Logger
}

func New(opts ...Option) *Ingester {
	i := &Ingester{
		resultIndex: dsr.DefaultResultIndex,
		decoder:     dsr.NewDecoder(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Ingester) validate() error {
	var errs []error
	if i.client == nil {
		errs = append(errs, errors.New("client is required"))
	}
	if i.cleaner == nil {
		errs = append(errs, errors.New("cleaner is required"))
	}
	if i.repository == nil {
		errs = append(errs, errors.New("repository is required"))
	}
	return errors.Join(errs...)
}

// Run executes one ingestion run. The catalog is written whether or not
// the run succeeds.
func (i *Ingester) Run(ctx context.Context, runID uuid.UUID) (*catalog.Catalog, error) {
	if err := i.validate(); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	l := i.logger.With(zap.String("run_id", runID.String()))

	c := &catalog.Catalog{
		RunID:     runID.String(),
		Source:    i.name,
		StartTime: time.Now().UTC(),
	}

	runErr := i.run(ctx, l, c)

	c.EndTime = time.Now().UTC()
	c.Success = runErr == nil
	if runErr != nil {
		c.Error = runErr.Error()
		l.Error("ingestion failed", zap.Error(runErr))
	}

	if err := c.Write(ctx, i.repository); err != nil {
		return c, errors.Join(runErr, fmt.Errorf("writing catalog: %w", err))
	}

	l.Info("ingestion finished",
		zap.Bool("success", c.Success),
		zap.Int("source_records", c.NumSourceRecords),
		zap.Int("facilities", c.NumFacilities),
		zap.Duration("duration", c.EndTime.Sub(c.StartTime)),
	)

	return c, runErr
}

func (i *Ingester) run(ctx context.Context, l *zap.Logger, c *catalog.Catalog) error {
	// 1. Query the source
	response, err := i.client.QueryData(ctx, i.body)
	if err != nil {
		return err
	}

	rows, err := dsr.ExtractRows(response, i.resultIndex)
	if err != nil {
		return err
	}
	c.NumSourceRecords = len(rows)

	// 2. Decode the rows
	records, err := i.decoder.Decode(rows)
	if err != nil {
		return err
	}
	c.NumRecordsProcessed = len(records)
	l.Info("decoded rows", zap.Int("records", len(records)))

	if err := i.writeJSON(ctx, RecordsKey, records); err != nil {
		return err
	}

	// 3. Clean and geocode
	facilities, err := i.cleaner.CleanAll(records)
	if err != nil {
		return err
	}
	c.NumFacilities = len(facilities)

	if err := i.writeJSON(ctx, FacilitiesKey, facilities); err != nil {
		return err
	}

	// 4. Publish
	for _, p := range i.publishers {
		if err := p.Publish(ctx, facilities); err != nil {
			return fmt.Errorf("publishing to %s: %w", p.Name(), err)
		}
	}

	return nil
}

func (i *Ingester) writeJSON(ctx context.Context, key string, v any) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return i.repository.Write(ctx, key, bytes.NewReader(bs))
}

// Close releases the publishers.
func (i *Ingester) Close(ctx context.Context) error {
	var errs []error
	for _, p := range i.publishers {
		if err := p.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}
