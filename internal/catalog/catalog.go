package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/turbolytics/locator/internal"
)

/*
The catalog is a record of what an ingestion run processed.
It is written next to the run's output as a primitive for verifying,
inventorying and auditing each run.
*/

const Key = "catalog.json"

// Catalog represents the catalog of one ingestion run
type Catalog struct {
	RunID               string    `json:"run_id"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	Source              string    `json:"source"`
	NumSourceRecords    int       `json:"num_source_records"`
	NumRecordsProcessed int       `json:"num_records_processed"`
	NumFacilities       int       `json:"num_facilities"`
	Success             bool      `json:"success"`
	Error               string    `json:"error,omitempty"`
}

// Write stores the catalog in the repository under Key.
func (c *Catalog) Write(ctx context.Context, repo internal.Repository) error {
	bs, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return repo.Write(ctx, Key, bytes.NewReader(bs))
}
