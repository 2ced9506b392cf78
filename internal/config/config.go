package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/turbolytics/locator/internal/dsr"
	"github.com/turbolytics/locator/internal/facility"
	"github.com/turbolytics/locator/internal/powerbi"
)

type Logger struct {
	Level string `yaml:"level"`
}

type Global struct {
	Logger Logger `yaml:"logger"`
}

type Source struct {
	BaseURL     string        `yaml:"base_url"`
	ResourceKey string        `yaml:"resource_key"`
	RequestPath string        `yaml:"request_path"`
	ResultIndex *int          `yaml:"result_index"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Wire overrides the DM0 key names. Empty fields keep the defaults.
type Wire struct {
	SchemaKey     string   `yaml:"schema_key"`
	ColumnNameKey string   `yaml:"column_name_key"`
	ValuesKey     string   `yaml:"values_key"`
	ReuseKey      string   `yaml:"reuse_key"`
	NullKeys      []string `yaml:"null_keys"`
	BitOrder      string   `yaml:"bit_order"`
}

type Facility struct {
	State           string           `yaml:"state"`
	CoordinatesPath string           `yaml:"coordinates_path"`
	Columns         facility.Columns `yaml:"columns"`
}

type LocalConfig struct {
	Path string `yaml:"path"`
}

type S3Config struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Prefix         string `yaml:"prefix"`
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

type Repository struct {
	Type        string      `yaml:"type"`
	LocalConfig LocalConfig `yaml:"local"`
	S3Config    S3Config    `yaml:"s3"`
}

type Publisher struct {
	URL string `yaml:"url"`
	// CreateTable is the CREATE TABLE statement of a postgres publisher.
	CreateTable string `yaml:"create_table"`
}

type Ingest struct {
	Name       string      `yaml:"name"`
	Source     Source      `yaml:"source"`
	Wire       Wire        `yaml:"wire"`
	Facility   Facility    `yaml:"facility"`
	Repository Repository  `yaml:"repository"`
	Publishers []Publisher `yaml:"publishers"`
}

type Locator struct {
	Global Global `yaml:"global"`
	Ingest Ingest `yaml:"ingest"`

	// dir is the directory of the config file; relative paths resolve against it.
	dir string
}

func NewLocatorFromFile(fpath string) (*Locator, error) {
	bs, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}

	// Defaults set before decoding survive keys the file leaves out.
	locator := Locator{
		Ingest: Ingest{
			Facility: Facility{Columns: facility.DefaultColumns()},
		},
	}
	if err := yaml.Unmarshal(bs, &locator); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", fpath, err)
	}

	locator.dir = filepath.Dir(fpath)
	locator.setDefaults()
	return &locator, nil
}

func (l *Locator) setDefaults() {
	if l.Ingest.Source.BaseURL == "" {
		l.Ingest.Source.BaseURL = powerbi.DefaultBaseURL
	}
	if l.Ingest.Source.ResultIndex == nil {
		idx := dsr.DefaultResultIndex
		l.Ingest.Source.ResultIndex = &idx
	}
	if l.Ingest.Source.Timeout == 0 {
		l.Ingest.Source.Timeout = 30 * time.Second
	}
	if l.Ingest.Facility.State == "" {
		l.Ingest.Facility.State = facility.DefaultState
	}
	if l.Ingest.Repository.Type == "" {
		l.Ingest.Repository.Type = "local"
	}
}

// DSRWire applies the configured overrides to the default wire format.
func (w Wire) DSRWire() (dsr.Wire, error) {
	out := dsr.DefaultWire()
	if w.SchemaKey != "" {
		out.SchemaKey = w.SchemaKey
	}
	if w.ColumnNameKey != "" {
		out.ColumnNameKey = w.ColumnNameKey
	}
	if w.ValuesKey != "" {
		out.ValuesKey = w.ValuesKey
	}
	if w.ReuseKey != "" {
		out.ReuseKey = w.ReuseKey
	}
	if len(w.NullKeys) > 0 {
		out.NullKeys = w.NullKeys
	}

	switch w.BitOrder {
	case "", "lsb":
		out.BitOrder = dsr.LSBFirst
	case "msb":
		out.BitOrder = dsr.MSBFirst
	default:
		return dsr.Wire{}, fmt.Errorf("unknown bit order: %q", w.BitOrder)
	}
	return out, nil
}

// NewLogger builds a development logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}
