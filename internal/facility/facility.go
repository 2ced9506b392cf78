package facility

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/turbolytics/locator/internal"
)

// Facility is a cleaned treatment facility listing.
type Facility struct {
	Name            *string    `json:"name" bson:"name"`
	Services        []string   `json:"services" bson:"services"`
	LaraID          *string    `json:"lara_id" bson:"lara_id"`
	Website         *string    `json:"website" bson:"website"`
	Phone           *string    `json:"phone" bson:"phone"`
	Address         *string    `json:"address" bson:"address"`
	City            *string    `json:"city" bson:"city"`
	Zipcode         *string    `json:"zipcode" bson:"zipcode"`
	AcceptsMedicaid bool       `json:"accepts_medicaid" bson:"accepts_medicaid"`
	Coordinates     [2]float64 `json:"coordinates" bson:"coordinates"`
	State           string     `json:"state" bson:"state"`
}

// Columns maps facility fields to the report's column names.
type Columns struct {
	Name     string `yaml:"name"`
	Services string `yaml:"services"`
	LaraID   string `yaml:"lara_id"`
	Website  string `yaml:"website"`
	Phone    string `yaml:"phone"`
	Zipcode  string `yaml:"zipcode"`
	City     string `yaml:"city"`
	Address  string `yaml:"address"`
	Medicaid string `yaml:"medicaid"`
}

func DefaultColumns() Columns {
	return Columns{
		Name:     "G0",
		Services: "M0",
		LaraID:   "M7",
		Website:  "M8",
		Phone:    "M9",
		Zipcode:  "M10",
		City:     "M11",
		Address:  "M12",
		Medicaid: "M13",
	}
}

const servicesSeparator = "; "

// DefaultState is the state used when a config names none.
const DefaultState = "MI"

type Option func(*Cleaner)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Cleaner) {
		c.logger = logger
	}
}

func WithColumns(columns Columns) Option {
	return func(c *Cleaner) {
		c.columns = columns
	}
}

func WithState(state string) Option {
	return func(c *Cleaner) {
		c.state = state
	}
}

// Cleaner turns decoded records into facilities, joining each one against
// a coordinates lookup.
type Cleaner struct {
	coordinates Coordinates
	columns     Columns
	state       string
	logger      *zap.Logger
}

func NewCleaner(coordinates Coordinates, opts ...Option) *Cleaner {
	c := &Cleaner{
		coordinates: coordinates,
		columns:     DefaultColumns(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cleaner) Clean(r *internal.Record) (Facility, error) {
	if _, ok := r.Get(c.columns.Name); !ok {
		return Facility{}, fmt.Errorf("facility: record has no name column %q", c.columns.Name)
	}

	f := Facility{
		Name:     c.text(r, c.columns.Name),
		Services: []string{},
		LaraID:   c.text(r, c.columns.LaraID),
		Website:  c.text(r, c.columns.Website),
		Phone:    c.text(r, c.columns.Phone),
		Address:  c.text(r, c.columns.Address),
		City:     c.text(r, c.columns.City),
		Zipcode:  c.text(r, c.columns.Zipcode),
		State:    c.state,
	}
	if v, _ := r.Get(c.columns.Services); v != nil {
		if services, ok := v.(string); ok {
			f.Services = strings.Split(services, servicesSeparator)
		}
	}
	if medicaid := c.text(r, c.columns.Medicaid); medicaid != nil {
		f.AcceptsMedicaid = *medicaid == "Y"
	}

	coords, err := c.coordinates.Lookup(deref(f.Address), deref(f.City), deref(f.Zipcode))
	if err != nil {
		c.logger.Error("no coordinates for facility",
			zap.Stringp("name", f.Name),
			zap.Error(err),
		)
		return Facility{}, err
	}
	f.Coordinates = coords

	return f, nil
}

// CleanAll cleans records in order and stops at the first failure.
func (c *Cleaner) CleanAll(records []*internal.Record) ([]Facility, error) {
	facilities := make([]Facility, 0, len(records))
	for i, r := range records {
		f, err := c.Clean(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		facilities = append(facilities, f)
	}
	return facilities, nil
}

func (c *Cleaner) text(r *internal.Record, column string) *string {
	v, ok := r.Get(column)
	if !ok || v == nil {
		return nil
	}
	s := stringify(v)
	return &s
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Row flattens a facility into named scalar columns for tabular targets.
func (f Facility) Row() map[string]any {
	return map[string]any{
		"name":             f.Name,
		"services":         strings.Join(f.Services, servicesSeparator),
		"lara_id":          f.LaraID,
		"website":          f.Website,
		"phone":            f.Phone,
		"address":          f.Address,
		"city":             f.City,
		"zipcode":          f.Zipcode,
		"accepts_medicaid": f.AcceptsMedicaid,
		"latitude":         f.Coordinates[0],
		"longitude":        f.Coordinates[1],
		"state":            f.State,
	}
}
