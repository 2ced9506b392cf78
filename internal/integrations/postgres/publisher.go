package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/xwb1989/sqlparser"
	"go.uber.org/zap"

	"github.com/turbolytics/locator/internal/facility"
)

// Table is the target table of a publisher, as declared by its CREATE TABLE
// statement.
type Table struct {
	DDL     string
	Name    string
	Columns []string
}

// ParseCreateTable reads the table name and column list from a CREATE TABLE
// statement and checks that every column is a facility field.
func ParseCreateTable(ddl string) (Table, error) {
	stmt, err := sqlparser.Parse(ddl)
	if err != nil {
		return Table{}, fmt.Errorf("parsing create table: %w", err)
	}

	create, ok := stmt.(*sqlparser.DDL)
	if !ok || create.Action != sqlparser.CreateStr || create.TableSpec == nil {
		return Table{}, fmt.Errorf("expected a CREATE TABLE statement")
	}

	known := facility.Facility{}.Row()
	t := Table{
		DDL:  ddl,
		Name: create.NewName.Name.String(),
	}
	for _, col := range create.TableSpec.Columns {
		name := col.Name.String()
		if _, ok := known[name]; !ok {
			return Table{}, fmt.Errorf("column %q is not a facility field", name)
		}
		t.Columns = append(t.Columns, name)
	}
	if len(t.Columns) == 0 {
		return Table{}, fmt.Errorf("table %q declares no columns", t.Name)
	}

	return t, nil
}

// Publisher copies facilities into a postgres table.
type Publisher struct {
	conn   *pgx.Conn
	table  Table
	logger *zap.Logger
}

func NewPublisher(ctx context.Context, uri *url.URL, ddl string, logger *zap.Logger) (*Publisher, error) {
	table, err := ParseCreateTable(ddl)
	if err != nil {
		return nil, err
	}

	conn, err := pgx.Connect(ctx, uri.String())
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, err
	}

	if _, err := conn.Exec(ctx, table.DDL); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("creating table %q: %w", table.Name, err)
	}

	logger.Info("postgres publisher connected",
		zap.String("table", table.Name),
		zap.Strings("columns", table.Columns))

	return &Publisher{
		conn:   conn,
		table:  table,
		logger: logger,
	}, nil
}

func (p *Publisher) Name() string {
	return "postgres"
}

func (p *Publisher) Publish(ctx context.Context, facilities []facility.Facility) error {
	rows := make([][]any, len(facilities))
	for i, f := range facilities {
		values := f.Row()
		row := make([]any, len(p.table.Columns))
		for j, col := range p.table.Columns {
			row[j] = values[col]
		}
		rows[i] = row
	}

	n, err := p.conn.CopyFrom(
		ctx,
		pgx.Identifier{p.table.Name},
		p.table.Columns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return err
	}

	p.logger.Info("published facilities",
		zap.String("table", p.table.Name),
		zap.Int64("count", n))
	return nil
}

func (p *Publisher) Close(ctx context.Context) error {
	return p.conn.Close(ctx)
}
