package collector

import (
	"context"
	dbsql "database/sql"
	"dbmetrics/logger"
	"dbmetrics/metrics"
	"dbmetrics/plugin"
	"dbmetrics/sql"
	"fmt"
)

// Collector runs a fixed list of queries against one database connection
// and emits their rows, in order. The first failure stops the run.
type Collector struct {
	db      *dbsql.DB
	emitter *metrics.Emitter
	queries []Query
	log     *logger.Logger
}

// New creates a collector for an already opened connection
func New(db *dbsql.DB, emitter *metrics.Emitter, queries []Query, log *logger.Logger) *Collector {
	return &Collector{
		db:      db,
		emitter: emitter,
		queries: queries,
		log:     log,
	}
}

// Run executes every query in order. Returned errors are *plugin.RunError
// with stage query or write.
func (c *Collector) Run(ctx context.Context) error {
	for _, query := range c.queries {
		if err := c.runQuery(ctx, query); err != nil {
			c.log.Error(ctx, err, "Query failed", "query", query.Name)
			return err
		}
	}
	return nil
}

func (c *Collector) runQuery(ctx context.Context, query Query) error {
	rows, err := c.fetch(ctx, query.Primary)
	if err != nil {
		return plugin.Wrap(plugin.StageQuery, fmt.Errorf("query %s: %w", query.Name, err))
	}

	if query.Secondary != nil {
		secondary, err := c.fetch(ctx, *query.Secondary)
		if err != nil {
			return plugin.Wrap(plugin.StageQuery, fmt.Errorf("query %s (merged part): %w", query.Name, err))
		}
		rows = Merge(rows, secondary, query.MergeKey)
	}

	for _, row := range rows {
		if err := c.emit(ctx, query, row); err != nil {
			return plugin.Wrap(plugin.StageWrite, fmt.Errorf("query %s: %w", query.Name, err))
		}
	}

	c.log.Info(ctx, "Query collected", "query", query.Name, "measurement", query.Measurement, "rows", len(rows))
	return nil
}

func (c *Collector) emit(ctx context.Context, query Query, row *metrics.Row) error {
	switch query.Mode {
	case ModeByTags:
		return c.emitter.WriteByTags(ctx, query.Measurement, row)
	case ModeByFields:
		return c.emitter.WriteByFields(ctx, query.Measurement, query.TagKey, row)
	default:
		return fmt.Errorf("unsupported emission mode %d", query.Mode)
	}
}

func (c *Collector) fetch(ctx context.Context, statement Statement) ([]*metrics.Row, error) {
	values, err := sql.QueryRows(ctx, c.db, statement.SQL)
	if err != nil {
		return nil, err
	}

	rows := make([]*metrics.Row, 0, len(values))
	for i, raw := range values {
		row, err := BuildRow(statement.Columns, raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// BuildRow maps raw column values to labels following columns, in
// descriptor order
func BuildRow(columns []Column, raw []any) (*metrics.Row, error) {
	row := metrics.NewRow()
	for _, column := range columns {
		if column.Index < 0 || column.Index >= len(raw) {
			return nil, fmt.Errorf("column %d ('%s') out of range, result has %d columns", column.Index, column.Label, len(raw))
		}
		coerce := column.Coerce
		if coerce == nil {
			coerce = AsIs
		}
		value, err := coerce(raw[column.Index])
		if err != nil {
			return nil, fmt.Errorf("column '%s': %w", column.Label, err)
		}
		if value == nil {
			continue
		}
		row.Set(column.Label, value)
	}
	return row, nil
}
