package metrics

import (
	"context"
	"dbmetrics/config"
	"fmt"
	"io"

	client "github.com/influxdata/influxdb1-client/v2"
)

// PointWriter submits points to a metrics store, one call per point
type PointWriter interface {
	WritePoint(ctx context.Context, point Point) error
	Close() error
}

// InfluxWriter writes points to an InfluxDB 1.x server over HTTP
type InfluxWriter struct {
	client   client.Client
	database string
	config   config.InfluxConfig
}

// NewInfluxWriter creates an InfluxDB client. No request is made until Ping or WritePoint.
func NewInfluxWriter(cfg config.InfluxConfig) (*InfluxWriter, error) {
	httpClient, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     cfg.InfluxURL(),
		Username: cfg.User,
		Password: cfg.Password,
		Timeout:  cfg.Timeout.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create influxdb client for %s: %w", cfg.InfluxURL(), err)
	}

	return &InfluxWriter{
		client:   httpClient,
		database: cfg.DbName,
		config:   cfg,
	}, nil
}

// Ping checks that the server answers
func (w *InfluxWriter) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := w.client.Ping(0); err != nil {
		return fmt.Errorf("influxdb at %s is not reachable: %w", w.config.InfluxURL(), err)
	}
	return nil
}

// WritePoint sends a single point as its own write request. The point
// carries no timestamp; the server assigns one on arrival.
func (w *InfluxWriter) WritePoint(ctx context.Context, point Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	batch, err := client.NewBatchPoints(client.BatchPointsConfig{Database: w.database})
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	influxPoint, err := toInfluxPoint(point)
	if err != nil {
		return err
	}
	batch.AddPoint(influxPoint)

	if err := w.client.Write(batch); err != nil {
		return fmt.Errorf("failed to write point '%s' to database '%s': %w", point.Measurement, w.database, err)
	}
	return nil
}

func (w *InfluxWriter) Close() error {
	return w.client.Close()
}

// LineWriter prints points as line protocol, one per line
type LineWriter struct {
	out io.Writer
}

// NewLineWriter creates a writer printing to out
func NewLineWriter(out io.Writer) *LineWriter {
	return &LineWriter{out: out}
}

func (w *LineWriter) WritePoint(ctx context.Context, point Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	influxPoint, err := toInfluxPoint(point)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w.out, influxPoint.String()); err != nil {
		return fmt.Errorf("failed to print point '%s': %w", point.Measurement, err)
	}
	return nil
}

func (w *LineWriter) Close() error {
	return nil
}

func toInfluxPoint(point Point) (*client.Point, error) {
	influxPoint, err := client.NewPoint(point.Measurement, point.TagMap(), point.FieldMap())
	if err != nil {
		return nil, fmt.Errorf("invalid point '%s': %w", point.Measurement, err)
	}
	return influxPoint, nil
}
