package metrics

import (
	"context"
	"dbmetrics/logger"
	"fmt"
)

// Emitter turns result rows into points and hands them to a PointWriter.
// Every point is tagged with the configured hostname and host group.
type Emitter struct {
	writer    PointWriter
	hostname  string
	hostGroup string
	log       *logger.Logger
}

// NewEmitter creates an emitter on top of writer
func NewEmitter(writer PointWriter, hostname string, hostGroup string, log *logger.Logger) *Emitter {
	return &Emitter{
		writer:    writer,
		hostname:  hostname,
		hostGroup: hostGroup,
		log:       log,
	}
}

// WriteByTags writes one point per key of row, in row order. Each point is
// tagged metric=<key> and carries the row value in its single field "value".
func (e *Emitter) WriteByTags(ctx context.Context, measurement string, row *Row) error {
	for _, key := range row.Keys() {
		value, _ := row.Get(key)

		fields := NewRow()
		fields.Set(FieldValue, value)

		point, err := NewPoint(measurement, e.baseTags(Tag{Key: TagMetric, Value: key}), fields)
		if err != nil {
			return err
		}
		if err := e.write(ctx, point); err != nil {
			return err
		}
	}
	return nil
}

// WriteByFields writes row as a single point tagged with the value under
// tagKey; every other key of row becomes a field
func (e *Emitter) WriteByFields(ctx context.Context, measurement string, tagKey string, row *Row) error {
	tagValue, ok := row.Get(tagKey)
	if !ok {
		return fmt.Errorf("row for '%s' has no '%s' column to tag by", measurement, tagKey)
	}

	fields := NewRow()
	for _, key := range row.Keys() {
		if key == tagKey {
			continue
		}
		value, _ := row.Get(key)
		fields.Set(key, value)
	}

	point, err := NewPoint(measurement, e.baseTags(Tag{Key: tagKey, Value: FormatValue(tagValue)}), fields)
	if err != nil {
		return err
	}
	return e.write(ctx, point)
}

func (e *Emitter) baseTags(extra Tag) []Tag {
	return []Tag{
		{Key: TagHostname, Value: e.hostname},
		{Key: TagHostGroup, Value: e.hostGroup},
		extra,
	}
}

func (e *Emitter) write(ctx context.Context, point Point) error {
	e.log.Debug(ctx, "Write point", "measurement", point.Measurement, "tags", point.TagMap(), "fields", point.FieldMap())
	return e.writer.WritePoint(ctx, point)
}
