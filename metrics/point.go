package metrics

import "fmt"

const (
	TagHostname  = "hostname"
	TagHostGroup = "host_group"
	TagMetric    = "metric"
	FieldValue   = "value"
)

// Tag is a single series label
type Tag struct {
	Key   string
	Value string
}

// Point is one time-series point ready to be written to the metrics store.
// Tag keys and field keys never overlap.
type Point struct {
	Measurement string
	Tags        []Tag
	Fields      *Row
}

// NewPoint validates and builds a point
func NewPoint(measurement string, tags []Tag, fields *Row) (Point, error) {
	if measurement == "" {
		return Point{}, fmt.Errorf("measurement name is required")
	}
	if fields == nil || fields.Len() == 0 {
		return Point{}, fmt.Errorf("point '%s' has no fields", measurement)
	}

	tagKeys := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if tag.Key == "" {
			return Point{}, fmt.Errorf("point '%s' has an empty tag key", measurement)
		}
		if tagKeys[tag.Key] {
			return Point{}, fmt.Errorf("point '%s' has duplicate tag '%s'", measurement, tag.Key)
		}
		tagKeys[tag.Key] = true
	}
	for _, key := range fields.Keys() {
		if tagKeys[key] {
			return Point{}, fmt.Errorf("point '%s': '%s' is used as both tag and field", measurement, key)
		}
	}

	return Point{Measurement: measurement, Tags: tags, Fields: fields}, nil
}

// TagMap returns the tags as a map
func (p Point) TagMap() map[string]string {
	m := make(map[string]string, len(p.Tags))
	for _, tag := range p.Tags {
		m[tag.Key] = tag.Value
	}
	return m
}

// FieldMap returns the fields as a map
func (p Point) FieldMap() map[string]any {
	if p.Fields == nil {
		return map[string]any{}
	}
	return p.Fields.Map()
}

// Tag returns the value of the tag named key
func (p Point) Tag(key string) (string, bool) {
	for _, tag := range p.Tags {
		if tag.Key == key {
			return tag.Value, true
		}
	}
	return "", false
}
