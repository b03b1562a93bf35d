package collector

import (
	"dbmetrics/metrics"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Coercion converts a raw driver value into the value stored in a row.
// Returning nil drops the column from the row.
type Coercion func(value any) (any, error)

// AsIs keeps the driver value, normalized to types the metrics store accepts
func AsIs(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return string(v), nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return float64(v), nil
		}
		return int64(v), nil
	case float32:
		return float64(v), nil
	case time.Time:
		return metrics.FormatTime(v), nil
	case int64, float64, string, bool:
		return v, nil
	default:
		return metrics.FormatValue(v), nil
	}
}

// AsInt truncates numbers toward zero and parses numeric text
func AsInt(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case float64:
		return floatToInt(v)
	case float32:
		return floatToInt(float64(v))
	case string:
		return parseInt(v)
	case []byte:
		return parseInt(string(v))
	case time.Time:
		return nil, fmt.Errorf("cannot convert timestamp %s to int", metrics.FormatTime(v))
	}

	normalized, err := AsIs(value)
	if err != nil {
		return nil, err
	}
	switch v := normalized.(type) {
	case int64:
		return v, nil
	case float64:
		return floatToInt(v)
	case string:
		return parseInt(v)
	}
	return nil, fmt.Errorf("cannot convert %T to int", value)
}

// AsFloat converts numbers and numeric text to float64
func AsFloat(value any) (any, error) {
	normalized, err := AsIs(value)
	if err != nil || normalized == nil {
		return nil, err
	}
	switch v := normalized.(type) {
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float value: '%s'", v)
		}
		return f, nil
	}
	return nil, fmt.Errorf("cannot convert %T to float", value)
}

// AsString formats any value as text; nil becomes "None"
func AsString(value any) (any, error) {
	return metrics.FormatValue(value), nil
}

func parseInt(text string) (any, error) {
	text = strings.TrimSpace(text)
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid int value: '%s'", text)
	}
	return floatToInt(f)
}

func floatToInt(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, fmt.Errorf("cannot convert float %v to int", f)
	}
	return int64(f), nil
}
