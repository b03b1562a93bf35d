package metrics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the layout timestamps are printed with, without fractional seconds
const TimeLayout = "2006-01-02 15:04:05"

// FormatValue renders a driver value as text: nil as "None", booleans as
// "True"/"False", whole floats with a trailing ".0" and timestamps as
// "YYYY-MM-DD HH:MM:SS" with microseconds appended when non-zero.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "None"
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		if v {
			return "True"
		}
		return "False"
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	case time.Time:
		return FormatTime(v)
	case *time.Time:
		if v == nil {
			return "None"
		}
		return FormatTime(*v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// FormatTime prints t in TimeLayout, adding ".ffffff" when t has sub-second precision
func FormatTime(t time.Time) string {
	micros := t.Nanosecond() / int(time.Microsecond)
	if micros == 0 {
		return t.Format(TimeLayout)
	}
	return fmt.Sprintf("%s.%06d", t.Format(TimeLayout), micros)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
