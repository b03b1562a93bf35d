package collector

import "dbmetrics/metrics"

// Merge augments every primary row with the non-key columns of the first
// secondary row sharing its key value. Unmatched primary rows are returned
// unchanged; the result always has one row per primary row.
func Merge(primary []*metrics.Row, secondary []*metrics.Row, key string) []*metrics.Row {
	merged := make([]*metrics.Row, 0, len(primary))
	for _, row := range primary {
		out := row.Clone()
		if match := findByKey(secondary, key, row); match != nil {
			for _, label := range match.Keys() {
				if label == key {
					continue
				}
				value, _ := match.Get(label)
				out.Set(label, value)
			}
		}
		merged = append(merged, out)
	}
	return merged
}

func findByKey(rows []*metrics.Row, key string, target *metrics.Row) *metrics.Row {
	want, ok := target.Get(key)
	if !ok {
		return nil
	}
	for _, row := range rows {
		if got, ok := row.Get(key); ok && metrics.FormatValue(got) == metrics.FormatValue(want) {
			return row
		}
	}
	return nil
}
