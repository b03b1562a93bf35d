package metrics

// Row is an ordered label -> value mapping built from one result row.
// Keys keep the position of their first Set.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow creates an empty row
func NewRow() *Row {
	return &Row{values: make(map[string]any)}
}

// Set stores value under key
func (r *Row) Set(key string, value any) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key
func (r *Row) Get(key string) (any, bool) {
	value, ok := r.values[key]
	return value, ok
}

// Keys returns the labels in insertion order
func (r *Row) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

func (r *Row) Len() int {
	return len(r.keys)
}

// Map returns an unordered copy of the row
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.keys))
	for _, key := range r.keys {
		m[key] = r.values[key]
	}
	return m
}

// Clone returns an independent copy of the row
func (r *Row) Clone() *Row {
	clone := &Row{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]any, len(r.values)),
	}
	copy(clone.keys, r.keys)
	for key, value := range r.values {
		clone.values[key] = value
	}
	return clone
}
