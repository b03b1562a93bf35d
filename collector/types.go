package collector

// Mode selects how a query's rows become points
type Mode int

const (
	// ModeByTags writes one point per row key, tagged metric=<key>
	ModeByTags Mode = iota
	// ModeByFields writes one point per row, tagged by TagKey
	ModeByFields
)

func (m Mode) String() string {
	switch m {
	case ModeByTags:
		return "by-tags"
	case ModeByFields:
		return "by-fields"
	default:
		return "unknown"
	}
}

// Column maps a positional result column to a row label
type Column struct {
	Index  int
	Label  string
	Coerce Coercion
}

// Statement is one SQL text plus the descriptors of its SELECT list
type Statement struct {
	SQL     string
	Columns []Column
}

// Query is one fixed diagnostic check
type Query struct {
	Name        string
	Measurement string
	Mode        Mode
	TagKey      string // ModeByFields only

	Primary Statement
	// Secondary rows are merged into primary rows on MergeKey before emission
	Secondary *Statement
	MergeKey  string
}
