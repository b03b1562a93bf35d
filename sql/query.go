package sql

import (
	"context"
	"database/sql"
	"fmt"
)

// QueryRows executes script and returns every row as a slice of raw driver
// values, in the order the driver returned them
func QueryRows(ctx context.Context, db *sql.DB, script string) ([][]any, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection (DB) is nil")
	}

	rows, err := db.QueryContext(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("failed to execute script: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var result [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(result), err)
		}
		result = append(result, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iteration: %w", err)
	}

	return result, nil
}
