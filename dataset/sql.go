package dataset

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	kiln "github.com/spetersoncode/kiln"
)

// FromSQLite runs a query against a SQLite database and loads the result
// set as a dataset. Column order follows the query's select list. The
// database is opened read-only and closed before this returns.
func FromSQLite(ctx context.Context, name, path, query string, args ...any) (*Memory, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", path, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []kiln.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(kiln.Row, len(cols))
		for i, col := range cols {
			v := vals[i]
			// Drivers hand back []byte for TEXT in some paths.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return FromRowsOrdered(name, out, cols), nil
}
