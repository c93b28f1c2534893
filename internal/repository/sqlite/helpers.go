package sqlite

import (
	"database/sql"
	"time"

	"iosctl/internal/repository"
)

// ============================================================================
// Time Conversion Helpers
// ============================================================================

const timeLayout = time.RFC3339Nano

// formatTime renders t the way updated_at is stored
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime reads an updated_at column; unparseable values become the zero time
func parseTime(ns sql.NullString) time.Time {
	if !ns.Valid {
		return time.Time{}
	}
	for _, layout := range []string{timeLayout, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ============================================================================
// Row Scanning Helpers
// ============================================================================

// entryRow holds the raw columns of one oper_cache row
type entryRow struct {
	path      string
	value     string
	updatedAt sql.NullString
}

func (r *entryRow) scanArgs() []interface{} {
	return []interface{}{&r.path, &r.value, &r.updatedAt}
}

func (r *entryRow) toEntry() repository.Entry {
	return repository.Entry{
		Path:      r.path,
		Value:     r.value,
		UpdatedAt: parseTime(r.updatedAt),
	}
}
