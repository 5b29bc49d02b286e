package visitor

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hintermann/visitforge/internal/domain/visitor"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
	"github.com/hintermann/visitforge/internal/infrastructure/persistence/database"
	"github.com/hintermann/visitforge/internal/infrastructure/security"
)

// SQLEventLogRepository is the SQL-based implementation of the append-only
// event trail.
type SQLEventLogRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLEventLogRepository creates a new instance of the repository.
func NewSQLEventLogRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLEventLogRepository {
	return &SQLEventLogRepository{
		db:     db,
		logger: logger,
	}
}

// AppendBatch writes every event of the batch verbatim. Rows are inserted in
// batch order; a failure aborts the remainder but callers treat the whole
// append as best-effort.
func (r *SQLEventLogRepository) AppendBatch(visitorID string, events []visitor.Event, now time.Time) error {
	const query = `
		INSERT INTO event_log (id, visitor_id, type, value_num, meta, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	start := time.Now()
	for _, event := range events {
		var meta *string
		if event.Meta != nil {
			encoded, err := json.Marshal(event.Meta)
			if err == nil {
				s := string(encoded)
				meta = &s
			}
		}

		_, err := r.db.Exec(
			query,
			security.GenerateULID(),
			visitorID,
			string(event.Type),
			event.ValueNum,
			meta,
			now.UTC().Format(time.RFC3339),
		)
		if err != nil {
			r.logger.Database().Error("Event log insert failed", "error", err.Error(), "visitorId", visitorID, "type", event.Type)
			return fmt.Errorf("failed to append event log entry: %w", err)
		}
	}
	database.CheckAndLogSlowQuery(r.logger, "BULK_EVENT_LOG_APPEND", time.Since(start))
	return nil
}

// ListRecent returns the newest log rows, for the admin audit view.
func (r *SQLEventLogRepository) ListRecent(limit int) ([]*visitor.LogEntry, error) {
	const query = `
		SELECT id, visitor_id, type, value_num, meta, created_at
		FROM event_log
		ORDER BY created_at DESC
		LIMIT ?`

	start := time.Now()
	rows, err := r.db.Query(query, limit)
	if err != nil {
		r.logger.Database().Error("Failed to list event log", "error", err.Error())
		return nil, err
	}
	defer rows.Close()

	var result []*visitor.LogEntry
	for rows.Next() {
		var entry visitor.LogEntry
		var valueNum sql.NullFloat64
		var meta sql.NullString
		var createdAtStr string
		var eventType string

		err := rows.Scan(&entry.ID, &entry.VisitorID, &eventType, &valueNum, &meta, &createdAtStr)
		if err != nil {
			return nil, err
		}

		entry.Type = visitor.EventType(eventType)
		if valueNum.Valid {
			entry.ValueNum = &valueNum.Float64
		}
		if meta.Valid {
			entry.Meta = &meta.String
		}
		if entry.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
			return nil, err
		}

		result = append(result, &entry)
	}
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return result, rows.Err()
}

// Count returns the total number of logged events.
func (r *SQLEventLogRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM event_log`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count event log: %w", err)
	}
	return count, nil
}
