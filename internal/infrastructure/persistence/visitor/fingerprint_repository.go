package visitor

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hintermann/visitforge/internal/domain/visitor"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
	"github.com/hintermann/visitforge/internal/infrastructure/persistence/database"
)

// SQLFingerprintRepository is the SQL-based implementation of the
// FingerprintRepository.
type SQLFingerprintRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLFingerprintRepository creates a new instance of the repository.
func NewSQLFingerprintRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLFingerprintRepository {
	return &SQLFingerprintRepository{
		db:     db,
		logger: logger,
	}
}

// FindByHash retrieves a Fingerprint by its client-computed hash.
func (r *SQLFingerprintRepository) FindByHash(hash string) (*visitor.Fingerprint, error) {
	const query = `
		SELECT id, hash, server_token, visits, user_agent, ip, meta, first_seen, last_seen
		FROM visitor_fingerprints
		WHERE hash = ?`

	start := time.Now()
	row := r.db.QueryRow(query, hash)
	fp, err := r.scanFingerprint(row)
	if err != nil {
		r.logger.Database().Error("Failed to load fingerprint by hash", "error", err.Error())
		return nil, err
	}
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return fp, nil
}

// FindByServerToken retrieves a Fingerprint by its derived server token.
func (r *SQLFingerprintRepository) FindByServerToken(token string) (*visitor.Fingerprint, error) {
	const query = `
		SELECT id, hash, server_token, visits, user_agent, ip, meta, first_seen, last_seen
		FROM visitor_fingerprints
		WHERE server_token = ?`

	start := time.Now()
	row := r.db.QueryRow(query, token)
	fp, err := r.scanFingerprint(row)
	if err != nil {
		r.logger.Database().Error("Failed to load fingerprint by server token", "error", err.Error())
		return nil, err
	}
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return fp, nil
}

// Upsert creates the fingerprint row on first sight of the hash, or bumps its
// visit count and refreshes last-seen metadata. The increment happens inside
// the single UPDATE expression so concurrent calls cannot lose a visit.
func (r *SQLFingerprintRepository) Upsert(fp *visitor.Fingerprint) (*visitor.Fingerprint, error) {
	const query = `
		INSERT INTO visitor_fingerprints (id, hash, server_token, visits, user_agent, ip, meta, first_seen, last_seen)
		VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			visits = visits + 1,
			last_seen = excluded.last_seen,
			user_agent = COALESCE(excluded.user_agent, user_agent),
			ip = COALESCE(excluded.ip, ip)`

	start := time.Now()
	r.logger.Database().Debug("Executing fingerprint upsert", "id", fp.ID)

	_, err := r.db.Exec(
		query,
		fp.ID,
		fp.Hash,
		fp.ServerToken,
		fp.UserAgent,
		fp.IP,
		fp.Meta,
		fp.FirstSeen.UTC().Format(time.RFC3339),
		fp.LastSeen.UTC().Format(time.RFC3339),
	)
	if err != nil {
		r.logger.Database().Error("Fingerprint upsert failed", "error", err.Error(), "id", fp.ID)
		return nil, err
	}
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))

	persisted, err := r.FindByHash(fp.Hash)
	if err != nil {
		return nil, err
	}
	if persisted == nil {
		return nil, fmt.Errorf("fingerprint vanished after upsert")
	}
	return persisted, nil
}

// ListRecent returns the most recently seen fingerprints.
func (r *SQLFingerprintRepository) ListRecent(limit int) ([]*visitor.Fingerprint, error) {
	const query = `
		SELECT id, hash, server_token, visits, user_agent, ip, meta, first_seen, last_seen
		FROM visitor_fingerprints
		ORDER BY last_seen DESC
		LIMIT ?`

	start := time.Now()
	rows, err := r.db.Query(query, limit)
	if err != nil {
		r.logger.Database().Error("Failed to list fingerprints", "error", err.Error())
		return nil, err
	}
	defer rows.Close()

	var result []*visitor.Fingerprint
	for rows.Next() {
		fp, err := r.scanFingerprintRows(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, fp)
	}
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return result, rows.Err()
}

// Count returns the number of distinct fingerprints.
func (r *SQLFingerprintRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM visitor_fingerprints`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count fingerprints: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLFingerprintRepository) scanFingerprint(row *sql.Row) (*visitor.Fingerprint, error) {
	fp, err := scanFingerprintFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return fp, err
}

func (r *SQLFingerprintRepository) scanFingerprintRows(rows *sql.Rows) (*visitor.Fingerprint, error) {
	return scanFingerprintFrom(rows)
}

func scanFingerprintFrom(s rowScanner) (*visitor.Fingerprint, error) {
	var fp visitor.Fingerprint
	var userAgent, ip, meta sql.NullString
	var firstSeenStr, lastSeenStr string

	err := s.Scan(
		&fp.ID,
		&fp.Hash,
		&fp.ServerToken,
		&fp.Visits,
		&userAgent,
		&ip,
		&meta,
		&firstSeenStr,
		&lastSeenStr,
	)
	if err != nil {
		return nil, err
	}

	if userAgent.Valid {
		fp.UserAgent = &userAgent.String
	}
	if ip.Valid {
		fp.IP = &ip.String
	}
	if meta.Valid {
		fp.Meta = &meta.String
	}

	if fp.FirstSeen, err = parseTimestamp(firstSeenStr); err != nil {
		return nil, err
	}
	if fp.LastSeen, err = parseTimestamp(lastSeenStr); err != nil {
		return nil, err
	}

	return &fp, nil
}
