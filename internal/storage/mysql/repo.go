package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"marriott_mcp/internal/adapters/observability"
	"marriott_mcp/internal/domain"
)

const maxRecent = 200

func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// Repo is the MySQL search audit log.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

var _ domain.SearchAuditLog = (*Repo)(nil)

func (r *Repo) RecordSearch(ctx context.Context, rec domain.SearchRecord) error {
	filters := rec.Filters
	if filters == nil {
		filters = []string{}
	}
	fj, err := json.Marshal(filters)
	if err != nil {
		return fmt.Errorf("marshal filters: %w", err)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = r.db.ExecContext(ctx, insertSearchSQL,
		rec.SessionID,
		rec.LocationKey,
		rec.StartDate,
		rec.EndDate,
		rec.Page,
		string(fj),
		rec.Outcome,
		valInt(rec.Total),
		valInt(rec.Returned),
		valStr(rec.ErrorCode),
		created.UTC(),
	)
	if err != nil {
		observability.ObserveStore("mysql", "write_error")
		return fmt.Errorf("insert search audit: %w", err)
	}
	observability.ObserveStore("mysql", "write")
	return nil
}

// RecentSearches returns up to limit records for a session, newest first.
func (r *Repo) RecentSearches(ctx context.Context, sessionID string, limit int) ([]domain.SearchRecord, error) {
	if limit <= 0 || limit > maxRecent {
		limit = maxRecent
	}
	rows, err := r.db.QueryContext(ctx, recentSearchesSQL, sessionID, limit)
	if err != nil {
		observability.ObserveStore("mysql", "read_error")
		return nil, fmt.Errorf("query search audit: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SearchRecord, 0, limit)
	for rows.Next() {
		var (
			rec       domain.SearchRecord
			filters   []byte
			total     sql.NullInt64
			returned  sql.NullInt64
			errorCode sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.LocationKey,
			&rec.StartDate,
			&rec.EndDate,
			&rec.Page,
			&filters,
			&rec.Outcome,
			&total,
			&returned,
			&errorCode,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan search audit: %w", err)
		}
		rec.Filters = []string{}
		if len(filters) > 0 {
			if err := json.Unmarshal(filters, &rec.Filters); err != nil {
				log.Warn().Err(err).Int64("id", rec.ID).Msg("unreadable audit filters")
				rec.Filters = []string{}
			}
		}
		if total.Valid {
			v := int(total.Int64)
			rec.Total = &v
		}
		if returned.Valid {
			v := int(returned.Int64)
			rec.Returned = &v
		}
		if errorCode.Valid {
			v := errorCode.String
			rec.ErrorCode = &v
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search audit: %w", err)
	}
	observability.ObserveStore("mysql", "read")
	return out, nil
}

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }
