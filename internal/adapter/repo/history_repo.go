package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"thumbgen/internal/domain"
	"thumbgen/internal/infra"
	"thumbgen/internal/sqlinline"
)

// HistoryRepositoryPG implements domain.HistoryRepository backed by PostgreSQL.
type HistoryRepositoryPG struct {
	sql        infra.SQLExecutor
	maxRecords int
}

// NewHistoryRepository creates a history repository keeping at most maxRecords per user.
func NewHistoryRepository(sql infra.SQLExecutor, maxRecords int) *HistoryRepositoryPG {
	if maxRecords <= 0 {
		maxRecords = domain.DefaultHistoryLimit
	}
	return &HistoryRepositoryPG{sql: sql, maxRecords: maxRecords}
}

// Append stores record and drops the user's oldest entries beyond the cap.
func (r *HistoryRepositoryPG) Append(ctx context.Context, record *domain.HistoryRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	fields, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("history: encode fields: %w", err)
	}
	var reference []byte
	if record.Reference != nil {
		if reference, err = json.Marshal(record.Reference); err != nil {
			return fmt.Errorf("history: encode reference: %w", err)
		}
	}
	urls := record.ImageURLs
	if urls == nil {
		urls = []string{}
	}
	urlsRaw, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("history: encode urls: %w", err)
	}

	if _, err := r.sql.Exec(ctx, sqlinline.QInsertHistory,
		record.ID,
		record.UserID,
		string(record.Mode),
		record.OriginalPrompt,
		record.FinalPrompt,
		record.Enhanced,
		fields,
		reference,
		record.RequestedCount,
		record.GeneratedCount,
		urlsRaw,
		record.CreatedAt,
	); err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	// The record is stored at this point; an over-cap list is trimmed again on the next append.
	if _, err := r.sql.Exec(ctx, sqlinline.QTrimHistory, record.UserID, r.maxRecords); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", record.UserID).Msg("history: trim failed")
	}
	return nil
}

// List returns a page of the user's records, newest first.
func (r *HistoryRepositoryPG) List(ctx context.Context, userID string, limit, offset int) (*domain.HistoryPage, error) {
	limit, offset = normalizePage(limit, offset, r.maxRecords)
	page := &domain.HistoryPage{Records: []domain.HistoryRecord{}, Limit: limit, Offset: offset}

	if err := r.sql.QueryRow(ctx, sqlinline.QCountHistory, userID).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("history: count: %w", err)
	}
	if page.Total == 0 || offset >= page.Total {
		return page, nil
	}

	rows, err := r.sql.Query(ctx, sqlinline.QListHistory, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rec                  domain.HistoryRecord
			mode                 string
			fields, ref, urlsRaw []byte
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &mode, &rec.OriginalPrompt, &rec.FinalPrompt, &rec.Enhanced,
			&fields, &ref, &rec.RequestedCount, &rec.GeneratedCount, &urlsRaw, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		rec.Mode = domain.Mode(mode)
		log := zerolog.Ctx(ctx).With().Str("history_id", rec.ID).Logger()
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &rec.Fields); err != nil {
				log.Warn().Err(err).Msg("history: decode fields failed")
			}
		}
		if len(ref) > 0 && string(ref) != "null" {
			var info domain.ReferenceInfo
			if err := json.Unmarshal(ref, &info); err != nil {
				log.Warn().Err(err).Msg("history: decode reference failed")
			} else {
				rec.Reference = &info
			}
		}
		if len(urlsRaw) > 0 {
			if err := json.Unmarshal(urlsRaw, &rec.ImageURLs); err != nil {
				log.Warn().Err(err).Msg("history: decode urls failed")
				rec.ImageURLs = nil
			}
		}
		if rec.ImageURLs == nil {
			rec.ImageURLs = []string{}
		}
		page.Records = append(page.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}
	return page, nil
}

// Delete removes one record. It returns domain.ErrNotFound when nothing matched.
func (r *HistoryRepositoryPG) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteHistory, userID, id)
	if err != nil {
		return fmt.Errorf("history: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Clear removes every record of the user.
func (r *HistoryRepositoryPG) Clear(ctx context.Context, userID string) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QClearHistory, userID); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	return nil
}

func normalizePage(limit, offset, max int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var _ domain.HistoryRepository = (*HistoryRepositoryPG)(nil)
