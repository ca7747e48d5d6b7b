package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"finetica/internal/dto"
	"finetica/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var ingestionLogColumns = []string{
	"id", "family", "bucket", "filename", "object_key", "description", "message",
	"is_valid", "is_processed", "processed_at", "document_id", "created_at",
}

type IngestionLogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewIngestionLogRepository(db *pgxpool.Pool, logger *zap.Logger) *IngestionLogRepository {
	return &IngestionLogRepository{
		db:     db,
		logger: logger,
	}
}

func scanIngestionLog(row rowScanner) (*models.IngestionLogEntry, error) {
	var entry models.IngestionLogEntry
	if err := row.Scan(
		&entry.ID, &entry.Type, &entry.Bucket, &entry.Filename, &entry.ObjectKey,
		&entry.Description, &entry.Message, &entry.IsValid, &entry.IsProcessed,
		&entry.ProcessedAt, &entry.DocumentID, &entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create inserts a queued entry and fills in its ID and CreatedAt.
func (r *IngestionLogRepository) Create(ctx context.Context, entry *models.IngestionLogEntry) error {
	query := squirrel.Insert("ingestion_logs").
		Columns("family", "bucket", "filename", "object_key", "description", "message", "is_valid", "is_processed").
		Values(entry.Type, entry.Bucket, entry.Filename, entry.ObjectKey, entry.Description, entry.Message, entry.IsValid, false).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	return r.db.QueryRow(ctx, sql, args...).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *IngestionLogRepository) GetByID(ctx context.Context, docType models.DocumentType, id int64) (*models.IngestionLogEntry, error) {
	query := squirrel.Select(ingestionLogColumns...).
		From("ingestion_logs").
		Where(squirrel.Eq{"id": id, "family": docType}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	entry, err := scanIngestionLog(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

var invalidLogSortColumns = map[string]string{
	"id":           "id",
	"filename":     "filename",
	"message":      "message",
	"created_at":   "created_at",
	"processed_at": "processed_at",
	"is_processed": "is_processed",
	"is_valid":     "is_valid",
}

// InvalidLogSortable reports whether the invalid-upload registry can be sorted by field.
func InvalidLogSortable(field string) bool {
	_, ok := invalidLogSortColumns[field]
	return ok
}

func invalidLogFilter(docType models.DocumentType) squirrel.Sqlizer {
	return squirrel.And{
		squirrel.Eq{"family": docType},
		squirrel.NotEq{"message": ""},
		squirrel.Expr("NOT (is_valid AND is_processed)"),
	}
}

// ListInvalid returns one page of entries that carry a message and did not complete
// successfully, plus the total count.
func (r *IngestionLogRepository) ListInvalid(ctx context.Context, docType models.DocumentType, params dto.ListParams) ([]*models.IngestionLogEntry, int64, error) {
	params = params.Normalize()

	countSQL, countArgs, err := squirrel.Select("COUNT(*)").
		From("ingestion_logs").
		Where(invalidLogFilter(docType)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	column := "created_at"
	if params.SortField != "" {
		c, ok := invalidLogSortColumns[params.SortField]
		if !ok {
			return nil, 0, fmt.Errorf("unsupported sort field %q", params.SortField)
		}
		column = c
	}
	direction := "DESC"
	if params.SortOrder == dto.SortAsc {
		direction = "ASC"
	}

	query := squirrel.Select(ingestionLogColumns...).
		From("ingestion_logs").
		Where(invalidLogFilter(docType)).
		OrderBy(column+" "+direction+" NULLS LAST", "id DESC").
		Limit(uint64(params.PerPage)).
		Offset(params.Offset()).
		PlaceholderFormat(squirrel.Dollar)

	entries, err := r.list(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListQueued returns entries that were accepted but never reached a terminal state.
func (r *IngestionLogRepository) ListQueued(ctx context.Context) ([]*models.IngestionLogEntry, error) {
	query := squirrel.Select(ingestionLogColumns...).
		From("ingestion_logs").
		Where(squirrel.Eq{"is_processed": false, "message": ""}).
		OrderBy("id ASC").
		PlaceholderFormat(squirrel.Dollar)

	return r.list(ctx, query)
}

func (r *IngestionLogRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]*models.IngestionLogEntry, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.IngestionLogEntry
	for rows.Next() {
		entry, err := scanIngestionLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// MarkInvalid records a rejected file. The entry is terminal.
func (r *IngestionLogRepository) MarkInvalid(ctx context.Context, id int64, message string) error {
	query := squirrel.Update("ingestion_logs").
		Set("is_valid", false).
		Set("is_processed", true).
		Set("processed_at", squirrel.Expr("NOW()")).
		Set("message", message).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	return r.exec(ctx, query)
}

// MarkPending records a readable file whose extraction needs manual attention.
func (r *IngestionLogRepository) MarkPending(ctx context.Context, id int64, message string) error {
	query := squirrel.Update("ingestion_logs").
		Set("is_valid", true).
		Set("is_processed", false).
		Set("processed_at", nil).
		Set("message", message).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	return r.exec(ctx, query)
}

func (r *IngestionLogRepository) exec(ctx context.Context, query squirrel.UpdateBuilder) error {
	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteValid stores the extracted document and closes the log entry in one transaction.
func (r *IngestionLogRepository) CompleteValid(ctx context.Context, entry *models.IngestionLogEntry, fields models.Fields) (*models.Document, error) {
	rawFields, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}

	var doc *models.Document
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		insertSQL, insertArgs, err := squirrel.Insert("documents").
			Columns("family", "fields", "bucket", "object_key", "ingestion_log_id").
			Values(entry.Type, squirrel.Expr("?::jsonb", string(rawFields)), string(entry.Bucket), entry.ObjectKey, entry.ID).
			Suffix("RETURNING " + strings.Join(documentColumns, ", ")).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		doc, err = scanDocument(tx.QueryRow(ctx, insertSQL, insertArgs...))
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}

		updateSQL, updateArgs, err := squirrel.Update("ingestion_logs").
			Set("is_valid", true).
			Set("is_processed", true).
			Set("processed_at", squirrel.Expr("NOW()")).
			Set("message", "").
			Set("document_id", doc.ID).
			Where(squirrel.Eq{"id": entry.ID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, updateSQL, updateArgs...)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Document created from upload",
		zap.Int64("log_id", entry.ID),
		zap.Int64("document_id", doc.ID),
		zap.String("family", string(entry.Type)),
	)

	return doc, nil
}
