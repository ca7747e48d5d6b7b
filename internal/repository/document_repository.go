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

var (
	ErrNotFound        = errors.New("record not found")
	ErrAlreadyApproved = errors.New("document already approved")
)

var documentColumns = []string{
	"id", "family", "fields", "bucket", "object_key", "ingestion_log_id",
	"created_at", "updated_at", "approved_at", "approved_by",
}

var documentSortColumns = map[string]string{
	"id":          "id",
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"approved_at": "approved_at",
}

type DocumentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewDocumentRepository(db *pgxpool.Pool, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var rawFields []byte
	if err := row.Scan(
		&doc.ID, &doc.Type, &rawFields, &doc.Bucket, &doc.ObjectKey, &doc.IngestionLogID,
		&doc.CreatedAt, &doc.UpdatedAt, &doc.ApprovedAt, &doc.ApprovedBy,
	); err != nil {
		return nil, err
	}
	doc.Fields = models.Fields{}
	if len(rawFields) > 0 {
		if err := json.Unmarshal(rawFields, &doc.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode fields of document %d: %w", doc.ID, err)
		}
	}
	return &doc, nil
}

func fieldsExpr(fields models.Fields) (squirrel.Sqlizer, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	return squirrel.Expr("?::jsonb", string(raw)), nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, docType models.DocumentType, id int64) (*models.Document, error) {
	query := squirrel.Select(documentColumns...).
		From("documents").
		Where(squirrel.Eq{"id": id, "family": docType}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	doc, err := scanDocument(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns one page of a family's documents and the total matching count.
func (r *DocumentRepository) List(ctx context.Context, docType models.DocumentType, params dto.ListParams) ([]*models.Document, int64, error) {
	params = params.Normalize()

	where := squirrel.And{squirrel.Eq{"family": docType}}
	if params.Approved != nil {
		if *params.Approved {
			where = append(where, squirrel.NotEq{"approved_at": nil})
		} else {
			where = append(where, squirrel.Eq{"approved_at": nil})
		}
	}
	if params.From != nil {
		where = append(where, squirrel.GtOrEq{"created_at": *params.From})
	}
	if params.To != nil {
		where = append(where, squirrel.LtOrEq{"created_at": *params.To})
	}
	if params.Query != "" {
		where = append(where, squirrel.Expr(`fields::text ILIKE ? ESCAPE '\'`, containsPattern(params.Query)))
	}

	countSQL, countArgs, err := squirrel.Select("COUNT(*)").
		From("documents").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql, args, err := squirrel.Select(documentColumns...).
		From("documents").
		Where(where).
		OrderBy(documentOrderBy(docType, params), "id DESC").
		Limit(uint64(params.PerPage)).
		Offset(params.Offset()).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var documents []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		documents = append(documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return documents, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches q literally anywhere in the text.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

// documentOrderBy resolves a sort field against the column whitelist and the family's
// schema. Schema keys sort on the JSON value, numerically for currency and number kinds.
func documentOrderBy(docType models.DocumentType, params dto.ListParams) string {
	direction := "DESC"
	if params.SortOrder == dto.SortAsc {
		direction = "ASC"
	}

	if column, ok := documentSortColumns[params.SortField]; ok {
		return column + " " + direction + " NULLS LAST"
	}

	if spec, ok := models.LookupField(docType, params.SortField); ok {
		expr := fmt.Sprintf("fields->>'%s'", spec.Key)
		switch spec.Kind {
		case models.FieldCurrency, models.FieldNumber:
			expr = "(" + expr + ")::numeric"
		}
		return expr + " " + direction + " NULLS LAST"
	}

	return "created_at " + direction
}

// UpdateFields replaces the field set of an unapproved document.
func (r *DocumentRepository) UpdateFields(ctx context.Context, docType models.DocumentType, id int64, fields models.Fields) (*models.Document, error) {
	fieldsValue, err := fieldsExpr(fields)
	if err != nil {
		return nil, err
	}

	query := squirrel.Update("documents").
		Set("fields", fieldsValue).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "family": docType, "approved_at": nil}).
		Suffix("RETURNING " + strings.Join(documentColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar)

	return r.updateReturning(ctx, docType, id, query)
}

// Approve sets the approval stamp and the given fields in one statement. The guard on
// approved_at makes a concurrent second approval match no row.
func (r *DocumentRepository) Approve(ctx context.Context, docType models.DocumentType, id int64, fields models.Fields, actor string) (*models.Document, error) {
	fieldsValue, err := fieldsExpr(fields)
	if err != nil {
		return nil, err
	}

	query := squirrel.Update("documents").
		Set("fields", fieldsValue).
		Set("approved_at", squirrel.Expr("NOW()")).
		Set("approved_by", actor).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "family": docType, "approved_at": nil}).
		Suffix("RETURNING " + strings.Join(documentColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar)

	return r.updateReturning(ctx, docType, id, query)
}

func (r *DocumentRepository) updateReturning(ctx context.Context, docType models.DocumentType, id int64, query squirrel.UpdateBuilder) (*models.Document, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	doc, err := scanDocument(r.db.QueryRow(ctx, sql, args...))
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// No row matched: either the document is gone or it was approved meanwhile.
	if _, getErr := r.GetByID(ctx, docType, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrAlreadyApproved
}
