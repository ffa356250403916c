package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

const documentColumns = `id, entity_type, entity_id, document_type, prefix, number, status, status_reason,
		original_id, issued_at, issued_by, updated_at, updated_by`

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

// Create persiste el comprobante. Número repetido = domain.ErrDuplicate.
func (r *DocumentRepo) Create(ctx context.Context, d *entity.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		d.ID, string(d.Entity.Kind()), d.Entity.ID(), string(d.Type), d.Prefix, d.Number,
		string(d.Status), d.StatusReason, nullIfEmpty(d.OriginalID),
		d.IssuedAt, d.IssuedBy, d.UpdatedAt, d.UpdatedBy,
	)
	return mapError("insert document", err)
}

// GetByID obtiene un comprobante sin bloquear.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	return r.getOne(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
}

// GetForUpdate obtiene el comprobante y bloquea su fila.
func (r *DocumentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Document, error) {
	return r.getOne(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, id)
}

func (r *DocumentRepo) getOne(ctx context.Context, query, id string) (*entity.Document, error) {
	d, err := scanDocument(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// UpdateStatus persiste el estado y el motivo.
func (r *DocumentRepo) UpdateStatus(ctx context.Context, d *entity.Document) error {
	query := `
		UPDATE documents SET status = $2, status_reason = $3, updated_at = $4, updated_by = $5
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, d.ID, string(d.Status), d.StatusReason, d.UpdatedAt, d.UpdatedBy)
	if err != nil {
		return mapError("update document status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update document status: comprobante %s no existe", d.ID)
	}
	return nil
}

// ListByEntity lista los comprobantes de una entidad en orden de emisión.
func (r *DocumentRepo) ListByEntity(ctx context.Context, ref entity.EntityRef) ([]*entity.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents WHERE entity_type = $1 AND entity_id = $2
		ORDER BY seq`
	rows, err := r.q.Query(ctx, query, string(ref.Kind()), ref.ID())
	if err != nil {
		return nil, mapError("list documents", err)
	}
	defer rows.Close()

	var list []*entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var (
		d                    entity.Document
		entityType, entityID string
		docType, status      string
		originalID           *string
	)
	err := row.Scan(&d.ID, &entityType, &entityID, &docType, &d.Prefix, &d.Number, &status, &d.StatusReason,
		&originalID, &d.IssuedAt, &d.IssuedBy, &d.UpdatedAt, &d.UpdatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, mapError("scan document", err)
	}
	ref, err := entity.RefFromStorage(entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("comprobante %s: %w", d.ID, err)
	}
	d.Entity = ref
	d.Type = entity.DocumentType(docType)
	d.Status = entity.DocumentStatus(status)
	if originalID != nil {
		d.OriginalID = *originalID
	}
	return &d, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
