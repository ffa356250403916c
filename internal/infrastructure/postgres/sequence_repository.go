package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo contadores de numeración. Next corre fuera de la transacción del llamador, en
// su propia sentencia sobre el pool de secuencias: el bloqueo de la fila dura solo el UPSERT y
// el número reservado queda confirmado aunque la transacción de negocio se revierta.
type SequenceRepo struct {
	q    Querier
	pool *pgxpool.Pool
}

// NewSequenceRepository construye el adaptador. q se usa para lecturas y pool para reservar.
func NewSequenceRepository(q Querier, pool *pgxpool.Pool) *SequenceRepo {
	return &SequenceRepo{q: q, pool: pool}
}

// Next reserva el siguiente número de (familia, clave). La fila se crea en el primer uso.
func (r *SequenceRepo) Next(ctx context.Context, family entity.SequenceFamily, key string) (int64, error) {
	query := `
		INSERT INTO document_sequences (family, key, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (family, key)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number`
	var q Querier = r.q
	if r.pool != nil {
		q = r.pool
	}
	var n int64
	if err := q.QueryRow(ctx, query, string(family), key).Scan(&n); err != nil {
		return 0, mapError("next sequence", err)
	}
	return n, nil
}

// Last lee el último número sin bloquear (0 si la serie no existe).
func (r *SequenceRepo) Last(ctx context.Context, family entity.SequenceFamily, key string) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx,
		`SELECT last_number FROM document_sequences WHERE family = $1 AND key = $2`,
		string(family), key,
	).Scan(&n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, mapError("last sequence", err)
	}
	return n, nil
}
