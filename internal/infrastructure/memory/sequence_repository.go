package memory

import (
	"context"

	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

var _ repository.SequenceRepository = sequenceRepo{}

type sequenceRepo struct{ t *tx }

func sequenceLock(k seqKey) string {
	return "seq:" + string(k.family) + "|" + k.key
}

// Next reserva fuera de la transacción: no registra deshacer, igual que el upsert autónomo de SQL.
// Si la transacción actual ya tiene la fila bloqueada, la reutiliza.
func (r sequenceRepo) Next(ctx context.Context, family entity.SequenceFamily, key string) (int64, error) {
	k := seqKey{family: family, key: key}
	lockKey := sequenceLock(k)
	if _, held := r.t.held[lockKey]; !held {
		ch, err := r.t.db.acquire(ctx, lockKey)
		if err != nil {
			return 0, err
		}
		defer func() { <-ch }()
	}
	var n int64
	r.t.read(func() {
		r.t.db.sequences[k]++
		n = r.t.db.sequences[k]
	})
	return n, nil
}

func (r sequenceRepo) Last(ctx context.Context, family entity.SequenceFamily, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	r.t.read(func() { n = r.t.db.sequences[seqKey{family: family, key: key}] })
	return n, nil
}

// HoldSequence bloquea la serie dentro de la transacción de s hasta que termine.
// Sirve para provocar esperas en pruebas de contención.
func HoldSequence(ctx context.Context, s repository.Store, family entity.SequenceFamily, key string) error {
	t, ok := s.(*tx)
	if !ok {
		return nil
	}
	return t.lock(ctx, sequenceLock(seqKey{family: family, key: key}))
}
