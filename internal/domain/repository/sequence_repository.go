package repository

import (
	"context"

	"github.com/jhoicas/taller-core/internal/domain/entity"
)

// SequenceRepository persiste el último número por (familia, clave).
type SequenceRepository interface {
	// Next incrementa el contador bajo bloqueo de fila y devuelve el nuevo número. La reserva es
	// durable aunque la transacción del llamador se revierta: el número queda quemado, nunca se
	// reutiliza. Si el bloqueo no se obtiene a tiempo devuelve domain.ErrLockTimeout.
	Next(ctx context.Context, family entity.SequenceFamily, key string) (int64, error)
	// Last lee el último número sin bloquear (0 si la serie no existe).
	Last(ctx context.Context, family entity.SequenceFamily, key string) (int64, error)
}
