package sequence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
	seqdomain "github.com/jhoicas/taller-core/internal/domain/sequence"
	"github.com/jhoicas/taller-core/pkg/logger"
)

// Config esquemas de numeración por familia. Se construye una vez al iniciar y se inyecta.
type Config struct {
	Schemes  map[entity.SequenceFamily]seqdomain.Scheme
	Location *time.Location   // zona usada para la fecha de las series diarias
	Now      func() time.Time // reloj; nil = time.Now
}

// NewConfig arma los esquemas del punto de venta: V0001-000046, R0001-000012, P0001-000003,
// OC-20260115-003 y REC-20260115-001.
func NewConfig(salePoint string, saleWidth, dailyWidth int, loc *time.Location) Config {
	if loc == nil {
		loc = time.UTC
	}
	return Config{
		Schemes: map[entity.SequenceFamily]seqdomain.Scheme{
			entity.FamilySale:           {Prefix: "V" + salePoint, Width: saleWidth},
			entity.FamilyRepair:         {Prefix: "R" + salePoint, Width: saleWidth},
			entity.FamilyPaymentReceipt: {Prefix: "P" + salePoint, Width: saleWidth},
			entity.FamilyPurchaseOrder:  {Prefix: "OC", Width: dailyWidth, DateScoped: true},
			entity.FamilyReceipt:        {Prefix: "REC", Width: dailyWidth, DateScoped: true},
		},
		Location: loc,
	}
}

// DefaultConfig punto de venta 0001 con anchos 6 y 3, en UTC.
func DefaultConfig() Config {
	return NewConfig("0001", 6, 3, time.UTC)
}

// Generator asigna números correlativos sin duplicados por (familia, clave). El contador se
// incrementa bajo bloqueo de fila y la reserva sobrevive aunque la transacción del llamador se
// revierta: ese número queda quemado (huecos permitidos, duplicados no).
type Generator struct {
	txRunner repository.TxRunner
	reader   repository.Store
	cfg      Config
	metrics  Metrics
	log      *logger.Logger
}

// NewGenerator construye el generador. Valida los esquemas configurados.
func NewGenerator(txRunner repository.TxRunner, reader repository.Store, cfg Config, log *logger.Logger, metrics Metrics) (*Generator, error) {
	owners := make(map[string]entity.SequenceFamily, len(cfg.Schemes))
	for family, s := range cfg.Schemes {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("esquema %s: %w", family, err)
		}
		if other, dup := owners[s.Prefix]; dup {
			return nil, fmt.Errorf("%w: prefijo %q repetido en %s y %s", domain.ErrInvalidInput, s.Prefix, other, family)
		}
		owners[s.Prefix] = family
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{
		txRunner: txRunner,
		reader:   reader,
		cfg:      cfg,
		metrics:  metrics,
		log:      log.Component("sequence"),
	}, nil
}

// Now devuelve la hora del reloj configurado.
func (g *Generator) Now() time.Time {
	return g.cfg.Now()
}

// Allocate asigna el siguiente número en su propia transacción.
// prefix vacío usa el prefijo configurado para la familia.
func (g *Generator) Allocate(ctx context.Context, family entity.SequenceFamily, prefix string) (string, error) {
	var number string
	err := g.txRunner.Run(ctx, func(ctx context.Context, s repository.Store) error {
		n, err := g.AllocateInTx(ctx, s, family, prefix, g.cfg.Now())
		number = n
		return err
	})
	if err != nil {
		return "", err
	}
	return number, nil
}

// AllocateInTx asigna el siguiente número para una operación que corre en la transacción de s.
func (g *Generator) AllocateInTx(ctx context.Context, s repository.Store, family entity.SequenceFamily, prefix string, now time.Time) (string, error) {
	scheme, err := g.scheme(family, prefix)
	if err != nil {
		return "", err
	}
	key := scheme.Key(now.In(g.cfg.Location))

	n, err := s.Sequences().Next(ctx, family, key)
	if err != nil {
		return "", g.wrap(err, family, key)
	}

	number := scheme.Format(key, n)
	g.metrics.SequenceAllocated(string(family))
	g.log.Debug().Str("family", string(family)).Str("number", number).Msg("número asignado")
	return number, nil
}

// Peek devuelve el último número asignado hoy para la familia, sin bloquear. Solo para mostrar:
// puede quedar desactualizado antes de que el llamador lo use. "" si la serie no empezó.
func (g *Generator) Peek(ctx context.Context, family entity.SequenceFamily, prefix string) (string, error) {
	scheme, err := g.scheme(family, prefix)
	if err != nil {
		return "", err
	}
	key := scheme.Key(g.cfg.Now().In(g.cfg.Location))
	last, err := g.reader.Sequences().Last(ctx, family, key)
	if err != nil {
		return "", fmt.Errorf("leer serie %s: %w", key, err)
	}
	if last == 0 {
		return "", nil
	}
	return scheme.Format(key, last), nil
}

func (g *Generator) scheme(family entity.SequenceFamily, prefix string) (seqdomain.Scheme, error) {
	scheme, ok := g.cfg.Schemes[family]
	if !ok {
		return seqdomain.Scheme{}, fmt.Errorf("%w: familia de numeración %q", domain.ErrInvalidInput, family)
	}
	if prefix != "" {
		// documents.number es único entre familias: un prefijo ajeno repetiría números ya emitidos.
		if owner, ok := g.prefixOwner(prefix); ok && owner != family {
			return seqdomain.Scheme{}, fmt.Errorf("%w: el prefijo %q pertenece a la serie %s", domain.ErrInvalidInput, prefix, owner)
		}
		scheme.Prefix = prefix
		if err := scheme.Validate(); err != nil {
			return seqdomain.Scheme{}, err
		}
	}
	return scheme, nil
}

// prefixOwner busca la familia cuyo esquema configurado produce números con ese prefijo.
func (g *Generator) prefixOwner(prefix string) (entity.SequenceFamily, bool) {
	for family, s := range g.cfg.Schemes {
		if prefix == s.Prefix || (s.DateScoped && strings.HasPrefix(prefix, s.Prefix+"-")) {
			return family, true
		}
	}
	return "", false
}

// wrap convierte el timeout de bloqueo en ErrSequenceLockTimeout (transitorio).
func (g *Generator) wrap(err error, family entity.SequenceFamily, key string) error {
	if errors.Is(err, domain.ErrLockTimeout) {
		g.metrics.LockTimeout("sequence")
		g.log.Warn().Str("family", string(family)).Str("key", key).Msg("timeout esperando la serie")
		return fmt.Errorf("%w (%s): %w", domain.ErrSequenceLockTimeout, key, err)
	}
	return fmt.Errorf("serie %s: %w", key, err)
}
