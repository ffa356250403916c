package documents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/taller-core/internal/application/sequence"
	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
	"github.com/jhoicas/taller-core/pkg/logger"
)

// Issuer emite, anula y reemplaza comprobantes. El número sale del generador de la familia
// del tipo de comprobante; el estado solo avanza desde EMITIDO.
type Issuer struct {
	txRunner repository.TxRunner
	reader   repository.Store
	seq      *sequence.Generator
	log      *logger.Logger
}

// NewIssuer construye el emisor.
func NewIssuer(txRunner repository.TxRunner, reader repository.Store, seq *sequence.Generator, log *logger.Logger) *Issuer {
	if log == nil {
		log = logger.Nop()
	}
	return &Issuer{txRunner: txRunner, reader: reader, seq: seq, log: log.Component("documents")}
}

// Now devuelve la hora del reloj de numeración.
func (i *Issuer) Now() time.Time {
	return i.seq.Now()
}

// IssueInput entrada para emitir un comprobante. Prefix vacío usa el de la familia.
type IssueInput struct {
	Entity  entity.EntityRef
	Type    entity.DocumentType
	Prefix  string
	ActorID string
}

// Issue emite un comprobante en su propia transacción.
func (i *Issuer) Issue(ctx context.Context, in IssueInput) (*entity.Document, error) {
	var doc *entity.Document
	err := i.txRunner.Run(ctx, func(ctx context.Context, s repository.Store) error {
		d, err := i.IssueInTx(ctx, s, in, i.seq.Now())
		doc = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// IssueInTx emite un comprobante dentro de la transacción del llamador.
func (i *Issuer) IssueInTx(ctx context.Context, s repository.Store, in IssueInput, now time.Time) (*entity.Document, error) {
	if err := in.Entity.Validate(); err != nil {
		return nil, err
	}
	family, ok := in.Type.Family()
	if !ok {
		return nil, fmt.Errorf("%w: tipo de comprobante %q", domain.ErrInvalidInput, in.Type)
	}
	if !in.Type.Accepts(in.Entity.Kind()) {
		return nil, fmt.Errorf("%w: %s no aplica a %s", domain.ErrInvalidInput, in.Type, in.Entity.Kind())
	}
	if in.ActorID == "" {
		return nil, fmt.Errorf("%w: falta el usuario que emite", domain.ErrInvalidInput)
	}

	number, err := i.seq.AllocateInTx(ctx, s, family, in.Prefix, now)
	if err != nil {
		return nil, err
	}
	doc := &entity.Document{
		ID:        uuid.New().String(),
		Entity:    in.Entity,
		Type:      in.Type,
		Prefix:    in.Prefix,
		Number:    number,
		Status:    entity.DocumentEmitido,
		IssuedAt:  now,
		IssuedBy:  in.ActorID,
		UpdatedAt: now,
		UpdatedBy: in.ActorID,
	}
	if err := s.Documents().Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("guardar comprobante %s: %w", number, err)
	}
	i.log.Info().Str("document_id", doc.ID).Str("number", number).Str("entity", in.Entity.String()).Msg("comprobante emitido")
	return doc, nil
}

// AnnulInput entrada para anular. Reason es obligatorio.
type AnnulInput struct {
	DocumentID string
	Reason     string
	ActorID    string
}

// Annul pasa un comprobante EMITIDO a ANULADO. Un comprobante ya anulado o reemplazado no cambia.
func (i *Issuer) Annul(ctx context.Context, in AnnulInput) (*entity.Document, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return nil, domain.ErrMissingReason
	}
	if in.ActorID == "" {
		return nil, fmt.Errorf("%w: falta el usuario que anula", domain.ErrInvalidInput)
	}
	var doc *entity.Document
	err := i.txRunner.Run(ctx, func(ctx context.Context, s repository.Store) error {
		d, err := lockDocument(ctx, s, in.DocumentID)
		if err != nil {
			return err
		}
		if err := d.Annul(in.Reason, in.ActorID, i.seq.Now()); err != nil {
			return err
		}
		if err := s.Documents().UpdateStatus(ctx, d); err != nil {
			return fmt.Errorf("anular comprobante: %w", err)
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	i.log.Info().Str("document_id", doc.ID).Str("number", doc.Number).Msg("comprobante anulado")
	return doc, nil
}

// ReissueInput entrada para reemplazar un comprobante.
type ReissueInput struct {
	DocumentID string
	ActorID    string
}

// Reissue crea un sucesor con número nuevo para la misma entidad y tipo, y marca el original
// como REEMPLAZADO. Un comprobante anulado o ya reemplazado no genera sucesor.
func (i *Issuer) Reissue(ctx context.Context, in ReissueInput) (*entity.Document, error) {
	if in.ActorID == "" {
		return nil, fmt.Errorf("%w: falta el usuario que reemplaza", domain.ErrInvalidInput)
	}
	var child *entity.Document
	err := i.txRunner.Run(ctx, func(ctx context.Context, s repository.Store) error {
		src, err := lockDocument(ctx, s, in.DocumentID)
		if err != nil {
			return err
		}
		family, ok := src.Type.Family()
		if !ok {
			return fmt.Errorf("%w: tipo de comprobante %q", domain.ErrInvalidInput, src.Type)
		}
		now := i.seq.Now()
		c, err := src.Replace(uuid.New().String(), in.ActorID, now)
		if err != nil {
			return err
		}
		number, err := i.seq.AllocateInTx(ctx, s, family, src.Prefix, now)
		if err != nil {
			return err
		}
		c.Number = number
		if err := s.Documents().UpdateStatus(ctx, src); err != nil {
			return fmt.Errorf("marcar reemplazado: %w", err)
		}
		if err := s.Documents().Create(ctx, c); err != nil {
			return fmt.Errorf("guardar sucesor %s: %w", number, err)
		}
		child = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	i.log.Info().Str("document_id", child.ID).Str("original_id", child.OriginalID).Str("number", child.Number).Msg("comprobante reemplazado")
	return child, nil
}

// Get devuelve un comprobante por ID.
func (i *Issuer) Get(ctx context.Context, id string) (*entity.Document, error) {
	d, err := i.reader.Documents().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: comprobante %s", domain.ErrNotFound, id)
	}
	return d, nil
}

// Lineage devuelve la cadena de reemplazos desde el comprobante raíz hasta id. Un ciclo en
// originalId se informa como cadena inválida; el largo no está acotado.
func (i *Issuer) Lineage(ctx context.Context, id string) ([]*entity.Document, error) {
	var chain []*entity.Document
	seen := make(map[string]struct{})
	for cur := id; cur != ""; {
		if _, ok := seen[cur]; ok {
			return nil, fmt.Errorf("%w: cadena de reemplazos inválida en %s", domain.ErrInvalidInput, cur)
		}
		seen[cur] = struct{}{}
		d, err := i.Get(ctx, cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, d)
		cur = d.OriginalID
	}
	for l, r := 0, len(chain)-1; l < r; l, r = l+1, r-1 {
		chain[l], chain[r] = chain[r], chain[l]
	}
	return chain, nil
}

// Current devuelve el comprobante vigente (EMITIDO) de ese tipo para la entidad.
func (i *Issuer) Current(ctx context.Context, ref entity.EntityRef, docType entity.DocumentType) (*entity.Document, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	list, err := i.reader.Documents().ListByEntity(ctx, ref)
	if err != nil {
		return nil, err
	}
	for j := len(list) - 1; j >= 0; j-- {
		if list[j].Type == docType && list[j].Status == entity.DocumentEmitido {
			return list[j], nil
		}
	}
	return nil, fmt.Errorf("%w: %s sin %s vigente", domain.ErrNotFound, ref, docType)
}

func lockDocument(ctx context.Context, s repository.Store, id string) (*entity.Document, error) {
	d, err := s.Documents().GetForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("bloquear comprobante: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("%w: comprobante %s", domain.ErrNotFound, id)
	}
	return d, nil
}
