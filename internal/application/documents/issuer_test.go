package documents_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taller-core/internal/application/documents"
	"github.com/jhoicas/taller-core/internal/application/sequence"
	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/infrastructure/memory"
	"github.com/jhoicas/taller-core/pkg/logger"
)

const actor = "cajero-1"

func newIssuer(t *testing.T) (*memory.DB, *documents.Issuer) {
	t.Helper()
	db := memory.New(memory.WithLockTimeout(time.Second))
	cfg := sequence.DefaultConfig()
	cfg.Now = func() time.Time { return time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC) }
	gen, err := sequence.NewGenerator(db, db.Reader(), cfg, logger.Nop(), nil)
	require.NoError(t, err)
	return db, documents.NewIssuer(db, db.Reader(), gen, logger.Nop())
}

func issueTicket(t *testing.T, iss *documents.Issuer, saleID string) *entity.Document {
	t.Helper()
	doc, err := iss.Issue(context.Background(), documents.IssueInput{
		Entity:  entity.SaleRef(saleID),
		Type:    entity.DocumentTicket,
		ActorID: actor,
	})
	require.NoError(t, err)
	return doc
}

func TestIssue_NumeraPorFamilia(t *testing.T) {
	_, iss := newIssuer(t)
	ctx := context.Background()

	t1 := issueTicket(t, iss, "S1")
	t2 := issueTicket(t, iss, "S2")
	assert.Equal(t, "V0001-000001", t1.Number)
	assert.Equal(t, "V0001-000002", t2.Number)
	assert.Equal(t, entity.DocumentEmitido, t1.Status)

	oc, err := iss.Issue(ctx, documents.IssueInput{Entity: entity.PurchaseOrderRef("PO1"), Type: entity.DocumentPurchaseOrder, ActorID: actor})
	require.NoError(t, err)
	assert.Equal(t, "OC-20260115-001", oc.Number)

	pay, err := iss.Issue(ctx, documents.IssueInput{Entity: entity.PaymentRef("PAY1"), Type: entity.DocumentPaymentReceipt, ActorID: actor})
	require.NoError(t, err)
	assert.Equal(t, "P0001-000001", pay.Number)
}

// Un ticket no puede tomar el prefijo de las reparaciones: repetiría un número ya emitido.
func TestIssue_PrefijoDeOtraFamilia(t *testing.T) {
	db, iss := newIssuer(t)
	ctx := context.Background()

	rep, err := iss.Issue(ctx, documents.IssueInput{Entity: entity.RepairRef("REP1"), Type: entity.DocumentRepairOrder, ActorID: actor})
	require.NoError(t, err)
	assert.Equal(t, "R0001-000001", rep.Number)

	_, err = iss.Issue(ctx, documents.IssueInput{Entity: entity.SaleRef("S1"), Type: entity.DocumentTicket, Prefix: "R0001", ActorID: actor})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	require.NotErrorIs(t, err, domain.ErrDuplicate)

	next, err := iss.Issue(ctx, documents.IssueInput{Entity: entity.RepairRef("REP2"), Type: entity.DocumentRepairOrder, ActorID: actor})
	require.NoError(t, err)
	assert.Equal(t, "R0001-000002", next.Number)

	list, err := db.Reader().Documents().ListByEntity(ctx, entity.SaleRef("S1"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestIssue_Validaciones(t *testing.T) {
	_, iss := newIssuer(t)
	ctx := context.Background()

	_, err := iss.Issue(ctx, documents.IssueInput{Entity: entity.RepairRef("R1"), Type: entity.DocumentTicket, ActorID: actor})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = iss.Issue(ctx, documents.IssueInput{Entity: entity.SaleRef("S1"), Type: "FACTURA", ActorID: actor})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = iss.Issue(ctx, documents.IssueInput{Entity: entity.SaleRef(""), Type: entity.DocumentTicket, ActorID: actor})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = iss.Issue(ctx, documents.IssueInput{Entity: entity.SaleRef("S1"), Type: entity.DocumentTicket})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnnul(t *testing.T) {
	_, iss := newIssuer(t)
	ctx := context.Background()
	doc := issueTicket(t, iss, "S1")

	_, err := iss.Annul(ctx, documents.AnnulInput{DocumentID: doc.ID, Reason: " ", ActorID: actor})
	require.ErrorIs(t, err, domain.ErrMissingReason)

	annulled, err := iss.Annul(ctx, documents.AnnulInput{DocumentID: doc.ID, Reason: "cliente desistió", ActorID: actor})
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentAnulado, annulled.Status)
	assert.Equal(t, "cliente desistió", annulled.StatusReason)

	_, err = iss.Annul(ctx, documents.AnnulInput{DocumentID: doc.ID, Reason: "otra vez", ActorID: "otro"})
	require.ErrorIs(t, err, domain.ErrAlreadyAnulado)

	got, err := iss.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "cliente desistió", got.StatusReason)
	assert.Equal(t, actor, got.UpdatedBy)

	_, err = iss.Annul(ctx, documents.AnnulInput{DocumentID: "no-existe", Reason: "x", ActorID: actor})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// Un comprobante anulado no admite reemplazo y no deja sucesor.
func TestReissue_AnuladoNoCreaSucesor(t *testing.T) {
	db, iss := newIssuer(t)
	ctx := context.Background()
	doc := issueTicket(t, iss, "S1")
	_, err := iss.Annul(ctx, documents.AnnulInput{DocumentID: doc.ID, Reason: "error de caja", ActorID: actor})
	require.NoError(t, err)

	_, err = iss.Reissue(ctx, documents.ReissueInput{DocumentID: doc.ID, ActorID: actor})
	require.ErrorIs(t, err, domain.ErrAlreadyAnulado)

	list, err := db.Reader().Documents().ListByEntity(ctx, entity.SaleRef("S1"))
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestReissue_CadenaYVigente(t *testing.T) {
	_, iss := newIssuer(t)
	ctx := context.Background()
	root := issueTicket(t, iss, "S1")

	child, err := iss.Reissue(ctx, documents.ReissueInput{DocumentID: root.ID, ActorID: actor})
	require.NoError(t, err)
	assert.Equal(t, root.ID, child.OriginalID)
	assert.Equal(t, "V0001-000002", child.Number)
	assert.Equal(t, entity.DocumentEmitido, child.Status)

	_, err = iss.Reissue(ctx, documents.ReissueInput{DocumentID: root.ID, ActorID: actor})
	require.ErrorIs(t, err, domain.ErrAlreadyReissued)
	_, err = iss.Annul(ctx, documents.AnnulInput{DocumentID: root.ID, Reason: "x", ActorID: actor})
	require.ErrorIs(t, err, domain.ErrAlreadyReissued)
	require.ErrorIs(t, err, domain.ErrAlreadyAnulado)
	got, err := iss.Get(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentReemplazado, got.Status)
	assert.Empty(t, got.StatusReason)

	grandchild, err := iss.Reissue(ctx, documents.ReissueInput{DocumentID: child.ID, ActorID: actor})
	require.NoError(t, err)

	chain, err := iss.Lineage(ctx, grandchild.ID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, root.ID, chain[0].ID)
	assert.Equal(t, entity.DocumentReemplazado, chain[0].Status)
	assert.Equal(t, child.ID, chain[1].ID)
	assert.Equal(t, grandchild.ID, chain[2].ID)

	cur, err := iss.Current(ctx, entity.SaleRef("S1"), entity.DocumentTicket)
	require.NoError(t, err)
	assert.Equal(t, grandchild.ID, cur.ID)

	_, err = iss.Current(ctx, entity.SaleRef("S1"), entity.DocumentPaymentReceipt)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLineage_CadenaLarga(t *testing.T) {
	_, iss := newIssuer(t)
	ctx := context.Background()
	root := issueTicket(t, iss, "S1")

	last := root
	for n := 0; n < 100; n++ {
		child, err := iss.Reissue(ctx, documents.ReissueInput{DocumentID: last.ID, ActorID: actor})
		require.NoError(t, err)
		last = child
	}

	chain, err := iss.Lineage(ctx, last.ID)
	require.NoError(t, err)
	require.Len(t, chain, 101)
	assert.Equal(t, root.ID, chain[0].ID)
	assert.Equal(t, last.ID, chain[100].ID)
	assert.Equal(t, "V0001-000101", last.Number)
}

func TestReissue_ConservaSubprefijo(t *testing.T) {
	_, iss := newIssuer(t)
	ctx := context.Background()
	doc, err := iss.Issue(ctx, documents.IssueInput{Entity: entity.SaleRef("S1"), Type: entity.DocumentTicket, Prefix: "V0002", ActorID: actor})
	require.NoError(t, err)
	assert.Equal(t, "V0002-000001", doc.Number)

	child, err := iss.Reissue(ctx, documents.ReissueInput{DocumentID: doc.ID, ActorID: actor})
	require.NoError(t, err)
	assert.Equal(t, "V0002-000002", child.Number)
}
