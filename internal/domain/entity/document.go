package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/taller-core/internal/domain"
)

// DocumentType tipo de comprobante numerado.
type DocumentType string

const (
	DocumentTicket         DocumentType = "TICKET_VENTA"
	DocumentRepairOrder    DocumentType = "ORDEN_REPARACION"
	DocumentPurchaseOrder  DocumentType = "ORDEN_COMPRA"
	DocumentReceipt        DocumentType = "RECEPCION"
	DocumentPaymentReceipt DocumentType = "RECIBO_PAGO"
)

// Family devuelve la familia de numeración del tipo de comprobante.
func (t DocumentType) Family() (SequenceFamily, bool) {
	switch t {
	case DocumentTicket:
		return FamilySale, true
	case DocumentRepairOrder:
		return FamilyRepair, true
	case DocumentPurchaseOrder:
		return FamilyPurchaseOrder, true
	case DocumentReceipt:
		return FamilyReceipt, true
	case DocumentPaymentReceipt:
		return FamilyPaymentReceipt, true
	}
	return "", false
}

// Accepts indica si el comprobante puede emitirse para ese tipo de entidad.
func (t DocumentType) Accepts(kind EntityKind) bool {
	switch t {
	case DocumentTicket:
		return kind == EntitySale
	case DocumentRepairOrder:
		return kind == EntityRepair
	case DocumentPurchaseOrder:
		return kind == EntityPurchaseOrder
	case DocumentReceipt:
		return kind == EntityReceipt
	case DocumentPaymentReceipt:
		return kind == EntityPayment
	}
	return false
}

// DocumentStatus estado del comprobante. EMITIDO es el único estado no terminal.
type DocumentStatus string

const (
	DocumentEmitido     DocumentStatus = "EMITIDO"
	DocumentAnulado     DocumentStatus = "ANULADO"
	DocumentReemplazado DocumentStatus = "REEMPLAZADO"
)

// Document comprobante emitido para una venta, reparación, orden de compra, recepción o pago.
// OriginalID apunta al comprobante que este reemplaza (solo al inmediato anterior).
type Document struct {
	ID           string
	Entity       EntityRef
	Type         DocumentType
	Prefix       string // subprefijo usado al numerar; vacío = el de la familia
	Number       string
	Status       DocumentStatus
	StatusReason string
	OriginalID   string
	IssuedAt     time.Time
	IssuedBy     string
	UpdatedAt    time.Time
	UpdatedBy    string
}

// transitionError traduce un estado terminal al error de transición correspondiente.
func (d *Document) transitionError() error {
	switch d.Status {
	case DocumentEmitido:
		return nil
	case DocumentAnulado:
		return domain.ErrAlreadyAnulado
	case DocumentReemplazado:
		return domain.ErrAlreadyReissued
	}
	return fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, d.Status)
}

// Annul pasa el comprobante a ANULADO registrando el motivo. No modifica nada si falla.
func (d *Document) Annul(reason, actorID string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.ErrMissingReason
	}
	if d.Status == DocumentReemplazado {
		return domain.ErrReplacedNotAnnullable
	}
	if err := d.transitionError(); err != nil {
		return err
	}
	d.Status = DocumentAnulado
	d.StatusReason = reason
	d.UpdatedAt = now
	d.UpdatedBy = actorID
	return nil
}

// CanReissue verifica que el comprobante siga vigente.
func (d *Document) CanReissue() error {
	return d.transitionError()
}

// Replace marca el comprobante como REEMPLAZADO y devuelve el sucesor (sin número todavía).
func (d *Document) Replace(childID, actorID string, now time.Time) (*Document, error) {
	if err := d.CanReissue(); err != nil {
		return nil, err
	}
	d.Status = DocumentReemplazado
	d.UpdatedAt = now
	d.UpdatedBy = actorID
	return &Document{
		ID:         childID,
		Entity:     d.Entity,
		Type:       d.Type,
		Prefix:     d.Prefix,
		Status:     DocumentEmitido,
		OriginalID: d.ID,
		IssuedAt:   now,
		IssuedBy:   actorID,
		UpdatedAt:  now,
		UpdatedBy:  actorID,
	}, nil
}
