package entity

// SequenceFamily familia lógica de numeración correlativa.
type SequenceFamily string

const (
	FamilySale           SequenceFamily = "sale"
	FamilyRepair         SequenceFamily = "repair"
	FamilyPurchaseOrder  SequenceFamily = "purchase-order"
	FamilyReceipt        SequenceFamily = "receipt"
	FamilyPaymentReceipt SequenceFamily = "payment-receipt"
)

// SequenceCounter último número asignado para (familia, clave). La clave es el prefijo,
// o prefijo+fecha en las familias que reinician por día.
type SequenceCounter struct {
	Family     SequenceFamily
	Key        string
	LastNumber int64
}
