package credit

import "time"

// TxType defines supported credit transaction types.
type TxType string

const (
	TxTypeDeduction  TxType = "deduction"
	TxTypeRefund     TxType = "refund"
	TxTypeAdminGrant TxType = "admin_grant"
)

// TxMeta represents optional metadata attached to a credit transaction.
type TxMeta struct {
	RelatedEntityType *string
	RelatedEntityID   *string
	Description       string
}

// Pagination controls simple list pagination.
type Pagination struct {
	Limit  int
	Offset int
}

// CreditTransaction is a ledger row.
type CreditTransaction struct {
	ID                string    `db:"id" json:"id"`
	OwnerID           string    `db:"owner_id" json:"owner_id"`
	AmountDelta       int       `db:"amount_delta" json:"amount_delta"`
	TxType            string    `db:"tx_type" json:"tx_type"`
	RelatedEntityType *string   `db:"related_entity_type" json:"related_entity_type,omitempty"`
	RelatedEntityID   *string   `db:"related_entity_id" json:"related_entity_id,omitempty"`
	Description       string    `db:"description" json:"description"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
