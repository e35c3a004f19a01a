package clue

import (
	"time"

	"github.com/google/uuid"
)

// Tier is the precision class of a clue. It decides the unlock cost.
type Tier string

const (
	TierPrecise Tier = "precise"
	TierMedium  Tier = "medium"
	TierVague   Tier = "vague"
)

const defaultCost = 20

var tierCosts = map[Tier]int{
	TierPrecise: 50,
	TierMedium:  30,
	TierVague:   10,
}

// Cost returns the credits needed to unlock a clue of this tier.
func (t Tier) Cost() int {
	if c, ok := tierCosts[t]; ok {
		return c
	}
	return defaultCost
}

// Clue is a catalog entry. The engine never modifies it.
type Clue struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Tier      Tier      `db:"tier" json:"tier"`
	Body      string    `db:"body" json:"body"`
	WeekID    int       `db:"week_id" json:"week_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ClueUnlock records that an owner paid for a clue. At most one per pair.
type ClueUnlock struct {
	ID         uuid.UUID `db:"id" json:"id"`
	OwnerID    uuid.UUID `db:"owner_id" json:"owner_id"`
	ClueID     uuid.UUID `db:"clue_id" json:"clue_id"`
	CostPaid   int       `db:"cost_paid" json:"cost_paid"`
	UnlockedAt time.Time `db:"unlocked_at" json:"unlocked_at"`
}

// UnlockedClue joins an unlock with its clue text.
type UnlockedClue struct {
	ClueUnlock
	Tier Tier   `db:"tier" json:"tier"`
	Body string `db:"body" json:"body"`
}

// State is a step of the unlock state machine.
type State string

const (
	StateRequested        State = "REQUESTED"
	StateBalanceChecked   State = "BALANCE_CHECKED"
	StateDeducted         State = "DEDUCTED"
	StateRecorded         State = "RECORDED"
	StateComplete         State = "COMPLETE"
	StateCompleteNoCharge State = "COMPLETE_NOCHARGE"
	StateInsufficientFunds State = "INSUFFICIENT_FUNDS"
	StateInsertFailed     State = "INSERT_FAILED"
	StateRefunded         State = "REFUNDED"
)

// UnlockResult is returned by a successful unlock, charged or not.
type UnlockResult struct {
	Clue            *Clue       `json:"clue"`
	Unlock          *ClueUnlock `json:"unlock"`
	Cost            int         `json:"cost"`
	State           State       `json:"state"`
	AlreadyUnlocked bool        `json:"already_unlocked"`
	Balance         int         `json:"balance"`
}
