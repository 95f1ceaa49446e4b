package schema

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// receipt kinds
	ReceiptDeposit = "deposit"  // on-chain deposit credited to an account
	ReceiptPayment = "payment"  // attached payment pulled into the treasury
	ReceiptPayout  = "payout"   // refund or withdrawal out of the treasury

	// grace period after expiry before a name can be registered again
	GracePeriod = 90 * 24 * time.Hour

	// shortest registration the controller accepts
	MinRegistrationDuration = 28 * 24 * time.Hour

	// treasury account key in the accounts table
	TreasuryAccount = "treasury"
)

// Registration is the ownership-ledger record for one second-level name.
// LabelHash is the hex keccak256 of the label.
type Registration struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	LabelHash string `gorm:"uniqueIndex" json:"labelHash"`
	Label     string `json:"label"`
	Owner     string `gorm:"index:idx_owner" json:"owner"`
	Expiry    int64  `json:"expiry"` // unix seconds

	Privileges      uint32 `json:"privileges"`
	PrivilegeExpiry int64  `json:"privilegeExpiry"`
}

// Approval lets an operator act for an owner, ownership-ledger side.
type Approval struct {
	ID       uint   `gorm:"primarykey"`
	Owner    string `gorm:"index:idx_appr,unique"`
	Operator string `gorm:"index:idx_appr,unique"`
}

// ResolverRecord stores the batched key/value records for one node.
type ResolverRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UpdatedAt time.Time `json:"updatedAt"`

	Node    string         `gorm:"uniqueIndex" json:"node"` // hex namehash
	Records datatypes.JSON `json:"records"`                 // json.Marshal([]Record)
}

// ReverseRecord maps an address back to its primary qualified name.
type ReverseRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UpdatedAt time.Time `json:"updatedAt"`

	Address string `gorm:"uniqueIndex" json:"address"`
	Name    string `json:"name"`
}

// Account is an internal wei balance, funded by on-chain deposits.
// Balance is a base-10 integer string, wei.
type Account struct {
	Address   string    `gorm:"primarykey" json:"address"`
	Balance   string    `json:"balance"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Receipt is the audit row written for every balance movement.
type Receipt struct {
	ID        string    `gorm:"primarykey" json:"id"` // uuid
	CreatedAt time.Time `json:"createdAt"`

	Kind    string `gorm:"index:idx_kind" json:"kind"`
	From    string `json:"from"`
	To      string `json:"to"`
	Amount  string `json:"amount"` // wei
	TxHash  string `gorm:"index:idx_tx" json:"txHash,omitempty"`
	Label   string `json:"label,omitempty"`
	ErrMsg  string `json:"-"`
	Settled bool   `json:"settled"`
}

// TokenPrice keeps the ETH/USD conversion rate used by the usd oracle.
type TokenPrice struct {
	Symbol    string  `gorm:"primarykey"` // "ETH"
	Decimals  int
	Price     float64 // USD per token
	ManualSet bool
	UpdatedAt time.Time
}

// DailyStatistic aggregates registrations per calendar day.
type DailyStatistic struct {
	ID            uint      `gorm:"primarykey" json:"-"`
	Date          time.Time `gorm:"uniqueIndex" json:"date"`
	Registrations int64     `json:"registrations"`
	RevenueWei    string    `json:"revenueWei"`
}

// DepositCursor remembers the last chain block scanned for deposits.
type DepositCursor struct {
	ID     uint  `gorm:"primarykey"`
	Height int64 `json:"height"`
}
