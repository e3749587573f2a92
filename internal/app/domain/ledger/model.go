// Package ledger defines the append-only record of balance-affecting events.
package ledger

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type classifies how money conceptually moved.
type Type string

const (
	TypeDeposit     Type = "deposit"
	TypeWithdrawal  Type = "withdrawal"
	TypeInvestment  Type = "investment"
	TypeReturn      Type = "return"
	TypeBonus       Type = "bonus"
	TypeTransferOut Type = "transfer_out"
	TypeTransferIn  Type = "transfer_in"
)

// Status tracks administrative processing of an entry. Once an entry leaves
// pending it is immutable.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusProcessing Status = "processing"
)

// Method names the payment rail an entry moved over.
type Method string

const (
	MethodCrypto       Method = "crypto"
	MethodPaypal       Method = "paypal"
	MethodBankTransfer Method = "bank_transfer"
	MethodInternal     Method = "internal"
	MethodBTC          Method = "btc"
	MethodETH          Method = "eth"
	MethodUSDT         Method = "usdt"
	MethodTRX          Method = "trx"
	MethodSOL          Method = "sol"
)

// Entry is one immutable record of a balance-affecting event. Entries are
// append-only and never deleted. Fee is only meaningful for withdrawals;
// NetAmount is Amount minus Fee for withdrawals and equals Amount otherwise.
type Entry struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	Type          Type            `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	NetAmount     decimal.Decimal `json:"net_amount"`
	Status        Status          `json:"status"`
	Method        Method          `json:"method"`
	Reference     string          `json:"reference"`
	WalletAddress string          `json:"wallet_address,omitempty"`
	Description   string          `json:"description,omitempty"`
	AdminNotes    string          `json:"admin_notes,omitempty"`
	InvestmentID  string          `json:"investment_id,omitempty"`
	ProcessedBy   string          `json:"processed_by,omitempty"`
	ProcessedAt   time.Time       `json:"processed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Normalize fills derived fields: the unique reference string and the net
// amount. Stores call it before persisting a new entry.
func (e *Entry) Normalize(now time.Time) {
	if e.Reference == "" {
		e.Reference = NewReference(e.Type, now)
	}
	if e.Type == TypeWithdrawal && e.Fee.IsPositive() {
		e.NetAmount = e.Amount.Sub(e.Fee)
	} else {
		e.NetAmount = e.Amount
	}
}

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReference generates a reference string of the form TYPE-<unixms>-<rand>.
func NewReference(t Type, now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = referenceAlphabet[rand.Intn(len(referenceAlphabet))]
	}
	return fmt.Sprintf("%s-%d-%s", strings.ToUpper(string(t)), now.UnixMilli(), suffix)
}
