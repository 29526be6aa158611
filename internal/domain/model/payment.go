package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// 遷移表に無い遷移を適用しようとした
var ErrInvalidTransition = errors.New("invalid status transition")

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusApproved   PaymentStatus = "approved"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// approved/failed/cancelledからは二度と出られない
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusApproved || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

// 遷移表。同じ状態の再適用はfalse（呼び出し側でno-op扱い）。
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s == next {
		return false
	}

	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusProcessing ||
			next == PaymentStatusApproved ||
			next == PaymentStatusFailed ||
			next == PaymentStatusCancelled
	case PaymentStatusProcessing:
		return next == PaymentStatusApproved ||
			next == PaymentStatusFailed ||
			next == PaymentStatusCancelled
	default:
		// 終端状態
		return false
	}
}

type PaymentMethod string

const (
	PaymentMethodPix        PaymentMethod = "pix"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
	PaymentMethodBoleto     PaymentMethod = "boleto"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodPix, PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodBoleto:
		return true
	}
	return false
}

// Contractと1:1の支払いレコード。
// Amountは作成後に変更しない（契約タイプの作成時点の価格）。
type Payment struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ContractID int64           `gorm:"not null;uniqueIndex" json:"contract_id"`
	Status     PaymentStatus   `gorm:"type:varchar(20);not null;index;default:'pending'" json:"status"`
	Method     PaymentMethod   `gorm:"type:varchar(20)" json:"method"`
	Amount     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`

	// ゲートウェイ側の参照（作成/確定までnil）
	PreferenceID      *string `gorm:"type:varchar(100);index" json:"preference_id"`
	ExternalReference *string `gorm:"type:varchar(100)" json:"external_reference"`
	TransactionID     *string `gorm:"type:varchar(100)" json:"transaction_id"`

	PaymentDate *time.Time `json:"payment_date"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
}
