package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ContractStatus string

const (
	ContractStatusPending   ContractStatus = "pending"
	ContractStatusPaid      ContractStatus = "paid"
	ContractStatusCancelled ContractStatus = "cancelled"
)

// pendingからのみ遷移できる（paid/cancelledは終端）
func (s ContractStatus) CanTransitionTo(next ContractStatus) bool {
	if s == next {
		return false
	}
	return s == ContractStatusPending
}

// ユーザーが購入した契約書1通。Paymentと1:1。
type Contract struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         *int64         `gorm:"index" json:"user_id"` // ゲスト購入はnil
	ContractTypeID int64          `gorm:"not null;index" json:"contract_type_id"`
	Status         ContractStatus `gorm:"type:varchar(20);not null;index;default:'pending'" json:"status"`

	// 当事者（チェックアウト時はプレースホルダ、後でユーザーが埋める）
	Party1Name     string `gorm:"type:varchar(200);not null" json:"party1_name"`
	Party1Document string `gorm:"type:varchar(18)" json:"party1_document"`
	Party1Address  string `gorm:"type:text" json:"party1_address"`
	Party2Name     string `gorm:"type:varchar(200);not null" json:"party2_name"`
	Party2Document string `gorm:"type:varchar(18)" json:"party2_document"`
	Party2Address  string `gorm:"type:text" json:"party2_address"`

	// 契約内容
	Subject      string          `gorm:"type:text;not null" json:"subject"`
	Value        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"value"`
	PaymentTerms string          `gorm:"type:varchar(200)" json:"payment_terms"`
	StartDate    time.Time       `gorm:"type:date;not null" json:"start_date"`
	Term         string          `gorm:"type:varchar(100)" json:"term"`
	SpecificData string          `gorm:"type:jsonb;default:'{}'" json:"specific_data"`

	// 支払い完了後に生成されるドキュメントへの参照（それまではnil）
	PDFFile *string `gorm:"type:varchar(255)" json:"pdf_file"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`

	// Contractを消すとPaymentも消える
	Payment *Payment `gorm:"constraint:OnDelete:CASCADE" json:"payment,omitempty"`
}
