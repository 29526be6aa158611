package repository

import (
	"context"
	"time"

	"app/internal/domain/model"

	"github.com/shopspring/decimal"
)

type PaymentRepository interface {
	FindByID(ctx context.Context, paymentID int64) (model.Payment, error)
	FindByContractID(ctx context.Context, contractID int64) (model.Payment, error)
	// 照合（reconcile）用。SELECT ... FOR UPDATE で行をロックして返す。
	FindByContractIDForUpdate(ctx context.Context, contractID int64) (model.Payment, error)
	// webhookが先に届いた場合に備えたget-or-create。amountはデフォルト値。
	GetOrCreateByContractID(ctx context.Context, contractID int64, defaultAmount decimal.Decimal) (model.Payment, error)
	Create(ctx context.Context, payment model.Payment) (int64, error)
	UpdateStatus(ctx context.Context, paymentID int64, status model.PaymentStatus) error
	// ゲートウェイのpreference作成後に参照を保存
	SetPreference(ctx context.Context, paymentID int64, preferenceID string, externalReference string) error
	// approved確定時のみ呼ぶ
	MarkApproved(ctx context.Context, paymentID int64, transactionID string, paidAt time.Time) error
}
