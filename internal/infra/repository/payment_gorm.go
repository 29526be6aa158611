package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

func (r *PaymentGormRepository) FindByID(ctx context.Context, paymentID int64) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).Where("id = ?", paymentID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func (r *PaymentGormRepository) FindByContractID(ctx context.Context, contractID int64) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).Where("contract_id = ?", contractID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

// 照合（reconcile）用。行ロック付きで取得し、
// webhookとブラウザリダイレクトが同じPaymentを同時に触れないようにする。
func (r *PaymentGormRepository) FindByContractIDForUpdate(ctx context.Context, contractID int64) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("contract_id = ?", contractID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

// webhookが先に届いてPayment行が無い場合に備えたget-or-create
func (r *PaymentGormRepository) GetOrCreateByContractID(ctx context.Context, contractID int64, defaultAmount decimal.Decimal) (model.Payment, error) {
	var p model.Payment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("contract_id = ?", contractID).
			First(&p).Error

		if findErr == nil {
			return nil
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		newPayment := model.Payment{
			ContractID: contractID,
			Status:     model.PaymentStatusPending,
			Amount:     defaultAmount,
			CreatedAt:  time.Now(),
		}

		if err := tx.Create(&newPayment).Error; err != nil {
			// 同時作成で負けた場合は拾い直す
			retryErr := tx.Where("contract_id = ?", contractID).First(&p).Error
			if retryErr == nil {
				return nil
			}
			return err
		}

		p = newPayment
		return nil
	})

	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func (r *PaymentGormRepository) Create(ctx context.Context, payment model.Payment) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&payment).Error; err != nil {
		return 0, err
	}
	return payment.ID, nil
}

func (r *PaymentGormRepository) UpdateStatus(ctx context.Context, paymentID int64, status model.PaymentStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ?", paymentID).
		Update("status", status)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PaymentGormRepository) SetPreference(ctx context.Context, paymentID int64, preferenceID string, externalReference string) error {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]interface{}{
			"preference_id":      preferenceID,
			"external_reference": externalReference,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// approved確定時のみ。statusと同時にtransaction_id/payment_dateを刻む。
func (r *PaymentGormRepository) MarkApproved(ctx context.Context, paymentID int64, transactionID string, paidAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]interface{}{
			"status":         model.PaymentStatusApproved,
			"transaction_id": transactionID,
			"payment_date":   paidAt,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
