package repository

import (
	"context"

	repo "app/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	contracts     repo.ContractRepository
	payments      repo.PaymentRepository
	carts         repo.CartRepository
	cartItems     repo.CartItemRepository
	contractTypes repo.ContractTypeRepository
}

func (r *txReposGorm) Contracts() repo.ContractRepository         { return r.contracts }
func (r *txReposGorm) Payments() repo.PaymentRepository           { return r.payments }
func (r *txReposGorm) Carts() repo.CartRepository                 { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository         { return r.cartItems }
func (r *txReposGorm) ContractTypes() repo.ContractTypeRepository { return r.contractTypes }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			contracts:     NewContractGormRepository(tx),
			payments:      NewPaymentGormRepository(tx),
			carts:         NewCartGormRepository(tx),
			cartItems:     NewCartGormRepository(tx),
			contractTypes: NewContractTypeGormRepository(tx),
		}
		return fn(r)
	})
}
