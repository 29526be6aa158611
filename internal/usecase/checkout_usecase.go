package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"app/internal/domain/model"
	"app/internal/infra/cache"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

// テスト時に固定できるよう時計とID生成を注入する
type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

// usecaseがValidatorInterfaceに依存する約束
type CheckoutValidator interface {
	ValidateCheckout(ctx context.Context, fullName string, email string, method string) error
}

type CheckoutUsecase struct {
	txManager    repo.TransactionManager
	summaryStore cache.CheckoutSummaryStore
	validator    CheckoutValidator
	idGen        IDGenerator
	clock        Clock
}

// DI
func NewCheckoutUsecase(txManager repo.TransactionManager, summaryStore cache.CheckoutSummaryStore, validator CheckoutValidator, idGen IDGenerator, clock Clock) *CheckoutUsecase {
	return &CheckoutUsecase{
		txManager:    txManager,
		summaryStore: summaryStore,
		validator:    validator,
		idGen:        idGen,
		clock:        clock,
	}
}

type CheckoutInput struct {
	FullName      string
	Email         string
	PaymentMethod model.PaymentMethod
}

type CheckoutContractSummary struct {
	ContractID   int64  `json:"contract_id"`
	PaymentID    int64  `json:"payment_id"`
	TypeName     string `json:"type_name"`
	Amount       string `json:"amount"`
	NeedsPayment bool   `json:"needs_payment"`
}

type CheckoutResponse struct {
	SummaryKey    string                    `json:"summary_key,omitempty"`
	BuyerName     string                    `json:"buyer_name"`
	BuyerEmail    string                    `json:"buyer_email"`
	PaymentMethod string                    `json:"payment_method"`
	Contracts     []CheckoutContractSummary `json:"contracts"`
	Total         string                    `json:"total"`
}

// POST /checkout
// カートの明細1単位ごとにContract+Paymentを同一Txで作り、カートを閉じる。
// どれか1件でも失敗したら全部ロールバック。
// カート行をFOR UPDATEで読むので、同時二重送信の負け側は
// 勝者のcommit後にACTIVEカートが見えず409で止まる（二重課金防止）。
func (u *CheckoutUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (CheckoutResponse, error) {
	if err := u.validator.ValidateCheckout(ctx, in.FullName, in.Email, string(in.PaymentMethod)); err != nil {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "invalid checkout input")
	}

	resp := CheckoutResponse{
		BuyerName:     in.FullName,
		BuyerEmail:    in.Email,
		PaymentMethod: string(in.PaymentMethod),
	}

	err := u.txManager.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindActiveByUserIDForUpdate(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusConflict, "cart is empty")
		}
		if err != nil {
			return err
		}

		items, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return NewHTTPError(http.StatusConflict, "cart is empty")
		}

		total := decimal.Zero
		now := u.clock.Now()

		for _, item := range items {
			ct, err := r.ContractTypes().FindByID(ctx, item.ContractTypeID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusConflict, "contract type no longer available")
			}
			if err != nil {
				return err
			}
			if !ct.IsActive {
				return NewHTTPError(http.StatusConflict, "contract type no longer available")
			}

			// Contract/Paymentの金額はチェックアウト時点のカタログ価格
			for q := int64(0); q < item.Quantity; q++ {
				contractID, err := r.Contracts().Create(ctx, model.Contract{
					UserID:         &userID,
					ContractTypeID: ct.ID,
					Status:         model.ContractStatusPending,
					Party1Name:     in.FullName,
					Party2Name:     "A definir",
					Subject:        ct.Name,
					Value:          ct.Price,
					StartDate:      now,
				})
				if err != nil {
					return err
				}

				paymentID, err := r.Payments().Create(ctx, model.Payment{
					ContractID: contractID,
					Status:     model.PaymentStatusPending,
					Method:     in.PaymentMethod,
					Amount:     ct.Price,
				})
				if err != nil {
					return err
				}

				total = total.Add(ct.Price)
				resp.Contracts = append(resp.Contracts, CheckoutContractSummary{
					ContractID:   contractID,
					PaymentID:    paymentID,
					TypeName:     ct.Name,
					Amount:       ct.Price.StringFixed(2),
					NeedsPayment: true,
				})
			}
		}

		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return err
		}
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			// compare-and-setの負け（別送信が先に閉じた）はロールバックして409
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusConflict, "cart already checked out")
			}
			return err
		}

		resp.Total = total.StringFixed(2)
		return nil
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return CheckoutResponse{}, err
		}
		log.Printf("checkout failed for user %d: %v", userID, err)
		return CheckoutResponse{}, NewHTTPError(http.StatusInternalServerError, "checkout failed")
	}

	// サマリーはread-onceでRedisに置く。置けなくてもチェックアウト自体は成立。
	if u.summaryStore != nil {
		key := u.idGen.NewID()
		stored := resp
		stored.SummaryKey = key
		if data, err := json.Marshal(stored); err == nil {
			if err := u.summaryStore.Put(ctx, key, data); err != nil {
				log.Printf("checkout summary store failed: %v", err)
			} else {
				resp.SummaryKey = key
			}
		}
	}

	return resp, nil
}

// GET /checkout/summary/:key
// 1回読んだら消える。2回目は404。
func (u *CheckoutUsecase) TakeSummary(ctx context.Context, key string) (CheckoutResponse, error) {
	if u.summaryStore == nil || key == "" {
		return CheckoutResponse{}, NewHTTPError(http.StatusNotFound, "summary not found")
	}

	data, err := u.summaryStore.Take(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return CheckoutResponse{}, NewHTTPError(http.StatusNotFound, "summary not found")
	}
	if err != nil {
		return CheckoutResponse{}, NewHTTPError(http.StatusInternalServerError, "summary read failed")
	}

	var resp CheckoutResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return CheckoutResponse{}, NewHTTPError(http.StatusInternalServerError, "summary read failed")
	}
	return resp, nil
}
