package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"app/internal/domain/model"
	"app/internal/gateway/mercadopago"
	repo "app/internal/repository"
)

// ゲートウェイの抽象。実体はmercadopago.Client。
type PaymentGateway interface {
	CreatePreference(ctx context.Context, in mercadopago.PreferenceInput) (mercadopago.Preference, error)
	GetPaymentInfo(ctx context.Context, paymentID string) (mercadopago.PaymentInfo, error)
}

// 照合の恒久的な打ち切り。通知元に再送させても意味がないのでハンドラは2xxを返す。
var (
	ErrIgnoredTopic     = errors.New("notification topic ignored")
	ErrNoReference      = errors.New("payment has no usable external reference")
	ErrContractNotFound = errors.New("referenced contract not found")
)

type PaymentUsecase struct {
	txManager    repo.TransactionManager
	contractRepo repo.ContractRepository
	paymentRepo  repo.PaymentRepository
	userRepo     repo.UserRepository
	gateway      PaymentGateway
	clock        Clock
}

// DI
func NewPaymentUsecase(
	txManager repo.TransactionManager,
	contractRepo repo.ContractRepository,
	paymentRepo repo.PaymentRepository,
	userRepo repo.UserRepository,
	gateway PaymentGateway,
	clock Clock,
) *PaymentUsecase {
	return &PaymentUsecase{
		txManager:    txManager,
		contractRepo: contractRepo,
		paymentRepo:  paymentRepo,
		userRepo:     userRepo,
		gateway:      gateway,
		clock:        clock,
	}
}

type StartPaymentResponse struct {
	PreferenceID     string `json:"preference_id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// POST /contracts/:id/payment
// preferenceを作ってリダイレクト先を返す。approved済みなら409。
func (u *PaymentUsecase) StartPayment(ctx context.Context, userID int64, contractID int64) (StartPaymentResponse, error) {
	contract, err := u.ownedContract(ctx, userID, contractID)
	if err != nil {
		return StartPaymentResponse{}, err
	}

	payment, err := u.paymentRepo.FindByContractID(ctx, contract.ID)
	if err == repo.ErrNotFound {
		return StartPaymentResponse{}, NewHTTPError(http.StatusNotFound, "payment not found")
	}
	if err != nil {
		return StartPaymentResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if payment.Status == model.PaymentStatusApproved {
		return StartPaymentResponse{}, NewHTTPError(http.StatusConflict, "contract is already paid")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return StartPaymentResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if user == nil {
		return StartPaymentResponse{}, NewHTTPError(http.StatusNotFound, "user not found")
	}

	name, surname := splitFullName(user.FullName)
	pref, err := u.gateway.CreatePreference(ctx, mercadopago.PreferenceInput{
		ContractID:      contract.ID,
		TypeName:        contract.Subject,
		TypeDescription: contract.Subject,
		Amount:          payment.Amount,
		PayerName:       name,
		PayerSurname:    surname,
		PayerEmail:      user.Email,
		UserID:          contract.UserID,
	})
	if err != nil {
		log.Printf("create preference failed for contract %d: %v", contract.ID, err)
		return StartPaymentResponse{}, NewHTTPError(http.StatusBadGateway, "payment could not be processed, try again")
	}

	if err := u.paymentRepo.SetPreference(ctx, payment.ID, pref.ID, fmt.Sprintf("%d", contract.ID)); err != nil {
		return StartPaymentResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return StartPaymentResponse{
		PreferenceID:     pref.ID,
		InitPoint:        pref.InitPoint,
		SandboxInitPoint: pref.SandboxInitPoint,
	}, nil
}

type ReconcileResult struct {
	ContractID    int64
	PaymentID     int64
	Status        model.PaymentStatus
	Applied       bool
	GatewayStatus string
}

// webhookとブラウザ復帰の両方がここに集まる。
// ゲートウェイ側の状態を正としてローカルの遷移表を通す。
func (u *PaymentUsecase) Reconcile(ctx context.Context, gatewayPaymentID string, topic string) (ReconcileResult, error) {
	if topic != "payment" {
		return ReconcileResult{}, ErrIgnoredTopic
	}
	if gatewayPaymentID == "" {
		return ReconcileResult{}, ErrNoReference
	}

	info, err := u.gateway.GetPaymentInfo(ctx, gatewayPaymentID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("payment info lookup: %w", err)
	}

	contractID, err := strconv.ParseInt(info.ExternalReference, 10, 64)
	if err != nil || contractID <= 0 {
		log.Printf("reconcile: gateway payment %s carries no usable reference (%q)", gatewayPaymentID, info.ExternalReference)
		return ReconcileResult{}, ErrNoReference
	}

	next, known := statusFromGateway(info.Status)
	if !known {
		log.Printf("reconcile: ignoring unknown gateway status %q for contract %d", info.Status, contractID)
		return ReconcileResult{}, ErrIgnoredTopic
	}

	var result ReconcileResult
	err = u.txManager.WithinTx(ctx, func(r repo.TxRepos) error {
		contract, err := r.Contracts().FindByID(ctx, contractID)
		if err == repo.ErrNotFound {
			return ErrContractNotFound
		}
		if err != nil {
			return err
		}

		// webhookが先に届いてもよいようにget-or-create
		if _, err := r.Payments().GetOrCreateByContractID(ctx, contract.ID, contract.Value); err != nil {
			return err
		}

		// 行ロックでwebhookとブラウザ復帰の二重適用を直列化
		payment, err := r.Payments().FindByContractIDForUpdate(ctx, contract.ID)
		if err != nil {
			return err
		}

		result = ReconcileResult{
			ContractID:    contract.ID,
			PaymentID:     payment.ID,
			Status:        payment.Status,
			GatewayStatus: info.Status,
		}

		if !payment.Status.CanTransitionTo(next) {
			// 重複通知・遅延通知はno-op
			if payment.Status != next {
				log.Printf("reconcile: payment %d stays %s, transition to %s rejected: %v",
					payment.ID, payment.Status, next, model.ErrInvalidTransition)
			}
			return nil
		}

		if next == model.PaymentStatusApproved {
			paidAt := u.clock.Now()
			if info.DateApproved != nil {
				paidAt = *info.DateApproved
			}
			if err := r.Payments().MarkApproved(ctx, payment.ID, fmt.Sprintf("%d", info.ID), paidAt); err != nil {
				return err
			}
			if contract.Status.CanTransitionTo(model.ContractStatusPaid) {
				if err := r.Contracts().UpdateStatus(ctx, contract.ID, model.ContractStatusPaid); err != nil {
					return err
				}
				// 支払い確定時にドキュメント参照を確定
				if contract.PDFFile == nil {
					path := fmt.Sprintf("contracts/contract_%d.pdf", contract.ID)
					if err := r.Contracts().SetPDFFile(ctx, contract.ID, path); err != nil {
						return err
					}
				}
			}
		} else {
			if err := r.Payments().UpdateStatus(ctx, payment.ID, next); err != nil {
				return err
			}
			if next == model.PaymentStatusCancelled && contract.Status.CanTransitionTo(model.ContractStatusCancelled) {
				if err := r.Contracts().UpdateStatus(ctx, contract.ID, model.ContractStatusCancelled); err != nil {
					return err
				}
			}
		}

		result.Status = next
		result.Applied = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrContractNotFound) {
			log.Printf("reconcile: contract %d referenced by gateway payment %s does not exist", contractID, gatewayPaymentID)
			return ReconcileResult{}, ErrContractNotFound
		}
		return ReconcileResult{}, err
	}

	return result, nil
}

type PaymentStatusResponse struct {
	ContractID  int64   `json:"contract_id"`
	Status      string  `json:"status"`
	IsPaid      bool    `json:"is_paid"`
	PaymentDate *string `json:"payment_date"`
	Amount      string  `json:"amount"`
}

// GET /contracts/:id/status
func (u *PaymentUsecase) Status(ctx context.Context, userID int64, contractID int64) (PaymentStatusResponse, error) {
	contract, err := u.ownedContract(ctx, userID, contractID)
	if err != nil {
		return PaymentStatusResponse{}, err
	}

	payment, err := u.paymentRepo.FindByContractID(ctx, contract.ID)
	if err == repo.ErrNotFound {
		return PaymentStatusResponse{}, NewHTTPError(http.StatusNotFound, "payment not found")
	}
	if err != nil {
		return PaymentStatusResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	resp := PaymentStatusResponse{
		ContractID: contract.ID,
		Status:     string(payment.Status),
		IsPaid:     payment.Status == model.PaymentStatusApproved,
		Amount:     payment.Amount.StringFixed(2),
	}
	if payment.PaymentDate != nil {
		s := payment.PaymentDate.UTC().Format("2006-01-02T15:04:05Z07:00")
		resp.PaymentDate = &s
	}
	return resp, nil
}

// approvedのときだけダウンロードできる
func CanDownload(payment model.Payment) bool {
	return payment.Status == model.PaymentStatusApproved
}

type DownloadResponse struct {
	ContractID int64  `json:"contract_id"`
	FilePath   string `json:"file_path"`
}

// GET /contracts/:id/download
// 未払いは402、他人・不存在は404。
func (u *PaymentUsecase) Download(ctx context.Context, userID int64, contractID int64) (DownloadResponse, error) {
	contract, err := u.ownedContract(ctx, userID, contractID)
	if err != nil {
		return DownloadResponse{}, err
	}

	payment, err := u.paymentRepo.FindByContractID(ctx, contract.ID)
	if err == repo.ErrNotFound {
		return DownloadResponse{}, NewHTTPError(http.StatusPaymentRequired, "contract is not paid")
	}
	if err != nil {
		return DownloadResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if !CanDownload(payment) {
		return DownloadResponse{}, NewHTTPError(http.StatusPaymentRequired, "contract is not paid")
	}
	if contract.PDFFile == nil {
		return DownloadResponse{}, NewHTTPError(http.StatusConflict, "document is not ready yet")
	}

	return DownloadResponse{ContractID: contract.ID, FilePath: *contract.PDFFile}, nil
}

// 他人のContractは存在ごと隠す
func (u *PaymentUsecase) ownedContract(ctx context.Context, userID int64, contractID int64) (model.Contract, error) {
	if contractID <= 0 {
		return model.Contract{}, NewHTTPError(http.StatusBadRequest, "invalid contract id")
	}

	contract, err := u.contractRepo.FindByID(ctx, contractID)
	if err == repo.ErrNotFound {
		return model.Contract{}, NewHTTPError(http.StatusNotFound, "contract not found")
	}
	if err != nil {
		return model.Contract{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if contract.UserID == nil || *contract.UserID != userID {
		return model.Contract{}, NewHTTPError(http.StatusNotFound, "contract not found")
	}
	return contract, nil
}

// ゲートウェイの語彙をローカルの状態に落とす。未知のstatusはfalse。
func statusFromGateway(status string) (model.PaymentStatus, bool) {
	switch status {
	case "approved":
		return model.PaymentStatusApproved, true
	case "pending":
		return model.PaymentStatusPending, true
	case "in_process", "in_mediation", "authorized":
		return model.PaymentStatusProcessing, true
	case "rejected":
		return model.PaymentStatusFailed, true
	case "cancelled", "refunded", "charged_back":
		return model.PaymentStatusCancelled, true
	}
	return "", false
}

func splitFullName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
