package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/gateway/mercadopago"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newPaymentUsecase(
	contracts *ContractRepoMock,
	payments *PaymentRepoMock,
	users *UserRepoMock,
	gateway *GatewayMock,
	now time.Time,
) *usecase.PaymentUsecase {
	tx := &txManagerStub{repos: &txReposStub{
		contracts:     contracts,
		payments:      payments,
		carts:         new(CartRepoMock),
		cartItems:     new(CartItemRepoMock),
		contractTypes: new(ContractTypeRepoMock),
	}}
	return usecase.NewPaymentUsecase(tx, contracts, payments, users, gateway, &fixedClock{now: now})
}

func testContract(id int64, userID int64) model.Contract {
	return model.Contract{
		ID:             id,
		UserID:         &userID,
		ContractTypeID: 1,
		Status:         model.ContractStatusPending,
		Subject:        "Prestação de Serviços",
		Value:          decimal.RequireFromString("49.90"),
	}
}

// =====================
// Reconcile
// =====================

func TestReconcile_IgnoresNonPaymentTopic(t *testing.T) {
	uc := newPaymentUsecase(new(ContractRepoMock), new(PaymentRepoMock), new(UserRepoMock), new(GatewayMock), time.Now())

	_, err := uc.Reconcile(context.Background(), "123", "merchant_order")
	assert.ErrorIs(t, err, usecase.ErrIgnoredTopic)
}

func TestReconcile_ApprovedHappyPath(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	approvedAt := now.Add(-time.Minute)

	contracts := new(ContractRepoMock)
	payments := new(PaymentRepoMock)
	gateway := new(GatewayMock)
	uc := newPaymentUsecase(contracts, payments, new(UserRepoMock), gateway, now)

	gateway.On("GetPaymentInfo", mock.Anything, "555").Return(mercadopago.PaymentInfo{
		ID:                555,
		Status:            "approved",
		ExternalReference: "42",
		DateApproved:      &approvedAt,
	}, nil)

	contract := testContract(42, 7)
	contracts.On("FindByID", mock.Anything, int64(42)).Return(contract, nil)

	payment := model.Payment{ID: 9, ContractID: 42, Status: model.PaymentStatusPending, Amount: contract.Value}
	payments.On("GetOrCreateByContractID", mock.Anything, int64(42), contract.Value).Return(payment, nil)
	payments.On("FindByContractIDForUpdate", mock.Anything, int64(42)).Return(payment, nil)

	// approved確定でtransaction_idとpayment_dateが刻まれる
	payments.On("MarkApproved", mock.Anything, int64(9), "555", approvedAt).Return(nil)
	contracts.On("UpdateStatus", mock.Anything, int64(42), model.ContractStatusPaid).Return(nil)
	contracts.On("SetPDFFile", mock.Anything, int64(42), "contracts/contract_42.pdf").Return(nil)

	result, err := uc.Reconcile(ctx, "555", "payment")
	assert.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, model.PaymentStatusApproved, result.Status)
	assert.Equal(t, int64(42), result.ContractID)

	payments.AssertExpectations(t)
	contracts.AssertExpectations(t)
}

// 同じapproved通知が二度来ても二度目はno-op
func TestReconcile_DuplicateApprovedIsNoop(t *testing.T) {
	ctx := context.Background()

	contracts := new(ContractRepoMock)
	payments := new(PaymentRepoMock)
	gateway := new(GatewayMock)
	uc := newPaymentUsecase(contracts, payments, new(UserRepoMock), gateway, time.Now())

	gateway.On("GetPaymentInfo", mock.Anything, "555").Return(mercadopago.PaymentInfo{
		ID: 555, Status: "approved", ExternalReference: "42",
	}, nil)

	contract := testContract(42, 7)
	contract.Status = model.ContractStatusPaid
	contracts.On("FindByID", mock.Anything, int64(42)).Return(contract, nil)

	payment := model.Payment{ID: 9, ContractID: 42, Status: model.PaymentStatusApproved, Amount: contract.Value}
	payments.On("GetOrCreateByContractID", mock.Anything, int64(42), contract.Value).Return(payment, nil)
	payments.On("FindByContractIDForUpdate", mock.Anything, int64(42)).Return(payment, nil)

	result, err := uc.Reconcile(ctx, "555", "payment")
	assert.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, model.PaymentStatusApproved, result.Status)

	// 書き込み系は一切呼ばれない
	payments.AssertNotCalled(t, "MarkApproved", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	payments.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	contracts.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

// approved後に遅れて届いたpending通知は握りつぶす
func TestReconcile_StalePendingAfterApprovedIsNoop(t *testing.T) {
	ctx := context.Background()

	contracts := new(ContractRepoMock)
	payments := new(PaymentRepoMock)
	gateway := new(GatewayMock)
	uc := newPaymentUsecase(contracts, payments, new(UserRepoMock), gateway, time.Now())

	gateway.On("GetPaymentInfo", mock.Anything, "555").Return(mercadopago.PaymentInfo{
		ID: 555, Status: "in_process", ExternalReference: "42",
	}, nil)

	contract := testContract(42, 7)
	contracts.On("FindByID", mock.Anything, int64(42)).Return(contract, nil)

	payment := model.Payment{ID: 9, ContractID: 42, Status: model.PaymentStatusApproved, Amount: contract.Value}
	payments.On("GetOrCreateByContractID", mock.Anything, int64(42), contract.Value).Return(payment, nil)
	payments.On("FindByContractIDForUpdate", mock.Anything, int64(42)).Return(payment, nil)

	result, err := uc.Reconcile(ctx, "555", "payment")
	assert.NoError(t, err)
	assert.False(t, result.Applied)

	payments.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_RejectedBecomesFailed(t *testing.T) {
	ctx := context.Background()

	contracts := new(ContractRepoMock)
	payments := new(PaymentRepoMock)
	gateway := new(GatewayMock)
	uc := newPaymentUsecase(contracts, payments, new(UserRepoMock), gateway, time.Now())

	gateway.On("GetPaymentInfo", mock.Anything, "555").Return(mercadopago.PaymentInfo{
		ID: 555, Status: "rejected", ExternalReference: "42",
	}, nil)

	contract := testContract(42, 7)
	contracts.On("FindByID", mock.Anything, int64(42)).Return(contract, nil)

	payment := model.Payment{ID: 9, ContractID: 42, Status: model.PaymentStatusProcessing, Amount: contract.Value}
	payments.On("GetOrCreateByContractID", mock.Anything, int64(42), contract.Value).Return(payment, nil)
	payments.On("FindByContractIDForUpdate", mock.Anything, int64(42)).Return(payment, nil)
	payments.On("UpdateStatus", mock.Anything, int64(9), model.PaymentStatusFailed).Return(nil)

	result, err := uc.Reconcile(ctx, "555", "payment")
	assert.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, model.PaymentStatusFailed, result.Status)

	// 失敗では契約は動かさない（再決済の余地を残す）
	contracts.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	payments.AssertExpectations(t)
}

func TestReconcile_CancelledCancelsContract(t *testing.T) {
	ctx := context.Background()

	contracts := new(ContractRepoMock)
	payments := new(PaymentRepoMock)
	gateway := new(GatewayMock)
	uc := newPaymentUsecase(contracts, payments, new(UserRepoMock), gateway, time.Now())

	gateway.On("GetPaymentInfo", mock.Anything, "555").Return(mercadopago.PaymentInfo{
		ID: 555, Status: "cancelled", ExternalReference: "42",
	}, nil)

	contract := testContract(42, 7)
	contracts.On("FindByID", mock.Anything, int64(42)).Return(contract, nil)

	payment := model.Payment{ID: 9, ContractID: 42, Status: model.PaymentStatusPending, Amount: contract.Value}
	payments.On("GetOrCreateByContractID", mock.Anything, int64(42), contract.Value).Return(payment, nil)
	payments.On("FindByContractIDForUpdate", mock.Anything, int64(42)).Return(payment, nil)
	payments.On("UpdateStatus", mock.Anything, int64(9), model.PaymentStatusCancelled).Return(nil)
	contracts.On("UpdateStatus", mock.Anything, int64(42), model.ContractStatusCancelled).Return(nil)

	result, err := uc.Reconcile(ctx, "555", "payment")
	assert.NoError(t, err)
	assert.True(t, result.Applied)

	contracts.AssertExpectations(t)
}

func TestReconcile_NoExternalReference(t *testing.T) {
	gateway := new(GatewayMock)
	uc := newPaymentUsecase(new(ContractRepoMock), new(PaymentRepoMock), new(UserRepoMock), gateway, time.Now())

	gateway.On("GetPaymentInfo", mock.Anything, "555").Return(mercadopago.PaymentInfo{
		ID: 555, Status: "approved", ExternalReference: "",
	}, nil)

	_, err := uc.Reconcile(context.Background(), "555", "payment")
	assert.ErrorIs(t, err, usecase.ErrNoReference)
}

func TestReconcile_ContractNotFound(t *testing.T) {
	contracts := new(ContractRepoMock)
	gateway := new(GatewayMock)
	uc := newPaymentUsecase(contracts, new(PaymentRepoMock), new(UserRepoMock), gateway, time.Now())

	gateway.On("GetPaymentInfo", mock.Anything, "555").Return(mercadopago.PaymentInfo{
		ID: 555, Status: "approved", ExternalReference: "404",
	}, nil)
	contracts.On("FindByID", mock.Anything, int64(404)).Return(model.Contract{}, repo.ErrNotFound)

	_, err := uc.Reconcile(context.Background(), "555", "payment")
	assert.ErrorIs(t, err, usecase.ErrContractNotFound)
}

func TestReconcile_UnknownStatusIgnored(t *testing.T) {
	contracts := new(ContractRepoMock)
	gateway := new(GatewayMock)
	uc := newPaymentUsecase(contracts, new(PaymentRepoMock), new(UserRepoMock), gateway, time.Now())

	gateway.On("GetPaymentInfo", mock.Anything, "555").Return(mercadopago.PaymentInfo{
		ID: 555, Status: "some_future_status", ExternalReference: "42",
	}, nil)

	_, err := uc.Reconcile(context.Background(), "555", "payment")
	assert.ErrorIs(t, err, usecase.ErrIgnoredTopic)

	contracts.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

// ゲートウェイ障害は上に返す（ハンドラが5xxにして再送させる）
func TestReconcile_GatewayFailure(t *testing.T) {
	gateway := new(GatewayMock)
	uc := newPaymentUsecase(new(ContractRepoMock), new(PaymentRepoMock), new(UserRepoMock), gateway, time.Now())

	gateway.On("GetPaymentInfo", mock.Anything, "555").Return(mercadopago.PaymentInfo{}, &mercadopago.GatewayError{
		Op: "GET /v1/payments/555", StatusCode: 500, Message: "upstream down",
	})

	_, err := uc.Reconcile(context.Background(), "555", "payment")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, usecase.ErrIgnoredTopic)
	assert.NotErrorIs(t, err, usecase.ErrNoReference)
	assert.NotErrorIs(t, err, usecase.ErrContractNotFound)
}

// =====================
// StartPayment
// =====================

func TestStartPayment_Success(t *testing.T) {
	ctx := context.Background()

	contracts := new(ContractRepoMock)
	payments := new(PaymentRepoMock)
	users := new(UserRepoMock)
	gateway := new(GatewayMock)
	uc := newPaymentUsecase(contracts, payments, users, gateway, time.Now())

	contract := testContract(42, 7)
	contracts.On("FindByID", mock.Anything, int64(42)).Return(contract, nil)
	payments.On("FindByContractID", mock.Anything, int64(42)).Return(model.Payment{
		ID: 9, ContractID: 42, Status: model.PaymentStatusPending, Amount: contract.Value,
	}, nil)
	users.On("FindByID", mock.Anything, int64(7)).Return(&model.User{
		ID: 7, Email: "maria@example.com", FullName: "Maria da Silva",
	}, nil)

	gateway.On("CreatePreference", mock.Anything, mock.MatchedBy(func(in mercadopago.PreferenceInput) bool {
		return in.ContractID == 42 &&
			in.PayerName == "Maria" &&
			in.PayerSurname == "da Silva" &&
			in.PayerEmail == "maria@example.com" &&
			in.Amount.Equal(decimal.RequireFromString("49.90"))
	})).Return(mercadopago.Preference{
		ID: "pref-1", InitPoint: "https://mp/init", SandboxInitPoint: "https://mp/sandbox",
	}, nil)

	payments.On("SetPreference", mock.Anything, int64(9), "pref-1", "42").Return(nil)

	out, err := uc.StartPayment(ctx, 7, 42)
	assert.NoError(t, err)
	assert.Equal(t, "pref-1", out.PreferenceID)
	assert.Equal(t, "https://mp/init", out.InitPoint)

	gateway.AssertExpectations(t)
	payments.AssertExpectations(t)
}

func TestStartPayment_AlreadyPaid(t *testing.T) {
	contracts := new(ContractRepoMock)
	payments := new(PaymentRepoMock)
	uc := newPaymentUsecase(contracts, payments, new(UserRepoMock), new(GatewayMock), time.Now())

	contract := testContract(42, 7)
	contracts.On("FindByID", mock.Anything, int64(42)).Return(contract, nil)
	payments.On("FindByContractID", mock.Anything, int64(42)).Return(model.Payment{
		ID: 9, ContractID: 42, Status: model.PaymentStatusApproved,
	}, nil)

	_, err := uc.StartPayment(context.Background(), 7, 42)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Status)
}

func TestStartPayment_NotOwner(t *testing.T) {
	contracts := new(ContractRepoMock)
	uc := newPaymentUsecase(contracts, new(PaymentRepoMock), new(UserRepoMock), new(GatewayMock), time.Now())

	contract := testContract(42, 7)
	contracts.On("FindByID", mock.Anything, int64(42)).Return(contract, nil)

	// 他人からは404（存在を隠す）
	_, err := uc.StartPayment(context.Background(), 8, 42)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestStartPayment_GatewayDown(t *testing.T) {
	contracts := new(ContractRepoMock)
	payments := new(PaymentRepoMock)
	users := new(UserRepoMock)
	gateway := new(GatewayMock)
	uc := newPaymentUsecase(contracts, payments, users, gateway, time.Now())

	contract := testContract(42, 7)
	contracts.On("FindByID", mock.Anything, int64(42)).Return(contract, nil)
	payments.On("FindByContractID", mock.Anything, int64(42)).Return(model.Payment{
		ID: 9, ContractID: 42, Status: model.PaymentStatusPending, Amount: contract.Value,
	}, nil)
	users.On("FindByID", mock.Anything, int64(7)).Return(&model.User{ID: 7, FullName: "Maria"}, nil)

	gateway.On("CreatePreference", mock.Anything, mock.Anything).Return(mercadopago.Preference{}, errors.New("connection refused"))

	_, err := uc.StartPayment(context.Background(), 7, 42)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, he.Status)

	payments.AssertNotCalled(t, "SetPreference", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// =====================
// Download gate
// =====================

func TestDownload_ApprovedOnly(t *testing.T) {
	contracts := new(ContractRepoMock)
	payments := new(PaymentRepoMock)
	uc := newPaymentUsecase(contracts, payments, new(UserRepoMock), new(GatewayMock), time.Now())

	pdf := "contracts/contract_42.pdf"
	contract := testContract(42, 7)
	contract.Status = model.ContractStatusPaid
	contract.PDFFile = &pdf

	contracts.On("FindByID", mock.Anything, int64(42)).Return(contract, nil)
	payments.On("FindByContractID", mock.Anything, int64(42)).Return(model.Payment{
		ID: 9, ContractID: 42, Status: model.PaymentStatusApproved,
	}, nil)

	out, err := uc.Download(context.Background(), 7, 42)
	assert.NoError(t, err)
	assert.Equal(t, pdf, out.FilePath)
}

func TestDownload_NotPaid(t *testing.T) {
	for _, status := range []model.PaymentStatus{
		model.PaymentStatusPending,
		model.PaymentStatusProcessing,
		model.PaymentStatusFailed,
		model.PaymentStatusCancelled,
	} {
		contracts := new(ContractRepoMock)
		payments := new(PaymentRepoMock)
		uc := newPaymentUsecase(contracts, payments, new(UserRepoMock), new(GatewayMock), time.Now())

		contracts.On("FindByID", mock.Anything, int64(42)).Return(testContract(42, 7), nil)
		payments.On("FindByContractID", mock.Anything, int64(42)).Return(model.Payment{
			ID: 9, ContractID: 42, Status: status,
		}, nil)

		_, err := uc.Download(context.Background(), 7, 42)
		he, ok := usecase.AsHTTPError(err)
		assert.True(t, ok, "status %s", status)
		assert.Equal(t, http.StatusPaymentRequired, he.Status, "status %s", status)
	}
}

func TestDownload_NotOwnerHidden(t *testing.T) {
	contracts := new(ContractRepoMock)
	uc := newPaymentUsecase(contracts, new(PaymentRepoMock), new(UserRepoMock), new(GatewayMock), time.Now())

	contracts.On("FindByID", mock.Anything, int64(42)).Return(testContract(42, 7), nil)

	_, err := uc.Download(context.Background(), 99, 42)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestCanDownload(t *testing.T) {
	assert.True(t, usecase.CanDownload(model.Payment{Status: model.PaymentStatusApproved}))
	assert.False(t, usecase.CanDownload(model.Payment{Status: model.PaymentStatusPending}))
	assert.False(t, usecase.CanDownload(model.Payment{Status: model.PaymentStatusProcessing}))
}
