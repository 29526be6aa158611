package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 照合の入り口だけ見えれば良い
type PaymentReconciler interface {
	Reconcile(ctx context.Context, gatewayPaymentID string, topic string) (usecase.ReconcileResult, error)
}

// ゲートウェイからの通知とブラウザ復帰のHTTP。
// どちらも認証なしで受ける（通知元はMercado Pago、復帰はリダイレクト）。
type PaymentWebhookHandler struct {
	uc PaymentReconciler
}

// DI
func NewPaymentWebhookHandler(uc PaymentReconciler) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{uc: uc}
}

func (h *PaymentWebhookHandler) RegisterRoutes(e *echo.Echo) {
	// 通知はPOSTとGETの両方で届く
	e.POST("/webhooks/mercadopago", h.webhook)
	e.GET("/webhooks/mercadopago", h.webhook)

	// ブラウザ復帰
	e.GET("/contracts/payment-success", h.paymentReturn)
	e.GET("/contracts/payment-pending", h.paymentReturn)
	e.GET("/pagamento/erro", h.paymentReturn)
}

// POST body: {"type":"payment","data":{"id":"123"}}
type webhookBody struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type webhookResponse struct {
	Status string `json:"status"`
}

// 恒久的に処理できない通知は200で受けて再送を止める。
// 一時的な失敗（ゲートウェイ・DB）だけ500で再送させる。
func (h *PaymentWebhookHandler) webhook(c echo.Context) error {
	topic, paymentID := extractNotification(c)

	_, err := h.uc.Reconcile(c.Request().Context(), paymentID, topic)
	if err != nil {
		if errors.Is(err, usecase.ErrIgnoredTopic) ||
			errors.Is(err, usecase.ErrNoReference) ||
			errors.Is(err, usecase.ErrContractNotFound) {
			return c.JSON(http.StatusOK, webhookResponse{Status: "ignored"})
		}

		log.Printf("webhook reconcile failed: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "reconcile failed"})
	}

	return c.JSON(http.StatusOK, webhookResponse{Status: "ok"})
}

type paymentReturnResponse struct {
	ContractID int64  `json:"contract_id,omitempty"`
	Status     string `json:"status"`
}

// 復帰URLにはゲートウェイがpayment_id等を付けてくる。
// webhookと同じ照合を通すので、通知より先に戻ってきても整合する。
func (h *PaymentWebhookHandler) paymentReturn(c echo.Context) error {
	paymentID := c.QueryParam("payment_id")
	if paymentID == "" {
		paymentID = c.QueryParam("collection_id")
	}

	if paymentID == "" || paymentID == "null" {
		return c.JSON(http.StatusOK, paymentReturnResponse{Status: "pending"})
	}

	result, err := h.uc.Reconcile(c.Request().Context(), paymentID, "payment")
	if err != nil {
		if errors.Is(err, usecase.ErrIgnoredTopic) ||
			errors.Is(err, usecase.ErrNoReference) ||
			errors.Is(err, usecase.ErrContractNotFound) {
			return c.JSON(http.StatusOK, paymentReturnResponse{Status: "pending"})
		}

		log.Printf("payment return reconcile failed: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "reconcile failed"})
	}

	return c.JSON(http.StatusOK, paymentReturnResponse{
		ContractID: result.ContractID,
		Status:     string(result.Status),
	})
}

// GETはクエリ、POSTはボディとクエリの両方を見る
func extractNotification(c echo.Context) (topic string, paymentID string) {
	topic = c.QueryParam("type")
	if topic == "" {
		topic = c.QueryParam("topic")
	}
	paymentID = c.QueryParam("data.id")
	if paymentID == "" {
		paymentID = c.QueryParam("id")
	}

	if c.Request().Method == http.MethodPost && c.Request().Body != nil {
		var body webhookBody
		if err := json.NewDecoder(c.Request().Body).Decode(&body); err == nil {
			if body.Type != "" {
				topic = body.Type
			}
			if body.Data.ID != "" {
				paymentID = body.Data.ID
			}
		}
	}

	return topic, paymentID
}
