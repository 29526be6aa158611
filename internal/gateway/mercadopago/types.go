package mercadopago

import (
	"fmt"
	"time"
)

// preference作成リクエスト（ゲートウェイのワイヤ形式）
type preferenceRequest struct {
	Items             []preferenceItem  `json:"items"`
	Payer             preferencePayer   `json:"payer"`
	BackURLs          preferenceBackURL `json:"back_urls"`
	ExternalReference string            `json:"external_reference"`
	Metadata          map[string]any    `json:"metadata,omitempty"`
	// 空なら送らない。falseを送るのではなくフィールドごと省略する。
	AutoReturn string `json:"auto_return,omitempty"`
}

type preferenceItem struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity"`
	CurrencyID  string  `json:"currency_id"`
	UnitPrice   float64 `json:"unit_price"`
}

type preferencePayer struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
}

type preferenceBackURL struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceResponse struct {
	ID                string `json:"id"`
	InitPoint         string `json:"init_point"`
	SandboxInitPoint  string `json:"sandbox_init_point"`
	ExternalReference string `json:"external_reference"`
}

// CreatePreferenceの結果
type Preference struct {
	ID                string
	InitPoint         string
	SandboxInitPoint  string
	ExternalReference string
}

// GetPaymentInfoの結果
type PaymentInfo struct {
	ID                int64      `json:"id"`
	Status            string     `json:"status"`
	StatusDetail      string     `json:"status_detail"`
	ExternalReference string     `json:"external_reference"`
	PaymentMethodID   string     `json:"payment_method_id"`
	TransactionAmount float64    `json:"transaction_amount"`
	DateApproved      *time.Time `json:"date_approved"`
}

// アダプタ層の失敗。呼び出し側はこれを見てユーザー向けメッセージに落とす。
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("mercadopago: %s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("mercadopago: %s failed: %s", e.Op, e.Message)
}
