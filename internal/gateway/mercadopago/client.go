package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultAPIBase = "https://api.mercadopago.com"

// Mercado Pago APIの薄いクライアント。
// グローバルなシングルトンにはせず、mainで組み立ててDIする。
type Client struct {
	httpClient   *http.Client
	accessToken  string
	apiBase      string
	callbackBase string
}

type Config struct {
	AccessToken string
	// success/failure/pendingのリダイレクト先を組み立てるベースURL
	CallbackBaseURL string
	// テストでhttptestに差し替える。空ならMercado Pago本番API。
	APIBaseURL string
	Timeout    time.Duration
}

func NewClient(cfg Config) *Client {
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = defaultAPIBase
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		accessToken:  cfg.AccessToken,
		apiBase:      strings.TrimRight(apiBase, "/"),
		callbackBase: strings.TrimRight(cfg.CallbackBaseURL, "/"),
	}
}

// CreatePreferenceの入力（ドメイン側の値）
type PreferenceInput struct {
	ContractID      int64
	TypeName        string
	TypeDescription string
	Amount          decimal.Decimal
	PayerName       string
	PayerSurname    string
	PayerEmail      string
	UserID          *int64
}

// ゲートウェイにホスト型チェックアウト（preference）を作る。
func (c *Client) CreatePreference(ctx context.Context, in PreferenceInput) (Preference, error) {
	// 文字数で切る。バイトで切るとç/ã等のUTF-8が途中で壊れる。
	description := in.TypeDescription
	if runes := []rune(description); len(runes) > 100 {
		description = string(runes[:100])
	}

	metadata := map[string]any{
		"contract_id":   in.ContractID,
		"contract_type": in.TypeName,
	}
	if in.UserID != nil {
		metadata["user_id"] = *in.UserID
	}

	body := preferenceRequest{
		Items: []preferenceItem{
			{
				Title:       fmt.Sprintf("Contrato: %s", in.TypeName),
				Description: description,
				Quantity:    1,
				CurrencyID:  "BRL",
				UnitPrice:   in.Amount.InexactFloat64(),
			},
		},
		Payer: preferencePayer{
			Name:    in.PayerName,
			Surname: in.PayerSurname,
			Email:   in.PayerEmail,
		},
		BackURLs: preferenceBackURL{
			Success: fmt.Sprintf("%s/contracts/payment-success/?contract_id=%d", c.callbackBase, in.ContractID),
			Failure: fmt.Sprintf("%s/pagamento/erro/?contract_id=%d", c.callbackBase, in.ContractID),
			Pending: fmt.Sprintf("%s/contracts/payment-pending/?contract_id=%d", c.callbackBase, in.ContractID),
		},
		ExternalReference: fmt.Sprintf("%d", in.ContractID),
		Metadata:          metadata,
	}

	// auto_returnは公開HTTPSホストでのみ有効。
	// 開発ホスト（localhost等）ではサンドボックスが拒否するため、フィールドごと省略する。
	if autoReturnAllowed(c.callbackBase) {
		body.AutoReturn = "approved"
	}

	var resp preferenceResponse
	if err := c.doJSON(ctx, http.MethodPost, "/checkout/preferences", body, &resp, http.StatusCreated); err != nil {
		return Preference{}, err
	}

	return Preference{
		ID:                resp.ID,
		InitPoint:         resp.InitPoint,
		SandboxInitPoint:  resp.SandboxInitPoint,
		ExternalReference: resp.ExternalReference,
	}, nil
}

// ゲートウェイ側の支払い情報を読み取る（read-only）。
func (c *Client) GetPaymentInfo(ctx context.Context, paymentID string) (PaymentInfo, error) {
	var info PaymentInfo
	if err := c.doJSON(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &info, http.StatusOK); err != nil {
		return PaymentInfo{}, err
	}
	return info, nil
}

// 開発ホスト判定。localhost / 127.0.0.1 / :8000 を含むベースURLでは
// auto_returnを使えない。
func autoReturnAllowed(baseURL string) bool {
	return !(strings.Contains(baseURL, "localhost") ||
		strings.Contains(baseURL, "127.0.0.1") ||
		strings.Contains(baseURL, ":8000"))
}

func (c *Client) doJSON(ctx context.Context, method string, path string, reqBody any, out any, wantStatus int) error {
	var reader io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return &GatewayError{Op: method + " " + path, Message: err.Error()}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reader)
	if err != nil {
		return &GatewayError{Op: method + " " + path, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &GatewayError{Op: method + " " + path, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &GatewayError{
			Op:         method + " " + path,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(data)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &GatewayError{Op: method + " " + path, Message: "decode response: " + err.Error()}
		}
	}

	return nil
}
