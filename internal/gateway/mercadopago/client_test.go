package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newTestClient(t *testing.T, callbackBase string, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		AccessToken:     "TEST-TOKEN",
		CallbackBaseURL: callbackBase,
		APIBaseURL:      srv.URL,
	})
	return c, srv
}

func TestCreatePreference_BuildsRequest(t *testing.T) {
	var got map[string]any
	var gotAuth string

	c, _ := newTestClient(t, "https://contratos.example.com", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":                 "pref-123",
			"init_point":         "https://mp.example/init",
			"sandbox_init_point": "https://mp.example/sandbox",
			"external_reference": "42",
		})
	})

	pref, err := c.CreatePreference(context.Background(), PreferenceInput{
		ContractID:   42,
		TypeName:     "Prestação de Serviços",
		Amount:       decimal.RequireFromString("49.90"),
		PayerName:    "Maria",
		PayerSurname: "Silva",
		PayerEmail:   "maria@example.com",
	})
	assert.NoError(t, err)
	assert.Equal(t, "pref-123", pref.ID)
	assert.Equal(t, "https://mp.example/init", pref.InitPoint)
	assert.Equal(t, "Bearer TEST-TOKEN", gotAuth)

	items := got["items"].([]any)
	item := items[0].(map[string]any)
	assert.Equal(t, "Contrato: Prestação de Serviços", item["title"])
	assert.Equal(t, float64(1), item["quantity"])
	assert.Equal(t, "BRL", item["currency_id"])
	assert.InDelta(t, 49.90, item["unit_price"].(float64), 0.001)

	assert.Equal(t, "42", got["external_reference"])

	backURLs := got["back_urls"].(map[string]any)
	assert.Equal(t, "https://contratos.example.com/contracts/payment-success/?contract_id=42", backURLs["success"])
	assert.Equal(t, "https://contratos.example.com/pagamento/erro/?contract_id=42", backURLs["failure"])
	assert.Equal(t, "https://contratos.example.com/contracts/payment-pending/?contract_id=42", backURLs["pending"])
}

// 公開ホストではauto_return=approvedを送る
func TestCreatePreference_AutoReturn_PublicHost(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, "https://contratos.example.com", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": "p"})
	})

	_, err := c.CreatePreference(context.Background(), PreferenceInput{ContractID: 1, TypeName: "x", Amount: decimal.NewFromInt(10)})
	assert.NoError(t, err)
	assert.Equal(t, "approved", got["auto_return"])
}

// 開発ホストではauto_returnフィールド自体を送らない
func TestCreatePreference_AutoReturn_OmittedForDevHosts(t *testing.T) {
	for _, base := range []string{
		"http://localhost:3000",
		"http://127.0.0.1:8000",
		"http://dev.example.com:8000",
	} {
		var got map[string]any
		c, _ := newTestClient(t, base, func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{"id": "p"})
		})

		_, err := c.CreatePreference(context.Background(), PreferenceInput{ContractID: 1, TypeName: "x", Amount: decimal.NewFromInt(10)})
		assert.NoError(t, err)

		_, present := got["auto_return"]
		assert.False(t, present, "auto_return must be omitted for %s", base)
	}
}

// 説明は100文字（バイトではなく文字）で切り詰める。
// ポルトガル語のç/ã等がマルチバイトなので、バイトで切ると壊れる。
func TestCreatePreference_TruncatesDescription(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "prestação" // 9文字、11バイト
	}

	var got map[string]any
	c, _ := newTestClient(t, "https://contratos.example.com", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": "p"})
	})

	_, err := c.CreatePreference(context.Background(), PreferenceInput{
		ContractID:      1,
		TypeName:        "x",
		TypeDescription: long,
		Amount:          decimal.NewFromInt(10),
	})
	assert.NoError(t, err)

	item := got["items"].([]any)[0].(map[string]any)
	desc := item["description"].(string)
	assert.Equal(t, 100, utf8.RuneCountInString(desc))
	assert.True(t, utf8.ValidString(desc))
	assert.Equal(t, string([]rune(long)[:100]), desc)
}

func TestCreatePreference_GatewayError(t *testing.T) {
	c, _ := newTestClient(t, "https://contratos.example.com", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid access token"}`))
	})

	_, err := c.CreatePreference(context.Background(), PreferenceInput{ContractID: 1, TypeName: "x", Amount: decimal.NewFromInt(10)})
	assert.Error(t, err)

	ge, ok := err.(*GatewayError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, ge.StatusCode)
	assert.Contains(t, ge.Error(), "invalid access token")
}

func TestGetPaymentInfo(t *testing.T) {
	c, _ := newTestClient(t, "https://contratos.example.com", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/555", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]any{
			"id":                 555,
			"status":             "approved",
			"status_detail":      "accredited",
			"external_reference": "42",
			"transaction_amount": 49.90,
		})
	})

	info, err := c.GetPaymentInfo(context.Background(), "555")
	assert.NoError(t, err)
	assert.Equal(t, int64(555), info.ID)
	assert.Equal(t, "approved", info.Status)
	assert.Equal(t, "42", info.ExternalReference)
}

func TestGetPaymentInfo_NotFound(t *testing.T) {
	c, _ := newTestClient(t, "https://contratos.example.com", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Payment not found"}`))
	})

	_, err := c.GetPaymentInfo(context.Background(), "999")
	ge, ok := err.(*GatewayError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, ge.StatusCode)
}

func TestAutoReturnAllowed(t *testing.T) {
	assert.True(t, autoReturnAllowed("https://contratos.example.com"))
	assert.False(t, autoReturnAllowed("http://localhost:3000"))
	assert.False(t, autoReturnAllowed("http://127.0.0.1"))
	assert.False(t, autoReturnAllowed("http://example.com:8000"))
}
