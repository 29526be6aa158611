package validator

import (
	"context"
	"strings"

	"app/internal/domain/model"
	"app/internal/usecase"
)

type checkoutValidator struct{}

// Usecaseは interface を依存注入
func NewCheckoutValidator() usecase.CheckoutValidator {
	return &checkoutValidator{}
}

// チェックアウトの入力を検証
func (v *checkoutValidator) ValidateCheckout(ctx context.Context, fullName string, email string, method string) error {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)

	// 必須チェック
	if fullName == "" || email == "" || method == "" {
		return ErrInvalidInput
	}

	if len(fullName) > 200 {
		return ErrInvalidInput
	}

	// email形式
	if !isEmailLike(email) {
		return ErrInvalidInput
	}

	// 支払い方法は列挙値のみ
	if !model.PaymentMethod(method).Valid() {
		return ErrInvalidInput
	}

	return nil
}
