package cache

import (
	"context"
	"errors"

	"app/internal/domain/model"
)

// カタログ（read-mostly）のキャッシュ。
// 無効化はベストエフォートで、失敗しても業務処理は止めない。
type CatalogCache interface {
	GetActiveTypes(ctx context.Context) ([]model.ContractType, error)
	SetActiveTypes(ctx context.Context, types []model.ContractType) error
	Invalidate(ctx context.Context) error
}

// チェックアウト直後のサマリー。1回読んだら消える（read-once）。
type CheckoutSummaryStore interface {
	Put(ctx context.Context, key string, summary []byte) error
	Take(ctx context.Context, key string) ([]byte, error)
}

var ErrCacheMiss = errors.New("cache miss")
