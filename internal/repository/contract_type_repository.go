package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

type ContractTypeRepository interface {
	// 有効なテンプレートを表示順で返す
	ListActive(ctx context.Context) ([]model.ContractType, error)
	FindByID(ctx context.Context, id int64) (model.ContractType, error)
	FindBySlug(ctx context.Context, slug string) (model.ContractType, error)

	// 管理者用
	Create(ctx context.Context, ct model.ContractType) (int64, error)
	Update(ctx context.Context, ct model.ContractType) error
	Delete(ctx context.Context, id int64) error
	SlugExists(ctx context.Context, slug string) (bool, error)
}
