package repository

import (
	"context"

	"app/internal/domain/model"
)

type ContractRepository interface {
	FindByID(ctx context.Context, contractID int64) (model.Contract, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Contract, int64, error)
	// 一覧画面のバッジ用。statusごとの件数。
	StatusCountsByUserID(ctx context.Context, userID int64) (map[model.ContractStatus]int64, error)
	Create(ctx context.Context, contract model.Contract) (int64, error)
	UpdateStatus(ctx context.Context, contractID int64, status model.ContractStatus) error
	// 生成済みドキュメントへの参照を保存
	SetPDFFile(ctx context.Context, contractID int64, path string) error
}
