package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type ContractGormRepository struct {
	db *gorm.DB
}

func NewContractGormRepository(db *gorm.DB) *ContractGormRepository {
	return &ContractGormRepository{db: db}
}

func (r *ContractGormRepository) FindByID(ctx context.Context, contractID int64) (model.Contract, error) {
	var c model.Contract
	err := r.db.WithContext(ctx).Where("id = ?", contractID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Contract{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Contract{}, err
	}
	return c, nil
}

func (r *ContractGormRepository) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Contract, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Contract{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return []model.Contract{}, 0, err
	}

	var items []model.Contract
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.Contract{}, 0, err
	}

	return items, total, nil
}

func (r *ContractGormRepository) StatusCountsByUserID(ctx context.Context, userID int64) (map[model.ContractStatus]int64, error) {
	var rows []struct {
		Status model.ContractStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&model.Contract{}).
		Select("status, count(*) as count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.ContractStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *ContractGormRepository) Create(ctx context.Context, contract model.Contract) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&contract).Error; err != nil {
		return 0, err
	}
	return contract.ID, nil
}

func (r *ContractGormRepository) UpdateStatus(ctx context.Context, contractID int64, status model.ContractStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Contract{}).
		Where("id = ?", contractID).
		Update("status", status)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ContractGormRepository) SetPDFFile(ctx context.Context, contractID int64, path string) error {
	res := r.db.WithContext(ctx).Model(&model.Contract{}).
		Where("id = ?", contractID).
		Update("pdf_file", path)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
