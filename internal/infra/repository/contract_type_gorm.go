package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type ContractTypeGormRepository struct {
	db *gorm.DB
}

// DI
func NewContractTypeGormRepository(db *gorm.DB) *ContractTypeGormRepository {
	return &ContractTypeGormRepository{db: db}
}

// 有効なテンプレートを表示順→名前順で返す
func (r *ContractTypeGormRepository) ListActive(ctx context.Context) ([]model.ContractType, error) {
	var items []model.ContractType

	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order asc, name asc").
		Find(&items).Error
	if err != nil {
		return []model.ContractType{}, err
	}

	return items, nil
}

func (r *ContractTypeGormRepository) FindByID(ctx context.Context, id int64) (model.ContractType, error) {
	var ct model.ContractType

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ContractType{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ContractType{}, err
	}
	return ct, nil
}

func (r *ContractTypeGormRepository) FindBySlug(ctx context.Context, slug string) (model.ContractType, error) {
	var ct model.ContractType

	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&ct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ContractType{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ContractType{}, err
	}
	return ct, nil
}

func (r *ContractTypeGormRepository) Create(ctx context.Context, ct model.ContractType) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&ct).Error; err != nil {
		return 0, err
	}
	return ct.ID, nil
}

func (r *ContractTypeGormRepository) Update(ctx context.Context, ct model.ContractType) error {
	res := r.db.WithContext(ctx).
		Model(&model.ContractType{}).
		Where("id = ?", ct.ID).
		Updates(map[string]interface{}{
			"name":          ct.Name,
			"slug":          ct.Slug,
			"description":   ct.Description,
			"price":         ct.Price,
			"category":      ct.Category,
			"icon":          ct.Icon,
			"color":         ct.Color,
			"display_order": ct.DisplayOrder,
			"is_active":     ct.IsActive,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ContractTypeGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.ContractType{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ContractTypeGormRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.ContractType{}).
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
