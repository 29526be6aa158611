package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/infra/cache"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// カタログ（契約書テンプレート）の参照と管理。
// 一覧はread-mostlyなのでRedisを前に置く。
// 管理操作は監査ログに残す。
type CatalogUsecase struct {
	typeRepo  repo.ContractTypeRepository
	auditRepo repo.AuditLogRepository
	cache     cache.CatalogCache
}

// DI
func NewCatalogUsecase(typeRepo repo.ContractTypeRepository, auditRepo repo.AuditLogRepository, catalogCache cache.CatalogCache) *CatalogUsecase {
	return &CatalogUsecase{typeRepo: typeRepo, auditRepo: auditRepo, cache: catalogCache}
}

type ContractTypeResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	Price        string `json:"price"`
	Category     string `json:"category"`
	Icon         string `json:"icon"`
	Color        string `json:"color"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
}

// GET /catalog
func (u *CatalogUsecase) ListTypes(ctx context.Context) ([]ContractTypeResponse, error) {
	if u.cache != nil {
		cached, err := u.cache.GetActiveTypes(ctx)
		if err == nil {
			return toTypeResponses(cached), nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			// キャッシュ障害でカタログを止めない
			log.Printf("catalog cache read failed: %v", err)
		}
	}

	types, err := u.typeRepo.ListActive(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if u.cache != nil {
		if err := u.cache.SetActiveTypes(ctx, types); err != nil {
			log.Printf("catalog cache write failed: %v", err)
		}
	}

	return toTypeResponses(types), nil
}

// GET /catalog/:slug
func (u *CatalogUsecase) GetTypeBySlug(ctx context.Context, slug string) (ContractTypeResponse, error) {
	ct, err := u.typeRepo.FindBySlug(ctx, slug)
	if err == repo.ErrNotFound {
		return ContractTypeResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ContractTypeResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !ct.IsActive {
		return ContractTypeResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	return toTypeResponse(ct), nil
}

type UpsertContractTypeInput struct {
	Name         string
	Slug         string
	Description  string
	Price        decimal.Decimal
	Category     string
	Icon         string
	Color        string
	DisplayOrder int
	IsActive     bool
}

// POST /admin/contract-types
func (u *CatalogUsecase) CreateType(ctx context.Context, adminUserID int64, in UpsertContractTypeInput) (ContractTypeResponse, error) {
	if strings.TrimSpace(in.Name) == "" {
		return ContractTypeResponse{}, NewHTTPError(http.StatusBadRequest, "invalid name")
	}
	if in.Price.IsNegative() {
		return ContractTypeResponse{}, NewHTTPError(http.StatusBadRequest, "invalid price")
	}

	slug := in.Slug
	if slug == "" {
		var err error
		slug, err = u.uniqueSlug(ctx, in.Name)
		if err != nil {
			return ContractTypeResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	ct := model.ContractType{
		Name:         in.Name,
		Slug:         slug,
		Description:  in.Description,
		Price:        in.Price,
		Category:     in.Category,
		Icon:         in.Icon,
		Color:        in.Color,
		DisplayOrder: in.DisplayOrder,
		IsActive:     in.IsActive,
	}

	id, err := u.typeRepo.Create(ctx, ct)
	if err != nil {
		return ContractTypeResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	ct.ID = id

	if err := u.writeAudit(ctx, adminUserID, model.AuditActionCreateContractType, id, model.ContractType{}, ct); err != nil {
		return ContractTypeResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.invalidateCatalog()

	return toTypeResponse(ct), nil
}

// PUT /admin/contract-types/:id
func (u *CatalogUsecase) UpdateType(ctx context.Context, adminUserID int64, id int64, in UpsertContractTypeInput) (ContractTypeResponse, error) {
	if id <= 0 {
		return ContractTypeResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	existing, err := u.typeRepo.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return ContractTypeResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ContractTypeResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	slug := in.Slug
	if slug == "" {
		slug = existing.Slug
	}

	updated := model.ContractType{
		ID:           id,
		Name:         in.Name,
		Slug:         slug,
		Description:  in.Description,
		Price:        in.Price,
		Category:     in.Category,
		Icon:         in.Icon,
		Color:        in.Color,
		DisplayOrder: in.DisplayOrder,
		IsActive:     in.IsActive,
	}

	if err := u.typeRepo.Update(ctx, updated); err != nil {
		if err == repo.ErrNotFound {
			return ContractTypeResponse{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return ContractTypeResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.writeAudit(ctx, adminUserID, model.AuditActionUpdateContractType, id, existing, updated); err != nil {
		return ContractTypeResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.invalidateCatalog()

	return toTypeResponse(updated), nil
}

// DELETE /admin/contract-types/:id
func (u *CatalogUsecase) DeleteType(ctx context.Context, adminUserID int64, id int64) error {
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	//監査ログ用に削除前の状態を取る
	existing, err := u.typeRepo.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.typeRepo.Delete(ctx, id); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.writeAudit(ctx, adminUserID, model.AuditActionDeleteContractType, id, existing, model.ContractType{}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.invalidateCatalog()

	return nil
}

// GET /admin/audit-logs
func (u *CatalogUsecase) ListAuditLogs(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	logs, err := u.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return logs, nil
}

// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
// ゼロ値側（作成のbefore、削除のafter）は空文字列にする。
func (u *CatalogUsecase) writeAudit(ctx context.Context, actorUserID int64, action model.AuditAction, resourceID int64, before model.ContractType, after model.ContractType) error {
	beforeJSON := ""
	if before.ID != 0 {
		if data, err := json.Marshal(before); err == nil {
			beforeJSON = string(data)
		}
	}
	afterJSON := ""
	if after.ID != 0 {
		if data, err := json.Marshal(after); err == nil {
			afterJSON = string(data)
		}
	}

	return u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       action,
		ResourceType: model.AuditResourceContractType,
		ResourceID:   resourceID,
		BeforeJSON:   beforeJSON,
		AfterJSON:    afterJSON,
		CreatedAt:    time.Now(),
	})
}

// キャッシュ無効化はfire-and-forget。失敗してもTTLで回復する。
func (u *CatalogUsecase) invalidateCatalog() {
	if u.cache == nil {
		return
	}
	go func() {
		if err := u.cache.Invalidate(context.Background()); err != nil {
			log.Printf("catalog cache invalidation failed: %v", err)
		}
	}()
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// 名前からslugを作り、重複があれば-1, -2...を付けて一意にする
func (u *CatalogUsecase) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if base == "" {
		base = "contrato"
	}

	slug := base
	for counter := 1; ; counter++ {
		exists, err := u.typeRepo.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}

func toTypeResponse(ct model.ContractType) ContractTypeResponse {
	return ContractTypeResponse{
		ID:           ct.ID,
		Name:         ct.Name,
		Slug:         ct.Slug,
		Description:  ct.Description,
		Price:        ct.Price.StringFixed(2),
		Category:     ct.Category,
		Icon:         ct.Icon,
		Color:        ct.Color,
		DisplayOrder: ct.DisplayOrder,
		IsActive:     ct.IsActive,
	}
}

func toTypeResponses(types []model.ContractType) []ContractTypeResponse {
	out := make([]ContractTypeResponse, 0, len(types))
	for _, ct := range types {
		out = append(out, toTypeResponse(ct))
	}
	return out
}
