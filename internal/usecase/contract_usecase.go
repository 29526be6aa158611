package usecase

import (
	"context"
	"net/http"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type ContractUsecase struct {
	contractRepo repo.ContractRepository
	paymentRepo  repo.PaymentRepository
	typeRepo     repo.ContractTypeRepository
}

// DI
func NewContractUsecase(contractRepo repo.ContractRepository, paymentRepo repo.PaymentRepository, typeRepo repo.ContractTypeRepository) *ContractUsecase {
	return &ContractUsecase{
		contractRepo: contractRepo,
		paymentRepo:  paymentRepo,
		typeRepo:     typeRepo,
	}
}

type ContractListItem struct {
	ID            int64  `json:"id"`
	TypeName      string `json:"type_name"`
	Subject       string `json:"subject"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Value         string `json:"value"`
	CreatedAt     string `json:"created_at"`
	HasDocument   bool   `json:"has_document"`
}

type ContractListResponse struct {
	Contracts      []ContractListItem `json:"contracts"`
	Total          int64              `json:"total"`
	PaidCount      int64              `json:"paid_count"`
	PendingCount   int64              `json:"pending_count"`
	CancelledCount int64              `json:"cancelled_count"`
	Page           int                `json:"page"`
	Limit          int                `json:"limit"`
}

// GET /contracts
func (u *ContractUsecase) List(ctx context.Context, userID int64, page int, limit int) (ContractListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	contracts, total, err := u.contractRepo.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return ContractListResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	counts, err := u.contractRepo.StatusCountsByUserID(ctx, userID)
	if err != nil {
		return ContractListResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	resp := ContractListResponse{
		Contracts:      make([]ContractListItem, 0, len(contracts)),
		Total:          total,
		PaidCount:      counts[model.ContractStatusPaid],
		PendingCount:   counts[model.ContractStatusPending],
		CancelledCount: counts[model.ContractStatusCancelled],
		Page:           page,
		Limit:          limit,
	}

	for _, c := range contracts {
		item := ContractListItem{
			ID:          c.ID,
			Subject:     c.Subject,
			Status:      string(c.Status),
			Value:       c.Value.StringFixed(2),
			CreatedAt:   c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			HasDocument: c.PDFFile != nil,
		}

		if ct, err := u.typeRepo.FindByID(ctx, c.ContractTypeID); err == nil {
			item.TypeName = ct.Name
		}
		if p, err := u.paymentRepo.FindByContractID(ctx, c.ID); err == nil {
			item.PaymentStatus = string(p.Status)
		}

		resp.Contracts = append(resp.Contracts, item)
	}

	return resp, nil
}

type ContractDetailResponse struct {
	ID             int64   `json:"id"`
	ContractTypeID int64   `json:"contract_type_id"`
	TypeName       string  `json:"type_name"`
	Status         string  `json:"status"`
	Party1Name     string  `json:"party1_name"`
	Party1Document string  `json:"party1_document"`
	Party1Address  string  `json:"party1_address"`
	Party2Name     string  `json:"party2_name"`
	Party2Document string  `json:"party2_document"`
	Party2Address  string  `json:"party2_address"`
	Subject        string  `json:"subject"`
	Value          string  `json:"value"`
	PaymentTerms   string  `json:"payment_terms"`
	StartDate      string  `json:"start_date"`
	Term           string  `json:"term"`
	SpecificData   string  `json:"specific_data"`
	PaymentStatus  string  `json:"payment_status"`
	PaymentDate    *string `json:"payment_date"`
	HasDocument    bool    `json:"has_document"`
}

// GET /contracts/:id
// 他人のContractは存在ごと隠す（404）。
func (u *ContractUsecase) Detail(ctx context.Context, userID int64, contractID int64) (ContractDetailResponse, error) {
	if contractID <= 0 {
		return ContractDetailResponse{}, NewHTTPError(http.StatusBadRequest, "invalid contract id")
	}

	c, err := u.contractRepo.FindByID(ctx, contractID)
	if err == repo.ErrNotFound {
		return ContractDetailResponse{}, NewHTTPError(http.StatusNotFound, "contract not found")
	}
	if err != nil {
		return ContractDetailResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if c.UserID == nil || *c.UserID != userID {
		return ContractDetailResponse{}, NewHTTPError(http.StatusNotFound, "contract not found")
	}

	resp := ContractDetailResponse{
		ID:             c.ID,
		ContractTypeID: c.ContractTypeID,
		Status:         string(c.Status),
		Party1Name:     c.Party1Name,
		Party1Document: c.Party1Document,
		Party1Address:  c.Party1Address,
		Party2Name:     c.Party2Name,
		Party2Document: c.Party2Document,
		Party2Address:  c.Party2Address,
		Subject:        c.Subject,
		Value:          c.Value.StringFixed(2),
		PaymentTerms:   c.PaymentTerms,
		StartDate:      c.StartDate.Format("2006-01-02"),
		Term:           c.Term,
		SpecificData:   c.SpecificData,
		HasDocument:    c.PDFFile != nil,
	}

	if ct, err := u.typeRepo.FindByID(ctx, c.ContractTypeID); err == nil {
		resp.TypeName = ct.Name
	}
	if p, err := u.paymentRepo.FindByContractID(ctx, c.ID); err == nil {
		resp.PaymentStatus = string(p.Status)
		if p.PaymentDate != nil {
			s := p.PaymentDate.UTC().Format("2006-01-02T15:04:05Z07:00")
			resp.PaymentDate = &s
		}
	}

	return resp, nil
}
