package usecase

import (
	"context"
	"net/http"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	typeRepo     repo.ContractTypeRepository
}

// DI
func NewCartUsecase(cartRepo repo.CartRepository, cartItemRepo repo.CartItemRepository, typeRepo repo.ContractTypeRepository) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		typeRepo:     typeRepo,
	}
}

type CartItemResponse struct {
	ID               int64  `json:"id"`
	ContractTypeID   int64  `json:"contract_type_id"`
	ContractTypeName string `json:"contract_type_name"`
	Quantity         int64  `json:"quantity"`
	UnitPrice        string `json:"unit_price"`
	Subtotal         string `json:"subtotal"`
}

type CartResponse struct {
	CartID    int64              `json:"cart_id"`
	Items     []CartItemResponse `json:"items"`
	ItemCount int64              `json:"item_count"`
	Total     string             `json:"total"`
}

// GET /cart
// 明細の単価はスナップショット、名前だけカタログの現在値を引く。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID, items)
}

type AddCartItemInput struct {
	ContractTypeID int64
	Quantity       int64
	// trueなら数量を上書き、falseなら加算
	Override bool
}

// POST /cart/items
func (u *CartUsecase) AddItem(ctx context.Context, userID int64, in AddCartItemInput) (CartResponse, error) {
	if in.ContractTypeID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid contract_type_id")
	}
	if in.Quantity <= 0 || in.Quantity > 99 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	ct, err := u.typeRepo.FindByID(ctx, in.ContractTypeID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "contract type not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !ct.IsActive {
		return CartResponse{}, NewHTTPError(http.StatusConflict, "contract type is not available")
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// 追加時点の価格をスナップショットとして保存
	if err := u.cartItemRepo.UpsertByCartAndType(ctx, cart.ID, ct.ID, in.Quantity, in.Override, ct.Price); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID, items)
}

// PUT /cart/items/:id
func (u *CartUsecase) UpdateItemQuantity(ctx context.Context, userID int64, cartItemID int64, qty int64) (CartResponse, error) {
	if qty < 0 || qty > 99 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	item, err := u.ownedItem(ctx, userID, cartItemID)
	if err != nil {
		return CartResponse{}, err
	}

	// 数量0は削除扱い
	if qty == 0 {
		if err := u.cartItemRepo.DeleteByID(ctx, item.ID); err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	} else {
		if err := u.cartItemRepo.UpdateQuantity(ctx, item.ID, qty); err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, item.CartID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, item.CartID, items)
}

// DELETE /cart/items/:id
func (u *CartUsecase) RemoveItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	item, err := u.ownedItem(ctx, userID, cartItemID)
	if err != nil {
		return CartResponse{}, err
	}

	if err := u.cartItemRepo.DeleteByID(ctx, item.ID); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, item.CartID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, item.CartID, items)
}

// DELETE /cart
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) error {
	cart, err := u.cartRepo.FindActiveByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		// 空のカートをクリアしても成功
		return nil
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartRepo.Clear(ctx, cart.ID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 他人の明細を触らせない
func (u *CartUsecase) ownedItem(ctx context.Context, userID int64, cartItemID int64) (model.CartItem, error) {
	if cartItemID <= 0 {
		return model.CartItem{}, NewHTTPError(http.StatusBadRequest, "invalid cart item id")
	}

	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return model.CartItem{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !owned {
		return model.CartItem{}, NewHTTPError(http.StatusNotFound, "cart item not found")
	}

	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if err == repo.ErrNotFound {
		return model.CartItem{}, NewHTTPError(http.StatusNotFound, "cart item not found")
	}
	if err != nil {
		return model.CartItem{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return item, nil
}

func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID int64, items []model.CartItem) (CartResponse, error) {
	resp := CartResponse{
		CartID: cartID,
		Items:  make([]CartItemResponse, 0, len(items)),
	}

	total := decimal.Zero
	for _, item := range items {
		name := ""
		ct, err := u.typeRepo.FindByID(ctx, item.ContractTypeID)
		if err == nil {
			name = ct.Name
		} else if err != repo.ErrNotFound {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		subtotal := item.UnitPriceSnapshot.Mul(decimal.NewFromInt(item.Quantity))
		total = total.Add(subtotal)
		resp.ItemCount += item.Quantity

		resp.Items = append(resp.Items, CartItemResponse{
			ID:               item.ID,
			ContractTypeID:   item.ContractTypeID,
			ContractTypeName: name,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPriceSnapshot.StringFixed(2),
			Subtotal:         subtotal.StringFixed(2),
		})
	}

	resp.Total = total.StringFixed(2)
	return resp, nil
}
