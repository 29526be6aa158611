package server

import (
	"app/internal/config"
	"app/internal/handler"
	"app/internal/repository"

	"github.com/labstack/echo/v4"
)

// Handlers はルート登録に必要なハンドラ一式
type Handlers struct {
	Auth              *handler.AuthHandler
	Catalog           *handler.CatalogHandler
	AdminContractType *handler.AdminContractTypeHandler
	Cart              *handler.CartHandler
	Checkout          *handler.CheckoutHandler
	Contract          *handler.ContractHandler
	PaymentWebhook    *handler.PaymentWebhookHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	h.Auth.RegisterRoutes(e, cfg, userRepo)
	h.Catalog.RegisterRoutes(e)
	h.AdminContractType.RegisterRoutes(e, cfg, userRepo)
	h.Cart.RegisterRoutes(e, cfg, userRepo)
	h.Checkout.RegisterRoutes(e, cfg, userRepo)
	h.Contract.RegisterRoutes(e, cfg, userRepo)
	h.PaymentWebhook.RegisterRoutes(e)
}
