package main

import (
	"log"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/gateway/mercadopago"
	"app/internal/handler"
	"app/internal/infra/cache"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/server"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	// .envが無い環境（コンテナ等）では環境変数だけで動く
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatal(err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.ContractType{},
		&model.Cart{},
		&model.CartItem{},
		&model.Contract{},
		&model.Payment{},
		&model.AuditLog{},
	); err != nil {
		log.Fatal(err)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	typeRepo := infraRepo.NewContractTypeGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	contractRepo := infraRepo.NewContractGormRepository(gormDB)
	paymentRepo := infraRepo.NewPaymentGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//Redis（REDIS_ADDRが空ならキャッシュなしで動かす）
	var redisCache *cache.RedisCache
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		redisCache = cache.NewRedisCache(redisClient)
	}

	//Mercado Pagoクライアント
	gateway := mercadopago.NewClient(mercadopago.Config{
		AccessToken:     cfg.MPAccessToken,
		CallbackBaseURL: cfg.CallbackBaseURL,
		Timeout:         10 * time.Second,
	})

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}

	var catalogCache cache.CatalogCache
	var summaryStore cache.CheckoutSummaryStore
	if redisCache != nil {
		catalogCache = redisCache
		summaryStore = redisCache
	}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, validator.NewAuthValidator(userRepo))
	catalogUC := usecase.NewCatalogUsecase(typeRepo, auditRepo, catalogCache)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, typeRepo)
	checkoutUC := usecase.NewCheckoutUsecase(txManager, summaryStore, validator.NewCheckoutValidator(), idGen, clock)
	paymentUC := usecase.NewPaymentUsecase(txManager, contractRepo, paymentRepo, userRepo, gateway, clock)
	contractUC := usecase.NewContractUsecase(contractRepo, paymentRepo, typeRepo)

	//Handler生成
	handlers := server.Handlers{
		Auth:              handler.NewAuthHandler(authUC),
		Catalog:           handler.NewCatalogHandler(catalogUC),
		AdminContractType: handler.NewAdminContractTypeHandler(catalogUC),
		Cart:              handler.NewCartHandler(cartUC),
		Checkout:          handler.NewCheckoutHandler(checkoutUC),
		Contract:          handler.NewContractHandler(contractUC, paymentUC),
		PaymentWebhook:    handler.NewPaymentWebhookHandler(paymentUC),
	}

	//Server起動
	e := server.New(cfg)
	server.RegisterRoutes(e, cfg, userRepo, handlers)

	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
