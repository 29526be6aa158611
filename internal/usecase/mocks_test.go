package usecase_test

import (
	"context"
	"sync"
	"time"

	"app/internal/domain/model"
	"app/internal/gateway/mercadopago"
	"app/internal/infra/cache"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks
// =====================

type ContractTypeRepoMock struct{ mock.Mock }

func (m *ContractTypeRepoMock) ListActive(ctx context.Context) ([]model.ContractType, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.ContractType)
	return items, args.Error(1)
}

func (m *ContractTypeRepoMock) FindByID(ctx context.Context, id int64) (model.ContractType, error) {
	args := m.Called(ctx, id)
	ct, _ := args.Get(0).(model.ContractType)
	return ct, args.Error(1)
}

func (m *ContractTypeRepoMock) FindBySlug(ctx context.Context, slug string) (model.ContractType, error) {
	args := m.Called(ctx, slug)
	ct, _ := args.Get(0).(model.ContractType)
	return ct, args.Error(1)
}

func (m *ContractTypeRepoMock) Create(ctx context.Context, ct model.ContractType) (int64, error) {
	args := m.Called(ctx, ct)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ContractTypeRepoMock) Update(ctx context.Context, ct model.ContractType) error {
	args := m.Called(ctx, ct)
	return args.Error(0)
}

func (m *ContractTypeRepoMock) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ContractTypeRepoMock) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

type AuditLogRepoMock struct{ mock.Mock }

func (m *AuditLogRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditLogRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) FindActiveByUserIDForUpdate(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	args := m.Called(ctx, cartID, status)
	return args.Error(0)
}

func (m *CartRepoMock) Clear(ctx context.Context, cartID int64) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) UpsertByCartAndType(ctx context.Context, cartID int64, contractTypeID int64, qty int64, override bool, unitPriceSnapshot decimal.Decimal) error {
	args := m.Called(ctx, cartID, contractTypeID, qty, override, unitPriceSnapshot)
	return args.Error(0)
}

func (m *CartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	args := m.Called(ctx, cartItemID, qty)
	return args.Error(0)
}

func (m *CartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	args := m.Called(ctx, cartItemID)
	return args.Error(0)
}

func (m *CartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID)
	item, _ := args.Get(0).(model.CartItem)
	return item, args.Error(1)
}

func (m *CartItemRepoMock) IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error) {
	args := m.Called(ctx, cartItemID, userID)
	return args.Bool(0), args.Error(1)
}

type ContractRepoMock struct{ mock.Mock }

func (m *ContractRepoMock) FindByID(ctx context.Context, contractID int64) (model.Contract, error) {
	args := m.Called(ctx, contractID)
	c, _ := args.Get(0).(model.Contract)
	return c, args.Error(1)
}

func (m *ContractRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Contract, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	items, _ := args.Get(0).([]model.Contract)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *ContractRepoMock) StatusCountsByUserID(ctx context.Context, userID int64) (map[model.ContractStatus]int64, error) {
	args := m.Called(ctx, userID)
	counts, _ := args.Get(0).(map[model.ContractStatus]int64)
	return counts, args.Error(1)
}

func (m *ContractRepoMock) Create(ctx context.Context, contract model.Contract) (int64, error) {
	args := m.Called(ctx, contract)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ContractRepoMock) UpdateStatus(ctx context.Context, contractID int64, status model.ContractStatus) error {
	args := m.Called(ctx, contractID, status)
	return args.Error(0)
}

func (m *ContractRepoMock) SetPDFFile(ctx context.Context, contractID int64, path string) error {
	args := m.Called(ctx, contractID, path)
	return args.Error(0)
}

type PaymentRepoMock struct{ mock.Mock }

func (m *PaymentRepoMock) FindByID(ctx context.Context, paymentID int64) (model.Payment, error) {
	args := m.Called(ctx, paymentID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) FindByContractID(ctx context.Context, contractID int64) (model.Payment, error) {
	args := m.Called(ctx, contractID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) FindByContractIDForUpdate(ctx context.Context, contractID int64) (model.Payment, error) {
	args := m.Called(ctx, contractID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) GetOrCreateByContractID(ctx context.Context, contractID int64, defaultAmount decimal.Decimal) (model.Payment, error) {
	args := m.Called(ctx, contractID, defaultAmount)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) Create(ctx context.Context, payment model.Payment) (int64, error) {
	args := m.Called(ctx, payment)
	return args.Get(0).(int64), args.Error(1)
}

func (m *PaymentRepoMock) UpdateStatus(ctx context.Context, paymentID int64, status model.PaymentStatus) error {
	args := m.Called(ctx, paymentID, status)
	return args.Error(0)
}

func (m *PaymentRepoMock) SetPreference(ctx context.Context, paymentID int64, preferenceID string, externalReference string) error {
	args := m.Called(ctx, paymentID, preferenceID, externalReference)
	return args.Error(0)
}

func (m *PaymentRepoMock) MarkApproved(ctx context.Context, paymentID int64, transactionID string, paidAt time.Time) error {
	args := m.Called(ctx, paymentID, transactionID, paidAt)
	return args.Error(0)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) CreatePreference(ctx context.Context, in mercadopago.PreferenceInput) (mercadopago.Preference, error) {
	args := m.Called(ctx, in)
	p, _ := args.Get(0).(mercadopago.Preference)
	return p, args.Error(1)
}

func (m *GatewayMock) GetPaymentInfo(ctx context.Context, paymentID string) (mercadopago.PaymentInfo, error) {
	args := m.Called(ctx, paymentID)
	info, _ := args.Get(0).(mercadopago.PaymentInfo)
	return info, args.Error(1)
}

// =====================
// Tx stubs
// =====================

// TxManager代わりのスタブ。渡したrepoをそのままfnに見せる。
// commit/rollbackの境界はGORM側の責務なのでここでは検証しない。
type txReposStub struct {
	contracts     *ContractRepoMock
	payments      *PaymentRepoMock
	carts         *CartRepoMock
	cartItems     *CartItemRepoMock
	contractTypes *ContractTypeRepoMock
}

func (s *txReposStub) Contracts() repo.ContractRepository         { return s.contracts }
func (s *txReposStub) Payments() repo.PaymentRepository           { return s.payments }
func (s *txReposStub) Carts() repo.CartRepository                 { return s.carts }
func (s *txReposStub) CartItems() repo.CartItemRepository         { return s.cartItems }
func (s *txReposStub) ContractTypes() repo.ContractTypeRepository { return s.contractTypes }

type txManagerStub struct {
	repos *txReposStub
}

func (tm *txManagerStub) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(tm.repos)
}

// =====================
// Clock / IDGen / stores
// =====================

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type fixedIDGen struct{ id string }

func (g *fixedIDGen) NewID() string { return g.id }

// read-onceの振る舞いを再現するインメモリ実装
type memSummaryStore struct {
	data map[string][]byte
}

func newMemSummaryStore() *memSummaryStore {
	return &memSummaryStore{data: map[string][]byte{}}
}

func (s *memSummaryStore) Put(ctx context.Context, key string, summary []byte) error {
	s.data[key] = summary
	return nil
}

func (s *memSummaryStore) Take(ctx context.Context, key string) ([]byte, error) {
	v, ok := s.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	delete(s.data, key)
	return v, nil
}

// カタログキャッシュのインメモリ実装。
// Invalidateはgoroutineから呼ばれるのでロックする。
type memCatalogCache struct {
	mu    sync.Mutex
	types []model.ContractType
	has   bool
}

func (c *memCatalogCache) GetActiveTypes(ctx context.Context) ([]model.ContractType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.has {
		return nil, cache.ErrCacheMiss
	}
	return c.types, nil
}

func (c *memCatalogCache) SetActiveTypes(ctx context.Context, types []model.ContractType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = types
	c.has = true
	return nil
}

func (c *memCatalogCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = nil
	c.has = false
	return nil
}
