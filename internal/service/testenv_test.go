package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/receipt"
	"github.com/snipero7/qr24-sub000/internal/repository"
	"github.com/snipero7/qr24-sub000/internal/storage"

	"gorm.io/gorm"
)

type testEnv struct {
	db           *gorm.DB
	orderRepo    *repository.GormOrderRepository
	customerRepo *repository.GormCustomerRepository
	debtRepo     *repository.GormDebtRepository
	backupRepo   *repository.GormBackupLogRepository
	settings     *SettingService
	storage      *StorageService
	signer       *CodeSigner
	notifier     *recordingNotifier
	orders       *OrderService
	receipts     *ReceiptService
	delivery     *DeliveryService
	debts        *DebtService
	customers    *CustomerService
}

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := models.OpenDB("sqlite", dsn, "silent", models.DBPoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T, renderer receipt.Renderer) *testEnv {
	t.Helper()
	db := openServiceTestDB(t)
	env := &testEnv{
		db:           db,
		orderRepo:    repository.NewOrderRepository(db),
		customerRepo: repository.NewCustomerRepository(db),
		debtRepo:     repository.NewDebtRepository(db),
		backupRepo:   repository.NewBackupLogRepository(db),
		signer:       NewCodeSigner("test-secret", "https://fix.example"),
		notifier:     &recordingNotifier{},
	}
	env.settings = NewSettingService(repository.NewSettingRepository(db))
	env.storage = NewStorageService(storage.NewLocalSink(t.TempDir(), "/files"), env.settings)
	env.orders = NewOrderService(env.orderRepo, env.customerRepo, env.signer, env.notifier, OrderServiceOptions{})
	env.receipts = NewReceiptService(env.orderRepo, env.settings, env.storage, renderer, env.signer, time.UTC)
	env.delivery = NewDeliveryService(env.orderRepo, env.orders, env.receipts, nil, env.notifier)
	env.debts = NewDebtService(env.debtRepo)
	env.customers = NewCustomerService(env.customerRepo, env.orderRepo)
	return env
}

func (env *testEnv) createOrder(t *testing.T, name, phone string) *OrderDetail {
	t.Helper()
	order, err := env.orders.Create(context.Background(), CreateOrderInput{
		CustomerName:  name,
		CustomerPhone: phone,
		DeviceModel:   "iPhone 13",
		Service:       "screen replacement",
		OriginalPrice: models.MustMoney("350"),
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

type notifyCall struct {
	OrderID uint
	Event   string
	Status  string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *recordingNotifier) Dispatch(_ context.Context, orderID uint, event, status string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{OrderID: orderID, Event: event, Status: status})
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	events := make([]string, 0, len(n.calls))
	for _, call := range n.calls {
		events = append(events, call.Event)
	}
	return events
}

type stubRenderer struct {
	err   error
	calls int
}

func (r *stubRenderer) Render(data receipt.Data) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4 " + data.Code), nil
}

func strPtr(v string) *string {
	return &v
}

func moneyPtr(raw string) *models.Money {
	m := models.MustMoney(raw)
	return &m
}

func repositoryOrderFilter(status, phone string) repository.OrderListFilter {
	return repository.OrderListFilter{Page: 1, PageSize: 20, Status: status, Phone: phone}
}
