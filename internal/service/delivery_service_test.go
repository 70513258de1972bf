package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/models"
)

func TestDeliverLocksOrderAndIsIdempotent(t *testing.T) {
	renderer := &stubRenderer{}
	env := newTestEnv(t, renderer)
	order := env.createOrder(t, "Ahmed", "0551234567")
	ctx := context.Background()

	result, err := env.delivery.Deliver(ctx, order.ID, DeliverInput{
		CollectedPrice: models.MustMoney("380"),
		ExtraCharge:    moneyPtr("30"),
		ExtraReason:    strPtr("adhesive"),
		PaymentMethod:  strPtr("cash"),
	})
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if result.ReceiptErr != nil || result.ReceiptURL == nil {
		t.Fatalf("receipt should be generated inline: url=%v err=%v", result.ReceiptURL, result.ReceiptErr)
	}
	delivered := result.Order
	if delivered.Status != constants.OrderStatusDelivered || !delivered.IsLocked() {
		t.Fatalf("order should be delivered and locked: %+v", delivered.Order)
	}
	if delivered.CollectedPrice.StringFixed(2) != "380.00" || delivered.CollectedAt == nil {
		t.Fatalf("collection not recorded: %+v", delivered.Order)
	}
	if delivered.PaymentMethod == nil || *delivered.PaymentMethod != constants.PaymentMethodCash {
		t.Fatalf("payment method not normalized: %v", delivered.PaymentMethod)
	}
	if delivered.ExtraReason == nil || *delivered.ExtraReason != "adhesive" {
		t.Fatalf("extra reason not stored: %v", delivered.ExtraReason)
	}
	if len(delivered.StatusLog) != 2 {
		t.Fatalf("expected creation and delivery logs, got %d", len(delivered.StatusLog))
	}

	_, err = env.delivery.Deliver(ctx, order.ID, DeliverInput{CollectedPrice: models.MustMoney("1")})
	if !errors.Is(err, ErrAlreadyDelivered) {
		t.Fatalf("second delivery should be rejected, got %v", err)
	}
	again, err := env.orders.Get(order.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if again.CollectedPrice.StringFixed(2) != "380.00" || len(again.StatusLog) != 2 {
		t.Fatalf("rejected delivery must not change the order: %+v", again.Order)
	}
	if renderer.calls != 1 {
		t.Fatalf("receipt should render once, got %d", renderer.calls)
	}

	events := env.notifier.events()
	if events[len(events)-1] != constants.NotifyEventDelivered {
		t.Fatalf("delivery should dispatch a notification: %v", events)
	}
}

func TestDeliverConcurrentCallsDeliverOnce(t *testing.T) {
	env := newTestEnv(t, &stubRenderer{})
	order := env.createOrder(t, "Ahmed", "0551234567")
	ctx := context.Background()

	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.delivery.Deliver(ctx, order.ID, DeliverInput{CollectedPrice: models.MustMoney("350")})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadyDelivered):
		default:
			t.Fatalf("unexpected delivery error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("exactly one delivery should succeed, got %d", succeeded)
	}
	logs, err := env.orderRepo.ListStatusLogs(order.ID)
	if err != nil {
		t.Fatalf("list logs failed: %v", err)
	}
	delivered := 0
	for _, entry := range logs {
		if entry.To == constants.OrderStatusDelivered {
			delivered++
		}
	}
	if delivered != 1 {
		t.Fatalf("expected one delivered log, got %d", delivered)
	}
}

func TestDeliverValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	order := env.createOrder(t, "Ahmed", "0551234567")

	_, err := env.delivery.Deliver(context.Background(), order.ID, DeliverInput{
		CollectedPrice: models.MustMoney("0"),
		ExtraCharge:    moneyPtr("-5"),
		PaymentMethod:  strPtr("card"),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if got := len(FieldErrors(err)); got != 3 {
		t.Fatalf("expected 3 field errors, got %+v", FieldErrors(err))
	}
	if _, err := env.delivery.Deliver(context.Background(), 4242, DeliverInput{CollectedPrice: models.MustMoney("10")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing order should be not found, got %v", err)
	}
}

func TestDeliverSucceedsWhenReceiptFails(t *testing.T) {
	renderer := &stubRenderer{err: errors.New("font missing")}
	env := newTestEnv(t, renderer)
	order := env.createOrder(t, "Ahmed", "0551234567")
	ctx := context.Background()

	result, err := env.delivery.Deliver(ctx, order.ID, DeliverInput{CollectedPrice: models.MustMoney("350")})
	if err != nil {
		t.Fatalf("delivery must not fail on receipt errors: %v", err)
	}
	if result.ReceiptErr == nil || result.ReceiptURL != nil {
		t.Fatalf("receipt error should be reported separately: %+v", result)
	}
	if result.Order.Status != constants.OrderStatusDelivered || result.Order.ReceiptURL != nil {
		t.Fatalf("order should be delivered without a receipt: %+v", result.Order.Order)
	}

	renderer.err = nil
	regenerated, err := env.delivery.RegenerateReceipt(ctx, order.ID)
	if err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	if regenerated.ReceiptURL == nil || !strings.HasSuffix(*regenerated.ReceiptURL, ReceiptKey(order.Code)) {
		t.Fatalf("receipt url not stored: %v", regenerated.ReceiptURL)
	}
	path := filepath.Join(env.storage.Local().Dir(), "receipts", order.Code+".pdf")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("receipt file missing: %v", err)
	}
	if !strings.HasPrefix(string(raw), "%PDF-") {
		t.Fatalf("unexpected receipt content: %q", raw)
	}
}

func TestRegenerateReceiptWithoutRenderer(t *testing.T) {
	env := newTestEnv(t, nil)
	order := env.createOrder(t, "Ahmed", "0551234567")
	if _, err := env.delivery.RegenerateReceipt(context.Background(), order.ID); !errors.Is(err, ErrReceiptUnavailable) {
		t.Fatalf("expected receipt unavailable, got %v", err)
	}
}
