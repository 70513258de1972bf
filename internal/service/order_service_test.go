package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/models"

	"gorm.io/gorm"
)

func TestOrderCreateWritesInitialLogAndUpsertsCustomer(t *testing.T) {
	env := newTestEnv(t, nil)
	first := env.createOrder(t, "Ahmed", "055 123 4567")

	if first.Status != constants.OrderStatusNew {
		t.Fatalf("new order status want NEW got %s", first.Status)
	}
	if len(first.Code) != defaultCodeLength {
		t.Fatalf("unexpected code length: %s", first.Code)
	}
	if len(first.StatusLog) != 1 || first.StatusLog[0].From != nil || first.StatusLog[0].To != constants.OrderStatusNew {
		t.Fatalf("unexpected initial log: %+v", first.StatusLog)
	}
	if !strings.Contains(first.TrackingURL, "/track/"+first.Code+"?t=") {
		t.Fatalf("unexpected tracking url: %s", first.TrackingURL)
	}

	second := env.createOrder(t, "Ahmed Ali", "0551234567")
	if second.CustomerID != first.CustomerID {
		t.Fatalf("same phone should reuse customer: %d vs %d", first.CustomerID, second.CustomerID)
	}
	customer, err := env.customerRepo.GetByID(first.CustomerID)
	if err != nil || customer == nil {
		t.Fatalf("load customer failed: %v", err)
	}
	if customer.Name != "Ahmed Ali" || customer.Phone != "0551234567" {
		t.Fatalf("customer not upserted: %+v", customer)
	}
	if got := env.notifier.events(); len(got) != 2 || got[0] != constants.NotifyEventCreated {
		t.Fatalf("unexpected notify events: %v", got)
	}
}

func TestOrderCreateValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.orders.Create(context.Background(), CreateOrderInput{
		CustomerPhone: "0550000000",
		OriginalPrice: models.MustMoney("-1"),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	fields := map[string]bool{}
	for _, f := range FieldErrors(err) {
		fields[f.Field] = true
	}
	for _, want := range []string{"customer_name", "service", "original_price"} {
		if !fields[want] {
			t.Fatalf("missing field error %s in %+v", want, FieldErrors(err))
		}
	}
}

func TestOrderCreateRetriesOnCodeCollision(t *testing.T) {
	env := newTestEnv(t, nil)
	existing := env.createOrder(t, "Sara", "0559990000")

	codes := []string{existing.Code, existing.Code, "NEWCODE"}
	env.orders.codeGen = func(int) (string, error) {
		code := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return code, nil
	}
	order := env.createOrder(t, "Omar", "0559990001")
	if order.Code != "NEWCODE" {
		t.Fatalf("expected retry to land on NEWCODE, got %s", order.Code)
	}
}

func TestOrderCreateFallsBackToLongCode(t *testing.T) {
	env := newTestEnv(t, nil)
	existing := env.createOrder(t, "Sara", "0559990000")

	env.orders.maxRetries = 2
	env.orders.codeGen = func(int) (string, error) { return existing.Code, nil }
	order := env.createOrder(t, "Omar", "0559990001")
	if order.Code != existing.Code+existing.Code {
		t.Fatalf("expected concatenated fallback code, got %s", order.Code)
	}
}

func TestOrderSetStatusAppendsLog(t *testing.T) {
	env := newTestEnv(t, nil)
	order := env.createOrder(t, "Ahmed", "0551234567")

	updated, err := env.orders.SetStatus(context.Background(), order.ID, SetStatusInput{Status: "in_progress", Note: strPtr("opened device")})
	if err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if updated.Status != constants.OrderStatusInProgress {
		t.Fatalf("status want IN_PROGRESS got %s", updated.Status)
	}
	if len(updated.StatusLog) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(updated.StatusLog))
	}
	last := updated.StatusLog[1]
	if last.From == nil || *last.From != constants.OrderStatusNew || last.To != constants.OrderStatusInProgress {
		t.Fatalf("unexpected log entry: %+v", last)
	}
	if last.Note == nil || *last.Note != "opened device" {
		t.Fatalf("note not stored: %+v", last.Note)
	}

	again, err := env.orders.SetStatus(context.Background(), order.ID, SetStatusInput{Status: constants.OrderStatusInProgress})
	if err != nil {
		t.Fatalf("same-status change should be accepted: %v", err)
	}
	if len(again.StatusLog) != 3 {
		t.Fatalf("same-status change should still append a log, got %d", len(again.StatusLog))
	}
}

func TestOrderSetStatusRejections(t *testing.T) {
	env := newTestEnv(t, nil)
	order := env.createOrder(t, "Ahmed", "0551234567")
	ctx := context.Background()

	if _, err := env.orders.SetStatus(ctx, order.ID, SetStatusInput{Status: "BROKEN"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown status should be invalid input, got %v", err)
	}
	if _, err := env.orders.SetStatus(ctx, order.ID, SetStatusInput{Status: constants.OrderStatusDelivered}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("DELIVERED through SetStatus should be rejected, got %v", err)
	}
	if _, err := env.orders.SetStatus(ctx, 9999, SetStatusInput{Status: constants.OrderStatusReady}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing order should be not found, got %v", err)
	}

	if _, err := env.delivery.Deliver(ctx, order.ID, DeliverInput{CollectedPrice: models.MustMoney("350")}); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if _, err := env.orders.SetStatus(ctx, order.ID, SetStatusInput{Status: constants.OrderStatusReady}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("leaving DELIVERED should be rejected, got %v", err)
	}
}

func TestOrderSetStatusIsAtomic(t *testing.T) {
	env := newTestEnv(t, nil)
	order := env.createOrder(t, "Ahmed", "0551234567")

	forced := errors.New("forced status log failure")
	err := env.db.Callback().Create().Before("gorm:create").Register("test:fail_status_log", func(tx *gorm.DB) {
		if tx.Statement.Table == "order_status_logs" {
			_ = tx.AddError(forced)
		}
	})
	if err != nil {
		t.Fatalf("register callback failed: %v", err)
	}

	if _, err := env.orders.SetStatus(context.Background(), order.ID, SetStatusInput{Status: constants.OrderStatusReady}); !errors.Is(err, forced) {
		t.Fatalf("expected forced failure, got %v", err)
	}

	stored, err := env.orderRepo.GetDetail(order.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.Status != constants.OrderStatusNew {
		t.Fatalf("status must roll back with the log, got %s", stored.Status)
	}
	if len(stored.StatusLog) != 1 {
		t.Fatalf("no log should be written, got %d", len(stored.StatusLog))
	}
}

func TestOrderUpdateLockedAfterDelivery(t *testing.T) {
	env := newTestEnv(t, nil)
	order := env.createOrder(t, "Ahmed", "0551234567")
	ctx := context.Background()

	updated, err := env.orders.Update(order.ID, UpdateOrderInput{
		Service:     strPtr("battery"),
		ExtraCharge: moneyPtr("0"),
		ExtraReason: strPtr("ignored without charge"),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Service != "battery" || updated.ExtraReason != nil {
		t.Fatalf("unexpected update result: service=%s reason=%v", updated.Service, updated.ExtraReason)
	}

	if _, err := env.delivery.Deliver(ctx, order.ID, DeliverInput{CollectedPrice: models.MustMoney("200")}); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if _, err := env.orders.Update(order.ID, UpdateOrderInput{Service: strPtr("screen")}); !errors.Is(err, ErrAlreadyDelivered) {
		t.Fatalf("edit after delivery should be rejected, got %v", err)
	}
}

func TestOrderTrackHidesPricesWithoutValidTag(t *testing.T) {
	env := newTestEnv(t, nil)
	order := env.createOrder(t, "Ahmed", "0551234567")

	view, err := env.orders.Track(strings.ToLower(order.Code), env.signer.Sign(order.Code))
	if err != nil {
		t.Fatalf("track failed: %v", err)
	}
	if !view.Verified || view.OriginalPrice == nil || view.OriginalPrice.StringFixed(2) != "350.00" {
		t.Fatalf("verified view should carry prices: %+v", view)
	}
	if len(view.Steps) != 1 || view.Steps[0].Status != constants.OrderStatusNew {
		t.Fatalf("unexpected steps: %+v", view.Steps)
	}

	view, err = env.orders.Track(order.Code, "deadbeef0000")
	if err != nil {
		t.Fatalf("track with bad tag failed: %v", err)
	}
	if view.Verified || view.OriginalPrice != nil || view.Collected != nil {
		t.Fatalf("unverified view must not carry prices: %+v", view)
	}

	if _, err := env.orders.Track("NOPE123", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown code should be not found, got %v", err)
	}
}

func TestOrderListFilters(t *testing.T) {
	env := newTestEnv(t, nil)
	first := env.createOrder(t, "Ahmed", "0551234567")
	env.createOrder(t, "Sara", "0559876543")
	if _, err := env.orders.SetStatus(context.Background(), first.ID, SetStatusInput{Status: constants.OrderStatusReady}); err != nil {
		t.Fatalf("set status failed: %v", err)
	}

	orders, total, err := env.orders.List(repositoryOrderFilter("ready", ""))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(orders) != 1 || orders[0].ID != first.ID {
		t.Fatalf("status filter mismatch: total=%d", total)
	}

	orders, total, err = env.orders.List(repositoryOrderFilter("", "٠٥٥٩٨٧٦٥٤٣"))
	if err != nil {
		t.Fatalf("list by phone failed: %v", err)
	}
	if total != 1 || orders[0].Customer == nil || orders[0].Customer.Name != "Sara" {
		t.Fatalf("phone filter mismatch: total=%d", total)
	}

	if _, _, err := env.orders.List(repositoryOrderFilter("LOST", "")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown status filter should be invalid input, got %v", err)
	}
}

func TestOrderDeleteRemovesLogs(t *testing.T) {
	env := newTestEnv(t, nil)
	order := env.createOrder(t, "Ahmed", "0551234567")
	if err := env.orders.Delete(order.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := env.orders.Get(order.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted order should be not found, got %v", err)
	}
	logs, err := env.orderRepo.ListStatusLogs(order.ID)
	if err != nil {
		t.Fatalf("list logs failed: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("logs should be removed with the order, got %d", len(logs))
	}
}
