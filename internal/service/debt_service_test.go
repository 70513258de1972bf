package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/repository"

	"github.com/shopspring/decimal"
)

func debtStatusRank(status string) int {
	switch status {
	case constants.DebtStatusOpen:
		return 0
	case constants.DebtStatusPartial:
		return 1
	case constants.DebtStatusPaid:
		return 2
	default:
		return -1
	}
}

func TestRecomputeDebtStatus(t *testing.T) {
	cases := []struct {
		amount string
		paid   string
		want   string
	}{
		{"100", "0", constants.DebtStatusOpen},
		{"100", "0.01", constants.DebtStatusPartial},
		{"100", "99.99", constants.DebtStatusPartial},
		{"100", "100", constants.DebtStatusPaid},
		{"100", "120", constants.DebtStatusPaid},
	}
	for _, tc := range cases {
		got := RecomputeDebtStatus(decimal.RequireFromString(tc.amount), decimal.RequireFromString(tc.paid))
		if got != tc.want {
			t.Fatalf("amount=%s paid=%s want %s got %s", tc.amount, tc.paid, tc.want, got)
		}
	}
}

func TestDebtPaymentsNeverLowerStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	debt, err := env.debts.Create(CreateDebtInput{ShopName: "Mobile Zone", Service: "10x screens", Amount: models.MustMoney("100")})
	if err != nil {
		t.Fatalf("create debt failed: %v", err)
	}
	if debt.Status != constants.DebtStatusOpen {
		t.Fatalf("new debt should be OPEN, got %s", debt.Status)
	}

	rank := debtStatusRank(debt.Status)
	for _, amount := range []string{"30", "25.50", "44.50", "10"} {
		detail, err := env.debts.AddPayment(debt.ID, models.MustMoney(amount))
		if err != nil {
			t.Fatalf("add payment %s failed: %v", amount, err)
		}
		next := debtStatusRank(detail.Status)
		if next < rank {
			t.Fatalf("status went backwards after payment %s: %s", amount, detail.Status)
		}
		rank = next
	}

	final, err := env.debts.Get(debt.ID)
	if err != nil {
		t.Fatalf("get debt failed: %v", err)
	}
	if final.Status != constants.DebtStatusPaid || final.TotalPaid.StringFixed(2) != "110.00" || final.Remaining.StringFixed(2) != "0.00" {
		t.Fatalf("unexpected final debt: status=%s paid=%s remaining=%s", final.Status, final.TotalPaid, final.Remaining)
	}
	if len(final.Payments) != 4 {
		t.Fatalf("expected 4 payments, got %d", len(final.Payments))
	}
}

func TestDebtPaymentValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.debts.AddPayment(1, models.MustMoney("0")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero payment should be invalid, got %v", err)
	}
	if _, err := env.debts.AddPayment(999, models.MustMoney("5")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing debt should be not found, got %v", err)
	}
	if _, err := env.debts.Create(CreateDebtInput{ShopName: "X", Service: "Y", Amount: models.MustMoney("-3")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative amount should be invalid, got %v", err)
	}
}

func TestDebtUpdateAmountRecomputesStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	debt, err := env.debts.Create(CreateDebtInput{ShopName: "Mobile Zone", Service: "parts", Amount: models.MustMoney("50")})
	if err != nil {
		t.Fatalf("create debt failed: %v", err)
	}
	if _, err := env.debts.AddPayment(debt.ID, models.MustMoney("50")); err != nil {
		t.Fatalf("add payment failed: %v", err)
	}
	updated, err := env.debts.Update(debt.ID, UpdateDebtInput{Amount: moneyPtr("80")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != constants.DebtStatusPartial || updated.Remaining.StringFixed(2) != "30.00" {
		t.Fatalf("amount change should recompute status: %s remaining %s", updated.Status, updated.Remaining)
	}
}

func TestDebtSummaryAndDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	a, _ := env.debts.Create(CreateDebtInput{ShopName: "A", Service: "s", Amount: models.MustMoney("100")})
	b, _ := env.debts.Create(CreateDebtInput{ShopName: "B", Service: "s", Amount: models.MustMoney("40")})
	if _, err := env.debts.AddPayment(a.ID, models.MustMoney("25")); err != nil {
		t.Fatalf("add payment failed: %v", err)
	}

	summary, err := env.debts.Summary()
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.OpenCount != 1 || summary.PartialCount != 1 || summary.PaidCount != 0 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.TotalAmount.StringFixed(2) != "140.00" || summary.TotalPaid.StringFixed(2) != "25.00" || summary.TotalOutstanding.StringFixed(2) != "115.00" {
		t.Fatalf("unexpected totals: %+v", summary)
	}

	if err := env.debts.Delete(b.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	items, total, err := env.debts.List(repository.DebtListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || items[0].ID != a.ID {
		t.Fatalf("unexpected list after delete: total=%d", total)
	}
}

func TestDebtConcurrentPaymentsSettleStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	debt, err := env.debts.Create(CreateDebtInput{ShopName: "Mobile Zone", Service: "parts", Amount: models.MustMoney("100")})
	if err != nil {
		t.Fatalf("create debt failed: %v", err)
	}

	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.debts.AddPayment(debt.ID, models.MustMoney("25"))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("add payment failed: %v", err)
		}
	}

	detail, err := env.debts.Get(debt.ID)
	if err != nil {
		t.Fatalf("reload debt failed: %v", err)
	}
	if detail.TotalPaid.StringFixed(2) != "100.00" || detail.Status != constants.DebtStatusPaid {
		t.Fatalf("all payments should settle the debt: status=%s paid=%s", detail.Status, detail.TotalPaid)
	}
}
