package service

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/repository"
)

func TestExportOrdersCSV(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, phone := range []string{"0551000001", "0551000002", "0551000003"} {
		env.createOrder(t, "عميل", phone)
	}
	exporter := NewExportService(env.orderRepo, env.debtRepo, time.UTC)

	var buf bytes.Buffer
	n, err := exporter.ExportOrders(&buf, repository.OrderListFilter{})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows, got %d", n)
	}
	raw := buf.Bytes()
	if !bytes.HasPrefix(raw, utf8BOM) {
		t.Fatalf("csv should start with a UTF-8 BOM")
	}
	records, err := csv.NewReader(bytes.NewReader(raw[len(utf8BOM):])).ReadAll()
	if err != nil {
		t.Fatalf("parse csv failed: %v", err)
	}
	if len(records) != 4 || records[0][0] != "code" {
		t.Fatalf("unexpected csv layout: %v", records)
	}
	if records[1][2] != "عميل" || records[1][7] != "350.00" || records[1][10] != "" {
		t.Fatalf("unexpected order row: %v", records[1])
	}
}

func TestExportDebtsCSV(t *testing.T) {
	env := newTestEnv(t, nil)
	debt, err := env.debts.Create(CreateDebtInput{ShopName: "Mobile Zone", Service: "parts", Amount: models.MustMoney("90")})
	if err != nil {
		t.Fatalf("create debt failed: %v", err)
	}
	if _, err := env.debts.AddPayment(debt.ID, models.MustMoney("30")); err != nil {
		t.Fatalf("add payment failed: %v", err)
	}
	exporter := NewExportService(env.orderRepo, env.debtRepo, nil)

	var buf bytes.Buffer
	if _, err := exporter.ExportDebts(&buf, repository.DebtListFilter{}); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes()[len(utf8BOM):])).ReadAll()
	if err != nil {
		t.Fatalf("parse csv failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header and one row, got %d", len(records))
	}
	row := records[1]
	if row[1] != "Mobile Zone" || row[4] != "90.00" || row[5] != "30.00" || row[6] != "60.00" || row[7] != "PARTIAL" {
		t.Fatalf("unexpected debt row: %v", row)
	}
}
