package models

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:models_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := OpenDB("sqlite", dsn, "silent", DBPoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func TestSharedMemoryDBKeepsSchemaBetweenStatements(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 3; i++ {
		if !db.Migrator().HasTable(&Order{}) {
			t.Fatalf("orders table lost after statement %d", i)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	if idle := sqlDB.Stats().Idle; idle < 1 {
		t.Fatalf("shared memory db needs an idle connection, got %d", idle)
	}
}

func TestOpenDBRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenDB("oracle", "x", "", DBPoolConfig{}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestMoneyJSONAcceptsStringAndNumber(t *testing.T) {
	var payload struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"12.345","b":7.1}`), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.A.String() != "12.35" || payload.B.String() != "7.10" {
		t.Fatalf("unexpected money values: %s %s", payload.A, payload.B)
	}
	raw, err := json.Marshal(payload.B)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `"7.10"` {
		t.Fatalf("unexpected money json: %s", raw)
	}
}

func TestMoneyRoundTripThroughDB(t *testing.T) {
	db := openTestDB(t)
	debt := Debt{ShopName: "Mall Kiosk", Service: "screens", Amount: MustMoney("150.50"), Status: "OPEN"}
	if err := db.Create(&debt).Error; err != nil {
		t.Fatalf("create debt failed: %v", err)
	}
	var loaded Debt
	if err := db.First(&loaded, debt.ID).Error; err != nil {
		t.Fatalf("load debt failed: %v", err)
	}
	if !loaded.Amount.Equal(debt.Amount.Decimal) {
		t.Fatalf("amount mismatch: %s vs %s", loaded.Amount, debt.Amount)
	}
}

func TestSettingJSONRoundTrip(t *testing.T) {
	db := openTestDB(t)
	if err := db.Create(&Setting{Key: "shop_config", ValueJSON: JSON{"name": "Fix Corner"}}).Error; err != nil {
		t.Fatalf("create setting failed: %v", err)
	}
	var loaded Setting
	if err := db.First(&loaded, "key = ?", "shop_config").Error; err != nil {
		t.Fatalf("load setting failed: %v", err)
	}
	if loaded.ValueJSON["name"] != "Fix Corner" {
		t.Fatalf("unexpected setting value: %#v", loaded.ValueJSON)
	}
}

func TestInitDefaultAdminCreatesSuperOnce(t *testing.T) {
	db := openTestDB(t)
	if err := InitDefaultAdmin(db, "admin", "Secret123"); err != nil {
		t.Fatalf("init admin failed: %v", err)
	}
	if err := InitDefaultAdmin(db, "other", "Secret123"); err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	var admins []Admin
	if err := db.Find(&admins).Error; err != nil {
		t.Fatalf("list admins failed: %v", err)
	}
	if len(admins) != 1 || !admins[0].IsSuper || admins[0].Username != "admin" {
		t.Fatalf("unexpected admins: %+v", admins)
	}
}

func TestOrderIsLocked(t *testing.T) {
	order := &Order{}
	if order.IsLocked() {
		t.Fatalf("new order should not be locked")
	}
	price := MustMoney("10")
	order.CollectedPrice = &price
	if !order.IsLocked() {
		t.Fatalf("collected order should be locked")
	}
}
