package main

import (
	"context"
	"flag"

	"github.com/snipero7/qr24-sub000/internal/config"
	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/logger"
	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/provider"
	"github.com/snipero7/qr24-sub000/internal/service"

	"github.com/shopspring/decimal"
)

type seedOrder struct {
	input  service.CreateOrderInput
	status string
	// 非空时执行交付
	collected string
}

func main() {
	force := flag.Bool("force", false, "即使已有维修单也继续写入演示数据")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	// 演示数据不触发外部通知与队列
	cfg.Queue.Enabled = false
	cfg.WhatsApp.Enabled = false

	db, err := provider.OpenDatabase(cfg)
	if err != nil {
		stdLog.Fatalf("Failed to open database: %v", err)
	}
	if err := models.InitDefaultAdmin(db, "", ""); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}
	c, err := provider.NewContainer(cfg, db)
	if err != nil {
		stdLog.Fatalf("Failed to build container: %v", err)
	}
	defer c.Close()

	var existing int64
	if err := db.Model(&models.Order{}).Count(&existing).Error; err != nil {
		stdLog.Fatalf("Failed to count orders: %v", err)
	}
	if existing > 0 && !*force {
		stdLog.Printf("Orders already exist (%d), skip seeding; pass -force to continue", existing)
		return
	}

	ctx := context.Background()
	customers := []service.CustomerInput{
		{Name: "Ahmed Ali", Phone: "0501234567", Notes: "VIP"},
		{Name: "Sara Omar", Phone: "0559876543"},
		{Name: "Khalid Saad", Phone: "+966541112233"},
	}
	for _, input := range customers {
		if _, err := c.CustomerService.Upsert(input); err != nil {
			stdLog.Printf("Failed to upsert customer %s: %v", input.Phone, err)
			continue
		}
		stdLog.Printf("Customer ready: %s", input.Name)
	}

	cash := constants.PaymentMethodCash
	orders := []seedOrder{
		{
			input: service.CreateOrderInput{
				CustomerName: "Ahmed Ali", CustomerPhone: "0501234567",
				DeviceModel: "iPhone 13", IMEI: "356789104563210",
				Service: "Screen replacement", OriginalPrice: models.MustMoney("450"),
			},
			status: constants.OrderStatusInProgress,
		},
		{
			input: service.CreateOrderInput{
				CustomerName: "Sara Omar", CustomerPhone: "0559876543",
				DeviceModel: "Galaxy S22", Service: "Battery replacement",
				OriginalPrice: models.MustMoney("180"), Note: "Customer waits in shop",
			},
			status: constants.OrderStatusReady,
		},
		{
			input: service.CreateOrderInput{
				CustomerName: "Khalid Saad", CustomerPhone: "+966541112233",
				DeviceModel: "Redmi Note 12", Service: "Charging port",
				OriginalPrice: models.MustMoney("120"),
			},
			status:    constants.OrderStatusReady,
			collected: "120",
		},
		{
			input: service.CreateOrderInput{
				CustomerName: "Ahmed Ali", CustomerPhone: "0501234567",
				DeviceModel: "iPad Air", Service: "Diagnostics",
				OriginalPrice: models.MustMoney("50"),
			},
			status: constants.OrderStatusWaitingParts,
		},
	}
	for _, item := range orders {
		detail, err := c.OrderService.Create(ctx, item.input)
		if err != nil {
			stdLog.Printf("Failed to create order for %s: %v", item.input.CustomerPhone, err)
			continue
		}
		if item.status != "" && item.status != constants.OrderStatusNew {
			if _, err := c.OrderService.SetStatus(ctx, detail.ID, service.SetStatusInput{Status: item.status}); err != nil {
				stdLog.Printf("Failed to set status %s on %s: %v", item.status, detail.Code, err)
			}
		}
		if item.collected != "" {
			result, err := c.DeliveryService.Deliver(ctx, detail.ID, service.DeliverInput{
				CollectedPrice: models.MustMoney(item.collected),
				PaymentMethod:  &cash,
			})
			if err != nil {
				stdLog.Printf("Failed to deliver %s: %v", detail.Code, err)
			} else if result.ReceiptErr != nil {
				stdLog.Printf("Delivered %s, receipt pending: %v", detail.Code, result.ReceiptErr)
			}
		}
		stdLog.Printf("Created order: %s (%s)", detail.Code, detail.TrackingURL)
	}

	debts := []struct {
		input    service.CreateDebtInput
		payments []int64
	}{
		{
			input:    service.CreateDebtInput{ShopName: "Al Noor Mobiles", Phone: "0533334444", Service: "10x LCD iPhone 11", Amount: models.MustMoney("1500")},
			payments: []int64{500, 250},
		},
		{
			input: service.CreateDebtInput{ShopName: "Smart Fix", Service: "Board repair", Amount: models.MustMoney("300"), Notes: "Pay end of month"},
		},
	}
	for _, item := range debts {
		debt, err := c.DebtService.Create(item.input)
		if err != nil {
			stdLog.Printf("Failed to create debt %s: %v", item.input.ShopName, err)
			continue
		}
		for _, amount := range item.payments {
			updated, err := c.DebtService.AddPayment(debt.ID, models.NewMoneyFromDecimal(decimal.NewFromInt(amount)))
			if err != nil {
				stdLog.Printf("Failed to add payment to %s: %v", item.input.ShopName, err)
				break
			}
			debt = updated
		}
		stdLog.Printf("Created debt: %s remaining %s", item.input.ShopName, debt.Remaining)
	}

	stdLog.Printf("Seed completed")
}
