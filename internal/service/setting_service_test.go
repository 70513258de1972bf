package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/snipero7/qr24-sub000/internal/constants"
)

func TestShopSettingDefaultsAndPatch(t *testing.T) {
	env := newTestEnv(t, nil)
	shop, err := env.settings.GetShopSetting()
	if err != nil {
		t.Fatalf("get shop setting failed: %v", err)
	}
	if shop != ShopDefaultSetting() {
		t.Fatalf("missing setting should fall back to defaults: %+v", shop)
	}

	name := "  Fix Corner  "
	currency := "sar"
	country := "+971"
	patched, err := env.settings.PatchShopSetting(ShopSettingPatch{Name: &name, Currency: &currency, CountryCode: &country})
	if err != nil {
		t.Fatalf("patch shop setting failed: %v", err)
	}
	if patched.Name != "Fix Corner" || patched.Currency != "SAR" || patched.CountryCode != "971" {
		t.Fatalf("unexpected normalized setting: %+v", patched)
	}
	reloaded, _ := env.settings.GetShopSetting()
	if reloaded != patched {
		t.Fatalf("patched setting not persisted: %+v", reloaded)
	}
}

func TestBackupSettingPatchValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	bad := 7
	if _, err := env.settings.PatchBackupSetting(BackupSettingPatch{Weekday: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("weekday 7 should be rejected, got %v", err)
	}
	hour := 24
	if _, err := env.settings.PatchBackupSetting(BackupSettingPatch{Hour: &hour}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("hour 24 should be rejected, got %v", err)
	}

	raw := map[string]interface{}{"auto_enabled": true, "weekday": 12, "hour": -1, "retention_count": 3}
	if _, err := env.settings.Update(constants.SettingKeyBackupConfig, raw); err != nil {
		t.Fatalf("raw update failed: %v", err)
	}
	setting, err := env.settings.GetBackupSetting()
	if err != nil {
		t.Fatalf("get backup setting failed: %v", err)
	}
	defaults := BackupDefaultSetting()
	if !setting.AutoEnabled || setting.Weekday != defaults.Weekday || setting.Hour != defaults.Hour || setting.RetentionCount != 3 {
		t.Fatalf("out of range values should fall back to defaults: %+v", setting)
	}
}

func TestStorageSettingKeepsSecretAndMasks(t *testing.T) {
	env := newTestEnv(t, nil)
	driver := constants.StorageDriverS3
	if _, err := env.settings.PatchStorageSetting(StorageSettingPatch{Driver: &driver}); !errors.Is(err, ErrStorageConfigInvalid) {
		t.Fatalf("s3 without credentials should be rejected, got %v", err)
	}

	endpoint, bucket, access, secret := "minio.local:9000", "receipts", "AK", "SK-secret"
	_, err := env.settings.PatchStorageSetting(StorageSettingPatch{
		Driver: &driver,
		S3:     &StorageS3Patch{Endpoint: &endpoint, Bucket: &bucket, AccessKey: &access, SecretKey: &secret},
	})
	if err != nil {
		t.Fatalf("patch storage failed: %v", err)
	}
	empty := ""
	updated, err := env.settings.PatchStorageSetting(StorageSettingPatch{S3: &StorageS3Patch{SecretKey: &empty}})
	if err != nil {
		t.Fatalf("patch with empty secret failed: %v", err)
	}
	if updated.S3.SecretKey != "SK-secret" {
		t.Fatalf("empty secret should keep the stored one")
	}
	masked := MaskStorageSettingForAdmin(updated)
	if s3, ok := masked["s3"].(map[string]interface{}); !ok || s3["secret_key"] == "SK-secret" {
		t.Fatalf("secret should be masked for admin view: %+v", masked)
	}

	sink, err := env.storage.Primary()
	if err != nil {
		t.Fatalf("resolve primary failed: %v", err)
	}
	if sink.IsLocal() {
		t.Fatalf("primary should be s3 when configured")
	}
}

func TestNotificationTemplates(t *testing.T) {
	env := newTestEnv(t, nil)
	order := env.createOrder(t, "Ahmed", "0551234567")
	notifications := NewNotificationService(env.orderRepo, env.settings, env.signer, nil, nil)

	tpl := "Hi {customer}, {device} is {status}. {code} {track_url}"
	if _, err := env.settings.PatchNotificationSetting(NotificationSettingPatch{
		Templates: map[string]string{constants.NotifyEventStatusChanged: tpl},
	}); err != nil {
		t.Fatalf("patch notification failed: %v", err)
	}
	if _, err := env.settings.PatchNotificationSetting(NotificationSettingPatch{
		Templates: map[string]string{"refunded": "x"},
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown event should be rejected, got %v", err)
	}

	msg, err := notifications.Build(order.ID, constants.NotifyEventStatusChanged)
	if err != nil {
		t.Fatalf("build message failed: %v", err)
	}
	want := "Hi Ahmed, iPhone 13 is " + OrderStatusLabel(constants.OrderStatusNew) + ". " + order.Code + " " + env.signer.TrackingURL(order.Code)
	if msg.Text != want {
		t.Fatalf("unexpected text:\n got %s\nwant %s", msg.Text, want)
	}
	if msg.Phone != "0551234567" {
		t.Fatalf("unexpected phone %s", msg.Phone)
	}
	if !strings.HasPrefix(msg.WaMeURL, "https://wa.me/966551234567?text=") {
		t.Fatalf("unexpected wa.me url %s", msg.WaMeURL)
	}
}

func TestRenderTemplateLeavesUnknownPlaceholders(t *testing.T) {
	got := RenderTemplate("{shop}: {code} {unknown}", map[string]string{"shop": "QR24", "code": "ABC1234"})
	if got != "QR24: ABC1234 {unknown}" {
		t.Fatalf("unexpected render: %s", got)
	}
}

type recordingSender struct {
	phones   []string
	messages []string
}

func (s *recordingSender) SendText(_ context.Context, phone, message string) error {
	s.phones = append(s.phones, phone)
	s.messages = append(s.messages, message)
	return nil
}

func TestCustomerPhoneConflict(t *testing.T) {
	env := newTestEnv(t, nil)
	first := env.createOrder(t, "Ahmed", "0551234567")
	second := env.createOrder(t, "Sara", "0559876543")

	_, err := env.customers.Update(second.CustomerID, CustomerInput{Name: "Sara", Phone: "055-123-4567"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("duplicate phone should be rejected, got %v", err)
	}
	detail, err := env.customers.Get(first.CustomerID)
	if err != nil {
		t.Fatalf("get customer failed: %v", err)
	}
	if detail.OrderCount != 1 {
		t.Fatalf("unexpected order count %d", detail.OrderCount)
	}
	customer, err := env.customers.Upsert(CustomerInput{Name: "Walk-in", Phone: "+966 50 000 0000"})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if customer.Phone != "+966500000000" {
		t.Fatalf("phone should be normalized, got %s", customer.Phone)
	}
}

func TestNotificationSendUsesInternationalNumber(t *testing.T) {
	env := newTestEnv(t, nil)
	order := env.createOrder(t, "Ahmed", "0551234567")
	sender := &recordingSender{}
	notifications := NewNotificationService(env.orderRepo, env.settings, env.signer, sender, nil)
	ctx := context.Background()

	notifications.Dispatch(ctx, order.ID, constants.NotifyEventCreated, constants.OrderStatusNew)
	if len(sender.phones) != 0 {
		t.Fatalf("disabled notifications must not send")
	}

	enabled := true
	if _, err := env.settings.PatchNotificationSetting(NotificationSettingPatch{Enabled: &enabled}); err != nil {
		t.Fatalf("enable notifications failed: %v", err)
	}
	notifications.Dispatch(ctx, order.ID, constants.NotifyEventCreated, constants.OrderStatusNew)
	if len(sender.phones) != 1 || sender.phones[0] != "966551234567" {
		t.Fatalf("unexpected recipients: %v", sender.phones)
	}
	if !strings.Contains(sender.messages[0], order.Code) {
		t.Fatalf("message should mention the order code: %s", sender.messages[0])
	}
}
