package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrDisabled 网关未启用
var ErrDisabled = errors.New("whatsapp gateway disabled")

// Sender 消息发送接口
type Sender interface {
	SendText(ctx context.Context, phone, message string) error
}

// Client WhatsApp 网关客户端（Basic Auth + JSON）
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

type sendMessageRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type sendMessageResponse struct {
	Code    string `json:"code"`
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// NewClient 创建网关客户端
func NewClient(baseURL, username, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendText 发送文本消息
func (c *Client) SendText(ctx context.Context, phone, message string) error {
	if c == nil || c.baseURL == "" {
		return ErrDisabled
	}
	digits := InternationalDigits(phone, "")
	if digits == "" {
		return fmt.Errorf("invalid phone: %q", phone)
	}
	body, err := json.Marshal(sendMessageRequest{
		Phone:   digits + "@s.whatsapp.net",
		Message: message,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send/message", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var parsed sendMessageResponse
	if len(raw) > 0 && json.Unmarshal(raw, &parsed) == nil {
		if parsed.Success != nil && !*parsed.Success {
			return fmt.Errorf("whatsapp gateway rejected message: %s", parsed.Message)
		}
	}
	return nil
}
