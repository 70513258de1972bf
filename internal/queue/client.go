package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/snipero7/qr24-sub000/internal/config"
	"github.com/snipero7/qr24-sub000/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault

	taskTimeout = 30 * time.Second
)

// Client 交付后续任务的投递端；未启用时所有投递均为空操作
type Client struct {
	inner *asynq.Client
	queue string
}

// NewClient 创建队列客户端，cfg 为空或未启用时返回禁用客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{queue: DefaultQueue}, nil
	}
	return &Client{inner: asynq.NewClient(redisOpt(cfg)), queue: DefaultQueue}, nil
}

// Enabled 是否会真正投递
func (c *Client) Enabled() bool {
	return c != nil && c.inner != nil
}

// Close 关闭底层连接
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.inner.Close()
}

// EnqueueOrderReceipt 投递回执生成任务，失败不自动重试（后台可手动重新生成）
func (c *Client) EnqueueOrderReceipt(payload OrderReceiptPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewOrderReceiptTask(payload)
	return c.enqueue(task, err, opts)
}

// EnqueueOrderNotify 投递 WhatsApp 通知任务
func (c *Client) EnqueueOrderNotify(payload OrderNotifyPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewOrderNotifyTask(payload)
	return c.enqueue(task, err, opts)
}

func (c *Client) enqueue(task *asynq.Task, buildErr error, extra []asynq.Option) error {
	if buildErr != nil {
		return buildErr
	}
	opts := make([]asynq.Option, 0, len(extra)+3)
	opts = append(opts, asynq.Queue(c.queue), asynq.MaxRetry(0), asynq.Timeout(taskTimeout))
	opts = append(opts, extra...)
	if _, err := c.inner.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}

// BuildServerConfig 生成 worker 端连接与并发配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{DefaultQueue: 1},
	}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			serverCfg.Concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			serverCfg.Queues = cfg.Queues
		}
	}
	return redisOpt(cfg), serverCfg
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
