package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"gogame-presence/apps/presence-service/dao"
	"gogame-presence/pkg/auth"
	"gogame-presence/pkg/cache"
	"gogame-presence/pkg/firebase"
	"gogame-presence/pkg/logger"
)

// Sender 推送下发接口
type Sender interface {
	Send(ctx context.Context, msg *firebase.Message) (string, error)
}

// EventProducer 审计事件发布接口
type EventProducer interface {
	SendMessage(topic string, key, value []byte) error
}

// Options 服务参数
type Options struct {
	LocalCacheTTL  time.Duration // 进程内在线用户缓存生命周期
	SharedCacheTTL time.Duration // 共享在线用户缓存生命周期
	SessionCutoff  time.Duration // 设备会话保留窗口
	EnforceCutoff  bool          // 是否真正跳过窗口外的会话
	PushTopic      string        // 推送事件审计主题
}

// DefaultOptions 默认服务参数
func DefaultOptions() Options {
	return Options{
		LocalCacheTTL:  1 * time.Minute,
		SharedCacheTTL: 5 * time.Minute,
		SessionCutoff:  7 * 24 * time.Hour,
		PushTopic:      "push_events",
	}
}

// Service 在线状态与推送服务
type Service struct {
	store    dao.StoreDAO
	shared   cache.Cache
	sender   Sender
	producer EventProducer // 可为nil，无Kafka环境下关闭审计
	issuer   *auth.TokenIssuer
	opts     Options
	logger   logger.Logger

	// userListMu 串行化全量在线用户拉取，把并发的重复远程读压成顺序一次
	userListMu sync.Mutex

	// 进程内在线用户缓存，按locale分键
	cacheMu     sync.Mutex
	onlineCache map[string]onlineEntry
}

type onlineEntry struct {
	users     map[string]struct{}
	fetchedAt time.Time
}

// NewService 创建服务实例
func NewService(
	store dao.StoreDAO,
	shared cache.Cache,
	sender Sender,
	producer EventProducer,
	issuer *auth.TokenIssuer,
	opts Options,
	log logger.Logger,
) *Service {
	if opts.LocalCacheTTL <= 0 {
		opts.LocalCacheTTL = 1 * time.Minute
	}
	if opts.SharedCacheTTL <= 0 {
		opts.SharedCacheTTL = 5 * time.Minute
	}
	if opts.SessionCutoff <= 0 {
		opts.SessionCutoff = 7 * 24 * time.Hour
	}
	return &Service{
		store:       store,
		shared:      shared,
		sender:      sender,
		producer:    producer,
		issuer:      issuer,
		opts:        opts,
		logger:      log,
		onlineCache: make(map[string]onlineEntry),
	}
}

// CreateCustomToken 为客户端签发直连远程存储的自定义令牌
func (s *Service) CreateCustomToken(uid string, validMinutes int) (string, error) {
	if s.issuer == nil {
		return "", errors.New("token issuer not configured")
	}
	return s.issuer.CreateCustomToken(uid, validMinutes)
}
