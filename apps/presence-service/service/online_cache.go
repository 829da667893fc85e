package service

import (
	"context"
	"time"

	"gogame-presence/apps/presence-service/model"
	"gogame-presence/pkg/logger"
)

// OnlineUsers 返回指定locale下的在线用户集合，两级读穿缓存。
// 在线状态被轮询的频率远高于它实际变化的频率：进程内缓存吸收
// 单个实例内的突发，共享缓存吸收跨实例的负载，两级都失效时才
// 真正打到远程存储。缓存层任何失败都降级为直接远程读取。
func (s *Service) OnlineUsers(ctx context.Context, locale string) map[string]struct{} {
	now := time.Now()

	// 第一级：进程内缓存
	s.cacheMu.Lock()
	if entry, ok := s.onlineCache[locale]; ok && now.Sub(entry.fetchedAt) < s.opts.LocalCacheTTL {
		users := entry.users
		s.cacheMu.Unlock()
		return users
	}
	s.cacheMu.Unlock()

	// 第二级：共享缓存，值为用户ID列表
	cacheKey := model.OnlineKeyPrefix + locale
	var cached []string
	hit, err := s.shared.Get(ctx, cacheKey, model.OnlineNamespace, &cached)
	if err != nil {
		s.logger.Warn(ctx, "online users: shared cache read failed",
			logger.F("locale", locale),
			logger.F("error", err.Error()))
		hit = false
	}

	var users map[string]struct{}
	if hit && len(cached) > 0 {
		users = make(map[string]struct{}, len(cached))
		for _, userID := range cached {
			users[userID] = struct{}{}
		}
	} else {
		// 两级都未命中，拉取远程在线列表并回填共享缓存
		users = s.GetConnectedUsers(ctx, locale)
		list := make([]string, 0, len(users))
		for userID := range users {
			list = append(list, userID)
		}
		if err := s.shared.Set(ctx, cacheKey, model.OnlineNamespace, list, s.opts.SharedCacheTTL); err != nil {
			s.logger.Warn(ctx, "online users: shared cache write failed",
				logger.F("locale", locale),
				logger.F("error", err.Error()))
		}
	}

	s.cacheMu.Lock()
	s.onlineCache[locale] = onlineEntry{users: users, fetchedAt: now}
	s.cacheMu.Unlock()

	return users
}
