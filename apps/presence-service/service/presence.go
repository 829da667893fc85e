package service

import (
	"context"
	"encoding/json"
	"net/http"

	"gogame-presence/apps/presence-service/model"
	"gogame-presence/pkg/logger"
)

// CheckWait 判断用户是否在等待指定对手。
// 远端值为布尔true即等待中；给了挑战键时，值为不带game字段
// 且键匹配的对象也算等待中。其余情况一律视为不等待，不抛错。
func (s *Service) CheckWait(ctx context.Context, userID, oppID, key string) bool {
	status, body, err := s.store.Get(ctx, false, model.UserRoot, userID, model.WaitNode, oppID)
	if err != nil {
		s.logger.Warn(ctx, "check wait failed",
			logger.F("user_id", userID),
			logger.F("opp_id", oppID),
			logger.F("error", err.Error()))
		return false
	}
	if status != http.StatusOK || len(body) == 0 {
		return false
	}

	var value interface{}
	if err := json.Unmarshal(body, &value); err != nil {
		s.logger.Warn(ctx, "check wait: malformed body",
			logger.F("user_id", userID),
			logger.F("error", err.Error()))
		return false
	}

	if b, ok := value.(bool); ok {
		return b
	}

	// 值也可能是原始挑战的键对象；一旦带上game字段说明对局已开始
	if key != "" {
		if m, ok := value.(map[string]interface{}); ok {
			if _, started := m["game"]; !started && m["key"] == key {
				return true
			}
		}
	}
	return false
}

// CheckPresence 判断用户在指定locale下是否至少有一条活跃连接
func (s *Service) CheckPresence(ctx context.Context, userID, locale string) bool {
	status, body, err := s.store.Get(ctx, false, model.ConnectionRoot, locale, userID)
	if err != nil {
		s.logger.Warn(ctx, "check presence failed",
			logger.F("user_id", userID),
			logger.F("locale", locale),
			logger.F("error", err.Error()))
		return false
	}
	if status != http.StatusOK || len(body) == 0 {
		return false
	}

	var value interface{}
	if err := json.Unmarshal(body, &value); err != nil {
		s.logger.Warn(ctx, "check presence: malformed body",
			logger.F("user_id", userID),
			logger.F("error", err.Error()))
		return false
	}
	return truthy(value)
}

// GetConnectedUsers 返回指定locale下当前在线的全部用户。
// 浅层读取只拿子键名，载荷与在线人数成正比而不是与子树大小成正比。
// 整个操作被单个互斥量串行化：它是本层最贵的调用，并发轮询时
// 顺序执行好过并行打出一堆重复请求。
func (s *Service) GetConnectedUsers(ctx context.Context, locale string) map[string]struct{} {
	s.userListMu.Lock()
	defer s.userListMu.Unlock()

	status, body, err := s.store.Get(ctx, true, model.ConnectionRoot, locale)
	if err != nil {
		s.logger.Warn(ctx, "get connected users failed",
			logger.F("locale", locale),
			logger.F("error", err.Error()))
		return map[string]struct{}{}
	}
	if status != http.StatusOK || len(body) == 0 {
		return map[string]struct{}{}
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		s.logger.Warn(ctx, "get connected users: malformed body",
			logger.F("locale", locale),
			logger.F("error", err.Error()))
		return map[string]struct{}{}
	}

	users := make(map[string]struct{}, len(entries))
	for userID := range entries {
		users[userID] = struct{}{}
	}
	return users
}

// truthy 按JSON语义判断值是否为真：null、false、0、空串、空容器为假
func truthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case map[string]interface{}:
		return len(v) > 0
	case []interface{}:
		return len(v) > 0
	default:
		return true
	}
}
