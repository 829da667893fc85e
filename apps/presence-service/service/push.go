package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"gogame-presence/apps/presence-service/model"
	"gogame-presence/pkg/firebase"
	"gogame-presence/pkg/logger"
)

// PushNotification 向单个设备下发通知，返回是否成功
func (s *Service) PushNotification(ctx context.Context, deviceToken string, msg model.PushMessage) bool {
	if deviceToken == "" {
		s.logger.Warn(ctx, "push notification: empty device token")
		return false
	}
	id, err := s.sender.Send(ctx, &firebase.Message{
		Token: deviceToken,
		Notification: firebase.Notification{
			Title: msg.Title,
			Body:  msg.Body,
			Image: msg.Image,
		},
	})
	if err != nil {
		s.logger.Warn(ctx, "push notification failed",
			logger.F("error", err.Error()))
		return false
	}
	return id != ""
}

// PushToUser 向用户的全部已注册设备下发通知。
// 会话记录由外部会话管理写入，格式不受本服务控制：非对象值、
// 缺少utc的记录按条跳过，不中断整轮下发。
func (s *Service) PushToUser(ctx context.Context, userID string, msg model.PushMessage) bool {
	if userID == "" {
		s.logger.Warn(ctx, "push to user: empty user id")
		return false
	}

	status, body, err := s.store.Get(ctx, false, model.SessionRoot, userID)
	if err != nil {
		s.logger.Warn(ctx, "push to user: session lookup failed",
			logger.F("user_id", userID),
			logger.F("error", err.Error()))
		return false
	}
	if status != http.StatusOK || len(body) == 0 {
		return false
	}

	var sessions map[string]json.RawMessage
	if err := json.Unmarshal(body, &sessions); err != nil || len(sessions) == 0 {
		return false
	}

	cutoff := time.Now().UTC().Add(-s.opts.SessionCutoff)
	sent := 0
	for deviceToken, raw := range sessions {
		var record model.SessionRecord
		if err := json.Unmarshal(raw, &record); err != nil || record.UTC == "" {
			continue
		}
		stamp := record.UTC
		if len(stamp) > 19 {
			stamp = stamp[:19]
		}
		seen, err := time.Parse(model.TimestampLayout, stamp)
		if err != nil {
			continue
		}
		if seen.Before(cutoff) {
			s.logger.Info(ctx, "session token is too old",
				logger.F("user_id", userID),
				logger.F("last_seen", stamp))
			if s.opts.EnforceCutoff {
				continue
			}
		}
		if s.PushNotification(ctx, deviceToken, msg) {
			sent++
		}
	}

	s.logger.Info(ctx, "push fan-out complete",
		logger.F("user_id", userID),
		logger.F("devices", len(sessions)),
		logger.F("sent", sent))
	s.publishPushEvent(ctx, userID, len(sessions), msg.Title)
	return true
}

// publishPushEvent 发布推送审计事件，无生产者时静默跳过
func (s *Service) publishPushEvent(ctx context.Context, userID string, deviceCount int, title string) {
	if s.producer == nil {
		return
	}
	event := model.PushEvent{
		EventID:     uuid.New().String(),
		UserID:      userID,
		DeviceCount: deviceCount,
		Title:       title,
		SentAt:      time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.producer.SendMessage(s.opts.PushTopic, []byte(userID), data); err != nil {
		s.logger.Warn(ctx, "push event publish failed",
			logger.F("user_id", userID),
			logger.F("error", err.Error()))
	}
}
