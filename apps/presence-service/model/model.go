package model

// 远程JSON树的固定路径段
const (
	ConnectionRoot = "connection" // connection/<locale>/<user_id>
	UserRoot       = "user"       // user/<user_id>/wait/<opp_id>
	WaitNode       = "wait"
	SessionRoot    = "session" // session/<user_id>/<device_token>
)

// 在线用户缓存的键约定
const (
	OnlineKeyPrefix = "live:"
	OnlineNamespace = "userlist"
)

// TimestampLayout 远程存储中UTC时间戳的格式（ISO-8601，无时区后缀）
const TimestampLayout = "2006-01-02T15:04:05"

// PushMessage 推送消息内容，与接收方无关
type PushMessage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

// SessionRecord 设备会话记录，键为设备令牌
type SessionRecord struct {
	OS  string `json:"os"`
	UTC string `json:"utc"`
}

// WaitEntry 等待对局记录。
// 远端值要么是布尔true，要么是包含挑战键的对象；
// 一旦对象带上game字段说明对局已开始，用户不再处于等待状态。
type WaitEntry struct {
	Key  string `json:"key,omitempty"`
	Game string `json:"game,omitempty"`
}

// PushEvent 推送事件审计记录，发往Kafka
type PushEvent struct {
	EventID     string `json:"event_id"`
	UserID      string `json:"user_id"`
	DeviceCount int    `json:"device_count"`
	Title       string `json:"title"`
	SentAt      string `json:"sent_at"`
}

// PushToUserRequest 按用户推送请求
type PushToUserRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Title  string `json:"title" binding:"required"`
	Body   string `json:"body"`
	Image  string `json:"image"`
}

// PushToDeviceRequest 按设备推送请求
type PushToDeviceRequest struct {
	DeviceToken string `json:"device_token" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Body        string `json:"body"`
	Image       string `json:"image"`
}

// CreateTokenRequest 签发自定义令牌请求
type CreateTokenRequest struct {
	UID          string `json:"uid" binding:"required"`
	ValidMinutes int    `json:"valid_minutes"`
}
