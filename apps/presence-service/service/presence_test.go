package service

import (
	"context"
	"net/http"
	"testing"

	"gogame-presence/pkg/cache"
	"gogame-presence/pkg/logger"
)

func newTestService(store *fakeStore) *Service {
	return NewService(store, cache.NewMemoryCache(), newFakeSender(), nil, nil, DefaultOptions(), logger.GetLogger())
}

// TestCheckWait 等待状态判定
func TestCheckWait(t *testing.T) {
	tests := []struct {
		name string
		body string
		key  string
		want bool
	}{
		{"布尔true为等待中", `true`, "", true},
		{"布尔false不等待", `false`, "", false},
		{"节点不存在不等待", `null`, "", false},
		{"键匹配的挑战对象为等待中", `{"key":"ch-1"}`, "ch-1", true},
		{"键不匹配不等待", `{"key":"ch-2"}`, "ch-1", false},
		{"带game字段说明对局已开始", `{"key":"ch-1","game":"g-9"}`, "ch-1", false},
		{"未提供键时对象不算等待", `{"key":"ch-1"}`, "", false},
		{"数字值不等待", `42`, "", false},
		{"字符串值不等待", `"yes"`, "", false},
		{"非法JSON不等待", `{broken`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.respond("user/u1/wait/u2", http.StatusOK, tt.body)
			svc := newTestService(store)

			if got := svc.CheckWait(context.Background(), "u1", "u2", tt.key); got != tt.want {
				t.Errorf("CheckWait(%s, key=%q) = %v, want %v", tt.body, tt.key, got, tt.want)
			}
		})
	}
}

// TestCheckWaitStoreFailure 存储失败按不等待处理
func TestCheckWaitStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.fail("user/u1/wait/u2", errStoreDown)
	svc := newTestService(store)

	if svc.CheckWait(context.Background(), "u1", "u2", "ch-1") {
		t.Error("CheckWait = true on store failure, want false")
	}
}

// TestCheckPresence 在线判定按JSON真值规则
func TestCheckPresence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"连接对象在线", `{"conn-1":true}`, true},
		{"布尔true在线", `true`, true},
		{"非空字符串在线", `"conn-1"`, true},
		{"非零数字在线", `17`, true},
		{"非空数组在线", `["conn-1"]`, true},
		{"null离线", `null`, false},
		{"布尔false离线", `false`, false},
		{"空对象离线", `{}`, false},
		{"空数组离线", `[]`, false},
		{"空字符串离线", `""`, false},
		{"零离线", `0`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.respond("connection/en/u1", http.StatusOK, tt.body)
			svc := newTestService(store)

			if got := svc.CheckPresence(context.Background(), "u1", "en"); got != tt.want {
				t.Errorf("CheckPresence(%s) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}

// TestCheckPresenceMissingNode 节点不存在视为离线
func TestCheckPresenceMissingNode(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	if svc.CheckPresence(context.Background(), "ghost", "en") {
		t.Error("CheckPresence = true for missing node, want false")
	}
}

// TestGetConnectedUsers 浅层读取连接树的子键集合
func TestGetConnectedUsers(t *testing.T) {
	store := newFakeStore()
	store.respond("connection/en?shallow", http.StatusOK, `{"u1":true,"u2":true,"u3":true}`)
	svc := newTestService(store)

	users := svc.GetConnectedUsers(context.Background(), "en")
	if len(users) != 3 {
		t.Fatalf("len(users) = %d, want 3", len(users))
	}
	for _, id := range []string{"u1", "u2", "u3"} {
		if _, ok := users[id]; !ok {
			t.Errorf("user %s missing from set", id)
		}
	}
	if store.lastPath != "connection/en?shallow" {
		t.Errorf("lastPath = %s, want shallow read of connection/en", store.lastPath)
	}
}

// TestGetConnectedUsersDegradesToEmpty 任何失败都降级为空集合
func TestGetConnectedUsersDegradesToEmpty(t *testing.T) {
	store := newFakeStore()
	store.fail("connection/en?shallow", errStoreDown)
	svc := newTestService(store)

	users := svc.GetConnectedUsers(context.Background(), "en")
	if users == nil {
		t.Fatal("users = nil, want empty set")
	}
	if len(users) != 0 {
		t.Errorf("len(users) = %d, want 0", len(users))
	}
}

// TestGetConnectedUsersMalformedBody 非对象响应降级为空集合
func TestGetConnectedUsersMalformedBody(t *testing.T) {
	store := newFakeStore()
	store.respond("connection/en?shallow", http.StatusOK, `"not-an-object"`)
	svc := newTestService(store)

	if got := svc.GetConnectedUsers(context.Background(), "en"); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

// TestCreateCustomTokenWithoutIssuer 未配置签发器时报错而非崩溃
func TestCreateCustomTokenWithoutIssuer(t *testing.T) {
	svc := newTestService(newFakeStore())

	if _, err := svc.CreateCustomToken("u1", 30); err == nil {
		t.Error("CreateCustomToken should fail when no issuer is configured")
	}
}
