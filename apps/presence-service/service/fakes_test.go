package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"gogame-presence/pkg/firebase"
)

// fakeStore 可编程的远程存储桩，按路径返回预设响应
type fakeStore struct {
	mu        sync.Mutex
	responses map[string]fakeResponse // 键为 path 或 path?shallow
	getCalls  int
	lastPath  string
}

type fakeResponse struct {
	status int
	body   string
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{responses: make(map[string]fakeResponse)}
}

func (f *fakeStore) respond(path string, status int, body string) {
	f.mu.Lock()
	f.responses[path] = fakeResponse{status: status, body: body}
	f.mu.Unlock()
}

func (f *fakeStore) fail(path string, err error) {
	f.mu.Lock()
	f.responses[path] = fakeResponse{err: err}
	f.mu.Unlock()
}

func (f *fakeStore) Get(ctx context.Context, shallow bool, segments ...string) (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	path := strings.Join(segments, "/")
	if shallow {
		path += "?shallow"
	}
	f.lastPath = path
	resp, ok := f.responses[path]
	if !ok {
		return http.StatusNotFound, []byte("null"), nil
	}
	if resp.err != nil {
		return 0, nil, resp.err
	}
	return resp.status, []byte(resp.body), nil
}

func (f *fakeStore) Put(ctx context.Context, value interface{}, segments ...string) (int, error) {
	return http.StatusOK, nil
}

func (f *fakeStore) Merge(ctx context.Context, value interface{}, segments ...string) (int, error) {
	return http.StatusOK, nil
}

func (f *fakeStore) Delete(ctx context.Context, segments ...string) (int, error) {
	return http.StatusOK, nil
}

func (f *fakeStore) SendMessage(ctx context.Context, message interface{}, segments ...string) bool {
	return true
}

func (f *fakeStore) PutMessage(ctx context.Context, message interface{}, segments ...string) bool {
	return true
}

func (f *fakeStore) SendUpdate(ctx context.Context, segments ...string) bool {
	return len(segments) > 0
}

// fakeSender 推送下发桩，记录每次调用
type fakeSender struct {
	mu       sync.Mutex
	sent     []string // 依次记录的设备令牌
	failFor  map[string]error
	idPrefix string
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: make(map[string]error), idPrefix: "projects/test/messages/"}
}

func (f *fakeSender) Send(ctx context.Context, msg *firebase.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg.Token)
	if err, ok := f.failFor[msg.Token]; ok {
		return "", err
	}
	return f.idPrefix + msg.Token, nil
}

func (f *fakeSender) tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// fakeProducer 审计事件桩
type fakeProducer struct {
	mu     sync.Mutex
	topics []string
	values [][]byte
	err    error
}

func (f *fakeProducer) SendMessage(topic string, key, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.values = append(f.values, value)
	return nil
}

var errStoreDown = errors.New("store unreachable")
