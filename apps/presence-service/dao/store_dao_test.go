package dao

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"

	"gogame-presence/pkg/firebase"
	"gogame-presence/pkg/logger"
)

// recordedRequest 测试服务器记录的单次请求
type recordedRequest struct {
	method      string
	path        string
	query       string
	contentType string
	body        string
}

func newTestStore(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		if r.ContentLength > 0 {
			r.Body.Read(buf)
		}
		requests = append(requests, recordedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
			body:        string(buf),
		})
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newTestDAO(srv *httptest.Server) StoreDAO {
	pool := firebase.NewClientPoolWithFactory(5*time.Second, func(ctx context.Context) (*http.Client, error) {
		return srv.Client(), nil
	})
	return NewStoreDAO(srv.URL, pool, logger.GetLogger())
}

// TestGetBuildsJSONPath 读取请求应落在 <段>/.../<段>.json 上
func TestGetBuildsJSONPath(t *testing.T) {
	srv, reqs := newTestStore(t, http.StatusOK, `{"u1":true}`)
	d := newTestDAO(srv)

	status, body, err := d.Get(context.Background(), false, "connection", "en", "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if string(body) != `{"u1":true}` {
		t.Errorf("body = %s", body)
	}

	got := (*reqs)[0]
	if got.path != "/connection/en/u1.json" {
		t.Errorf("path = %s, want /connection/en/u1.json", got.path)
	}
	if got.query != "" {
		t.Errorf("query = %s, want empty", got.query)
	}
}

// TestGetShallow 浅层读取附带shallow=true
func TestGetShallow(t *testing.T) {
	srv, reqs := newTestStore(t, http.StatusOK, `{}`)
	d := newTestDAO(srv)

	if _, _, err := d.Get(context.Background(), true, "connection", "en"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := (*reqs)[0].query; got != "shallow=true" {
		t.Errorf("query = %s, want shallow=true", got)
	}
}

// TestWriteSemantics Put整体覆盖、Merge部分更新，均为静默写
func TestWriteSemantics(t *testing.T) {
	srv, reqs := newTestStore(t, http.StatusNoContent, "")
	d := newTestDAO(srv)
	ctx := context.Background()

	if _, err := d.Put(ctx, map[string]string{"a": "1"}, "session", "u1"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := d.Merge(ctx, map[string]string{"b": "2"}, "session", "u1"); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	put, merge := (*reqs)[0], (*reqs)[1]
	if put.method != http.MethodPut {
		t.Errorf("put method = %s", put.method)
	}
	if merge.method != http.MethodPatch {
		t.Errorf("merge method = %s", merge.method)
	}
	for i, r := range []recordedRequest{put, merge} {
		if r.query != "print=silent" {
			t.Errorf("request %d query = %s, want print=silent", i, r.query)
		}
		if r.contentType != "application/json" {
			t.Errorf("request %d content type = %s", i, r.contentType)
		}
	}
}

// TestSendMessageNilDeletes nil消息等价于删除节点
func TestSendMessageNilDeletes(t *testing.T) {
	srv, reqs := newTestStore(t, http.StatusOK, "null")
	d := newTestDAO(srv)

	if ok := d.SendMessage(context.Background(), nil, "user", "u1", "wait", "u2"); !ok {
		t.Fatal("SendMessage(nil) = false, want true")
	}
	got := (*reqs)[0]
	if got.method != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", got.method)
	}
	if got.path != "/user/u1/wait/u2.json" {
		t.Errorf("path = %s", got.path)
	}
}

// TestPutMessageNilDeletes PutMessage对nil同样走删除
func TestPutMessageNilDeletes(t *testing.T) {
	srv, reqs := newTestStore(t, http.StatusOK, "null")
	d := newTestDAO(srv)

	if ok := d.PutMessage(context.Background(), nil, "session", "u1"); !ok {
		t.Fatal("PutMessage(nil) = false, want true")
	}
	if got := (*reqs)[0].method; got != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", got)
	}
}

// TestSendMessageMerges 非nil消息走部分更新
func TestSendMessageMerges(t *testing.T) {
	srv, reqs := newTestStore(t, http.StatusOK, "")
	d := newTestDAO(srv)

	if ok := d.SendMessage(context.Background(), map[string]bool{"ready": true}, "user", "u1"); !ok {
		t.Fatal("SendMessage = false, want true")
	}
	if got := (*reqs)[0].method; got != http.MethodPatch {
		t.Errorf("method = %s, want PATCH", got)
	}
}

// TestSendMessageFailureStatus 非200/204状态视为写入失败
func TestSendMessageFailureStatus(t *testing.T) {
	srv, _ := newTestStore(t, http.StatusUnauthorized, `{"error":"denied"}`)
	d := newTestDAO(srv)

	if ok := d.SendMessage(context.Background(), map[string]bool{"x": true}, "user", "u1"); ok {
		t.Fatal("SendMessage = true on 401, want false")
	}
}

// TestInvalidSegment 含斜杠或为空的段直接拒绝，不发请求
func TestInvalidSegment(t *testing.T) {
	srv, reqs := newTestStore(t, http.StatusOK, "{}")
	d := newTestDAO(srv)
	ctx := context.Background()

	if _, _, err := d.Get(ctx, false, "user/../admin"); err == nil {
		t.Error("Get with slash segment should fail")
	}
	if _, _, err := d.Get(ctx, false, ""); err == nil {
		t.Error("Get with empty segment should fail")
	}
	if len(*reqs) != 0 {
		t.Errorf("requests sent = %d, want 0", len(*reqs))
	}
}

// TestSendUpdateNoSegments 无路径的更新直接返回false
func TestSendUpdateNoSegments(t *testing.T) {
	srv, reqs := newTestStore(t, http.StatusOK, "")
	d := newTestDAO(srv)

	if ok := d.SendUpdate(context.Background()); ok {
		t.Error("SendUpdate() = true, want false")
	}
	if len(*reqs) != 0 {
		t.Errorf("requests sent = %d, want 0", len(*reqs))
	}
}

// roundTripFunc 可编程的HTTP传输层
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// timeoutError 模拟超时类网络错误
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// TestRetryConnectionErrorRebuildsClient 连接类失败作废客户端并换新客户端重试
func TestRetryConnectionErrorRebuildsClient(t *testing.T) {
	srv, _ := newTestStore(t, http.StatusOK, "true")

	factoryCalls := 0
	attempts := 0
	pool := firebase.NewClientPoolWithFactory(5*time.Second, func(ctx context.Context) (*http.Client, error) {
		factoryCalls++
		return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempts++
			if attempts == 1 {
				return nil, syscall.ECONNRESET
			}
			return srv.Client().Transport.RoundTrip(r)
		})}, nil
	})
	d := NewStoreDAO(srv.URL, pool, logger.GetLogger())

	status, _, err := d.Get(context.Background(), false, "user", "u1", "wait", "u2")
	if err != nil {
		t.Fatalf("Get failed after retry: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if factoryCalls != 2 {
		t.Errorf("factory calls = %d, want 2 (broken client must not be reused)", factoryCalls)
	}
}

// TestRetryTimeoutKeepsClient 超时类失败用同一客户端重试
func TestRetryTimeoutKeepsClient(t *testing.T) {
	srv, _ := newTestStore(t, http.StatusOK, "true")

	factoryCalls := 0
	attempts := 0
	pool := firebase.NewClientPoolWithFactory(5*time.Second, func(ctx context.Context) (*http.Client, error) {
		factoryCalls++
		return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempts++
			if attempts == 1 {
				return nil, timeoutError{}
			}
			return srv.Client().Transport.RoundTrip(r)
		})}, nil
	})
	d := NewStoreDAO(srv.URL, pool, logger.GetLogger())

	if _, _, err := d.Get(context.Background(), false, "connection", "en", "u1"); err != nil {
		t.Fatalf("Get failed after retry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if factoryCalls != 1 {
		t.Errorf("factory calls = %d, want 1 (timeout keeps the client)", factoryCalls)
	}
}

// TestNoRetryOnOtherError 其他错误不重试，直接返回
func TestNoRetryOnOtherError(t *testing.T) {
	attempts := 0
	pool := firebase.NewClientPoolWithFactory(5*time.Second, func(ctx context.Context) (*http.Client, error) {
		return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempts++
			return nil, errors.New("tls handshake failure")
		})}, nil
	})
	d := NewStoreDAO("http://store.invalid", pool, logger.GetLogger())

	if _, _, err := d.Get(context.Background(), false, "user", "u1"); err == nil {
		t.Fatal("Get should propagate the error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

// TestRetryExhausted 两次都失败返回最后一次错误
func TestRetryExhausted(t *testing.T) {
	attempts := 0
	pool := firebase.NewClientPoolWithFactory(5*time.Second, func(ctx context.Context) (*http.Client, error) {
		return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempts++
			return nil, syscall.ECONNRESET
		})}, nil
	})
	d := NewStoreDAO("http://store.invalid", pool, logger.GetLogger())

	_, _, err := d.Get(context.Background(), false, "user", "u1")
	if err == nil {
		t.Fatal("Get should fail after exhausting retries")
	}
	if !errors.Is(err, syscall.ECONNRESET) {
		t.Errorf("err = %v, want ECONNRESET", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

// TestMergeKeepsSiblingsPutReplaces Merge保留兄弟字段，Put整体覆盖节点
func TestMergeKeepsSiblingsPutReplaces(t *testing.T) {
	nodes := make(map[string]map[string]interface{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch r.Method {
		case http.MethodPatch:
			var value map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if nodes[path] == nil {
				nodes[path] = make(map[string]interface{})
			}
			for k, v := range value {
				nodes[path][k] = v
			}
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			var value map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			nodes[path] = value
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			json.NewEncoder(w).Encode(nodes[path])
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	d := newTestDAO(srv)
	ctx := context.Background()

	if _, err := d.Merge(ctx, map[string]int{"a": 1}, "session", "u1"); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	if _, err := d.Merge(ctx, map[string]int{"b": 2}, "session", "u1"); err != nil {
		t.Fatalf("second merge: %v", err)
	}

	_, body, err := d.Get(ctx, false, "session", "u1")
	if err != nil {
		t.Fatalf("get after merges: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 || got["a"] != float64(1) || got["b"] != float64(2) {
		t.Errorf("after merges = %v, want {a:1 b:2}", got)
	}

	if _, err := d.Put(ctx, map[string]int{"c": 3}, "session", "u1"); err != nil {
		t.Fatalf("put: %v", err)
	}

	_, body, err = d.Get(ctx, false, "session", "u1")
	if err != nil {
		t.Fatalf("get after put: %v", err)
	}
	got = nil
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got["c"] != float64(3) {
		t.Errorf("after put = %v, want exactly {c:3}", got)
	}
}
