package dao

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gogame-presence/pkg/firebase"
	"gogame-presence/pkg/logger"
)

type storeDAO struct {
	baseURL string
	pool    *firebase.ClientPool
	logger  logger.Logger
}

// NewStoreDAO 创建远程存储DAO实例
func NewStoreDAO(baseURL string, pool *firebase.ClientPool, log logger.Logger) StoreDAO {
	return &storeDAO{
		baseURL: strings.TrimRight(baseURL, "/"),
		pool:    pool,
		logger:  log,
	}
}

// buildURL 拼接节点地址，段内不允许斜杠
func (d *storeDAO) buildURL(query string, segments ...string) (string, error) {
	for _, seg := range segments {
		if seg == "" || strings.Contains(seg, "/") {
			return "", fmt.Errorf("invalid path segment %q", seg)
		}
	}
	url := d.baseURL + "/" + strings.Join(segments, "/") + ".json"
	if query != "" {
		url += "?" + query
	}
	return url, nil
}

// request 执行一次远程调用，最多尝试两次。
// 连接类失败作废客户端后重试，超时类失败同客户端重试，其余失败直接返回。
func (d *storeDAO) request(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	const maxAttempts = 2
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		cli, err := d.pool.Acquire(ctx)
		if err != nil {
			return 0, nil, err
		}

		status, data, err := d.doOnce(ctx, cli, method, url, body)
		if err == nil {
			d.pool.Release(cli)
			return status, data, nil
		}
		lastErr = err

		switch firebase.Classify(err) {
		case firebase.ClassConnection:
			d.pool.Invalidate(cli)
		case firebase.ClassTimeout:
			d.pool.Release(cli)
		default:
			d.pool.Release(cli)
			return 0, nil, err
		}
	}
	return 0, nil, lastErr
}

func (d *storeDAO) doOnce(ctx context.Context, cli *firebase.Client, method, url string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Connection", "keep-alive")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := cli.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

// Get 读取节点
func (d *storeDAO) Get(ctx context.Context, shallow bool, segments ...string) (int, []byte, error) {
	query := ""
	if shallow {
		query = "shallow=true"
	}
	url, err := d.buildURL(query, segments...)
	if err != nil {
		return 0, nil, err
	}
	return d.request(ctx, http.MethodGet, url, nil)
}

// Put 整体覆盖节点
func (d *storeDAO) Put(ctx context.Context, value interface{}, segments ...string) (int, error) {
	url, err := d.buildURL("print=silent", segments...)
	if err != nil {
		return 0, err
	}
	body, err := json.Marshal(value)
	if err != nil {
		return 0, err
	}
	status, _, err := d.request(ctx, http.MethodPut, url, body)
	return status, err
}

// Merge 部分更新节点
func (d *storeDAO) Merge(ctx context.Context, value interface{}, segments ...string) (int, error) {
	url, err := d.buildURL("print=silent", segments...)
	if err != nil {
		return 0, err
	}
	body, err := json.Marshal(value)
	if err != nil {
		return 0, err
	}
	status, _, err := d.request(ctx, http.MethodPatch, url, body)
	return status, err
}

// Delete 删除节点及其子树
func (d *storeDAO) Delete(ctx context.Context, segments ...string) (int, error) {
	url, err := d.buildURL("", segments...)
	if err != nil {
		return 0, err
	}
	status, _, err := d.request(ctx, http.MethodDelete, url, nil)
	return status, err
}

// writeOK 写操作成功状态
func writeOK(status int) bool {
	return status == http.StatusOK || status == http.StatusNoContent
}

// SendMessage 合并写入消息，message为nil时删除节点
func (d *storeDAO) SendMessage(ctx context.Context, message interface{}, segments ...string) bool {
	var status int
	var err error
	if message == nil {
		status, err = d.Delete(ctx, segments...)
	} else {
		status, err = d.Merge(ctx, message, segments...)
	}
	if err != nil {
		d.logger.Warn(ctx, "send message failed",
			logger.F("path", strings.Join(segments, "/")),
			logger.F("error", err.Error()))
		return false
	}
	return writeOK(status)
}

// PutMessage 覆盖写入消息，message为nil时删除节点
func (d *storeDAO) PutMessage(ctx context.Context, message interface{}, segments ...string) bool {
	var status int
	var err error
	if message == nil {
		status, err = d.Delete(ctx, segments...)
	} else {
		status, err = d.Put(ctx, message, segments...)
	}
	if err != nil {
		d.logger.Warn(ctx, "put message failed",
			logger.F("path", strings.Join(segments, "/")),
			logger.F("error", err.Error()))
		return false
	}
	return writeOK(status)
}

// SendUpdate 将当前UTC时间戳写到末段字段上
func (d *storeDAO) SendUpdate(ctx context.Context, segments ...string) bool {
	if len(segments) == 0 {
		return false
	}
	endpoint := segments[len(segments)-1]
	value := map[string]interface{}{
		endpoint: time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
	}
	return d.SendMessage(ctx, value, segments[:len(segments)-1]...)
}
