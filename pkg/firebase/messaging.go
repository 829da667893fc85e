package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Notification 推送通知内容
type Notification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Image string `json:"image,omitempty"`
}

// Message 单设备推送消息，按设备令牌寻址
type Message struct {
	Notification Notification `json:"notification"`
	Token        string       `json:"token"`
}

// DeliveryError 下发API的拒绝响应
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery rejected: status=%d body=%s", e.StatusCode, e.Body)
}

// MessagingClient 推送下发客户端
type MessagingClient struct {
	endpoint  string
	projectID string
	pool      *ClientPool
}

// NewMessagingClient 创建推送下发客户端
func NewMessagingClient(endpoint, projectID string, pool *ClientPool) *MessagingClient {
	return &MessagingClient{
		endpoint:  endpoint,
		projectID: projectID,
		pool:      pool,
	}
}

// sendRequest 下发API请求体
type sendRequest struct {
	Message *Message `json:"message"`
}

// sendResponse 下发API响应体，Name即消息ID
type sendResponse struct {
	Name string `json:"name"`
}

// Send 下发一条推送，返回远端产生的消息ID。
// 连接类失败换客户端重试一次，超时同客户端重试一次，其余失败直接返回。
func (m *MessagingClient) Send(ctx context.Context, msg *Message) (string, error) {
	body, err := json.Marshal(sendRequest{Message: msg})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/projects/%s/messages:send", m.endpoint, m.projectID)

	const maxAttempts = 2
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		cli, err := m.pool.Acquire(ctx)
		if err != nil {
			return "", err
		}

		id, err := m.sendOnce(ctx, cli, url, body)
		if err == nil {
			m.pool.Release(cli)
			return id, nil
		}
		lastErr = err

		switch Classify(err) {
		case ClassConnection:
			m.pool.Invalidate(cli)
		case ClassTimeout:
			m.pool.Release(cli)
		default:
			m.pool.Release(cli)
			return "", err
		}
	}
	return "", lastErr
}

func (m *MessagingClient) sendOnce(ctx context.Context, cli *Client, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cli.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &DeliveryError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var sr sendResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return "", err
	}
	return sr.Name, nil
}
