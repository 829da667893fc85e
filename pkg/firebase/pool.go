package firebase

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
)

// Client 一次HTTP调用所用的授权客户端。
// 同一时刻只属于一个工作协程，不跨协程复用。
type Client struct {
	hc     *http.Client
	broken bool
}

// Do 执行HTTP请求
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.hc.Do(req)
}

// ClientPool 授权HTTP客户端池。
// 客户端惰性创建，凭据走平台默认应用凭据并限定到存储作用域，
// 连接类失败后通过Invalidate丢弃，下次Acquire重建。
type ClientPool struct {
	mu      sync.Mutex
	idle    []*Client
	scopes  []string
	timeout time.Duration

	// newClient 可替换的客户端构造函数，测试时注入
	newClient func(ctx context.Context) (*http.Client, error)
}

// NewClientPool 创建客户端池
func NewClientPool(scopes []string, timeout time.Duration) *ClientPool {
	p := &ClientPool{
		scopes:  scopes,
		timeout: timeout,
	}
	p.newClient = p.defaultClient
	return p
}

// NewClientPoolWithFactory 使用自定义构造函数创建客户端池
func NewClientPoolWithFactory(timeout time.Duration, factory func(ctx context.Context) (*http.Client, error)) *ClientPool {
	return &ClientPool{
		timeout:   timeout,
		newClient: factory,
	}
}

func (p *ClientPool) defaultClient(ctx context.Context) (*http.Client, error) {
	hc, err := google.DefaultClient(ctx, p.scopes...)
	if err != nil {
		return nil, err
	}
	hc.Timeout = p.timeout
	return hc, nil
}

// Acquire 借出一个客户端，用完通过Release归还
func (p *ClientPool) Acquire(ctx context.Context) (*Client, error) {
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		c := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	hc, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{hc: hc}, nil
}

// Release 归还客户端，已作废的不回池
func (p *ClientPool) Release(c *Client) {
	if c == nil || c.broken {
		return
	}
	p.mu.Lock()
	p.idle = append(p.idle, c)
	p.mu.Unlock()
}

// Invalidate 作废客户端，连接类失败后调用
func (p *ClientPool) Invalidate(c *Client) {
	if c != nil {
		c.broken = true
	}
}
