package firebase

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// ErrorClass 传输错误分类
type ErrorClass int

const (
	// ClassOther 其他错误，不重试
	ClassOther ErrorClass = iota
	// ClassConnection 连接类错误（重置、拒绝、中途断开），换客户端重试
	ClassConnection
	// ClassTimeout 超时类错误，同一客户端重试
	ClassTimeout
)

// Classify 对传输错误归类，决定重试策略
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassOther
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return ClassConnection
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}
	return ClassOther
}
