package firebase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"testing"
)

type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string   { return "deadline exceeded" }
func (fakeTimeoutErr) Timeout() bool   { return true }
func (fakeTimeoutErr) Temporary() bool { return false }

// TestClassify 错误分类决定重试策略
func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ClassOther},
		{"连接重置", syscall.ECONNRESET, ClassConnection},
		{"连接拒绝", syscall.ECONNREFUSED, ClassConnection},
		{"管道断裂", syscall.EPIPE, ClassConnection},
		{"中途断开", io.ErrUnexpectedEOF, ClassConnection},
		{"包装后的连接重置", fmt.Errorf("do request: %w", syscall.ECONNRESET), ClassConnection},
		{"上下文超时", context.DeadlineExceeded, ClassTimeout},
		{"读写超时", os.ErrDeadlineExceeded, ClassTimeout},
		{"网络超时接口", fakeTimeoutErr{}, ClassTimeout},
		{"普通错误", errors.New("bad gateway"), ClassOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
