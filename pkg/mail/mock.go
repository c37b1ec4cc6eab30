package mail

import (
	"context"
	"errors"
	"sync"
)

// MockSender 记录调用的 Sender，测试使用
type MockSender struct {
	mu    sync.Mutex
	Calls []Message

	// FailNext 置为 true 时，下一次调用返回 mock 错误并自动复位
	FailNext bool
	// FailTo 发往这些地址的邮件总是失败
	FailTo map[string]bool
}

func NewMockSender() *MockSender {
	return &MockSender{FailTo: make(map[string]bool)}
}

func (m *MockSender) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, msg)

	if m.FailNext {
		m.FailNext = false
		return errors.New("mock mail send failure")
	}
	if m.FailTo[msg.To] {
		return errors.New("mock mail rejected recipient")
	}
	return nil
}

// Sent 返回调用记录的副本
func (m *MockSender) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.Calls...)
}
