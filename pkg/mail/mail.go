// Package mail 出站邮件：sendgrid 直发、控制台输出或投递到 RabbitMQ 由 worker 发送。
package mail

import (
	"context"
	"errors"
	"fmt"
)

var ErrEmptyRecipient = errors.New("mail: empty recipient")

// Message 纯文本邮件
type Message struct {
	To      string
	Subject string
	Body    string
}

func (m Message) Validate() error {
	if m.To == "" {
		return ErrEmptyRecipient
	}
	return nil
}

// Sender 邮件发送接口
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Job 队列中的出站邮件
type Job struct {
	MessageID string `json:"message_id"` // 消息唯一ID，用于幂等性检查
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	QueuedAt  string `json:"queued_at"`
}

func (j Job) Message() Message {
	return Message{To: j.To, Subject: j.Subject, Body: j.Body}
}

// Options 创建 Sender 所需的配置
type Options struct {
	Provider    string // console, sendgrid, queue
	APIKey      string
	FromName    string
	FromAddress string
	Publish     PublishFunc // queue 使用
}

// New 按 provider 构造 Sender
func New(opts Options) (Sender, error) {
	switch opts.Provider {
	case "", "console":
		return NewConsoleSender(opts.FromAddress), nil
	case "sendgrid":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("mail: sendgrid api key is empty")
		}
		return NewSendGridSender(opts.APIKey, opts.FromName, opts.FromAddress), nil
	case "queue":
		if opts.Publish == nil {
			return nil, fmt.Errorf("mail: queue provider needs a publisher")
		}
		return NewQueueSender(opts.Publish), nil
	default:
		return nil, fmt.Errorf("mail: unsupported provider %q", opts.Provider)
	}
}
