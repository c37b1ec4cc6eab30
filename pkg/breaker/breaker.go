// Package breaker 外部依赖的熔断器
package breaker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"TaskQuest/pkg/logger"
)

var ErrOpen = errors.New("circuit breaker is open")

// State 熔断器状态
type State int

const (
	StateClosed   State = iota // 正常工作
	StateOpen                  // 熔断中
	StateHalfOpen              // 尝试恢复
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker 连续失败 maxFailures 次后熔断，resetTimeout 之后放行少量探测请求
type Breaker struct {
	now func() time.Time

	name             string
	maxFailures      int
	resetTimeout     time.Duration
	halfOpenMaxCalls int

	mu            sync.Mutex
	state         State
	failures      int
	openedAt      time.Time
	halfOpenCalls int
}

func New(name string, maxFailures int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		now:              time.Now,
		name:             name,
		maxFailures:      maxFailures,
		resetTimeout:     resetTimeout,
		halfOpenMaxCalls: 1,
	}
}

// Do 熔断时直接返回 ErrOpen，不调用 fn
func (b *Breaker) Do(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.resetTimeout {
			return false
		}
		b.transition(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if b.halfOpenCalls >= b.halfOpenMaxCalls {
			return false
		}
		b.halfOpenCalls++
		return true
	default:
		return true
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state != StateClosed {
			b.transition(StateClosed)
		}
		b.failures = 0
		return
	}

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.transition(StateOpen)
	}
}

// transition 调用方需持有锁
func (b *Breaker) transition(to State) {
	b.state = to
	b.halfOpenCalls = 0
	if to == StateOpen {
		b.openedAt = b.now()
	}

	logger.Logger.Info("Circuit breaker state changed",
		zap.String("breaker", b.name),
		zap.String("state", to.String()),
		zap.Int("failures", b.failures),
	)
}
