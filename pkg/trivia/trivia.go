// Package trivia 题目来源，默认使用 OpenTDB
package trivia

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"html"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"TaskQuest/pkg/breaker"
)

// Question 一道单选题
type Question struct {
	Text      string
	Correct   string
	Incorrect []string
}

// Choices 正确答案放在最后，展示前需要打乱
func (q Question) Choices() []string {
	out := make([]string, 0, len(q.Incorrect)+1)
	out = append(out, q.Incorrect...)
	return append(out, q.Correct)
}

// Provider 拉取一道题；上游没有可用题目时返回 nil, nil
type Provider interface {
	Fetch(ctx context.Context) (*Question, error)
}

type openTDBResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

// OpenTDB https://opentdb.com/api.php?amount=1&type=multiple
type OpenTDB struct {
	client  *client.Client
	url     string
	timeout time.Duration
}

func NewOpenTDB(url string, timeout time.Duration) (*OpenTDB, error) {
	c, err := client.NewClient(
		client.WithDialer(standard.NewDialer()),
		client.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
		client.WithDialTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create trivia client: %w", err)
	}
	return &OpenTDB{client: c, url: url, timeout: timeout}, nil
}

func (o *OpenTDB) Fetch(ctx context.Context) (*Question, error) {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(o.url)
	req.SetMethod(consts.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := o.client.DoTimeout(ctx, req, resp, o.timeout); err != nil {
		return nil, fmt.Errorf("request trivia: %w", err)
	}
	if resp.StatusCode() != consts.StatusOK {
		return nil, fmt.Errorf("request trivia: status %d", resp.StatusCode())
	}
	return parse(resp.Body())
}

func parse(body []byte) (*Question, error) {
	var data openTDBResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode trivia response: %w", err)
	}
	if data.ResponseCode != 0 || len(data.Results) == 0 {
		return nil, nil
	}

	r := data.Results[0]
	q := &Question{
		Text:    html.UnescapeString(r.Question),
		Correct: html.UnescapeString(r.CorrectAnswer),
	}
	for _, a := range r.IncorrectAnswers {
		q.Incorrect = append(q.Incorrect, html.UnescapeString(a))
	}
	return q, nil
}

type guarded struct {
	next    Provider
	breaker *breaker.Breaker
}

// WithBreaker 上游连续失败时快速失败
func WithBreaker(p Provider, b *breaker.Breaker) Provider {
	return &guarded{next: p, breaker: b}
}

func (g *guarded) Fetch(ctx context.Context) (*Question, error) {
	var q *Question
	err := g.breaker.Do(func() error {
		var err error
		q, err = g.next.Fetch(ctx)
		return err
	})
	return q, err
}
