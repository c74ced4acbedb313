package pipeline

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"

	"github.com/sells-group/lead-cleaner/pkg/anthropic"
)

// stubLLM implements anthropic.Client with a per-call function.
type stubLLM struct {
	mu    sync.Mutex
	calls int
	reqs  []anthropic.MessageRequest
	fn    func(call int, req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

func (s *stubLLM) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	return s.fn(call, req)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content:    []anthropic.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
	}
}

// stubDoH implements doh.Client.
type stubDoH struct {
	hosts []string
	err   error
	calls int
}

func (s *stubDoH) LookupMX(_ context.Context, _ string) ([]string, error) {
	s.calls++
	return s.hosts, s.err
}

// stubResolver implements MXResolver.
type stubResolver struct {
	records []*net.MX
	err     error
	calls   int
}

func (s *stubResolver) LookupMX(_ context.Context, _ string) ([]*net.MX, error) {
	s.calls++
	return s.records, s.err
}

// stubUploader captures the uploaded artifact.
type stubUploader struct {
	body bytes.Buffer
	name string
	link string
	err  error
}

func (s *stubUploader) Upload(_ context.Context, r io.Reader, fileName string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.name = fileName
	if _, err := io.Copy(&s.body, r); err != nil {
		return "", err
	}
	return s.link, nil
}

// stubSender records notifications.
type stubSender struct {
	subjects []string
	bodies   []string
	err      error
}

func (s *stubSender) Send(_ context.Context, subject, body string, _ []string) error {
	s.subjects = append(s.subjects, subject)
	s.bodies = append(s.bodies, body)
	return s.err
}
