// Package notify provides the outbound notification channels used by the
// automation handlers: a chat webhook and plain SMTP email. Both channels are
// best-effort; callers decide whether a failure matters.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/smtp"
	"strings"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Notifier interfaces
// ---------------------------------------------------------------------------

// ChatNotifier posts a short message to the clinic's chat channel.
type ChatNotifier interface {
	NotifyChat(ctx context.Context, text string) error
}

// EmailNotifier sends a plain-text email to the clinic's alert inbox.
type EmailNotifier interface {
	NotifyEmail(ctx context.Context, subject, text string) error
}

// ---------------------------------------------------------------------------
// Chat webhook notifier
// ---------------------------------------------------------------------------

// ChatOption configures a WebhookChatNotifier.
type ChatOption func(*WebhookChatNotifier)

// WithHTTPClient overrides the default HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) ChatOption {
	return func(n *WebhookChatNotifier) { n.client = c }
}

// WebhookChatNotifier posts messages to an incoming-webhook chat URL
// (Google Chat / Slack style: a JSON body with a "text" field).
type WebhookChatNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookChatNotifier creates a chat notifier for the given webhook URL.
func NewWebhookChatNotifier(url string, opts ...ChatOption) *WebhookChatNotifier {
	n := &WebhookChatNotifier{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

func (n *WebhookChatNotifier) NotifyChat(ctx context.Context, text string) error {
	if n.url == "" {
		return errors.New("chat webhook url not configured")
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post chat message: %w", err)
	}
	defer resp.Body.Close()

	// Drain at most 1KB so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chat webhook returned %d", resp.StatusCode)
	}
	return nil
}

// ---------------------------------------------------------------------------
// SMTP email notifier
// ---------------------------------------------------------------------------

// SMTPEmailNotifier sends plain-text email through a fixed SMTP relay.
type SMTPEmailNotifier struct {
	addr string
	from string
	to   string
}

// NewSMTPEmailNotifier creates an email notifier. addr is host:port of the
// SMTP relay; from and to are fixed for the clinic's alert inbox.
func NewSMTPEmailNotifier(addr, from, to string) *SMTPEmailNotifier {
	return &SMTPEmailNotifier{addr: addr, from: from, to: to}
}

// NotifyEmail delivers one message over a fresh SMTP session. The whole
// session is bounded by ctx: the dial honors cancellation, the connection
// deadline is taken from ctx, and cancellation closes the connection so a
// relay that stops responding mid-session cannot block the caller.
func (n *SMTPEmailNotifier) NotifyEmail(ctx context.Context, subject, text string) error {
	if n.addr == "" || n.to == "" {
		return errors.New("smtp notifier not configured")
	}

	msg := strings.Join([]string{
		"From: " + n.from,
		"To: " + n.to,
		"Subject: " + subject,
		"",
		text,
	}, "\r\n")

	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", n.addr)
	if err != nil {
		return fmt.Errorf("dial smtp relay: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	host := n.addr
	if h, _, splitErr := net.SplitHostPort(n.addr); splitErr == nil {
		host = h
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer client.Close()

	if err := client.Mail(n.from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := client.Rcpt(n.to); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}
	return client.Quit()
}

// ---------------------------------------------------------------------------
// Mock notifiers (test doubles)
// ---------------------------------------------------------------------------

// EmailCall records a single call to NotifyEmail.
type EmailCall struct {
	Subject string
	Text    string
}

// MockChatNotifier is a test double for ChatNotifier.
type MockChatNotifier struct {
	mu         sync.Mutex
	calls      []string
	ShouldFail bool
}

// NotifyChat records the call and optionally returns an error.
func (m *MockChatNotifier) NotifyChat(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, text)
	if m.ShouldFail {
		return errors.New("chat unavailable")
	}
	return nil
}

// Calls returns a copy of recorded chat messages.
func (m *MockChatNotifier) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockEmailNotifier is a test double for EmailNotifier.
type MockEmailNotifier struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
}

// NotifyEmail records the call and optionally returns an error.
func (m *MockEmailNotifier) NotifyEmail(_ context.Context, subject, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{Subject: subject, Text: text})
	if m.ShouldFail {
		return errors.New("smtp unavailable")
	}
	return nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailNotifier) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}
