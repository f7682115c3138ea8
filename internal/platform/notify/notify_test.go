package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWebhookChatNotifier_PostsText(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookChatNotifier(srv.URL)
	if err := n.NotifyChat(context.Background(), "Reponer SKU X1 (3 uds)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["text"] != "Reponer SKU X1 (3 uds)" {
		t.Errorf("text = %q", got["text"])
	}
}

func TestWebhookChatNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookChatNotifier(srv.URL)
	if err := n.NotifyChat(context.Background(), "hola"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestWebhookChatNotifier_Unconfigured(t *testing.T) {
	n := NewWebhookChatNotifier("")
	if err := n.NotifyChat(context.Background(), "hola"); err == nil {
		t.Fatal("expected error for empty webhook url")
	}
}

// startSMTPServer runs a minimal scripted SMTP server on a loopback port and
// delivers the DATA payload of the first session on the returned channel.
func startSMTPServer(t *testing.T) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	data := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		br := bufio.NewReader(conn)
		fmt.Fprintf(conn, "220 clinica-test ESMTP\r\n")
		var body strings.Builder
		inData := false
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			if inData {
				if line == "." {
					inData = false
					fmt.Fprintf(conn, "250 OK\r\n")
					data <- body.String()
					continue
				}
				body.WriteString(line + "\r\n")
				continue
			}
			switch {
			case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
				fmt.Fprintf(conn, "250 clinica-test\r\n")
			case line == "DATA":
				inData = true
				fmt.Fprintf(conn, "354 go ahead\r\n")
			case line == "QUIT":
				fmt.Fprintf(conn, "221 bye\r\n")
				return
			default:
				fmt.Fprintf(conn, "250 OK\r\n")
			}
		}
	}()
	return ln.Addr().String(), data
}

func TestSMTPEmailNotifier_DeliversMessage(t *testing.T) {
	addr, data := startSMTPServer(t)

	n := NewSMTPEmailNotifier(addr, "noreply@clinica.example", "ops@clinica.example")
	if err := n.NotifyEmail(context.Background(), "Stock bajo", "Reponer SKU X1 (3 uds)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-data:
		if !strings.Contains(msg, "Subject: Stock bajo") {
			t.Errorf("message missing subject: %q", msg)
		}
		if !strings.Contains(msg, "To: ops@clinica.example") {
			t.Errorf("message missing recipient: %q", msg)
		}
		if !strings.Contains(msg, "Reponer SKU X1 (3 uds)") {
			t.Errorf("message missing body: %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the message")
	}
}

func TestSMTPEmailNotifier_HonorsContextDeadline(t *testing.T) {
	// A relay that accepts the connection but never sends the greeting.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(5 * time.Second)
	}()

	n := NewSMTPEmailNotifier(ln.Addr().String(), "noreply@clinica.example", "ops@clinica.example")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- n.NotifyEmail(ctx, "s", "t") }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error from expired context")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("NotifyEmail still blocked well past the context deadline")
	}
}

func TestSMTPEmailNotifier_CancelUnblocksSession(t *testing.T) {
	// No deadline on the context, only cancellation mid-session.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(5 * time.Second)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	n := NewSMTPEmailNotifier(ln.Addr().String(), "noreply@clinica.example", "ops@clinica.example")

	done := make(chan error, 1)
	go func() { done <- n.NotifyEmail(ctx, "s", "t") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error from cancelled context")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("NotifyEmail still blocked after cancellation")
	}
}

func TestSMTPEmailNotifier_Unconfigured(t *testing.T) {
	n := NewSMTPEmailNotifier("", "", "")
	if err := n.NotifyEmail(context.Background(), "s", "t"); err == nil {
		t.Fatal("expected error for unconfigured notifier")
	}
}

func TestMockNotifiers_Record(t *testing.T) {
	chat := &MockChatNotifier{}
	if err := chat.NotifyChat(context.Background(), "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls := chat.Calls(); len(calls) != 1 || calls[0] != "a" {
		t.Errorf("chat calls = %v", calls)
	}

	email := &MockEmailNotifier{ShouldFail: true}
	if err := email.NotifyEmail(context.Background(), "s", "b"); err == nil {
		t.Fatal("expected failure from failing mock")
	}
	if calls := email.Calls(); len(calls) != 1 || calls[0].Subject != "s" {
		t.Errorf("email calls = %v", calls)
	}
}
