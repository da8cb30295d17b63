package notify

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	verr "vaulta/internal/errors"
	"vaulta/internal/retry"
)

// silentRelay accepts TCP connections and never sends an SMTP greeting,
// simulating a hung relay.
func silentRelay(t *testing.T) (string, int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		l.Close()
		mu.Lock()
		for _, c := range conns {
			c.Close()
		}
		mu.Unlock()
	})
	return "127.0.0.1", l.Addr().(*net.TCPAddr).Port
}

func fastBackoff() *retry.Backoff {
	return &retry.Backoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
		MaxAttempts:  2,
	}
}

func TestSendNoRecipient(t *testing.T) {
	m := &Mailer{log: zap.NewNop()}
	if err := m.Send(context.Background(), nil, "s", "p", "h"); err != verr.ErrNoRecipient {
		t.Errorf("Send() error = %v, want ErrNoRecipient", err)
	}
}

func TestSendTimeoutBoundsEachAttempt(t *testing.T) {
	host, port := silentRelay(t)
	m := &Mailer{
		dialer:  gomail.NewDialer(host, port, "", ""),
		from:    "vault@example.com",
		timeout: 50 * time.Millisecond,
		backoff: fastBackoff(),
		breaker: retry.NewBreaker(nil),
		log:     zap.NewNop(),
	}

	start := time.Now()
	err := m.Send(context.Background(), []string{"to@example.com"}, "subject", "plain", "<p>html</p>")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Send() succeeded against a relay that never responds")
	}
	// Two attempts at 50ms each plus backoff slack; without the
	// per-attempt timeout this would hang until the test deadline.
	if elapsed > 2*time.Second {
		t.Errorf("Send() took %v, per-attempt timeout not applied", elapsed)
	}
}

func TestSendFailsFastWhenBreakerOpen(t *testing.T) {
	host, port := silentRelay(t)

	b := retry.NewBreaker(&retry.BreakerConfig{Threshold: 1, Cooldown: time.Hour})
	_ = b.Execute(func() error { return fmt.Errorf("relay down") })

	m := &Mailer{
		dialer:  gomail.NewDialer(host, port, "", ""),
		from:    "vault@example.com",
		timeout: 10 * time.Second,
		backoff: fastBackoff(),
		breaker: b,
		log:     zap.NewNop(),
	}

	start := time.Now()
	err := m.Send(context.Background(), []string{"to@example.com"}, "subject", "plain", "<p>html</p>")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Send() succeeded through an open breaker")
	}
	if elapsed > time.Second {
		t.Errorf("Send() took %v, open breaker should reject without dialing", elapsed)
	}
}
