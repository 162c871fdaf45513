package passcode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/passlane/internal/cache/memory"
	"github.com/dropDatabas3/passlane/internal/connector"
	"github.com/dropDatabas3/passlane/internal/domain/repository"
	storememory "github.com/dropDatabas3/passlane/internal/store/memory"
)

// fakeSender captura envíos; puede fallar a demanda.
type fakeSender struct {
	mu    sync.Mutex
	sent  []string // códigos entregados, en orden
	to    []string
	fails bool
}

func (f *fakeSender) Send(_ context.Context, destination, code string, _ time.Duration) (*connector.DeliveryReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails {
		return nil, connector.ErrDeliveryFailed
	}
	f.sent = append(f.sent, code)
	f.to = append(f.to, destination)
	return &connector.DeliveryReceipt{SentAt: time.Now()}, nil
}

func (f *fakeSender) lastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no code was sent")
	}
	return f.sent[len(f.sent)-1]
}

func newService(t *testing.T) (*Service, *fakeSender, *storememory.Store) {
	t.Helper()
	st := storememory.New()
	sender := &fakeSender{}
	svc := NewService(st.Passcodes(), map[repository.Channel]connector.Sender{
		repository.ChannelSMS:   sender,
		repository.ChannelEmail: sender,
	}, memory.New(), Options{})
	return svc, sender, st
}

func smsKey(destination string) repository.PasscodeKey {
	return repository.PasscodeKey{
		Channel:        repository.ChannelSMS,
		Destination:    destination,
		InteractionJTI: "jti-1",
		Flow:           repository.FlowSignIn,
	}
}

func TestIssueAndVerify(t *testing.T) {
	svc, sender, _ := newService(t)
	key := smsKey("13000000000")

	if err := svc.Issue(context.Background(), key); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	code := sender.lastCode(t)
	if len(code) != codeLength {
		t.Fatalf("code length = %d, want %d", len(code), codeLength)
	}

	if err := svc.Verify(context.Background(), key, code); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyMismatchDoesNotConsume(t *testing.T) {
	svc, sender, _ := newService(t)
	svc.generate = func() (string, error) { return "123456", nil }
	key := smsKey("13000000000")

	if err := svc.Issue(context.Background(), key); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := svc.Verify(context.Background(), key, "123156"); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("error = %v, want ErrCodeMismatch", err)
	}

	// El código correcto sigue vivo después del mismatch.
	if err := svc.Verify(context.Background(), key, sender.lastCode(t)); err != nil {
		t.Fatalf("Verify after mismatch: %v", err)
	}
}

func TestVerifyConsumesExactlyOnce(t *testing.T) {
	svc, sender, _ := newService(t)
	key := smsKey("13000000000")

	if err := svc.Issue(context.Background(), key); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	code := sender.lastCode(t)

	if err := svc.Verify(context.Background(), key, code); err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	if err := svc.Verify(context.Background(), key, code); !errors.Is(err, ErrCodeConsumed) {
		t.Fatalf("second Verify error = %v, want ErrCodeConsumed", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	st := storememory.New()
	base := time.Now().UTC()
	st.SetClock(func() time.Time { return base })

	sender := &fakeSender{}
	svc := NewService(st.Passcodes(), map[repository.Channel]connector.Sender{
		repository.ChannelSMS: sender,
	}, memory.New(), Options{TTL: time.Minute})

	key := smsKey("13000000000")
	if err := svc.Issue(context.Background(), key); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	st.SetClock(func() time.Time { return base.Add(2 * time.Minute) })

	if err := svc.Verify(context.Background(), key, sender.lastCode(t)); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("error = %v, want ErrCodeExpired", err)
	}
}

func TestVerifyExpiredWrongCode(t *testing.T) {
	st := storememory.New()
	base := time.Now().UTC()
	st.SetClock(func() time.Time { return base })

	sender := &fakeSender{}
	svc := NewService(st.Passcodes(), map[repository.Channel]connector.Sender{
		repository.ChannelSMS: sender,
	}, memory.New(), Options{TTL: time.Minute})
	svc.generate = func() (string, error) { return "123456", nil }
	svc.now = func() time.Time { return base }

	key := smsKey("13000000000")
	if err := svc.Issue(context.Background(), key); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	later := base.Add(2 * time.Minute)
	st.SetClock(func() time.Time { return later })
	svc.now = func() time.Time { return later }

	// Vencido responde expired aunque el código ni siquiera coincida.
	if err := svc.Verify(context.Background(), key, "000000"); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("error = %v, want ErrCodeExpired", err)
	}
}

func TestVerifyConsumedWrongCode(t *testing.T) {
	svc, _, _ := newService(t)
	svc.generate = func() (string, error) { return "123456", nil }
	key := smsKey("13000000000")

	if err := svc.Issue(context.Background(), key); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := svc.Verify(context.Background(), key, "123456"); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	// Consumido tiene precedencia sobre mismatch.
	if err := svc.Verify(context.Background(), key, "654321"); !errors.Is(err, ErrCodeConsumed) {
		t.Fatalf("error = %v, want ErrCodeConsumed", err)
	}
}

func TestVerifyWithoutIssue(t *testing.T) {
	svc, _, _ := newService(t)
	if err := svc.Verify(context.Background(), smsKey("13000000000"), "123456"); !errors.Is(err, ErrNoPasscode) {
		t.Fatalf("error = %v, want ErrNoPasscode", err)
	}
}

func TestReissueSupersedesPreviousCode(t *testing.T) {
	svc, sender, _ := newService(t)
	svc.cool = time.Nanosecond // sin cooldown en este test
	key := smsKey("13000000000")

	if err := svc.Issue(context.Background(), key); err != nil {
		t.Fatalf("first Issue: %v", err)
	}
	first := sender.lastCode(t)

	time.Sleep(time.Millisecond)
	if err := svc.Issue(context.Background(), key); err != nil {
		t.Fatalf("second Issue: %v", err)
	}
	second := sender.lastCode(t)

	// El primero quedó lógicamente invalidado aunque coincidan los dígitos:
	// FindLatest siempre mira el más reciente.
	if first != second {
		if err := svc.Verify(context.Background(), key, first); !errors.Is(err, ErrCodeMismatch) {
			t.Fatalf("stale code error = %v, want ErrCodeMismatch", err)
		}
	}
	if err := svc.Verify(context.Background(), key, second); err != nil {
		t.Fatalf("Verify latest: %v", err)
	}
}

func TestIssueResendCooldown(t *testing.T) {
	svc, _, _ := newService(t)
	key := smsKey("13000000000")

	if err := svc.Issue(context.Background(), key); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := svc.Issue(context.Background(), key); !errors.Is(err, ErrResendTooSoon) {
		t.Fatalf("error = %v, want ErrResendTooSoon", err)
	}
}

func TestIssueDeliveryFailureReleasesCooldown(t *testing.T) {
	svc, sender, _ := newService(t)
	key := smsKey("13000000000")

	sender.fails = true
	if err := svc.Issue(context.Background(), key); !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("error = %v, want ErrDeliveryFailed", err)
	}

	// Tras el fallo de entrega el cliente puede reintentar de inmediato.
	sender.fails = false
	if err := svc.Issue(context.Background(), key); err != nil {
		t.Fatalf("retry Issue: %v", err)
	}
}
