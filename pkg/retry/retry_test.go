package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errFlaky = errors.New("flaky")

func TestDo(t *testing.T) {
	cfg := &Config{MaxRetries: 3, InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Millisecond}

	tests := []struct {
		name      string
		failures  int
		permanent bool
		wantCalls int
		wantErr   error
	}{
		{"first try", 0, false, 1, nil},
		{"recovers", 2, false, 3, nil},
		{"exhausted", 10, false, 4, ErrMaxRetriesExceeded},
		{"permanent", 10, true, 1, errFlaky},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := Do(context.Background(), cfg, func(ctx context.Context) (int, error) {
				calls++
				if calls <= tt.failures {
					if tt.permanent {
						return 0, Permanent(errFlaky)
					}
					return 0, errFlaky
				}
				return 42, nil
			})

			if calls != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls)
			}
			if tt.wantErr == nil {
				if err != nil || got != 42 {
					t.Errorf("expected 42, nil; got %d, %v", got, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxRetries: 5, InitialDelay: time.Hour}

	retried := make(chan struct{})
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		close(retried)
	}
	go func() {
		<-retried
		cancel()
	}()

	_, err := Do(ctx, cfg, func(ctx context.Context) (string, error) {
		return "", errFlaky
	})
	if !errors.Is(err, context.Canceled) || !errors.Is(err, errFlaky) {
		t.Errorf("expected canceled and last error, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	cfg := &Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{10, time.Second},
	}
	for _, tt := range tests {
		if got := Backoff(tt.attempt, cfg); got != tt.want {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.want, got)
		}
	}

	cfg.Jitter = 0.5
	for i := 0; i < 100; i++ {
		d := Backoff(1, cfg)
		if d < 100*time.Millisecond || d > 300*time.Millisecond {
			t.Fatalf("jittered delay %v outside [100ms, 300ms]", d)
		}
	}
}

func TestPermanent(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
	err := Permanent(errFlaky)
	if !IsPermanent(err) || !errors.Is(err, errFlaky) {
		t.Errorf("unexpected permanent error %v", err)
	}
	if IsPermanent(errFlaky) {
		t.Error("plain errors are not permanent")
	}
}
