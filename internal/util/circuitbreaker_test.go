package util

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestBreaker(resetTimeout time.Duration, healthCheckFn HealthCheckFunction) *CircuitBreaker {
	return NewCircuitBreaker(3, resetTimeout, 10*time.Millisecond, healthCheckFn, zap.NewNop())
}

func TestCircuitOpensAtThreshold(t *testing.T) {
	cb := newTestBreaker(time.Minute, nil)

	cb.RecordFailure(0)
	cb.RecordFailure(0)

	if cb.GetState() != CircuitStateClosed {
		t.Fatalf("expected CLOSED below threshold, got %s", cb.GetState())
	}
	if !cb.CanExecute() {
		t.Fatal("expected requests allowed below threshold")
	}

	cb.RecordFailure(0)

	if cb.GetState() != CircuitStateOpen {
		t.Fatalf("expected OPEN at threshold, got %s", cb.GetState())
	}
	if cb.CanExecute() {
		t.Fatal("expected requests blocked while OPEN")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(time.Minute, nil)

	cb.RecordFailure(0)
	cb.RecordFailure(0)
	cb.RecordSuccess()
	cb.RecordFailure(0)
	cb.RecordFailure(0)

	if cb.GetState() != CircuitStateClosed {
		t.Fatalf("expected CLOSED since success resets the count, got %s", cb.GetState())
	}
	if status := cb.GetStatus(); status.FailureCount != 2 {
		t.Errorf("expected failure count 2, got %d", status.FailureCount)
	}
}

func TestTimeBasedRecovery(t *testing.T) {
	cb := newTestBreaker(time.Minute, nil)

	for i := 0; i < 3; i++ {
		cb.RecordFailure(5 * time.Millisecond)
	}
	if cb.GetState() != CircuitStateOpen {
		t.Fatalf("expected OPEN, got %s", cb.GetState())
	}

	time.Sleep(50 * time.Millisecond)

	// Without a health check fn the breaker goes HALF_OPEN once the
	// retry window passes.
	if cb.GetState() != CircuitStateHalfOpen {
		t.Fatalf("expected HALF_OPEN after retry window, got %s", cb.GetState())
	}

	cb.RecordSuccess()

	if cb.GetState() != CircuitStateClosed {
		t.Fatalf("expected CLOSED after recovery, got %s", cb.GetState())
	}
	if status := cb.GetStatus(); status.FailureCount != 0 {
		t.Errorf("expected failure count 0 after recovery, got %d", status.FailureCount)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := newTestBreaker(time.Minute, nil)

	for i := 0; i < 3; i++ {
		cb.RecordFailure(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	if cb.GetState() != CircuitStateHalfOpen {
		t.Fatalf("expected HALF_OPEN, got %s", cb.GetState())
	}

	cb.RecordFailure(time.Minute)

	if cb.GetState() != CircuitStateOpen {
		t.Fatalf("expected failed recovery to reopen, got %s", cb.GetState())
	}
	if cb.CanExecute() {
		t.Fatal("expected requests blocked after reopening")
	}
}

func TestHealthCheckDrivenRecovery(t *testing.T) {
	healthy := make(chan struct{}, 1)
	cb := newTestBreaker(time.Minute, func() bool {
		select {
		case healthy <- struct{}{}:
		default:
		}
		return true
	})

	for i := 0; i < 3; i++ {
		cb.RecordFailure(time.Minute)
	}
	if cb.GetState() != CircuitStateOpen {
		t.Fatalf("expected OPEN, got %s", cb.GetState())
	}

	// The health check fires asynchronously from GetState once its
	// interval elapses, so poll until the state flips.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cb.GetState() == CircuitStateHalfOpen {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if cb.GetState() != CircuitStateHalfOpen {
		t.Fatalf("expected health check to move circuit to HALF_OPEN, got %s", cb.GetState())
	}

	select {
	case <-healthy:
	default:
		t.Error("expected health check fn to have run")
	}
}

func TestManualReset(t *testing.T) {
	cb := newTestBreaker(time.Minute, nil)

	for i := 0; i < 3; i++ {
		cb.RecordFailure(0)
	}

	status := cb.GetStatus()
	if status.State != CircuitStateOpen || status.NextRetryTime == nil {
		t.Fatalf("expected OPEN status with retry time, got %+v", status)
	}

	cb.Reset()

	if cb.GetState() != CircuitStateClosed {
		t.Fatalf("expected CLOSED after reset, got %s", cb.GetState())
	}
	status = cb.GetStatus()
	if status.FailureCount != 0 || status.NextRetryTime != nil {
		t.Errorf("expected clean status after reset, got %+v", status)
	}
}
