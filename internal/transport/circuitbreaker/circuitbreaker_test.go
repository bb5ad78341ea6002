package circuitbreaker_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/sips-gateway/internal/transport/circuitbreaker"
)

const (
	testTarget    = "exec:request"
	anotherTarget = "http:request"
)

func TestNewCircuitBreaker(t *testing.T) {
	t.Run("Default config", func(t *testing.T) {
		cfg := circuitbreaker.Config{}
		cb := circuitbreaker.NewCircuitBreaker(cfg)
		require.NotNil(t, cb)
		assert.True(t, cb.AllowRequest(testTarget), "Should allow by default")
		cb.RecordFailure(testTarget)
		cb.RecordFailure(testTarget)
		assert.True(t, cb.AllowRequest(testTarget), "Should still be closed after 2 failures")
		cb.RecordFailure(testTarget)
		assert.False(t, cb.AllowRequest(testTarget), "Should be open after 3 failures with default config")
	})

	t.Run("Custom config", func(t *testing.T) {
		cfg := circuitbreaker.Config{
			FailureThreshold: 2,
			ResetTimeout:	 100 * time.Millisecond,
		}
		cb := circuitbreaker.NewCircuitBreaker(cfg)
		require.NotNil(t, cb)
		cb.RecordFailure(testTarget)
		assert.True(t, cb.AllowRequest(testTarget), "Should still be closed after 1 failure")
		cb.RecordFailure(testTarget)
		assert.False(t, cb.AllowRequest(testTarget), "Should be open after 2 failures with custom config")
	})
}

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	cfg := circuitbreaker.Config{
		FailureThreshold:	 2,
		ResetTimeout:		 50 * time.Millisecond, // Short for testing
	}

	t.Run("Closed_To_Open", func(t *testing.T) {
		cb := circuitbreaker.NewCircuitBreaker(cfg)

		// Initial state: Closed
		assert.True(t, cb.AllowRequest(testTarget), "Should be initially Closed and allow requests")
		state, failures := cb.GetStatus(testTarget)
		assert.Equal(t, circuitbreaker.StateClosed, state)
		assert.Equal(t, 0, failures)

		// Record failures to meet threshold
		cb.RecordFailure(testTarget) // Failure 1
		state, failures = cb.GetStatus(testTarget)
		assert.Equal(t, circuitbreaker.StateClosed, state)
		assert.Equal(t, 1, failures)
		assert.True(t, cb.AllowRequest(testTarget), "Still Closed after 1 failure")

		cb.RecordFailure(testTarget) // Failure 2 - Threshold met
		state, failures = cb.GetStatus(testTarget)
		assert.Equal(t, circuitbreaker.StateOpen, state, "Should transition to Open")
		assert.Equal(t, cfg.FailureThreshold, failures) // Failures should be at threshold
		assert.False(t, cb.AllowRequest(testTarget), "Should be Open and block requests")
	})

	t.Run("Open_To_HalfOpen", func(t *testing.T) {
		cb := circuitbreaker.NewCircuitBreaker(cfg)
		// Trip to Open state
		cb.RecordFailure(testTarget)
		cb.RecordFailure(testTarget)
		require.False(t, cb.AllowRequest(testTarget), "Pre-condition: Should be Open")
		state, _ := cb.GetStatus(testTarget)
		require.Equal(t, circuitbreaker.StateOpen, state)

		// Wait for ResetTimeout
		time.Sleep(cfg.ResetTimeout + 10*time.Millisecond)

		assert.True(t, cb.AllowRequest(testTarget), "Should allow request (transition to HalfOpen)")
		state, failures := cb.GetStatus(testTarget)
		assert.Equal(t, circuitbreaker.StateHalfOpen, state, "State should be HalfOpen")
		assert.Equal(t, 0, failures, "Consecutive failures should reset in HalfOpen")
	})

	t.Run("HalfOpen_To_Closed_OnSuccess", func(t *testing.T) {
		cb := circuitbreaker.NewCircuitBreaker(cfg)
		// Trip to Open, then wait for HalfOpen
		cb.RecordFailure(testTarget)
		cb.RecordFailure(testTarget)
		time.Sleep(cfg.ResetTimeout + 10*time.Millisecond)
		require.True(t, cb.AllowRequest(testTarget), "Should allow request in HalfOpen") // This moves to HalfOpen
		state, _ := cb.GetStatus(testTarget)
		require.Equal(t, circuitbreaker.StateHalfOpen, state, "Pre-condition: Should be HalfOpen")

		// Record success
		cb.RecordSuccess(testTarget)
		state, failures := cb.GetStatus(testTarget)
		assert.Equal(t, circuitbreaker.StateClosed, state, "Should transition to Closed after success in HalfOpen")
		assert.Equal(t, 0, failures, "Failures should be reset")
		assert.True(t, cb.AllowRequest(testTarget), "Should allow requests in Closed state")
	})

	t.Run("HalfOpen_To_Open_OnFailure", func(t *testing.T) {
		cb := circuitbreaker.NewCircuitBreaker(cfg)
		// Trip to Open, then wait for HalfOpen
		cb.RecordFailure(testTarget)
		cb.RecordFailure(testTarget)
		time.Sleep(cfg.ResetTimeout + 10*time.Millisecond)
		require.True(t, cb.AllowRequest(testTarget), "Should allow request in HalfOpen") // Moves to HalfOpen
		state, _ := cb.GetStatus(testTarget)
		require.Equal(t, circuitbreaker.StateHalfOpen, state, "Pre-condition: Should be HalfOpen")

		// Record failure
		cb.RecordFailure(testTarget)
		state, failures := cb.GetStatus(testTarget)
		assert.Equal(t, circuitbreaker.StateOpen, state, "Should transition back to Open after failure in HalfOpen")
		// Failures set to threshold to keep it open for full timeout
		assert.Equal(t, cfg.FailureThreshold, failures, "Failures should be set to threshold")
		assert.False(t, cb.AllowRequest(testTarget), "Should block requests in Open state")

		// Check if it stays Open and doesn't immediately go to HalfOpen again
		time.Sleep(cfg.ResetTimeout / 2)
		assert.False(t, cb.AllowRequest(testTarget), "Should still be Open before ResetTimeout passes again")
	})
}

func TestCircuitBreaker_FailuresBelowThreshold(t *testing.T) {
	cfg := circuitbreaker.Config{FailureThreshold: 3}
	cb := circuitbreaker.NewCircuitBreaker(cfg)

	cb.RecordFailure(testTarget)
	state, failures := cb.GetStatus(testTarget)
	assert.Equal(t, circuitbreaker.StateClosed, state)
	assert.Equal(t, 1, failures)
	assert.True(t, cb.AllowRequest(testTarget))

	cb.RecordFailure(testTarget)
	state, failures = cb.GetStatus(testTarget)
	assert.Equal(t, circuitbreaker.StateClosed, state)
	assert.Equal(t, 2, failures)
	assert.True(t, cb.AllowRequest(testTarget))

	// Success should reset failures
	cb.RecordSuccess(testTarget)
	state, failures = cb.GetStatus(testTarget)
	assert.Equal(t, circuitbreaker.StateClosed, state)
	assert.Equal(t, 0, failures)
	assert.True(t, cb.AllowRequest(testTarget))
}

func TestCircuitBreaker_MultipleTargets(t *testing.T) {
	cfg := circuitbreaker.Config{FailureThreshold: 1, ResetTimeout: 50 * time.Millisecond}
	cb := circuitbreaker.NewCircuitBreaker(cfg)

	// Target 1 fails and opens
	cb.RecordFailure(testTarget)
	assert.False(t, cb.AllowRequest(testTarget), "Target1 should be Open")

	// Target 2 should still be Closed
	assert.True(t, cb.AllowRequest(anotherTarget), "Target2 should be Closed and allow requests")
	cb.RecordFailure(anotherTarget)
	assert.False(t, cb.AllowRequest(anotherTarget), "Target2 should now be Open")

	// Target 1 should still be Open
	assert.False(t, cb.AllowRequest(testTarget), "Target1 should still be Open")

	// Wait for Target 1 to go HalfOpen
	time.Sleep(cfg.ResetTimeout + 10*time.Millisecond)
	assert.True(t, cb.AllowRequest(testTarget), "Target1 should be HalfOpen")
	cb.RecordSuccess(testTarget)
	assert.True(t, cb.AllowRequest(testTarget), "Target1 should be Closed")

	time.Sleep(cfg.ResetTimeout + 10*time.Millisecond)
	assert.True(t, cb.AllowRequest(anotherTarget), "Target2 should also be HalfOpen after its timeout")
	cb.RecordSuccess(anotherTarget)
	assert.True(t, cb.AllowRequest(anotherTarget), "Target2 should be Closed")
}

func TestCircuitBreaker_Idempotency(t *testing.T) {
	cfg := circuitbreaker.Config{FailureThreshold: 1}
	cb := circuitbreaker.NewCircuitBreaker(cfg)

	// Idempotency of RecordFailure in Closed state (leading to Open)
	cb.RecordFailure(testTarget) // Transitions to Open
	state, failures := cb.GetStatus(testTarget)
	assert.Equal(t, circuitbreaker.StateOpen, state)
	assert.Equal(t, 1, failures)

	cb.RecordFailure(testTarget) // Should not change anything further if already Open and failures at threshold
	state, failures = cb.GetStatus(testTarget)
	assert.Equal(t, circuitbreaker.StateOpen, state)
	assert.Equal(t, 1, failures) // Stays at threshold

	// Idempotency of RecordSuccess in Closed state
	cb.RecordSuccess(anotherTarget) // Assuming anotherTarget is new, becomes Closed, 0 failures
	state, failures = cb.GetStatus(anotherTarget)
	assert.Equal(t, circuitbreaker.StateClosed, state)
	assert.Equal(t, 0, failures)
	cb.RecordSuccess(anotherTarget) // Should remain Closed, 0 failures
	state, failures = cb.GetStatus(anotherTarget)
	assert.Equal(t, circuitbreaker.StateClosed, state)
	assert.Equal(t, 0, failures)
}

func TestCircuitBreaker_AllowRequest_CreatesState(t *testing.T) {
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{})
	assert.True(t, cb.AllowRequest("new-target"))
	state, failures := cb.GetStatus("new-target")
	assert.Equal(t, circuitbreaker.StateClosed, state)
	assert.Equal(t, 0, failures)
}

func TestCircuitBreaker_RecordSuccess_UntrackedTarget(t *testing.T) {
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{})
	cb.RecordSuccess("untracked-target") // Should not panic, should be a no-op or log
	state, failures := cb.GetStatus("untracked-target")
	assert.Equal(t, circuitbreaker.StateClosed, state)
	assert.Equal(t, 0, failures)
}

func TestCircuitBreaker_State_String(t *testing.T) {
	assert.Equal(t, "Closed", circuitbreaker.StateClosed.String())
	assert.Equal(t, "Open", circuitbreaker.StateOpen.String())
	assert.Equal(t, "HalfOpen", circuitbreaker.StateHalfOpen.String())
	assert.Equal(t, "Unknown", circuitbreaker.State(99).String())
}

func TestCircuitBreaker_HalfOpen_SingleTrialCall(t *testing.T) {
	cfg := circuitbreaker.Config{FailureThreshold: 1, ResetTimeout: 50 * time.Millisecond}
	cb := circuitbreaker.NewCircuitBreaker(cfg)

	cb.RecordFailure(testTarget)
	time.Sleep(cfg.ResetTimeout + 10*time.Millisecond)

	require.True(t, cb.AllowRequest(testTarget), "First call after the timeout is the trial call")
	assert.False(t, cb.AllowRequest(testTarget), "Only one trial call may be in flight")
	assert.False(t, cb.AllowRequest(testTarget), "Only one trial call may be in flight")

	cb.Release(testTarget)
	state, _ := cb.GetStatus(testTarget)
	assert.Equal(t, circuitbreaker.StateHalfOpen, state, "Release does not change state")
	require.True(t, cb.AllowRequest(testTarget), "A released slot admits the next trial call")

	cb.RecordSuccess(testTarget)
	assert.True(t, cb.AllowRequest(testTarget))
	assert.True(t, cb.AllowRequest(testTarget), "Closed circuits admit concurrent calls")
}

func TestCircuitBreaker_Release_UntrackedTarget(t *testing.T) {
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{})
	cb.Release("untracked-target")
	state, failures := cb.GetStatus("untracked-target")
	assert.Equal(t, circuitbreaker.StateClosed, state)
	assert.Equal(t, 0, failures)
}
