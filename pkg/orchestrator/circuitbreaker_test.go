package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	b := NewCircuitBreaker(5, 300*time.Second)
	now := time.Now()

	for i := 0; i < 4; i++ {
		assert.True(t, b.CanExecute(now))
		b.RecordFailure(now)
	}
	assert.Equal(t, BreakerClosed, b.State())

	assert.True(t, b.CanExecute(now))
	b.RecordFailure(now)
	assert.Equal(t, BreakerOpen, b.State())

	assert.False(t, b.CanExecute(now))
}

func TestCircuitBreaker_HalfOpenAfterCooldown(t *testing.T) {
	b := NewCircuitBreaker(1, 10*time.Second)
	now := time.Now()

	b.RecordFailure(now)
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.CanExecute(now.Add(5*time.Second)))

	assert.True(t, b.CanExecute(now.Add(11*time.Second)))
	assert.Equal(t, BreakerHalfOpen, b.State())
}

func TestCircuitBreaker_SuccessResetsToClosed(t *testing.T) {
	b := NewCircuitBreaker(1, 10*time.Second)
	now := time.Now()

	b.RecordFailure(now)
	assert.True(t, b.CanExecute(now.Add(11*time.Second)))
	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())
	assert.Equal(t, 0, b.ConsecutiveFailures())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker(1, 10*time.Second)
	now := time.Now()

	b.RecordFailure(now)
	assert.True(t, b.CanExecute(now.Add(11*time.Second)))
	b.RecordFailure(now.Add(11 * time.Second))
	assert.Equal(t, BreakerOpen, b.State())
}
