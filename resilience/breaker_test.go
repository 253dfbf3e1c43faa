package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(err error) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return "", err }
}

func succeeding(result string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return result, nil }
}

func newTestBreaker(threshold int, reset time.Duration) *Breaker {
	return NewBreaker("llm", func(o *Options) {
		o.FailureThreshold = threshold
		o.ResetTimeout = reset
	})
}

func TestBreaker_PassesThroughWhileClosed(t *testing.T) {
	b := newTestBreaker(3, time.Minute)

	out, err := b.Execute(context.Background(), succeeding("ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := newTestBreaker(3, time.Minute)
	boom := errors.New("backend down")

	for i := 0; i < 3; i++ {
		_, err := b.Execute(context.Background(), failing(boom))
		require.Error(t, err)
	}

	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, 3, b.Failures())
	assert.Equal(t, boom, b.LastError())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newTestBreaker(3, time.Minute)
	boom := errors.New("flaky")

	_, _ = b.Execute(context.Background(), failing(boom))
	_, _ = b.Execute(context.Background(), failing(boom))
	_, err := b.Execute(context.Background(), succeeding("ok"))
	require.NoError(t, err)

	assert.Equal(t, 0, b.Failures())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_FailsFastWhileOpen(t *testing.T) {
	b := newTestBreaker(1, time.Minute)
	_, _ = b.Execute(context.Background(), failing(errors.New("down")))
	require.Equal(t, StateOpen, b.State())

	invoked := false
	_, err := b.Execute(context.Background(), func(context.Context) (string, error) {
		invoked = true
		return "should not run", nil
	})

	require.Error(t, err)
	var open *CircuitOpenError
	require.ErrorAs(t, err, &open)
	assert.Equal(t, "llm", open.Operation)
	assert.Equal(t, "circuit open for llm", open.Error())
	assert.False(t, invoked)
}

func TestBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	b := newTestBreaker(1, 20*time.Millisecond)
	_, _ = b.Execute(context.Background(), failing(errors.New("down")))
	require.Equal(t, StateOpen, b.State())

	time.Sleep(30 * time.Millisecond)

	// The next call is admitted as a trial and, on success, closes the circuit.
	out, err := b.Execute(context.Background(), succeeding("recovered"))
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Failures())
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	b := newTestBreaker(1, 20*time.Millisecond)
	_, _ = b.Execute(context.Background(), failing(errors.New("down")))

	time.Sleep(30 * time.Millisecond)

	_, err := b.Execute(context.Background(), failing(errors.New("still down")))
	require.Error(t, err)
	assert.Equal(t, StateOpen, b.State())

	// Timer restarted: calls fail fast again before the new timeout elapses.
	_, err = b.Execute(context.Background(), succeeding("nope"))
	var open *CircuitOpenError
	assert.ErrorAs(t, err, &open)
}

func TestBreaker_SuccessOfCallAdmittedBeforeOpeningKeepsCircuitOpen(t *testing.T) {
	b := newTestBreaker(1, time.Minute)

	// A slow call admitted while CLOSED completes successfully after a
	// concurrent failure has opened the circuit. It must not close the
	// circuit; only a HALF_OPEN trial may do that.
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = b.Execute(context.Background(), func(context.Context) (string, error) {
			close(started)
			<-release
			return "late success", nil
		})
	}()

	<-started
	_, _ = b.Execute(context.Background(), failing(errors.New("down")))
	require.Equal(t, StateOpen, b.State())

	close(release)
	<-done

	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, 0, b.Failures())
}

func TestBreaker_StartHealthChecksRecoversWithoutTraffic(t *testing.T) {
	b := newTestBreaker(1, 10*time.Millisecond)
	_, _ = b.Execute(context.Background(), failing(errors.New("down")))
	require.Equal(t, StateOpen, b.State())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.StartHealthChecks(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return b.State() == StateHalfOpen
	}, time.Second, 5*time.Millisecond)
}

func TestBreaker_HealthCheckFlipsToHalfOpen(t *testing.T) {
	b := newTestBreaker(1, 10*time.Millisecond)
	_, _ = b.Execute(context.Background(), failing(errors.New("down")))
	require.Equal(t, StateOpen, b.State())

	time.Sleep(15 * time.Millisecond)
	b.HealthCheck()
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreaker_StateChangeHook(t *testing.T) {
	var transitions []string
	b := NewBreaker("llm", func(o *Options) {
		o.FailureThreshold = 1
		o.ResetTimeout = time.Minute
		o.OnStateChange = func(op string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}
	})

	_, _ = b.Execute(context.Background(), failing(errors.New("down")))
	assert.Equal(t, []string{"CLOSED->OPEN"}, transitions)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "HALF_OPEN", StateHalfOpen.String())
}
