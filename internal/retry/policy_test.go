package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDelay_Fixed_IsConstant(t *testing.T) {
	p := Policy{Mode: Fixed, Initial: time.Second, Max: 30 * time.Second, MaxRetries: 3}
	require.Equal(t, time.Second, p.Delay(1))
	require.Equal(t, time.Second, p.Delay(2))
}

func TestDelay_Linear_GrowsByAttempt(t *testing.T) {
	p := Policy{Mode: Linear, Initial: time.Second, Max: 30 * time.Second, MaxRetries: 3}
	require.Equal(t, time.Second, p.Delay(1))
	require.Equal(t, 2*time.Second, p.Delay(2))
	require.Equal(t, 3*time.Second, p.Delay(3))
}

func TestDelay_Exponential_DoublesAndCaps(t *testing.T) {
	p := Policy{Mode: Exponential, Initial: time.Second, Max: 3 * time.Second, MaxRetries: 5}
	require.Equal(t, time.Second, p.Delay(1))
	require.Equal(t, 2*time.Second, p.Delay(2))
	require.Equal(t, 3*time.Second, p.Delay(3)) // would be 4s, capped to Max
}

func TestDelay_ZeroRetryCount_IsZero(t *testing.T) {
	p := DefaultPolicy()
	require.Equal(t, time.Duration(0), p.Delay(0))
}

func TestValidate_RejectsNonPositiveDurationsAndNegativeRetries(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())
	require.Error(t, Policy{Initial: 0, Max: time.Second}.Validate())
	require.Error(t, Policy{Initial: time.Second, Max: 0}.Validate())
	require.Error(t, Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
}
