// Package retry implements backoff policies for transient failures, used by
// the External Resolver's HTTPS pkgdown fetches.
package retry

import (
	"fmt"
	"time"
)

// Mode selects how Policy.Delay grows between attempts.
type Mode string

const (
	Fixed       Mode = "fixed"
	Linear      Mode = "linear"
	Exponential Mode = "exponential"
)

// Policy encapsulates retry/backoff settings for transient failures. It is
// immutable after construction.
type Policy struct {
	Mode       Mode
	Initial    time.Duration // base delay
	Max        time.Duration // cap for growth
	MaxRetries int           // maximum retry attempts after the first failure
}

// DefaultPolicy returns a sensible default: linear, 1s initial, 10s cap, 2
// retries — enough to ride out a transient DNS or TLS handshake failure
// against a remote pkgdown site without stalling a batch conversion.
func DefaultPolicy() Policy {
	return Policy{Mode: Linear, Initial: time.Second, Max: 10 * time.Second, MaxRetries: 2}
}

// Delay returns the backoff delay for the given retry attempt number
// (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case Fixed:
		return p.Initial
	case Exponential:
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max {
			return p.Max
		}
		return d
	default: // Linear
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate reports whether the policy's durations and retry count are usable.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("retry: initial delay must be > 0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("retry: max delay must be > 0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("retry: max retries cannot be negative")
	}
	return nil
}
