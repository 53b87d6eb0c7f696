package errors

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// The reconciler distinguishes four kinds of failure. Transient I/O is logged
// and swallowed; the next informer event or timer tick retries. Malformed
// workloads and unsatisfiable configuration abort the current pass. Structural
// anomalies skip the offending object only.

// ErrMalformedWorkload indicates a Kafka workload snapshot lacking a required
// quota. The pass aborts and retries with fresh data.
var ErrMalformedWorkload = errors.New("malformed kafka workload")

// ErrConfigUnsatisfiable indicates the capacity model cannot produce a
// positive per-replica throughput from the configured limits. This is an
// assertion-style failure; the operator keeps running.
var ErrConfigUnsatisfiable = errors.New("ingress capacity configuration unsatisfiable")

// ErrStructuralAnomaly indicates an observed object violating a structural
// assumption, such as a router deployment with more than one container.
var ErrStructuralAnomaly = errors.New("structural anomaly")

// WrapMalformedWorkload wraps an error as a malformed-workload failure.
func WrapMalformedWorkload(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrMalformedWorkload, err)
}

// IsMalformedWorkload reports whether err is a malformed-workload failure.
func IsMalformedWorkload(err error) bool {
	return errors.Is(err, ErrMalformedWorkload)
}

// IsConfigUnsatisfiable reports whether err is a capacity configuration
// failure.
func IsConfigUnsatisfiable(err error) bool {
	return errors.Is(err, ErrConfigUnsatisfiable)
}

// IsTransient reports whether err is a temporary API server condition worth
// retrying on the next tick rather than surfacing.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return apierrors.IsServerTimeout(err) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsServiceUnavailable(err) ||
		apierrors.IsInternalError(err) ||
		apierrors.IsConflict(err)
}
