package domain

import "github.com/pkg/errors"

var (
	// ErrInsufficientFunds is an expected strategy outcome, never retried.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNetwork marks transient connectivity and rate-limit failures.
	ErrNetwork = errors.New("network error")
	// ErrInvalidConfig is returned by config builders for incomplete records.
	ErrInvalidConfig = errors.New("invalid strategy config")
	// ErrMissingStatistic means no volatility estimate exists for the symbol this cycle.
	ErrMissingStatistic = errors.New("volatility statistic unavailable")
)

type networkError struct {
	err error
}

func (e *networkError) Error() string { return e.err.Error() }

func (e *networkError) Unwrap() error { return e.err }

func (e *networkError) Is(target error) bool { return target == ErrNetwork }

// NetworkError marks err as transient so the retry policy picks it up.
func NetworkError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNetwork) {
		return err
	}

	return &networkError{err: err}
}

// IsNetwork reports whether err is a transient network failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// InsufficientFunds wraps ErrInsufficientFunds with venue details.
func InsufficientFunds(format string, args ...any) error {
	return errors.Wrapf(ErrInsufficientFunds, format, args...)
}
