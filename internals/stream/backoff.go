package stream

import "time"

type BackoffConfig struct {
	Base time.Duration
	Max  time.Duration
}

// BackoffLinear returns the reconnect delay for a given attempt number:
// attempt × base, capped at max. Attempt numbers start at 1.
func BackoffLinear(cfg BackoffConfig) func(attempt int) time.Duration {
	base := cfg.Base
	max := cfg.Max

	return func(attempt int) time.Duration {
		if attempt <= 0 || base <= 0 {
			return 0
		}
		delay := time.Duration(attempt) * base
		if delay/base != time.Duration(attempt) {
			// overflow
			if max > 0 {
				return max
			}
			return base
		}
		if max > 0 && delay > max {
			return max
		}
		return delay
	}
}
