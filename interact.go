package cleverbot

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// sleepFunc suspends for the given duration or until the context is done
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Interact sends a message and returns the service's reply.
//
// history is the ordered sequence of prior utterances, oldest first; the
// caller maintains it and may pass nil. language overrides the configured
// default for this call; empty means use the default.
//
// Attempts are retried with growing jittered backoff up to the configured
// maximum. A ban (HTTP 403) aborts immediately and is never retried; all
// other failures of the final attempt surface as *ExhaustedError.
func (c *Client) Interact(ctx context.Context, message string, history []string, language string) (string, error) {
	if message == "" {
		return "", fmt.Errorf("cleverbot: message must not be empty")
	}
	if language == "" {
		language = c.cfg.DefaultLanguage
	} else if !IsSupportedLanguage(language) {
		return "", &ConfigError{Field: "language", Constraint: "a member of the supported-language set"}
	}

	var incremental time.Duration
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxRetryAttempts; attempt++ {
		reply, err := c.exchange(ctx, message, language, history)
		if err == nil {
			return reply, nil
		}
		if errors.Is(err, ErrBanned) {
			return "", fmt.Errorf("cleverbot: attempt %d: %w", attempt, ErrBanned)
		}
		lastErr = err

		if attempt == c.cfg.MaxRetryAttempts {
			break
		}

		wait := c.cfg.RetryBaseCooldown + jitter(c.randInt, 2000) + incremental
		incremental += jitter(c.randInt, 3000)

		if c.cfg.Debug {
			c.logger.Debug("retrying exchange",
				"client", c.id,
				"attempt", attempt,
				"wait", wait,
				"error", err,
			)
		}
		if serr := c.sleep(ctx, wait); serr != nil {
			return "", serr
		}
	}

	return "", &ExhaustedError{Attempts: c.cfg.MaxRetryAttempts, Last: lastErr}
}

// jitter returns a random delay in [1s, 1s+spreadMillis ms)
func jitter(randInt func(int) int, spreadMillis int) time.Duration {
	return time.Duration(randInt(spreadMillis)+1000) * time.Millisecond
}
