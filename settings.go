package cleverbot

import "time"

// Settings is a partial configuration update. Nil fields are left untouched.
// Configure validates every provided field before applying any of them, so
// an update either lands in full or not at all.
type Settings struct {
	Debug             *bool
	DefaultLanguage   *string
	MaxRetryAttempts  *int
	RetryBaseCooldown *time.Duration
	CookieExpiration  *time.Duration
}

// Configure applies a partial settings update.
// If any provided field fails validation the whole update is rejected with a
// *ConfigError naming the field and its constraint.
func (c *Client) Configure(s Settings) error {
	if s.DefaultLanguage != nil && !IsSupportedLanguage(*s.DefaultLanguage) {
		return &ConfigError{Field: "DefaultLanguage", Constraint: "a member of the supported-language set"}
	}
	if s.MaxRetryAttempts != nil && *s.MaxRetryAttempts <= 0 {
		return &ConfigError{Field: "MaxRetryAttempts", Constraint: "greater than zero"}
	}
	if s.RetryBaseCooldown != nil && *s.RetryBaseCooldown <= 0 {
		return &ConfigError{Field: "RetryBaseCooldown", Constraint: "greater than zero"}
	}
	if s.CookieExpiration != nil && *s.CookieExpiration <= 0 {
		return &ConfigError{Field: "CookieExpiration", Constraint: "greater than zero"}
	}

	if s.Debug != nil {
		c.cfg.Debug = *s.Debug
	}
	if s.DefaultLanguage != nil {
		c.cfg.DefaultLanguage = *s.DefaultLanguage
	}
	if s.MaxRetryAttempts != nil {
		c.cfg.MaxRetryAttempts = *s.MaxRetryAttempts
	}
	if s.RetryBaseCooldown != nil {
		c.cfg.RetryBaseCooldown = *s.RetryBaseCooldown
	}
	if s.CookieExpiration != nil {
		c.cfg.CookieExpiration = *s.CookieExpiration
	}
	return nil
}
