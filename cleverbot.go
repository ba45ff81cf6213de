// Package cleverbot is an unofficial client for the Cleverbot website's
// internal exchange endpoint. It emulates a browser session (cookies,
// rotating session identifiers, fingerprinted TLS) so a caller can send a
// message plus conversation history and receive a reply without an official
// API credential.
//
// Basic usage:
//
//	c := cleverbot.New()
//	defer c.Close()
//
//	reply, err := c.Interact(ctx, "Hello there", nil, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(reply)
//
// A Client holds exactly one conversation. It is not safe for concurrent
// Interact calls; callers needing parallel independent conversations should
// create one Client per conversation.
package cleverbot

import (
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/quailbyte/cleverbot-go/dns"
	"github.com/quailbyte/cleverbot-go/fingerprint"
	"github.com/quailbyte/cleverbot-go/transport"
)

// Version is the client version string
const Version = "1.2.0"

// Client is a handle on one conversation with the remote service
type Client struct {
	id     string
	cfg    *Config
	preset *fingerprint.Preset
	http   *transport.Transport
	logger *slog.Logger

	// Session state. Populated after the first successful exchange;
	// sessionID, authToken and lastReply are set together or not at all.
	cookies       []string
	cookiesAt     time.Time
	sessionID     string
	authToken     string
	exchangeCount int
	lastReply     string

	// Request outcome counters. Never reset by Reset.
	successCount atomic.Int64
	failureCount atomic.Int64

	// Hooks overridable in tests
	randInt func(n int) int
	sleep   sleepFunc
	now     func() time.Time
}

// New creates a client with its own transport and an empty session
func New(opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	preset := fingerprint.Get(cfg.Preset)
	t := transport.New(preset, dns.NewCache())
	if cfg.InsecureSkipVerify {
		t.SetInsecureSkipVerify(true)
	}

	return &Client{
		id:      uuid.New().String(),
		cfg:     cfg,
		preset:  preset,
		http:    t,
		logger:  logger,
		randInt: rand.Intn,
		sleep:   sleepContext,
		now:     time.Now,
	}
}

// ID returns the client's conversation handle identifier
func (c *Client) ID() string {
	return c.id
}

// Reset clears all session state: cookie jar, refresh timestamp, session id,
// auth token, exchange counter and last reply. The remote service will treat
// the next exchange as a brand-new conversation. Configuration and the
// success/failure counters are untouched.
func (c *Client) Reset() {
	c.cookies = nil
	c.cookiesAt = time.Time{}
	c.sessionID = ""
	c.authToken = ""
	c.exchangeCount = 0
	c.lastReply = ""
}

// Close releases the transport and its pooled connections
func (c *Client) Close() {
	c.http.Close()
}

// ConfigView is the configuration portion of a diagnostic snapshot
type ConfigView struct {
	BaseURL           string
	Preset            string
	Debug             bool
	DefaultLanguage   string
	MaxRetryAttempts  int
	RetryBaseCooldown time.Duration
	CookieExpiration  time.Duration
}

// SessionView is the session-state portion of a diagnostic snapshot
type SessionView struct {
	CookieCount       int
	LastCookieRefresh time.Time
	SessionID         string
	AuthToken         string
	ExchangeCount     int
	LastReply         string
}

// DiagnosticSnapshot is a read-only view of the client's configuration,
// session state and request counters
type DiagnosticSnapshot struct {
	ID           string
	Version      string
	Config       ConfigView
	Session      SessionView
	SuccessCount int64
	FailureCount int64
}

// Snapshot returns a diagnostic snapshot. It has no side effects.
func (c *Client) Snapshot() DiagnosticSnapshot {
	return DiagnosticSnapshot{
		ID:      c.id,
		Version: Version,
		Config: ConfigView{
			BaseURL:           c.cfg.BaseURL,
			Preset:            c.preset.Name,
			Debug:             c.cfg.Debug,
			DefaultLanguage:   c.cfg.DefaultLanguage,
			MaxRetryAttempts:  c.cfg.MaxRetryAttempts,
			RetryBaseCooldown: c.cfg.RetryBaseCooldown,
			CookieExpiration:  c.cfg.CookieExpiration,
		},
		Session: SessionView{
			CookieCount:       len(c.cookies),
			LastCookieRefresh: c.cookiesAt,
			SessionID:         c.sessionID,
			AuthToken:         c.authToken,
			ExchangeCount:     c.exchangeCount,
			LastReply:         c.lastReply,
		},
		SuccessCount: c.successCount.Load(),
		FailureCount: c.failureCount.Load(),
	}
}
