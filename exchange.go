package cleverbot

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/quailbyte/cleverbot-go/transport"
)

const exchangePath = "/webservicemin?uc=UseOfficialCleverbotAPI"

// exchange performs one request/response round-trip with the remote service.
// On success the reply, session id and auth token are stored atomically into
// the session state and the reply is returned.
func (c *Client) exchange(ctx context.Context, message, language string, history []string) (string, error) {
	if err := c.ensureCookies(ctx); err != nil {
		return "", err
	}

	body := buildPayload(message, history, language)
	c.exchangeCount++

	req := &transport.Request{
		Method:  "POST",
		URL:     c.exchangeURL(message),
		Headers: c.baseHeaders(),
		Body:    []byte(body),
		Timeout: c.cfg.ExchangeTimeout,
	}
	req.Headers["Content-Type"] = "application/x-www-form-urlencoded; charset=UTF-8"
	req.Headers["Cookie"] = c.cookieHeader()

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		c.failureCount.Add(1)
		return "", &RemoteCallError{Cause: err}
	}
	if resp.StatusCode == 403 {
		c.failureCount.Add(1)
		return "", fmt.Errorf("exchange: %w", ErrBanned)
	}
	if !resp.IsSuccess() {
		c.failureCount.Add(1)
		return "", &RemoteCallError{Status: resp.StatusCode}
	}
	if len(resp.Body) == 0 {
		c.failureCount.Add(1)
		return "", &RemoteCallError{Status: resp.StatusCode, Cause: fmt.Errorf("empty response body")}
	}

	c.successCount.Add(1)

	segments := strings.Split(string(resp.Body), "\r")
	if len(segments) < 3 {
		return "", &MalformedResponseError{Segments: len(segments)}
	}

	reply := segments[0]
	sessionID := segments[1]
	prefix := sessionID
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}

	c.lastReply = reply
	c.sessionID = sessionID
	c.authToken = prefix + "," + segments[2]

	return reply, nil
}

// exchangeURL builds the request URL. The first exchange hits the bare
// endpoint; once a session exists the URL carries the prior-exchange context
// plus the empty placeholder parameters the protocol requires.
func (c *Client) exchangeURL(message string) string {
	base := c.cfg.BaseURL + exchangePath
	if c.sessionID == "" {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("&out=")
	b.WriteString(url.QueryEscape(c.lastReply))
	b.WriteString("&in=")
	b.WriteString(url.QueryEscape(message))
	b.WriteString("&bot=c&at=f&ns=")
	b.WriteString(strconv.Itoa(c.exchangeCount))
	b.WriteString("&al=&dl=en&flag=&user=&mode=1&alt=0&reac=&emo=&sub=Say")
	b.WriteString("&xai=")
	b.WriteString(url.QueryEscape(c.authToken))
	return b.String()
}

// cookieHeader synthesizes the Cookie header for an exchange from the jar's
// primary cookie, the truncated auth token, the session id, the fixed note
// marker, and the alternate-reply marker when a previous reply exists
func (c *Client) cookieHeader() string {
	var parts []string
	if len(c.cookies) > 0 {
		parts = append(parts, c.cookies[0])
	}
	if c.authToken != "" {
		prefix := c.authToken
		if len(prefix) > 3 {
			prefix = prefix[:3]
		}
		parts = append(parts, "XAI="+prefix)
	}
	if c.sessionID != "" {
		parts = append(parts, "CBSID="+c.sessionID)
	}
	parts = append(parts, "note=1")
	if c.lastReply != "" {
		parts = append(parts, "CBALT=1~"+url.QueryEscape(c.lastReply))
	}
	return strings.Join(parts, "; ")
}
