package cleverbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/quailbyte/cleverbot-go/transport"
)

// placeholderCookie is sent on the bootstrap request. The service expects
// the visitor cookie header to be present even before it has issued one.
const placeholderCookie = "XVIS=TEI939AFFIAGAYQZ"

// ensureCookies guarantees a usable cookie jar before an exchange.
// A jar fetched within the expiration window is reused as-is; otherwise one
// bootstrap GET replaces it. The resource URL is bucketed by the current
// date so intermediary caches never serve a stale copy.
func (c *Client) ensureCookies(ctx context.Context) error {
	if len(c.cookies) > 0 && c.now().Sub(c.cookiesAt) < c.cfg.CookieExpiration {
		return nil
	}

	bucket := c.now().UTC().Format("20060102")
	req := &transport.Request{
		Method:  "GET",
		URL:     c.cfg.BaseURL + "/extras/conversation-social-min.js?" + bucket,
		Headers: c.baseHeaders(),
		Timeout: c.cfg.CookieTimeout,
	}
	req.Headers["Cookie"] = placeholderCookie

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		c.failureCount.Add(1)
		return &CookieFetchError{Cause: err}
	}
	if resp.StatusCode == 403 {
		c.failureCount.Add(1)
		return fmt.Errorf("cookie bootstrap: %w", ErrBanned)
	}
	if !resp.IsSuccess() {
		c.failureCount.Add(1)
		return &CookieFetchError{Status: resp.StatusCode}
	}

	setCookies := resp.Headers["set-cookie"]
	if len(setCookies) == 0 {
		c.failureCount.Add(1)
		return &CookieFetchError{Status: resp.StatusCode, Cause: fmt.Errorf("response carried no set-cookie headers")}
	}

	jar := make([]string, 0, len(setCookies))
	for _, raw := range setCookies {
		if cookie := cookiePair(raw); cookie != "" {
			jar = append(jar, cookie)
		}
	}
	if len(jar) == 0 {
		c.failureCount.Add(1)
		return &CookieFetchError{Status: resp.StatusCode, Cause: fmt.Errorf("set-cookie headers carried no usable pairs")}
	}

	c.cookies = jar
	c.cookiesAt = c.now()
	c.successCount.Add(1)
	return nil
}

// cookiePair extracts the name=value part of a Set-Cookie header,
// dropping attributes like Path and Expires
func cookiePair(raw string) string {
	if idx := strings.IndexByte(raw, ';'); idx != -1 {
		raw = raw[:idx]
	}
	raw = strings.TrimSpace(raw)
	if !strings.ContainsRune(raw, '=') {
		return ""
	}
	return raw
}

// baseHeaders returns the fixed browser header set both endpoints receive
func (c *Client) baseHeaders() map[string]string {
	headers := make(map[string]string, len(c.preset.Headers)+3)
	for key, value := range c.preset.Headers {
		headers[key] = value
	}
	headers["User-Agent"] = c.preset.UserAgent
	headers["Referer"] = c.cfg.BaseURL + "/"
	headers["Origin"] = c.cfg.BaseURL
	return headers
}
