package cleverbot

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// checksumStart and checksumEnd bound the slice of the payload the remote
// service's tamper check is computed over. The window is stable only because
// the payload always begins with the literal "stimulus=" field.
const (
	checksumStart = 7
	checksumEnd   = 33
)

// buildPayload assembles the exact request body the remote service expects.
//
// History entries are emitted most-recent-first as vText0, vText1, ...
// The transmitted body is the assembled payload twice, followed by an MD5
// over bytes 7..32 of the first copy. The duplication is the service's
// expected framing and must be reproduced as-is.
func buildPayload(message string, history []string, language string) string {
	var b strings.Builder
	b.WriteString("stimulus=")
	b.WriteString(url.QueryEscape(message))
	b.WriteString("&")

	for i := len(history) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "vText%d=%s&", len(history)-1-i, url.QueryEscape(history[i]))
	}

	if language != "" {
		b.WriteString("cb_config_language=")
		b.WriteString(language)
		b.WriteString("&")
	}

	b.WriteString("cb_config_scripting=no&islearning=1&icognoid=wsf&icognocheck=")

	payload := b.String()
	sum := md5.Sum([]byte(payload[checksumStart:checksumEnd]))
	return payload + payload + hex.EncodeToString(sum[:])
}
