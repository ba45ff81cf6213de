// Package fingerprint defines the browser identities the client can present.
//
// A preset bundles a uTLS ClientHelloID with the User-Agent and fixed header
// set belonging to that browser, so the TLS layer and the HTTP layer always
// tell the same story.
package fingerprint

import (
	"runtime"
	"sort"

	utls "github.com/refraction-networking/utls"
)

// Preset represents a browser fingerprint configuration
type Preset struct {
	Name          string
	ClientHelloID utls.ClientHelloID
	UserAgent     string
	// Headers is the fixed header set sent with every request.
	// Header order on the wire is handled by the transport.
	Headers map[string]string
}

// userAgentOS returns the platform segment of the User-Agent string,
// matching the OS the client actually runs on.
func userAgentOS() string {
	switch runtime.GOOS {
	case "windows":
		return "(Windows NT 10.0; Win64; x64)"
	case "darwin":
		return "(Macintosh; Intel Mac OS X 10_15_7)"
	default:
		return "(X11; Linux x86_64)"
	}
}

func chromePreset(name string, helloID utls.ClientHelloID, version string) *Preset {
	ua := "Mozilla/5.0 " + userAgentOS() +
		" AppleWebKit/537.36 (KHTML, like Gecko) Chrome/" + version + " Safari/537.36"
	return &Preset{
		Name:          name,
		ClientHelloID: helloID,
		UserAgent:     ua,
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
			"Accept-Encoding": "gzip, deflate, br, zstd",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
		},
	}
}

var presets = map[string]*Preset{
	"chrome-120": chromePreset("chrome-120", utls.HelloChrome_120, "120.0.0.0"),
	"chrome":     chromePreset("chrome", utls.HelloChrome_Auto, "120.0.0.0"),
	"firefox-120": {
		Name:          "firefox-120",
		ClientHelloID: utls.HelloFirefox_120,
		UserAgent:     "Mozilla/5.0 " + userAgentOS() + " Gecko/20100101 Firefox/120.0",
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Encoding": "gzip, deflate, br, zstd",
			"Accept-Language": "en-US,en;q=0.5",
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
		},
	},
}

// DefaultPreset is used when an unknown or empty preset name is requested.
const DefaultPreset = "chrome-120"

// Get returns the preset with the given name, falling back to the default
// for unknown names so a stale preset name never breaks a client.
func Get(name string) *Preset {
	if p, ok := presets[name]; ok {
		return p
	}
	return presets[DefaultPreset]
}

// Available returns the names of all registered presets, sorted.
func Available() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
