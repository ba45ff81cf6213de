package cleverbot

import "sort"

// supportedLanguages is the fixed set of language codes the remote service
// accepts for the cb_config_language field.
var supportedLanguages = map[string]bool{
	"en": true,
	"de": true,
	"fr": true,
	"es": true,
	"it": true,
	"nl": true,
	"pt": true,
	"pl": true,
	"sv": true,
	"no": true,
	"da": true,
	"fi": true,
	"ru": true,
	"tr": true,
	"ar": true,
	"he": true,
	"ja": true,
	"ko": true,
	"zh": true,
	"hi": true,
}

// Languages returns the supported language codes, sorted
func Languages() []string {
	codes := make([]string, 0, len(supportedLanguages))
	for code := range supportedLanguages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// IsSupportedLanguage reports whether the language code can be sent to the
// remote service
func IsSupportedLanguage(code string) bool {
	return supportedLanguages[code]
}
