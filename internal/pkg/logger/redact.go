package logger

import (
	"regexp"
	"strings"
)

var secretKeys = []string{"password", "secret", "token", "authorization"}

// bearerRegex catches tokens that end up inside URLs or error strings.
var bearerRegex = regexp.MustCompile(`(?i)(bearer\s+|access_token=)[A-Za-z0-9\-._~+/]+=*`)

func redactValue(key, val string) string {
	key = strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(key, s) {
			return RedactSecret(val)
		}
	}
	return bearerRegex.ReplaceAllString(val, "${1}***")
}

// RedactSecret masks a credential for safe logging.
// "hunter2secret" → "hu***"
// Values of 4 characters or fewer are fully masked: "abc" → "***"
func RedactSecret(secret string) string {
	if len(secret) <= 4 {
		return "***"
	}
	return secret[:2] + "***"
}
