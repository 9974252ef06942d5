package log

import "strings"

// RedactedValue replaces the value of any sensitive key before it is written.
const RedactedValue = "<redacted>"

var sensitiveKeys = []string{
	"accesstoken",
	"access_token",
	"refreshtoken",
	"refresh_token",
	"authorizationtoken",
	"authorization_token",
	"authorization",
	"secret",
	"secretaccesskey",
	"apikey",
	"api_key",
	"x-api-key",
	"password",
}

// IsSensitiveKey reports whether values logged under key must be hidden.
// Matching is case-insensitive.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if k == s {
			return true
		}
	}
	return false
}

// Redact returns a copy of keysAndValues with the values of sensitive keys
// replaced by RedactedValue. Non-string keys are left untouched.
func Redact(keysAndValues []any) []any {
	if len(keysAndValues) == 0 {
		return keysAndValues
	}

	out := make([]any, len(keysAndValues))
	copy(out, keysAndValues)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if ok && IsSensitiveKey(key) {
			out[i+1] = RedactedValue
		}
	}
	return out
}
