package logger

import (
	"encoding/json"
	"strings"
)

// Redacted replaces the value of any sensitive field.
const Redacted = "[REDACTED]"

// sensitiveKeys are compared after lowercasing and removing '_' and '-'.
var sensitiveKeys = []string{
	"password",
	"token",
	"apikey",
	"secret",
	"authorization",
	"creditcard",
	"ssn",
	"privatekey",
}

// IsSensitiveKey reports whether a field name should never be logged.
// "accessToken", "X-Api-Key" and "client_secret" all match.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	k = strings.ReplaceAll(k, "_", "")
	k = strings.ReplaceAll(k, "-", "")
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// Sanitize returns a copy of v with sensitive fields redacted at any depth.
// Structs are normalized through JSON first so their json tags decide the key names.
func Sanitize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsSensitiveKey(k) {
				out[k] = Redacted
				continue
			}
			out[k] = Sanitize(val)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsSensitiveKey(k) {
				out[k] = Redacted
				continue
			}
			out[k] = val
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Sanitize(val)
		}
		return out
	case string, bool, float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
		return t
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return Redacted
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return Redacted
		}
		return Sanitize(generic)
	}
}

// SanitizeJSON redacts a raw JSON document. Bodies that are not JSON are dropped.
func SanitizeJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "[unparseable body]"
	}
	return Sanitize(generic)
}

// SanitizeHeaders flattens headers and redacts credentials such as Authorization.
func SanitizeHeaders(h map[string][]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if IsSensitiveKey(k) || strings.EqualFold(k, "Cookie") {
			out[k] = Redacted
			continue
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}
