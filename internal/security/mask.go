// Package security masks credentials before they reach logs or MCP clients.
package security

import (
	"regexp"
	"strings"
)

const redacted = "***REDACTED***"

// MaskAccessKeyID masks an AWS access key id, keeping the 4 character type
// prefix (AKIA, ASIA) and the last 4 characters.
func MaskAccessKeyID(id string) string {
	if len(id) <= 8 {
		return "***"
	}
	return id[:4] + "..." + id[len(id)-4:]
}

// SensitivePatterns match credentials that can appear in AWS SDK error text,
// presigned URLs or shared config snippets.
var SensitivePatterns = []*regexp.Regexp{
	// aws_secret_access_key = ..., aws_session_token: ...
	regexp.MustCompile(`(?i)(aws_secret_access_key|aws_session_token|secret_?access_?key|session_?token)(\s*[=:]\s*["']?)([A-Za-z0-9/+=]{16,})["']?`),
	// SigV4 query parameters
	regexp.MustCompile(`(?i)(X-Amz-Signature=|X-Amz-Security-Token=|X-Amz-Credential=)([^&\s"]+)`),
	// Authorization: AWS4-HMAC-SHA256 Credential=..., Signature=...
	regexp.MustCompile(`(?i)(Signature=)([0-9a-f]{64})`),
	// Bearer tokens
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9_.-]{20,})`),
	// Passwords in URLs or config
	regexp.MustCompile(`(?i)(password|passwd|pwd)([=:]\s*["']?)([^"'\s&]+)["']?`),
}

// accessKeyID matches long term (AKIA) and temporary (ASIA) access key ids.
var accessKeyID = regexp.MustCompile(`\b((?:AKIA|ASIA)[A-Z0-9]{12,})\b`)

// MaskSensitiveData masks credentials in a string. Key names are kept so the
// text stays readable.
func MaskSensitiveData(data string) string {
	result := data
	for _, pattern := range SensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			parts := pattern.FindStringSubmatch(match)
			switch len(parts) {
			case 4:
				return parts[1] + parts[2] + redacted
			case 3:
				return parts[1] + redacted
			}
			return redacted
		})
	}
	return accessKeyID.ReplaceAllStringFunc(result, MaskAccessKeyID)
}

// SanitizeError returns the error text with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return MaskSensitiveData(err.Error())
}

// IsSensitiveField reports whether a field name suggests a secret value.
func IsSensitiveField(fieldName string) bool {
	sensitiveNames := []string{
		"password", "passwd", "pwd",
		"secret", "token", "credential",
		"authorization", "private", "signature",
	}

	fieldLower := strings.ToLower(fieldName)
	for _, name := range sensitiveNames {
		if strings.Contains(fieldLower, name) {
			return true
		}
	}
	return false
}

// MaskMap returns a copy of m with sensitive fields replaced and string values
// scrubbed, recursing into nested maps.
func MaskMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if IsSensitiveField(k) {
			out[k] = redacted
			continue
		}
		switch val := v.(type) {
		case string:
			out[k] = MaskSensitiveData(val)
		case map[string]interface{}:
			out[k] = MaskMap(val)
		default:
			out[k] = v
		}
	}
	return out
}
