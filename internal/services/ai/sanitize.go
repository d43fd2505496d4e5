package ai

import (
	"github.com/benvon/goalquest/internal/logger"
)

// RedactedValue is the value used to replace sensitive data
const RedactedValue = "[REDACTED]"

// SanitizeAPIKey sanitizes an API key for logging
func SanitizeAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 8 {
		return RedactedValue
	}
	return apiKey[:4] + RedactedValue + apiKey[len(apiKey)-4:]
}

// SanitizePrompt creates a safe preview of a prompt for logging.
// fullLog keeps up to logger.MaxDebugContentLength; otherwise a short single-line preview.
func SanitizePrompt(prompt string, fullLog bool) string {
	if prompt == "" {
		return ""
	}
	if fullLog {
		return logger.SanitizeDebugContent(prompt)
	}
	return logger.Preview(prompt)
}

// SanitizeResponse creates a safe preview of a model reply for logging
func SanitizeResponse(response string, fullLog bool) string {
	return SanitizePrompt(response, fullLog)
}
