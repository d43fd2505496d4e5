package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Length limits for values written into log fields
const (
	MaxPathLength          = 500
	MaxUserIDLength        = 128 // OIDC subjects are opaque and may be long
	MaxPreviewLength       = 200
	MaxErrorMessageLength  = 1000
	MaxGeneralStringLength = 2000
	MaxDebugContentLength  = 10000
)

// SanitizePath prepares a request path for logging
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeString drops invalid UTF-8 and control characters other than whitespace,
// then truncates to maxLength bytes on a rune boundary and appends "...".
// A non-positive maxLength means MaxGeneralStringLength.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, strings.ToValidUTF8(s, ""))
	if len(s) <= maxLength {
		return s
	}
	cut := maxLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// SanitizeError renders err for a log field; nil renders as ""
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeUserID prepares a user id for logging.
// Line breaks are dropped so a crafted subject cannot forge log lines.
func SanitizeUserID(userID string) string {
	return singleLine(SanitizeString(userID, MaxUserIDLength))
}

// Preview returns a short single-line excerpt of model input or output
func Preview(content string) string {
	return singleLine(SanitizeString(content, MaxPreviewLength))
}

// SanitizeDebugContent bounds full prompts and replies logged in debug mode
func SanitizeDebugContent(content string) string {
	return SanitizeString(content, MaxDebugContentLength)
}

func singleLine(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
