package util

import "fmt"

// ErrorLogMaxLen caps logged provider errors. Google API errors embed
// the full response body, which can run to kilobytes of HTML on proxy
// failures.
const ErrorLogMaxLen = 512

// Truncate shortens long strings for log output.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateError formats an error for logging with the default cap.
func TruncateError(err error) string {
	if err == nil {
		return ""
	}
	return Truncate(err.Error(), ErrorLogMaxLen)
}
