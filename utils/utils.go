package utils

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SendJSONError sends a standardized JSON error response and logs the internal error.
// For 5xx errors, it sends a generic public message while logging the actual internalError.
// For 4xx errors, the publicMsg is shown to the client, and internalError (if provided) is logged.
func SendJSONError(c *gin.Context, statusCode int, publicMsg string, internalError error, details ...string) {
	errorDetails := ""
	if len(details) > 0 {
		errorDetails = details[0]
	}

	response := gin.H{"error": publicMsg}
	if errorDetails != "" {
		response["details"] = errorDetails
	}

	// Log the error with more details internally
	if internalError != nil {
		log.Printf("ERROR: Handler error: status_code=%d, public_message='%s', internal_error='%v', details='%s', path='%s'",
			statusCode, publicMsg, internalError, errorDetails, c.Request.URL.Path)
	} else {
		log.Printf("INFO: Handler response: status_code=%d, public_message='%s', details='%s', path='%s'",
			statusCode, publicMsg, errorDetails, c.Request.URL.Path)
	}

	// For 5xx errors, ensure the public message is generic if not already.
	// The actual sensitive error is logged above and not sent to client.
	if statusCode >= http.StatusInternalServerError && publicMsg == "" {
		response["error"] = "An unexpected error occurred. Please try again later."
	} else if statusCode >= http.StatusInternalServerError && internalError != nil && publicMsg == internalError.Error() {
		response["error"] = "An unexpected error occurred. Please try again later."
		log.Printf("WARN: For 5xx error, public message was same as internal error. Replaced with generic message for client. Original internal error: %v", internalError)
	}

	c.AbortWithStatusJSON(statusCode, response)
}

// MaskKey returns a display-safe form of an identifier: a prefix of at
// most prefixLen characters followed by "***". Keys shorter than the
// prefix keep only their first half, so the full value is never
// returned.
func MaskKey(key string, prefixLen int) string {
	if prefixLen < 0 {
		prefixLen = 0
	}
	if len(key) <= prefixLen {
		return key[:len(key)/2] + "***"
	}
	return key[:prefixLen] + "***"
}

// Prefix returns at most n leading characters of s.
func Prefix(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s
	}
	return s[:n]
}
