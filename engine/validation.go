package engine

import (
	"errors"
	"strings"
)

// MaxColumnCount defines the maximum number of columns allowed in a table
const MaxColumnCount = 2000

// maxLogLength limits statements written to the log
const maxLogLength = 200

// ErrTooManyColumns is returned when a table has too many columns
var ErrTooManyColumns = errors.New("datalab engine: too many columns")

// ValidateColumnCount checks if the number of columns is within acceptable limits
func ValidateColumnCount(columnCount int) error {
	if columnCount > MaxColumnCount {
		return ErrTooManyColumns
	}
	return nil
}

// SanitizeForLog prepares SQL text for logging. Statements that look like
// they carry credentials are redacted and long ones are truncated.
func SanitizeForLog(input string) string {
	sensitive := []string{
		"password", "passwd", "secret", "token",
		"credential", "private",
	}

	lower := strings.ToLower(input)
	for _, pattern := range sensitive {
		if strings.Contains(lower, pattern) {
			return "[REDACTED]"
		}
	}

	result := strings.Join(strings.Fields(input), " ")
	if len(result) > maxLogLength {
		result = result[:maxLogLength] + "..."
	}
	return result
}
