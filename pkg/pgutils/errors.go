package pgutils

import (
	"strings"
)

// CodeUniqueViolation is the SQLSTATE for a unique constraint violation.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const CodeUniqueViolation = "23505"

// IsUniqueViolation checks if the error is a unique constraint violation (23505).
// A unique violation on raw_articles.url_hash or articles_index.text_hash is
// the normal dedup path, not an error.
func IsUniqueViolation(err error) bool {
	return containsErrorCode(err, CodeUniqueViolation)
}

func containsErrorCode(err error, code string) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return len(errStr) > 0 && (strings.Contains(errStr, code) || strings.Contains(errStr, "SQLSTATE "+code))
}
