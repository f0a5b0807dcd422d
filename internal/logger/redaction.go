package logger

import (
	"io"
	"regexp"
	"strings"
)

// Redactor removes sensitive data from log output
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor with default patterns
func NewRedactor() *Redactor {
	patterns := []*regexp.Regexp{
		// API keys (sk-..., key-...)
		regexp.MustCompile(`(sk|key)-[A-Za-z0-9_\-]{16,}`),
		// Bearer tokens
		regexp.MustCompile(`Bearer\s+[A-Za-z0-9_\-\.=]+`),
		// JSON fields holding secrets
		regexp.MustCompile(`("(?:api_key|apikey|secret|password|pwd|token|authorization|credential)"\s*:\s*")[^"]*(")`),
	}

	return &Redactor{patterns: patterns}
}

// Redact replaces sensitive data in the input string
func (r *Redactor) Redact(s string) string {
	for i, pattern := range r.patterns {
		if i == len(r.patterns)-1 {
			// JSON field pattern keeps the key, blanks the value
			s = pattern.ReplaceAllString(s, `${1}[REDACTED]${2}`)
			continue
		}
		s = pattern.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

// Wrap returns a writer that redacts everything written through it
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{redactor: r, out: w}
}

type redactingWriter struct {
	redactor *Redactor
	out      io.Writer
}

func (w *redactingWriter) Write(p []byte) (int, error) {
	redacted := w.redactor.Redact(string(p))
	if _, err := w.out.Write([]byte(redacted)); err != nil {
		return 0, err
	}
	// Report the original length so callers do not see short writes.
	return len(p), nil
}

var sensitiveKeys = []string{
	"api_key",
	"apikey",
	"secret",
	"password",
	"pwd",
	"token",
	"authorization",
	"credential",
}

// SensitiveKey reports whether an argument name looks like it carries a
// secret. Matching is case-insensitive on substrings, so "stripe_api_key"
// and "AuthToken" both qualify.
func SensitiveKey(name string) bool {
	lower := strings.ToLower(name)
	for _, k := range sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
