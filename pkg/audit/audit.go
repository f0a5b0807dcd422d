// Package audit appends structured invocation records to a JSON-lines
// ledger. Every dispatch attempt produces exactly one record, written
// before the result is returned to the caller, so the ledger is a
// complete forensic trail even when the process crashes right after.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/skyyrose/toolgate/internal/logger"
)

// Invocation outcomes as recorded in the ledger.
const (
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusTimeout  = "timeout"
	StatusRejected = "rejected"
)

// maxArgLen caps the length of a recorded argument value. Longer values
// are truncated and suffixed with a digest so records stay linkable.
const maxArgLen = 256

// Record is a single audit entry.
type Record struct {
	ID            string            `json:"id"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Tool          string            `json:"tool"`
	Caller        string            `json:"caller,omitempty"`
	Status        string            `json:"status"`
	Reason        string            `json:"reason,omitempty"`
	Error         string            `json:"error,omitempty"`
	Args          map[string]string `json:"args,omitempty"`
	DurationMS    int64             `json:"duration_ms"`
	CacheHit      bool              `json:"cache_hit,omitempty"`
	Degraded      bool              `json:"degraded,omitempty"`
	Attempts      int               `json:"attempts,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// Ledger writes audit records to an append-only JSONL file.
type Ledger struct {
	mu     sync.Mutex
	logger zerolog.Logger
	file   *os.File
}

// NewLedger opens (or creates) the ledger file at path.
func NewLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	l := zerolog.New(file).With().Timestamp().Logger()

	return &Ledger{logger: l, file: file}, nil
}

// NewLedgerWriter builds a ledger over an arbitrary writer. Used in tests.
func NewLedgerWriter(w io.Writer) *Ledger {
	return &Ledger{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// Append writes one record. The record's ID and Timestamp are assigned
// here if unset.
func (l *Ledger) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate audit id: %w", err)
		}
		rec.ID = id
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	rec.Args = SanitizeArgs(rec.Args)

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	l.logger.Info().
		RawJSON("audit", payload).
		Msg("tool_invocation")

	return nil
}

// Close flushes and closes the underlying file, if any.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// SanitizeArgs redacts sensitive values and truncates oversized ones.
// Sensitive keys keep only a digest of the value; long values keep a
// prefix plus a digest, so identical inputs remain correlatable across
// records without storing the raw data.
func SanitizeArgs(args map[string]string) map[string]string {
	if len(args) == 0 {
		return nil
	}

	out := make(map[string]string, len(args))
	for k, v := range args {
		switch {
		case logger.SensitiveKey(k):
			out[k] = "sha256:" + digest(v)
		case len(v) > maxArgLen:
			out[k] = v[:maxArgLen] + "…sha256:" + digest(v)
		default:
			out[k] = v
		}
	}
	return out
}

func digest(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])[:12]
}

// Stringify flattens raw invocation arguments into the string form the
// ledger stores. Non-string values are JSON encoded.
func Stringify(args map[string]interface{}) map[string]string {
	if len(args) == 0 {
		return nil
	}

	out := make(map[string]string, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			out[k] = fmt.Sprintf("%v", v)
			continue
		}
		out[k] = string(encoded)
	}
	return out
}

// Tail reads the last n records from the ledger file at path. Records
// that fail to parse are skipped.
func Tail(path string, n int) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var line struct {
			Audit Record `json:"audit"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		if line.Audit.Tool == "" {
			continue
		}
		records = append(records, line.Audit)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}
