package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ruslano69/productimport/pkg/core/product"
)

// Level controls how much of an entry reaches an appender
type Level int

const (
	// LevelMinimal keeps identity and status only
	LevelMinimal Level = iota

	// LevelStandard adds the error messages
	LevelStandard

	// LevelFull adds the metadata
	LevelFull
)

func (l Level) String() string {
	switch l {
	case LevelMinimal:
		return "minimal"
	case LevelStandard:
		return "standard"
	case LevelFull:
		return "full"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// ParseLevel maps a config value to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return LevelMinimal, nil
	case "", "standard":
		return LevelStandard, nil
	case "full":
		return LevelFull, nil
	default:
		return LevelStandard, fmt.Errorf("unknown audit level: %s", s)
	}
}

// Operation is what an entry describes
type Operation string

const (
	OpProduct Operation = "product"
	OpRun     Operation = "run"
)

// Status of the audited operation
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Entry is one audit record
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Operation Operation `json:"operation"`
	Status    Status    `json:"status"`

	// RunID groups the entries of one import run
	RunID string `json:"run_id,omitempty"`

	SKU  string `json:"sku,omitempty"`
	Kind string `json:"kind,omitempty"`
	Line int    `json:"line,omitempty"`

	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewEntry creates an entry with a fresh id
func NewEntry(operation Operation, status Status) *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Operation: operation,
		Status:    status,
	}
}

// ProductEntry describes the outcome of one product
func ProductEntry(p *product.Product) *Entry {
	status := StatusSuccess
	if p.Status() != product.StatusOk {
		status = StatusFailure
	}
	e := NewEntry(OpProduct, status)
	e.SKU = p.SKU()
	e.Kind = p.Kind.String()
	e.Line = p.Line
	e.Errors = p.Errors()
	return e
}

// WithRunID sets the run id
func (e *Entry) WithRunID(runID string) *Entry {
	e.RunID = runID
	return e
}

// WithMessage sets the message
func (e *Entry) WithMessage(msg string) *Entry {
	e.Message = msg
	return e
}

// WithError records err and fails the entry
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.Errors = append(e.Errors, err.Error())
		e.Status = StatusFailure
	}
	return e
}

// WithMetadata adds a metadata value
func (e *Entry) WithMetadata(key string, value any) *Entry {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// ToJSON encodes the entry
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", e.Timestamp.Format(time.RFC3339), e.Operation, e.Status)
	if e.SKU != "" {
		fmt.Fprintf(&b, " sku=%s line=%d", e.SKU, e.Line)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " %s", e.Message)
	}
	if len(e.Errors) > 0 {
		fmt.Fprintf(&b, " errors=%q", e.Errors)
	}
	return b.String()
}

// Clone copies the entry
func (e *Entry) Clone() *Entry {
	clone := *e
	clone.Errors = append([]string(nil), e.Errors...)
	if e.Metadata != nil {
		clone.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// FilterByLevel returns a copy holding only what level allows
func (e *Entry) FilterByLevel(level Level) *Entry {
	filtered := e.Clone()

	switch level {
	case LevelMinimal:
		filtered.Errors = nil
		filtered.Metadata = nil
	case LevelStandard:
		filtered.Metadata = nil
	case LevelFull:
	}

	return filtered
}
