package store

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/BaSui01/submind/orchestrator"
)

// Common errors
var (
	ErrNotFound     = errors.New("discussion not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// Type is a storage backend name.
type Type string

const (
	TypeNone     Type = "none"
	TypeMemory   Type = "memory"
	TypeFile     Type = "file"
	TypeRedis    Type = "redis"
	TypePostgres Type = "postgres"
	TypeMySQL    Type = "mysql"
	TypeSQLite   Type = "sqlite"
)

// ListOptions pages and filters List results.
type ListOptions struct {
	// Limit caps the result size; 0 means 50.
	Limit  int
	Offset int
	// State keeps only discussions in that final state when set.
	State orchestrator.State
}

const defaultListLimit = 50

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return defaultListLimit
	}
	return o.Limit
}

// Store persists discussion summaries.
type Store interface {
	// Save inserts or replaces the summary with the same ID.
	Save(ctx context.Context, s *orchestrator.Summary) error
	// Get returns the full summary including messages.
	Get(ctx context.Context, id string) (*orchestrator.Summary, error)
	// List returns summaries without messages, most recently started first.
	List(ctx context.Context, opts ListOptions) ([]*orchestrator.Summary, error)
	// Delete removes a summary.
	Delete(ctx context.Context, id string) error
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases resources.
	Close() error
}

func validate(s *orchestrator.Summary) error {
	if s == nil || strings.TrimSpace(s.ID) == "" {
		return ErrInvalidInput
	}
	return nil
}

// clone deep-copies a summary so stored values never alias caller memory.
func clone(s *orchestrator.Summary) *orchestrator.Summary {
	c := *s
	c.Participants = slices.Clone(s.Participants)
	c.SpeakerCounts = maps.Clone(s.SpeakerCounts)
	c.Messages = slices.Clone(s.Messages)
	return &c
}

// header is clone without the message list.
func header(s *orchestrator.Summary) *orchestrator.Summary {
	c := clone(s)
	c.Messages = nil
	return c
}

// newestFirst orders by start time descending, then by id.
func newestFirst(a, b *orchestrator.Summary) int {
	if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// page filters, sorts and pages headers in memory.
func page(all []*orchestrator.Summary, opts ListOptions) []*orchestrator.Summary {
	out := make([]*orchestrator.Summary, 0, len(all))
	for _, s := range all {
		if opts.State != "" && s.State != opts.State {
			continue
		}
		out = append(out, s)
	}
	slices.SortFunc(out, newestFirst)
	if opts.Offset >= len(out) {
		return []*orchestrator.Summary{}
	}
	out = out[max(opts.Offset, 0):]
	return out[:min(opts.limit(), len(out))]
}

// OpRecorder receives store operation timings.
type OpRecorder interface {
	RecordStoreOperation(backend, operation, status string, d time.Duration)
}

// Instrument wraps s so every operation is reported to rec.
func Instrument(s Store, backend Type, rec OpRecorder) Store {
	if rec == nil {
		return s
	}
	return &instrumented{Store: s, backend: string(backend), rec: rec}
}

type instrumented struct {
	Store
	backend string
	rec     OpRecorder
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	status := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	i.rec.RecordStoreOperation(i.backend, op, status, time.Since(start))
}

func (i *instrumented) Save(ctx context.Context, s *orchestrator.Summary) error {
	start := time.Now()
	err := i.Store.Save(ctx, s)
	i.observe("save", start, err)
	return err
}

func (i *instrumented) Get(ctx context.Context, id string) (*orchestrator.Summary, error) {
	start := time.Now()
	s, err := i.Store.Get(ctx, id)
	i.observe("get", start, err)
	return s, err
}

func (i *instrumented) List(ctx context.Context, opts ListOptions) ([]*orchestrator.Summary, error) {
	start := time.Now()
	out, err := i.Store.List(ctx, opts)
	i.observe("list", start, err)
	return out, err
}

func (i *instrumented) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := i.Store.Delete(ctx, id)
	i.observe("delete", start, err)
	return err
}
