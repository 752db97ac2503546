package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BaSui01/submind/orchestrator"
	"github.com/BaSui01/submind/transcript"
	"go.uber.org/zap"
)

// Format is an export file format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Ext returns the file extension of the format.
func (f Format) Ext() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return ".json"
}

// ErrUnknownFormat is returned for format names other than json and markdown.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormats converts configured format names.
func ParseFormats(names []string) ([]Format, error) {
	out := make([]Format, 0, len(names))
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		if f != FormatJSON && f != FormatMarkdown {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, n)
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Exporter writes discussion summaries into a directory.
type Exporter struct {
	dir      string
	prefix   string
	formats  []Format
	metadata bool
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithPrefix sets the file name prefix.
func WithPrefix(prefix string) Option {
	return func(e *Exporter) { e.prefix = prefix }
}

// WithFormats selects the formats written by Export.
func WithFormats(formats ...Format) Option {
	return func(e *Exporter) { e.formats = formats }
}

// WithoutMetadata omits the metadata block from both formats.
func WithoutMetadata() Option {
	return func(e *Exporter) { e.metadata = false }
}

// WithClock sets the clock used for file names.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an exporter writing into dir. The directory is created on
// first export.
func New(dir string, opts ...Option) *Exporter {
	e := &Exporter{
		dir:      dir,
		prefix:   "discussion",
		formats:  []Format{FormatJSON, FormatMarkdown},
		metadata: true,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "export"))
	return e
}

// Dir returns the output directory.
func (e *Exporter) Dir() string { return e.dir }

// Export writes s in every configured format and returns the written paths
// keyed by format.
func (e *Exporter) Export(s *orchestrator.Summary) (map[Format]string, error) {
	if s == nil {
		return nil, errors.New("export: nil summary")
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	base := e.baseName(s)
	paths := make(map[Format]string, len(e.formats))
	for _, f := range e.formats {
		var (
			data []byte
			err  error
		)
		switch f {
		case FormatJSON:
			data, err = e.renderJSON(s)
		case FormatMarkdown:
			data = []byte(e.renderMarkdown(s))
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
		if err != nil {
			return paths, err
		}
		path := filepath.Join(e.dir, base+f.Ext())
		if err := writeFile(path, data); err != nil {
			return paths, fmt.Errorf("write %s export: %w", f, err)
		}
		paths[f] = path
	}

	e.logger.Info("discussion exported",
		zap.String("discussion_id", s.ID),
		zap.String("base", base),
		zap.Int("files", len(paths)),
	)
	return paths, nil
}

// ExportSummary writes only the summary metadata, without messages, to
// filename inside the export directory. An empty filename means
// "summary.json".
func (e *Exporter) ExportSummary(s *orchestrator.Summary, filename string) (string, error) {
	if s == nil {
		return "", errors.New("export: nil summary")
	}
	if filename == "" {
		filename = "summary.json"
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	data, err := json.MarshalIndent(withoutMessages(s), "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(e.dir, filepath.Base(filename))
	if err := writeFile(path, data); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

// baseName picks <prefix>_<timestamp>, adding the discussion id when a file
// with that name already exists.
func (e *Exporter) baseName(s *orchestrator.Summary) string {
	base := fmt.Sprintf("%s_%s", e.prefix, e.now().Format("20060102_150405"))
	for _, f := range e.formats {
		if _, err := os.Stat(filepath.Join(e.dir, base+f.Ext())); err == nil {
			id := s.ID
			if len(id) > 8 {
				id = id[:8]
			}
			return base + "_" + id
		}
	}
	return base
}

// document is the JSON export layout.
type document struct {
	Messages []transcript.Message  `json:"messages"`
	Metadata *orchestrator.Summary `json:"metadata,omitempty"`
}

// RenderJSON returns the JSON export of s.
func RenderJSON(s *orchestrator.Summary) ([]byte, error) {
	return New("").renderJSON(s)
}

func (e *Exporter) renderJSON(s *orchestrator.Summary) ([]byte, error) {
	doc := document{Messages: s.Messages}
	if doc.Messages == nil {
		doc.Messages = []transcript.Message{}
	}
	if e.metadata {
		doc.Metadata = withoutMessages(s)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// RenderMarkdown returns the Markdown export of s.
func RenderMarkdown(s *orchestrator.Summary) string {
	return New("").renderMarkdown(s)
}

func (e *Exporter) renderMarkdown(s *orchestrator.Summary) string {
	var b strings.Builder
	b.WriteString("# Submind Discussion\n\n")

	if e.metadata {
		b.WriteString("## Metadata\n\n")
		fmt.Fprintf(&b, "- **Discussion**: %s\n", s.ID)
		fmt.Fprintf(&b, "- **User Prompt**: %s\n", s.Prompt)
		fmt.Fprintf(&b, "- **Participants**: %s\n", strings.Join(s.Participants, ", "))
		fmt.Fprintf(&b, "- **Total Rounds**: %d\n", s.Rounds)
		fmt.Fprintf(&b, "- **Total Messages**: %d\n", s.MessageCount)
		outcome := string(s.State)
		if s.Detail != "" {
			outcome += " (" + s.Detail + ")"
		}
		fmt.Fprintf(&b, "- **Outcome**: %s\n", outcome)
		if !s.StartedAt.IsZero() {
			fmt.Fprintf(&b, "- **Start Time**: %s\n", s.StartedAt.Format(time.RFC3339))
		}
		if !s.EndedAt.IsZero() {
			fmt.Fprintf(&b, "- **End Time**: %s\n", s.EndedAt.Format(time.RFC3339))
		}
		if s.Duration > 0 {
			fmt.Fprintf(&b, "- **Duration**: %.2f seconds\n", s.Duration.Seconds())
		}
		b.WriteString("\n")
	}

	b.WriteString("## Conversation\n\n")
	round := -1
	for _, m := range s.Messages {
		if m.Round != round {
			round = m.Round
			if round == 0 {
				b.WriteString("### Initial Prompt\n\n")
			} else {
				fmt.Fprintf(&b, "### Round %d\n\n", round)
			}
		}
		if m.Speaker == transcript.SpeakerSystem {
			fmt.Fprintf(&b, "*%s*\n\n", m.Content)
			continue
		}
		fmt.Fprintf(&b, "**%s**: %s\n\n", m.Speaker, m.Content)
	}
	return b.String()
}

func withoutMessages(s *orchestrator.Summary) *orchestrator.Summary {
	meta := *s
	meta.Messages = nil
	return &meta
}

// writeFile writes to a temp file then renames it into place.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
