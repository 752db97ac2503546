package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/BaSui01/submind/llm/tokenizer"
	"github.com/BaSui01/submind/persona"
	"github.com/BaSui01/submind/termination"
	"github.com/BaSui01/submind/transcript"
	"github.com/BaSui01/submind/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/BaSui01/submind/orchestrator"

// Recorder receives discussion metrics. internal/metrics.Collector
// implements it.
type Recorder interface {
	DiscussionStarted()
	DiscussionFinished(state, reason string, rounds int, duration time.Duration)
	RecordGeneration(personaID, model, status string, duration time.Duration, tokens int)
}

type nopRecorder struct{}

func (nopRecorder) DiscussionStarted() {}
func (nopRecorder) DiscussionFinished(string, string, int, time.Duration) {}
func (nopRecorder) RecordGeneration(string, string, string, time.Duration, int) {}

// Orchestrator starts discussions against one completion gateway. It holds
// no per-discussion state and is safe for concurrent use.
type Orchestrator struct {
	gateway   persona.Gateway
	detector  termination.Detector
	logger    *zap.Logger
	recorder  Recorder
	tokenizer tokenizer.Tokenizer
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDetector replaces the heuristic detector. Config.Similarity is then
// ignored.
func WithDetector(d termination.Detector) Option {
	return func(o *Orchestrator) { o.detector = d }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithTokenizer sets the tokenizer used when the gateway reports no usage.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(o *Orchestrator) { o.tokenizer = t }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides discussion id generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// New creates an Orchestrator.
func New(gw persona.Gateway, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gateway:  gw,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer(instrumentationName),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tokenizer == nil {
		o.tokenizer = tokenizer.NewEstimatorTokenizer("", 0)
	}
	o.logger = o.logger.With(zap.String("component", "orchestrator"))
	return o
}

// Start validates the request and seeds a new discussion. Nothing is sent to
// the gateway until the returned Discussion's events are consumed. Invalid
// input yields a configuration error.
func (o *Orchestrator) Start(ctx context.Context, prompt string, personas []persona.Persona, cfg Config) (*Discussion, error) {
	if o.gateway == nil {
		return nil, types.NewConfigurationError("no completion gateway configured")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, types.NewConfigurationError("prompt must not be empty")
	}
	if err := persona.ValidateActive(personas); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	detector := o.detector
	if detector == nil {
		sim, err := termination.SimilarityByName(cfg.Similarity)
		if err != nil {
			return nil, err
		}
		detector = termination.NewDetector(termination.WithSimilarity(sim))
	}

	id := o.newID()
	tr := transcript.New(prompt, transcript.WithClock(o.now))
	if _, err := tr.Append(transcript.Message{Speaker: transcript.SpeakerUser, Content: prompt, Round: 0}); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	d := &Discussion{
		id:         id,
		prompt:     prompt,
		personas:   append([]persona.Persona(nil), personas...),
		cfg:        cfg,
		orch:       o,
		detector:   detector,
		ctx:        runCtx,
		cancel:     cancel,
		transcript: tr,
		state:      StateNotStarted,
		logger:     o.logger.With(zap.String("discussion_id", id)),
	}
	d.logger.Info("discussion created",
		zap.Strings("personas", persona.IDs(personas)),
		zap.Int("max_rounds", cfg.MaxRounds),
		zap.Float64("consensus_threshold", cfg.ConsensusThreshold))
	return d, nil
}
