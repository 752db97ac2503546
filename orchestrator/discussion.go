package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/submind/llm/retry"
	"github.com/BaSui01/submind/llm/tokenizer"
	"github.com/BaSui01/submind/persona"
	"github.com/BaSui01/submind/termination"
	"github.com/BaSui01/submind/transcript"
	"github.com/BaSui01/submind/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	// ErrCancelled is the cancellation cause recorded by Discussion.Cancel.
	ErrCancelled = errors.New("discussion cancelled")
	// ErrEventsConsumed is returned by Run when the events were already
	// iterated elsewhere.
	ErrEventsConsumed = errors.New("discussion events already consumed")

	errDetached    = errors.New("event consumer stopped")
	errInterrupted = errors.New("interrupted")
)

// faultError wraps a panic raised while a round was being played.
type faultError struct {
	where string
	value any
	stack []byte
}

func (e *faultError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.where, e.value)
}

// Discussion is one running or finished discussion. Its methods are safe for
// concurrent use; the rounds themselves run on the goroutine that consumes
// Events.
type Discussion struct {
	id       string
	prompt   string
	personas []persona.Persona
	cfg      Config
	orch     *Orchestrator
	detector termination.Detector
	limiter  *rate.Limiter
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc

	consumed atomic.Bool

	mu         sync.RWMutex
	transcript *transcript.Transcript
	state      State
	round      int
	verdict    termination.Verdict
	failures   int
	err        error
	startedAt  time.Time
	endedAt    time.Time
	summary    *Summary
}

// ID returns the discussion id.
func (d *Discussion) ID() string { return d.id }

// Prompt returns the seeding prompt.
func (d *Discussion) Prompt() string { return d.prompt }

// Personas returns the active personas in speaking order.
func (d *Discussion) Personas() []persona.Persona { return slices.Clone(d.personas) }

// Config returns the discussion settings.
func (d *Discussion) Config() Config { return d.cfg }

// State returns the current lifecycle state.
func (d *Discussion) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Round returns the current (or last) round number; 0 before the first.
func (d *Discussion) Round() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.round
}

// Verdict returns the stopping verdict once the discussion terminated.
func (d *Discussion) Verdict() termination.Verdict {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.verdict
}

// Transcript returns a snapshot of the transcript.
func (d *Discussion) Transcript() transcript.View {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.transcript.View()
}

// Summary returns the final summary. It exists only for discussions that
// terminated normally.
func (d *Discussion) Summary() (*Summary, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.summary, d.summary != nil
}

// Err returns the failure cause of a failed discussion.
func (d *Discussion) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

// Cancel requests cancellation. It is observed between persona invocations
// and interrupts a pending gateway call.
func (d *Discussion) Cancel() {
	d.cancel(ErrCancelled)
}

// Report builds a summary of the discussion as it stands, whatever its
// state. Cancelled and failed discussions use it for archiving.
func (d *Discussion) Report() *Summary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reportLocked()
}

func (d *Discussion) reportLocked() *Summary {
	view := d.transcript.View()
	msgs := view.Messages()
	tokens := 0
	for _, m := range msgs {
		tokens += m.Meta.Tokens
	}
	end := d.endedAt
	if end.IsZero() {
		end = d.orch.now()
	}
	var duration time.Duration
	if !d.startedAt.IsZero() {
		duration = end.Sub(d.startedAt)
	}
	detail := d.verdict.Detail
	if d.state == StateFailed && detail == "" {
		var failure *types.Error
		if errors.As(d.err, &failure) && failure.Cause != nil {
			detail = failure.Cause.Error()
		}
	}
	return &Summary{
		ID:            d.id,
		Prompt:        d.prompt,
		Participants:  persona.IDs(d.personas),
		Rounds:        d.round,
		State:         d.state,
		Reason:        d.verdict.Reason,
		Detail:        detail,
		MessageCount:  len(msgs),
		SpeakerCounts: view.SpeakerCounts(),
		Failures:      d.failures,
		Tokens:        tokens,
		StartedAt:     d.startedAt,
		EndedAt:       d.endedAt,
		Duration:      duration,
		Messages:      msgs,
	}
}

// Events runs the discussion and yields its lifecycle events. The sequence
// can be iterated once; later iterations yield nothing. Breaking out of the
// loop cancels the discussion.
func (d *Discussion) Events() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if !d.consumed.CompareAndSwap(false, true) {
			d.logger.Warn("discussion events already consumed")
			return
		}
		d.run(yield)
	}
}

// Run drains Events, passing each to handler (which may be nil), and
// returns the summary of a normally terminated discussion. A cancelled
// discussion returns a DISCUSSION_CANCELLED error, a failed one its cause.
func (d *Discussion) Run(handler func(Event)) (*Summary, error) {
	ran := false
	for ev := range d.Events() {
		ran = true
		if handler != nil {
			handler(ev)
		}
	}
	if !ran {
		return nil, ErrEventsConsumed
	}
	switch d.State() {
	case StateTerminated:
		s, _ := d.Summary()
		return s, nil
	case StateCancelled:
		return nil, types.NewError(types.ErrDiscussionCancel, "discussion cancelled").
			WithCause(context.Cause(d.ctx)).
			WithHTTPStatus(499)
	default:
		return nil, d.Err()
	}
}

// emitter forwards events to the consumer until it stops listening.
type emitter struct {
	d        *Discussion
	yield    func(Event) bool
	detached bool
}

func (e *emitter) emit(ev Event) bool {
	if e.detached {
		return false
	}
	ev.DiscussionID = e.d.id
	ev.Timestamp = e.d.orch.now()
	if !e.yield(ev) {
		e.detached = true
		e.d.cancel(errDetached)
		return false
	}
	return true
}

func (d *Discussion) run(yield func(Event) bool) {
	o := d.orch
	em := &emitter{d: d, yield: yield}

	ctx, span := o.tracer.Start(d.ctx, "submind.discussion", trace.WithAttributes(
		attribute.String("discussion.id", d.id),
		attribute.Int("discussion.personas", len(d.personas)),
		attribute.Int("discussion.max_rounds", d.cfg.MaxRounds),
	))
	defer span.End()
	defer d.cancel(nil)

	if d.cfg.DelayBetweenPersonas > 0 {
		d.limiter = rate.NewLimiter(rate.Every(d.cfg.DelayBetweenPersonas), 1)
	}

	d.mu.Lock()
	d.startedAt = o.now()
	d.mu.Unlock()
	o.recorder.DiscussionStarted()
	d.logger.Info("discussion started")
	em.emit(Event{Type: EventDiscussionStarted, Detail: d.prompt})

	for round := 1; ; round++ {
		if ctx.Err() != nil {
			d.finishCancelled(em)
			return
		}
		if err := d.transition(StateRoundInProgress); err != nil {
			d.finishFailed(em, span, err)
			return
		}
		d.mu.Lock()
		d.round = round
		d.mu.Unlock()
		em.emit(Event{Type: EventRoundStarted, Round: round, Detail: termination.Progress(round, d.cfg.MaxRounds)})

		if err := d.playRound(ctx, em, round); err != nil {
			if errors.Is(err, errInterrupted) {
				d.finishCancelled(em)
			} else {
				d.finishFailed(em, span, err)
			}
			return
		}

		if err := d.transition(StateAwaitingTermination); err != nil {
			d.finishFailed(em, span, err)
			return
		}
		em.emit(Event{Type: EventRoundCompleted, Round: round})
		if ctx.Err() != nil {
			d.finishCancelled(em)
			return
		}

		verdict, err := d.evaluate(round)
		if err != nil {
			d.finishFailed(em, span, err)
			return
		}
		if verdict.Stop {
			d.finishCompleted(em, span, round, verdict)
			return
		}
		d.logger.Debug("round completed", zap.String("progress", termination.Progress(round, d.cfg.MaxRounds)))
	}
}

func (d *Discussion) playRound(ctx context.Context, em *emitter, round int) error {
	ctx, span := d.orch.tracer.Start(ctx, "submind.round", trace.WithAttributes(attribute.Int("round", round)))
	defer span.End()

	if round == 1 && d.cfg.ConcurrentOpening {
		return d.playOpening(ctx, em)
	}

	for _, p := range d.personas {
		if ctx.Err() != nil {
			return errInterrupted
		}
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return errInterrupted
			}
		}
		em.emit(Event{Type: EventPersonaInvoked, Round: round, Persona: p.ID})
		if ctx.Err() != nil {
			return errInterrupted
		}

		msg, err := d.invoke(ctx, p, d.Transcript(), round)
		if err != nil && ctx.Err() != nil {
			return errInterrupted
		}
		if err := d.settle(em, p, round, msg, err); err != nil {
			return err
		}
	}
	return nil
}

// playOpening asks every persona at once. All of them see only the seed;
// answers are appended in speaking order.
func (d *Discussion) playOpening(ctx context.Context, em *emitter) error {
	if ctx.Err() != nil {
		return errInterrupted
	}
	view := d.Transcript()
	for _, p := range d.personas {
		em.emit(Event{Type: EventPersonaInvoked, Round: 1, Persona: p.ID})
	}
	if ctx.Err() != nil {
		return errInterrupted
	}

	type result struct {
		msg transcript.Message
		err error
	}
	results := make([]result, len(d.personas))
	var g errgroup.Group
	for i, p := range d.personas {
		g.Go(func() error {
			msg, err := d.invoke(ctx, p, view, 1)
			results[i] = result{msg: msg, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return errInterrupted
	}
	for i, p := range d.personas {
		if err := d.settle(em, p, 1, results[i].msg, results[i].err); err != nil {
			return err
		}
	}
	return nil
}

// settle records one invocation outcome. Only faults are returned; a
// generation failure becomes a persona-error event.
func (d *Discussion) settle(em *emitter, p persona.Persona, round int, msg transcript.Message, err error) error {
	var fault *faultError
	if errors.As(err, &fault) {
		return fault
	}
	if err != nil {
		d.mu.Lock()
		d.failures++
		d.mu.Unlock()
		d.logger.Warn("persona failed to respond",
			zap.String("persona", p.ID),
			zap.Int("round", round),
			zap.Error(err))
		em.emit(Event{Type: EventPersonaError, Round: round, Persona: p.ID, Error: err.Error(), Err: err})
		return nil
	}

	stored, err := d.append(msg)
	if err != nil {
		return fmt.Errorf("append message from %s: %w", p.ID, err)
	}
	em.emit(Event{Type: EventPersonaResponded, Round: round, Persona: p.ID, Message: &stored})
	return nil
}

func (d *Discussion) invoke(ctx context.Context, p persona.Persona, view transcript.View, round int) (msg transcript.Message, err error) {
	o := d.orch
	ctx, span := o.tracer.Start(ctx, "submind.persona", trace.WithAttributes(
		attribute.String("persona.id", p.ID),
		attribute.Int("round", round),
	))
	defer span.End()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = &faultError{where: "persona " + p.ID, value: r, stack: debug.Stack()}
		}
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		o.recorder.RecordGeneration(p.ID, msg.Meta.Model, status, time.Since(start), msg.Meta.Tokens)
	}()

	retryer := retry.NewBackoffRetryer(&retry.RetryPolicy{
		MaxRetries:   d.cfg.GenerationRetries,
		InitialDelay: d.cfg.RetryBackoff,
		Multiplier:   2,
		Jitter:       true,
		ShouldRetry:  retryableGeneration,
	}, d.logger.With(zap.String("persona", p.ID)))

	err = retryer.Do(ctx, func(int) error {
		var perr error
		msg, perr = p.Produce(ctx, o.gateway, view, round)
		return perr
	})
	if err == nil && msg.Meta.Tokens == 0 {
		msg.Meta.Tokens = tokenizer.Count(o.tokenizer, msg.Content)
	}
	return msg, err
}

func retryableGeneration(err error) bool {
	var ge *persona.GenerationError
	return errors.As(err, &ge) && ge.Retryable()
}

func (d *Discussion) evaluate(round int) (v termination.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &faultError{where: "termination detector", value: r, stack: debug.Stack()}
		}
	}()
	state := termination.State{Round: round, Active: persona.IDs(d.personas)}
	return d.detector.Evaluate(d.Transcript(), state, d.cfg.detectorConfig()), nil
}

func (d *Discussion) append(msg transcript.Message) (transcript.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transcript.Append(msg)
}

func (d *Discussion) transition(to State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	from := d.state
	if !CanTransition(from, to) {
		return invalidTransition(from, to)
	}
	d.state = to
	d.logger.Debug("state transition", zap.String("from", string(from)), zap.String("to", string(to)))
	return nil
}

func (d *Discussion) finishCompleted(em *emitter, span trace.Span, round int, verdict termination.Verdict) {
	notice, err := d.append(transcript.Message{
		Speaker: transcript.SpeakerSystem,
		Role:    "system",
		Content: "Discussion terminated: " + verdict.Detail,
		Round:   round,
	})
	if err != nil {
		d.finishFailed(em, span, fmt.Errorf("append termination notice: %w", err))
		return
	}
	if err := d.transition(StateTerminated); err != nil {
		d.finishFailed(em, span, err)
		return
	}

	d.mu.Lock()
	d.verdict = verdict
	d.endedAt = d.orch.now()
	summary := d.reportLocked()
	d.summary = summary
	d.mu.Unlock()

	span.SetAttributes(attribute.String("discussion.reason", string(verdict.Reason)), attribute.Int("discussion.rounds", round))
	d.orch.recorder.DiscussionFinished(string(StateTerminated), string(verdict.Reason), round, summary.Duration)
	d.logger.Info("discussion terminated",
		zap.String("reason", string(verdict.Reason)),
		zap.String("detail", verdict.Detail),
		zap.Int("rounds", round),
		zap.Int("messages", summary.MessageCount),
		zap.Int("failures", summary.Failures),
		zap.Duration("duration", summary.Duration))

	em.emit(Event{Type: EventTerminated, Round: round, Reason: verdict.Reason, Detail: verdict.Detail, Message: &notice})
	em.emit(Event{Type: EventDiscussionCompleted, Round: round, Reason: verdict.Reason, Detail: verdict.Detail, Summary: summary})
}

func (d *Discussion) finishCancelled(em *emitter) {
	cause := context.Cause(d.ctx)
	if err := d.transition(StateCancelled); err != nil {
		d.logger.Error("cancel transition rejected", zap.Error(err))
	}
	d.mu.Lock()
	d.endedAt = d.orch.now()
	round, duration := d.round, d.endedAt.Sub(d.startedAt)
	d.mu.Unlock()

	d.orch.recorder.DiscussionFinished(string(StateCancelled), "", round, duration)
	d.logger.Info("discussion cancelled", zap.Int("round", round), zap.NamedError("cause", cause))

	err := types.NewError(types.ErrDiscussionCancel, "discussion cancelled").WithCause(cause)
	em.emit(Event{Type: EventDiscussionCancelled, Round: round, Detail: causeText(cause), Err: err})
}

func (d *Discussion) finishFailed(em *emitter, span trace.Span, cause error) {
	if err := d.transition(StateFailed); err != nil {
		d.logger.Error("fail transition rejected", zap.Error(err))
	}
	failure := types.NewError(types.ErrDiscussionFailed, "discussion failed").WithCause(cause).WithHTTPStatus(500)

	d.mu.Lock()
	d.err = failure
	d.endedAt = d.orch.now()
	round, duration := d.round, d.endedAt.Sub(d.startedAt)
	d.mu.Unlock()

	span.RecordError(cause)
	span.SetStatus(codes.Error, cause.Error())
	d.orch.recorder.DiscussionFinished(string(StateFailed), "", round, duration)

	fields := []zap.Field{zap.Int("round", round), zap.Error(cause)}
	var fault *faultError
	if errors.As(cause, &fault) {
		fields = append(fields, zap.ByteString("stack", fault.stack))
	}
	d.logger.Error("discussion failed", fields...)

	em.emit(Event{Type: EventDiscussionFailed, Round: round, Error: cause.Error(), Err: failure})
}

func causeText(cause error) string {
	switch {
	case cause == nil, errors.Is(cause, ErrCancelled):
		return "cancelled by request"
	case errors.Is(cause, errDetached):
		return "event consumer stopped"
	case errors.Is(cause, context.DeadlineExceeded):
		return "deadline exceeded"
	default:
		return cause.Error()
	}
}
