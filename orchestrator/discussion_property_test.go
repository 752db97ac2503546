package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/BaSui01/submind/orchestrator"
	"github.com/BaSui01/submind/testutil/fixtures"
	"github.com/BaSui01/submind/testutil/mocks"
	"pgregory.net/rapid"
)

// Whatever happens, the stream ends with exactly one final event, never
// exceeds the round cap and every responded event is in the transcript.
func TestProperty_SingleFinalEvent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 4).Draw(rt, "personas")
		maxRounds := rapid.IntRange(1, 4).Draw(rt, "maxRounds")
		cancelAt := rapid.IntRange(-1, 30).Draw(rt, "cancelAt")

		gw := mocks.NewScriptedGateway()
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("P%d", i)
			if rapid.Bool().Draw(rt, "fails"+ids[i]) {
				gw.FailOn(ids[i], rapid.IntRange(1, maxRounds).Draw(rt, "failCall"+ids[i]), errors.New("upstream unavailable"))
			}
		}

		cfg := orchestrator.DefaultConfig()
		cfg.MaxRounds = maxRounds
		cfg.ConcurrentOpening = rapid.Bool().Draw(rt, "concurrentOpening")

		d, err := orchestrator.New(gw).Start(context.Background(), "seed", fixtures.Personas(ids...), cfg)
		if err != nil {
			rt.Fatalf("start: %v", err)
		}

		var events []orchestrator.Event
		for ev := range d.Events() {
			if len(events) == cancelAt {
				d.Cancel()
			}
			events = append(events, ev)
		}

		finals, rounds, responded := 0, 0, 0
		for i, ev := range events {
			switch {
			case ev.Type.Final():
				finals++
				if i != len(events)-1 {
					rt.Fatalf("final event %s at %d of %d", ev.Type, i, len(events))
				}
			case ev.Type == orchestrator.EventRoundStarted:
				rounds++
			case ev.Type == orchestrator.EventPersonaResponded:
				responded++
			}
		}
		if finals != 1 {
			rt.Fatalf("want one final event, got %d", finals)
		}
		if rounds > maxRounds {
			rt.Fatalf("%d rounds started, cap %d", rounds, maxRounds)
		}
		if !d.State().Terminal() {
			rt.Fatalf("state %s is not terminal", d.State())
		}

		persona := 0
		msgs := d.Transcript().Messages()
		for i, m := range msgs {
			if m.IsPersona() {
				persona++
			}
			if i > 0 && m.Seq <= msgs[i-1].Seq {
				rt.Fatalf("sequence not increasing at %d", i)
			}
		}
		if persona != responded {
			rt.Fatalf("%d persona messages, %d responded events", persona, responded)
		}
	})
}
