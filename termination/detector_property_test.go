package termination

import (
	"fmt"
	"testing"

	"github.com/BaSui01/submind/transcript"
	"pgregory.net/rapid"
)

// Without any smart signal the detector stops exactly at the round cap.
func TestProperty_MaxRoundsBound(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxRounds := rapid.IntRange(1, 8).Draw(rt, "maxRounds")
		personas := rapid.IntRange(2, 5).Draw(rt, "personas")
		cfg := DefaultConfig()
		cfg.MaxRounds = maxRounds

		tr := transcript.New("seed")
		_, _ = tr.Append(transcript.Message{Speaker: transcript.SpeakerUser, Content: "seed"})
		var active []string
		for p := 0; p < personas; p++ {
			active = append(active, fmt.Sprintf("P%d", p))
		}

		d := NewDetector()
		for r := 1; r <= maxRounds+2; r++ {
			for _, id := range active {
				text := fmt.Sprintf("%s%d unique%s%d words%s%d", id, r, id, r, id, r)
				_, _ = tr.Append(transcript.Message{Speaker: id, Content: text, Round: r})
			}
			v := d.Evaluate(tr.View(), State{Round: r, Active: active}, cfg)
			if r < maxRounds && v.Stop {
				rt.Fatalf("stopped early at round %d: %s", r, v)
			}
			if r >= maxRounds {
				if v.Reason != ReasonMaxRoundsReached {
					rt.Fatalf("round %d: want max rounds, got %s", r, v)
				}
				return
			}
		}
	})
}

// Identical contributions across the round always reach consensus unless a
// marker fires first.
func TestProperty_IdenticalRoundIsConsensus(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.StringMatching(`[a-z]{2,8}( [a-z]{2,8}){1,6}`).Draw(rt, "text")
		personas := rapid.IntRange(2, 5).Draw(rt, "personas")
		threshold := rapid.Float64Range(0.01, 1).Draw(rt, "threshold")

		cfg := DefaultConfig()
		cfg.MaxRounds = 10
		cfg.ConsensusThreshold = threshold

		tr := transcript.New("seed")
		_, _ = tr.Append(transcript.Message{Speaker: transcript.SpeakerUser, Content: "seed"})
		var active []string
		for p := 0; p < personas; p++ {
			id := fmt.Sprintf("P%d", p)
			active = append(active, id)
			_, _ = tr.Append(transcript.Message{Speaker: id, Content: text, Round: 1})
		}

		v := NewDetector().Evaluate(tr.View(), State{Round: 1, Active: active}, cfg)
		if !v.Stop || (v.Reason != ReasonConsensusDetected && v.Reason != ReasonExplicitSignal) {
			rt.Fatalf("want consensus for %q, got %s", text, v)
		}
	})
}
