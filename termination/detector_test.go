package termination

import (
	"testing"

	"github.com/BaSui01/submind/transcript"
	"github.com/BaSui01/submind/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// round is one round of persona contributions, speaker -> content.
type round [][2]string

func buildView(t *testing.T, prompt string, rounds ...round) transcript.View {
	t.Helper()
	tr := transcript.New(prompt)
	_, err := tr.Append(transcript.Message{Speaker: transcript.SpeakerUser, Content: prompt})
	require.NoError(t, err)
	for i, r := range rounds {
		for _, entry := range r {
			_, err := tr.Append(transcript.Message{Speaker: entry[0], Content: entry[1], Round: i + 1})
			require.NoError(t, err)
		}
	}
	return tr.View()
}

func state(r int, active ...string) State {
	return State{Round: r, Active: active}
}

func TestEvaluate_MaxRounds(t *testing.T) {
	d := NewDetector()
	cfg := DefaultConfig()
	cfg.MaxRounds = 2

	view := buildView(t, "q",
		round{{"A", "alpha one"}, {"B", "beta two"}},
		round{{"A", "gamma three"}, {"B", "delta four"}},
	)
	assert.False(t, d.Evaluate(view, state(1, "A", "B"), cfg).Stop)

	v := d.Evaluate(view, state(2, "A", "B"), cfg)
	assert.True(t, v.Stop)
	assert.Equal(t, ReasonMaxRoundsReached, v.Reason)
	assert.Equal(t, "maximum rounds reached (2/2)", v.Detail)
}

func TestEvaluate_MaxRoundsBeatsSparseRound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRounds = 1
	view := buildView(t, "q", round{{"A", "only one voice"}})

	v := NewDetector().Evaluate(view, state(1, "A", "B"), cfg)
	assert.Equal(t, ReasonMaxRoundsReached, v.Reason)
}

func TestEvaluate_ExplicitSignal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRounds = 5
	view := buildView(t, "q", round{
		{"A", "I agree, nothing to add."},
		{"B", "I agree, nothing to add."},
		{"C", "I agree, nothing to add."},
	})

	v := NewDetector().Evaluate(view, state(1, "A", "B", "C"), cfg)
	require.True(t, v.Stop)
	assert.Equal(t, ReasonExplicitSignal, v.Reason, "marker wins over consensus")
	assert.Equal(t, "A", v.Speaker)
}

func TestEvaluate_SingleMarkerCounts(t *testing.T) {
	cfg := DefaultConfig()
	view := buildView(t, "q", round{
		{"A", "Markets will adapt over a decade."},
		{"B", "I have NOTHING FURTHER TO ADD!"},
	})

	v := NewDetector().Evaluate(view, state(1, "A", "B"), cfg)
	assert.Equal(t, ReasonExplicitSignal, v.Reason)
	assert.Equal(t, "B", v.Speaker)
}

func TestEvaluate_CustomMarkers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Markers = []string{"we are done"}
	view := buildView(t, "q", round{
		{"A", "nothing to add"},
		{"B", "I think we are done here"},
	})

	v := NewDetector().Evaluate(view, state(1, "A", "B"), cfg)
	assert.Equal(t, ReasonExplicitSignal, v.Reason)
	assert.Equal(t, "B", v.Speaker)
}

func TestEvaluate_Consensus(t *testing.T) {
	cfg := DefaultConfig()
	view := buildView(t, "q", round{
		{"A", "Renewable energy is the clear path forward."},
		{"B", "renewable energy is the clear path forward"},
		{"C", "Renewable energy is clearly the path forward."},
	})

	v := NewDetector().Evaluate(view, state(1, "A", "B", "C"), cfg)
	require.True(t, v.Stop)
	assert.Equal(t, ReasonConsensusDetected, v.Reason)
	assert.GreaterOrEqual(t, v.Score, 0.7)
}

func TestEvaluate_Repetition(t *testing.T) {
	cfg := DefaultConfig()
	view := buildView(t, "q",
		round{{"A", "Taxes should fall on land, not labour."}, {"B", "Consider the transition costs first."}},
		round{{"A", "Taxes should fall on land, not labour."}, {"B", "Pilot programmes in two regions would help."}},
	)

	v := NewDetector().Evaluate(view, state(2, "A", "B"), cfg)
	require.True(t, v.Stop)
	assert.Equal(t, ReasonRepetitionDetected, v.Reason)
	assert.Equal(t, "A", v.Speaker)
	assert.InDelta(t, 1.0, v.Score, 1e-9)
}

func TestEvaluate_Continue(t *testing.T) {
	cfg := DefaultConfig()
	view := buildView(t, "q",
		round{{"A", "Cities need denser housing."}, {"B", "Transit investment must come first."}},
		round{{"A", "Zoning reform unlocks supply quickly."}, {"B", "Bus lanes are cheap and fast to build."}},
	)

	assert.Equal(t, Continue(), NewDetector().Evaluate(view, state(2, "A", "B"), cfg))
}

func TestEvaluate_FewerThanTwoMessages(t *testing.T) {
	cfg := DefaultConfig()
	view := buildView(t, "q", round{{"A", "nothing to add"}})

	assert.False(t, NewDetector().Evaluate(view, state(1, "A", "B"), cfg).Stop)
}

func TestEvaluate_EmptyContentExcluded(t *testing.T) {
	cfg := DefaultConfig()
	view := buildView(t, "q", round{
		{"A", "..."},
		{"B", "!!!"},
		{"C", "A fresh idea about orbital mechanics."},
	})

	assert.False(t, NewDetector().Evaluate(view, state(1, "A", "B", "C"), cfg).Stop)
}

func TestEvaluate_SystemMessagesIgnored(t *testing.T) {
	cfg := DefaultConfig()
	tr := transcript.New("q")
	for _, m := range []transcript.Message{
		{Speaker: transcript.SpeakerUser, Content: "q"},
		{Speaker: "A", Content: "Oceans regulate climate.", Round: 1},
		{Speaker: transcript.SpeakerSystem, Content: "nothing to add", Round: 1},
		{Speaker: "B", Content: "Forests store carbon.", Round: 1},
	} {
		_, err := tr.Append(m)
		require.NoError(t, err)
	}

	assert.False(t, NewDetector().Evaluate(tr.View(), state(1, "A", "B"), cfg).Stop)
}

func TestEvaluate_InactiveSpeakersIgnored(t *testing.T) {
	cfg := DefaultConfig()
	view := buildView(t, "q", round{
		{"A", "Oceans regulate climate."},
		{"Ghost", "nothing to add"},
		{"B", "Forests store carbon."},
	})

	assert.False(t, NewDetector().Evaluate(view, state(1, "A", "B"), cfg).Stop)
}

func TestEvaluate_SmartDetectionDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmartDetection = false
	view := buildView(t, "q", round{{"A", "nothing to add"}, {"B", "nothing to add"}})

	assert.False(t, NewDetector().Evaluate(view, state(1, "A", "B"), cfg).Stop)
}

func TestEvaluate_MinResponsesGate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinResponsesPerPersona = 2
	first := round{{"A", "nothing to add"}, {"B", "nothing to add"}}

	d := NewDetector()
	assert.False(t, d.Evaluate(buildView(t, "q", first), state(1, "A", "B"), cfg).Stop)

	both := buildView(t, "q", first, round{{"A", "nothing to add"}, {"B", "nothing to add"}})
	assert.Equal(t, ReasonExplicitSignal, d.Evaluate(both, state(2, "A", "B"), cfg).Reason)
}

func TestEvaluate_MinResponsesGateIgnoresSilentPersona(t *testing.T) {
	cfg := DefaultConfig()
	view := buildView(t, "q", round{{"A", "nothing to add"}, {"B", "nothing to add"}})

	v := NewDetector().Evaluate(view, state(1, "A", "B", "C"), cfg)
	assert.Equal(t, ReasonExplicitSignal, v.Reason)

	cfg.MinResponsesPerPersona = 2
	assert.False(t, NewDetector().Evaluate(view, state(1, "A", "B", "C"), cfg).Stop)
}

func TestEvaluate_CosineSimilarity(t *testing.T) {
	cfg := DefaultConfig()
	view := buildView(t, "q", round{
		{"A", "the plan is sound and we should proceed"},
		{"B", "The plan is sound, and we should proceed."},
	})

	v := NewDetector(WithSimilarity(Cosine)).Evaluate(view, state(1, "A", "B"), cfg)
	assert.Equal(t, ReasonConsensusDetected, v.Reason)
}

func TestDetectorFunc(t *testing.T) {
	var d Detector = DetectorFunc(func(transcript.View, State, Config) Verdict {
		return Stop(ReasonExplicitSignal, "forced")
	})
	assert.Equal(t, "stop(explicit_signal): forced", d.Evaluate(transcript.View{}, State{}, Config{}).String())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := []Config{
		{MaxRounds: 0, ConsensusThreshold: 0.7},
		{MaxRounds: -1, ConsensusThreshold: 0.7},
		{MaxRounds: 3, ConsensusThreshold: 0},
		{MaxRounds: 3, ConsensusThreshold: 1.2},
		{MaxRounds: 3, ConsensusThreshold: 0.5, MinResponsesPerPersona: -1},
	}
	for _, cfg := range bad {
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
	}
}

func TestProgress(t *testing.T) {
	assert.Equal(t, "Round 1/3 (2 remaining)", Progress(1, 3))
	assert.Equal(t, "Round 3/3 (0 remaining)", Progress(3, 3))
	assert.Equal(t, "Round 4/3 (0 remaining)", Progress(4, 3))
}

func TestFindMarker(t *testing.T) {
	m, ok := FindMarker("Honestly, I have nothing more to add.", nil)
	assert.True(t, ok)
	assert.Equal(t, "nothing more to add", m)

	_, ok = FindMarker("There is nothing toadd", nil)
	assert.False(t, ok)
}
