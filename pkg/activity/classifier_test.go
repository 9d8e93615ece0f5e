package activity

import (
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/sentinel/pkg/pose"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestClassifier(t *testing.T, cfg Config, model SequenceModel) *Classifier {
	c, err := NewClassifier(logs.NewTestingLog(t), cfg, model)
	require.NoError(t, err)
	return c
}

func TestInvalidConfigRejected(t *testing.T) {
	logger := logs.NewTestingLog(t)

	cfg := DefaultConfig()
	cfg.Rules.FallingAngle = -10
	_, err := NewClassifier(logger, cfg, nil)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.Rules.FallingPersistence = 9 // exceeds its window of 8
	_, err = NewClassifier(logger, cfg, nil)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.Tracker.MaxDistance = 0
	_, err = NewClassifier(logger, cfg, nil)
	require.Error(t, err)
}

func TestEmptyFrameIsNormal(t *testing.T) {
	c := newTestClassifier(t, DefaultConfig(), nil)
	res := c.Classify(nil, baseTime)
	require.Equal(t, Normal, res.Type)
	require.False(t, res.IsAbnormal)
	require.Equal(t, float32(0), res.Confidence)
}

// A single falling-shaped frame must never produce a falling result, no
// matter how long the stream continues afterwards.
func TestNoSingleFrameAlert(t *testing.T) {
	c := newTestClassifier(t, DefaultConfig(), nil)
	now := baseTime

	res := c.Classify([]*pose.Person{fallenPerson(300, 400)}, now)
	require.Equal(t, Normal, res.Type)

	for i := 0; i < 100; i++ {
		now = now.Add(66 * time.Millisecond)
		res = c.Classify([]*pose.Person{standingPerson(300, 400)}, now)
		require.Equal(t, Normal, res.Type, "frame %v", i)
	}
}

// With persistence 3 over a window of 5, a continuously fallen person is
// normal on frames 1-2 and falling from frame 3.
func TestPersistenceExactness(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules.FallingPersistence = 3
	cfg.Rules.FallingWindow = 5
	c := newTestClassifier(t, cfg, nil)

	now := baseTime
	for frame := 1; frame <= 6; frame++ {
		res := c.Classify([]*pose.Person{fallenPerson(300, 400)}, now)
		if frame < 3 {
			require.Equal(t, Normal, res.Type, "frame %v", frame)
		} else if frame == 3 {
			require.Equal(t, Falling, res.Type, "frame %v", frame)
			require.Equal(t, SeverityHigh, res.Severity)
			require.True(t, res.IsAbnormal)
		}
		now = now.Add(66 * time.Millisecond)
	}
}

// A vote window equal to its persistence requirement must still be able to
// confirm: all window votes count, including when the window is a power of 2.
func TestVoteWindowHoldsFullWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules.FallingPersistence = 8
	cfg.Rules.FallingWindow = 8
	c := newTestClassifier(t, cfg, nil)

	now := baseTime
	for frame := 1; frame <= 8; frame++ {
		res := c.Classify([]*pose.Person{fallenPerson(300, 400)}, now)
		if frame < 8 {
			require.Equal(t, Normal, res.Type, "frame %v", frame)
		} else {
			require.Equal(t, Falling, res.Type)
		}
		now = now.Add(66 * time.Millisecond)
	}
}

// Single-frame windows are legal configuration: construction succeeds and
// the engine runs without blowing up on the degenerate ring size.
func TestWindowOfOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules.FallingPersistence = 1
	cfg.Rules.FallingWindow = 1
	cfg.Rules.FightingMinFrames = 1
	cfg.Rules.FightingWindow = 1
	cfg.Rules.RunningMinFrames = 1
	cfg.Rules.RunningWindow = 1
	c := newTestClassifier(t, cfg, nil)

	res := c.Classify([]*pose.Person{fallenPerson(300, 400)}, baseTime)
	require.Equal(t, Falling, res.Type)
}

// Sitting has a vertical torso and a tall box; it must never confirm falling
// regardless of how many frames accumulate.
func TestSittingIsNotFalling(t *testing.T) {
	c := newTestClassifier(t, DefaultConfig(), nil)
	now := baseTime
	for i := 0; i < 200; i++ {
		res := c.Classify([]*pose.Person{sittingPerson(300, 400)}, now)
		require.Equal(t, Normal, res.Type, "frame %v", i)
		now = now.Add(66 * time.Millisecond)
	}
}

// Continuously qualifying fighting poses confirm once, then stay suppressed
// until the cooldown expires.
func TestCooldownSuppression(t *testing.T) {
	cfg := DefaultConfig()
	c := newTestClassifier(t, cfg, nil)

	confirmations := []time.Time{}
	now := baseTime
	for i := 0; i < 182; i++ { // ~12 seconds at 15 fps
		res := c.Classify(fightingPair(), now)
		if res.Type != Normal {
			require.Equal(t, Fighting, res.Type)
			confirmations = append(confirmations, now)
		}
		now = now.Add(66 * time.Millisecond)
	}

	require.GreaterOrEqual(t, len(confirmations), 2, "the condition persists, so it must re-confirm after each cooldown")
	for i := 1; i < len(confirmations); i++ {
		gap := confirmations[i].Sub(confirmations[i-1])
		require.GreaterOrEqual(t, gap, cfg.Rules.ActivityCooldown, "confirmations %v and %v", i-1, i)
	}
}

// When fighting and falling confirm in the same frame, fighting wins on
// priority; the suppressed falling candidate may then surface on the next
// frame while fighting is cooling down.
func TestPriorityOrdering(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules.FallingPersistence = 4
	cfg.Rules.FightingMinFrames = 4
	c := newTestClassifier(t, cfg, nil)

	people := append([]*pose.Person{fallenPerson(500, 100)}, fightingPair()...)
	now := baseTime
	var frame4, frame5 Result
	for frame := 1; frame <= 5; frame++ {
		res := c.Classify(people, now)
		switch frame {
		case 1, 2, 3:
			require.Equal(t, Normal, res.Type, "frame %v", frame)
		case 4:
			frame4 = res
		case 5:
			frame5 = res
		}
		now = now.Add(66 * time.Millisecond)
	}
	require.Equal(t, Fighting, frame4.Type)
	require.Equal(t, Falling, frame5.Type)
}

// Sustained high velocity confirms running; the vote needs both a velocity
// estimate (5 samples) and the persistence count.
func TestRunningConfirmation(t *testing.T) {
	c := newTestClassifier(t, DefaultConfig(), nil)
	now := baseTime
	var confirmedAt int
	for frame := 1; frame <= 12; frame++ {
		x := 100 + float32(frame)*100 // 100px per 30ms frame = 3333 px/s
		res := c.Classify([]*pose.Person{standingPerson(x, 100)}, now)
		if res.Type != Normal {
			require.Equal(t, Running, res.Type)
			require.Equal(t, SeverityMedium, res.Severity)
			confirmedAt = frame
			break
		}
		now = now.Add(30 * time.Millisecond)
	}
	require.Equal(t, 10, confirmedAt, "4 frames without a velocity estimate, then 6 qualifying votes")
}

// A person staying in one spot confirms loitering once the duration
// threshold passes, and re-confirms after each cooldown.
func TestLoitering(t *testing.T) {
	c := newTestClassifier(t, DefaultConfig(), nil)
	now := baseTime
	results := []Type{}
	for i := 0; i <= 69; i++ {
		res := c.Classify([]*pose.Person{standingPerson(300, 400)}, now)
		results = append(results, res.Type)
		now = now.Add(time.Second)
	}
	for i := 0; i < 60; i++ {
		require.Equal(t, Normal, results[i], "frame %v", i)
	}
	require.Equal(t, Loitering, results[60])
	for i := 61; i < 65; i++ {
		require.Equal(t, Normal, results[i], "cooldown frame %v", i)
	}
	require.Equal(t, Loitering, results[65])
}

// The sequence model contributes candidates through the same arbitration as
// the rule detectors, and works with a single person in frame.
func TestSequenceModelDrivesClassifier(t *testing.T) {
	cfg := DefaultConfig()
	model := func([][SequenceFeatureLen]float32) (Type, float32) {
		return Fighting, 0.9
	}
	c := newTestClassifier(t, cfg, model)

	now := baseTime
	var confirmed int
	for frame := 1; frame <= 20; frame++ {
		res := c.Classify([]*pose.Person{standingPerson(300, 400)}, now)
		if res.Type != Normal {
			require.Equal(t, Fighting, res.Type)
			confirmed = frame
			break
		}
		now = now.Add(66 * time.Millisecond)
	}
	// MinFrames buffered frames for the first prediction, one more for the
	// second consecutive vote.
	require.Equal(t, cfg.Sequence.MinFrames+1, confirmed)
}

// Without a model the engine still runs, on rule-based signals alone.
func TestRulesOnlyMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules.FallingPersistence = 2
	cfg.Rules.FallingWindow = 4
	c := newTestClassifier(t, cfg, nil)

	now := baseTime
	c.Classify([]*pose.Person{fallenPerson(300, 400)}, now)
	now = now.Add(66 * time.Millisecond)
	res := c.Classify([]*pose.Person{fallenPerson(300, 400)}, now)
	require.Equal(t, Falling, res.Type)
}

// Voting buffers die with their track, so a long-gone person can't
// contribute stale votes, and memory stays bounded.
func TestVotePurgeOnTrackEviction(t *testing.T) {
	c := newTestClassifier(t, DefaultConfig(), nil)
	now := baseTime
	for i := 0; i < 3; i++ {
		c.Classify([]*pose.Person{fallenPerson(300, 400)}, now)
		now = now.Add(66 * time.Millisecond)
	}
	require.Equal(t, 1, len(c.fallingVotes))

	// Person disappears past the stale timeout, then a new person appears
	now = now.Add(10 * time.Second)
	c.Classify([]*pose.Person{standingPerson(300, 400)}, now)
	require.Equal(t, 1, len(c.fallingVotes))
	stats := c.GetStats(now)
	require.Equal(t, 1, stats.ActiveTracks)
}

func TestTypeMetadata(t *testing.T) {
	require.True(t, Fighting.Priority() > Falling.Priority())
	require.True(t, Falling.Priority() > Running.Priority())
	require.True(t, Running.Priority() > Loitering.Priority())
	require.False(t, Normal.IsAbnormal())
	require.Equal(t, SeverityHigh, Falling.Severity())
	require.Equal(t, "fighting", Fighting.String())

	parsed, err := ParseType("loitering")
	require.NoError(t, err)
	require.Equal(t, Loitering, parsed)
	_, err = ParseType("cartwheeling")
	require.Error(t, err)
}
