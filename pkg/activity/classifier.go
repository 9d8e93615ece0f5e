// Package activity decides, per frame, whether the observed people are
// performing an abnormal activity (falling, fighting, running, loitering).
//
// No single frame ever triggers an alert: every rule and model signal is a
// per-frame candidate, and only temporal voting across a sliding window can
// confirm one. Confirmed activities are further gated by a global confidence
// floor, per-type cooldowns, and fixed-priority arbitration, so downstream
// consumers see exactly one calm, de-duplicated verdict per frame.
package activity

import (
	"time"

	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/sentinel/pkg/pose"
	"github.com/cyclopcam/sentinel/pkg/track"
)

// Config is the complete engine configuration. All fields are independently
// overridable; DefaultConfig() is the reference out-of-the-box behavior.
type Config struct {
	Rules    Rules
	Tracker  track.Config
	Sequence SequenceConfig
	Verbose  bool // Log every candidate signal, not just confirmations
}

func DefaultConfig() Config {
	return Config{
		Rules:    DefaultRules(),
		Tracker:  track.DefaultConfig(),
		Sequence: DefaultSequenceConfig(),
	}
}

// voteRing is a fixed-window ring of per-frame booleans. Old votes age out
// naturally as the ring evicts them; no explicit clearing is needed.
type voteRing struct {
	ring   ringbuffer.RingP[bool]
	window int
}

func newVoteRing(window int) *voteRing {
	// RingP holds capacity-1 elements, so size it one past the window to
	// retain all window votes (and to keep window=1 legal).
	return &voteRing{
		ring:   ringbuffer.NewRingP[bool](nextPowerOf2(window + 1)),
		window: window,
	}
}

func (v *voteRing) add(present bool) {
	v.ring.Add(present)
}

// count returns the number of true votes within the window.
func (v *voteRing) count() int {
	n := 0
	start := max(0, v.ring.Len()-v.window)
	for i := start; i < v.ring.Len(); i++ {
		if v.ring.Peek(i) {
			n++
		}
	}
	return n
}

// Classifier is the per-stream fusion arbiter. It owns the person tracker,
// the voting buffers, the cooldown map, and the optional sequence classifier.
//
// One Classifier serves exactly one camera/stream, with frames delivered in
// timestamp order. Independent streams must each own their own Classifier;
// instances share no mutable state, so no locking is needed across them.
type Classifier struct {
	log     logs.Log
	rules   Rules
	verbose bool

	tracker *track.Tracker
	seq     *SequenceClassifier // nil means rules-only mode

	fallingVotes  map[int64]*voteRing // track ID -> votes
	runningVotes  map[int64]*voteRing // track ID -> votes
	fightingVotes *voteRing           // fighting is pairwise, so a single global ring

	cooldowns map[Type]time.Time // activity type -> last confirmation
}

// NewClassifier builds the engine for one stream. model may be nil, in which
// case the engine runs on rule-based signals alone (degraded recall, same
// guarantees). Invalid configuration is rejected here, never mid-stream.
func NewClassifier(logger logs.Log, cfg Config, model SequenceModel) (*Classifier, error) {
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}
	tracker, err := track.NewTracker(cfg.Tracker)
	if err != nil {
		return nil, err
	}
	var seq *SequenceClassifier
	if model != nil {
		seq, err = NewSequenceClassifier(cfg.Sequence, model)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warnf("Activity classifier running without a sequence model (rules only)")
	}
	return &Classifier{
		log:           logger,
		rules:         cfg.Rules,
		verbose:       cfg.Verbose,
		tracker:       tracker,
		seq:           seq,
		fallingVotes:  map[int64]*voteRing{},
		runningVotes:  map[int64]*voteRing{},
		fightingVotes: newVoteRing(cfg.Rules.FightingWindow),
		cooldowns:     map[Type]time.Time{},
	}, nil
}

// Tracker exposes the stream's person tracker (for diagnostics).
func (c *Classifier) Tracker() *track.Tracker {
	return c.tracker
}

// Classify consumes one frame's detected poses and returns the frame's
// verdict. Exactly one Result is returned per call.
//
// Frames must arrive in timestamp order; out-of-order frames would corrupt
// velocity and voting semantics.
func (c *Classifier) Classify(people []*pose.Person, now time.Time) Result {
	if len(people) == 0 {
		return makeResult(Normal, 0, "")
	}

	detections := make([]track.Detection, len(people))
	for i, p := range people {
		detections[i] = track.Detection{
			Centroid: p.Centroid(),
			Box:      p.Box,
		}
	}
	trackIDs := c.tracker.Update(detections, now)
	c.purgeDeadVotes()

	// Per-type best candidate. Each type contributes at most one candidate
	// per frame, so arbitration never has to break ties within a type.
	var confirmed [len(typeInfoTable)]*candidate
	accept := func(cand *candidate) {
		if prev := confirmed[cand.activity]; prev == nil || cand.confidence > prev.confidence {
			confirmed[cand.activity] = cand
		}
	}

	// Sequence model on the primary subject (first detection)
	if c.seq != nil {
		if cand := c.seq.Observe(people[0]); cand != nil {
			accept(cand)
		}
	}

	// Falling: per-person vote
	for i, person := range people {
		tid := trackIDs[i]
		cand := checkFalling(person, &c.rules)
		votes := c.votesFor(c.fallingVotes, tid, c.rules.FallingWindow)
		votes.add(cand != nil)
		if c.verbose && cand != nil {
			c.log.Infof("Track %v falling candidate (%.2f): %v", tid, cand.confidence, cand.description)
		}
		if votes.count() >= c.rules.FallingPersistence {
			if cand == nil {
				cand = &candidate{activity: Falling, confidence: 0.55, description: "Person appears to have fallen"}
			}
			accept(cand)
		}
	}

	// Fighting: one global vote per frame, pushed only when a pair exists
	if len(people) >= 2 {
		cand := checkFighting(people, &c.rules)
		c.fightingVotes.add(cand != nil)
		if c.verbose && cand != nil {
			c.log.Infof("Fighting candidate (%.2f): %v", cand.confidence, cand.description)
		}
		if c.fightingVotes.count() >= c.rules.FightingMinFrames {
			if cand == nil {
				cand = &candidate{activity: Fighting, confidence: 0.7, description: "Physical altercation detected"}
			}
			accept(cand)
		}
	}

	// Running: per-track vote
	for i, person := range people {
		tid := trackIDs[i]
		cand := checkRunning(c.tracker, tid, person, &c.rules)
		votes := c.votesFor(c.runningVotes, tid, c.rules.RunningWindow)
		votes.add(cand != nil)
		if votes.count() >= c.rules.RunningMinFrames {
			if cand == nil {
				cand = &candidate{activity: Running, confidence: 0.6, description: "Person running detected"}
			}
			accept(cand)
		}
	}

	// Loitering: duration-based, no voting buffer
	for _, tid := range trackIDs {
		if cand := checkLoitering(c.tracker, tid, &c.rules); cand != nil {
			accept(cand)
		}
	}

	// Arbitration: confidence floor, cooldown, then highest priority wins
	var winner *candidate
	for _, cand := range confirmed {
		if cand == nil || cand.confidence < c.rules.GlobalConfidenceFloor {
			continue
		}
		if c.onCooldown(cand.activity, now) {
			continue
		}
		if winner == nil || cand.activity.Priority() > winner.activity.Priority() {
			winner = cand
		}
	}
	if winner == nil {
		return makeResult(Normal, 0, "")
	}

	c.cooldowns[winner.activity] = now
	c.log.Infof("Activity confirmed: %v (confidence %.2f) %v", winner.activity, winner.confidence, winner.description)
	return makeResult(winner.activity, winner.confidence, winner.description)
}

func (c *Classifier) votesFor(m map[int64]*voteRing, trackID int64, window int) *voteRing {
	v := m[trackID]
	if v == nil {
		v = newVoteRing(window)
		m[trackID] = v
	}
	return v
}

func (c *Classifier) onCooldown(t Type, now time.Time) bool {
	last, ok := c.cooldowns[t]
	return ok && now.Sub(last) < c.rules.ActivityCooldown
}

// purgeDeadVotes drops voting buffers whose track the tracker has evicted,
// bounding memory under continuous operation.
func (c *Classifier) purgeDeadVotes() {
	if len(c.fallingVotes) == 0 && len(c.runningVotes) == 0 {
		return
	}
	active := map[int64]bool{}
	for _, id := range c.tracker.ActiveIDs() {
		active[id] = true
	}
	for id := range c.fallingVotes {
		if !active[id] {
			delete(c.fallingVotes, id)
		}
	}
	for id := range c.runningVotes {
		if !active[id] {
			delete(c.runningVotes, id)
		}
	}
}

// Stats is a diagnostic snapshot of the classifier's internal state.
type Stats struct {
	ActiveTracks  int            `json:"activeTracks"`
	FallingTracks int            `json:"fallingTracks"`
	RunningTracks int            `json:"runningTracks"`
	Cooldowns     map[string]int `json:"cooldowns"` // activity -> seconds since last confirmation
}

// GetStats reports tracker and voting buffer sizes, for debug endpoints.
func (c *Classifier) GetStats(now time.Time) Stats {
	cooldowns := map[string]int{}
	for t, last := range c.cooldowns {
		cooldowns[t.String()] = int(now.Sub(last).Seconds())
	}
	return Stats{
		ActiveTracks:  c.tracker.NumTracks(),
		FallingTracks: len(c.fallingVotes),
		RunningTracks: len(c.runningVotes),
		Cooldowns:     cooldowns,
	}
}

// ValidateConfig checks the full engine configuration without constructing
// an engine.
func ValidateConfig(cfg Config) error {
	if err := cfg.Rules.Validate(); err != nil {
		return err
	}
	if err := cfg.Tracker.Validate(); err != nil {
		return err
	}
	if err := cfg.Sequence.Validate(); err != nil {
		return err
	}
	return nil
}
