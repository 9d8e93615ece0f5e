package activity

import (
	"fmt"
	"time"
)

// Rules are the tunable thresholds for the rule-based detectors and the
// fusion arbiter.
//
// The reference defaults are tuned for a fixed indoor camera at roughly
// 15 fps. Pixel distances and velocities scale with camera resolution and
// field of view, so expect to adjust those per installation.
type Rules struct {
	// Falling
	FallingAngle         float32 // Torso tilt from vertical (degrees) considered fallen
	FallingMinConfidence float32 // Reject falling candidates below this confidence
	FallingHipOffset     float32 // Hip this many pixels below the knees triggers the secondary check
	FallingHipAngleReq   float32 // Torso tilt (degrees) required for the secondary hip check
	FallingAspectRatio   float32 // Box width/height above this means a horizontal body
	FallingPersistence   int     // Frames out of FallingWindow required to confirm
	FallingWindow        int

	// Fighting
	FightingProximity float32 // Hip-to-hip distance (pixels) close enough to fight
	FightingMinFrames int     // Frames out of FightingWindow required to confirm
	FightingWindow    int

	// Running
	RunningVelocity      float32 // Speed threshold in pixels/second
	RunningMinFrames     int     // Frames out of RunningWindow required to confirm
	RunningWindow        int
	RunningVelocityShots int     // Track samples used for the velocity estimate
	RunningKneeWalkMax   float32 // Knee angle (degrees) below this is the walking range, which halves confidence

	// Loitering
	LoiterDuration   time.Duration // Time in the same area before loitering
	LoiterRadius     float32       // Pixel radius considered "the same place"
	LoiterMinSamples int           // Minimum track samples before loitering applies

	// Global
	ActivityCooldown      time.Duration // Suppress repeats of the same activity type for this long
	GlobalConfidenceFloor float32       // Confirmed candidates below this confidence are dropped
	MinKeypointConfidence float32       // Keypoints below this confidence are treated as missing
}

// DefaultRules returns the reference thresholds.
func DefaultRules() Rules {
	return Rules{
		FallingAngle:         75,
		FallingMinConfidence: 0.50,
		FallingHipOffset:     120,
		FallingHipAngleReq:   60,
		FallingAspectRatio:   1.3,
		FallingPersistence:   4,
		FallingWindow:        8,

		FightingProximity: 80,
		FightingMinFrames: 3,
		FightingWindow:    8,

		RunningVelocity:      2200,
		RunningMinFrames:     6,
		RunningWindow:        10,
		RunningVelocityShots: 5,
		RunningKneeWalkMax:   150,

		LoiterDuration:   60 * time.Second,
		LoiterRadius:     50,
		LoiterMinSamples: 10,

		ActivityCooldown:      5 * time.Second,
		GlobalConfidenceFloor: 0.45,
		MinKeypointConfidence: 0.3,
	}
}

// Validate rejects nonsensical configurations eagerly, so that a corrupted
// config fails at construction instead of mid-stream.
func (r *Rules) Validate() error {
	type bound struct {
		name  string
		value float32
	}
	positive := []bound{
		{"FallingAngle", r.FallingAngle},
		{"FallingMinConfidence", r.FallingMinConfidence},
		{"FallingHipOffset", r.FallingHipOffset},
		{"FallingHipAngleReq", r.FallingHipAngleReq},
		{"FallingAspectRatio", r.FallingAspectRatio},
		{"FightingProximity", r.FightingProximity},
		{"RunningVelocity", r.RunningVelocity},
		{"RunningKneeWalkMax", r.RunningKneeWalkMax},
		{"LoiterRadius", r.LoiterRadius},
	}
	for _, b := range positive {
		if b.value <= 0 {
			return fmt.Errorf("rules: %v must be positive (have %v)", b.name, b.value)
		}
	}
	windows := []struct {
		name        string
		persistence int
		window      int
	}{
		{"falling", r.FallingPersistence, r.FallingWindow},
		{"fighting", r.FightingMinFrames, r.FightingWindow},
		{"running", r.RunningMinFrames, r.RunningWindow},
	}
	for _, w := range windows {
		if w.persistence < 1 || w.window < 1 {
			return fmt.Errorf("rules: %v persistence and window must be at least 1", w.name)
		}
		if w.persistence > w.window {
			return fmt.Errorf("rules: %v persistence %v exceeds its window %v", w.name, w.persistence, w.window)
		}
	}
	if r.RunningVelocityShots < 2 {
		return fmt.Errorf("rules: RunningVelocityShots must be at least 2 (have %v)", r.RunningVelocityShots)
	}
	if r.LoiterDuration <= 0 {
		return fmt.Errorf("rules: LoiterDuration must be positive (have %v)", r.LoiterDuration)
	}
	if r.LoiterMinSamples < 2 {
		return fmt.Errorf("rules: LoiterMinSamples must be at least 2 (have %v)", r.LoiterMinSamples)
	}
	if r.ActivityCooldown < 0 {
		return fmt.Errorf("rules: ActivityCooldown may not be negative (have %v)", r.ActivityCooldown)
	}
	if r.GlobalConfidenceFloor < 0 || r.GlobalConfidenceFloor > 1 {
		return fmt.Errorf("rules: GlobalConfidenceFloor must be in [0,1] (have %v)", r.GlobalConfidenceFloor)
	}
	if r.MinKeypointConfidence < 0 || r.MinKeypointConfidence > 1 {
		return fmt.Errorf("rules: MinKeypointConfidence must be in [0,1] (have %v)", r.MinKeypointConfidence)
	}
	return nil
}
