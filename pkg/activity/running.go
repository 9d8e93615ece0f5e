package activity

import (
	"fmt"

	"github.com/cyclopcam/sentinel/pkg/pose"
	"github.com/cyclopcam/sentinel/pkg/track"
)

// checkRunning flags sustained high velocity on a track.
//
// The knee angle acts as a biomechanical veto: running extends the knee well
// past 150°, while fast walking stays below it, so a walking-range knee
// halves the confidence. This cuts false positives from brisk walking and
// camera shake.
func checkRunning(tracker *track.Tracker, trackID int64, person *pose.Person, rules *Rules) *candidate {
	velocity, ok := tracker.Velocity(trackID, rules.RunningVelocityShots)
	if !ok || velocity <= rules.RunningVelocity {
		return nil
	}

	conf := min(0.85, velocity/(rules.RunningVelocity*2))

	if person != nil {
		maxKnee := float32(0)
		legs := [][3]int{
			{pose.KeypointLeftHip, pose.KeypointLeftKnee, pose.KeypointLeftAnkle},
			{pose.KeypointRightHip, pose.KeypointRightKnee, pose.KeypointRightAnkle},
		}
		for _, leg := range legs {
			if person.HaveKeypoints(rules.MinKeypointConfidence, leg[0], leg[1], leg[2]) {
				angle := pose.AngleAtVertex(person.Keypoint(leg[0]), person.Keypoint(leg[1]), person.Keypoint(leg[2]))
				maxKnee = max(maxKnee, angle)
			}
		}
		if maxKnee > 0 && maxKnee < rules.RunningKneeWalkMax {
			conf *= 0.5
		}
	}

	return &candidate{
		activity:    Running,
		confidence:  conf,
		description: fmt.Sprintf("Person running detected (speed: %.0f px/s)", velocity),
	}
}
