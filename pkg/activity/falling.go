package activity

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/cyclopcam/sentinel/pkg/pose"
)

// checkFalling flags an extremely horizontal body position.
//
// Guards against false positives:
// - Requires reliable keypoints on shoulders, hips and knees
// - Requires an extreme torso angle from vertical
// - Vetoes candidates whose box is taller than wide (sitting, crouching)
// The secondary hip-below-knees check catches partially visible bodies on
// the ground where the torso angle alone is ambiguous.
func checkFalling(person *pose.Person, rules *Rules) *candidate {
	if !person.HaveKeypoints(rules.MinKeypointConfidence,
		pose.KeypointLeftShoulder, pose.KeypointRightShoulder,
		pose.KeypointLeftHip, pose.KeypointRightHip,
		pose.KeypointLeftKnee, pose.KeypointRightKnee) {
		return nil
	}

	shoulderMid := person.Midpoint(pose.KeypointLeftShoulder, pose.KeypointRightShoulder)
	hipMid := person.Midpoint(pose.KeypointLeftHip, pose.KeypointRightHip)

	// Torso tilt from vertical: 0 is upright, 90 is horizontal
	dx := math32.Abs(hipMid.X - shoulderMid.X)
	dy := math32.Abs(hipMid.Y - shoulderMid.Y)
	angle := math32.Atan2(dx, dy+1e-6) * 180 / math32.Pi

	if angle > rules.FallingAngle {
		conf := min(0.90, (angle-rules.FallingAngle)/(90-rules.FallingAngle))
		if conf < rules.FallingMinConfidence {
			return nil
		}
		if bodyIsUpright(person.Box, rules) {
			return nil
		}
		return &candidate{
			activity:    Falling,
			confidence:  conf,
			description: fmt.Sprintf("Person appears to have fallen (body angle: %.0f°)", angle),
		}
	}

	if angle > rules.FallingHipAngleReq {
		kneeMid := person.Midpoint(pose.KeypointLeftKnee, pose.KeypointRightKnee)
		// Image Y grows downward, so hip below knees means hip Y > knee Y
		if hipMid.Y > kneeMid.Y+rules.FallingHipOffset {
			if bodyIsUpright(person.Box, rules) {
				return nil
			}
			return &candidate{
				activity:    Falling,
				confidence:  0.55,
				description: "Person on ground (hip below knees, body tilted)",
			}
		}
	}

	return nil
}

// bodyIsUpright is the aspect ratio veto: a box taller than wide means the
// person is more likely sitting or crouching than lying down.
func bodyIsUpright(box *pose.Box, rules *Rules) bool {
	return box != nil && box.AspectRatio() < rules.FallingAspectRatio
}
