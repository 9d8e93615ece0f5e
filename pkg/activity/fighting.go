package activity

import (
	"fmt"

	"github.com/cyclopcam/sentinel/pkg/pose"
)

// checkFighting flags a physical altercation between any pair of people.
//
// Evidence, strongest first:
// - Heavy bounding box overlap (bodies intertwined) is sufficient on its own
// - Moderate overlap needs a wrist within striking distance of the other's torso
// - Without box data, very close hips plus wrist contact is a weak fallback
// The first qualifying pair wins; pairs are visited in detection order so the
// result is deterministic.
func checkFighting(people []*pose.Person, rules *Rules) *candidate {
	if len(people) < 2 {
		return nil
	}

	for i := 0; i < len(people); i++ {
		for j := i + 1; j < len(people); j++ {
			a, b := people[i], people[j]

			hipA := a.Midpoint(pose.KeypointLeftHip, pose.KeypointRightHip)
			hipB := b.Midpoint(pose.KeypointLeftHip, pose.KeypointRightHip)
			dist := hipA.Distance(hipB)
			if dist > rules.FightingProximity {
				continue
			}

			strikeContact := wristNearTorso(a, b, rules) || wristNearTorso(b, a, rules)

			if a.Box != nil && b.Box != nil {
				overlap := a.Box.IOU(*b.Box)
				if overlap > 0.4 {
					conf := 0.6 + overlap*0.3
					if strikeContact {
						conf += 0.15
					}
					return &candidate{
						activity:    Fighting,
						confidence:  min(0.90, conf),
						description: fmt.Sprintf("Physical altercation detected (distance: %.0fpx, overlap: %.0f%%)", dist, overlap*100),
					}
				}
				if overlap > 0.2 && strikeContact {
					return &candidate{
						activity:    Fighting,
						confidence:  min(0.85, 0.55+overlap),
						description: fmt.Sprintf("Physical altercation detected (distance: %.0fpx, strike contact)", dist),
					}
				}
			}

			if dist < rules.FightingProximity*0.3 && strikeContact {
				return &candidate{
					activity:    Fighting,
					confidence:  0.60,
					description: fmt.Sprintf("Potential altercation (very close: %.0fpx)", dist),
				}
			}
		}
	}

	return nil
}

// wristNearTorso returns true if either of attacker's wrists is within
// striking distance of target's torso midpoint.
func wristNearTorso(attacker, target *pose.Person, rules *Rules) bool {
	torso := target.Midpoint(pose.KeypointLeftShoulder, pose.KeypointRightShoulder)
	strikingDistance := rules.FightingProximity * 0.8
	for _, wrist := range []int{pose.KeypointLeftWrist, pose.KeypointRightWrist} {
		if attacker.Keypoints[wrist].Confidence > rules.MinKeypointConfidence {
			if attacker.Keypoint(wrist).Distance(torso) < strikingDistance {
				return true
			}
		}
	}
	return false
}
