package activity

import (
	"github.com/cyclopcam/sentinel/pkg/pose"
)

// Synthetic pose builders. Coordinates are pixel space with Y growing
// downward; (cx, cy) is the hip center.

func setKeypoint(p *pose.Person, idx int, x, y float32) {
	p.Keypoints[idx] = pose.Keypoint{X: x, Y: y, Confidence: 0.9}
}

// standingPerson is an upright person: vertical torso, tall narrow box.
func standingPerson(cx, cy float32) *pose.Person {
	p := &pose.Person{}
	setKeypoint(p, pose.KeypointNose, cx, cy-90)
	setKeypoint(p, pose.KeypointLeftEye, cx-5, cy-95)
	setKeypoint(p, pose.KeypointRightEye, cx+5, cy-95)
	setKeypoint(p, pose.KeypointLeftEar, cx-10, cy-92)
	setKeypoint(p, pose.KeypointRightEar, cx+10, cy-92)
	setKeypoint(p, pose.KeypointLeftShoulder, cx-20, cy-70)
	setKeypoint(p, pose.KeypointRightShoulder, cx+20, cy-70)
	setKeypoint(p, pose.KeypointLeftElbow, cx-30, cy-40)
	setKeypoint(p, pose.KeypointRightElbow, cx+30, cy-40)
	setKeypoint(p, pose.KeypointLeftWrist, cx-35, cy-10)
	setKeypoint(p, pose.KeypointRightWrist, cx+35, cy-10)
	setKeypoint(p, pose.KeypointLeftHip, cx-15, cy)
	setKeypoint(p, pose.KeypointRightHip, cx+15, cy)
	setKeypoint(p, pose.KeypointLeftKnee, cx-15, cy+50)
	setKeypoint(p, pose.KeypointRightKnee, cx+15, cy+50)
	setKeypoint(p, pose.KeypointLeftAnkle, cx-15, cy+100)
	setKeypoint(p, pose.KeypointRightAnkle, cx+15, cy+100)
	p.Box = &pose.Box{X1: cx - 40, Y1: cy - 100, X2: cx + 40, Y2: cy + 110}
	return p
}

// fallenPerson lies horizontally: torso parallel to the ground, wide box.
func fallenPerson(cx, cy float32) *pose.Person {
	p := &pose.Person{}
	setKeypoint(p, pose.KeypointNose, cx-95, cy-5)
	setKeypoint(p, pose.KeypointLeftEye, cx-98, cy-8)
	setKeypoint(p, pose.KeypointRightEye, cx-98, cy-2)
	setKeypoint(p, pose.KeypointLeftEar, cx-92, cy-10)
	setKeypoint(p, pose.KeypointRightEar, cx-92, cy)
	setKeypoint(p, pose.KeypointLeftShoulder, cx-80, cy-10)
	setKeypoint(p, pose.KeypointRightShoulder, cx-80, cy+10)
	setKeypoint(p, pose.KeypointLeftElbow, cx-50, cy-20)
	setKeypoint(p, pose.KeypointRightElbow, cx-50, cy+20)
	setKeypoint(p, pose.KeypointLeftWrist, cx-20, cy-25)
	setKeypoint(p, pose.KeypointRightWrist, cx-20, cy+25)
	setKeypoint(p, pose.KeypointLeftHip, cx, cy-10)
	setKeypoint(p, pose.KeypointRightHip, cx, cy+10)
	setKeypoint(p, pose.KeypointLeftKnee, cx+50, cy-10)
	setKeypoint(p, pose.KeypointRightKnee, cx+50, cy+10)
	setKeypoint(p, pose.KeypointLeftAnkle, cx+100, cy-5)
	setKeypoint(p, pose.KeypointRightAnkle, cx+100, cy+5)
	p.Box = &pose.Box{X1: cx - 105, Y1: cy - 30, X2: cx + 110, Y2: cy + 30}
	return p
}

// sittingPerson has a vertical torso with hips near knee height, and a box
// that is still taller than wide.
func sittingPerson(cx, cy float32) *pose.Person {
	p := standingPerson(cx, cy)
	setKeypoint(p, pose.KeypointLeftShoulder, cx-20, cy-50)
	setKeypoint(p, pose.KeypointRightShoulder, cx+20, cy-50)
	setKeypoint(p, pose.KeypointLeftKnee, cx-10, cy+10)
	setKeypoint(p, pose.KeypointRightKnee, cx+10, cy+10)
	setKeypoint(p, pose.KeypointLeftAnkle, cx-10, cy+50)
	setKeypoint(p, pose.KeypointRightAnkle, cx+10, cy+50)
	p.Box = &pose.Box{X1: cx - 30, Y1: cy - 60, X2: cx + 30, Y2: cy + 60}
	return p
}

// fightingPair stands two people close enough that their boxes overlap
// heavily and a wrist reaches the other's torso.
func fightingPair() []*pose.Person {
	a := standingPerson(100, 100)
	b := standingPerson(120, 100)
	// a's right wrist at b's chest
	setKeypoint(a, pose.KeypointRightWrist, 120, 35)
	return []*pose.Person{a, b}
}
