// Package pose holds the data model for per-frame human skeleton observations,
// and the 2D geometry helpers that the activity detectors are built on.
package pose

// Keypoint is one anatomical landmark: a 2D pixel position and the
// pose estimator's confidence in [0,1].
type Keypoint struct {
	X          float32 `json:"x"`
	Y          float32 `json:"y"`
	Confidence float32 `json:"confidence"`
}

// Person is one frame's observation of one individual.
// It is immutable once constructed, and is not retained beyond the frame
// processing call that received it (the tracker copies what it needs).
type Person struct {
	Keypoints [NumKeypoints]Keypoint `json:"keypoints"`
	Box       *Box                   `json:"box,omitempty"` // Optional detector bounding box
}

// Keypoint returns the position of keypoint i.
func (p *Person) Keypoint(i int) Point {
	return Point{X: p.Keypoints[i].X, Y: p.Keypoints[i].Y}
}

// Midpoint returns the average position of keypoints i and j.
func (p *Person) Midpoint(i, j int) Point {
	return Midpoint(p.Keypoint(i), p.Keypoint(j))
}

// HaveKeypoints returns true if every listed keypoint has confidence of at least minConfidence.
func (p *Person) HaveKeypoints(minConfidence float32, indices ...int) bool {
	for _, i := range indices {
		if p.Keypoints[i].Confidence < minConfidence {
			return false
		}
	}
	return true
}

// Centroid returns the hip midpoint, which we use as the person's stable
// center for tracking. If the box is present and the hips were not detected
// at all, fall back to the box center.
func (p *Person) Centroid() Point {
	if p.Keypoints[KeypointLeftHip].Confidence == 0 && p.Keypoints[KeypointRightHip].Confidence == 0 && p.Box != nil {
		return p.Box.Center()
	}
	return p.Midpoint(KeypointLeftHip, KeypointRightHip)
}
