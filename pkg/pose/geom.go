package pose

import (
	"github.com/chewxy/math32"
)

type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

func (p Point) Distance(b Point) float32 {
	return math32.Sqrt((p.X-b.X)*(p.X-b.X) + (p.Y-b.Y)*(p.Y-b.Y))
}

// Midpoint of a and b
func Midpoint(a, b Point) Point {
	return Point{
		X: (a.X + b.X) / 2,
		Y: (a.Y + b.Y) / 2,
	}
}

// AngleAtVertex returns the angle in degrees at vertex b, formed by the segments b-a and b-c.
// Degenerate inputs (coincident points) return 0.
func AngleAtVertex(a, b, c Point) float32 {
	bax := a.X - b.X
	bay := a.Y - b.Y
	bcx := c.X - b.X
	bcy := c.Y - b.Y
	norm := math32.Sqrt(bax*bax+bay*bay) * math32.Sqrt(bcx*bcx+bcy*bcy)
	if norm == 0 {
		return 0
	}
	cos := (bax*bcx + bay*bcy) / norm
	cos = max(-1, min(1, cos))
	return math32.Acos(cos) * 180 / math32.Pi
}

// Box is an axis-aligned bounding box in pixel coordinates, with Y increasing downward.
type Box struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

func (b Box) Width() float32 {
	return b.X2 - b.X1
}

func (b Box) Height() float32 {
	return b.Y2 - b.Y1
}

func (b Box) Area() float32 {
	return b.Width() * b.Height()
}

func (b Box) Center() Point {
	return Point{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

func (b Box) Intersection(c Box) Box {
	x1 := max(b.X1, c.X1)
	y1 := max(b.Y1, c.Y1)
	x2 := min(b.X2, c.X2)
	y2 := min(b.Y2, c.Y2)
	return Box{
		X1: x1,
		Y1: y1,
		X2: max(x1, x2),
		Y2: max(y1, y2),
	}
}

// Intersection over Union
func (b Box) IOU(c Box) float32 {
	intersection := b.Intersection(c).Area()
	union := b.Area() + c.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// AspectRatio returns width/height, or 0 for a degenerate box.
func (b Box) AspectRatio() float32 {
	h := b.Height()
	if h <= 0 {
		return 0
	}
	return b.Width() / h
}
