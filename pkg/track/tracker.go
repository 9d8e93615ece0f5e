// Package track assigns stable identities to per-frame person detections.
//
// Matching is a hybrid of bounding box overlap and centroid proximity:
// IoU matches always outrank centroid matches, and centroid distance is the
// fallback when the effective frame rate is low enough that consecutive
// boxes don't overlap at all.
package track

import (
	"fmt"
	"math"
	"time"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/sentinel/pkg/pose"
)

// Config are the tracker tunables.
type Config struct {
	MaxHistory   int           // Minimum past positions retained per track (ring capacity rounds up to a power of 2)
	MaxDistance  float32       // Maximum centroid distance (pixels) for a match
	IOUThreshold float32       // Minimum IoU for a bounding box match
	StaleTimeout time.Duration // Tracks unseen for longer than this are evicted
}

// DefaultConfig returns the reference tracker settings (tuned for a fixed
// camera at roughly 15 fps).
func DefaultConfig() Config {
	return Config{
		MaxHistory:   150,
		MaxDistance:  120,
		IOUThreshold: 0.2,
		StaleTimeout: 3 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.MaxHistory < 2 {
		return fmt.Errorf("tracker MaxHistory must be at least 2 (have %v)", c.MaxHistory)
	}
	if c.MaxDistance <= 0 {
		return fmt.Errorf("tracker MaxDistance must be positive (have %v)", c.MaxDistance)
	}
	if c.IOUThreshold <= 0 || c.IOUThreshold > 1 {
		return fmt.Errorf("tracker IOUThreshold must be in (0,1] (have %v)", c.IOUThreshold)
	}
	if c.StaleTimeout <= 0 {
		return fmt.Errorf("tracker StaleTimeout must be positive (have %v)", c.StaleTimeout)
	}
	return nil
}

// Detection is one person seen in the current frame.
type Detection struct {
	Centroid pose.Point
	Box      *pose.Box // Optional. Enables IoU matching when present on consecutive frames.
}

// Sample is one timestamped centroid observation in a track's history.
type Sample struct {
	Pos  pose.Point
	Time time.Time
}

type track struct {
	id       int64
	history  ringbuffer.RingP[Sample]
	lastBox  *pose.Box
	lastSeen time.Time
}

func (t *track) lastPos() pose.Point {
	return t.history.Peek(t.history.Len() - 1).Pos
}

// Tracker assigns monotonically increasing IDs to detections across frames.
//
// Tracks are stored in insertion order and always iterated in that order, so
// that matching is deterministic: when two tracks score identically, the
// older track wins.
//
// A Tracker is owned by a single frame stream and is not safe for concurrent use.
type Tracker struct {
	cfg         Config
	tracks      []*track // insertion order
	nextID      int64
	historySize int // power of 2, for the ring buffers
}

// NewTracker creates a tracker, or fails if the config is invalid.
func NewTracker(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// RingP holds capacity-1 elements, so size the history rings one past
	// MaxHistory to retain at least MaxHistory samples.
	return &Tracker{
		cfg:         cfg,
		nextID:      1,
		historySize: nextPowerOf2(cfg.MaxHistory + 1),
	}, nil
}

// Update matches the frame's detections to existing tracks, creating new
// tracks for unmatched detections, and returns the track ID for each
// detection index. Tracks unseen for longer than the stale timeout are
// evicted before matching.
//
// now must be monotonically non-decreasing across calls.
func (t *Tracker) Update(detections []Detection, now time.Time) []int64 {
	// Evict stale tracks first, so that a person reappearing after the stale
	// timeout always receives a fresh identity instead of resurrecting a
	// dead track that happens to be nearby.
	remaining := t.tracks[:0]
	for _, tr := range t.tracks {
		if now.Sub(tr.lastSeen) <= t.cfg.StaleTimeout {
			remaining = append(remaining, tr)
		}
	}
	for i := len(remaining); i < len(t.tracks); i++ {
		t.tracks[i] = nil
	}
	t.tracks = remaining

	// Spatial index over the current tracks' last known extents.
	// The query box below is expanded by MaxDistance, so this finds both IoU
	// candidates and centroid candidates in one search.
	fb := flatbush.NewFlatbush[float32]()
	fb.Reserve(len(t.tracks))
	for _, tr := range t.tracks {
		if tr.lastBox != nil {
			fb.Add(tr.lastBox.X1, tr.lastBox.Y1, tr.lastBox.X2, tr.lastBox.Y2)
		} else {
			p := tr.lastPos()
			fb.Add(p.X, p.Y, p.X, p.Y)
		}
	}
	fb.Finish()

	matched := make([]bool, len(t.tracks))
	ids := make([]int64, len(detections))
	nearby := []int{}

	for i := range detections {
		det := &detections[i]
		qx1, qy1, qx2, qy2 := det.Centroid.X, det.Centroid.Y, det.Centroid.X, det.Centroid.Y
		if det.Box != nil {
			qx1, qy1, qx2, qy2 = det.Box.X1, det.Box.Y1, det.Box.X2, det.Box.Y2
		}
		d := t.cfg.MaxDistance
		nearby = fb.SearchFast(qx1-d, qy1-d, qx2+d, qy2+d, nearby)

		bestJ := -1
		bestScore := float32(0)
		for _, j := range nearby {
			if matched[j] {
				continue
			}
			tr := t.tracks[j]
			score := float32(0)
			// IoU first. An IoU match always outranks a centroid match,
			// because score = IoU + 1 > 1.
			if det.Box != nil && tr.lastBox != nil {
				if iou := det.Box.IOU(*tr.lastBox); iou >= t.cfg.IOUThreshold {
					score = iou + 1
				}
			}
			// Centroid distance fallback
			if score == 0 {
				if dist := det.Centroid.Distance(tr.lastPos()); dist < t.cfg.MaxDistance {
					score = 1 - dist/t.cfg.MaxDistance
				}
			}
			// Ties go to the earlier inserted track, regardless of the
			// order in which the spatial index returns candidates.
			if score > bestScore || (score == bestScore && score > 0 && j < bestJ) {
				bestScore = score
				bestJ = j
			}
		}

		var tr *track
		if bestJ >= 0 {
			matched[bestJ] = true
			tr = t.tracks[bestJ]
		} else {
			tr = &track{
				id:      t.nextID,
				history: ringbuffer.NewRingP[Sample](t.historySize),
			}
			t.nextID++
			t.tracks = append(t.tracks, tr)
			matched = append(matched, true)
		}
		tr.history.Add(Sample{Pos: det.Centroid, Time: now})
		tr.lastSeen = now
		if det.Box != nil {
			box := *det.Box
			tr.lastBox = &box
		}
		ids[i] = tr.id
	}

	return ids
}

// Velocity returns the average speed in pixels/second over the last nFrames
// samples of the track. ok is false if the track is unknown or has fewer
// than max(2, nFrames) samples, or if the samples span less than 50ms.
func (t *Tracker) Velocity(trackID int64, nFrames int) (pixelsPerSecond float32, ok bool) {
	tr := t.find(trackID)
	if tr == nil || tr.history.Len() < max(2, nFrames) {
		return 0, false
	}
	start := tr.history.Len() - nFrames
	if start < 0 {
		start = 0
	}
	totalDist := float32(0)
	var totalTime time.Duration
	for k := start + 1; k < tr.history.Len(); k++ {
		a := tr.history.Peek(k - 1)
		b := tr.history.Peek(k)
		totalDist += b.Pos.Distance(a.Pos)
		totalTime += b.Time.Sub(a.Time)
	}
	if totalTime < 50*time.Millisecond {
		return 0, false
	}
	return totalDist / float32(totalTime.Seconds()), true
}

// Duration returns the elapsed time between the track's oldest and newest
// samples, or 0 if the track is unknown or has fewer than 2 samples.
func (t *Tracker) Duration(trackID int64) time.Duration {
	tr := t.find(trackID)
	if tr == nil || tr.history.Len() < 2 {
		return 0
	}
	return tr.history.Peek(tr.history.Len() - 1).Time.Sub(tr.history.Peek(0).Time)
}

// History returns a copy of the track's retained samples, oldest first.
// An unknown track returns nil.
func (t *Tracker) History(trackID int64) []Sample {
	tr := t.find(trackID)
	if tr == nil {
		return nil
	}
	samples := make([]Sample, tr.history.Len())
	for i := 0; i < tr.history.Len(); i++ {
		samples[i] = tr.history.Peek(i)
	}
	return samples
}

// ActiveIDs returns the IDs of all live tracks, in track creation order.
func (t *Tracker) ActiveIDs() []int64 {
	ids := make([]int64, 0, len(t.tracks))
	for _, tr := range t.tracks {
		ids = append(ids, tr.id)
	}
	return ids
}

// NumTracks returns the number of live tracks.
func (t *Tracker) NumTracks() int {
	return len(t.tracks)
}

func (t *Tracker) find(trackID int64) *track {
	for _, tr := range t.tracks {
		if tr.id == trackID {
			return tr
		}
	}
	return nil
}

func nextPowerOf2(n int) int {
	return 1 << int(math.Ceil(math.Log2(float64(n))))
}
