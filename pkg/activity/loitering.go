package activity

import (
	"fmt"

	"github.com/cyclopcam/sentinel/pkg/track"
)

// checkLoitering flags a track that has stayed in the same small area for an
// extended time. Duration makes this inherently temporal, so it needs no
// separate voting buffer.
func checkLoitering(tracker *track.Tracker, trackID int64, rules *Rules) *candidate {
	duration := tracker.Duration(trackID)
	if duration < rules.LoiterDuration {
		return nil
	}

	history := tracker.History(trackID)
	if len(history) < rules.LoiterMinSamples {
		return nil
	}

	// Maximum extent of the track in either axis
	minX, maxX := history[0].Pos.X, history[0].Pos.X
	minY, maxY := history[0].Pos.Y, history[0].Pos.Y
	for _, s := range history[1:] {
		minX = min(minX, s.Pos.X)
		maxX = max(maxX, s.Pos.X)
		minY = min(minY, s.Pos.Y)
		maxY = max(maxY, s.Pos.Y)
	}
	spread := max(maxX-minX, maxY-minY)

	if spread >= rules.LoiterRadius*3 {
		return nil
	}

	conf := min(0.8, float32(duration.Seconds())/float32(2*rules.LoiterDuration.Seconds()))
	return &candidate{
		activity:    Loitering,
		confidence:  conf,
		description: fmt.Sprintf("Loitering detected (%.0fs in same area)", duration.Seconds()),
	}
}
