package activity

import (
	"fmt"
	"math"

	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/sentinel/pkg/pose"
)

// SequenceFeatureLen is the per-frame feature vector length fed to the
// sequence model: (x, y, confidence) for each of the 17 keypoints.
const SequenceFeatureLen = 3 * pose.NumKeypoints

// SequenceModel is an opaque inference function over a window of normalized
// keypoint frames. It returns the predicted activity and a confidence in [0,1].
//
// The engine depends on nothing beyond this contract, so the model can be an
// ONNX session (see pkg/seqmodel), a remote call, or a stub in tests.
type SequenceModel func(seq [][SequenceFeatureLen]float32) (Type, float32)

// SequenceConfig are the tunables of the sequence classifier adapter.
type SequenceConfig struct {
	SeqLen          int     // Window length the model was trained on
	MinFrames       int     // Start predicting once this many frames are buffered
	ConfidenceFloor float32 // Predictions below this confidence are ignored
	TemporalVotes   int     // Consecutive identical predictions required
}

func DefaultSequenceConfig() SequenceConfig {
	return SequenceConfig{
		SeqLen:          30,
		MinFrames:       15,
		ConfidenceFloor: 0.5,
		TemporalVotes:   2,
	}
}

func (c *SequenceConfig) Validate() error {
	if c.SeqLen < 1 {
		return fmt.Errorf("sequence: SeqLen must be at least 1 (have %v)", c.SeqLen)
	}
	if c.MinFrames < 1 || c.MinFrames > c.SeqLen {
		return fmt.Errorf("sequence: MinFrames must be in [1, SeqLen] (have %v)", c.MinFrames)
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return fmt.Errorf("sequence: ConfidenceFloor must be in [0,1] (have %v)", c.ConfidenceFloor)
	}
	if c.TemporalVotes < 1 {
		return fmt.Errorf("sequence: TemporalVotes must be at least 1 (have %v)", c.TemporalVotes)
	}
	return nil
}

// SequenceClassifier buffers a rolling window of normalized keypoints for the
// stream's primary subject and queries the injected model once enough frames
// have accumulated. Predictions are smoothed: the same non-normal label must
// repeat for TemporalVotes consecutive calls before it becomes a candidate.
type SequenceClassifier struct {
	cfg    SequenceConfig
	model  SequenceModel
	buffer ringbuffer.RingP[[SequenceFeatureLen]float32]
	votes  ringbuffer.RingP[Type]
}

// NewSequenceClassifier creates the adapter, or fails on an invalid config.
// model may not be nil; a stream without a model simply has no adapter.
func NewSequenceClassifier(cfg SequenceConfig, model SequenceModel) (*SequenceClassifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if model == nil {
		return nil, fmt.Errorf("sequence: model may not be nil")
	}
	// RingP holds capacity-1 elements, so size the rings one past what we
	// need to retain.
	return &SequenceClassifier{
		cfg:    cfg,
		model:  model,
		buffer: ringbuffer.NewRingP[[SequenceFeatureLen]float32](nextPowerOf2(cfg.SeqLen + 1)),
		votes:  ringbuffer.NewRingP[Type](nextPowerOf2(cfg.TemporalVotes + 1)),
	}, nil
}

// Observe feeds the frame's primary person into the rolling buffer, and
// returns a candidate if the smoothed model prediction qualifies.
func (s *SequenceClassifier) Observe(primary *pose.Person) *candidate {
	s.buffer.Add(normalizeKeypoints(primary))
	if s.buffer.Len() < s.cfg.MinFrames {
		return nil
	}

	// Assemble the window, padding to SeqLen by repeating the last frame
	n := min(s.buffer.Len(), s.cfg.SeqLen)
	seq := make([][SequenceFeatureLen]float32, 0, s.cfg.SeqLen)
	for i := s.buffer.Len() - n; i < s.buffer.Len(); i++ {
		seq = append(seq, s.buffer.Peek(i))
	}
	for len(seq) < s.cfg.SeqLen {
		seq = append(seq, seq[len(seq)-1])
	}

	label, conf := s.model(seq)
	s.votes.Add(label)

	if label == Normal || conf < s.cfg.ConfidenceFloor {
		return nil
	}
	if s.votes.Len() < s.cfg.TemporalVotes {
		return nil
	}
	for i := s.votes.Len() - s.cfg.TemporalVotes; i < s.votes.Len(); i++ {
		if s.votes.Peek(i) != label {
			return nil
		}
	}

	return &candidate{
		activity:    label,
		confidence:  conf,
		description: fmt.Sprintf("Sequence model: %v detected (confidence: %.0f%%)", label, conf*100),
	}
}

// normalizeKeypoints makes the pose translation and scale invariant:
// translate by the hip center, scale by the shoulder width. A missing or
// tiny shoulder width falls back to a fixed scale to avoid division blow-up.
func normalizeKeypoints(p *pose.Person) [SequenceFeatureLen]float32 {
	hip := p.Midpoint(pose.KeypointLeftHip, pose.KeypointRightHip)
	scale := p.Keypoint(pose.KeypointLeftShoulder).Distance(p.Keypoint(pose.KeypointRightShoulder))
	if scale < 10 {
		scale = 100
	}
	var out [SequenceFeatureLen]float32
	for i := 0; i < pose.NumKeypoints; i++ {
		out[i*3+0] = (p.Keypoints[i].X - hip.X) / scale
		out[i*3+1] = (p.Keypoints[i].Y - hip.Y) / scale
		out[i*3+2] = p.Keypoints[i].Confidence
	}
	return out
}

func nextPowerOf2(n int) int {
	return 1 << int(math.Ceil(math.Log2(float64(n))))
}
