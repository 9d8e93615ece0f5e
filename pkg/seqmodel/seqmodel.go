// Package seqmodel loads an exported ONNX sequence classification model and
// presents it through the engine's narrow SequenceModel contract.
//
// The engine itself never sees tensors or the ONNX runtime; a missing model
// file or runtime is a soft failure, and the caller falls back to rules-only
// mode.
package seqmodel

import (
	"fmt"
	"os"

	"github.com/chewxy/math32"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/sentinel/pkg/activity"
	ort "github.com/yalue/onnxruntime_go"
)

// Config describes the exported model.
type Config struct {
	ModelPath   string
	InputName   string          // Name of the input tensor ("input" in our training export)
	OutputName  string          // Name of the logits tensor ("output" in our training export)
	Classes     []activity.Type // Output index -> activity, in training order
	SeqLen      int             // Window length the model was trained on
	LibraryPath string          // Optional explicit path to the onnxruntime shared library
}

// DefaultConfig matches the training pipeline's export settings.
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:  modelPath,
		InputName:  "input",
		OutputName: "output",
		Classes:    []activity.Type{activity.Normal, activity.Fighting, activity.Running, activity.Falling},
		SeqLen:     30,
	}
}

// Model is an ONNX session with fixed input (1, SeqLen, 51) and output
// (1, len(Classes)) tensors. A Model serves one stream; it is not safe for
// concurrent use, which matches the one-engine-per-stream concurrency model.
type Model struct {
	log     logs.Log
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	classes []activity.Type
	seqLen  int
}

// Load opens the ONNX model. The returned Model's Infer method satisfies
// activity.SequenceModel.
func Load(logger logs.Log, cfg Config) (*Model, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("sequence model not found at %v: %w", cfg.ModelPath, err)
	}
	if len(cfg.Classes) == 0 {
		return nil, fmt.Errorf("sequence model needs at least one output class")
	}
	if cfg.SeqLen < 1 {
		return nil, fmt.Errorf("sequence model SeqLen must be at least 1 (have %v)", cfg.SeqLen)
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
		}
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(cfg.SeqLen), activity.SequenceFeatureLen),
		make([]float32, cfg.SeqLen*activity.SequenceFeatureLen))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(cfg.Classes))))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session for %v: %w", cfg.ModelPath, err)
	}

	logger.Infof("Sequence model loaded from %v (%v classes, window %v)", cfg.ModelPath, len(cfg.Classes), cfg.SeqLen)

	return &Model{
		log:     logger,
		session: session,
		input:   input,
		output:  output,
		classes: cfg.Classes,
		seqLen:  cfg.SeqLen,
	}, nil
}

// Close releases the session and its tensors.
func (m *Model) Close() {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	if m.input != nil {
		m.input.Destroy()
		m.input = nil
	}
	if m.output != nil {
		m.output.Destroy()
		m.output = nil
	}
}

// Infer runs a forward pass over the keypoint window and returns the softmax
// winner. Inference failures report Normal with zero confidence, so a broken
// model degrades the stream instead of stalling it.
func (m *Model) Infer(seq [][activity.SequenceFeatureLen]float32) (activity.Type, float32) {
	if len(seq) == 0 {
		return activity.Normal, 0
	}
	data := m.input.GetData()
	for i := 0; i < m.seqLen; i++ {
		frame := &seq[min(i, len(seq)-1)]
		copy(data[i*activity.SequenceFeatureLen:(i+1)*activity.SequenceFeatureLen], frame[:])
	}
	if err := m.session.Run(); err != nil {
		m.log.Errorf("Sequence model inference failed: %v", err)
		return activity.Normal, 0
	}
	probs := softmax(m.output.GetData())
	if len(probs) == 0 {
		return activity.Normal, 0
	}
	best := 0
	for i := 1; i < len(m.classes) && i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return m.classes[best], probs[best]
}

func softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		maxLogit = max(maxLogit, v)
	}
	out := make([]float32, len(logits))
	sum := float32(0)
	for i, v := range logits {
		out[i] = math32.Exp(v - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
