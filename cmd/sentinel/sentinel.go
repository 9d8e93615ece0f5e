package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/sentinel/pkg/activity"
	"github.com/cyclopcam/sentinel/pkg/pose"
	"github.com/cyclopcam/sentinel/pkg/seqmodel"
	"github.com/cyclopcam/sentinel/server/alertdb"
)

// sentinel replays a recorded pose stream through the activity engine.
//
// The input is JSONL: one frame per line, produced by the pose estimation
// stage. Example line:
//
//	{"time": 1712345678.43, "people": [{"keypoints": [[x,y,conf], ...17], "box": [x1,y1,x2,y2]}]}

type frameJSON struct {
	Time   float64      `json:"time"` // Unix seconds
	People []personJSON `json:"people"`
}

type personJSON struct {
	Keypoints [][3]float32 `json:"keypoints"`
	Box       []float32    `json:"box,omitempty"`
}

func (p *personJSON) toPerson() (*pose.Person, error) {
	if len(p.Keypoints) != pose.NumKeypoints {
		return nil, fmt.Errorf("expected %v keypoints, got %v", pose.NumKeypoints, len(p.Keypoints))
	}
	person := &pose.Person{}
	for i, kp := range p.Keypoints {
		person.Keypoints[i] = pose.Keypoint{X: kp[0], Y: kp[1], Confidence: kp[2]}
	}
	if len(p.Box) == 4 {
		person.Box = &pose.Box{X1: p.Box[0], Y1: p.Box[1], X2: p.Box[2], Y2: p.Box[3]}
	}
	return person, nil
}

func check(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func main() {
	parser := argparse.NewParser("sentinel", "Replay a recorded pose stream through the abnormal activity engine")
	inputFile := parser.String("i", "input", &argparse.Options{Help: "Pose stream (JSONL, one frame per line)", Required: true})
	cameraName := parser.String("c", "camera", &argparse.Options{Help: "Camera name recorded with alerts", Default: "replay"})
	alertDBFile := parser.String("", "alertdb", &argparse.Options{Help: "Record confirmed alerts into this SQLite database", Default: ""})
	onnxModel := parser.String("", "model", &argparse.Options{Help: "ONNX sequence model (omit for rules-only mode)", Default: ""})
	ortLib := parser.String("", "ortlib", &argparse.Options{Help: "Path to the onnxruntime shared library", Default: ""})
	verbose := parser.Flag("v", "verbose", &argparse.Options{Help: "Log every candidate signal", Default: false})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	cfg := activity.DefaultConfig()
	cfg.Verbose = *verbose

	// The sequence model is optional. Failing to load it degrades recall,
	// but must not stop the pipeline.
	var model activity.SequenceModel
	if *onnxModel != "" {
		modelCfg := seqmodel.DefaultConfig(*onnxModel)
		modelCfg.LibraryPath = *ortLib
		modelCfg.SeqLen = cfg.Sequence.SeqLen
		m, err := seqmodel.Load(logger, modelCfg)
		if err != nil {
			logger.Warnf("Continuing without sequence model: %v", err)
		} else {
			defer m.Close()
			model = m.Infer
		}
	}

	engine, err := activity.NewClassifier(logger, cfg, model)
	check(err)

	var alerts *alertdb.AlertDB
	if *alertDBFile != "" {
		alerts, err = alertdb.NewAlertDB(logger, *alertDBFile)
		check(err)
	}

	f, err := os.Open(*inputFile)
	check(err)
	defer f.Close()

	nFrames := 0
	nAbnormal := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		frame := frameJSON{}
		if err := json.Unmarshal(line, &frame); err != nil {
			logger.Errorf("Skipping malformed frame at line %v: %v", nFrames+1, err)
			continue
		}
		people := make([]*pose.Person, 0, len(frame.People))
		for i := range frame.People {
			person, err := frame.People[i].toPerson()
			if err != nil {
				logger.Errorf("Skipping malformed person at line %v: %v", nFrames+1, err)
				continue
			}
			people = append(people, person)
		}
		at := time.UnixMilli(int64(frame.Time * 1000))
		result := engine.Classify(people, at)
		nFrames++
		if result.IsAbnormal {
			nAbnormal++
			if alerts != nil {
				if _, err := alerts.AddAlert(*cameraName, at, &result); err != nil {
					logger.Errorf("Failed to record alert: %v", err)
				}
			}
		}
	}
	check(scanner.Err())

	stats := engine.GetStats(time.Now())
	logger.Infof("Replay finished: %v frames, %v abnormal results, %v live tracks", nFrames, nAbnormal, stats.ActiveTracks)
}
