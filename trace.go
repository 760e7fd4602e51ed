package apqos

// trace.go holds the Recorder, which gathers the observations of one or
// more runs for post-run analysis and writes them out as yaml or json

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// TraceInst is one recorded observation
type TraceInst struct {
	TraceTime string  `json:"tracetime" yaml:"tracetime"` // global time, shortest exact decimal form
	Ticks     int64   `json:"ticks" yaml:"ticks"`         // vrtime ticks of the stamp
	Priority  int64   `json:"priority" yaml:"priority"`   // simulation tick the observation was made in
	Op        string  `json:"op" yaml:"op"`
	PcktID    int     `json:"pcktid" yaml:"pcktid"`
	Size      int     `json:"size" yaml:"size"`
	Arrival   float32 `json:"arrival" yaml:"arrival"`
	Departure float32 `json:"departure" yaml:"departure"`
	BufferLen int     `json:"bufferlen" yaml:"bufferlen"`
	Budget    float32 `json:"budget" yaml:"budget"`
}

// Recorder gathers observations by run index.  Runs of a sweep may record
// concurrently; each run appends only to its own list
type Recorder struct {
	// recorder in use
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// configuration of each run
	RunByID map[int]RunConfig `json:"runbyid" yaml:"runbyid"`

	// all trace records for this experiment
	Traces map[int][]TraceInst `json:"traces" yaml:"traces"`

	mu sync.Mutex
}

// CreateRecorder is a constructor.  An inactive recorder accepts and discards
// everything, so calls to it can stay in place when no trace is wanted
func CreateRecorder(expName string, active bool) *Recorder {
	rc := new(Recorder)
	rc.InUse = active
	rc.ExpName = expName
	rc.RunByID = make(map[int]RunConfig)
	rc.Traces = make(map[int][]TraceInst)
	return rc
}

// Active tells the caller whether the Recorder is gathering observations
func (rc *Recorder) Active() bool {
	return rc.InUse
}

// ForRun registers run idx and returns the Observer that records into it
func (rc *Recorder) ForRun(idx int, cfg RunConfig) Observer {
	if !rc.InUse {
		return nil
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	_, present := rc.RunByID[idx]
	if present {
		panic(fmt.Sprintf("duplicated run id %d in Recorder", idx))
	}
	rc.RunByID[idx] = cfg
	rc.Traces[idx] = make([]TraceInst, 0)
	return &runRecorder{rc: rc, idx: idx}
}

// add stores a trace instance under run idx
func (rc *Recorder) add(idx int, obs Observation) {
	inst := TraceInst{TraceTime: strconv.FormatFloat(obs.Time, 'f', -1, 64),
		Ticks: obs.Stamp.Ticks(), Priority: obs.Stamp.Pri(), Op: obs.Kind.String(),
		PcktID: obs.Packet.ID, Size: obs.Packet.SizeBytes,
		Arrival: obs.Packet.ArrivalTime, Departure: obs.Packet.DepartureTime,
		BufferLen: obs.BufferLen, Budget: obs.Budget}

	rc.mu.Lock()
	rc.Traces[idx] = append(rc.Traces[idx], inst)
	rc.mu.Unlock()
}

// Len is the number of observations recorded for run idx
func (rc *Recorder) Len(idx int) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.Traces[idx])
}

// WriteToFile stores the Recorder to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (rc *Recorder) WriteToFile(filename string) (bool, error) {
	if !rc.InUse {
		return false, nil
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if err := writeEncoded(filename, rc); err != nil {
		return false, err
	}
	return true, nil
}

// runRecorder is the Observer for a single run
type runRecorder struct {
	rc  *Recorder
	idx int
}

func (rr *runRecorder) Observe(obs Observation) {
	rr.rc.add(rr.idx, obs)
}

// writeEncoded serializes v to filename, yaml or json as the extension selects
func writeEncoded(filename string, v any) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error

	switch pathExt {
	case ".yaml", ".YAML", ".yml":
		bytes, merr = yaml.Marshal(v)
	case ".json", ".JSON":
		bytes, merr = json.MarshalIndent(v, "", "\t")
	default:
		return fmt.Errorf("%s: %w", filename, ErrFileFormat)
	}
	if merr != nil {
		return fmt.Errorf("failed to encode %s: %w", filename, merr)
	}
	if err := os.WriteFile(filename, bytes, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}
