package apqos

// synth.go generates packet arrivals in place of a recorded trace.
// Inter-arrivals are exponential or constant, sizes uniform on [MinSize, MaxSize]

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/iti/rngstream"
)

// ErrInvalidSynth is returned for a synthetic source description that cannot generate packets
var ErrInvalidSynth = errors.New("invalid synthetic source")

// SynthDesc describes a synthetic arrival process
type SynthDesc struct {
	Name        string  `json:"name" yaml:"name"`       // names the rngstream, see rngstream.New
	Count       int     `json:"count" yaml:"count"`     // number of packets generated
	PcktRate    float64 `json:"pktrate" yaml:"pktrate"` // mean packets per second
	ArrivalDist string  `json:"dist" yaml:"dist"`       // "expon" or "const"
	MinSize     int     `json:"minsize" yaml:"minsize"`
	MaxSize     int     `json:"maxsize" yaml:"maxsize"`
}

// SyntheticSource draws packet records from an rngstream
type SyntheticSource struct {
	desc    SynthDesc
	rngstrm *rngstream.RngStream
	time    float64 // arrival time of the most recent packet
	made    int     // packets generated so far

	// computes an inter-arrival from a U01 sample and the packet rate
	sampleNxtArrival func(float64, float64) float64
}

// CreateSyntheticSource is a constructor
func CreateSyntheticSource(desc SynthDesc) (*SyntheticSource, error) {
	if desc.Count < 0 || desc.PcktRate <= 0.0 || desc.MinSize < 0 || desc.MaxSize < desc.MinSize {
		return nil, fmt.Errorf("%w: %+v", ErrInvalidSynth, desc)
	}
	ss := new(SyntheticSource)
	ss.desc = desc
	ss.rngstrm = rngstream.New(desc.Name)
	switch desc.ArrivalDist {
	case "expon", "exp", "exponential", "":
		ss.sampleNxtArrival = expInterarrival
	case "const", "constant":
		ss.sampleNxtArrival = constInterarrival
	default:
		return nil, fmt.Errorf("%w: unknown arrival distribution %q", ErrInvalidSynth, desc.ArrivalDist)
	}
	return ss, nil
}

// Next returns the next generated record, io.EOF once Count have been made.
// The first packet arrives at time 0
func (ss *SyntheticSource) Next() (PacketRecord, error) {
	if ss.made >= ss.desc.Count {
		return PacketRecord{}, io.EOF
	}
	if ss.made > 0 {
		ss.time += ss.sampleNxtArrival(ss.rngstrm.RandU01(), ss.desc.PcktRate)
	}
	size := ss.desc.MinSize
	if ss.desc.MaxSize > ss.desc.MinSize {
		size = ss.rngstrm.RandInt(ss.desc.MinSize, ss.desc.MaxSize)
	}
	ss.made += 1
	return PacketRecord{ArrivalTime: ss.time, SizeBytes: size}, nil
}

// Generate drains a new SyntheticSource into memory, so that repeated runs see identical arrivals
func Generate(desc SynthDesc) ([]PacketRecord, error) {
	ss, err := CreateSyntheticSource(desc)
	if err != nil {
		return nil, err
	}
	recs := make([]PacketRecord, 0, desc.Count)
	for {
		rec, err := ss.Next()
		if err != nil {
			return recs, nil
		}
		recs = append(recs, rec)
	}
}

// expInterarrival samples an exponential inter-arrival time
func expInterarrival(u01, rate float64) float64 {
	return -math.Log(1.0-u01) / rate
}

// constInterarrival ignores the sample
func constInterarrival(u01, rate float64) float64 {
	return 1.0 / rate
}
