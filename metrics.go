package apqos

// metrics.go accumulates the per-run counters and turns them into
// the loss percentage and average queuing delay reported for a run

import (
	"errors"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
)

// ErrNoPackets is returned when a ratio is asked of a run that saw no packets
var ErrNoPackets = errors.New("no packets observed")

// Metrics are the counters of one run.  The delay sum is single precision
type Metrics struct {
	TotalPkts     int     `json:"total" yaml:"total"`
	DeliveredPkts int     `json:"delivered" yaml:"delivered"`
	DroppedPkts   int     `json:"dropped" yaml:"dropped"`
	TotalDelay    float32 `json:"totaldelay" yaml:"totaldelay"`
}

// PacketLossPct is dropped/total*100
func (m *Metrics) PacketLossPct() (float64, error) {
	if m.TotalPkts == 0 {
		return 0.0, ErrNoPackets
	}
	return float64(float32(m.DroppedPkts) / float32(m.TotalPkts) * 100), nil
}

// AvgQueuingDelay divides the delay sum by every packet seen, dropped ones
// included, which contribute no delay of their own
func (m *Metrics) AvgQueuingDelay() (float64, error) {
	if m.TotalPkts == 0 {
		return 0.0, ErrNoPackets
	}
	return float64(m.TotalDelay / float32(m.TotalPkts)), nil
}

// Conserved is true when every packet seen has been either delivered or dropped
func (m *Metrics) Conserved() bool {
	return m.TotalPkts == m.DeliveredPkts+m.DroppedPkts
}

// DelayStats summarizes the queuing delay of delivered packets only
type DelayStats struct {
	Mean      float64    `json:"mean" yaml:"mean"`
	StdDev    float64    `json:"stddev" yaml:"stddev"` // zero for a single sample
	Quantiles []Quantile `json:"quantiles" yaml:"quantiles"`
}

// Quantile is the delay below which a fraction P of delivered packets fall
type Quantile struct {
	P     float64 `json:"p" yaml:"p"`
	Delay float64 `json:"delay" yaml:"delay"`
}

// delaySampler keeps every delivered packet's delay when quantiles are asked for
type delaySampler struct {
	probs   []float64
	samples []float64
}

func createDelaySampler(probs []float64) *delaySampler {
	if len(probs) == 0 {
		return nil
	}
	ds := new(delaySampler)
	ds.probs = slices.Clone(probs)
	slices.Sort(ds.probs)
	ds.samples = make([]float64, 0)
	return ds
}

func (ds *delaySampler) add(delay float32) {
	if ds == nil {
		return
	}
	ds.samples = append(ds.samples, float64(delay))
}

// summarize returns nil if there is no sampler or nothing was delivered
func (ds *delaySampler) summarize() *DelayStats {
	if ds == nil || len(ds.samples) == 0 {
		return nil
	}
	slices.Sort(ds.samples)
	dstat := new(DelayStats)
	dstat.Quantiles = make([]Quantile, 0, len(ds.probs))
	if len(ds.samples) > 1 {
		dstat.Mean, dstat.StdDev = stat.MeanStdDev(ds.samples, nil)
	} else {
		dstat.Mean = ds.samples[0]
	}
	for _, p := range ds.probs {
		dstat.Quantiles = append(dstat.Quantiles, Quantile{P: p, Delay: stat.Quantile(p, stat.Empirical, ds.samples, nil)})
	}
	return dstat
}
