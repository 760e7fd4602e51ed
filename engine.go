package apqos

// engine.go holds the fixed-step simulation of one run: each tick admits the
// packets that have arrived, grows the output budget, and delivers from the
// head of the buffer for as long as the budget covers the head packet

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

var (
	// ErrHorizon is returned with the partial result of a run stopped by Options.MaxTicks
	ErrHorizon = errors.New("run reached its tick horizon")

	// ErrInvalidQuantile is returned for a quantile outside [0,1]
	ErrInvalidQuantile = errors.New("quantile must lie in [0,1]")
)

// RunConfig is the channel and buffer setting of a single run
type RunConfig struct {
	OutputRateMbps float64 `json:"rate" yaml:"rate"`
	BufferCapacity int     `json:"capacity" yaml:"capacity"`
}

// Options tune a run without changing the model it simulates
type Options struct {
	// most admissions attempted per tick, 0 means every packet that has arrived.
	// 1 reads one trace line per tick
	AdmitLimit int

	// stop after this many ticks, 0 for no bound.  A run whose budget
	// never grows (rate 0) only ends this way
	MaxTicks int64

	// delivered-packet delay quantiles to report, none if empty
	Quantiles []float64

	// receives every admission, drop and delivery; may be nil
	Observer Observer

	// run level logging, logrus standard logger if nil
	Log logrus.FieldLogger
}

// Result is what a run reports
type Result struct {
	Config        RunConfig   `json:"config" yaml:"config"`
	Metrics       Metrics     `json:"metrics" yaml:"metrics"`
	LossPct       float64     `json:"losspct" yaml:"losspct"`
	AvgDelay      float64     `json:"avgdelay" yaml:"avgdelay"`
	NoPackets     bool        `json:"nopackets" yaml:"nopackets"` // the ratios are undefined
	Ticks         int64       `json:"ticks" yaml:"ticks"`
	EndTime       float64     `json:"endtime" yaml:"endtime"`
	PeakOccupancy int         `json:"peak" yaml:"peak"`
	Truncated     bool        `json:"truncated" yaml:"truncated"`
	SourceErr     string      `json:"sourceerr,omitempty" yaml:"sourceerr,omitempty"`
	Delay         *DelayStats `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// Simulation is the state of one run.  It is built fresh for every run and
// not reused
type Simulation struct {
	cfg     RunConfig
	opts    Options
	rateBps float64

	src       PacketSource
	pending   *PacketRecord // read from src, not yet presented to the buffer
	exhausted bool          // src has nothing more to give
	srcErr    error

	clock   *Clock
	buffer  *Buffer
	budget  OutputBudget
	metrics Metrics
	nextID  int
	peak    int
	delays  *delaySampler
	log     logrus.FieldLogger
}

// CreateSimulation is a constructor
func CreateSimulation(cfg RunConfig, src PacketSource, opts Options) (*Simulation, error) {
	buffer, err := CreateBuffer(cfg.BufferCapacity)
	if err != nil {
		return nil, err
	}
	for _, p := range opts.Quantiles {
		if p < 0.0 || p > 1.0 {
			return nil, fmt.Errorf("%w: %g", ErrInvalidQuantile, p)
		}
	}
	sim := new(Simulation)
	sim.cfg = cfg
	sim.opts = opts
	sim.rateBps = MbpsToBytesPerSecond(cfg.OutputRateMbps)
	sim.src = src
	sim.clock = createClock()
	sim.buffer = buffer
	sim.delays = createDelaySampler(opts.Quantiles)
	sim.log = opts.Log
	if sim.log == nil {
		sim.log = logrus.StandardLogger()
	}
	return sim, nil
}

// Run simulates one configuration over src to completion
func Run(cfg RunConfig, src PacketSource, opts Options) (*Result, error) {
	sim, err := CreateSimulation(cfg, src, opts)
	if err != nil {
		return nil, err
	}
	return sim.Run()
}

// Run steps the clock until the source is exhausted and the buffer has drained
func (sim *Simulation) Run() (*Result, error) {
	var runErr error
	for {
		if sim.exhausted && sim.buffer.Len() == 0 {
			break
		}
		if sim.opts.MaxTicks > 0 && sim.clock.Ticks() >= sim.opts.MaxTicks {
			runErr = fmt.Errorf("%w after %d ticks", ErrHorizon, sim.clock.Ticks())
			break
		}
		sim.step()
	}
	res := sim.result()
	res.Truncated = runErr != nil
	return res, runErr
}

// step is one tick.  The order of the phases is part of the model
func (sim *Simulation) step() {
	sim.ingest()
	sim.budget.Tick(sim.rateBps, TimeUnit, sim.buffer.Len() > 0)
	sim.deliver()
	sim.peak = max(sim.peak, sim.buffer.Len())
	sim.clock.Advance()
}

// ingest presents to the buffer every record that has arrived by now,
// holding back at most one record read ahead of the clock
func (sim *Simulation) ingest() {
	attempted := 0
	for !sim.exhausted {
		if sim.opts.AdmitLimit > 0 && attempted >= sim.opts.AdmitLimit {
			return
		}
		if sim.pending == nil {
			rec, err := sim.src.Next()
			if err != nil {
				sim.endOfSource(err)
				return
			}
			sim.pending = &rec
		}
		if sim.clock.Seconds() < float64(float32(sim.pending.ArrivalTime)) {
			return
		}
		sim.admit(*sim.pending)
		sim.pending = nil
		attempted += 1
	}
}

// endOfSource stops ingestion for the remainder of the run
func (sim *Simulation) endOfSource(err error) {
	sim.exhausted = true
	if errors.Is(err, io.EOF) {
		return
	}
	sim.srcErr = err
	sim.log.WithError(err).Warn("packet source failed, treating it as exhausted")
}

// admit gives rec the next id and buffers or drops it
func (sim *Simulation) admit(rec PacketRecord) {
	bp := createBufferedPacket(sim.nextID, rec)
	sim.nextID += 1
	sim.metrics.TotalPkts += 1

	obs := sim.observation(bp)
	if sim.buffer.TryAdmit(bp) == Dropped {
		sim.metrics.DroppedPkts += 1
		obs.Kind = DroppedObs
	} else {
		obs.Kind = BufferedObs
	}
	sim.observe(obs)
}

// deliver sends head packets while the budget covers them.  A head packet
// the budget cannot cover blocks everything behind it until a later tick
func (sim *Simulation) deliver() {
	for {
		head, ok := sim.buffer.PeekHead()
		if !ok || !sim.budget.Covers(head.SizeBytes) {
			return
		}
		head.DepartureTime = float32(sim.clock.Seconds())
		head.Departed = true
		obs := sim.observation(*head)
		obs.Kind = DeliveredObs

		sim.budget.Consume(head.SizeBytes)
		delay := head.DepartureTime - head.ArrivalTime
		sim.metrics.TotalDelay += delay
		sim.delays.add(delay)
		sim.buffer.PopHead()
		sim.metrics.DeliveredPkts += 1
		sim.observe(obs)
	}
}

func (sim *Simulation) observation(bp BufferedPacket) Observation {
	return Observation{Time: sim.clock.Seconds(), Tick: sim.clock.Ticks(),
		Stamp: sim.clock.VrTime(), BufferLen: sim.buffer.Len(), Budget: sim.budget.Available(), Packet: bp}
}

func (sim *Simulation) observe(obs Observation) {
	if sim.opts.Observer != nil {
		sim.opts.Observer.Observe(obs)
	}
}

// BufferLen is the number of packets queued now
func (sim *Simulation) BufferLen() int {
	return sim.buffer.Len()
}

// Budget is the current output budget in bytes
func (sim *Simulation) Budget() float32 {
	return sim.budget.Available()
}

// result packages the metrics gathered so far
func (sim *Simulation) result() *Result {
	res := new(Result)
	res.Config = sim.cfg
	res.Metrics = sim.metrics
	res.Ticks = sim.clock.Ticks()
	res.EndTime = sim.clock.Seconds()
	res.PeakOccupancy = sim.peak
	res.Delay = sim.delays.summarize()
	if sim.srcErr != nil {
		res.SourceErr = sim.srcErr.Error()
	}

	var err error
	res.LossPct, err = sim.metrics.PacketLossPct()
	if errors.Is(err, ErrNoPackets) {
		res.NoPackets = true
		return res
	}
	res.AvgDelay, _ = sim.metrics.AvgQueuingDelay()
	return res
}
