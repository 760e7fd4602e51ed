package apqos

// sweep.go runs a simulation per configuration and gathers one row per run.
// Runs share nothing; with more than one worker they proceed concurrently,
// each on its own Simulation and its own PacketSource

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultRates are the output rates, in Mbps, swept at the default capacity
var DefaultRates = []float64{11, 6, 30, 54}

const (
	// DefaultCapacity is the buffer capacity used with DefaultRates
	DefaultCapacity = 100

	// DefaultRate is the output rate used when sweeping capacity
	DefaultRate = 11.0
)

// RateSweep varies the output rate at a fixed capacity
func RateSweep(rates []float64, capacity int) []RunConfig {
	cfgs := make([]RunConfig, 0, len(rates))
	for _, rate := range rates {
		cfgs = append(cfgs, RunConfig{OutputRateMbps: rate, BufferCapacity: capacity})
	}
	return cfgs
}

// CapacitySweep varies the capacity over 0..maxCapacity inclusive at a fixed rate
func CapacitySweep(rate float64, maxCapacity int) []RunConfig {
	if maxCapacity < 0 {
		return []RunConfig{}
	}
	cfgs := make([]RunConfig, 0, maxCapacity+1)
	for capacity := 0; capacity <= maxCapacity; capacity++ {
		cfgs = append(cfgs, RunConfig{OutputRateMbps: rate, BufferCapacity: capacity})
	}
	return cfgs
}

// SweepOptions tune a sweep
type SweepOptions struct {
	// options applied to every run.  Run.Observer is shared by all runs and
	// must tolerate concurrent use when Workers > 1
	Run Options

	// runs in flight at once, values below 2 run sequentially
	Workers int

	// records the observations of every run if non-nil and active
	Recorder *Recorder
}

// Row is the outcome of one run of a sweep.  Result is nil when Err is a
// failure that left no metrics to report
type Row struct {
	Index   int       `json:"index" yaml:"index"`
	Config  RunConfig `json:"config" yaml:"config"`
	Result  *Result   `json:"result,omitempty" yaml:"result,omitempty"`
	Err     error     `json:"-" yaml:"-"`
	Failure string    `json:"failure,omitempty" yaml:"failure,omitempty"` // Err as text, for result files
}

// Sweep runs every configuration in cfgs over a fresh source from open.
// Rows come back in the order of cfgs.  The returned error joins the failure
// of every run that failed
func Sweep(open SourceFactory, cfgs []RunConfig, opts SweepOptions) ([]Row, error) {
	log := opts.Run.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	rows := make([]Row, len(cfgs))
	for idx, cfg := range cfgs {
		rows[idx] = Row{Index: idx, Config: cfg}
	}

	if opts.Workers < 2 {
		for idx := range rows {
			runRow(open, &rows[idx], opts, log)
		}
	} else {
		work := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < min(opts.Workers, len(rows)); w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for idx := range work {
					runRow(open, &rows[idx], opts, log)
				}
			}()
		}
		for idx := range rows {
			work <- idx
		}
		close(work)
		wg.Wait()
	}

	errs := make([]error, 0)
	for idx := range rows {
		row := &rows[idx]
		if row.Err != nil {
			row.Failure = row.Err.Error()
			errs = append(errs, fmt.Errorf("run %d (rate %g Mbps, capacity %d): %w",
				row.Index, row.Config.OutputRateMbps, row.Config.BufferCapacity, row.Err))
		}
	}
	return rows, errors.Join(errs...)
}

// runRow fills in row.  Only the worker that owns row writes to it
func runRow(open SourceFactory, row *Row, opts SweepOptions, log logrus.FieldLogger) {
	rlog := log.WithFields(logrus.Fields{"run": row.Index, "rate": row.Config.OutputRateMbps,
		"capacity": row.Config.BufferCapacity})

	src, err := open()
	if err != nil {
		row.Err = err
		rlog.WithError(err).Error("cannot open packet source")
		return
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	runOpts := opts.Run
	runOpts.Log = rlog
	if opts.Recorder != nil {
		if rec := opts.Recorder.ForRun(row.Index, row.Config); rec != nil {
			runOpts.Observer = rec
			if opts.Run.Observer != nil {
				runOpts.Observer = MultiObserver{rec, opts.Run.Observer}
			}
		}
	}

	rlog.Debug("run started")
	res, err := Run(row.Config, src, runOpts)
	row.Result = res
	row.Err = err
	if err != nil {
		rlog.WithError(err).Warn("run did not complete")
		return
	}
	rlog.WithFields(logrus.Fields{"total": res.Metrics.TotalPkts, "ticks": res.Ticks}).Debug("run finished")
}
