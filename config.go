package apqos

// config.go holds the description of an experiment: which trace to
// replay, which sweep to run over it, and how each run is tuned

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidRate is returned for a non-positive output rate
	ErrInvalidRate = errors.New("output rate must be positive")

	// ErrInvalidMode is returned for a sweep mode other than "rates" or "buffers"
	ErrInvalidMode = errors.New("unknown sweep mode")

	// ErrFileFormat is returned for a file name whose extension is neither yaml nor json
	ErrFileFormat = errors.New("file extension must be .yaml, .yml or .json")

	// ErrNoSource is returned when neither a trace nor a synthetic source is configured
	ErrNoSource = errors.New("no packet source configured")
)

const (
	RatesMode   = "rates"   // vary the output rate at a fixed capacity
	BuffersMode = "buffers" // vary the capacity 0..MaxCapacity at a fixed rate
)

// Config describes an experiment
type Config struct {
	Name        string     `json:"name" yaml:"name"`
	Trace       string     `json:"trace" yaml:"trace"`                             // trace file path
	Synthetic   *SynthDesc `json:"synthetic,omitempty" yaml:"synthetic,omitempty"` // used when Trace is empty
	Mode        string     `json:"mode" yaml:"mode"`
	Rates       []float64  `json:"rates" yaml:"rates"`       // RatesMode: Mbps
	Capacity    int        `json:"capacity" yaml:"capacity"` // RatesMode: packets
	Rate        float64    `json:"rate" yaml:"rate"`         // BuffersMode: Mbps
	MaxCapacity int        `json:"maxcapacity" yaml:"maxcapacity"`
	AdmitLimit  int        `json:"admitlimit" yaml:"admitlimit"`
	MaxTicks    int64      `json:"maxticks" yaml:"maxticks"`
	Quantiles   []float64  `json:"quantiles,omitempty" yaml:"quantiles,omitempty"`
	Workers     int        `json:"workers" yaml:"workers"`
	Out         string     `json:"out,omitempty" yaml:"out,omitempty"`       // results file, yaml or json
	Record      string     `json:"record,omitempty" yaml:"record,omitempty"` // observation dump, yaml or json
}

// DefaultConfig returns the default configuration: the rate sweep at capacity 100
func DefaultConfig() *Config {
	return &Config{
		Name:        "apqos",
		Mode:        RatesMode,
		Rates:       slices.Clone(DefaultRates),
		Capacity:    DefaultCapacity,
		Rate:        DefaultRate,
		MaxCapacity: DefaultCapacity,
		Workers:     1,
	}
}

// ReadConfig deserializes a byte slice holding a representation of a Config,
// layered over DefaultConfig.  If dict is empty the file whose name is given
// is read to acquire the bytes, and its extension selects yaml or json
func ReadConfig(filename string, dict []byte) (*Config, error) {
	var err error
	useYAML := true
	if len(dict) == 0 {
		switch path.Ext(filename) {
		case ".yaml", ".YAML", ".yml":
		case ".json", ".JSON":
			useYAML = false
		default:
			return nil, fmt.Errorf("%s: %w", filename, ErrFileFormat)
		}
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := DefaultConfig()
	if useYAML {
		err = yaml.Unmarshal(dict, cfg)
	} else {
		err = json.Unmarshal(dict, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// WriteToFile stores the Config to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (cfg *Config) WriteToFile(filename string) error {
	return writeEncoded(filename, cfg)
}

// Validate checks that every run the Config describes can terminate
func (cfg *Config) Validate() error {
	if cfg.Trace == "" && cfg.Synthetic == nil {
		return ErrNoSource
	}
	for _, p := range cfg.Quantiles {
		if p < 0.0 || p > 1.0 {
			return fmt.Errorf("%w: %g", ErrInvalidQuantile, p)
		}
	}
	switch cfg.Mode {
	case RatesMode:
		if len(cfg.Rates) == 0 {
			return fmt.Errorf("%w: empty rate list", ErrInvalidRate)
		}
		if slices.ContainsFunc(cfg.Rates, func(r float64) bool { return r <= 0.0 }) {
			return fmt.Errorf("%w: %v", ErrInvalidRate, cfg.Rates)
		}
		if cfg.Capacity < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidCapacity, cfg.Capacity)
		}
	case BuffersMode:
		if cfg.Rate <= 0.0 {
			return fmt.Errorf("%w: %g", ErrInvalidRate, cfg.Rate)
		}
		if cfg.MaxCapacity < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidCapacity, cfg.MaxCapacity)
		}
	default:
		return fmt.Errorf("%w %q", ErrInvalidMode, cfg.Mode)
	}
	return nil
}

// RunConfigs expands the sweep the Config describes
func (cfg *Config) RunConfigs() []RunConfig {
	if cfg.Mode == BuffersMode {
		return CapacitySweep(cfg.Rate, cfg.MaxCapacity)
	}
	return RateSweep(cfg.Rates, cfg.Capacity)
}

// SourceFactory returns the factory that gives each run its packets.  A trace
// is reopened per run; synthetic packets are generated once and replayed
func (cfg *Config) SourceFactory() (SourceFactory, error) {
	if cfg.Trace != "" {
		return TraceFactory(cfg.Trace), nil
	}
	if cfg.Synthetic == nil {
		return nil, ErrNoSource
	}
	recs, err := Generate(*cfg.Synthetic)
	if err != nil {
		return nil, err
	}
	return SliceFactory(recs), nil
}

// SweepOptions translates the run tuning of the Config
func (cfg *Config) SweepOptions() SweepOptions {
	return SweepOptions{
		Run: Options{
			AdmitLimit: cfg.AdmitLimit,
			MaxTicks:   cfg.MaxTicks,
			Quantiles:  slices.Clone(cfg.Quantiles),
		},
		Workers: cfg.Workers,
	}
}
