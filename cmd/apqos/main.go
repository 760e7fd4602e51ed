package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/iti/apqos"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = newRootCmd()

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

// boundFlags are the flags viper resolves, each overridable by APQOS_<NAME>
var boundFlags = []string{"trace", "synthetic", "synthetic-rate", "admit-limit", "max-ticks",
	"workers", "quantiles", "out", "record", "debug"}

// newRootCmd builds the command and binds its flags into the global viper
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apqos [n]",
		Short: "Access point buffer QoS estimator",
		Long: `apqos replays a packet arrival trace through a bounded FIFO buffer drained
at a constant output rate, and reports delivered, dropped and total packets,
packet loss percentage and average queuing delay.

With no argument the output rate is swept over 11, 6, 30 and 54 Mbps at a
buffer capacity of 100.  With an argument n the rate is fixed at 11 Mbps and
the capacity is swept from 0 to n.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runSweep,
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "experiment file, yaml or json")
	flags.String("trace", "", "trace file of 'arrival_time size_bytes' lines")
	flags.Int("synthetic", 0, "generate this many Poisson arrivals instead of reading a trace")
	flags.Float64("synthetic-rate", 1000.0, "mean packets per second of the synthetic source")
	flags.Int("admit-limit", 0, "most admissions per tick, 0 for no limit")
	flags.Int64("max-ticks", 0, "stop each run after this many ticks, 0 for no bound")
	flags.Int("workers", 1, "runs simulated concurrently")
	flags.Float64Slice("quantiles", nil, "delivered-packet delay quantiles to report")
	flags.String("out", "", "write results to this yaml or json file")
	flags.String("record", "", "write every observation to this yaml or json file")
	flags.Bool("debug", false, "log a line for every buffered, dropped and delivered packet")

	for _, name := range boundFlags {
		cobra.CheckErr(viper.BindPFlag(name, flags.Lookup(name)))
	}
	return cmd
}

func initConfig() {
	viper.SetEnvPrefix("apqos")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// buildConfig layers flags and APQOS_* environment variables over the experiment file
func buildConfig(cmd *cobra.Command, args []string) (*apqos.Config, error) {
	cfg := apqos.DefaultConfig()
	if cfgFile != "" {
		var err error
		cfg, err = apqos.ReadConfig(cfgFile, nil)
		if err != nil {
			return nil, err
		}
	}

	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("maximum buffer size %q: %w", args[0], err)
		}
		cfg.Mode = apqos.BuffersMode
		cfg.Rate = apqos.DefaultRate
		cfg.MaxCapacity = n
	}

	if trace := viper.GetString("trace"); trace != "" {
		cfg.Trace = trace
	}
	if count := viper.GetInt("synthetic"); count > 0 {
		cfg.Trace = ""
		cfg.Synthetic = &apqos.SynthDesc{Name: "synthetic", Count: count,
			PcktRate: viper.GetFloat64("synthetic-rate"), ArrivalDist: "expon", MinSize: 64, MaxSize: 1500}
	}
	if viper.IsSet("admit-limit") {
		cfg.AdmitLimit = viper.GetInt("admit-limit")
	}
	if viper.IsSet("max-ticks") {
		cfg.MaxTicks = viper.GetInt64("max-ticks")
	}
	if viper.IsSet("workers") {
		cfg.Workers = viper.GetInt("workers")
	}
	q, err := quantiles(cmd)
	if err != nil {
		return nil, err
	}
	if len(q) > 0 {
		cfg.Quantiles = q
	}
	if out := viper.GetString("out"); out != "" {
		cfg.Out = out
	}
	if record := viper.GetString("record"); record != "" {
		cfg.Record = record
	}
	return cfg, cfg.Validate()
}

// quantiles reads --quantiles, falling back on a comma or space separated APQOS_QUANTILES
func quantiles(cmd *cobra.Command) ([]float64, error) {
	if cmd.Flags().Changed("quantiles") || !viper.IsSet("quantiles") {
		return cmd.Flags().GetFloat64Slice("quantiles")
	}
	raw := strings.Trim(viper.GetString("quantiles"), "[]")
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	q := make([]float64, 0, len(fields))
	for _, f := range fields {
		p, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("quantile %q: %w", f, err)
		}
		q = append(q, p)
	}
	return q, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	log := logrus.StandardLogger()
	if viper.GetBool("debug") {
		log.SetLevel(logrus.DebugLevel)
	}

	open, err := cfg.SourceFactory()
	if err != nil {
		return err
	}

	opts := cfg.SweepOptions()
	opts.Run.Log = log
	if viper.GetBool("debug") {
		opts.Run.Observer = apqos.CreateLogObserver(log)
	}
	recorder := apqos.CreateRecorder(cfg.Name, cfg.Record != "")
	opts.Recorder = recorder

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s\n\n", apqos.SweepIntro(cfg))

	// failed runs still get a row, the error is reported after the table
	rows, sweepErr := apqos.Sweep(open, cfg.RunConfigs(), opts)
	if err := apqos.WriteTable(out, rows); err != nil {
		return err
	}
	fmt.Fprintln(out)

	if cfg.Out != "" {
		if err := apqos.WriteResults(cfg.Out, rows); err != nil {
			return err
		}
	}
	if _, err := recorder.WriteToFile(cfg.Record); err != nil {
		return err
	}
	return sweepErr
}
