package apqos

// report.go formats sweep rows, as a table for people and as yaml or json for tools

import (
	"fmt"
	"io"
	"strings"
)

var tableRule = strings.Repeat("#", 88)

// TableHeader is the column line written above the rows
const TableHeader = "Incoming Pkts \tDelivered Pkts \tLost Pkts \tPkt Loss % \tAvg. Queuing Delay (sec)"

// WriteTable writes one line per row between ruled header and footer lines
func WriteTable(w io.Writer, rows []Row) error {
	if _, err := fmt.Fprintf(w, "%s\n%s\n%s\n", tableRule, TableHeader, tableRule); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, FormatRow(row)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s\n", tableRule)
	return err
}

// FormatRow renders a single row: counts, loss to 2 decimals, delay to 6
func FormatRow(row Row) string {
	res := row.Result
	switch {
	case res == nil:
		return fmt.Sprintf("run %d failed: %v", row.Index, row.Err)
	case res.NoPackets:
		return fmt.Sprintf("0 \t\t0 \t\t0 \t\t%s", ErrNoPackets)
	}
	line := fmt.Sprintf("%d \t\t%d \t\t%d \t\t%.2f \t\t%.6f", res.Metrics.TotalPkts,
		res.Metrics.DeliveredPkts, res.Metrics.DroppedPkts, res.LossPct, res.AvgDelay)
	if res.Truncated {
		line += " \t(truncated)"
	}
	return line
}

// SweepIntro describes the sweep about to be printed
func SweepIntro(cfg *Config) string {
	if cfg.Mode == BuffersMode {
		return fmt.Sprintf("Outputting summary statistics for outbound WiFi transmission rate = %g,\n"+
			"while varying buffer size from 0 to %d ...", cfg.Rate, cfg.MaxCapacity)
	}
	rates := make([]string, 0, len(cfg.Rates))
	for _, r := range cfg.Rates {
		rates = append(rates, fmt.Sprintf("%g", r))
	}
	return fmt.Sprintf("Outputting summary statistics for outbound WiFi transmission rate = %s...",
		strings.Join(rates, ", "))
}

// WriteResults stores rows to the file whose name is given, yaml or json as its extension selects
func WriteResults(filename string, rows []Row) error {
	return writeEncoded(filename, rows)
}
