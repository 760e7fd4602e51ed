package apqos

import (
	"github.com/iti/evt/vrtime"
)

// TimeUnit is the simulation tick, in seconds.  The clock advances by repeated
// addition of this constant, and both the clock and the output budget are
// sensitive to its value.
const TimeUnit = 0.000001

// StartTime is the clock reading at the first tick of every run
const StartTime = 0.0

// Clock is a fixed increment simulation clock
type Clock struct {
	now   float64 // global time in seconds
	ticks int64   // number of completed advances
}

// createClock is a constructor
func createClock() *Clock {
	clk := new(Clock)
	clk.now = StartTime
	return clk
}

// Seconds is the current global time
func (clk *Clock) Seconds() float64 {
	return clk.now
}

// Ticks is the number of times the clock has advanced
func (clk *Clock) Ticks() int64 {
	return clk.ticks
}

// Advance moves the clock forward one tick
func (clk *Clock) Advance() {
	clk.now += TimeUnit
	clk.ticks += 1
}

// VrTime expresses the current reading as a vrtime stamp, with the tick
// count carried as the priority so observations within an instant stay ordered
func (clk *Clock) VrTime() vrtime.Time {
	return vrtime.CreateTime(vrtime.SecondsToTicks(clk.now), clk.ticks)
}
