package apqos

// budget.go holds the output budget, the byte credit the outbound
// channel has built up for draining the buffer

// BytesPerMegabit converts an output rate in Mbps to bytes per second.
// Trace rates are expressed in binary megabits, 131072 bytes each.
const BytesPerMegabit = 131072

// MbpsToBytesPerSecond converts a channel rate to the byte rate the budget grows at
func MbpsToBytesPerSecond(mbps float64) float64 {
	return mbps * BytesPerMegabit
}

// OutputBudget accumulates byte credit while packets are waiting.  The credit
// is held in single precision and grows by small per-tick increments, so its
// value depends on the tick length; see TimeUnit.
type OutputBudget struct {
	avail float32
}

// Tick grows the budget by rate*dt if the buffer holds packets, and forces it to
// zero if the buffer is empty, so no credit is banked across an idle period
func (ob *OutputBudget) Tick(rateBytesPerSec, dt float64, bufferNonEmpty bool) {
	if !bufferNonEmpty {
		ob.avail = 0
		return
	}
	ob.avail = float32(float64(ob.avail) + dt*rateBytesPerSec)
}

// Available returns the current byte credit
func (ob *OutputBudget) Available() float32 {
	return ob.avail
}

// Covers is true when the credit is enough to send a packet of sizeBytes
func (ob *OutputBudget) Covers(sizeBytes int) bool {
	return ob.avail >= float32(sizeBytes)
}

// Consume spends credit on a delivered packet.  The caller checks Covers first
func (ob *OutputBudget) Consume(sizeBytes int) {
	ob.avail -= float32(sizeBytes)
}
