package apqos

// packet.go holds the packet records that flow from a PacketSource
// through the access point buffer

// PacketRecord is one arrival read from a trace, before any admission decision
type PacketRecord struct {
	ArrivalTime float64 `json:"arrival" yaml:"arrival"` // seconds since the start of the trace
	SizeBytes   int     `json:"size" yaml:"size"`       // bytes on the wire
}

// BufferedPacket is a packet that has been given an id and presented to the buffer.
// Arrival and departure are held in single precision, the width the delay sum is
// accumulated in.
type BufferedPacket struct {
	ID            int     `json:"id" yaml:"id"`
	SizeBytes     int     `json:"size" yaml:"size"`
	ArrivalTime   float32 `json:"arrival" yaml:"arrival"`
	DepartureTime float32 `json:"departure" yaml:"departure"`
	Departed      bool    `json:"departed" yaml:"departed"` // DepartureTime is unset until true
}

// createBufferedPacket is a constructor
func createBufferedPacket(id int, rec PacketRecord) BufferedPacket {
	return BufferedPacket{ID: id, SizeBytes: rec.SizeBytes, ArrivalTime: float32(rec.ArrivalTime)}
}

// Delay is the time the packet spent queued, zero if it has not departed
func (bp *BufferedPacket) Delay() float32 {
	if !bp.Departed {
		return 0.0
	}
	return bp.DepartureTime - bp.ArrivalTime
}
