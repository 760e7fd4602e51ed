package apqos

// observe.go holds the hooks through which the engine reports each
// admission, drop and delivery as it happens

import (
	"github.com/iti/evt/vrtime"
	"github.com/sirupsen/logrus"
)

// ObservationKind says what happened to a packet
type ObservationKind int

const (
	BufferedObs ObservationKind = iota
	DroppedObs
	DeliveredObs
)

var okToStr map[ObservationKind]string = map[ObservationKind]string{
	BufferedObs: "BUFFERED", DroppedObs: "DROPPED", DeliveredObs: "DELIVERED"}

func (obk ObservationKind) String() string {
	return okToStr[obk]
}

// Observation is a snapshot of the simulation state taken when a packet changes hands.
// BufferLen and Budget are read before the change is applied
type Observation struct {
	Kind      ObservationKind
	Time      float64 // global time
	Tick      int64
	Stamp     vrtime.Time // Time and Tick as a vrtime stamp, Tick as priority
	BufferLen int
	Budget    float32
	Packet    BufferedPacket
}

// Observer receives observations in the order they occur
type Observer interface {
	Observe(Observation)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(Observation)

func (f ObserverFunc) Observe(obs Observation) {
	f(obs)
}

// MultiObserver fans an observation out to each member in turn
type MultiObserver []Observer

func (mo MultiObserver) Observe(obs Observation) {
	for _, o := range mo {
		o.Observe(obs)
	}
}

// LogObserver writes a debug line per observation
type LogObserver struct {
	Log logrus.FieldLogger
}

// CreateLogObserver is a constructor; a nil logger selects the logrus standard logger
func CreateLogObserver(log logrus.FieldLogger) *LogObserver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogObserver{Log: log}
}

func (lo *LogObserver) Observe(obs Observation) {
	lo.Log.Debugf("Global time: %f, Buff: %d, Proc: %f", obs.Time, obs.BufferLen, obs.Budget)
	lo.Log.Debugf("\t%-10s ID: %d, A: %f, D: %f, Size: %d", obs.Kind.String()+":",
		obs.Packet.ID, obs.Packet.ArrivalTime, obs.Packet.DepartureTime, obs.Packet.SizeBytes)
}
