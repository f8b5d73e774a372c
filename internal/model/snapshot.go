package model

import (
	"math"
	"sort"
)

// Mode is the engine operating mode carried on every snapshot.
type Mode string

const (
	ModeTraining   Mode = "training"
	ModeMonitoring Mode = "monitoring"
)

// Status classifies the current risk level of a monitoring snapshot.
type Status string

const (
	StatusNormal   Status = "Normal"
	StatusElevated Status = "Elevated"
	StatusAnomaly  Status = "Anomaly"
)

// Snapshot — immutable point-in-time copy of the engine state,
// published once per tick. Metrics is the fresh map the collector
// returned for that tick, and the engine never touches a snapshot
// after publishing, so readers may hold it without copying.
//
// MsgPack wire format: FixArray(12)
//
//	[0]  mode       str ("training"|"monitoring")
//	[1]  tick       int64
//	[2]  time       int64 (unix seconds)
//	[3]  metrics    FixMap(name → float64), keys in sorted order
//	[4]  progress   int64 (training only, else 0)
//	[5]  target     int64 (training only, else 0)
//	[6]  severity   float64
//	[7]  risk       float64
//	[8]  status     str ("" while training)
//	[9]  divergence float64
//	[10] frozen     bool
//	[11] alarm      bool
type Snapshot struct {
	Mode    Mode
	Tick    uint64
	Time    int64
	Metrics map[string]float64

	// Training fields
	Progress int
	Target   int

	// Monitoring fields
	Severity   float64
	Risk       float64
	Status     Status
	Divergence float64
	Frozen     bool
	Alarm      bool
}

// AppendMsgPack appends the MsgPack representation of the Snapshot to
// the provided buffer. Serialization happens once per snapshot in the
// broadcast hub; the buffer is reused across clients.
func (s *Snapshot) AppendMsgPack(b []byte) []byte {
	b = append(b, 0x9c) // FixArray(12)

	b = appendString(b, string(s.Mode))
	b = appendInt64(b, int64(s.Tick))
	b = appendInt64(b, s.Time)
	b = appendMetrics(b, s.Metrics)
	b = appendInt64(b, int64(s.Progress))
	b = appendInt64(b, int64(s.Target))
	b = appendFloat64(b, s.Severity)
	b = appendFloat64(b, s.Risk)
	b = appendString(b, string(s.Status))
	b = appendFloat64(b, s.Divergence)
	b = appendBool(b, s.Frozen)
	b = appendBool(b, s.Alarm)

	return b
}

// appendMetrics encodes the metrics map as a FixMap with sorted keys
// so frames are byte-stable for identical snapshots. The map never
// exceeds the feature dimension cap, so FixMap (≤15 pairs) suffices.
func appendMetrics(b []byte, metrics map[string]float64) []byte {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b = append(b, 0x80|byte(len(keys))) // FixMap(n)
	for _, k := range keys {
		b = appendString(b, k)
		b = appendFloat64(b, metrics[k])
	}
	return b
}

func appendString(b []byte, s string) []byte {
	if len(s) <= 31 {
		b = append(b, 0xa0|byte(len(s))) // FixStr
	} else {
		b = append(b, 0xd9, byte(len(s))) // str8, metric names stay short
	}
	return append(b, s...)
}

func appendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 0xc3)
	}
	return append(b, 0xc2)
}

func appendFloat64(b []byte, v float64) []byte {
	b = append(b, 0xcb)
	bits := math.Float64bits(v)
	return append(b, byte(bits>>56), byte(bits>>48), byte(bits>>40), byte(bits>>32),
		byte(bits>>24), byte(bits>>16), byte(bits>>8), byte(bits))
}

func appendInt64(b []byte, v int64) []byte {
	// positive fixint
	if v >= 0 && v <= 127 {
		return append(b, byte(v))
	}
	// negative fixint
	if v < 0 && v >= -32 {
		return append(b, byte(v))
	}
	b = append(b, 0xd3)
	return append(b, byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
