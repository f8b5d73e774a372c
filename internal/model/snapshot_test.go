package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendMsgPackHeader(t *testing.T) {
	s := Snapshot{Mode: ModeMonitoring, Metrics: map[string]float64{}}
	frame := s.AppendMsgPack(nil)

	require.NotEmpty(t, frame)
	assert.Equal(t, byte(0x9c), frame[0], "top level must be FixArray(12)")

	// Element [0] is the mode string as a FixStr.
	assert.Equal(t, byte(0xa0|len("monitoring")), frame[1])
	assert.Equal(t, "monitoring", string(frame[2:2+len("monitoring")]))
}

func TestAppendMsgPackDeterministic(t *testing.T) {
	s := Snapshot{
		Mode:     ModeMonitoring,
		Tick:     42,
		Time:     1700000000,
		Metrics:  map[string]float64{"cpu_percent": 12.5, "ram_percent": 48.0, "a": 1},
		Severity: 0.25,
		Risk:     3.5,
		Status:   StatusNormal,
	}

	// Map iteration order must not leak into the frame.
	a := s.AppendMsgPack(nil)
	for i := 0; i < 16; i++ {
		assert.Equal(t, a, s.AppendMsgPack(nil))
	}
}

func TestAppendMsgPackMetricsSorted(t *testing.T) {
	s := Snapshot{
		Mode:    ModeTraining,
		Metrics: map[string]float64{"zz": 1, "aa": 2},
	}
	frame := s.AppendMsgPack(nil)

	// "aa" must be encoded before "zz" regardless of insertion order.
	aaIdx := indexOf(frame, []byte("aa"))
	zzIdx := indexOf(frame, []byte("zz"))
	require.GreaterOrEqual(t, aaIdx, 0)
	require.GreaterOrEqual(t, zzIdx, 0)
	assert.Less(t, aaIdx, zzIdx)
}

func TestAppendMsgPackReusesBuffer(t *testing.T) {
	s := Snapshot{Mode: ModeTraining, Metrics: map[string]float64{"m": 1}}

	buf := make([]byte, 0, 512)
	frame := s.AppendMsgPack(buf)
	assert.Equal(t, cap(buf), cap(frame), "encoding within capacity must not reallocate")
}

func TestAppendMsgPackBooleans(t *testing.T) {
	s := Snapshot{Mode: ModeMonitoring, Metrics: map[string]float64{}, Frozen: true, Alarm: false}
	frame := s.AppendMsgPack(nil)

	// Frozen then alarm are the final two bytes of the frame.
	require.GreaterOrEqual(t, len(frame), 2)
	assert.Equal(t, byte(0xc3), frame[len(frame)-2])
	assert.Equal(t, byte(0xc2), frame[len(frame)-1])
}

func indexOf(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
