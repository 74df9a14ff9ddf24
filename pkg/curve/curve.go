// Package curve implements keyframed scalar curves with Hermite
// interpolation, used to shape sparkle sizes and intensities.
package curve

import (
	"fmt"
	gomath "math"
	"sort"
	"strings"
)

// WrapMode controls evaluation outside the keyed time range.
type WrapMode uint8

const (
	Clamp    WrapMode = iota // hold the first/last value
	Loop                     // repeat the keyed range
	PingPong                 // repeat the keyed range, mirrored every other cycle
)

// String returns the lower-case mode name.
func (m WrapMode) String() string {
	switch m {
	case Clamp:
		return "clamp"
	case Loop:
		return "loop"
	case PingPong:
		return "pingpong"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m WrapMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *WrapMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "clamp", "once":
		*m = Clamp
	case "loop", "repeat":
		*m = Loop
	case "pingpong", "ping_pong":
		*m = PingPong
	default:
		return fmt.Errorf("unknown wrap mode %q", text)
	}
	return nil
}

// Keyframe is a curve control point. Tangents are slopes (value per unit time).
type Keyframe struct {
	Time       float32 `yaml:"time"`
	Value      float32 `yaml:"value"`
	InTangent  float32 `yaml:"in,omitempty"`
	OutTangent float32 `yaml:"out,omitempty"`
}

// Curve is a piecewise cubic Hermite curve through its keys.
// Keys must be sorted by time; Sort restores the order after edits.
type Curve struct {
	Keys     []Keyframe `yaml:"keys"`
	PreWrap  WrapMode   `yaml:"pre_wrap,omitempty"`
	PostWrap WrapMode   `yaml:"post_wrap,omitempty"`
}

// Constant returns a flat curve over [0, 1].
func Constant(value float32) Curve {
	return Curve{Keys: []Keyframe{{Time: 0, Value: value}, {Time: 1, Value: value}}}
}

// Linear returns a straight line from (t0, v0) to (t1, v1).
func Linear(t0, v0, t1, v1 float32) Curve {
	if t0 == t1 {
		return Constant(v1)
	}
	slope := (v1 - v0) / (t1 - t0)
	return Curve{Keys: []Keyframe{
		{Time: t0, Value: v0, InTangent: slope, OutTangent: slope},
		{Time: t1, Value: v1, InTangent: slope, OutTangent: slope},
	}}
}

// Sort orders keys by time.
func (c *Curve) Sort() {
	sort.SliceStable(c.Keys, func(i, j int) bool { return c.Keys[i].Time < c.Keys[j].Time })
}

// Start returns the time of the first key.
func (c Curve) Start() float32 {
	if len(c.Keys) == 0 {
		return 0
	}
	return c.Keys[0].Time
}

// End returns the time of the last key.
func (c Curve) End() float32 {
	if len(c.Keys) == 0 {
		return 0
	}
	return c.Keys[len(c.Keys)-1].Time
}

// Duration returns End - Start.
func (c Curve) Duration() float32 {
	return c.End() - c.Start()
}

// Evaluate returns the curve value at t. An empty curve evaluates to 0 and a
// single key to its value.
func (c Curve) Evaluate(t float32) float32 {
	switch len(c.Keys) {
	case 0:
		return 0
	case 1:
		return c.Keys[0].Value
	}

	start, end := c.Start(), c.End()
	duration := end - start

	if t < start {
		t = wrap(t, start, duration, c.PreWrap)
	} else if t > end {
		t = wrap(t, start, duration, c.PostWrap)
	}

	// First key whose time is greater than t.
	next := sort.Search(len(c.Keys), func(i int) bool { return c.Keys[i].Time > t })
	switch {
	case next == 0:
		return c.Keys[0].Value
	case next == len(c.Keys):
		return c.Keys[len(c.Keys)-1].Value
	}

	return hermite(c.Keys[next-1], c.Keys[next], t)
}

func wrap(t, start, duration float32, mode WrapMode) float32 {
	if duration <= 0 {
		return start
	}

	switch mode {
	case Loop:
		offset := float32(gomath.Mod(float64(t-start), float64(duration)))
		if offset < 0 {
			offset += duration
		}
		return start + offset
	case PingPong:
		period := 2 * duration
		offset := float32(gomath.Mod(float64(t-start), float64(period)))
		if offset < 0 {
			offset += period
		}
		if offset > duration {
			offset = period - offset
		}
		return start + offset
	default:
		return min(max(t, start), start+duration)
	}
}

func hermite(k0, k1 Keyframe, t float32) float32 {
	dt := k1.Time - k0.Time
	if dt <= 0 {
		return k1.Value
	}

	s := (t - k0.Time) / dt
	s2 := s * s
	s3 := s2 * s

	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2

	return h00*k0.Value + h10*dt*k0.OutTangent + h01*k1.Value + h11*dt*k1.InTangent
}
