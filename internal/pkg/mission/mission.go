/*
mission.go Discretized flight profile. Every component array produced by the
performance pass is aligned on the Point index of a Profile.
*/

package mission

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Phase labels the flight segment a point belongs to.
type Phase string

// Mission phases.
const (
	Taxi    Phase = "taxi"
	Climb   Phase = "climb"
	Cruise  Phase = "cruise"
	Descent Phase = "descent"
	Reserve Phase = "reserve"
)

// Known reports whether p is a recognized phase.
func (p Phase) Known() bool {
	switch p {
	case Taxi, Climb, Cruise, Descent, Reserve:
		return true
	}
	return false
}

// Range is a linearly interpolated quantity over a segment. In YAML it is
// either a scalar (constant) or a {start, end} mapping.
type Range struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// UnmarshalYAML accepts a scalar or a mapping.
func (r *Range) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var v float64
		if err := value.Decode(&v); err != nil {
			return err
		}
		r.Start, r.End = v, v
		return nil
	}
	type plain Range
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = Range(p)
	return nil
}

// At interpolates the range at fraction f in [0, 1].
func (r Range) At(f float64) float64 {
	return r.Start + (r.End-r.Start)*f
}

// Segment is the declarative description of one flight segment.
type Segment struct {
	Phase    Phase   `yaml:"phase"`
	Duration float64 `yaml:"duration"` // s
	Points   int     `yaml:"points"`
	Altitude Range   `yaml:"altitude"` // m
	Airspeed Range   `yaml:"airspeed"` // m/s, true airspeed
	Power    Range   `yaml:"power"`    // W, required propulsive power
}

// Definition is the mission block of a topology file.
type Definition struct {
	Segments []Segment `yaml:"segments"`
}

// Validate reports the first inconsistency found in the segment list.
func (d Definition) Validate() error {
	for i, s := range d.Segments {
		if !s.Phase.Known() {
			return fmt.Errorf("segment %d: unknown phase %q", i, s.Phase)
		}
		if s.Duration <= 0 {
			return fmt.Errorf("segment %d: duration must be positive", i)
		}
		if s.Points < 1 {
			return fmt.Errorf("segment %d: at least one point is required", i)
		}
		if s.Airspeed.Start < 0 || s.Airspeed.End < 0 {
			return fmt.Errorf("segment %d: negative airspeed", i)
		}
	}
	return nil
}

// Point is one sample of the discretized flight profile.
type Point struct {
	Index    int
	Time     float64 // s, end of the step
	Dt       float64 // s
	Altitude float64 // m
	Airspeed float64 // m/s
	Phase    Phase
	Power    float64 // W
	Density  float64 // kg/m**3
}

// Profile is the ordered list of mission points.
type Profile struct {
	Points []Point
}

// Len returns the number of points in the profile.
func (p Profile) Len() int {
	return len(p.Points)
}

// Duration returns the total time covered by the profile.
func (p Profile) Duration() float64 {
	var t float64
	for _, pt := range p.Points {
		t += pt.Dt
	}
	return t
}

// Discretize samples each segment at its mid-step so every point represents
// a dt wide slice of the segment.
func Discretize(d Definition) (Profile, error) {
	if len(d.Segments) == 0 {
		return Profile{}, errors.New("mission has no segments")
	}
	if err := d.Validate(); err != nil {
		return Profile{}, err
	}

	points := make([]Point, 0)
	var t float64
	for _, s := range d.Segments {
		dt := s.Duration / float64(s.Points)
		for i := 0; i < s.Points; i++ {
			f := (float64(i) + 0.5) / float64(s.Points)
			t += dt
			alt := s.Altitude.At(f)
			points = append(points, Point{
				Index:    len(points),
				Time:     t,
				Dt:       dt,
				Altitude: alt,
				Airspeed: s.Airspeed.At(f),
				Phase:    s.Phase,
				Power:    s.Power.At(f),
				Density:  Density(alt),
			})
		}
	}
	return Profile{points}, nil
}

// Constant builds a synthetic single-phase cruise profile of n points at
// constant propulsive power.
func Constant(n int, dt, power, altitude, airspeed float64) Profile {
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{
			Index:    i,
			Time:     float64(i+1) * dt,
			Dt:       dt,
			Altitude: altitude,
			Airspeed: airspeed,
			Phase:    Cruise,
			Power:    power,
			Density:  Density(altitude),
		}
	}
	return Profile{points}
}
