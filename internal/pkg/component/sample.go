package component

import (
	"math"
	"sort"
)

// Variable is a named physical quantity.
type Variable struct {
	Name  string  `json:"Name" bson:"name"`
	Unit  string  `json:"Unit" bson:"unit"`
	Value float64 `json:"Value" bson:"value"`
}

// Sample holds the outputs of one component at one mission point.
type Sample []Variable

// Get returns the value of the named variable.
func (s Sample) Get(name string) (float64, bool) {
	for _, v := range s {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

// Stat summarizes one variable over a mission.
type Stat struct {
	Unit     string
	Min      float64
	Max      float64
	MaxAbs   float64
	Integral float64 // time integral, value*s
	Points   int
}

// Extremes maps variable names to their mission summary.
type Extremes map[string]Stat

// Accumulate folds a sample taken over dt seconds into ex.
func (ex Extremes) Accumulate(s Sample, dt float64) {
	for _, v := range s {
		st, ok := ex[v.Name]
		if !ok {
			st = Stat{Unit: v.Unit, Min: v.Value, Max: v.Value}
		}
		st.Min = math.Min(st.Min, v.Value)
		st.Max = math.Max(st.Max, v.Value)
		st.MaxAbs = math.Max(st.MaxAbs, math.Abs(v.Value))
		st.Integral += v.Value * dt
		st.Points++
		ex[v.Name] = st
	}
}

// MaxAbs returns the largest magnitude reached by name.
func (ex Extremes) MaxAbs(name string) float64 {
	return ex[name].MaxAbs
}

// Max returns the largest value reached by name.
func (ex Extremes) Max(name string) float64 {
	return ex[name].Max
}

// Min returns the smallest value reached by name.
func (ex Extremes) Min(name string) float64 {
	return ex[name].Min
}

// Integral returns the time integral of name.
func (ex Extremes) Integral(name string) float64 {
	return ex[name].Integral
}

// Sizing is the result of a component sizing.
type Sizing struct {
	Mass float64 `json:"Mass" bson:"mass"` // kg
	// Derating factors above 1.0 flag a design outside its envelope.
	Derating  map[string]float64 `json:"Derating" bson:"derating"`
	Variables []Variable         `json:"Variables" bson:"variables"`
}

// Get returns the value of a sized variable.
func (s Sizing) Get(name string) (float64, bool) {
	return Sample(s.Variables).Get(name)
}

// Overrated lists the derating factors above 1.0, sorted by name.
func (s Sizing) Overrated() []string {
	names := make([]string, 0)
	for k, v := range s.Derating {
		if v > 1 {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// SafeDiv divides a by b, keeping |b| away from zero.
func SafeDiv(a, b float64) float64 {
	if math.Abs(b) < Epsilon {
		if b < 0 {
			return -a / Epsilon
		}
		return a / Epsilon
	}
	return a / b
}
