/*
splitter.go DC splitter joining a primary and a secondary source into one
output. The allocation between the sources is either a commanded split of the
output current or a power share threshold where the primary carries the load up
to the threshold and the secondary takes the excess.
*/

package splitter

import (
	"fmt"
	"math"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
)

var options = []string{"power_split", "power_share", "smoothing", "mass_per_current"}

// Mode is the allocation law of the splitter.
type Mode int

// Allocation laws.
const (
	PowerSplit Mode = iota // commanded share of the output current
	PowerShare             // threshold on the output power
)

func (m Mode) String() string {
	if m == PowerShare {
		return "power_share"
	}
	return "power_split"
}

// Branch is the operating branch of a power share splitter.
type Branch int

// Power share branches.
const (
	PrimaryOnly Branch = iota
	SplitPrimarySecondary
)

func (b Branch) String() string {
	if b == SplitPrimarySecondary {
		return "split_primary_secondary"
	}
	return "primary_only"
}

// Splitter allocates the output current between two DC inputs.
type Splitter struct {
	component.Base
	primary   network.Port
	secondary network.Port
	out       network.Port

	mode      Mode
	split     float64 // primary share, 0..1
	threshold float64 // W
	smoothing float64 // W
	massRate  float64 // kg/A

	branch Branch
}

// New returns a configured splitter. Declaring power_share selects the power
// share mode.
func New(decl topology.Component) (*Splitter, error) {
	b := component.NewBase(decl)
	if err := b.Settings.Check(decl.ID, options...); err != nil {
		return nil, err
	}
	s := &Splitter{
		Base:      b,
		mode:      PowerSplit,
		split:     b.Settings.Get("power_split", 50) / 100,
		threshold: b.Settings.Get("power_share", 0),
		smoothing: b.Settings.Get("smoothing", 0),
		massRate:  b.Settings.Get("mass_per_current", 0.002),
	}
	if b.Settings.Has("power_share") {
		s.mode = PowerShare
		if b.Settings.Has("power_split") {
			return nil, &topology.ConfigurationError{Component: decl.ID, Reason: "power_split and power_share are exclusive"}
		}
	}
	if s.split < 0 || s.split > 1 {
		return nil, &topology.ConfigurationError{Component: decl.ID, Reason: fmt.Sprintf("power_split %v outside [0, 100]", s.split*100)}
	}
	if s.threshold < 0 || s.smoothing < 0 {
		return nil, &topology.ConfigurationError{Component: decl.ID, Reason: "power_share and smoothing must not be negative"}
	}
	return s, nil
}

// Mode returns the allocation law.
func (s *Splitter) Mode() Mode {
	return s.mode
}

// Bind expects inputs labeled primary and secondary.
func (s *Splitter) Bind(ports network.Ports) error {
	if err := ports.Expect(2, topology.ElectricalDC, 1, topology.ElectricalDC); err != nil {
		return err
	}
	p, ok := ports.Labeled(topology.PortPrimary)
	if !ok {
		return fmt.Errorf("no %s input", topology.PortPrimary)
	}
	q, ok := ports.Labeled(topology.PortSecondary)
	if !ok {
		return fmt.Errorf("no %s input", topology.PortSecondary)
	}
	s.primary, s.secondary, s.out = p, q, ports.Out[0]
	return nil
}

// NumResiduals is part of the Component interface.
func (s *Splitter) NumResiduals() int {
	return 3
}

// share is the primary fraction of the output current.
func (s *Splitter) share() float64 {
	iOut := s.out.Current.Value()
	if math.Abs(iOut) < component.Epsilon {
		if s.mode == PowerShare {
			return 1
		}
		return s.split
	}
	return math.Max(0, math.Min(1, s.primary.Current.Value()/iOut))
}

// Excess returns the power above the threshold taken by the secondary and the
// branch it implies for an output power p.
func (s *Splitter) Excess(p float64) (float64, Branch) {
	x := p - s.threshold
	branch := PrimaryOnly
	if x > 0 {
		branch = SplitPrimarySecondary
	}
	if s.smoothing > 0 {
		return softplus(x, s.smoothing), branch
	}
	return math.Max(0, x), branch
}

func softplus(x, w float64) float64 {
	if x/w > 30 {
		return x
	}
	return w * math.Log1p(math.Exp(x/w))
}

// Residuals is part of the Component interface.
func (s *Splitter) Residuals(pt mission.Point, r []float64) {
	i1 := s.primary.Current.Value()
	i2 := s.secondary.Current.Value()
	iOut := s.out.Current.Value()
	sh := s.share()

	r[0] = i1 + i2 - iOut
	r[1] = s.out.Voltage.Value() - (sh*s.primary.Voltage.Value() + (1-sh)*s.secondary.Voltage.Value())

	switch s.mode {
	case PowerShare:
		excess, _ := s.Excess(s.out.Voltage.Value() * iOut)
		r[2] = i2 - component.SafeDiv(excess, s.secondary.Voltage.Value())
	default:
		r[2] = i1 - s.split*iOut
	}
}

// Guess is part of the component.Guesser interface.
func (s *Splitter) Guess(pt mission.Point, pass component.Pass) {
	switch pass {
	case component.Forward:
		s.out.Voltage.Set(s.primary.Voltage.Value())
	case component.Reverse:
		iOut := s.out.Current.Value()
		if s.mode == PowerShare {
			excess, _ := s.Excess(s.out.Voltage.Value() * iOut)
			i2 := component.SafeDiv(excess, s.secondary.Voltage.Value())
			s.secondary.Current.Set(i2)
			s.primary.Current.Set(iOut - i2)
			return
		}
		s.primary.Current.Set(s.split * iOut)
		s.secondary.Current.Set((1 - s.split) * iOut)
	}
}

// Branch reports the power share branch at the current equilibrium.
func (s *Splitter) Branch() string {
	if s.mode != PowerShare {
		return s.mode.String()
	}
	return s.branch.String()
}

// Observe is part of the Component interface.
func (s *Splitter) Observe(pt mission.Point) component.Sample {
	v := s.out.Voltage.Value()
	iOut := s.out.Current.Value()
	active := 0.0
	switch {
	case s.mode == PowerShare:
		_, s.branch = s.Excess(v * iOut)
		if s.branch == SplitPrimarySecondary {
			active = 1
		}
	case s.split < 1:
		active = 1
	}
	return component.Sample{
		{Name: "voltage_out", Unit: "V", Value: v},
		{Name: "voltage_primary", Unit: "V", Value: s.primary.Voltage.Value()},
		{Name: "voltage_secondary", Unit: "V", Value: s.secondary.Voltage.Value()},
		{Name: "current_out", Unit: "A", Value: iOut},
		{Name: "current_primary", Unit: "A", Value: s.primary.Current.Value()},
		{Name: "current_secondary", Unit: "A", Value: s.secondary.Current.Value()},
		{Name: "power_out", Unit: "W", Value: v * iOut},
		{Name: "primary_share", Unit: "-", Value: s.share()},
		{Name: "secondary_active", Unit: "-", Value: active},
	}
}

// Size is part of the Component interface.
func (s *Splitter) Size(ex component.Extremes) component.Sizing {
	iMax := ex.MaxAbs("current_out")
	return component.Sizing{
		Mass:     s.massRate * iMax,
		Derating: map[string]float64{"voltage": ex.Max("voltage_out") / network.MaxVoltage},
		Variables: []component.Variable{
			{Name: "current_max", Unit: "A", Value: iMax},
			{Name: "secondary_charge", Unit: "A*h", Value: ex.Integral("current_secondary") / 3600},
		},
	}
}
