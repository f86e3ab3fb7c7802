/*
battery.go Battery pack made of identical cells: cells_in_series cells per
string, cells_in_parallel strings. The terminal voltage follows the open
circuit voltage of the cell minus its internal resistance drop. The open
circuit voltage is tabulated every 10 % of charge and can be overridden with
the ocv_<soc> options.
*/

package battery

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/network"
	"github.com/ohowland/oad_core/internal/pkg/topology"
)

// NominalCellVoltage is used to convert cell capacity into energy.
const NominalCellVoltage = 3.7 // V

// OCVCharge and OCVTable are the default cell open circuit voltage curve,
// in percent of charge and volts.
var (
	OCVCharge = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	OCVTable  = []float64{3.300, 3.385, 3.461, 3.532, 3.602, 3.675, 3.754, 3.842, 3.943, 4.061, 4.200}
)

var defaultOCV = fitOCV(OCVTable)

func fitOCV(volts []float64) interp.PiecewiseLinear {
	var pl interp.PiecewiseLinear
	pl.Fit(OCVCharge, volts)
	return pl
}

func ocvOption(soc float64) string {
	return fmt.Sprintf("ocv_%d", int(soc))
}

var options = append([]string{
	"cells_in_series",
	"cells_in_parallel",
	"cell_capacity",
	"cell_resistance",
	"cell_mass",
	"max_cell_current",
	"soc_initial",
	"soc_min",
	"packaging_factor",
	"resize",
}, ocvOptions()...)

func ocvOptions() []string {
	names := make([]string, len(OCVCharge))
	for i, soc := range OCVCharge {
		names[i] = ocvOption(soc)
	}
	return names
}

// Pack is a battery pack asset.
type Pack struct {
	component.Base
	out network.Port

	series         float64
	parallel       float64
	capacity       float64 // A.h per cell
	resistance     float64 // ohm per cell
	cellMass       float64 // kg
	maxCellCurrent float64 // A
	socInitial     float64 // %
	socMin         float64 // %
	packaging      float64
	resize         bool
	ocv            interp.PiecewiseLinear

	soc float64 // %, at the start of the current point
}

// New returns a configured battery pack.
func New(decl topology.Component) (*Pack, error) {
	b := component.NewBase(decl)
	if err := b.Settings.Check(decl.ID, options...); err != nil {
		return nil, err
	}
	if err := b.Settings.Positive(decl.ID, "cells_in_series", "cells_in_parallel", "cell_capacity", "cell_mass", "max_cell_current"); err != nil {
		return nil, err
	}
	p := &Pack{
		Base:           b,
		series:         b.Settings.Get("cells_in_series", 110),
		parallel:       b.Settings.Get("cells_in_parallel", 40),
		capacity:       b.Settings.Get("cell_capacity", 5.0),
		resistance:     b.Settings.Get("cell_resistance", 0.02),
		cellMass:       b.Settings.Get("cell_mass", 0.05),
		maxCellCurrent: b.Settings.Get("max_cell_current", 15),
		socInitial:     b.Settings.Get("soc_initial", 100),
		socMin:         b.Settings.Get("soc_min", 10),
		packaging:      b.Settings.Get("packaging_factor", 1.3),
		resize:         b.Settings.Get("resize", 1) != 0,
	}
	volts := make([]float64, len(OCVTable))
	for i, soc := range OCVCharge {
		volts[i] = b.Settings.Get(ocvOption(soc), OCVTable[i])
		if i > 0 && volts[i] <= volts[i-1] {
			return nil, &topology.ConfigurationError{
				Component: decl.ID,
				Reason:    fmt.Sprintf("open circuit voltage must increase with charge, %s is %v", ocvOption(soc), volts[i]),
			}
		}
	}
	p.ocv = fitOCV(volts)
	p.Reset()
	return p, nil
}

// OpenCircuitVoltage returns the default cell open circuit voltage at a state
// of charge given in percent.
func OpenCircuitVoltage(soc float64) float64 {
	return defaultOCV.Predict(math.Max(0, math.Min(100, soc)))
}

// CellVoltage returns the open circuit voltage of one cell of the pack.
func (p *Pack) CellVoltage(soc float64) float64 {
	return p.ocv.Predict(math.Max(0, math.Min(100, soc)))
}

// Bind attaches the single DC output.
func (p *Pack) Bind(ports network.Ports) error {
	if err := ports.Expect(0, "", 1, topology.ElectricalDC); err != nil {
		return err
	}
	p.out = ports.Out[0]
	return nil
}

// NumResiduals is part of the Component interface.
func (p *Pack) NumResiduals() int {
	return 1
}

// TerminalVoltage returns the pack voltage delivering current i.
func (p *Pack) TerminalVoltage(i float64) float64 {
	return p.series * (p.CellVoltage(p.soc) - p.resistance*i/p.parallel)
}

// Residuals is part of the Component interface.
func (p *Pack) Residuals(pt mission.Point, r []float64) {
	r[0] = p.out.Voltage.Value() - p.TerminalVoltage(p.out.Current.Value())
}

// Guess seeds the terminal voltage with the open circuit voltage.
func (p *Pack) Guess(pt mission.Point, pass component.Pass) {
	if pass == component.Forward {
		p.out.Voltage.Set(p.TerminalVoltage(0))
	}
}

// Observe is part of the Component interface.
func (p *Pack) Observe(pt mission.Point) component.Sample {
	v := p.out.Voltage.Value()
	i := p.out.Current.Value()
	cell := i / p.parallel
	return component.Sample{
		{Name: "voltage_out", Unit: "V", Value: v},
		{Name: "current_out", Unit: "A", Value: i},
		{Name: "power_out", Unit: "W", Value: v * i},
		{Name: "cell_current", Unit: "A", Value: cell},
		{Name: "c_rate", Unit: "1/h", Value: cell / p.capacity},
		{Name: "open_circuit_voltage", Unit: "V", Value: p.series * p.CellVoltage(p.soc)},
		{Name: "losses", Unit: "W", Value: p.series * p.parallel * p.resistance * cell * cell},
		{Name: "soc", Unit: "%", Value: p.soc},
	}
}

// Advance discharges the pack over the point duration.
func (p *Pack) Advance(pt mission.Point) {
	ah := p.out.Current.Value() * pt.Dt / 3600
	p.soc -= 100 * ah / (p.capacity * p.parallel)
}

// Reset recharges the pack to its initial state of charge.
func (p *Pack) Reset() {
	p.soc = p.socInitial
}

// SOC returns the state of charge at the start of the current point.
func (p *Pack) SOC() float64 {
	return p.soc
}

// CellsInParallel returns the current number of parallel strings.
func (p *Pack) CellsInParallel() float64 {
	return p.parallel
}

// Size is part of the Component interface.
func (p *Pack) Size(ex component.Extremes) component.Sizing {
	iMax := ex.MaxAbs("current_out")
	energy := math.Max(0, ex.Integral("power_out")) / 3600 // W.h
	window := (p.socInitial - p.socMin) / 100

	byCurrent := iMax / p.maxCellCurrent
	byEnergy := component.SafeDiv(energy, p.series*p.capacity*NominalCellVoltage*window)
	required := math.Ceil(math.Max(1, math.Max(byCurrent, byEnergy)))

	drawn := 100 * math.Max(0, ex.Integral("current_out")) / 3600 / (p.capacity * p.parallel) // % of capacity

	return component.Sizing{
		Mass: p.series * required * p.cellMass * p.packaging,
		Derating: map[string]float64{
			"current":   iMax / p.parallel / p.maxCellCurrent,
			"discharge": component.SafeDiv(drawn, p.socInitial-p.socMin),
		},
		Variables: []component.Variable{
			{Name: "cells_in_parallel", Unit: "-", Value: required},
			{Name: "energy_consumed", Unit: "W*h", Value: energy},
			{Name: "capacity", Unit: "A*h", Value: required * p.capacity},
		},
	}
}

// Resize adopts the required number of parallel strings.
func (p *Pack) Resize(s component.Sizing) bool {
	if !p.resize {
		return false
	}
	n, ok := s.Get("cells_in_parallel")
	if !ok || n == p.parallel {
		return false
	}
	p.parallel = n
	return true
}
