package powertrain

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/component/battery"
	"github.com/ohowland/oad_core/internal/pkg/component/propeller"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/msg"
	"github.com/ohowland/oad_core/internal/pkg/solver"
	"github.com/ohowland/oad_core/internal/pkg/topology"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gotest.tools/v3/assert"
)

func build(t *testing.T, path string, opts Options) (*PowerTrain, *topology.Topology) {
	t.Helper()
	top, err := topology.Load(path)
	assert.NilError(t, err)
	p, err := Build(top, opts)
	assert.NilError(t, err)
	return p, top
}

func relClose(a, b, rel float64) bool {
	return math.Abs(a-b) <= rel*math.Max(math.Abs(a), math.Abs(b))
}

func TestBuildIsSquare(t *testing.T) {
	p, _ := build(t, "./testdata/fully_electric.yaml", DefaultOptions())
	assert.Equal(t, p.Unknowns(), 7)
	assert.Equal(t, p.Name(), "fully_electric")

	// the bus voltage is shared by both attached connections
	_, ok := p.State().Lookup("bus.voltage")
	assert.Assert(t, ok)
	_, ok = p.State().Lookup("battery->bus.voltage")
	assert.Assert(t, !ok)

	h, _ := build(t, "./testdata/series_hybrid.yaml", DefaultOptions())
	assert.Equal(t, h.Unknowns(), 20)
}

func TestOrderDeterministic(t *testing.T) {
	p, top := build(t, "./testdata/series_hybrid.yaml", DefaultOptions())
	q, err := Build(top, DefaultOptions())
	assert.NilError(t, err)
	assert.DeepEqual(t, p.Order(), q.Order())
	assert.Equal(t, p.Order()[0], "tank")
	assert.Equal(t, p.PID(), top.PID())
}

func TestBindFailureIsConfigurationError(t *testing.T) {
	top := &topology.Topology{
		Name: "dangling",
		Components: []topology.Component{
			{ID: "propeller", Type: topology.Propeller},
			{ID: "battery", Type: topology.BatteryPack},
			{ID: "bus", Type: topology.DCBus},
		},
		Connections: []topology.Connection{{Source: "battery", Target: "bus"}},
	}
	_, err := Build(top, DefaultOptions())
	var cfg *topology.ConfigurationError
	assert.Assert(t, errors.As(err, &cfg))
	assert.Equal(t, cfg.Component, "propeller")
	assert.ErrorContains(t, err, "expected 1 input port(s), got 0")
}

func TestUnknownOptionIsConfigurationError(t *testing.T) {
	top := &topology.Topology{
		Name:       "typo",
		Components: []topology.Component{{ID: "bus", Type: topology.DCBus, Options: map[string]float64{"voltage": 1}}},
	}
	_, err := Build(top, DefaultOptions())
	assert.ErrorContains(t, err, "bus: unknown option(s) [voltage]")
}

func TestCycleRejected(t *testing.T) {
	top := &topology.Topology{
		Name: "loop",
		Components: []topology.Component{
			{ID: "a", Type: topology.DCCable},
			{ID: "b", Type: topology.DCCable},
		},
		Connections: []topology.Connection{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}},
	}
	_, err := Build(top, DefaultOptions())
	var cycle *topology.GraphCycleError
	assert.Assert(t, errors.As(err, &cycle))
}

func TestEnergyBalance(t *testing.T) {
	p, _ := build(t, "./testdata/fully_electric.yaml", DefaultOptions())
	profile := mission.Constant(5, 60, 80e3, 1000, 60)

	perf, err := p.Performance(profile)
	assert.NilError(t, err)
	assert.Assert(t, perf.Converged(), "%v", perf.Failed())
	assert.Equal(t, len(perf.Samples["battery"]), 5)

	drawn := perf.Integral("battery", "power_out")
	shaft := perf.Integral("propeller", "shaft_power")
	losses := perf.Integral("inverter", "losses") + perf.Integral("motor", "losses")
	assert.Assert(t, drawn > shaft)
	assert.Assert(t, relClose(drawn, shaft+losses, 1e-6), "drawn %v, shaft %v, losses %v", drawn, shaft, losses)

	// the propeller delivers the required propulsive power
	for _, v := range perf.Series("propeller", "propulsive_power") {
		assert.Equal(t, v, 80e3)
	}
}

func TestBusConservation(t *testing.T) {
	p, top := build(t, "./testdata/series_hybrid.yaml", DefaultOptions())
	profile, err := mission.Discretize(top.Mission)
	assert.NilError(t, err)

	perf, err := p.Performance(profile)
	assert.NilError(t, err)
	assert.Assert(t, perf.Converged(), "%v", perf.Failed())

	approx := cmpopts.EquateApprox(0, 1e-6)
	assert.DeepEqual(t, perf.Series("bus", "current_in"), perf.Series("bus", "current_out"), approx)

	primary := perf.Series("splitter", "current_primary")
	secondary := perf.Series("splitter", "current_secondary")
	total := perf.Series("splitter", "current_out")
	sum := make([]float64, len(total))
	for i := range total {
		sum[i] = primary[i] + secondary[i]
	}
	assert.DeepEqual(t, sum, total, approx)
}

func TestSplitterPowerShare(t *testing.T) {
	p, top := build(t, "./testdata/series_hybrid.yaml", DefaultOptions())
	profile, _ := mission.Discretize(top.Mission)
	perf, err := p.Performance(profile)
	assert.NilError(t, err)
	assert.Assert(t, perf.Converged(), "%v", perf.Failed())

	threshold := 100e3
	power := perf.Series("splitter", "power_out")
	secondary := perf.Series("splitter", "current_secondary")
	voltage := perf.Series("splitter", "voltage_secondary")
	seen := map[string]bool{}
	for i := range power {
		if power[i] <= threshold {
			assert.Assert(t, math.Abs(secondary[i]) < 1e-6, "point %d: %v A below threshold", i, secondary[i])
		} else {
			want := (power[i] - threshold) / voltage[i]
			assert.Assert(t, math.Abs(secondary[i]-want) < 1e-6, "point %d: %v A, want %v A", i, secondary[i], want)
		}
		seen[perf.Branches["splitter"][i]] = true
	}
	assert.Assert(t, seen["primary_only"] && seen["split_primary_secondary"], "%v", seen)

	// the engine only burns fuel, idle included
	fuel := perf.Integral("tank", "fuel_flow")
	assert.Assert(t, fuel > 0)
	assert.Assert(t, relClose(fuel, perf.Integral("engine", "fuel_flow"), 1e-9))
}

func TestNonConvergedPointsKept(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	opts := DefaultOptions()
	opts.Solver.MaxIterations = 0
	opts.Logger = zap.New(core)
	p, _ := build(t, "./testdata/fully_electric.yaml", opts)

	perf, err := p.Performance(mission.Constant(5, 60, 80e3, 1000, 60))
	assert.NilError(t, err)
	assert.Assert(t, !perf.Converged())
	assert.Equal(t, len(perf.Failed()), 5)
	assert.Equal(t, len(perf.Samples["motor"]), 5)
	assert.Equal(t, perf.Points[0].Status, solver.Stalled)
	assert.Equal(t, logs.FilterMessage("mission point did not converge").Len(), 5)
}

func TestEmptyProfile(t *testing.T) {
	p, _ := build(t, "./testdata/fully_electric.yaml", DefaultOptions())
	_, err := p.Performance(mission.Profile{})
	assert.ErrorContains(t, err, "no points")
}

func TestEvaluateSizesPowerTrain(t *testing.T) {
	p, top := build(t, "./testdata/fully_electric.yaml", DefaultOptions())
	profile, err := mission.Discretize(top.Mission)
	assert.NilError(t, err)

	res, err := p.Evaluate(profile)
	assert.NilError(t, err)
	assert.Assert(t, res.Converged)
	assert.Assert(t, res.Iterations >= 1 && res.Iterations <= 20)
	assert.Assert(t, res.Performance.Converged())

	assert.Equal(t, len(res.Mass), 5)
	var sum float64
	for _, name := range top.MassVariables() {
		m, ok := res.Mass[name]
		assert.Assert(t, ok, name)
		assert.Assert(t, m > 0, name)
		sum += m
	}
	assert.Assert(t, relClose(sum, res.TotalMass, 1e-12))

	// the pack is resized to the mission energy
	c, _ := p.Component("battery")
	pack := c.(*battery.Pack)
	n, _ := res.Sizing["battery"].Get("cells_in_parallel")
	assert.Equal(t, pack.CellsInParallel(), n)

	assert.Assert(t, res.Energy.Battery > res.Energy.Shaft)
	assert.Equal(t, res.Energy.Fuel, 0.0)
	_, ok := res.Energy.Losses["motor"]
	assert.Assert(t, ok)
}

func TestDefaultPropellerShare(t *testing.T) {
	top, err := topology.Load("../topology/testdata/twin.yaml")
	assert.NilError(t, err)
	p, err := Build(top, DefaultOptions())
	assert.NilError(t, err)

	for _, id := range []string{"propeller_left", "propeller_right"} {
		c, _ := p.Component(id)
		assert.Equal(t, c.(*propeller.Propeller).Share(), 0.5)
	}
}

// recorder collects forwarded messages.
type recorder struct {
	msgs []msg.Msg
}

func (r *recorder) Forward(m msg.Msg) {
	r.msgs = append(r.msgs, m)
}

func (r *recorder) topic(t msg.Topic) []msg.Msg {
	out := make([]msg.Msg, 0)
	for _, m := range r.msgs {
		if m.Topic() == t {
			out = append(out, m)
		}
	}
	return out
}

func TestPublish(t *testing.T) {
	p, _ := build(t, "./testdata/fully_electric.yaml", DefaultOptions())
	res, err := p.Evaluate(mission.Constant(3, 60, 50e3, 500, 60))
	assert.NilError(t, err)

	rec := &recorder{}
	p.Publish(res, rec)

	points := rec.topic(msg.Point)
	assert.Equal(t, len(points), 5*3)
	first := points[0].Payload().(PointRecord)
	assert.Equal(t, first.Component, "battery")
	assert.Equal(t, first.Status, "converged")
	assert.Equal(t, points[0].PID(), topology.PID("battery"))

	sizing := rec.topic(msg.Sizing)
	assert.Equal(t, len(sizing), 5)
	assert.Equal(t, sizing[0].Payload().(SizingRecord).Component, "propeller")

	summary := rec.topic(msg.Summary)
	assert.Equal(t, len(summary), 1)
	s := summary[0].Payload().(SummaryRecord)
	assert.Equal(t, s.Points, 3)
	assert.Equal(t, s.FailedPoints, 0)
	assert.Equal(t, s.TotalMass, res.TotalMass)
	assert.Equal(t, summary[0].PID(), p.PID())
}

func TestSystemResidualsVanishAtSolution(t *testing.T) {
	p, _ := build(t, "./testdata/fully_electric.yaml", DefaultOptions())
	pt := mission.Constant(1, 60, 60e3, 0, 50).Points[0]
	p.reset()
	p.guess(pt, component.Forward, component.Reverse)

	sys := p.System(pt)
	res := solver.Solve(sys, p.State().Values(), DefaultOptions().Solver)
	assert.Equal(t, res.Status, solver.Converged)

	r := make([]float64, sys.Size())
	sys.Residuals(res.X, r)
	for i, v := range r {
		assert.Assert(t, math.Abs(v) < 1e-8, "residual %d = %v", i, v)
	}

	// the bus shares the battery terminal voltage
	bus := mustComponent(t, p, "bus").Observe(pt)
	bat := mustComponent(t, p, "battery").Observe(pt)
	vb, _ := bus.Get("voltage")
	vp, _ := bat.Get("voltage_out")
	assert.Equal(t, vb, vp)
}

func mustComponent(t *testing.T, p *PowerTrain, id string) component.Component {
	t.Helper()
	c, ok := p.Component(id)
	assert.Assert(t, ok, id)
	return c
}

func TestBuildWrapsGraphErrors(t *testing.T) {
	top := &topology.Topology{
		Name:        "ghost",
		Components:  []topology.Component{{ID: "battery", Type: topology.BatteryPack}},
		Connections: []topology.Connection{{Source: "battery", Target: "ghost"}},
	}
	_, err := Build(top, DefaultOptions())
	var cfg *topology.ConfigurationError
	assert.Assert(t, errors.As(err, &cfg), "%T", err)
	assert.ErrorContains(t, err, "end node ghost does not exist in graph.")
}

func TestResultEnergyBalance(t *testing.T) {
	p, top := build(t, "./testdata/fully_electric.yaml", DefaultOptions())
	profile, err := mission.Discretize(top.Mission)
	assert.NilError(t, err)

	res, err := p.Evaluate(profile)
	assert.NilError(t, err)
	e := res.Energy
	assert.Assert(t, relClose(e.Battery, e.Shaft+e.TotalLosses(), 1e-6),
		"battery %v, shaft %v, losses %v", e.Battery, e.Shaft, e.TotalLosses())

	_, ok := e.Losses["battery"]
	assert.Assert(t, !ok)
	assert.Assert(t, relClose(e.Storage, res.Performance.Integral("battery", "losses"), 1e-12))
	assert.Assert(t, e.Storage > 0)
}

func TestIdlePointsConverge(t *testing.T) {
	for _, f := range []string{"fully_electric.yaml", "series_hybrid.yaml"} {
		p, _ := build(t, "./testdata/"+f, DefaultOptions())
		perf, err := p.Performance(mission.Constant(3, 60, 0, 0, 0))
		assert.NilError(t, err)
		assert.Assert(t, perf.Converged(), "%s: %v", f, perf.Failed())
		for _, v := range perf.Series("propeller", "shaft_power") {
			assert.Equal(t, v, 0.0, f)
		}
	}
}

func TestTaxiSegment(t *testing.T) {
	p, top := build(t, "./testdata/series_hybrid.yaml", DefaultOptions())
	profile, err := mission.Discretize(top.Mission)
	assert.NilError(t, err)
	assert.Equal(t, profile.Points[0].Phase, mission.Taxi)

	perf, err := p.Performance(profile)
	assert.NilError(t, err)
	assert.Assert(t, perf.Converged(), "%v", perf.Failed())

	secondary := perf.Series("splitter", "current_secondary")
	output := perf.Series("splitter", "power_out")
	for i, pt := range profile.Points {
		if pt.Phase != mission.Taxi {
			continue
		}
		// the idle draw stays on the battery
		assert.Assert(t, output[i] < 100e3, "point %d: %v W", i, output[i])
		assert.Assert(t, math.Abs(secondary[i]) < 1e-6, "point %d: %v A", i, secondary[i])
		assert.Equal(t, perf.Branches["splitter"][i], "primary_only")
	}
}

func TestEvaluateKeepsDesignAtIterationLimit(t *testing.T) {
	top, err := topology.Load("./testdata/fully_electric.yaml")
	assert.NilError(t, err)
	top.Components[0].Options["cells_in_parallel"] = 200

	opts := DefaultOptions()
	opts.MaxIterations = 1
	p, err := Build(top, opts)
	assert.NilError(t, err)
	profile, _ := mission.Discretize(top.Mission)

	res, err := p.Evaluate(profile)
	assert.NilError(t, err)
	assert.Assert(t, !res.Converged)
	assert.Equal(t, res.Iterations, 1)

	// the pack is oversized, but the result describes the evaluated design
	n, _ := res.Sizing["battery"].Get("cells_in_parallel")
	assert.Assert(t, n < 200)
	c, _ := p.Component("battery")
	assert.Equal(t, c.(*battery.Pack).CellsInParallel(), 200.0)
}
