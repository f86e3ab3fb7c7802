package powertrain

import (
	"github.com/ohowland/oad_core/internal/pkg/component"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/msg"
	"github.com/ohowland/oad_core/internal/pkg/topology"
)

// Forwarder broadcasts messages on behalf of their sender.
type Forwarder interface {
	Forward(msg.Msg)
}

// PointRecord is the msg.Point payload: one component at one mission point.
type PointRecord struct {
	Run       string               `json:"Run" bson:"run"`
	Component string               `json:"Component" bson:"component"`
	Type      topology.Type        `json:"Type" bson:"type"`
	Index     int                  `json:"Index" bson:"index"`
	Time      float64              `json:"Time" bson:"time"`
	Phase     mission.Phase        `json:"Phase" bson:"phase"`
	Status    string               `json:"Status" bson:"status"`
	Branch    string               `json:"Branch,omitempty" bson:"branch,omitempty"`
	Variables []component.Variable `json:"Variables" bson:"variables"`
}

// SizingRecord is the msg.Sizing payload.
type SizingRecord struct {
	Run       string               `json:"Run" bson:"run"`
	Component string               `json:"Component" bson:"component"`
	Type      topology.Type        `json:"Type" bson:"type"`
	Variable  string               `json:"Variable" bson:"variable"` // mass variable path
	Mass      float64              `json:"Mass" bson:"mass"`
	Derating  map[string]float64   `json:"Derating" bson:"derating"`
	Overrated []string             `json:"Overrated" bson:"overrated"`
	Variables []component.Variable `json:"Variables" bson:"variables"`
}

// SummaryRecord is the msg.Summary payload.
type SummaryRecord struct {
	Run          string             `json:"Run" bson:"run"`
	Iterations   int                `json:"Iterations" bson:"iterations"`
	Converged    bool               `json:"Converged" bson:"converged"`
	Points       int                `json:"Points" bson:"points"`
	FailedPoints int                `json:"FailedPoints" bson:"failed_points"`
	TotalMass    float64            `json:"TotalMass" bson:"total_mass"`
	Mass         map[string]float64 `json:"Mass" bson:"mass"`
	Energy       Energy             `json:"Energy" bson:"energy"`
}

// Publish broadcasts the points, sizings and summary of res. Point and sizing
// messages are sent on behalf of their component.
func (p *PowerTrain) Publish(res *Result, pub Forwarder) {
	perf := res.Performance
	for _, id := range p.order {
		c := p.components[id]
		for i, s := range perf.Samples[id] {
			pt := perf.Profile.Points[i]
			rec := PointRecord{
				Run:       res.Name,
				Component: id,
				Type:      c.Type(),
				Index:     pt.Index,
				Time:      pt.Time,
				Phase:     pt.Phase,
				Status:    perf.Points[i].Status.String(),
				Variables: s,
			}
			if b, ok := perf.Branches[id]; ok {
				rec.Branch = b[i]
			}
			pub.Forward(msg.New(c.PID(), msg.Point, rec))
		}
	}

	for _, id := range p.reverse {
		c := p.components[id]
		s := res.Sizing[id]
		pub.Forward(msg.New(c.PID(), msg.Sizing, SizingRecord{
			Run:       res.Name,
			Component: id,
			Type:      c.Type(),
			Variable:  topology.VariableName(c.Type(), id, "mass"),
			Mass:      s.Mass,
			Derating:  s.Derating,
			Overrated: s.Overrated(),
			Variables: s.Variables,
		}))
	}

	pub.Forward(msg.New(p.pid, msg.Summary, res.Summary()))
}

// Summary condenses res into its summary record.
func (res *Result) Summary() SummaryRecord {
	return SummaryRecord{
		Run:          res.Name,
		Iterations:   res.Iterations,
		Converged:    res.Converged,
		Points:       res.Performance.Profile.Len(),
		FailedPoints: len(res.Performance.Failed()),
		TotalMass:    res.TotalMass,
		Mass:         res.Mass,
		Energy:       res.Energy,
	}
}
