// Package timing is a lightweight static-timing collaborator for the
// resizer. It levelizes a pin-resolution vertex graph over the netlist,
// propagates arrivals and slews forward with the liberty delay models,
// propagates required times backward from constrained endpoints, and
// answers the load-capacitance, limit, and clock-network queries the
// engine needs. A full STA engine can stand in behind the same queries.
package timing

import (
	"log"
	"sort"

	"github.com/abk-openroad/Resizer/liberty"
	"github.com/abk-openroad/Resizer/network"
	"github.com/abk-openroad/Resizer/parasitics"
	"github.com/abk-openroad/Resizer/queue"
	"github.com/abk-openroad/Resizer/set"
)

////////////////////////////////////////////////////////////////////////////////

type MinMax int

const (
	Min MinMax = iota
	Max
)

type Corner struct {
	Name string
}

// AnalysisPt is the (corner, min/max) tuple delays are evaluated under.
// Only a single max corner is used.
type AnalysisPt struct {
	Corner *Corner
	MinMax MinMax
}

////////////////////////////////////////////////////////////////////////////////

// Vertex is a pin-resolution node of the timing graph.
type Vertex struct {
	Pin   *network.Pin
	Level int

	arrival [liberty.TransCount]float64
	slew    [liberty.TransCount]float64
	required float64
	isClock  bool
}

////////////////////////////////////////////////////////////////////////////////

type Graph struct {
	Design     *network.Design
	Parasitics *parasitics.Store

	vertices  map[*network.Pin]*Vertex
	byLevel   []*Vertex
	clockNets set.Set

	levelized      bool
	delaysValid    bool
	requiredsValid bool

	inputSlews  map[*network.Pin][liberty.TransCount]float64
	endpointReq map[*network.Pin]float64

	designSlewLimit    float64
	hasDesignSlewLimit bool
	portSlewLimits     map[*network.Pin]float64
	pinSlewLimits      map[*network.Pin]float64
}

func NewGraph(design *network.Design, store *parasitics.Store) *Graph {
	return &Graph{
		Design:         design,
		Parasitics:     store,
		inputSlews:     make(map[*network.Pin][liberty.TransCount]float64),
		endpointReq:    make(map[*network.Pin]float64),
		portSlewLimits: make(map[*network.Pin]float64),
		pinSlewLimits:  make(map[*network.Pin]float64),
	}
}

// DelaysInvalid discards the levelization and all propagated values. The
// resizer calls this whenever it mutates the netlist or its parasitics;
// everything is recomputed lazily on the next query.
func (g *Graph) DelaysInvalid() {
	g.levelized = false
	g.delaysValid = false
	g.requiredsValid = false
}

// SetRequired constrains an endpoint pin's required arrival time.
func (g *Graph) SetRequired(pin *network.Pin, req float64) {
	g.endpointReq[pin] = req
	g.requiredsValid = false
}

// SetInputSlew sets the external driver slew of a top-level input port.
func (g *Graph) SetInputSlew(pin *network.Pin, rise, fall float64) {
	g.inputSlews[pin] = [liberty.TransCount]float64{rise, fall}
	g.delaysValid = false
}

func (g *Graph) SetDesignSlewLimit(limit float64) {
	g.designSlewLimit = limit
	g.hasDesignSlewLimit = true
}

func (g *Graph) SetPortSlewLimit(pin *network.Pin, limit float64) {
	g.portSlewLimits[pin] = limit
}

func (g *Graph) SetPinSlewLimit(pin *network.Pin, limit float64) {
	g.pinSlewLimits[pin] = limit
}

////////////////////////////////////////////////////////////////////////////////
// Levelization

func (g *Graph) EnsureLevelized() {
	if g.levelized {
		return
	}
	g.buildVertices()
	g.findClockNets()
	g.levelize()
	g.levelized = true
}

func (g *Graph) buildVertices() {
	g.vertices = make(map[*network.Pin]*Vertex)
	g.byLevel = nil

	add := func(pin *network.Pin) {
		v := &Vertex{Pin: pin, required: Inf}
		g.vertices[pin] = v
		g.byLevel = append(g.byLevel, v)
	}

	for _, name := range g.Design.SortedPortNames() {
		add(g.Design.Ports[name])
	}
	for _, iname := range g.Design.SortedInstNames() {
		inst := g.Design.Insts[iname]
		for _, pname := range inst.SortedPinNames() {
			add(inst.Pins[pname])
		}
	}
}

// findClockNets seeds the clock network from marked nets and follows it
// through buffer cells.
func (g *Graph) findClockNets() {
	g.clockNets = set.New()
	work := queue.New()

	for _, name := range g.Design.SortedNetNames() {
		net := g.Design.Nets[name]
		if net.IsClock {
			g.clockNets.Add(net.Name)
			work.Push(net)
		}
	}

	for !work.Empty() {
		net := work.Pop().(*network.Net)
		for _, load := range net.Loads() {
			inst := load.Inst
			if inst == nil || !inst.Cell.IsBuffer {
				continue
			}
			out := inst.OutputPin()
			if out == nil || out.Net == nil || g.clockNets.Has(out.Net.Name) {
				continue
			}
			g.clockNets.Add(out.Net.Name)
			work.Push(out.Net)
		}
	}

	for pin, v := range g.vertices {
		v.isClock = pin.Net != nil && g.clockNets.Has(pin.Net.Name)
	}
}

// levelize assigns each vertex the longest path length from a startpoint.
// Clock vertices stay on the startpoint frontier.
func (g *Graph) levelize() {
	work := queue.New()
	for _, v := range g.byLevel {
		v.Level = 0
		if v.Pin.IsDriver() {
			work.Push(v)
		}
	}

	// Relaxation bound; exceeding it means a combinational loop.
	limit := len(g.byLevel) * len(g.byLevel) * 4
	pops := 0

	for !work.Empty() {
		pops++
		if pops > limit && limit > 0 {
			log.Fatal("Combinational loop detected during levelization")
		}
		v := work.Pop().(*Vertex)

		if v.Pin.IsDriver() {
			// Wire edges: driver -> loads on the net.
			if v.Pin.Net == nil {
				continue
			}
			for _, load := range v.Pin.Net.Loads() {
				lv := g.vertices[load]
				if lv == nil || lv.isClock {
					continue
				}
				if lv.Level < v.Level+1 {
					lv.Level = v.Level + 1
					work.Push(lv)
				}
			}
		} else if v.Pin.Inst != nil {
			// Gate edges: input pin -> output pins with arcs from it.
			for _, arc := range v.Pin.Inst.Cell.Arcs {
				if arc.Role == liberty.TimingCheck || arc.From != v.Pin.Port {
					continue
				}
				out := v.Pin.Inst.Pin(arc.To.Name)
				ov := g.vertices[out]
				if ov == nil {
					continue
				}
				if ov.Level < v.Level+1 {
					ov.Level = v.Level + 1
					work.Push(ov)
				}
			}
		}
	}

	g.sortByLevel()
}

func (g *Graph) sortByLevel() {
	// Stable (level, path-name) order underpins deterministic traversal.
	sort.SliceStable(g.byLevel, func(i, j int) bool {
		return vertexLess(g.byLevel[i], g.byLevel[j])
	})
}

func vertexLess(a, b *Vertex) bool {
	if a.Level != b.Level {
		return a.Level < b.Level
	}
	return a.Pin.PathName() < b.Pin.PathName()
}

////////////////////////////////////////////////////////////////////////////////
// Queries

func (g *Graph) Vertex(pin *network.Pin) *Vertex {
	g.EnsureLevelized()
	return g.vertices[pin]
}

func (g *Graph) Level(pin *network.Pin) int {
	v := g.Vertex(pin)
	if v == nil {
		return 0
	}
	return v.Level
}

func (g *Graph) IsClock(v *Vertex) bool {
	return v.isClock
}

// DriverVertices returns the driver-pin vertices in (level, path-name)
// ascending order.
func (g *Graph) DriverVertices() (drivers []*Vertex) {
	g.EnsureLevelized()
	for _, v := range g.byLevel {
		if v.Pin.IsDriver() {
			drivers = append(drivers, v)
		}
	}
	return
}

// LoadCap is the capacitance seen by a driver pin: the loads' pin
// capacitances plus the net's wire capacitance.
func (g *Graph) LoadCap(drvr *network.Pin) (cap float64) {
	if drvr.Net == nil {
		return 0
	}
	for _, load := range drvr.Net.Loads() {
		cap += load.Capacitance()
	}
	cap += g.Parasitics.WireCap(drvr.Net)
	return
}

func (g *Graph) Arrival(pin *network.Pin, tr liberty.Trans) float64 {
	g.ensureDelays()
	v := g.vertices[pin]
	if v == nil {
		return 0
	}
	return v.arrival[tr]
}

func (g *Graph) Slew(pin *network.Pin, tr liberty.Trans) float64 {
	g.ensureDelays()
	v := g.vertices[pin]
	if v == nil {
		return 0
	}
	return v.slew[tr]
}

// Required is the required arrival time at a pin for the max analysis;
// +Inf when the pin is unconstrained.
func (g *Graph) Required(pin *network.Pin) float64 {
	g.ensureRequireds()
	v := g.vertices[pin]
	if v == nil {
		return Inf
	}
	return v.required
}

// CapLimit returns the max-capacitance limit of a driver pin's liberty
// port.
func (g *Graph) CapLimit(drvr *network.Pin) (limit float64, exists bool) {
	if drvr.Port == nil {
		return 0, false
	}
	return drvr.Port.CapLimit, drvr.Port.HasCapLimit
}

// SlewLimit resolves the tightest applicable max-slew limit for a pin:
// the design-level limit, the port constraint for top-level ports, and
// the pin constraint plus the liberty port limit otherwise.
func (g *Graph) SlewLimit(pin *network.Pin) (limit float64, exists bool) {
	limit = g.designSlewLimit
	exists = g.hasDesignSlewLimit

	tighten := func(l float64, ok bool) {
		if ok && (!exists || l < limit) {
			limit = l
			exists = true
		}
	}

	if pin.IsTopLevel() {
		l, ok := g.portSlewLimits[pin]
		tighten(l, ok)
	} else {
		l, ok := g.pinSlewLimits[pin]
		tighten(l, ok)
		if pin.Port != nil && pin.Port.HasSlewLimit {
			tighten(pin.Port.SlewLimit, true)
		}
	}
	return
}

////////////////////////////////////////////////////////////////////////////////
// Arrival and slew propagation

func (g *Graph) ensureDelays() {
	g.EnsureLevelized()
	if g.delaysValid {
		return
	}

	for _, v := range g.byLevel {
		v.arrival = [liberty.TransCount]float64{}
		v.slew = [liberty.TransCount]float64{}
	}

	for _, v := range g.byLevel {
		pin := v.Pin
		switch {
		case pin.IsTopLevel() && pin.IsDriver():
			if slews, ok := g.inputSlews[pin]; ok {
				v.slew = slews
			}

		case pin.IsLoad():
			if pin.Net == nil {
				continue
			}
			delay := g.Parasitics.WireDelay(pin.Net)
			for _, drvr := range pin.Net.Drivers() {
				dv := g.vertices[drvr]
				if dv == nil {
					continue
				}
				for tr := liberty.Rise; tr < liberty.TransCount; tr++ {
					if dv.arrival[tr]+delay > v.arrival[tr] {
						v.arrival[tr] = dv.arrival[tr] + delay
					}
					if dv.slew[tr] > v.slew[tr] {
						v.slew[tr] = dv.slew[tr]
					}
				}
			}

		case pin.Inst != nil && pin.Dir == liberty.Output:
			loadCap := g.LoadCap(pin)
			for _, arc := range pin.Inst.Cell.Arcs {
				if arc.To != pin.Port || arc.Model == nil || arc.Role == liberty.TimingCheck {
					continue
				}
				in := g.vertices[pin.Inst.Pin(arc.From.Name)]
				if in == nil {
					continue
				}
				inSlew := in.slew[arc.FromTrans]
				delay, slew := arc.Model.GateDelay(inSlew, loadCap)
				arrival := in.arrival[arc.FromTrans] + delay
				if arrival > v.arrival[arc.ToTrans] {
					v.arrival[arc.ToTrans] = arrival
				}
				if slew > v.slew[arc.ToTrans] {
					v.slew[arc.ToTrans] = slew
				}
			}
		}
	}

	g.delaysValid = true
}

////////////////////////////////////////////////////////////////////////////////
// Required propagation

func (g *Graph) ensureRequireds() {
	g.ensureDelays()
	if g.requiredsValid {
		return
	}

	for _, v := range g.byLevel {
		v.required = Inf
		if req, ok := g.endpointReq[v.Pin]; ok {
			v.required = req
		}
	}

	// Reverse level order: a vertex's fanout has strictly higher levels.
	for i := len(g.byLevel) - 1; i >= 0; i-- {
		v := g.byLevel[i]
		pin := v.Pin

		if pin.IsDriver() {
			if pin.Net == nil {
				continue
			}
			delay := g.Parasitics.WireDelay(pin.Net)
			for _, load := range pin.Net.Loads() {
				lv := g.vertices[load]
				if lv == nil || FuzzyInf(lv.required) {
					continue
				}
				if lv.required-delay < v.required {
					v.required = lv.required - delay
				}
			}
		} else if pin.Inst != nil {
			loadCaps := make(map[*network.Pin]float64)
			for _, arc := range pin.Inst.Cell.Arcs {
				if arc.From != pin.Port || arc.Model == nil || arc.Role == liberty.TimingCheck {
					continue
				}
				out := pin.Inst.Pin(arc.To.Name)
				ov := g.vertices[out]
				if ov == nil || FuzzyInf(ov.required) {
					continue
				}
				cap, ok := loadCaps[out]
				if !ok {
					cap = g.LoadCap(out)
					loadCaps[out] = cap
				}
				inSlew := v.slew[arc.FromTrans]
				delay, _ := arc.Model.GateDelay(inSlew, cap)
				if ov.required-delay < v.required {
					v.required = ov.required - delay
				}
			}
		}
	}

	g.requiredsValid = true
}
