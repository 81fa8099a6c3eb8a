// Package resizer repairs drive strength on a placed netlist. It sizes
// gates toward per-cell characterized target loads and breaks up nets with
// max-capacitance or max-slew violations by inserting buffers along their
// routing trees.
package resizer

import (
	"fmt"
	"log"

	"github.com/abk-openroad/Resizer/histogram"
	"github.com/abk-openroad/Resizer/liberty"
	"github.com/abk-openroad/Resizer/network"
	"github.com/abk-openroad/Resizer/parasitics"
	"github.com/abk-openroad/Resizer/set"
	"github.com/abk-openroad/Resizer/timing"
)

////////////////////////////////////////////////////////////////////////////////

// Options selects the passes of a Resize run.
type Options struct {
	// Per-length wire parasitics, ohms/meter and farads/meter.
	WireRes float64
	WireCap float64

	Corner *timing.Corner

	// Resize runs the gate-sizing pass.
	Resize bool

	// RepairMaxCap and RepairMaxSlew run the buffer-insertion pass on
	// nets violating the corresponding limit.
	RepairMaxCap  bool
	RepairMaxSlew bool

	// BufferCell is the cell inserted by the repair passes.
	BufferCell *liberty.Cell
}

// Resizer owns one design's sizing state: the timing collaborator, the
// parasitics store, the characterized target loads, and the counts and
// histograms reported at the end of a run.
type Resizer struct {
	design     *network.Design
	graph      *timing.Graph
	parasitics *parasitics.Store
	corner     *timing.Corner

	wireRes float64
	wireCap float64

	tgtSlews      [liberty.TransCount]float64
	tgtSlewsValid bool
	targetLoads   map[*liberty.Cell]float64

	levelDrvrVerts      []*timing.Vertex
	levelDrvrVertsValid bool

	uniqueNetIndex    int
	uniqueBufferIndex int

	ResizeCount         int
	InsertedBufferCount int
	RebufferNetCount    int
	AffectedNets        set.Set
	Replacements        histogram.Histogram
	Violations          histogram.Histogram
}

func New(design *network.Design) *Resizer {
	store := parasitics.New()
	r := &Resizer{
		design:     design,
		graph:      timing.NewGraph(design, store),
		parasitics: store,
	}
	r.init()
	return r
}

func (r *Resizer) Design() *network.Design { return r.design }

func (r *Resizer) Graph() *timing.Graph { return r.graph }

func (r *Resizer) Parasitics() *parasitics.Store { return r.parasitics }

func (r *Resizer) init() {
	r.ResizeCount = 0
	r.InsertedBufferCount = 0
	r.RebufferNetCount = 0
	r.AffectedNets = set.New()
	r.Replacements = histogram.New()
	r.Violations = histogram.New()
}

// SetWireRC sets the per-length wire parasitics and rebuilds every net's RC
// model under them.
func (r *Resizer) SetWireRC(wireRes, wireCap float64, corner *timing.Corner) {
	r.wireRes = wireRes
	r.wireCap = wireCap
	r.corner = corner
	r.graph.DelaysInvalid()
	r.MakeParasitics()
}

// Resize runs the selected passes. The wire RC and corner are required;
// a buffer cell is required when a repair pass is selected.
func (r *Resizer) Resize(opts Options) error {
	if opts.Corner == nil {
		return ErrNoCorner
	}
	if opts.WireRes <= 0 || opts.WireCap <= 0 {
		return ErrNoWireRC
	}
	if (opts.RepairMaxCap || opts.RepairMaxSlew) && opts.BufferCell == nil {
		return ErrNoBufferCell
	}

	r.init()
	r.SetWireRC(opts.WireRes, opts.WireCap, opts.Corner)
	r.ensureTargetLoads()

	if opts.Resize {
		r.resizeToTargetSlew()
		log.Printf("Resized %d instances.", r.ResizeCount)
	}
	if opts.RepairMaxCap || opts.RepairMaxSlew {
		r.rebufferAll(opts)
		log.Printf("Inserted %d buffers in %d nets.",
			r.InsertedBufferCount, r.RebufferNetCount)
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// Driver ordering

// ensureLevelDrvrVerts caches the driver vertices in level order. The cache
// is dropped whenever buffer insertion changes the netlist.
func (r *Resizer) ensureLevelDrvrVerts() {
	if r.levelDrvrVertsValid {
		return
	}
	r.levelDrvrVerts = r.graph.DriverVertices()
	r.levelDrvrVertsValid = true
}

func (r *Resizer) invalidateLevelDrvrVerts() {
	r.levelDrvrVerts = nil
	r.levelDrvrVertsValid = false
}

////////////////////////////////////////////////////////////////////////////////
// Violation predicates

func (r *Resizer) hasMaxCapViolation(drvr *network.Pin) bool {
	limit, exists := r.graph.CapLimit(drvr)
	if !exists {
		return false
	}
	return timing.FuzzyGreater(r.graph.LoadCap(drvr), limit)
}

func (r *Resizer) hasMaxSlewViolation(drvr *network.Pin) bool {
	limit, exists := r.graph.SlewLimit(drvr)
	if !exists {
		return false
	}
	for tr := liberty.Rise; tr < liberty.TransCount; tr++ {
		if timing.FuzzyGreater(r.graph.Slew(drvr, tr), limit) {
			return true
		}
	}
	return false
}

////////////////////////////////////////////////////////////////////////////////
// Delay helpers

// gateDelay is the worst delay through any timing arc driving the port at
// the given load, with the characterization slews on the arc inputs.
func (r *Resizer) gateDelay(port *liberty.Port, loadCap float64) (delay float64) {
	for _, arc := range port.Cell.ArcsTo(port) {
		if arc.Model == nil {
			continue
		}
		d, _ := arc.Model.GateDelay(r.tgtSlews[arc.FromTrans], loadCap)
		if d > delay {
			delay = d
		}
	}
	return
}

func (r *Resizer) bufferDelay(buffer *liberty.Cell, loadCap float64) float64 {
	_, out := buffer.BufferPorts()
	return r.gateDelay(out, loadCap)
}

func bufferInputCapacitance(buffer *liberty.Cell) float64 {
	in, _ := buffer.BufferPorts()
	return in.Capacitance()
}

////////////////////////////////////////////////////////////////////////////////
// Unique names

func (r *Resizer) makeUniqueNetName() string {
	for {
		r.uniqueNetIndex++
		name := fmt.Sprintf("net%d", r.uniqueNetIndex)
		if r.design.FindNet(name) == nil {
			return name
		}
	}
}

func (r *Resizer) makeUniqueBufferName() string {
	for {
		r.uniqueBufferIndex++
		name := fmt.Sprintf("buffer%d", r.uniqueBufferIndex)
		if r.design.FindInstance(name) == nil {
			return name
		}
	}
}

////////////////////////////////////////////////////////////////////////////////
// Gate sizing

// resizeToTargetSlew sizes every instance once, visiting drivers from the
// timing endpoints back toward the startpoints.
func (r *Resizer) resizeToTargetSlew() {
	r.ensureLevelDrvrVerts()
	verts := r.levelDrvrVerts
	for i := len(verts) - 1; i >= 0; i-- {
		drvr := verts[i].Pin
		if drvr.Inst != nil {
			r.resizeToTargetSlew1(drvr.Inst)
		}
	}
}

// ResizeInstance sizes a single instance toward its cell's target load.
func (r *Resizer) ResizeInstance(inst *network.Instance) {
	r.ensureTargetLoads()
	r.resizeToTargetSlew1(inst)
}

// resizeToTargetSlew1 picks, among the instance's equivalent cells, the one
// whose target load best matches the load the instance actually drives.
// Sizing up and sizing down are compared symmetrically by load ratio.
func (r *Resizer) resizeToTargetSlew1(inst *network.Instance) {
	cell := inst.Cell
	if cell == nil {
		return
	}
	output := inst.OutputPin()
	if output == nil {
		return
	}
	loadCap := r.graph.LoadCap(output)
	if loadCap <= 0 {
		return
	}

	var best *liberty.Cell
	bestRatio := 0.0
	for _, candidate := range cell.EquivCells() {
		target := r.targetLoad(candidate)
		if target <= 0 {
			continue
		}
		if cell.HasLef && (!candidate.HasLef || !network.PortsMatch(cell, candidate)) {
			continue
		}
		ratio := target / loadCap
		if ratio > 1 {
			ratio = 1 / ratio
		}
		if ratio > bestRatio {
			bestRatio = ratio
			best = candidate
		}
	}

	if best != nil && best != cell {
		r.design.ReplaceCell(inst, best)
		r.ResizeCount++
		r.Replacements.Add(cell.Name + " -> " + best.Name)
		r.graph.DelaysInvalid()
		r.invalidateLevelDrvrVerts()
	}
}
