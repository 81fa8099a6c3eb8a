package resizer

import (
	"log"

	"github.com/abk-openroad/Resizer/liberty"
)

// Target-load characterization. Reference slews come from the buffer
// population driving ten times its own input capacitance; each cell's
// target load is the capacitance at which its arcs reproduce those slews.

const (
	// Characterization load ratio for the buffer reference slews.
	bufferSlewLoadRatio = 10.0

	// Binary-search seed and relative tolerance for target loads.
	targetLoadCapInit = 1.0e-12
	targetLoadCapTol  = 0.001
)

func (r *Resizer) ensureTargetLoads() {
	if r.targetLoads != nil {
		return
	}
	r.findTargetLoads()
}

// targetLoad is the characterized target load of a cell, zero when none of
// its arcs could be characterized.
func (r *Resizer) targetLoad(cell *liberty.Cell) float64 {
	return r.targetLoads[cell]
}

func (r *Resizer) findTargetLoads() {
	r.ensureBufferTargetSlews()
	r.targetLoads = make(map[*liberty.Cell]float64)
	for _, lib := range r.design.Libraries {
		r.findLibraryTargetLoads(lib)
	}
}

func (r *Resizer) findLibraryTargetLoads(lib *liberty.Library) {
	for _, name := range lib.SortedCellNames() {
		cell := lib.Cells[name]
		r.targetLoads[cell] = r.findCellTargetLoad(cell)
	}
}

// findCellTargetLoad averages the target loads of the cell's delay arcs.
// Check arcs and tristate enable/disable arcs say nothing about drive
// strength and are skipped, as are arcs without a delay model.
func (r *Resizer) findCellTargetLoad(cell *liberty.Cell) float64 {
	total := 0.0
	count := 0
	for _, arc := range cell.Arcs {
		switch arc.Role {
		case liberty.TimingCheck, liberty.TristateEnable, liberty.TristateDisable:
			continue
		}
		if arc.Model == nil {
			continue
		}
		total += r.findTargetLoad(arc, r.tgtSlews[arc.FromTrans])
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// findTargetLoad bisects for the load at which the arc's output slew hits
// the target slew. The input slew is held at zero so the search measures
// drive strength alone.
func (r *Resizer) findTargetLoad(arc *liberty.TimingArc, targetSlew float64) float64 {
	loadCap := targetLoadCapInit
	capStep := targetLoadCapInit
	capTol := targetLoadCapInit * targetLoadCapTol
	for capStep > capTol {
		_, slew := arc.Model.GateDelay(0.0, loadCap)
		if slew > targetSlew {
			loadCap -= capStep
			capStep /= 2
		}
		loadCap += capStep
	}
	return loadCap
}

////////////////////////////////////////////////////////////////////////////////
// Buffer reference slews

func (r *Resizer) ensureBufferTargetSlews() {
	if r.tgtSlewsValid {
		return
	}
	r.findBufferTargetSlews()
	r.tgtSlewsValid = true
}

// findBufferTargetSlews averages, over every buffer in the design's
// libraries, the slew of each buffer driving ten copies of its own input.
// One relaxation feeds the first pass's slew back as the input slew so the
// reference reflects a self-driven buffer chain.
func (r *Resizer) findBufferTargetSlews() {
	var slews [liberty.TransCount]float64
	var counts [liberty.TransCount]int

	for _, lib := range r.design.Libraries {
		for _, buffer := range lib.Buffers() {
			in, out := buffer.BufferPorts()
			if in == nil || out == nil {
				continue
			}
			for _, arc := range buffer.ArcsTo(out) {
				if arc.From != in || arc.Model == nil {
					continue
				}
				loadCap := in.CapacitanceTrans(arc.FromTrans) * bufferSlewLoadRatio
				_, slew := arc.Model.GateDelay(0.0, loadCap)
				_, slew = arc.Model.GateDelay(slew, loadCap)
				slews[arc.ToTrans] += slew
				counts[arc.ToTrans]++
			}
		}
	}

	for tr := liberty.Rise; tr < liberty.TransCount; tr++ {
		if counts[tr] == 0 {
			log.Printf("No buffer arcs found for %s target slew.", tr)
			continue
		}
		r.tgtSlews[tr] = slews[tr] / float64(counts[tr])
	}
}
