// Package liberty holds the characterized standard-cell model consumed by
// the resizer: cells, ports, timing arcs and their delay models. It is a
// data model, not a parser; a library is built programmatically or loaded
// from the mongo cache.
package liberty

import (
	"sort"
)

////////////////////////////////////////////////////////////////////////////////

// Trans is a transition direction index. Rise and Fall are also used to
// index per-transition arrays.
type Trans int

const (
	Rise Trans = iota
	Fall
	TransCount
)

func (t Trans) String() string {
	if t == Rise {
		return "rise"
	}
	return "fall"
}

type Dir int

const (
	Input Dir = iota
	Output
	Bidir
)

// Role classifies a timing arc. Only combinational arcs participate in
// target-load characterization.
type Role int

const (
	Combinational Role = iota
	TimingCheck
	TristateEnable
	TristateDisable
)

////////////////////////////////////////////////////////////////////////////////

type Library struct {
	Name  string
	Cells map[string]*Cell
}

func NewLibrary(name string) *Library {
	return &Library{
		Name:  name,
		Cells: make(map[string]*Cell),
	}
}

func (l *Library) Cell(name string) *Cell {
	return l.Cells[name]
}

// Buffers returns the cells marked as buffers, sorted by name for stable
// iteration.
func (l *Library) Buffers() (buffers []*Cell) {
	for _, name := range l.SortedCellNames() {
		c := l.Cells[name]
		if c.IsBuffer {
			buffers = append(buffers, c)
		}
	}
	return
}

func (l *Library) SortedCellNames() (names []string) {
	for name := range l.Cells {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

////////////////////////////////////////////////////////////////////////////////

type Cell struct {
	Library  *Library
	Name     string
	Ports    map[string]*Port
	Arcs     []*TimingArc
	IsBuffer bool

	// HasLef is set for cells that carry a physical (LEF) view. A LEF
	// cell may only be swapped for another LEF cell with the same port
	// footprint.
	HasLef bool

	equiv []*Cell
}

func (l *Library) NewCell(name string) *Cell {
	c := &Cell{
		Library: l,
		Name:    name,
		Ports:   make(map[string]*Port),
	}
	l.Cells[name] = c
	return c
}

func (c *Cell) String() string {
	return c.Library.Name + "/" + c.Name
}

func (c *Cell) NewPort(name string, dir Dir, riseCap, fallCap float64) *Port {
	p := &Port{
		Cell:    c,
		Name:    name,
		Dir:     dir,
		RiseCap: riseCap,
		FallCap: fallCap,
	}
	c.Ports[name] = p
	return p
}

func (c *Cell) Port(name string) *Port {
	return c.Ports[name]
}

func (c *Cell) SortedPortNames() (names []string) {
	for name := range c.Ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func (c *Cell) AddArc(a *TimingArc) {
	c.Arcs = append(c.Arcs, a)
}

// BufferPorts returns the input and output ports of a buffer cell.
func (c *Cell) BufferPorts() (in, out *Port) {
	for _, name := range c.SortedPortNames() {
		p := c.Ports[name]
		switch p.Dir {
		case Input:
			if in == nil {
				in = p
			}
		case Output:
			if out == nil {
				out = p
			}
		}
	}
	return
}

// EquivCells returns the equivalence class of the cell, including the cell
// itself. Nil when the cell has not been linked into a class.
func (c *Cell) EquivCells() []*Cell {
	return c.equiv
}

// MakeEquivCells links a set of functionally interchangeable cells into one
// equivalence class, sorted by name for deterministic candidate order.
func MakeEquivCells(cells ...*Cell) {
	sort.Slice(cells, func(i, j int) bool {
		return cells[i].Name < cells[j].Name
	})
	for _, c := range cells {
		c.equiv = cells
	}
}

////////////////////////////////////////////////////////////////////////////////

type Port struct {
	Cell    *Cell
	Name    string
	Dir     Dir
	RiseCap float64
	FallCap float64

	CapLimit     float64
	HasCapLimit  bool
	SlewLimit    float64
	HasSlewLimit bool
}

// Capacitance is the worst-case (max of rise and fall) pin capacitance.
func (p *Port) Capacitance() float64 {
	if p.RiseCap > p.FallCap {
		return p.RiseCap
	}
	return p.FallCap
}

// CapacitanceTrans is the pin capacitance seen by one transition.
func (p *Port) CapacitanceTrans(tr Trans) float64 {
	if tr == Rise {
		return p.RiseCap
	}
	return p.FallCap
}

func (p *Port) SetCapLimit(limit float64) {
	p.CapLimit = limit
	p.HasCapLimit = true
}

func (p *Port) SetSlewLimit(limit float64) {
	p.SlewLimit = limit
	p.HasSlewLimit = true
}

////////////////////////////////////////////////////////////////////////////////

type TimingArc struct {
	From      *Port
	To        *Port
	FromTrans Trans
	ToTrans   Trans
	Role      Role

	// Model is nil for arcs that have no gate-delay interface; such arcs
	// are excluded from characterization.
	Model GateModel
}

// ArcsTo returns the arcs driving the given output port.
func (c *Cell) ArcsTo(out *Port) (arcs []*TimingArc) {
	for _, a := range c.Arcs {
		if a.To == out {
			arcs = append(arcs, a)
		}
	}
	return
}
