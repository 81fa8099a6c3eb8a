// Package network models a placed gate-level netlist: instances of
// characterized library cells, their pins, the nets connecting them, and
// integer database-unit locations. The resizer mutates it through
// connect/disconnect and make-instance/make-net operations.
package network

import (
	"log"
	"sort"

	"github.com/abk-openroad/Resizer/liberty"
)

////////////////////////////////////////////////////////////////////////////////

// Point is a location in database units.
type Point struct {
	X int `bson:"x"`
	Y int `bson:"y"`
}

// Dist is the Manhattan distance between two points in database units.
func Dist(a, b Point) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

////////////////////////////////////////////////////////////////////////////////

type Design struct {
	Name      string
	Libraries []*liberty.Library
	Insts     map[string]*Instance
	Nets      map[string]*Net
	Ports     map[string]*Pin

	// Database units per micron, from the placement database.
	DbuPerMicron float64
}

func NewDesign(name string, dbuPerMicron float64) *Design {
	return &Design{
		Name:         name,
		Insts:        make(map[string]*Instance),
		Nets:         make(map[string]*Net),
		Ports:        make(map[string]*Pin),
		DbuPerMicron: dbuPerMicron,
	}
}

func (d *Design) AddLibrary(l *liberty.Library) {
	d.Libraries = append(d.Libraries, l)
}

func (d *Design) FindCell(library, cell string) *liberty.Cell {
	for _, l := range d.Libraries {
		if l.Name == library {
			return l.Cell(cell)
		}
	}
	return nil
}

// DbuToMeters converts a length in database units to meters.
func (d *Design) DbuToMeters(dbu int) float64 {
	return float64(dbu) / (d.DbuPerMicron * 1e6)
}

func (d *Design) SortedInstNames() (names []string) {
	for name := range d.Insts {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func (d *Design) SortedNetNames() (names []string) {
	for name := range d.Nets {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func (d *Design) SortedPortNames() (names []string) {
	for name := range d.Ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

////////////////////////////////////////////////////////////////////////////////

type Instance struct {
	Name   string
	Cell   *liberty.Cell
	Loc    Point
	Placed bool
	Pins   map[string]*Pin
}

func (d *Design) MakeInstance(cell *liberty.Cell, name string) *Instance {
	if _, ok := d.Insts[name]; ok {
		log.Fatalf("Duplicate instance name %q", name)
	}
	inst := &Instance{
		Name: name,
		Cell: cell,
		Pins: make(map[string]*Pin),
	}
	for _, pname := range cell.SortedPortNames() {
		port := cell.Ports[pname]
		inst.Pins[pname] = &Pin{
			Inst: inst,
			Port: port,
			Name: pname,
			Dir:  port.Dir,
		}
	}
	d.Insts[name] = inst
	return inst
}

func (d *Design) FindInstance(name string) *Instance {
	return d.Insts[name]
}

func (d *Design) RemoveInstance(inst *Instance) {
	for _, pin := range inst.Pins {
		if pin.Net != nil {
			d.Disconnect(pin)
		}
	}
	delete(d.Insts, inst.Name)
}

func (i *Instance) Pin(port string) *Pin {
	return i.Pins[port]
}

func (i *Instance) SortedPinNames() (names []string) {
	for name := range i.Pins {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func (i *Instance) SetLocation(x, y int) {
	i.Loc = Point{x, y}
	i.Placed = true
}

// OutputPin returns the single output pin of the instance, or nil when the
// instance has zero or more than one output.
func (i *Instance) OutputPin() (output *Pin) {
	for _, name := range i.SortedPinNames() {
		pin := i.Pins[name]
		if pin.Dir == liberty.Output {
			if output != nil {
				return nil
			}
			output = pin
		}
	}
	return
}

// ReplaceCell substitutes the instance's cell, keeping pins and their net
// connections in place. The replacement must carry every port of the
// current cell.
func (d *Design) ReplaceCell(inst *Instance, cell *liberty.Cell) {
	for name, pin := range inst.Pins {
		port := cell.Port(name)
		if port == nil {
			log.Fatalf("Replacement cell %s lacks port %q of %s",
				cell.Name, name, inst.Cell.Name)
		}
		pin.Port = port
		pin.Dir = port.Dir
	}
	inst.Cell = cell
}

// PortsMatch reports whether two cells have the same port footprint.
func PortsMatch(a, b *liberty.Cell) bool {
	if len(a.Ports) != len(b.Ports) {
		return false
	}
	for name, pa := range a.Ports {
		pb := b.Port(name)
		if pb == nil || pa.Dir != pb.Dir {
			return false
		}
	}
	return true
}

////////////////////////////////////////////////////////////////////////////////

type Net struct {
	Name string
	Pins []*Pin

	// IsClock marks nets in the clock network. Clock nets are never
	// rebuffered.
	IsClock bool
}

func (d *Design) MakeNet(name string) *Net {
	if _, ok := d.Nets[name]; ok {
		log.Fatalf("Duplicate net name %q", name)
	}
	net := &Net{Name: name}
	d.Nets[name] = net
	return net
}

func (d *Design) FindNet(name string) *Net {
	return d.Nets[name]
}

func (d *Design) RemoveNet(net *Net) {
	for len(net.Pins) > 0 {
		d.Disconnect(net.Pins[0])
	}
	delete(d.Nets, net.Name)
}

func (d *Design) Connect(pin *Pin, net *Net) {
	if pin.Net != nil {
		log.Fatalf("Pin %s is already connected to %s", pin.PathName(), pin.Net.Name)
	}
	pin.Net = net
	net.Pins = append(net.Pins, pin)
}

func (d *Design) Disconnect(pin *Pin) {
	net := pin.Net
	if net == nil {
		return
	}
	for i, p := range net.Pins {
		if p == pin {
			net.Pins = append(net.Pins[:i], net.Pins[i+1:]...)
			break
		}
	}
	pin.Net = nil
}

func (n *Net) Drivers() (drivers []*Pin) {
	for _, pin := range n.Pins {
		if pin.IsDriver() {
			drivers = append(drivers, pin)
		}
	}
	return
}

func (n *Net) Loads() (loads []*Pin) {
	for _, pin := range n.Pins {
		if pin.IsLoad() {
			loads = append(loads, pin)
		}
	}
	return
}

////////////////////////////////////////////////////////////////////////////////

// Pin is a port occurrence: either a pin of an instance, or a top-level
// design port (Inst == nil).
type Pin struct {
	Inst *Instance
	Port *liberty.Port
	Name string
	Dir  liberty.Dir
	Net  *Net

	// Top-level port location.
	Loc    Point
	Placed bool
}

// MakePort creates a top-level design port.
func (d *Design) MakePort(name string, dir liberty.Dir) *Pin {
	if _, ok := d.Ports[name]; ok {
		log.Fatalf("Duplicate port name %q", name)
	}
	pin := &Pin{Name: name, Dir: dir}
	d.Ports[name] = pin
	return pin
}

func (p *Pin) IsTopLevel() bool {
	return p.Inst == nil
}

func (p *Pin) PathName() string {
	if p.Inst == nil {
		return p.Name
	}
	return p.Inst.Name + "/" + p.Name
}

// IsDriver reports whether the pin drives its net: output pins of
// instances, and top-level input ports (they drive into the design).
func (p *Pin) IsDriver() bool {
	if p.Inst == nil {
		return p.Dir == liberty.Input || p.Dir == liberty.Bidir
	}
	return p.Dir == liberty.Output || p.Dir == liberty.Bidir
}

func (p *Pin) IsLoad() bool {
	if p.Inst == nil {
		return p.Dir == liberty.Output || p.Dir == liberty.Bidir
	}
	return p.Dir == liberty.Input || p.Dir == liberty.Bidir
}

// Capacitance is the worst-case pin capacitance from the liberty port.
// Top-level ports contribute no capacitance.
func (p *Pin) Capacitance() float64 {
	if p.Port == nil {
		return 0
	}
	return p.Port.Capacitance()
}

// Location returns the pin's placement: the owning instance's location, or
// the port's own location for top-level ports.
func (p *Pin) Location() (Point, bool) {
	if p.Inst != nil {
		return p.Inst.Loc, p.Inst.Placed
	}
	return p.Loc, p.Placed
}

func (p *Pin) SetLocation(x, y int) {
	if p.Inst != nil {
		p.Inst.SetLocation(x, y)
		return
	}
	p.Loc = Point{x, y}
	p.Placed = true
}
