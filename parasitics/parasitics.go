// Package parasitics stores per-net RC networks. The resizer registers a
// pi model per Steiner branch; the timing graph reads total wire
// capacitance and a lumped RC wire delay back out.
package parasitics

import (
	"fmt"

	"github.com/abk-openroad/Resizer/network"
)

type Node struct {
	Name string
	Cap  float64
}

type Resistor struct {
	N1, N2 *Node
	Res    float64
}

// Parasitic is the RC network of one net.
type Parasitic struct {
	Net       *network.Net
	Nodes     []*Node
	Resistors []*Resistor

	pinNodes     map[*network.Pin]*Node
	steinerNodes map[int]*Node
}

type Store struct {
	nets map[*network.Net]*Parasitic
}

func New() *Store {
	return &Store{
		nets: make(map[*network.Net]*Parasitic),
	}
}

// MakeParasiticNetwork starts a fresh RC network for the net, dropping any
// previous model.
func (s *Store) MakeParasiticNetwork(net *network.Net) *Parasitic {
	p := &Parasitic{
		Net:          net,
		pinNodes:     make(map[*network.Pin]*Node),
		steinerNodes: make(map[int]*Node),
	}
	s.nets[net] = p
	return p
}

func (s *Store) Find(net *network.Net) *Parasitic {
	return s.nets[net]
}

func (s *Store) Delete(net *network.Net) {
	delete(s.nets, net)
}

// WireCap is the total wire capacitance of a net's model, zero when the
// net has none.
func (s *Store) WireCap(net *network.Net) float64 {
	p := s.nets[net]
	if p == nil {
		return 0
	}
	return p.TotalCap()
}

// WireDelay is a lumped RC estimate of the net's wire delay.
func (s *Store) WireDelay(net *network.Net) float64 {
	p := s.nets[net]
	if p == nil {
		return 0
	}
	return p.TotalRes() * p.TotalCap()
}

////////////////////////////////////////////////////////////////////////////////

func (p *Parasitic) newNode(name string) *Node {
	n := &Node{Name: name}
	p.Nodes = append(p.Nodes, n)
	return n
}

// EnsurePinNode returns the node for a pin, creating it on first use.
func (p *Parasitic) EnsurePinNode(pin *network.Pin) *Node {
	if n, ok := p.pinNodes[pin]; ok {
		return n
	}
	n := p.newNode(pin.PathName())
	p.pinNodes[pin] = n
	return n
}

// EnsureSteinerNode returns the node for a pure Steiner point, keyed by
// (net, point-id).
func (p *Parasitic) EnsureSteinerNode(steinerPt int) *Node {
	if n, ok := p.steinerNodes[steinerPt]; ok {
		return n
	}
	n := p.newNode(fmt.Sprintf("%s:%d", p.Net.Name, steinerPt))
	p.steinerNodes[steinerPt] = n
	return n
}

func (p *Parasitic) IncrCap(n *Node, cap float64) {
	n.Cap += cap
}

func (p *Parasitic) MakeResistor(n1, n2 *Node, res float64) {
	p.Resistors = append(p.Resistors, &Resistor{n1, n2, res})
}

func (p *Parasitic) TotalCap() (total float64) {
	for _, n := range p.Nodes {
		total += n.Cap
	}
	return
}

func (p *Parasitic) TotalRes() (total float64) {
	for _, r := range p.Resistors {
		total += r.Res
	}
	return
}
