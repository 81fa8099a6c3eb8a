package resizer

import (
	"github.com/abk-openroad/Resizer/network"
	"github.com/abk-openroad/Resizer/parasitics"
	"github.com/abk-openroad/Resizer/steiner"
)

// Zero-length tree branches keep the RC network connected through a tiny
// resistor instead of a short.
const shortWireRes = 1.0e-3

// MakeParasitics rebuilds the RC model of every net from its routing tree
// and the per-length wire RC.
func (r *Resizer) MakeParasitics() {
	for _, name := range r.design.SortedNetNames() {
		r.makeNetParasitics(r.design.Nets[name])
	}
	r.graph.DelaysInvalid()
}

// makeNetParasitics estimates one net's parasitics: a pi model per branch
// of the net's routing tree. Nets without a tree or with unplaced pins keep
// no model.
func (r *Resizer) makeNetParasitics(net *network.Net) {
	tree := steiner.Build(net, false)
	if tree == nil || !tree.IsPlaced() {
		return
	}
	tree.FindSteinerPtAliases()
	p := r.parasitics.MakeParasiticNetwork(net)

	for i := 0; i < tree.BranchCount(); i++ {
		branch := tree.Branch(i)
		n1 := r.findParasiticNode(p, tree, branch.Pt1)
		n2 := r.findParasiticNode(p, tree, branch.Pt2)
		if n1 == n2 {
			continue
		}
		if branch.WireLengthDbu == 0 {
			p.MakeResistor(n1, n2, shortWireRes)
			continue
		}
		wireLength := r.design.DbuToMeters(branch.WireLengthDbu)
		wireCap := wireLength * r.wireCap
		wireRes := wireLength * r.wireRes
		p.IncrCap(n1, wireCap/2)
		p.MakeResistor(n1, n2, wireRes)
		p.IncrCap(n2, wireCap/2)
	}
}

// findParasiticNode maps a tree point to its RC node: the pin's node for
// pin points and aliased Steiner points, a Steiner node otherwise.
func (r *Resizer) findParasiticNode(p *parasitics.Parasitic, tree *steiner.Tree, pt int) *parasitics.Node {
	pin := tree.Pin(pt)
	if pin == nil {
		pin = tree.SteinerPtAlias(pt)
	}
	if pin != nil {
		return p.EnsurePinNode(pin)
	}
	return p.EnsureSteinerNode(pt)
}
