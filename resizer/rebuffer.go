package resizer

import (
	"log"

	"github.com/abk-openroad/Resizer/liberty"
	"github.com/abk-openroad/Resizer/network"
	"github.com/abk-openroad/Resizer/steiner"
	"github.com/abk-openroad/Resizer/timing"
)

// Buffer insertion on one net is a dynamic program over its routing tree.
// Candidate solutions flow bottom-up from the sinks; the surviving options
// at the driver are scored through the driver's delay, and the winner is
// committed top-down into the netlist.

type optionKind int

const (
	sinkOption optionKind = iota
	junctionOption
	wireOption
	bufferOption
)

// rebufferOption is one candidate buffering of a subtree: the capacitance
// it presents upstream and the required time at its top.
type rebufferOption struct {
	kind     optionKind
	cap      float64
	required float64

	// loadPin is the sink of a sinkOption.
	loadPin *network.Pin

	// loc is where a bufferOption's buffer lands, and the upstream end
	// of a wireOption.
	loc network.Point

	ref  *rebufferOption
	ref2 *rebufferOption
}

// bufferRequired is the required time upstream of a buffer driving the
// option.
func (r *Resizer) bufferRequired(buffer *liberty.Cell, z *rebufferOption) float64 {
	return z.required - r.bufferDelay(buffer, z.cap)
}

////////////////////////////////////////////////////////////////////////////////

// rebufferAll repairs every net whose driver violates a selected limit,
// visiting drivers from the endpoints back toward the startpoints so a
// repaired net sees its downstream fixes.
func (r *Resizer) rebufferAll(opts Options) {
	r.ensureLevelDrvrVerts()
	verts := r.levelDrvrVerts
	for i := len(verts) - 1; i >= 0; i-- {
		v := verts[i]
		if r.graph.IsClock(v) {
			continue
		}
		drvr := v.Pin
		repair := false
		if opts.RepairMaxCap && r.hasMaxCapViolation(drvr) {
			r.Violations.Add("max_cap")
			repair = true
		}
		if opts.RepairMaxSlew && r.hasMaxSlewViolation(drvr) {
			r.Violations.Add("max_slew")
			repair = true
		}
		if repair && drvr.Net != nil {
			r.rebuffer(drvr.Net, drvr, opts.BufferCell)
		}
	}
}

// RebufferNet runs buffer insertion on a single net.
func (r *Resizer) RebufferNet(net *network.Net, buffer *liberty.Cell) error {
	if buffer == nil {
		return ErrNoBufferCell
	}
	if r.wireRes <= 0 || r.wireCap <= 0 {
		return ErrNoWireRC
	}
	r.ensureTargetLoads()
	drivers := net.Drivers()
	if len(drivers) == 0 {
		return nil
	}
	if tree := steiner.Build(net, true); tree == nil || !tree.IsPlaced() {
		return ErrUnplaced
	}
	r.rebuffer(net, drivers[0], buffer)
	return nil
}

// rebuffer builds the net's candidate option set and commits the one that
// leaves the most slack at the driver.
func (r *Resizer) rebuffer(net *network.Net, drvr *network.Pin, buffer *liberty.Cell) {
	tree := steiner.Build(net, true)
	if tree == nil || !tree.IsPlaced() {
		return
	}
	if timing.FuzzyInf(r.graph.Required(drvr)) {
		// Unconstrained driver; nothing to optimize against.
		return
	}

	drvrPort := drvr.Port
	if drvrPort == nil {
		// Top-level input port. Score options through the repair buffer
		// as a stand-in driver.
		_, drvrPort = buffer.BufferPorts()
	}

	drvrPt := tree.DrvrPt()
	candidates := r.rebufferBottomUp(tree, tree.Left(drvrPt), drvrPt, buffer)

	var best *rebufferOption
	bestSlack := -timing.Inf
	for _, z := range candidates {
		slack := z.required - r.gateDelay(drvrPort, z.cap)
		if timing.FuzzyGreater(slack, bestSlack) {
			bestSlack = slack
			best = z
		}
	}
	if best == nil {
		return
	}

	count := r.rebufferTopDown(best, net, buffer)
	if count > 0 {
		r.RebufferNetCount++
		r.InsertedBufferCount += count
		r.AffectedNets.Add(net.Name)
	}
}

////////////////////////////////////////////////////////////////////////////////
// Bottom-up option construction

func (r *Resizer) rebufferBottomUp(tree *steiner.Tree, k, prev int, buffer *liberty.Cell) []*rebufferOption {
	if k == steiner.NullPt {
		return nil
	}

	if pin := tree.Pin(k); pin != nil && pin.IsLoad() {
		z := &rebufferOption{
			kind:     sinkOption,
			cap:      pin.Capacitance(),
			required: r.graph.Required(pin),
			loadPin:  pin,
			loc:      tree.Location(k),
		}
		return r.addWireAndBuffer([]*rebufferOption{z}, tree, k, prev, buffer)
	}

	left := r.rebufferBottomUp(tree, tree.Left(k), k, buffer)
	right := r.rebufferBottomUp(tree, tree.Right(k), k, buffer)

	var merged []*rebufferOption
	switch {
	case left == nil:
		merged = right
	case right == nil:
		merged = left
	default:
		for _, p := range left {
			for _, q := range right {
				required := p.required
				if q.required < required {
					required = q.required
				}
				merged = append(merged, &rebufferOption{
					kind:     junctionOption,
					cap:      p.cap + q.cap,
					required: required,
					loc:      tree.Location(k),
					ref:      p,
					ref2:     q,
				})
			}
		}
	}
	if merged == nil {
		return nil
	}
	merged = r.pruneOptions(merged, buffer)
	return r.addWireAndBuffer(merged, tree, k, prev, buffer)
}

// pruneOptions drops dominated options: any option presenting more
// capacitance and less required time behind a buffer than another cannot
// be part of the best solution.
func (r *Resizer) pruneOptions(opts []*rebufferOption, buffer *liberty.Cell) []*rebufferOption {
	for _, p := range opts {
		if p == nil {
			continue
		}
		pRequired := r.bufferRequired(buffer, p)
		for j, q := range opts {
			if q == nil || q == p {
				continue
			}
			if timing.FuzzyLess(r.bufferRequired(buffer, q), pRequired) &&
				timing.FuzzyGreater(q.cap, p.cap) {
				opts[j] = nil
			}
		}
	}
	kept := opts[:0]
	for _, p := range opts {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return kept
}

// addWireAndBuffer extends every option across the branch from k up to
// prev, then adds a single buffered variant of the wire option a buffer
// helps most.
func (r *Resizer) addWireAndBuffer(opts []*rebufferOption, tree *steiner.Tree, k, prev int, buffer *liberty.Cell) []*rebufferOption {
	prevLoc := tree.Location(prev)
	wireLength := r.design.DbuToMeters(network.Dist(tree.Location(k), prevLoc))
	wireCap := wireLength * r.wireCap
	wireRes := wireLength * r.wireRes
	wireDelay := wireRes * wireCap

	var extended []*rebufferOption
	var best *rebufferOption
	bestRequired := -timing.Inf
	for _, z := range opts {
		w := &rebufferOption{
			kind:     wireOption,
			cap:      z.cap + wireCap,
			required: z.required - wireDelay,
			loc:      prevLoc,
			ref:      z,
		}
		extended = append(extended, w)
		if required := r.bufferRequired(buffer, w); timing.FuzzyGreater(required, bestRequired) {
			bestRequired = required
			best = w
		}
	}
	if best != nil {
		extended = append(extended, &rebufferOption{
			kind:     bufferOption,
			cap:      bufferInputCapacitance(buffer),
			required: bestRequired,
			loc:      prevLoc,
			ref:      best,
		})
	}
	return extended
}

////////////////////////////////////////////////////////////////////////////////
// Top-down commit

// rebufferTopDown materializes the chosen option into the netlist and
// returns the number of buffers inserted.
func (r *Resizer) rebufferTopDown(choice *rebufferOption, net *network.Net, buffer *liberty.Cell) int {
	switch choice.kind {
	case bufferOption:
		net2 := r.design.MakeNet(r.makeUniqueNetName())
		inst := r.design.MakeInstance(buffer, r.makeUniqueBufferName())
		r.invalidateLevelDrvrVerts()
		in, out := buffer.BufferPorts()
		r.design.Connect(inst.Pin(in.Name), net)
		r.design.Connect(inst.Pin(out.Name), net2)
		inst.SetLocation(choice.loc.X, choice.loc.Y)
		count := r.rebufferTopDown(choice.ref, net2, buffer) + 1
		r.makeNetParasitics(net)
		r.makeNetParasitics(net2)
		r.graph.DelaysInvalid()
		r.AffectedNets.Add(net2.Name)
		return count

	case wireOption:
		return r.rebufferTopDown(choice.ref, net, buffer)

	case junctionOption:
		return r.rebufferTopDown(choice.ref, net, buffer) +
			r.rebufferTopDown(choice.ref2, net, buffer)

	case sinkOption:
		load := choice.loadPin
		if load.Net != net {
			r.design.Disconnect(load)
			r.design.Connect(load, net)
			r.graph.DelaysInvalid()
		}
		return 0
	}
	log.Fatalf("Unknown rebuffer option kind %d", choice.kind)
	return 0
}
