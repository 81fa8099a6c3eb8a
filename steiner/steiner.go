// Package steiner builds the rooted binary routing trees the rebuffer
// engine runs on. Leaves are the load pins of a net, internal points are
// Steiner junctions, and the root is the driver. The builder is a
// deterministic recursive bisection over sink locations; a stronger
// rectilinear Steiner engine can be substituted behind the same tree shape.
package steiner

import (
	"fmt"
	"sort"

	"github.com/abk-openroad/Resizer/network"
)

// NullPt marks a missing child.
const NullPt = -1

type point struct {
	loc   network.Point
	pin   *network.Pin
	left  int
	right int
	alias *network.Pin
}

type Branch struct {
	Pt1, Pt2      int
	WireLengthDbu int
}

type Tree struct {
	net      *network.Net
	pts      []point
	drvr     int
	branches []Branch
}

// Build constructs the routing tree for a net. findLeftRights requests the
// child ordering needed by tree traversals; the bisection builder computes
// it unconditionally. Returns nil when the net has no driver or no loads.
func Build(net *network.Net, findLeftRights bool) *Tree {
	drivers := net.Drivers()
	loads := net.Loads()
	if len(drivers) == 0 || len(loads) == 0 {
		return nil
	}
	drvr := drivers[0]

	// Stable sink order: location then path name.
	sort.Slice(loads, func(i, j int) bool {
		li, _ := loads[i].Location()
		lj, _ := loads[j].Location()
		if li.X != lj.X {
			return li.X < lj.X
		}
		if li.Y != lj.Y {
			return li.Y < lj.Y
		}
		return loads[i].PathName() < loads[j].PathName()
	})

	t := &Tree{net: net}
	sub := t.build(loads)
	drvrLoc, _ := drvr.Location()
	t.drvr = t.addPoint(point{loc: drvrLoc, pin: drvr, left: sub, right: NullPt})
	t.findBranches()
	return t
}

func (t *Tree) addPoint(p point) int {
	t.pts = append(t.pts, p)
	return len(t.pts) - 1
}

// build returns the index of the subtree spanning the given sinks.
func (t *Tree) build(loads []*network.Pin) int {
	if len(loads) == 1 {
		loc, _ := loads[0].Location()
		return t.addPoint(point{loc: loc, pin: loads[0], left: NullPt, right: NullPt})
	}

	// Split across the wider bounding-box axis.
	minx, maxx, miny, maxy := bbox(loads)
	ordered := append([]*network.Pin(nil), loads...)
	if maxx-minx >= maxy-miny {
		sort.SliceStable(ordered, func(i, j int) bool {
			li, _ := ordered[i].Location()
			lj, _ := ordered[j].Location()
			return li.X < lj.X
		})
	} else {
		sort.SliceStable(ordered, func(i, j int) bool {
			li, _ := ordered[i].Location()
			lj, _ := ordered[j].Location()
			return li.Y < lj.Y
		})
	}

	mid := len(ordered) / 2
	left := t.build(ordered[:mid])
	right := t.build(ordered[mid:])
	loc := network.Point{X: (minx + maxx) / 2, Y: (miny + maxy) / 2}
	return t.addPoint(point{loc: loc, pin: nil, left: left, right: right})
}

func bbox(pins []*network.Pin) (minx, maxx, miny, maxy int) {
	for i, pin := range pins {
		loc, _ := pin.Location()
		if i == 0 || loc.X < minx {
			minx = loc.X
		}
		if i == 0 || loc.X > maxx {
			maxx = loc.X
		}
		if i == 0 || loc.Y < miny {
			miny = loc.Y
		}
		if i == 0 || loc.Y > maxy {
			maxy = loc.Y
		}
	}
	return
}

func (t *Tree) findBranches() {
	for k, p := range t.pts {
		if p.left != NullPt {
			t.branches = append(t.branches, t.branch(k, p.left))
		}
		if p.right != NullPt {
			t.branches = append(t.branches, t.branch(k, p.right))
		}
	}
}

func (t *Tree) branch(k1, k2 int) Branch {
	return Branch{
		Pt1:           k1,
		Pt2:           k2,
		WireLengthDbu: network.Dist(t.pts[k1].loc, t.pts[k2].loc),
	}
}

////////////////////////////////////////////////////////////////////////////////

func (t *Tree) Net() *network.Net { return t.net }

func (t *Tree) DrvrPt() int { return t.drvr }

func (t *Tree) PointCount() int { return len(t.pts) }

func (t *Tree) Left(k int) int { return t.pts[k].left }

func (t *Tree) Right(k int) int { return t.pts[k].right }

func (t *Tree) Pin(k int) *network.Pin { return t.pts[k].pin }

func (t *Tree) Location(k int) network.Point { return t.pts[k].loc }

func (t *Tree) BranchCount() int { return len(t.branches) }

func (t *Tree) Branch(i int) Branch { return t.branches[i] }

// Name labels a tree point for logging.
func (t *Tree) Name(k int) string {
	if pin := t.pts[k].pin; pin != nil {
		return pin.PathName()
	}
	return fmt.Sprintf("steiner%d", k)
}

// IsPlaced reports whether every pin on the tree has a location.
func (t *Tree) IsPlaced() bool {
	for _, p := range t.pts {
		if p.pin != nil {
			if _, placed := p.pin.Location(); !placed {
				return false
			}
		}
	}
	return true
}

// FindSteinerPtAliases records, for each pure Steiner point that lands on
// top of a pin, the pin at that location so parasitic extraction can reuse
// the pin's node.
func (t *Tree) FindSteinerPtAliases() {
	byLoc := make(map[network.Point]*network.Pin)
	for _, p := range t.pts {
		if p.pin != nil {
			byLoc[p.loc] = p.pin
		}
	}
	for k := range t.pts {
		if t.pts[k].pin == nil {
			t.pts[k].alias = byLoc[t.pts[k].loc]
		}
	}
}

// SteinerPtAlias returns the pin on top of a pure Steiner point, if any.
func (t *Tree) SteinerPtAlias(k int) *network.Pin {
	return t.pts[k].alias
}
