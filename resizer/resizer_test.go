package resizer

import (
	"math"
	"testing"

	"github.com/abk-openroad/Resizer/liberty"
	"github.com/abk-openroad/Resizer/network"
	"github.com/abk-openroad/Resizer/timing"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// makeBuffer builds a buffer whose slew model mirrors its delay model, so
// its characterized target load works out to ten times its input cap.
func makeBuffer(l *liberty.Library, name string, inCap, driveRes float64) *liberty.Cell {
	c := l.NewCell(name)
	c.IsBuffer = true
	in := c.NewPort("A", liberty.Input, inCap, inCap)
	out := c.NewPort("Z", liberty.Output, 0, 0)
	for _, tr := range []liberty.Trans{liberty.Rise, liberty.Fall} {
		c.AddArc(&liberty.TimingArc{
			From:      in,
			To:        out,
			FromTrans: tr,
			ToTrans:   tr,
			Role:      liberty.Combinational,
			Model: &liberty.LinearModel{
				Intrinsic:     1e-11,
				DriveRes:      driveRes,
				SlewIntrinsic: 1e-11,
				SlewLoad:      driveRes,
				SlewSlew:      0,
			},
		})
	}
	return c
}

// testLibrary has two buffer strengths in one equivalence class. Both hit
// the same slew driving ten copies of themselves, so the shared target slew
// is 5e-11 and the target loads are 1e-14 and 4e-14.
func testLibrary() *liberty.Library {
	l := liberty.NewLibrary("test")
	b1 := makeBuffer(l, "BUF_X1", 1e-15, 4000)
	b4 := makeBuffer(l, "BUF_X4", 4e-15, 1000)
	liberty.MakeEquivCells(b1, b4)
	return l
}

func testDesign() *network.Design {
	d := network.NewDesign("top", 1000)
	d.AddLibrary(testLibrary())
	return d
}

func lib(d *network.Design) *liberty.Library { return d.Libraries[0] }

////////////////////////////////////////////////////////////////////////////////
// Characterization

func TestBufferTargetSlews(t *testing.T) {
	d := testDesign()
	r := New(d)

	r.ensureBufferTargetSlews()

	// Both buffers: slew = 1e-11 + driveRes * 10*inCap = 5e-11.
	for tr := liberty.Rise; tr < liberty.TransCount; tr++ {
		if !near(r.tgtSlews[tr], 5e-11, 1e-15) {
			t.Errorf("Trans %d: Expected 5e-11. Got %v.", tr, r.tgtSlews[tr])
		}
	}
}

func TestTargetLoads(t *testing.T) {
	d := testDesign()
	r := New(d)

	r.ensureTargetLoads()

	testcases := []struct {
		cell string
		exp  float64
	}{
		{"BUF_X1", 1e-14},
		{"BUF_X4", 4e-14},
	}

	// The search stops within 0.1% of the seed capacitance.
	tol := targetLoadCapInit * targetLoadCapTol * 2

	for i, tc := range testcases {
		got := r.targetLoad(lib(d).Cell(tc.cell))
		if !near(got, tc.exp, tol) {
			t.Errorf("Test %d: Expected %v. Got %v.", i, tc.exp, got)
		}
	}
}

func TestTargetLoadUncharacterized(t *testing.T) {
	d := testDesign()
	// A cell with no delay arcs characterizes to zero.
	lone := lib(d).NewCell("DFF_X1")
	lone.NewPort("D", liberty.Input, 1e-15, 1e-15)

	r := New(d)
	r.ensureTargetLoads()

	if got := r.targetLoad(lone); got != 0 {
		t.Errorf("Expected 0. Got %v.", got)
	}
}

////////////////////////////////////////////////////////////////////////////////
// Gate sizing

// loadedBuffer wires a driver buffer to n load buffer inputs.
func loadedBuffer(d *network.Design, cell string, n int) *network.Instance {
	u := d.MakeInstance(lib(d).Cell(cell), "u0")
	u.SetLocation(0, 0)
	net := d.MakeNet("n1")
	d.Connect(u.Pin("Z"), net)
	for i := 0; i < n; i++ {
		load := d.MakeInstance(lib(d).Cell("BUF_X4"), "load"+string(rune('a'+i)))
		load.SetLocation(0, 0)
		d.Connect(load.Pin("A"), net)
	}
	return u
}

func TestResizeUp(t *testing.T) {
	d := testDesign()
	// 8 loads of 4e-15 put 3.2e-14 on the driver; BUF_X4's target of
	// 4e-14 is the closer match.
	u := loadedBuffer(d, "BUF_X1", 8)

	r := New(d)
	r.ResizeInstance(u)

	if u.Cell.Name != "BUF_X4" {
		t.Errorf("Expected BUF_X4. Got %s.", u.Cell.Name)
	}
	if r.ResizeCount != 1 {
		t.Errorf("Expected 1 resize. Got %d.", r.ResizeCount)
	}
	if r.Replacements.Count("BUF_X1 -> BUF_X4") != 1 {
		t.Errorf("Expected a BUF_X1 -> BUF_X4 replacement. Got:\n%v", r.Replacements)
	}
}

func TestResizeDown(t *testing.T) {
	d := testDesign()
	// A single 4e-15 load matches BUF_X1's 1e-14 target better.
	u := loadedBuffer(d, "BUF_X4", 1)

	r := New(d)
	r.ResizeInstance(u)

	if u.Cell.Name != "BUF_X1" {
		t.Errorf("Expected BUF_X1. Got %s.", u.Cell.Name)
	}
}

func TestResizeKeep(t *testing.T) {
	d := testDesign()
	// 3 loads put 1.2e-14 on the driver; BUF_X1 already fits.
	u := loadedBuffer(d, "BUF_X1", 3)

	r := New(d)
	r.ResizeInstance(u)

	if u.Cell.Name != "BUF_X1" {
		t.Errorf("Expected BUF_X1. Got %s.", u.Cell.Name)
	}
	if r.ResizeCount != 0 {
		t.Errorf("Expected no resizes. Got %d.", r.ResizeCount)
	}
}

func TestResizeLefFootprint(t *testing.T) {
	d := testDesign()
	u := loadedBuffer(d, "BUF_X1", 8)

	// A physical cell may only swap to a physical cell.
	lib(d).Cell("BUF_X1").HasLef = true

	r := New(d)
	r.ResizeInstance(u)

	if u.Cell.Name != "BUF_X1" {
		t.Errorf("Expected BUF_X1 kept. Got %s.", u.Cell.Name)
	}

	lib(d).Cell("BUF_X4").HasLef = true
	r2 := New(d)
	r2.ResizeInstance(u)

	if u.Cell.Name != "BUF_X4" {
		t.Errorf("Expected BUF_X4. Got %s.", u.Cell.Name)
	}
}

////////////////////////////////////////////////////////////////////////////////
// Parasitics

func TestMakeParasitics(t *testing.T) {
	d := testDesign()
	u := d.MakeInstance(lib(d).Cell("BUF_X1"), "u0")
	u.SetLocation(0, 0)
	load := d.MakeInstance(lib(d).Cell("BUF_X4"), "u1")
	load.SetLocation(1000, 0)
	net := d.MakeNet("n1")
	d.Connect(u.Pin("Z"), net)
	d.Connect(load.Pin("A"), net)

	r := New(d)
	r.SetWireRC(1e4, 1e-10, &timing.Corner{Name: "typ"})

	// 1000 dbu at 1000 dbu/micron is one micron of wire.
	expCap := 1e-6 * 1e-10
	expRes := 1e-6 * 1e4

	if got := r.parasitics.WireCap(net); !near(got, expCap, expCap*1e-9) {
		t.Errorf("Expected wire cap %v. Got %v.", expCap, got)
	}
	if got := r.parasitics.WireDelay(net); !near(got, expCap*expRes, expCap*expRes*1e-9) {
		t.Errorf("Expected wire delay %v. Got %v.", expCap*expRes, got)
	}
}

func TestMakeParasiticsUnplaced(t *testing.T) {
	d := testDesign()
	u := d.MakeInstance(lib(d).Cell("BUF_X1"), "u0")
	load := d.MakeInstance(lib(d).Cell("BUF_X4"), "u1")
	net := d.MakeNet("n1")
	d.Connect(u.Pin("Z"), net)
	d.Connect(load.Pin("A"), net)

	r := New(d)
	r.SetWireRC(1e4, 1e-10, &timing.Corner{Name: "typ"})

	if got := r.parasitics.WireCap(net); got != 0 {
		t.Errorf("Expected no model for an unplaced net. Got cap %v.", got)
	}
}

func TestZeroLengthBranch(t *testing.T) {
	d := testDesign()
	u := d.MakeInstance(lib(d).Cell("BUF_X1"), "u0")
	u.SetLocation(0, 0)
	load := d.MakeInstance(lib(d).Cell("BUF_X4"), "u1")
	load.SetLocation(0, 0)
	net := d.MakeNet("n1")
	d.Connect(u.Pin("Z"), net)
	d.Connect(load.Pin("A"), net)

	r := New(d)
	r.SetWireRC(1e4, 1e-10, &timing.Corner{Name: "typ"})

	// Coincident pins connect through the short resistor, no capacitance.
	if got := r.parasitics.WireCap(net); got != 0 {
		t.Errorf("Expected zero wire cap. Got %v.", got)
	}
}

////////////////////////////////////////////////////////////////////////////////
// Unique names

func TestUniqueNames(t *testing.T) {
	d := testDesign()
	d.MakeNet("net1")
	d.MakeInstance(lib(d).Cell("BUF_X1"), "buffer1")

	r := New(d)

	if name := r.makeUniqueNetName(); name != "net2" {
		t.Errorf("Expected net2. Got %s.", name)
	}
	if name := r.makeUniqueBufferName(); name != "buffer2" {
		t.Errorf("Expected buffer2. Got %s.", name)
	}
	if name := r.makeUniqueNetName(); name != "net3" {
		t.Errorf("Expected net3. Got %s.", name)
	}
}

////////////////////////////////////////////////////////////////////////////////
// Option validation

func TestResizeOptionErrors(t *testing.T) {
	d := testDesign()
	r := New(d)

	testcases := []struct {
		opts Options
		exp  error
	}{
		{Options{}, ErrNoCorner},
		{Options{Corner: &timing.Corner{Name: "typ"}}, ErrNoWireRC},
		{Options{
			Corner:       &timing.Corner{Name: "typ"},
			WireRes:      1e4,
			WireCap:      1e-10,
			RepairMaxCap: true,
		}, ErrNoBufferCell},
	}

	for i, tc := range testcases {
		if err := r.Resize(tc.opts); err != tc.exp {
			t.Errorf("Test %d: Expected %v. Got %v.", i, tc.exp, err)
		}
	}
}

////////////////////////////////////////////////////////////////////////////////
// Buffer insertion

// rebufferDesign drives one close, tightly constrained sink and one far,
// relaxed sink from a weak buffer. Isolating the far sink behind a buffer
// is the only way to meet the close sink's required time.
func rebufferDesign() (*network.Design, *Resizer) {
	d := testDesign()

	in := d.MakePort("in", liberty.Input)
	in.SetLocation(0, 0)

	u0 := d.MakeInstance(lib(d).Cell("BUF_X1"), "u0")
	u0.SetLocation(0, 0)

	nIn := d.MakeNet("n_in")
	d.Connect(in, nIn)
	d.Connect(u0.Pin("A"), nIn)

	n1 := d.MakeNet("n1")
	d.Connect(u0.Pin("Z"), n1)

	s1 := d.MakeInstance(lib(d).Cell("BUF_X4"), "s1")
	s1.SetLocation(1000, 0)
	d.Connect(s1.Pin("A"), n1)

	s2 := d.MakeInstance(lib(d).Cell("BUF_X4"), "s2")
	s2.SetLocation(200000, 0)
	d.Connect(s2.Pin("A"), n1)

	r := New(d)
	r.Graph().SetInputSlew(in, 0, 0)
	r.Graph().SetRequired(s1.Pin("A"), 5e-11)
	r.Graph().SetRequired(s2.Pin("A"), 1e-9)
	return d, r
}

func TestRebufferNet(t *testing.T) {
	d, r := rebufferDesign()
	r.init()
	r.SetWireRC(1e4, 1e-10, &timing.Corner{Name: "typ"})

	n1 := d.FindNet("n1")
	loadsBefore := len(n1.Loads())

	err := r.RebufferNet(n1, lib(d).Cell("BUF_X1"))
	if err != nil {
		t.Fatalf("Expected no error. Got %v.", err)
	}

	if r.InsertedBufferCount < 1 {
		t.Fatalf("Expected at least 1 inserted buffer. Got %d.", r.InsertedBufferCount)
	}
	if r.RebufferNetCount != 1 {
		t.Errorf("Expected 1 rebuffered net. Got %d.", r.RebufferNetCount)
	}
	if !r.AffectedNets.Has("n1") {
		t.Errorf("Expected n1 in the affected nets. Got %v.", r.AffectedNets.Sorted())
	}

	// The inserted buffer takes over part of the fanout.
	if len(n1.Loads()) >= loadsBefore+r.InsertedBufferCount {
		t.Errorf("Expected loads moved off n1. Got %d loads.", len(n1.Loads()))
	}
	if d.FindInstance("buffer1") == nil {
		t.Errorf("Expected instance buffer1.")
	}
	if d.FindNet("net1") == nil {
		t.Errorf("Expected net net1.")
	}

	// Every sink is still reachable from the driver.
	if !reaches(d, n1, "s1/A") || !reaches(d, n1, "s2/A") {
		t.Errorf("Expected both sinks reachable from n1.")
	}
}

// reaches walks driver-to-load connectivity from a net to a pin path name.
func reaches(d *network.Design, net *network.Net, path string) bool {
	for _, load := range net.Loads() {
		if load.PathName() == path {
			return true
		}
		if load.Inst != nil && load.Inst.Cell.IsBuffer {
			if out := load.Inst.OutputPin(); out != nil && out.Net != nil {
				if reaches(d, out.Net, path) {
					return true
				}
			}
		}
	}
	return false
}

func TestRepairMaxCap(t *testing.T) {
	d, r := rebufferDesign()

	// The far sink's wire pushes the driver well past this limit.
	lib(d).Cell("BUF_X1").Port("Z").SetCapLimit(1e-14)

	err := r.Resize(Options{
		WireRes:      1e4,
		WireCap:      1e-10,
		Corner:       &timing.Corner{Name: "typ"},
		RepairMaxCap: true,
		BufferCell:   lib(d).Cell("BUF_X1"),
	})
	if err != nil {
		t.Fatalf("Expected no error. Got %v.", err)
	}

	if r.Violations.Count("max_cap") < 1 {
		t.Errorf("Expected a max_cap violation. Got:\n%v", r.Violations)
	}
	if r.InsertedBufferCount < 1 {
		t.Errorf("Expected inserted buffers. Got %d.", r.InsertedBufferCount)
	}
}

func TestRepairMaxSlew(t *testing.T) {
	d, r := rebufferDesign()

	r.Graph().SetDesignSlewLimit(3e-11)

	err := r.Resize(Options{
		WireRes:       1e4,
		WireCap:       1e-10,
		Corner:        &timing.Corner{Name: "typ"},
		RepairMaxSlew: true,
		BufferCell:    lib(d).Cell("BUF_X1"),
	})
	if err != nil {
		t.Fatalf("Expected no error. Got %v.", err)
	}

	if r.Violations.Count("max_slew") < 1 {
		t.Errorf("Expected a max_slew violation. Got:\n%v", r.Violations)
	}
}

func TestRebufferSkipsUnconstrained(t *testing.T) {
	d := testDesign()

	u0 := d.MakeInstance(lib(d).Cell("BUF_X1"), "u0")
	u0.SetLocation(0, 0)
	n1 := d.MakeNet("n1")
	d.Connect(u0.Pin("Z"), n1)
	s1 := d.MakeInstance(lib(d).Cell("BUF_X4"), "s1")
	s1.SetLocation(1000, 0)
	d.Connect(s1.Pin("A"), n1)

	r := New(d)
	r.init()
	r.SetWireRC(1e4, 1e-10, &timing.Corner{Name: "typ"})

	// No required times anywhere; there is nothing to optimize against.
	err := r.RebufferNet(n1, lib(d).Cell("BUF_X1"))
	if err != nil {
		t.Fatalf("Expected no error. Got %v.", err)
	}
	if r.InsertedBufferCount != 0 {
		t.Errorf("Expected no buffers. Got %d.", r.InsertedBufferCount)
	}
}

func TestRebufferUnplacedNet(t *testing.T) {
	d := testDesign()

	u0 := d.MakeInstance(lib(d).Cell("BUF_X1"), "u0")
	n1 := d.MakeNet("n1")
	d.Connect(u0.Pin("Z"), n1)
	s1 := d.MakeInstance(lib(d).Cell("BUF_X4"), "s1")
	d.Connect(s1.Pin("A"), n1)

	r := New(d)
	r.init()
	r.SetWireRC(1e4, 1e-10, &timing.Corner{Name: "typ"})

	if err := r.RebufferNet(n1, lib(d).Cell("BUF_X1")); err != ErrUnplaced {
		t.Errorf("Expected ErrUnplaced. Got %v.", err)
	}
}

func TestRebufferSkipsClockNets(t *testing.T) {
	d, r := rebufferDesign()
	d.FindNet("n1").IsClock = true
	lib(d).Cell("BUF_X1").Port("Z").SetCapLimit(1e-15)

	err := r.Resize(Options{
		WireRes:      1e4,
		WireCap:      1e-10,
		Corner:       &timing.Corner{Name: "typ"},
		RepairMaxCap: true,
		BufferCell:   lib(d).Cell("BUF_X1"),
	})
	if err != nil {
		t.Fatalf("Expected no error. Got %v.", err)
	}
	if r.InsertedBufferCount != 0 {
		t.Errorf("Expected no buffers on a clock net. Got %d.", r.InsertedBufferCount)
	}
}
