package parasitics

import (
	"testing"

	"github.com/abk-openroad/Resizer/liberty"
	"github.com/abk-openroad/Resizer/network"
)

func testNet() (*network.Net, []*network.Pin) {
	l := liberty.NewLibrary("test")
	buf := l.NewCell("BUF_X1")
	buf.IsBuffer = true
	buf.NewPort("A", liberty.Input, 1e-15, 1e-15)
	buf.NewPort("Z", liberty.Output, 0, 0)

	d := network.NewDesign("top", 1000)
	d.AddLibrary(l)

	net := d.MakeNet("n1")
	drvr := d.MakeInstance(buf, "drvr")
	load := d.MakeInstance(buf, "load")
	d.Connect(drvr.Pin("Z"), net)
	d.Connect(load.Pin("A"), net)

	return net, []*network.Pin{drvr.Pin("Z"), load.Pin("A")}
}

func TestPiModel(t *testing.T) {
	net, pins := testNet()
	s := New()

	p := s.MakeParasiticNetwork(net)
	n1 := p.EnsurePinNode(pins[0])
	n2 := p.EnsurePinNode(pins[1])
	p.IncrCap(n1, 1e-15)
	p.MakeResistor(n1, n2, 100)
	p.IncrCap(n2, 1e-15)

	if got := s.WireCap(net); got != 2e-15 {
		t.Errorf("Expected wire cap 2e-15. Got %v.", got)
	}
	if got := s.WireDelay(net); got != 100*2e-15 {
		t.Errorf("Expected wire delay %v. Got %v.", 100*2e-15, got)
	}
}

func TestEnsureNodes(t *testing.T) {
	net, pins := testNet()
	s := New()
	p := s.MakeParasiticNetwork(net)

	n1 := p.EnsurePinNode(pins[0])
	if p.EnsurePinNode(pins[0]) != n1 {
		t.Errorf("Expected the same node on reuse.")
	}
	if n1.Name != "drvr/Z" {
		t.Errorf("Expected node name drvr/Z. Got %s.", n1.Name)
	}

	s1 := p.EnsureSteinerNode(3)
	if p.EnsureSteinerNode(3) != s1 {
		t.Errorf("Expected the same Steiner node on reuse.")
	}
	if s1.Name != "n1:3" {
		t.Errorf("Expected node name n1:3. Got %s.", s1.Name)
	}
}

func TestMissingNet(t *testing.T) {
	net, _ := testNet()
	s := New()

	if got := s.WireCap(net); got != 0 {
		t.Errorf("Expected zero wire cap. Got %v.", got)
	}
	if got := s.WireDelay(net); got != 0 {
		t.Errorf("Expected zero wire delay. Got %v.", got)
	}
	if s.Find(net) != nil {
		t.Errorf("Expected no model. Got %v.", s.Find(net))
	}
}

func TestReplaceAndDelete(t *testing.T) {
	net, pins := testNet()
	s := New()

	p := s.MakeParasiticNetwork(net)
	p.IncrCap(p.EnsurePinNode(pins[0]), 5e-15)

	// A rebuild drops the previous model.
	s.MakeParasiticNetwork(net)
	if got := s.WireCap(net); got != 0 {
		t.Errorf("Expected zero wire cap after rebuild. Got %v.", got)
	}

	s.Delete(net)
	if s.Find(net) != nil {
		t.Errorf("Expected no model after delete. Got %v.", s.Find(net))
	}
}
