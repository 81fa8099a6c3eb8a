package network

import (
	"log"
	"sync"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/abk-openroad/Resizer/liberty"
)

// The placed design is read from and written back to a mongo snapshot
// store. The LEF/DEF reader proper lives in a companion flow; this package
// only round-trips its output.

var mgosession *mgo.Session

const db = "resize"

var designcoll, instcoll, netcoll, conncoll, portcoll string

////////////////////////////////////////////////////////////////////////////////
// Worker pool for insert jobs

const MaxMgoThreads = 8

var wg sync.WaitGroup

type insertjob struct {
	col string
	doc interface{}
}

var jobs chan insertjob

func worker() {
	s := mgosession.Copy()

	for job := range jobs {
		c := s.DB(db).C(job.col)
		err := c.Insert(job.doc)
		if err != nil {
			log.Fatal(err)
		}
	}
	wg.Done()
}

// Synchronizers

func DoneMgo() {
	close(jobs)
}

func WaitMgo() {
	wg.Wait()
}

////////////////////////////////////////////////////////////////////////////////

func InitMgo(s *mgo.Session, cname string, drop bool) {
	mgosession = s.Copy()

	designcoll = cname + "_design"
	instcoll = cname + "_insts"
	netcoll = cname + "_nets"
	conncoll = cname + "_conns"
	portcoll = cname + "_ports"

	if drop {
		dropCollection(designcoll)
		dropCollection(instcoll)
		dropCollection(netcoll)
		dropCollection(conncoll)
		dropCollection(portcoll)
	}

	// Initialize worker pool for insert jobs
	jobs = make(chan insertjob, 100)
	for i := 0; i < MaxMgoThreads; i++ {
		wg.Add(1)
		go worker()
	}
}

func dropCollection(coll string) {
	c := mgosession.DB(db).C(coll)
	err := c.DropCollection()
	if err != nil {
		log.Println(err)
	}
}

////////////////////////////////////////////////////////////////////////////////

type instdoc struct {
	Design  string `bson:"design"`
	Name    string `bson:"name"`
	Library string `bson:"library"`
	Cell    string `bson:"cell"`
	X       int    `bson:"x"`
	Y       int    `bson:"y"`
	Placed  bool   `bson:"placed"`
}

type netdoc struct {
	Design  string `bson:"design"`
	Name    string `bson:"name"`
	IsClock bool   `bson:"is_clock"`
}

type conndoc struct {
	Design string `bson:"design"`
	Inst   string `bson:"inst"` // empty for a top-level port
	Pin    string `bson:"pin"`
	Net    string `bson:"net"`
}

type portdoc struct {
	Design string `bson:"design"`
	Name   string `bson:"name"`
	Dir    int    `bson:"dir"`
	X      int    `bson:"x"`
	Y      int    `bson:"y"`
	Placed bool   `bson:"placed"`
}

func (d *Design) Save() {
	jobs <- insertjob{designcoll, bson.M{
		"name"          : d.Name,
		"dbu_per_micron": d.DbuPerMicron,
	}}

	for _, name := range d.SortedInstNames() {
		inst := d.Insts[name]
		jobs <- insertjob{instcoll, instdoc{
			Design:  d.Name,
			Name:    inst.Name,
			Library: inst.Cell.Library.Name,
			Cell:    inst.Cell.Name,
			X:       inst.Loc.X,
			Y:       inst.Loc.Y,
			Placed:  inst.Placed,
		}}
		for _, pname := range inst.SortedPinNames() {
			pin := inst.Pins[pname]
			if pin.Net != nil {
				jobs <- insertjob{conncoll, conndoc{d.Name, inst.Name, pname, pin.Net.Name}}
			}
		}
	}

	for _, name := range d.SortedNetNames() {
		net := d.Nets[name]
		jobs <- insertjob{netcoll, netdoc{d.Name, net.Name, net.IsClock}}
	}

	for _, name := range d.SortedPortNames() {
		port := d.Ports[name]
		jobs <- insertjob{portcoll, portdoc{
			Design: d.Name,
			Name:   port.Name,
			Dir:    int(port.Dir),
			X:      port.Loc.X,
			Y:      port.Loc.Y,
			Placed: port.Placed,
		}}
		if port.Net != nil {
			jobs <- insertjob{conncoll, conndoc{d.Name, "", port.Name, port.Net.Name}}
		}
	}
}

// Load hydrates a design and its connectivity from the snapshot store. The
// libraries must already be loaded so cell references resolve.
func Load(name string, libs []*liberty.Library) *Design {
	s := mgosession.Copy()
	defer s.Close()

	var result bson.M
	err := s.DB(db).C(designcoll).Find(bson.M{"name": name}).One(&result)
	if err != nil {
		log.Fatalf("Unable to load design %q: %v", name, err)
	}

	d := NewDesign(name, result["dbu_per_micron"].(float64))
	for _, l := range libs {
		d.AddLibrary(l)
	}

	var id instdoc
	ii := s.DB(db).C(instcoll).Find(bson.M{"design": name}).Iter()
	for ii.Next(&id) {
		cell := d.FindCell(id.Library, id.Cell)
		if cell == nil {
			log.Fatalf("Instance %q references unknown cell %s/%s",
				id.Name, id.Library, id.Cell)
		}
		inst := d.MakeInstance(cell, id.Name)
		if id.Placed {
			inst.SetLocation(id.X, id.Y)
		}
	}

	var nd netdoc
	ni := s.DB(db).C(netcoll).Find(bson.M{"design": name}).Iter()
	for ni.Next(&nd) {
		net := d.MakeNet(nd.Name)
		net.IsClock = nd.IsClock
	}

	var pd portdoc
	pi := s.DB(db).C(portcoll).Find(bson.M{"design": name}).Iter()
	for pi.Next(&pd) {
		port := d.MakePort(pd.Name, liberty.Dir(pd.Dir))
		if pd.Placed {
			port.SetLocation(pd.X, pd.Y)
		}
	}

	var cd conndoc
	ci := s.DB(db).C(conncoll).Find(bson.M{"design": name}).Iter()
	for ci.Next(&cd) {
		net := d.FindNet(cd.Net)
		if net == nil {
			log.Fatalf("Connection references unknown net %q", cd.Net)
		}
		var pin *Pin
		if cd.Inst == "" {
			pin = d.Ports[cd.Pin]
		} else {
			inst := d.FindInstance(cd.Inst)
			if inst == nil {
				log.Fatalf("Connection references unknown instance %q", cd.Inst)
			}
			pin = inst.Pin(cd.Pin)
		}
		if pin == nil {
			log.Fatalf("Connection references unknown pin %s/%s", cd.Inst, cd.Pin)
		}
		d.Connect(pin, net)
	}

	return d
}
