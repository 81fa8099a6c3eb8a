package liberty

import (
	"log"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

// Characterized libraries are expensive to produce, so they are cached in
// mongo by a companion flow and hydrated from there on every resizer run.

var mgosession *mgo.Session

const db = "resize"

var cellcoll, portcoll, arccoll, eqcoll string

func InitMgo(s *mgo.Session, cname string, drop bool) {
	mgosession = s.Copy()

	cellcoll = cname + "_lcells"
	portcoll = cname + "_lports"
	arccoll = cname + "_larcs"
	eqcoll = cname + "_lequiv"

	if drop {
		for _, coll := range []string{cellcoll, portcoll, arccoll, eqcoll} {
			err := mgosession.DB(db).C(coll).DropCollection()
			if err != nil {
				log.Println(err)
			}
		}
	}

	err := mgosession.DB(db).C(cellcoll).EnsureIndex(mgo.Index{
		Key:    []string{"library", "name"},
		Unique: true,
	})
	if err != nil {
		log.Fatal(err)
	}
}

type celldoc struct {
	Library  string `bson:"library"`
	Name     string `bson:"name"`
	IsBuffer bool   `bson:"is_buffer"`
	HasLef   bool   `bson:"has_lef"`
}

type portdoc struct {
	Library      string  `bson:"library"`
	Cell         string  `bson:"cell"`
	Name         string  `bson:"name"`
	Dir          int     `bson:"dir"`
	RiseCap      float64 `bson:"rise_cap"`
	FallCap      float64 `bson:"fall_cap"`
	CapLimit     float64 `bson:"cap_limit"`
	HasCapLimit  bool    `bson:"has_cap_limit"`
	SlewLimit    float64 `bson:"slew_limit"`
	HasSlewLimit bool    `bson:"has_slew_limit"`
}

type arcdoc struct {
	Library   string       `bson:"library"`
	Cell      string       `bson:"cell"`
	From      string       `bson:"from"`
	To        string       `bson:"to"`
	FromTrans int          `bson:"from_trans"`
	ToTrans   int          `bson:"to_trans"`
	Role      int          `bson:"role"`
	Model     *LinearModel `bson:"model,omitempty"`
}

type equivdoc struct {
	Library string   `bson:"library"`
	Cells   []string `bson:"cells"`
}

// Save writes the library to the cache. Only linear models survive the
// round trip; arcs with other model kinds are stored model-less.
func (l *Library) Save() {
	s := mgosession.Copy()
	defer s.Close()

	cc := s.DB(db).C(cellcoll)
	pc := s.DB(db).C(portcoll)
	ac := s.DB(db).C(arccoll)
	ec := s.DB(db).C(eqcoll)

	seen := make(map[string]bool)

	for _, cname := range l.SortedCellNames() {
		cell := l.Cells[cname]
		err := cc.Insert(celldoc{l.Name, cell.Name, cell.IsBuffer, cell.HasLef})
		if err != nil {
			log.Fatal(err)
		}

		for _, pname := range cell.SortedPortNames() {
			port := cell.Ports[pname]
			err := pc.Insert(portdoc{
				Library:      l.Name,
				Cell:         cell.Name,
				Name:         port.Name,
				Dir:          int(port.Dir),
				RiseCap:      port.RiseCap,
				FallCap:      port.FallCap,
				CapLimit:     port.CapLimit,
				HasCapLimit:  port.HasCapLimit,
				SlewLimit:    port.SlewLimit,
				HasSlewLimit: port.HasSlewLimit,
			})
			if err != nil {
				log.Fatal(err)
			}
		}

		for _, arc := range cell.Arcs {
			model, _ := arc.Model.(*LinearModel)
			err := ac.Insert(arcdoc{
				Library:   l.Name,
				Cell:      cell.Name,
				From:      arc.From.Name,
				To:        arc.To.Name,
				FromTrans: int(arc.FromTrans),
				ToTrans:   int(arc.ToTrans),
				Role:      int(arc.Role),
				Model:     model,
			})
			if err != nil {
				log.Fatal(err)
			}
		}

		if cell.equiv != nil && !seen[cname] {
			var names []string
			for _, e := range cell.equiv {
				names = append(names, e.Name)
				seen[e.Name] = true
			}
			err := ec.Insert(equivdoc{l.Name, names})
			if err != nil {
				log.Fatal(err)
			}
		}
	}
}

// LoadLibrary hydrates a library from the cache.
func LoadLibrary(name string) *Library {
	s := mgosession.Copy()
	defer s.Close()

	l := NewLibrary(name)

	var cd celldoc
	ci := s.DB(db).C(cellcoll).Find(bson.M{"library": name}).Iter()
	for ci.Next(&cd) {
		cell := l.NewCell(cd.Name)
		cell.IsBuffer = cd.IsBuffer
		cell.HasLef = cd.HasLef
	}

	var pd portdoc
	pi := s.DB(db).C(portcoll).Find(bson.M{"library": name}).Iter()
	for pi.Next(&pd) {
		cell := l.Cell(pd.Cell)
		if cell == nil {
			log.Fatalf("Port %q of unknown cell %q", pd.Name, pd.Cell)
		}
		port := cell.NewPort(pd.Name, Dir(pd.Dir), pd.RiseCap, pd.FallCap)
		port.CapLimit = pd.CapLimit
		port.HasCapLimit = pd.HasCapLimit
		port.SlewLimit = pd.SlewLimit
		port.HasSlewLimit = pd.HasSlewLimit
	}

	var ad arcdoc
	ai := s.DB(db).C(arccoll).Find(bson.M{"library": name}).Iter()
	for ai.Next(&ad) {
		cell := l.Cell(ad.Cell)
		if cell == nil {
			log.Fatalf("Arc of unknown cell %q", ad.Cell)
		}
		arc := &TimingArc{
			From:      cell.Port(ad.From),
			To:        cell.Port(ad.To),
			FromTrans: Trans(ad.FromTrans),
			ToTrans:   Trans(ad.ToTrans),
			Role:      Role(ad.Role),
		}
		if ad.Model != nil {
			arc.Model = ad.Model
		}
		cell.AddArc(arc)
	}

	var ed equivdoc
	ei := s.DB(db).C(eqcoll).Find(bson.M{"library": name}).Iter()
	for ei.Next(&ed) {
		var cells []*Cell
		for _, cname := range ed.Cells {
			cell := l.Cell(cname)
			if cell == nil {
				log.Fatalf("Equivalence class names unknown cell %q", cname)
			}
			cells = append(cells, cell)
		}
		MakeEquivCells(cells...)
	}

	return l
}
