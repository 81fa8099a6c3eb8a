package resizer

import (
	"log"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/abk-openroad/Resizer/liberty"
)

// Characterization results are cached in mongo so repeated runs over the
// same libraries skip the target-load search.

var mgosession *mgo.Session

const db = "resize"

var tgtloadcoll, tgtslewcoll string

func InitMgo(s *mgo.Session, cname string, drop bool) {
	mgosession = s.Copy()

	tgtloadcoll = cname + "_tgtloads"
	tgtslewcoll = cname + "_tgtslews"

	if drop {
		for _, coll := range []string{tgtloadcoll, tgtslewcoll} {
			err := mgosession.DB(db).C(coll).DropCollection()
			if err != nil {
				log.Println(err)
			}
		}
	}

	err := mgosession.DB(db).C(tgtloadcoll).EnsureIndex(mgo.Index{
		Key:    []string{"library", "cell"},
		Unique: true,
	})
	if err != nil {
		log.Fatal(err)
	}
}

type tgtloaddoc struct {
	Library string  `bson:"library"`
	Cell    string  `bson:"cell"`
	Load    float64 `bson:"load"`
}

type tgtslewdoc struct {
	Trans int     `bson:"trans"`
	Slew  float64 `bson:"slew"`
}

// SaveTargetLoads writes the current characterization to the cache.
func (r *Resizer) SaveTargetLoads() {
	r.ensureTargetLoads()

	s := mgosession.Copy()
	defer s.Close()

	lc := s.DB(db).C(tgtloadcoll)
	sc := s.DB(db).C(tgtslewcoll)

	for cell, load := range r.targetLoads {
		err := lc.Insert(tgtloaddoc{cell.Library.Name, cell.Name, load})
		if err != nil {
			log.Fatal(err)
		}
	}
	for tr := liberty.Rise; tr < liberty.TransCount; tr++ {
		err := sc.Insert(tgtslewdoc{int(tr), r.tgtSlews[tr]})
		if err != nil {
			log.Fatal(err)
		}
	}
}

// LoadTargetLoads hydrates a prior characterization from the cache,
// reporting false when none covers the design's libraries.
func (r *Resizer) LoadTargetLoads() bool {
	s := mgosession.Copy()
	defer s.Close()

	var sd tgtslewdoc
	si := s.DB(db).C(tgtslewcoll).Find(nil).Iter()
	found := false
	for si.Next(&sd) {
		r.tgtSlews[liberty.Trans(sd.Trans)] = sd.Slew
		found = true
	}
	if !found {
		return false
	}

	loads := make(map[*liberty.Cell]float64)
	var ld tgtloaddoc
	for _, lib := range r.design.Libraries {
		li := s.DB(db).C(tgtloadcoll).Find(bson.M{"library": lib.Name}).Iter()
		for li.Next(&ld) {
			cell := lib.Cell(ld.Cell)
			if cell == nil {
				log.Fatalf("Target load for unknown cell %q", ld.Cell)
			}
			loads[cell] = ld.Load
		}
		for _, name := range lib.SortedCellNames() {
			if _, ok := loads[lib.Cells[name]]; !ok {
				return false
			}
		}
	}

	r.targetLoads = loads
	r.tgtSlewsValid = true
	return true
}
