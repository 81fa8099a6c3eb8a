package main

import (
	"flag"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/abk-openroad/Resizer/liberty"
	"github.com/abk-openroad/Resizer/network"
	"github.com/abk-openroad/Resizer/resizer"
	"github.com/abk-openroad/Resizer/timing"

	"github.com/pkg/errors"
	"gopkg.in/mgo.v2"
)

func main() {
	var cache, top, libnames, server, logp, corner, buffer, out string

	var wireres, wirecap, slewlimit, inslew, required float64

	var debug, doresize, maxcap, maxslew, nochar, save bool

	// Command line switches ///////////////////////////////////////////////////

	flag.StringVar(&cache, "cache", "", "name of cache from which to fetch design info. (req.)")
	flag.StringVar(&top, "design", "", "name of design to resize (req.)")
	flag.StringVar(&libnames, "libs", "", "comma separated names of liberty libraries (req.)")
	flag.StringVar(&server, "server", "localhost", "name of mongodb server")
	flag.StringVar(&logp, "log", "", "path to file where log messages should be redirected")
	flag.StringVar(&corner, "corner", "typ", "name of analysis corner")
	flag.StringVar(&buffer, "buffer", "", "name of buffer cell for repair passes")
	flag.StringVar(&out, "out", "", "name under which to save the resized design")

	flag.Float64Var(&wireres, "wire_res", 0, "wire resistance, ohms/meter (req.)")
	flag.Float64Var(&wirecap, "wire_cap", 0, "wire capacitance, farads/meter (req.)")
	flag.Float64Var(&slewlimit, "slew_limit", 0, "design-wide max slew, seconds")
	flag.Float64Var(&inslew, "input_slew", 0, "slew on top-level input ports, seconds")
	flag.Float64Var(&required, "required", 0, "required time on top-level output ports, seconds")

	flag.BoolVar(&debug, "debug", false, "enable debug mode")
	flag.BoolVar(&doresize, "resize", false, "run the gate-sizing pass")
	flag.BoolVar(&maxcap, "repair_max_cap", false, "buffer nets with max-cap violations")
	flag.BoolVar(&maxslew, "repair_max_slew", false, "buffer nets with max-slew violations")
	flag.BoolVar(&nochar, "nochar", false, "use to skip characterization and load cached target loads")
	flag.BoolVar(&save, "save", false, "save the resized design back to mongo")

	flag.Parse()

	// Set log flags ///////////////////////////////////////////////////////////

	log.SetFlags(0)
	if debug {
		log.SetFlags(log.Lshortfile)
	}

	// Check for minimum arguments /////////////////////////////////////////////

	if cache == "" || top == "" || libnames == "" {
		flag.PrintDefaults()
		log.Fatal("Insufficient arguments")
	}

	// Connect to mongo and initialize each package's mongo connection /////////

	session, err := mgo.Dial(server)
	if err != nil {
		log.Fatal(err)
	}

	liberty.InitMgo(session, cache, false)
	network.InitMgo(session, cache, false)
	resizer.InitMgo(session, cache, false)

	// If a log file is specified redirect log messages to it; stdout otherwise

	var logw io.Writer
	if logp != "" {
		var err error
		logw, err = os.Create(logp)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		logw = os.Stdout
	}
	log.SetOutput(logw)

	// Load liberty libraries //////////////////////////////////////////////////

	log.Println("Loading libraries..")

	start := time.Now()
	var libs []*liberty.Library
	for _, name := range strings.Split(libnames, ",") {
		libs = append(libs, liberty.LoadLibrary(name))
	}
	log.Printf("%d libraries loaded. Elapsed: %v", len(libs), time.Since(start))

	// Load design /////////////////////////////////////////////////////////////

	log.Println("Loading design..")

	start = time.Now()
	design := network.Load(top, libs)
	log.Printf("Design %s loaded: %d insts, %d nets. Elapsed: %v",
		design.Name, len(design.Insts), len(design.Nets), time.Since(start))

	// Locate the buffer cell if a repair pass needs one ///////////////////////

	var buffercell *liberty.Cell
	if buffer != "" {
		for _, l := range libs {
			if c := l.Cell(buffer); c != nil {
				buffercell = c
				break
			}
		}
		if buffercell == nil {
			log.Fatalf("Buffer cell %q not found in any library", buffer)
		}
	}

	// Apply constraints ///////////////////////////////////////////////////////

	r := resizer.New(design)

	if slewlimit > 0 {
		r.Graph().SetDesignSlewLimit(slewlimit)
	}
	for _, name := range design.SortedPortNames() {
		port := design.Ports[name]
		if port.IsDriver() && inslew > 0 {
			r.Graph().SetInputSlew(port, inslew, inslew)
		}
		if port.IsLoad() && required > 0 {
			r.Graph().SetRequired(port, required)
		}
	}

	// Characterize target loads, or load a cached characterization ////////////

	if nochar {
		if !r.LoadTargetLoads() {
			log.Fatal("No cached characterization covers these libraries")
		}
		log.Println("Loaded cached target loads.")
	}

	// Run /////////////////////////////////////////////////////////////////////

	log.Println("Resizing..")

	start = time.Now()
	err = r.Resize(resizer.Options{
		WireRes:       wireres,
		WireCap:       wirecap,
		Corner:        &timing.Corner{Name: corner},
		Resize:        doresize,
		RepairMaxCap:  maxcap,
		RepairMaxSlew: maxslew,
		BufferCell:    buffercell,
	})
	if err != nil {
		log.Fatal(errors.Wrap(err, "resize failed"))
	}
	log.Println("Resize complete. Elapsed:", time.Since(start))

	if !nochar {
		r.SaveTargetLoads()
	}

	// Print stats /////////////////////////////////////////////////////////////

	if r.ResizeCount > 0 {
		log.Printf("Replacements:\n%v", r.Replacements)
	}
	if r.Violations.Count("max_cap")+r.Violations.Count("max_slew") > 0 {
		log.Printf("Violations:\n%v", r.Violations)
	}
	log.Printf("Affected nets: %d", r.AffectedNets.Len())

	// Save the resized design /////////////////////////////////////////////////

	if save {
		if out == "" {
			out = top + "_resized"
		}
		design.Name = out

		log.Println("Saving design..")

		start = time.Now()
		design.Save()
		network.DoneMgo()
		network.WaitMgo()
		log.Printf("Design saved as %s. Elapsed: %v", out, time.Since(start))
	}
}
