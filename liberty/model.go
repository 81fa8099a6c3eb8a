package liberty

// GateModel computes the delay and output slew of a timing arc given the
// input slew and the capacitive load on the output pin. This is the
// gate-delay interface; arcs without one cannot be characterized.
type GateModel interface {
	GateDelay(inSlew, loadCap float64) (delay, slew float64)
}

// LinearModel is a first-order delay model:
//
//	delay = Intrinsic + DriveRes*load
//	slew  = SlewIntrinsic + SlewLoad*load + SlewSlew*inSlew
//
// It is exact enough for drive-strength selection and keeps the target-load
// binary search well behaved.
type LinearModel struct {
	Intrinsic     float64 `bson:"intrinsic"`
	DriveRes      float64 `bson:"drive_res"`
	SlewIntrinsic float64 `bson:"slew_intrinsic"`
	SlewLoad      float64 `bson:"slew_load"`
	SlewSlew      float64 `bson:"slew_slew"`
}

func (m *LinearModel) GateDelay(inSlew, loadCap float64) (delay, slew float64) {
	delay = m.Intrinsic + m.DriveRes*loadCap
	slew = m.SlewIntrinsic + m.SlewLoad*loadCap + m.SlewSlew*inSlew
	return
}
