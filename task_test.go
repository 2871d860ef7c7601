package qdispatch

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewQuantumTaskGateNormalization(t *testing.T) {
	Convey("Given gate names in mixed case, with a cnot alias", t, func() {
		qt := NewQuantumTask("t1", nil, 3, []string{"CX", "Cnot", "h"})

		Convey("The gate set is normalized to lowercase with cnot folded into cx", func() {
			_, hasCX := qt.GateSet["cx"]
			_, hasCnot := qt.GateSet["cnot"]
			_, hasH := qt.GateSet["h"]
			So(hasCX, ShouldBeTrue)
			So(hasCnot, ShouldBeFalse)
			So(hasH, ShouldBeTrue)
		})
	})
}

func TestGateSetSubsetOf(t *testing.T) {
	Convey("Given a task requiring cx and h", t, func() {
		qt := NewQuantumTask("t1", nil, 2, []string{"cx", "h"})

		Convey("A superset gate set satisfies the subset check", func() {
			So(qt.gateSetSubsetOf(map[string]struct{}{"cx": {}, "h": {}, "cz": {}}), ShouldBeTrue)
		})

		Convey("A gate set missing one required gate fails", func() {
			So(qt.gateSetSubsetOf(map[string]struct{}{"cx": {}}), ShouldBeFalse)
		})
	})
}
