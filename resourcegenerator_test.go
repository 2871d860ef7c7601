package qdispatch

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaultResourceGenerator(t *testing.T) {
	Convey("Given a qiskit simulator executor and an origin pilot", t, func() {
		registry := NewExecutorRegistry()
		executor, _ := registry.Create("qiskit", nil)
		generator := NewDefaultResourceGenerator()

		Convey("Generate wraps every descriptor into a resource tagged with the origin pilot", func() {
			resources := generator.Generate("pilotA", executor)
			So(len(resources), ShouldEqual, 1)
			So(resources[0].Name(), ShouldEqual, "qiskit-sim")
			So(resources[0].originPilot, ShouldEqual, "pilotA")
			So(resources[0].QubitCount(), ShouldEqual, 32)
		})
	})
}
