package qdispatch

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCatalogueUniqueness(t *testing.T) {
	Convey("Given two resources sharing a bare name from different pilots", t, func() {
		catalogue := NewCatalogue()
		a := NewQuantumResource("sim", 10, []string{"cx"}, nil, 0, nil, "P1")
		b := NewQuantumResource("sim", 10, []string{"cx"}, nil, 0, nil, "P2")

		Convey("When both are added", func() {
			catalogue.Add(a)
			catalogue.Add(b)

			Convey("Neither overwrites the other", func() {
				So(catalogue.Len(), ShouldEqual, 2)
				_, okA := catalogue.Get("P1_sim")
				_, okB := catalogue.Get("P2_sim")
				So(okA, ShouldBeTrue)
				So(okB, ShouldBeTrue)
			})
		})
	})
}

func TestCatalogueUniquenessThreeWayCollision(t *testing.T) {
	Convey("Given three resources sharing a bare name from three different pilots", t, func() {
		catalogue := NewCatalogue()
		a := NewQuantumResource("sim", 10, []string{"cx"}, nil, 0, nil, "P1")
		b := NewQuantumResource("sim", 10, []string{"cx"}, nil, 0, nil, "P2")
		c := NewQuantumResource("sim", 10, []string{"cx"}, nil, 0, nil, "P3")

		Convey("When all three are added in sequence", func() {
			catalogue.Add(a)
			catalogue.Add(b)
			catalogue.Add(c)

			Convey("Every one of them ends up under its own origin-pilot prefix", func() {
				So(catalogue.Len(), ShouldEqual, 3)
				_, okA := catalogue.Get("P1_sim")
				_, okB := catalogue.Get("P2_sim")
				_, okC := catalogue.Get("P3_sim")
				So(okA, ShouldBeTrue)
				So(okB, ShouldBeTrue)
				So(okC, ShouldBeTrue)
				_, bare := catalogue.Get("sim")
				So(bare, ShouldBeFalse)
			})
		})
	})
}

func TestResourceSuitability(t *testing.T) {
	Convey("Given a resource suitable for a task", t, func() {
		errRate := 0.01
		r := NewQuantumResource("r1", 4, []string{"cx", "h"}, &errRate, 0, nil, "p")
		qt := NewQuantumTask("t1", nil, 2, []string{"cx"})

		Convey("Adding gates to the resource keeps it suitable", func() {
			So(r.suitableFor(qt), ShouldBeTrue)
			r2 := NewQuantumResource("r1", 4, []string{"cx", "h", "cz"}, &errRate, 0, nil, "p")
			So(r2.suitableFor(qt), ShouldBeTrue)
		})

		Convey("Removing a required gate makes it unsuitable", func() {
			r3 := NewQuantumResource("r1", 4, []string{"h"}, &errRate, 0, nil, "p")
			So(r3.suitableFor(qt), ShouldBeFalse)
		})

		Convey("Insufficient qubit count makes it unsuitable", func() {
			small := NewQuantumResource("r1", 1, []string{"cx", "h"}, &errRate, 0, nil, "p")
			So(small.suitableFor(qt), ShouldBeFalse)
		})
	})
}

func TestCatalogueSuitableOrder(t *testing.T) {
	Convey("Given a catalogue with several resources", t, func() {
		catalogue := NewCatalogue()
		catalogue.Add(NewQuantumResource("a", 2, []string{"cx"}, nil, 0, nil, "p"))
		catalogue.Add(NewQuantumResource("b", 2, []string{"cx"}, nil, 0, nil, "p"))
		catalogue.Add(NewQuantumResource("c", 1, []string{"cx"}, nil, 0, nil, "p"))

		Convey("Suitable preserves insertion order and filters unsuitable resources", func() {
			qt := NewQuantumTask("t", nil, 2, []string{"cx"})
			suitable := catalogue.Suitable(qt)
			So(len(suitable), ShouldEqual, 2)
			So(suitable[0].Name(), ShouldEqual, "a")
			So(suitable[1].Name(), ShouldEqual, "b")
		})
	})
}
