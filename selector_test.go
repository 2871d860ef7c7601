package qdispatch

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func buildS3Catalogue() *Catalogue {
	catalogue := NewCatalogue()
	errA, errB := 0.001, 0.1
	catalogue.Add(NewQuantumResource("A", 4, []string{"cx"}, &errA, 0, nil, "p"))
	catalogue.Add(NewQuantumResource("B", 4, []string{"cx"}, &errB, 0, nil, "p"))
	return catalogue
}

func TestScoringSelectorHighFidelity(t *testing.T) {
	Convey("Given a catalogue with a precise but busy resource and a noisy idle one", t, func() {
		catalogue := buildS3Catalogue()
		qt := NewQuantumTask("t", nil, 2, []string{"cx"})

		selector := NewScoringSelector(HighFidelity, nil, false)
		selector.SeedQueueDynamics(map[string]float64{"A": 0.9, "B": 0.0})

		Convey("Under high_fidelity weighting B wins on total weighted cost", func() {
			pick := selector.Select(qt, catalogue)
			So(pick, ShouldNotBeNil)
			So(pick.Name(), ShouldEqual, "B")
		})
	})
}

func TestScoringSelectorHighSpeed(t *testing.T) {
	Convey("Given the same catalogue under high_speed weighting", t, func() {
		catalogue := buildS3Catalogue()
		qt := NewQuantumTask("t", nil, 2, []string{"cx"})

		selector := NewScoringSelector(HighSpeed, nil, false)
		selector.SeedQueueDynamics(map[string]float64{"A": 0.9, "B": 0.0})

		Convey("The idle resource B wins even though it is noisier", func() {
			pick := selector.Select(qt, catalogue)
			So(pick, ShouldNotBeNil)
			So(pick.Name(), ShouldEqual, "B")
		})
	})
}

func TestScoringSelectorUnsuitableFilter(t *testing.T) {
	Convey("Given a catalogue whose only resource can't fit the task", t, func() {
		catalogue := NewCatalogue()
		catalogue.Add(NewQuantumResource("small", 1, []string{"cx"}, nil, 0, nil, "p"))
		qt := NewQuantumTask("t", nil, 2, []string{"cx"})

		selector := NewScoringSelector(HighFidelity, nil, false)

		Convey("Select returns nil", func() {
			So(selector.Select(qt, catalogue), ShouldBeNil)
		})
	})
}

func TestSimpleSelectorLeastErrorRate(t *testing.T) {
	Convey("Given resources with different error rates", t, func() {
		catalogue := buildS3Catalogue()
		qt := NewQuantumTask("t", nil, 2, []string{"cx"})
		selector := NewSimpleSelector(LeastErrorRate)

		Convey("It picks the lowest error-rate resource", func() {
			pick := selector.Select(qt, catalogue)
			So(pick.Name(), ShouldEqual, "A")
		})
	})
}

func TestSimpleSelectorRoundRobinLaw(t *testing.T) {
	Convey("Given a catalogue of n resources and k consecutive selections", t, func() {
		catalogue := NewCatalogue()
		catalogue.Add(NewQuantumResource("a", 2, []string{"cx"}, nil, 0, nil, "p"))
		catalogue.Add(NewQuantumResource("b", 2, []string{"cx"}, nil, 0, nil, "p"))
		catalogue.Add(NewQuantumResource("c", 2, []string{"cx"}, nil, 0, nil, "p"))
		qt := NewQuantumTask("t", nil, 2, []string{"cx"})
		selector := NewSimpleSelector(RoundRobin)

		Convey("Every entry is visited floor(k/n) to ceil(k/n) times, in insertion order", func() {
			counts := map[string]int{}
			k := 10
			n := 3
			for i := 0; i < k; i++ {
				counts[selector.Select(qt, catalogue).Name()]++
			}
			for _, c := range counts {
				So(c, ShouldBeGreaterThanOrEqualTo, k/n)
				So(c, ShouldBeLessThanOrEqualTo, k/n+1)
			}

			first := selector.Select(qt, catalogue)
			second := selector.Select(qt, catalogue)
			So(first.Name(), ShouldNotEqual, second.Name())
		})
	})
}
