package qdispatch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDispatcherSubmitClassicalAndResults(t *testing.T) {
	Convey("Given a dispatcher with one classical pilot", t, func() {
		pilots := NewLocalPilotManager()
		pilots.AddPilot(NewPilotDescription("poolA"))
		dispatcher := NewDispatcher(pilots, nil)

		Convey("Submitting several tasks preserves result order regardless of completion order", func() {
			var futures []Future
			for i := 0; i < 3; i++ {
				n := i
				f, err := dispatcher.SubmitClassical(taskName(n), "poolA", func() (any, error) {
					return n, nil
				})
				So(err, ShouldBeNil)
				futures = append(futures, f)
			}

			dispatcher.WaitAll(futures)
			results := dispatcher.GetResults(futures)
			So(len(results), ShouldEqual, 3)
			for i, r := range results {
				So(r, ShouldEqual, i)
			}
		})

		Convey("A failing task's result is nil, not an error, in GetResults", func() {
			f, err := dispatcher.SubmitClassical("failing", "poolA", func() (any, error) {
				return nil, errors.New("boom")
			})
			So(err, ShouldBeNil)

			dispatcher.WaitAll([]Future{f})
			results := dispatcher.GetResults([]Future{f})
			So(results[0], ShouldBeNil)
		})
	})
}

func TestDispatcherSubmitClassicalWritesOneMetricsRowPerTask(t *testing.T) {
	Convey("Given a dispatcher wired to a metrics recorder", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "metrics.csv")
		recorder := NewMetricsRecorder(path)

		pilots := NewLocalPilotManager()
		pilots.AddPilot(NewPilotDescription("poolA"))
		dispatcher := NewDispatcher(pilots, recorder)

		Convey("A successful task writes exactly one SUCCESS row", func() {
			f, err := dispatcher.SubmitClassical("ok-task", "poolA", func() (any, error) {
				return 42, nil
			})
			So(err, ShouldBeNil)
			dispatcher.WaitAll([]Future{f})

			contents, readErr := os.ReadFile(path)
			So(readErr, ShouldBeNil)
			lines := splitLines(string(contents))
			So(len(lines), ShouldEqual, 2)
			So(lines[1], ShouldContainSubstring, "ok-task")
			So(lines[1], ShouldContainSubstring, "SUCCESS")
		})

		Convey("A failing task writes exactly one FAILED row with the error message", func() {
			f, err := dispatcher.SubmitClassical("bad-task", "poolA", func() (any, error) {
				return nil, errors.New("kaboom")
			})
			So(err, ShouldBeNil)
			dispatcher.WaitAll([]Future{f})

			contents, readErr := os.ReadFile(path)
			So(readErr, ShouldBeNil)
			lines := splitLines(string(contents))
			So(len(lines), ShouldEqual, 2)
			So(lines[1], ShouldContainSubstring, "bad-task")
			So(lines[1], ShouldContainSubstring, "FAILED")
			So(lines[1], ShouldContainSubstring, "kaboom")
			So(strings.Count(string(contents), "bad-task"), ShouldEqual, 1)
		})
	})
}

func TestDispatcherSubmitHybridEntanglesClassicalAndQuantum(t *testing.T) {
	Convey("Given a dispatcher with a quantum pilot and an initialized dreamer", t, func() {
		pilots := NewLocalPilotManager()
		desc := NewPilotDescription("qpoolA")
		desc.ResourceType = "quantum"
		desc.Quantum = &QuantumPilotConfig{Executor: "qiskit"}
		pilots.AddPilot(desc)

		dispatcher := NewDispatcher(pilots, nil)
		err := dispatcher.InitializeDreamer(NewDefaultResourceGenerator(), HighFidelity, nil)
		So(err, ShouldBeNil)

		Convey("The classical half's write is visible through the quantum half's entanglement", func() {
			qt := NewQuantumTask("hybrid-q", []CircuitBuilder{func() any { return "c0" }}, 2, []string{"cx"})
			classical, quantum, err := dispatcher.SubmitHybrid("hybrid-c", "hybrid-q", "qpoolA", func() (any, error) {
				return "preprocessed", nil
			}, qt)
			So(err, ShouldBeNil)
			So(classical, ShouldNotBeNil)
			So(quantum, ShouldNotBeNil)

			So(classical.Wait(), ShouldBeNil)
			So(quantum.Wait(), ShouldBeNil)

			state, ok := dispatcher.HybridState("qpoolA", "hybrid-q")
			So(ok, ShouldBeTrue)
			So(state["hybrid-c"], ShouldEqual, "preprocessed")
		})
	})
}

func taskName(n int) string {
	return "task-" + string(rune('0'+n))
}

func TestDispatcherSubmitQuantumRequiresInitialization(t *testing.T) {
	Convey("Given a dispatcher that has not called InitializeDreamer", t, func() {
		pilots := NewLocalPilotManager()
		dispatcher := NewDispatcher(pilots, nil)

		Convey("SubmitQuantum fails with NotInitialized", func() {
			qt := NewQuantumTask("q1", nil, 2, []string{"cx"})
			_, err := dispatcher.SubmitQuantum(qt)
			So(errors.Is(err, ErrNotInitialized), ShouldBeTrue)
		})
	})
}

func TestDispatcherInitializeDreamerNoQuantumPilots(t *testing.T) {
	Convey("Given a dispatcher with only classical pilots", t, func() {
		pilots := NewLocalPilotManager()
		pilots.AddPilot(NewPilotDescription("poolA"))
		dispatcher := NewDispatcher(pilots, nil)

		Convey("InitializeDreamer fails with NoQuantumPilots", func() {
			err := dispatcher.InitializeDreamer(NewDefaultResourceGenerator(), HighFidelity, nil)
			So(errors.Is(err, ErrNoQuantumPilots), ShouldBeTrue)
		})
	})
}

func TestDispatcherInitializeDreamerSuccess(t *testing.T) {
	Convey("Given a dispatcher with one quantum pilot", t, func() {
		pilots := NewLocalPilotManager()
		desc := NewPilotDescription("qpoolA")
		desc.ResourceType = "quantum"
		desc.Quantum = &QuantumPilotConfig{Executor: "qiskit"}
		pilots.AddPilot(desc)

		dispatcher := NewDispatcher(pilots, nil)

		Convey("InitializeDreamer assembles a catalogue and readies SubmitQuantum", func() {
			err := dispatcher.InitializeDreamer(NewDefaultResourceGenerator(), HighFidelity, nil)
			So(err, ShouldBeNil)

			qt := NewQuantumTask("q1", []CircuitBuilder{func() any { return "c0" }}, 2, []string{"cx"})
			future, err := dispatcher.SubmitQuantum(qt)
			So(err, ShouldBeNil)

			resErr := future.Wait()
			So(resErr, ShouldBeNil)
		})
	})
}
