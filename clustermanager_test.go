package qdispatch

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLocalPilotManagerAddPilot(t *testing.T) {
	Convey("Given a local pilot manager", t, func() {
		manager := NewLocalPilotManager()

		Convey("Adding a classical pilot registers it and exposes a cluster client", func() {
			job, err := manager.AddPilot(NewPilotDescription("poolA"))
			So(err, ShouldBeNil)
			So(job.State, ShouldEqual, PilotRunning)

			client, err := manager.ClusterClientFor("poolA")
			So(err, ShouldBeNil)
			So(client, ShouldNotBeNil)
		})

		Convey("Adding a quantum pilot is discoverable via quantumPilots", func() {
			desc := NewPilotDescription("qpool")
			desc.ResourceType = "quantum"
			desc.Quantum = &QuantumPilotConfig{Executor: "qiskit"}
			manager.AddPilot(desc)
			manager.AddPilot(NewPilotDescription("classicalOnly"))

			quantum := manager.quantumPilots()
			So(len(quantum), ShouldEqual, 1)
			So(quantum[0].ID, ShouldEqual, "qpool")
		})

		Convey("Cancel marks every pilot canceled and is idempotent", func() {
			manager.AddPilot(NewPilotDescription("poolB"))
			So(manager.Cancel(), ShouldBeNil)
			So(manager.Pilots()[0].State, ShouldEqual, PilotCanceled)
			So(manager.Cancel(), ShouldBeNil)
			So(manager.Pilots()[0].State, ShouldEqual, PilotCanceled)
		})
	})
}
