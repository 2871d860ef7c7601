package qdispatch

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsRecorderWritesHeaderOnce(t *testing.T) {
	Convey("Given a recorder pointed at a fresh CSV path", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "metrics.csv")
		recorder := NewMetricsRecorder(path)

		Convey("Recording two rows writes one header and two data rows", func() {
			err := recorder.Record(&TaskMetrics{TaskID: "t1", Status: "SUCCESS"})
			So(err, ShouldBeNil)
			err = recorder.Record(&TaskMetrics{TaskID: "t2", Status: "FAILED", ErrorMsg: "boom"})
			So(err, ShouldBeNil)

			contents, readErr := os.ReadFile(path)
			So(readErr, ShouldBeNil)

			lines := splitLines(string(contents))
			So(len(lines), ShouldEqual, 3)
			So(lines[0], ShouldEqual, "completion-time,error-msg,execution-secs,input-staging-data-size-bytes,pilot-scheduled,staging-time-secs,status,submit-time,task-id,wait-time-secs")
		})
	})
}

func TestMetricsRecorderPublishesToEventBus(t *testing.T) {
	Convey("Given a recorder with a subscriber on its metrics event bus", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "metrics.csv")
		recorder := NewMetricsRecorder(path)
		ch := recorder.Subscribe("monitor", 4)

		Convey("Recording a row delivers it on the subscriber channel", func() {
			err := recorder.Record(&TaskMetrics{TaskID: "t1", Status: "SUCCESS"})
			So(err, ShouldBeNil)

			qv := <-ch
			row, ok := qv.Value.(*TaskMetrics)
			So(ok, ShouldBeTrue)
			So(row.TaskID, ShouldEqual, "t1")
		})
	})
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
