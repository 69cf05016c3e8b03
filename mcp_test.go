package main

import (
	"errors"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMCPBridge(t *testing.T) {
	Convey("Given a running shell served over HTTP", t, func() {
		c := newFakeController()
		ts := httptest.NewServer(newControlMux(c))
		defer ts.Close()
		b := bridge{baseURL: func() string { return ts.URL }}

		Convey("show_filemanage sends the filemanage topic", func() {
			out, err := b.showPage(topicFileManage)
			So(err, ShouldBeNil)
			So(out.Topic, ShouldEqual, topicFileManage)
			c.mu.Lock()
			So(c.topics, ShouldResemble, []string{topicFileManage})
			c.mu.Unlock()
		})

		Convey("A rejected topic surfaces as an error", func() {
			c.mu.Lock()
			c.ipcErr = errNoWindow
			c.mu.Unlock()
			_, err := b.showPage(topicDefault)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "409")
		})

		Convey("focus is acknowledged", func() {
			out, err := b.focus()
			So(err, ShouldBeNil)
			So(out.Success, ShouldBeTrue)
			So(c.focusCount(), ShouldEqual, 1)
		})

		Convey("status decodes the shell status", func() {
			out, err := b.status()
			So(err, ShouldBeNil)
			So(out.Ready, ShouldBeTrue)
			So(out.URL, ShouldEqual, "http://127.0.0.1:7788/")
			So(out.Window, ShouldBeTrue)
			So(out.ServerPID, ShouldEqual, 42)
			So(out.ServerRunning, ShouldBeTrue)
			So(out.ServerReady, ShouldBeTrue)
			So(out.LastEvent, ShouldNotBeNil)
			So(out.LastEvent.Seq, ShouldEqual, int64(3))
		})
	})

	Convey("Given no running shell", t, func() {
		b := bridge{baseURL: func() string { return "" }}

		Convey("Every tool reports that the shell is not running", func() {
			_, err := b.showPage(topicDefault)
			So(errors.Is(err, errNotRunning), ShouldBeTrue)
			_, err = b.focus()
			So(errors.Is(err, errNotRunning), ShouldBeTrue)
			_, err = b.status()
			So(errors.Is(err, errNotRunning), ShouldBeTrue)
		})
	})

	Convey("Given the MCP server", t, func() {
		Convey("It builds with the bridge tools", func() {
			s := newMCPServer(bridge{baseURL: func() string { return "" }})
			So(s, ShouldNotBeNil)
		})
	})
}
