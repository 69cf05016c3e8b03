package main

import (
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeWindow struct {
	mu      sync.Mutex
	urls    []string
	focused int
	reloads int

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeWindow(url string) *fakeWindow {
	return &fakeWindow{urls: []string{url}, closed: make(chan struct{})}
}

func (w *fakeWindow) Navigate(url string) {
	w.mu.Lock()
	w.urls = append(w.urls, url)
	w.mu.Unlock()
}

func (w *fakeWindow) Reload() {
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
}

func (w *fakeWindow) Focus() {
	w.mu.Lock()
	w.focused++
	w.mu.Unlock()
}

func (w *fakeWindow) Run()   { <-w.closed }
func (w *fakeWindow) Close() { w.closeOnce.Do(func() { close(w.closed) }) }

func (w *fakeWindow) lastURL() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.urls[len(w.urls)-1]
}

func (w *fakeWindow) focusCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}

type fakeServer struct {
	mu       sync.Mutex
	startErr error
	started  int
	stopped  int
	ready    bool
}

func (s *fakeServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	return s.startErr
}

func (s *fakeServer) Stop(time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	return nil
}

func (s *fakeServer) Pid() int { return 4242 }

func (s *fakeServer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started > s.stopped && s.startErr == nil
}

func (s *fakeServer) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *fakeServer) setReady(v bool) {
	s.mu.Lock()
	s.ready = v
	s.mu.Unlock()
}

func (s *fakeServer) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type appHarness struct {
	app     *App
	srv     *fakeServer
	windows chan *fakeWindow
	errBox  chan string
	done    chan error
}

func newHarness(keepAlive bool) *appHarness {
	cfg := DefaultConfig()
	cfg.KeepAlive = &keepAlive

	h := &appHarness{
		srv:     &fakeServer{},
		windows: make(chan *fakeWindow, 4),
		errBox:  make(chan string, 4),
		done:    make(chan error, 1),
	}
	h.app = NewApp(cfg, h.srv, func(url string, b Bindings) (Window, error) {
		w := newFakeWindow(url)
		h.windows <- w
		return w, nil
	})
	h.app.showErr = func(title, msg string) { h.errBox <- title }
	return h
}

func (h *appHarness) run() {
	go func() { h.done <- h.app.Run() }()
}

func (h *appHarness) nextWindow() *fakeWindow {
	select {
	case w := <-h.windows:
		return w
	case <-time.After(2 * time.Second):
		return nil
	}
}

func (h *appHarness) wait() (bool, error) {
	select {
	case err := <-h.done:
		return true, err
	case <-time.After(2 * time.Second):
		return false, nil
	}
}

// waitFor polls cond until it holds or a second passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestAppStartup(t *testing.T) {
	Convey("Given a shell whose server fails to start", t, func() {
		h := newHarness(false)
		h.srv.startErr = errors.New("exec: no such file")
		h.run()

		Convey("An error box is shown and the app quits without a window", func() {
			ok, err := h.wait()
			So(ok, ShouldBeTrue)
			So(err, ShouldNotBeNil)
			So(<-h.errBox, ShouldEqual, "Failed to start samos")
			So(len(h.windows), ShouldEqual, 0)
		})
	})

	Convey("Given a started shell", t, func() {
		h := newHarness(false)
		h.run()
		defer h.app.Quit()

		Convey("No window appears before samos is ready", func() {
			h.app.SecondInstance()
			h.app.Activate()
			time.Sleep(50 * time.Millisecond)
			So(len(h.windows), ShouldEqual, 0)
			st := h.app.Status()
			So(st.Ready, ShouldBeFalse)
			So(st.ServerRunning, ShouldBeTrue)
			So(st.ServerReady, ShouldBeFalse)
		})

		Convey("When samos exits before it is ready", func() {
			h.app.OnSamosExit(errors.New("exit status 1"))

			Convey("The app quits with an error and never opens a window", func() {
				ok, err := h.wait()
				So(ok, ShouldBeTrue)
				So(errors.Is(err, errExitedEarly), ShouldBeTrue)
				So(len(h.windows), ShouldEqual, 0)
			})
		})

		Convey("When samos becomes ready", func() {
			h.srv.setReady(true)
			h.app.OnSamosReady("http://127.0.0.1:7788/")
			w := h.nextWindow()

			Convey("A window opens at the announced URL", func() {
				So(w, ShouldNotBeNil)
				So(w.lastURL(), ShouldEqual, "http://127.0.0.1:7788/")
				So(waitFor(func() bool { return h.app.Status().Window }), ShouldBeTrue)

				st := h.app.Status()
				So(st.Ready, ShouldBeTrue)
				So(st.URL, ShouldEqual, "http://127.0.0.1:7788/")
				So(st.ServerPID, ShouldEqual, 4242)
				So(st.ServerReady, ShouldBeTrue)
				So(waitFor(func() bool {
					ev := h.app.Status().LastEvent
					return ev != nil && ev.Kind == eventWindowOpen
				}), ShouldBeTrue)
			})

			Convey("The filemanage topic loads the file manager", func() {
				So(waitFor(func() bool { return h.app.Status().Window }), ShouldBeTrue)
				So(h.app.HandleIPC(topicFileManage), ShouldBeNil)
				So(w.lastURL(), ShouldEqual, "http://127.0.0.1:7788/disk.html")

				Convey("And the default topic goes back", func() {
					So(h.app.HandleIPC(topicDefault), ShouldBeNil)
					So(w.lastURL(), ShouldEqual, "http://127.0.0.1:7788/")
				})
			})

			Convey("An unknown topic is rejected", func() {
				So(waitFor(func() bool { return h.app.Status().Window }), ShouldBeTrue)
				err := h.app.HandleIPC("settings")
				So(errors.Is(err, errUnknownTopic), ShouldBeTrue)
			})

			Convey("A second instance focuses the window instead of opening another", func() {
				So(waitFor(func() bool { return h.app.Status().Window }), ShouldBeTrue)
				h.app.SecondInstance()
				So(w.focusCount(), ShouldEqual, 1)
				So(len(h.windows), ShouldEqual, 0)
			})

			Convey("Closing the last window quits and stops samos", func() {
				So(waitFor(func() bool { return h.app.Status().Window }), ShouldBeTrue)
				w.Close()

				ok, err := h.wait()
				So(ok, ShouldBeTrue)
				So(err, ShouldBeNil)
				So(h.srv.stopCount(), ShouldEqual, 1)
			})

			Convey("A samos crash ends the session", func() {
				So(waitFor(func() bool { return h.app.Status().Window }), ShouldBeTrue)
				h.app.OnSamosExit(errors.New("signal: killed"))

				ok, err := h.wait()
				So(ok, ShouldBeTrue)
				So(errors.Is(err, errSamosExited), ShouldBeTrue)
			})
		})
	})
}

func TestAppKeepAlive(t *testing.T) {
	Convey("Given a shell that stays alive without windows", t, func() {
		h := newHarness(true)
		h.run()
		defer h.app.Quit()

		h.app.OnSamosReady("http://127.0.0.1:7788/")
		first := h.nextWindow()
		So(first, ShouldNotBeNil)
		So(waitFor(func() bool { return h.app.Status().Window }), ShouldBeTrue)
		first.Close()
		So(waitFor(func() bool { return !h.app.Status().Window }), ShouldBeTrue)

		Convey("Closing the window does not quit", func() {
			done, _ := h.wait()
			So(done, ShouldBeFalse)
		})

		Convey("IPC without a window is ignored", func() {
			So(errors.Is(h.app.HandleIPC(topicDefault), errNoWindow), ShouldBeTrue)
		})

		Convey("A second instance reopens the window at the current URL", func() {
			h.app.SecondInstance()
			w := h.nextWindow()
			So(w, ShouldNotBeNil)
			So(w.lastURL(), ShouldEqual, "http://127.0.0.1:7788/")
		})

		Convey("Activate reopens the window at the default page", func() {
			h.app.Activate()
			w := h.nextWindow()
			So(w, ShouldNotBeNil)
			So(w.lastURL(), ShouldEqual, "http://127.0.0.1:7788/")
		})

		Convey("Repeated requests open a single window", func() {
			h.app.SecondInstance()
			h.app.SecondInstance()
			h.app.Activate()
			So(h.nextWindow(), ShouldNotBeNil)
			time.Sleep(50 * time.Millisecond)
			So(len(h.windows), ShouldEqual, 0)
		})

		Convey("Quit ends Run and stops samos", func() {
			h.app.Quit()
			ok, err := h.wait()
			So(ok, ShouldBeTrue)
			So(err, ShouldBeNil)
			So(h.srv.stopCount(), ShouldEqual, 1)
		})
	})
}

func TestAppURLGuard(t *testing.T) {
	Convey("Given a shell told to show a foreign URL", t, func() {
		h := newHarness(false)
		h.run()
		defer h.app.Quit()

		h.app.OnSamosReady("http://example.com/")

		Convey("The window falls back to the default page", func() {
			w := h.nextWindow()
			So(w, ShouldNotBeNil)
			So(w.lastURL(), ShouldEqual, "http://127.0.0.1:7788/")
		})
	})
}

func TestAppBindings(t *testing.T) {
	Convey("Given the page bindings of an open window", t, func() {
		h := newHarness(false)
		h.run()
		defer h.app.Quit()

		h.app.OnSamosReady("http://127.0.0.1:7788/")
		w := h.nextWindow()
		So(w, ShouldNotBeNil)
		So(waitFor(func() bool { return h.app.Status().Window }), ShouldBeTrue)
		b := h.app.bindings()

		Convey("filemanage switches the page", func() {
			b[topicFileManage]()
			So(w.lastURL(), ShouldEqual, "http://127.0.0.1:7788/disk.html")
		})

		Convey("reload reloads the window", func() {
			b["reload"]()
			So(waitFor(func() bool { w.mu.Lock(); defer w.mu.Unlock(); return w.reloads == 1 }), ShouldBeTrue)
		})

		Convey("quit closes the window and ends Run", func() {
			b["quit"]()
			ok, _ := h.wait()
			So(ok, ShouldBeTrue)
		})
	})
}
