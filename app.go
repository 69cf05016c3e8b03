package main

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// IPC topics the page can send to switch the displayed page.
const (
	topicDefault    = "default"
	topicFileManage = "filemanage"
)

var (
	errUnknownTopic = errors.New("unknown ipc topic")
	errNoWindow     = errors.New("no window open")
	errExitedEarly  = errors.New("samos exited before it was ready")
	errSamosExited  = errors.New("samos exited")
)

const stopGrace = 5 * time.Second

// server is the child process the shell supervises.
type server interface {
	Start() error
	Stop(grace time.Duration) error
	Pid() int
	Running() bool
	Ready() bool
}

// windowFactory creates a window showing url. It is called on the main thread.
type windowFactory func(url string, b Bindings) (Window, error)

// App holds the shell's mutable state: the open window, the samos child and
// the URL samos announced once it was ready.
type App struct {
	cfg     Config
	samos   server
	newWin  windowFactory
	showErr func(title, msg string)
	events  *EventHub

	mu         sync.Mutex
	win        Window
	pending    bool
	currentURL string
	quitting   bool
	err        error

	openCh   chan string
	quitCh   chan struct{}
	quitOnce sync.Once
}

// NewApp creates the shell. The caller wires the server's readiness and exit
// callbacks to OnSamosReady and OnSamosExit.
func NewApp(cfg Config, samos server, newWin windowFactory) *App {
	return &App{
		cfg:     cfg,
		samos:   samos,
		newWin:  newWin,
		showErr: showErrorBox,
		events:  NewEventHub(),
		openCh:  make(chan string, 1),
		quitCh:  make(chan struct{}),
	}
}

// Run starts samos and drives windows on the calling goroutine, which must be
// the main thread. It returns when the app quits, after samos was stopped.
func (a *App) Run() error {
	logger := component("shell")
	logger.Info().Msg("starting samos from shell")

	if err := a.samos.Start(); err != nil {
		logger.Error().Err(err).Msg("failed to start samos")
		a.showErr("Failed to start samos", err.Error())
		a.fail(err)
	}

	for {
		select {
		case <-a.quitCh:
			a.willQuit()
			return a.exitErr()
		case u := <-a.openCh:
			a.runWindow(u)
		}
	}
}

func (a *App) runWindow(u string) {
	logger := component("shell")
	if a.isQuitting() {
		a.clearPending()
		return
	}

	win, err := a.newWin(u, a.bindings())
	if err != nil {
		a.clearPending()
		logger.Error().Err(err).Str("url", u).Msg("create window")
		a.showErr("Failed to open window", err.Error())
		a.fail(err)
		return
	}

	a.mu.Lock()
	a.win = win
	a.pending = false
	a.mu.Unlock()
	logger.Info().Str("url", u).Msg("window opened")
	a.events.Publish(eventWindowOpen, u)

	win.Run()

	a.windowClosed()
	a.allWindowsClosed()
}

func (a *App) bindings() Bindings {
	return Bindings{
		topicDefault:    func() { a.logIPC(topicDefault) },
		topicFileManage: func() { a.logIPC(topicFileManage) },
		"quit":          a.Quit,
		"reload": func() {
			if w := a.window(); w != nil {
				w.Reload()
			}
		},
	}
}

func (a *App) logIPC(topic string) {
	if err := a.HandleIPC(topic); err != nil {
		component("ipc").Warn().Err(err).Str("topic", topic).Msg("ipc ignored")
	}
}

// requestWindow asks the main loop to open a window unless one is open or
// already pending.
func (a *App) requestWindow(u string) {
	a.mu.Lock()
	if a.win != nil || a.pending || a.quitting {
		a.mu.Unlock()
		return
	}
	if !a.urlAllowed(u) {
		component("shell").Warn().Str("url", u).Msg("refusing non-local url, using default")
		u = a.cfg.DefaultURL()
	}
	a.pending = true
	a.mu.Unlock()
	a.openCh <- u
}

func (a *App) urlAllowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return hostAllowed(a.cfg.AllowedHosts, u.Hostname())
}

func (a *App) clearPending() {
	a.mu.Lock()
	a.pending = false
	a.mu.Unlock()
}

// OnSamosReady records the URL samos serves and shows it.
func (a *App) OnSamosReady(u string) {
	component("shell").Info().Str("url", u).Msg("samos ready")
	a.mu.Lock()
	a.currentURL = u
	win := a.win
	a.mu.Unlock()
	a.events.Publish(eventSamosReady, u)

	if win != nil {
		win.Navigate(u)
		return
	}
	a.requestWindow(u)
}

// OnSamosExit releases the child. An exit that was not requested ends the
// session; samos is never restarted.
func (a *App) OnSamosExit(err error) {
	a.mu.Lock()
	ready := a.currentURL != ""
	quitting := a.quitting
	a.mu.Unlock()
	a.events.Publish(eventSamosExit, fmt.Sprint(err))
	if quitting {
		return
	}

	logger := component("shell")
	if !ready {
		logger.Error().Err(err).Msg("samos exited before it was ready")
		a.fail(fmt.Errorf("%w: %v", errExitedEarly, err))
		return
	}
	logger.Error().Err(err).Msg("samos exited, closing session")
	a.fail(fmt.Errorf("%w: %v", errSamosExited, err))
}

// SecondInstance handles a launch attempt while this instance runs: the
// existing window is focused, or recreated if it was closed.
func (a *App) SecondInstance() {
	a.mu.Lock()
	win := a.win
	u := a.currentURL
	a.mu.Unlock()

	logger := component("shell")
	if win != nil {
		logger.Info().Msg("second instance, focusing window")
		win.Focus()
		return
	}
	if u == "" {
		logger.Info().Msg("second instance before samos is ready")
		return
	}
	a.requestWindow(u)
}

// Activate recreates the window at the default page when none is open.
func (a *App) Activate() {
	a.mu.Lock()
	hasWin := a.win != nil
	ready := a.currentURL != ""
	a.mu.Unlock()
	if hasWin {
		return
	}
	if !ready {
		component("shell").Info().Msg("activate before samos is ready")
		return
	}
	a.requestWindow(a.cfg.DefaultURL())
}

// HandleIPC loads the page for topic in the open window.
func (a *App) HandleIPC(topic string) error {
	var target string
	switch topic {
	case topicDefault:
		target = a.cfg.DefaultURL()
	case topicFileManage:
		target = a.cfg.FileManageURL()
	default:
		return fmt.Errorf("%w: %q", errUnknownTopic, topic)
	}

	win := a.window()
	if win == nil {
		return errNoWindow
	}
	component("ipc").Info().Str("topic", topic).Str("url", target).Msg("load url")
	win.Navigate(target)
	a.events.Publish(eventIPC, topic)
	return nil
}

func (a *App) windowClosed() {
	a.mu.Lock()
	a.win = nil
	a.mu.Unlock()
	component("shell").Info().Msg("window closed")
	a.events.Publish(eventWindowClosed, "")
}

// allWindowsClosed quits unless the platform keeps apps alive without windows.
func (a *App) allWindowsClosed() {
	if a.cfg.KeepAliveWithoutWindows() {
		return
	}
	a.Quit()
}

// Quit closes the window and ends Run.
func (a *App) Quit() {
	a.quitOnce.Do(func() {
		a.mu.Lock()
		a.quitting = true
		win := a.win
		a.mu.Unlock()
		close(a.quitCh)
		if win != nil {
			win.Close()
		}
	})
}

func (a *App) fail(err error) {
	a.mu.Lock()
	if a.err == nil {
		a.err = err
	}
	a.mu.Unlock()
	a.Quit()
}

func (a *App) willQuit() {
	a.events.Publish(eventQuit, "")
	if err := a.samos.Stop(stopGrace); err != nil {
		component("shell").Warn().Err(err).Msg("stop samos")
	}
}

// Events returns the hub the shell publishes its state changes to.
func (a *App) Events() *EventHub { return a.events }

func (a *App) window() Window {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.win
}

func (a *App) isQuitting() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quitting
}

func (a *App) exitErr() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Status is the snapshot served on the control endpoint.
// Ready is the app's view, set once a window may be opened. ServerReady is
// the child's, and is false again after samos exits.
type Status struct {
	Ready         bool   `json:"ready"`
	URL           string `json:"url"`
	Window        bool   `json:"window"`
	ServerPID     int    `json:"server_pid"`
	ServerRunning bool   `json:"server_running"`
	ServerReady   bool   `json:"server_ready"`
	LastEvent     *Event `json:"last_event,omitempty"`
}

func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := Status{
		Ready:         a.currentURL != "",
		URL:           a.currentURL,
		Window:        a.win != nil,
		ServerPID:     a.samos.Pid(),
		ServerRunning: a.samos.Running(),
		ServerReady:   a.samos.Ready(),
	}
	if ev := a.events.Last(); ev.Seq > 0 {
		st.LastEvent = &ev
	}
	return st
}
