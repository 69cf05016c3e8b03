package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Supervisor runs the samos server as a child process and watches its output
// for the readiness marker. It never restarts the child.
type Supervisor struct {
	Path   string
	Args   []string
	Env    []string
	Marker string
	URL    string

	// OnReady is called with URL the first time the marker is seen, and again
	// when Start is called on a child that is already ready.
	OnReady func(url string)
	// OnExit is called once the child has exited and its output is drained.
	OnExit func(err error)

	mu      sync.Mutex
	cmd     *exec.Cmd
	exited  chan struct{}
	isReady bool
}

// Start spawns the child. Calling Start while a child is running does not
// spawn a second one.
func (s *Supervisor) Start() error {
	logger := component("samos")
	logger.Info().Str("path", s.Path).Strs("args", s.Args).Msg("starting samos")

	s.mu.Lock()
	if s.cmd != nil {
		ready := s.isReady
		s.mu.Unlock()
		logger.Info().Msg("samos already running")
		if ready {
			s.announce()
		}
		return nil
	}

	cmd := exec.Command(s.Path, s.Args...)
	cmd.Env = s.Env
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("samos stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("samos stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("start samos %s: %w", s.Path, err)
	}
	exited := make(chan struct{})
	s.cmd = cmd
	s.exited = exited
	s.isReady = false
	s.mu.Unlock()

	logger.Info().Int("pid", cmd.Process.Pid).Msg("samos started")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.scan(stdout, true)
	}()
	go func() {
		defer wg.Done()
		s.scan(stderr, false)
	}()

	go func() {
		wg.Wait()
		err := cmd.Wait()

		s.mu.Lock()
		s.cmd = nil
		s.isReady = false
		s.mu.Unlock()
		close(exited)

		if err != nil {
			logger.Warn().Err(err).Msg("samos exited")
		} else {
			logger.Info().Msg("samos exited")
		}
		if s.OnExit != nil {
			s.OnExit(err)
		}
	}()
	return nil
}

func (s *Supervisor) scan(r io.Reader, isStdout bool) {
	logger := component("samos")
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !isStdout {
			logger.Warn().Str("stream", "stderr").Msg(line)
			continue
		}
		logger.Info().Str("stream", "stdout").Msg(line)
		if strings.Contains(line, s.Marker) && s.markReady() {
			s.announce()
		}
	}
	// A scanner error (oversized line) must not block the child on a full pipe.
	if err := sc.Err(); err != nil {
		logger.Warn().Err(err).Msg("stopped reading samos output")
		io.Copy(io.Discard, r)
	}
}

// markReady reports whether this call flipped the child to ready.
func (s *Supervisor) markReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isReady {
		return false
	}
	s.isReady = true
	return true
}

func (s *Supervisor) announce() {
	if s.OnReady != nil {
		s.OnReady(s.URL)
	}
}

// Running reports whether a child is alive.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// Ready reports whether the running child printed the marker.
func (s *Supervisor) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isReady
}

// Pid returns the child's pid, or 0.
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

var errStopTimeout = errors.New("samos did not exit after kill")

// Stop interrupts the child and waits up to grace for it to exit before
// killing it.
func (s *Supervisor) Stop(grace time.Duration) error {
	s.mu.Lock()
	cmd, exited := s.cmd, s.exited
	s.mu.Unlock()
	if cmd == nil {
		return nil
	}

	logger := component("samos")
	if err := interrupt(cmd.Process); err != nil {
		logger.Warn().Err(err).Msg("interrupt samos")
	}
	select {
	case <-exited:
		return nil
	case <-time.After(grace):
	}

	logger.Warn().Dur("grace", grace).Msg("samos ignored interrupt, killing")
	if err := cmd.Process.Kill(); err != nil {
		logger.Warn().Err(err).Msg("kill samos")
	}
	select {
	case <-exited:
		return nil
	case <-time.After(grace):
		return errStopTimeout
	}
}
