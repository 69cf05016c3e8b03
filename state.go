package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// stateDirOverride allows tests to redirect state files to a temp directory.
var stateDirOverride string

func stateDir() string {
	if stateDirOverride != "" {
		return stateDirOverride
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "samos-shell")
}

func pidFile() string  { return filepath.Join(stateDir(), "pid") }
func portFile() string { return filepath.Join(stateDir(), "port") }

// checkExisting returns the control URL of a running instance, or "" if none.
func checkExisting() string {
	pidBytes, err := os.ReadFile(pidFile())
	if err != nil {
		return ""
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(pidBytes)))
	if err != nil {
		return ""
	}
	if !processAlive(pid) {
		return ""
	}
	portBytes, err := os.ReadFile(portFile())
	if err != nil {
		return ""
	}
	port := strings.TrimSpace(string(portBytes))
	return fmt.Sprintf("http://127.0.0.1:%s", port)
}

func writeState(port int) error {
	dir := stateDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(pidFile(), []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	if err := os.WriteFile(portFile(), []byte(strconv.Itoa(port)), 0644); err != nil {
		return fmt.Errorf("write port file: %w", err)
	}
	return nil
}

func clearState() {
	os.Remove(pidFile())
	os.Remove(portFile())
}

var controlClient = &http.Client{Timeout: 3 * time.Second}

// errUnreachable means the state files name a live pid but nothing answers on
// the recorded control port, as after a crash followed by pid reuse.
var errUnreachable = errors.New("running instance unreachable")

// handOff passes the launch to a running instance if there is one. It returns
// true when that instance took over. Leftover state files that point at no
// control server are removed so this launch can start normally.
func handOff() (bool, error) {
	url := checkExisting()
	if url == "" {
		return false, nil
	}
	logger := component("main")
	err := activateExisting(url)
	switch {
	case err == nil:
		logger.Info().Str("control", url).Msg("already running, focused existing window")
		return true, nil
	case errors.Is(err, errUnreachable):
		logger.Warn().Err(err).Msg("removing stale instance state")
		clearState()
		return false, nil
	default:
		return false, err
	}
}

// activateExisting asks a running instance to show its window. It returns an
// error if the instance did not acknowledge the request.
func activateExisting(baseURL string) error {
	return postControl(baseURL, "/api/focus")
}

func postControl(baseURL, path string) error {
	resp, err := controlClient.Post(baseURL+path, "", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errUnreachable, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("running instance answered %s for %s", resp.Status, path)
	}
	return nil
}
