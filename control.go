package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// controller is what the control endpoint drives.
type controller interface {
	SecondInstance()
	Activate()
	HandleIPC(topic string) error
	Status() Status
	Events() *EventHub
	Quit()
}

// newControlMux routes the local control API used by second instances and
// the MCP bridge.
func newControlMux(c controller) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/focus", func(w http.ResponseWriter, r *http.Request) {
		c.SecondInstance()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/activate", func(w http.ResponseWriter, r *http.Request) {
		c.Activate()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/ipc/{topic}", func(w http.ResponseWriter, r *http.Request) {
		err := c.HandleIPC(r.PathValue("topic"))
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, errUnknownTopic):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, errNoWindow):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(c.Status())
	})
	mux.HandleFunc("GET /api/events", c.Events().handleEventsSSE)
	mux.HandleFunc("POST /api/quit", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
		go c.Quit()
	})
	return mux
}

// startControl listens on a random loopback port, records it in the state
// directory and serves the control API in the background.
func startControl(c controller) (*http.Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("control listen: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	if err := writeState(port); err != nil {
		listener.Close()
		return nil, err
	}

	srv := &http.Server{Handler: newControlMux(c)}
	logger := component("control")
	logger.Info().Int("port", port).Msg("control endpoint listening")

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("control endpoint stopped")
		}
	}()
	return srv, nil
}
