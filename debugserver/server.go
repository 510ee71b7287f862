// Package debugserver exposes the fixed debug contract over HTTP: any
// request returns a 201 text/plain dump of every registered Debuggable.
// Built directly on net/http since nothing about a single catch-all
// handler needs a router — see DESIGN.md for why this one surface stays
// on the standard library while the rest of the module reaches for the
// pack's third-party stack.
package debugserver

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"

	"github.com/gocpo/cpo/registry"
)

// Server serves the debug dump for one process's Registry.
type Server struct {
	reg      *registry.Registry
	httpSrv  *http.Server
	listener net.Listener
}

// New binds a listener on addr (host:port — an empty port picks one
// ephemerally) and returns a Server ready to Serve. Passing a negative
// port via addr's caller is how a caller disables the debug endpoint
// entirely, by simply not calling New.
func New(addr string, reg *registry.Registry) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("debugserver: listen %s: %w", addr, err)
	}
	s := &Server{reg: reg, listener: ln}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.httpSrv = &http.Server{Handler: mux}
	return s, nil
}

// Addr returns the address the server is actually listening on, useful
// when New was given an ephemeral port.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Serve blocks serving requests until the listener is closed.
func (s *Server) Serve() error {
	err := s.httpSrv.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts the server down.
func (s *Server) Close() error { return s.httpSrv.Close() }

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	entries := s.reg.Snapshot()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	fmt.Fprintf(w, "registered debuggables: %d\n", len(entries))
	for _, d := range entries {
		io.WriteString(w, d.DebugState())
		io.WriteString(w, "\n")
	}
}
