package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gosuri/uitable"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/groundlink/internal/pkg/metrics"
	"github.com/autopeer-io/groundlink/internal/vehicle"
	"github.com/autopeer-io/groundlink/pkg/log"
	"github.com/autopeer-io/groundlink/pkg/options"
)

// Caller runs a function on the manager loop and waits for it.
type Caller interface {
	Call(ctx context.Context, fn func()) error
}

type Server struct {
	server  *http.Server
	options *options.HttpOptions

	loop    Caller
	manager *vehicle.Manager
	ready   func() bool
	events  *Broadcaster
}

// NewServer builds the query API. ready backs /readyz.
func NewServer(opts *options.HttpOptions, loop Caller, manager *vehicle.Manager, ready func() bool) *Server {
	s := &Server{
		options: opts,
		loop:    loop,
		manager: manager,
		ready:   ready,
		events:  NewBroadcaster(),
	}
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router. It is exported for tests.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.ready != nil && !s.ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/vehicles", s.listVehicles).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id:[0-9]+}", s.getVehicle).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id:[0-9]+}", s.deleteVehicle).Methods(http.MethodDelete)
	api.HandleFunc("/active", s.getActive).Methods(http.MethodGet)
	api.HandleFunc("/active", s.putActive).Methods(http.MethodPut)
	api.HandleFunc("/heartbeat", s.getHeartbeat).Methods(http.MethodGet)
	api.HandleFunc("/heartbeat", s.putHeartbeat).Methods(http.MethodPut)
	api.HandleFunc("/rtk", s.getRTK).Methods(http.MethodGet)
	api.HandleFunc("/links/{link}/in-use", s.linkInUse).Methods(http.MethodGet)
	api.HandleFunc("/ignored", s.listIgnored).Methods(http.MethodGet)
	api.HandleFunc("/ignored", s.clearIgnored).Methods(http.MethodDelete)
	api.HandleFunc("/ignored/{id:[0-9]+}", s.putIgnored).Methods(http.MethodPut)
	api.HandleFunc("/events", s.streamEvents).Methods(http.MethodGet)

	r.HandleFunc("/debug/vehicles", s.debugVehicles).Methods(http.MethodGet)

	return r
}

// AttachEvents hooks the event stream to the manager.
func (s *Server) AttachEvents(ctx context.Context) error {
	return s.loop.Call(ctx, func() { s.events.Attach(s.manager) })
}

func (s *Server) Start(ctx context.Context) error {
	if err := s.AttachEvents(ctx); err != nil {
		return err
	}
	defer s.loop.Call(context.Background(), s.events.Detach)

	log.Info("Starting HTTP Server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

// call runs fn on the loop bounded by the configured timeout.
func (s *Server) call(r *http.Request, fn func(m *vehicle.Manager)) error {
	ctx, cancel := context.WithTimeout(r.Context(), s.options.Timeout)
	defer cancel()
	return s.loop.Call(ctx, func() { fn(s.manager) })
}

func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	var views []VehicleView
	err := s.call(r, func(m *vehicle.Manager) {
		active := m.Active()
		views = make([]VehicleView, 0, len(m.Vehicles()))
		for _, v := range m.Vehicles() {
			views = append(views, newVehicleView(v, active))
		}
	})
	s.reply(w, http.StatusOK, views, err)
}

func (s *Server) getVehicle(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	var view *VehicleView
	err := s.call(r, func(m *vehicle.Manager) {
		if v := m.Vehicle(id); v != nil {
			vv := newVehicleView(v, m.Active())
			view = &vv
		}
	})
	if err == nil && view == nil {
		err = fmt.Errorf("vehicle %d: %w", id, vehicle.ErrUnknownID)
	}
	s.reply(w, http.StatusOK, view, err)
}

func (s *Server) deleteVehicle(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	var opErr error
	err := s.call(r, func(m *vehicle.Manager) { opErr = m.RemoveVehicle(id) })
	s.reply(w, http.StatusAccepted, nil, errors.Join(err, opErr))
}

func (s *Server) getActive(w http.ResponseWriter, r *http.Request) {
	var view ActiveView
	err := s.call(r, func(m *vehicle.Manager) { view = newActiveView(m) })
	s.reply(w, http.StatusOK, view, err)
}

func (s *Server) putActive(w http.ResponseWriter, r *http.Request) {
	var req ActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorView{Error: err.Error()})
		return
	}

	var opErr error
	err := s.call(r, func(m *vehicle.Manager) { opErr = m.SetActiveByID(req.ID) })
	s.reply(w, http.StatusAccepted, nil, errors.Join(err, opErr))
}

func (s *Server) getHeartbeat(w http.ResponseWriter, r *http.Request) {
	var view HeartbeatView
	err := s.call(r, func(m *vehicle.Manager) { view.Enabled = m.HeartbeatEnabled() })
	s.reply(w, http.StatusOK, view, err)
}

func (s *Server) putHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req HeartbeatView
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorView{Error: err.Error()})
		return
	}

	err := s.call(r, func(m *vehicle.Manager) { m.SetHeartbeatEnabled(req.Enabled) })
	s.reply(w, http.StatusOK, req, err)
}

func (s *Server) getRTK(w http.ResponseWriter, r *http.Request) {
	var status any
	err := s.call(r, func(m *vehicle.Manager) { status = m.RTK().Snapshot() })
	s.reply(w, http.StatusOK, status, err)
}

func (s *Server) linkInUse(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["link"]

	exclude := 0
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, ErrorView{Error: "exclude must be a vehicle id"})
			return
		}
		exclude = n
	}

	view := LinkInUseView{Link: name}
	err := s.call(r, func(m *vehicle.Manager) {
		view.InUse = m.LinkInUse(name, m.Vehicle(exclude))
	})
	s.reply(w, http.StatusOK, view, err)
}

func (s *Server) listIgnored(w http.ResponseWriter, r *http.Request) {
	var ids []int
	err := s.call(r, func(m *vehicle.Manager) { ids = m.IgnoredVehicles() })
	s.reply(w, http.StatusOK, ids, err)
}

func (s *Server) putIgnored(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	var opErr error
	err := s.call(r, func(m *vehicle.Manager) { opErr = m.IgnoreVehicle(id) })
	s.reply(w, http.StatusNoContent, nil, errors.Join(err, opErr))
}

func (s *Server) clearIgnored(w http.ResponseWriter, r *http.Request) {
	err := s.call(r, func(m *vehicle.Manager) { m.ClearIgnoredVehicles() })
	s.reply(w, http.StatusNoContent, nil, err)
}

func (s *Server) debugVehicles(w http.ResponseWriter, r *http.Request) {
	table := uitable.New()
	table.MaxColWidth = 32
	table.AddRow("ID", "LINK", "STATE", "FIRMWARE", "TYPE", "PARAMS", "HEARTBEAT", "ACTIVE")

	var pending int
	err := s.call(r, func(m *vehicle.Manager) {
		active := m.Active()
		for _, v := range m.Vehicles() {
			view := newVehicleView(v, active)
			table.AddRow(view.ID, view.Link, view.State, view.FirmwareType, view.VehicleType,
				view.ParametersReady, view.HeartbeatEligible, view.Active)
		}
		pending = m.PendingDeletions()
	})
	if err != nil {
		s.reply(w, http.StatusOK, nil, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, table)
	fmt.Fprintf(w, "\npending deletions: %d\n", pending)
}

// reply writes body with status, or maps err to an error response.
func (s *Server) reply(w http.ResponseWriter, status int, body any, err error) {
	if err != nil {
		s.writeJSON(w, statusFor(err), ErrorView{Error: err.Error()})
		return
	}
	if body == nil {
		w.WriteHeader(status)
		return
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn("Failed to write response", "err", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, vehicle.ErrUnknownID):
		return http.StatusNotFound
	case errors.Is(err, vehicle.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}
