// Package api serves the intake operations over HTTP
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/mrcode/nightscout-fpu/internal/fpu"
	"github.com/mrcode/nightscout-fpu/internal/intake"
	"github.com/mrcode/nightscout-fpu/internal/models"
	"github.com/mrcode/nightscout-fpu/internal/storage"
	"github.com/shopspring/decimal"
)

// Backend is the part of the application the API exposes
type Backend interface {
	AddIntake(ctx context.Context, req intake.Request) (intake.Result, error)
	AddPreset(ctx context.Context, presetID string, at time.Time) (intake.Result, error)
	Preview(fat, protein decimal.Decimal, at time.Time) (*fpu.Plan, error)
	Records(ctx context.Context, hours int) ([]models.IntakeRecord, error)
	DeleteGroup(ctx context.Context, groupID string) (int, error)
	Presets(ctx context.Context) ([]models.MealPreset, error)
	SavePreset(ctx context.Context, p *models.MealPreset) error
	DeletePreset(ctx context.Context, id string) error
	PendingConfirmations() []models.ConfirmationRequest
	ClearConfirmations() int
}

// Server handles HTTP requests
type Server struct {
	backend Backend
	router  *mux.Router
	logger  *slog.Logger
}

// NewServer creates a server and registers its routes
func NewServer(backend Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		backend: backend,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	r := s.router.PathPrefix("/api").Subrouter()
	r.HandleFunc("/intake", s.addIntake).Methods(http.MethodPost)
	r.HandleFunc("/plan", s.plan).Methods(http.MethodGet)
	r.HandleFunc("/records", s.listRecords).Methods(http.MethodGet)
	r.HandleFunc("/groups/{id}", s.deleteGroup).Methods(http.MethodDelete)
	r.HandleFunc("/presets", s.listPresets).Methods(http.MethodGet)
	r.HandleFunc("/presets", s.savePreset).Methods(http.MethodPost)
	r.HandleFunc("/presets/{id}", s.deletePreset).Methods(http.MethodDelete)
	r.HandleFunc("/confirmations", s.listConfirmations).Methods(http.MethodGet)
	r.HandleFunc("/confirmations", s.clearConfirmations).Methods(http.MethodDelete)

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("serving api", "addr", listener.Addr().String())
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type intakeBody struct {
	Carbs    decimal.Decimal `json:"carbs"`
	Fat      decimal.Decimal `json:"fat"`
	Protein  decimal.Decimal `json:"protein"`
	Time     *time.Time      `json:"time,omitempty"`
	PresetID string          `json:"presetId,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) addIntake(w http.ResponseWriter, r *http.Request) {
	var body intakeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var at time.Time
	if body.Time != nil {
		at = *body.Time
	}

	var (
		res intake.Result
		err error
	)
	if body.PresetID != "" {
		res, err = s.backend.AddPreset(r.Context(), body.PresetID, at)
	} else {
		res, err = s.backend.AddIntake(r.Context(), intake.Request{
			Carbs:   body.Carbs,
			Fat:     body.Fat,
			Protein: body.Protein,
			At:      at,
		})
	}
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) plan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fat, err := decimalParam(q.Get("fat"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	protein, err := decimalParam(q.Get("protein"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var at time.Time
	if v := q.Get("time"); v != "" {
		if at, err = time.Parse(time.RFC3339, v); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	plan, err := s.backend.Preview(fat, protein, at)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, errors.New("hours must be a positive integer"))
			return
		}
		hours = n
	}

	records, err := s.backend.Records(r.Context(), hours)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	if records == nil {
		records = []models.IntakeRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	n, err := s.backend.DeleteGroup(r.Context(), id)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	if n == 0 {
		s.writeError(w, http.StatusNotFound, storage.ErrNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) listPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.backend.Presets(r.Context())
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	if presets == nil {
		presets = []models.MealPreset{}
	}
	s.writeJSON(w, http.StatusOK, presets)
}

func (s *Server) savePreset(w http.ResponseWriter, r *http.Request) {
	var preset models.MealPreset
	if err := json.NewDecoder(r.Body).Decode(&preset); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if preset.IsEmpty() {
		s.writeError(w, http.StatusBadRequest, errors.New("preset needs a dish name and at least one macro"))
		return
	}

	if err := s.backend.SavePreset(r.Context(), &preset); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusCreated, preset)
}

func (s *Server) deletePreset(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeletePreset(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listConfirmations(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.PendingConfirmations())
}

func (s *Server) clearConfirmations(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]int{"cleared": s.backend.ClearConfirmations()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, intake.ErrNegativeQuantity),
		errors.Is(err, fpu.ErrDegenerateEquivalentSize),
		errors.Is(err, fpu.ErrInvalidInterval):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, intake.ErrStorageFailure),
		errors.Is(err, intake.ErrDosingTriggerFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decimalParam(v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(v)
}
