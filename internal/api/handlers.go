package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"powersim/adapters/report"
	"powersim/app"
	"powersim/domain/core"
	"powersim/domain/power"
	apperrors "powersim/internal/errors"
	"powersim/ports"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type estimateRequest struct {
	ControlMean   float64  `json:"control_mean"`
	TreatmentMean float64  `json:"treatment_mean"`
	SD            float64  `json:"sd"`
	N             int      `json:"n"`
	Alpha         *float64 `json:"alpha,omitempty"`
	Replicates    *int     `json:"replicates,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
	Test          string   `json:"test,omitempty"`
	Seed          *int64   `json:"seed,omitempty"`
}

type estimateResponse struct {
	Params        power.TrialParams `json:"params"`
	Seed          int64             `json:"seed"`
	Estimate      power.Estimate    `json:"estimate"`
	AnalyticPower float64           `json:"analytic_power"`
}

type sweepRequest struct {
	estimateRequest
	Scenario string   `json:"scenario,omitempty"`
	NMin     *int     `json:"n_min,omitempty"`
	NMax     *int     `json:"n_max,omitempty"`
	NStep    *int     `json:"n_step,omitempty"`
	Target   *float64 `json:"target,omitempty"`
	Save     bool     `json:"save"`
}

type sweepResponse struct {
	Run     *power.Run `json:"run"`
	Reached bool       `json:"reached"`
	Message string     `json:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	params, seed, err := s.params(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	est, err := s.service.Estimate(r.Context(), params, seed)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, estimateResponse{
		Params:        params,
		Seed:          seed,
		Estimate:      est,
		AnalyticPower: power.AnalyticPower(params),
	})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	params, seed, err := s.params(req.estimateRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	scenario, err := s.scenario(req, params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rng := s.defaults.Range
	if req.NMin != nil {
		rng.Min = *req.NMin
	}
	if req.NMax != nil {
		rng.Max = *req.NMax
	}
	if req.NStep != nil {
		rng.Step = *req.NStep
	}
	target := s.defaults.Target
	if req.Target != nil {
		target = *req.Target
	}

	run, err := s.service.RunSweep(r.Context(), app.SweepRequest{
		Scenario: scenario,
		Params:   params,
		Range:    rng,
		Target:   target,
		Seed:     seed,
		Save:     req.Save,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, sweepResponse{Run: run, Reached: true})
	case errors.Is(err, core.ErrTargetNotFound) && run != nil:
		writeJSON(w, http.StatusOK, sweepResponse{Run: run, Reached: false, Message: err.Error()})
	default:
		s.writeError(w, r, err)
	}
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, power.DefaultScenarios())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ports.RunFilters{Scenario: q.Get("scenario")}

	var err error
	if filters.Limit, err = queryInt(q.Get("limit"), "limit"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if filters.Offset, err = queryInt(q.Get("offset"), "offset"); err != nil {
		s.writeError(w, r, err)
		return
	}

	runs, err := s.service.ListRuns(r.Context(), filters)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []power.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.loadRun(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunPlot(w http.ResponseWriter, r *http.Request) {
	s.exportRun(w, r, "svg")
}

func (s *Server) handleRunExport(w http.ResponseWriter, r *http.Request) {
	s.exportRun(w, r, chi.URLParam(r, "format"))
}

func (s *Server) exportRun(w http.ResponseWriter, r *http.Request, format string) {
	exporter, err := report.ExporterFor(format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	run, err := s.loadRun(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	if format != "svg" && format != "html" {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="%s-%s.%s"`, run.Scenario.Name, run.ID.String(), format))
	}
	if err := exporter.Export(w, run); err != nil {
		s.logger.Error("export failed", "run_id", run.ID, "format", format, "error", err)
	}
}

func (s *Server) loadRun(r *http.Request) (*power.Run, error) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	return s.service.GetRun(r.Context(), id)
}

// params applies server defaults to the fields the request omits.
func (s *Server) params(req estimateRequest) (power.TrialParams, int64, error) {
	p := s.defaults.Params
	p.ControlMean = req.ControlMean
	p.TreatmentMean = req.TreatmentMean
	p.SD = req.SD
	p.N = req.N
	if req.Alpha != nil {
		p.Alpha = *req.Alpha
	}
	if req.Replicates != nil {
		p.Replicates = *req.Replicates
	}
	if req.Confidence != nil {
		p.Confidence = *req.Confidence
	}
	if req.Test != "" {
		kind, err := power.ParseTestKind(req.Test)
		if err != nil {
			return power.TrialParams{}, 0, err
		}
		p.Test = kind
	}

	seed := s.defaults.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	return p, seed, nil
}

// scenario resolves a built-in scenario by name, or wraps the request's
// means and sd as the custom scenario.
func (s *Server) scenario(req sweepRequest, params power.TrialParams) (power.Scenario, error) {
	if req.Scenario == "" || req.Scenario == power.ScenarioCustom {
		return power.ScenarioFromParams(params), nil
	}
	for _, sc := range power.DefaultScenarios() {
		if sc.Name == req.Scenario {
			return sc, nil
		}
	}
	return power.Scenario{}, core.NewInvalidParameterError("scenario", fmt.Sprintf("unknown scenario %q", req.Scenario))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = apperrors.Canceled(err)
	}
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: apperrors.GetCode(err)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &apperrors.AppError{Code: apperrors.CodeInvalidInput, Message: "malformed JSON body", Cause: err}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, core.NewInvalidParameterError(name, fmt.Sprintf("must be a non-negative integer, got %q", raw))
	}
	return v, nil
}

func contentType(format string) string {
	switch format {
	case "svg":
		return "image/svg+xml"
	case "csv":
		return "text/csv"
	case "html":
		return "text/html; charset=utf-8"
	case "md":
		return "text/markdown; charset=utf-8"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}
