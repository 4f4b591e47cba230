package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"gocalc/adapters/excel"
	"gocalc/app"
	"gocalc/domain/chart"
	"gocalc/domain/core"
	"gocalc/domain/workspace"
	"gocalc/internal/errors"

	"github.com/go-chi/chi/v5"
)

const maxImportBytes = 10 << 20

// HealthResponse is the response for /health
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ExpressionRequest carries calculator input
type ExpressionRequest struct {
	Expression string `json:"expression"`
}

// ViewRequest changes display toggles
type ViewRequest struct {
	ChartType  *string `json:"chart_type"`
	Cumulative *bool   `json:"cumulative"`
}

// MoveRequest reorders a pinned set
type MoveRequest struct {
	Direction string `json:"direction"`
}

// WorkspacesResponse lists stored workspaces
type WorkspacesResponse struct {
	Workspaces []core.WorkspaceID `json:"workspaces"`
}

// ReportResponse carries the rendered report next to its data
type ReportResponse struct {
	*app.Report
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ExpressionRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.calculator.Parse(req.Expression))
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	ids, err := s.calculator.Workspaces(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WorkspacesResponse{Workspaces: ids})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceID(w, r)
	if !ok {
		return
	}
	s.respond(w)(s.calculator.State(r.Context(), ws))
}

func (s *Server) handleResetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceID(w, r)
	if !ok {
		return
	}
	if err := s.calculator.ResetWorkspace(r.Context(), ws, confirmed(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetExpression(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceID(w, r)
	if !ok {
		return
	}
	var req ExpressionRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w)(s.calculator.SetExpression(r.Context(), ws, req.Expression))
}

func (s *Server) handleRemoveNumber(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceID(w, r)
	if !ok {
		return
	}
	index, ok := s.intParam(w, r, "index")
	if !ok {
		return
	}
	s.respond(w)(s.calculator.RemoveNumber(r.Context(), ws, index))
}

func (s *Server) handleCycleSort(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceID(w, r)
	if !ok {
		return
	}
	s.respond(w)(s.calculator.CycleSortMode(r.Context(), ws))
}

func (s *Server) handleUpdateView(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceID(w, r)
	if !ok {
		return
	}
	var req ViewRequest
	if !s.decode(w, r, &req) {
		return
	}
	update := app.ViewUpdate{Cumulative: req.Cumulative}
	if req.ChartType != nil {
		t := chart.Type(*req.ChartType)
		update.ChartType = &t
	}
	s.respond(w)(s.calculator.UpdateView(r.Context(), ws, update))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceID(w, r)
	if !ok {
		return
	}
	snap, err := s.calculator.State(r.Context(), ws)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Chart)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceID(w, r)
	if !ok {
		return
	}
	snap, err := s.calculator.State(r.Context(), ws)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Totals)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceID(w, r)
	if !ok {
		return
	}
	// buffer so a failed export can still produce a JSON error
	var buf bytes.Buffer
	if err := s.calculator.Export(r.Context(), ws, s.exporter, &buf); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", s.exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, ws, s.exporter.Extension()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceID(w, r)
	if !ok {
		return
	}
	report, err := s.reports.Build(r.Context(), ws)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportResponse{Report: report, Markdown: report.Markdown(), HTML: string(report.HTML())})
}

// handleImport pins every column of an uploaded CSV or xlsx body. The format
// query parameter selects the reader and defaults to csv.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceID(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	reader := excel.NewDataReader("upload." + format).WithSheet(r.URL.Query().Get("sheet"))

	sets, err := reader.Read(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		s.writeError(w, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	named := make([]app.NamedValues, len(sets))
	for i, set := range sets {
		named[i] = app.NamedValues{Name: set.Name, Values: set.Values}
	}
	s.respond(w)(s.calculator.Import(r.Context(), ws, named))
}

func (s *Server) handlePin(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspaceID(w, r)
	if !ok {
		return
	}
	snap, err := s.calculator.Pin(r.Context(), ws)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleUpdatePinned(w http.ResponseWriter, r *http.Request) {
	ws, id, ok := s.pinnedSetID(w, r)
	if !ok {
		return
	}
	var req app.PinnedSetUpdate
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w)(s.calculator.UpdatePinned(r.Context(), ws, id, req))
}

func (s *Server) handleDeletePinned(w http.ResponseWriter, r *http.Request) {
	ws, id, ok := s.pinnedSetID(w, r)
	if !ok {
		return
	}
	s.respond(w)(s.calculator.DeletePinned(r.Context(), ws, id, confirmed(r)))
}

func (s *Server) handleMovePinned(w http.ResponseWriter, r *http.Request) {
	ws, id, ok := s.pinnedSetID(w, r)
	if !ok {
		return
	}
	var req MoveRequest
	if !s.decode(w, r, &req) {
		return
	}
	dir, err := workspace.ParseDirection(req.Direction)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w)(s.calculator.MovePinned(r.Context(), ws, id, dir))
}

func (s *Server) handleRemovePinnedNumber(w http.ResponseWriter, r *http.Request) {
	ws, id, ok := s.pinnedSetID(w, r)
	if !ok {
		return
	}
	entry, ok := s.intParam(w, r, "entry")
	if !ok {
		return
	}
	s.respond(w)(s.calculator.RemovePinnedNumber(r.Context(), ws, id, entry))
}

// Helpers

func (s *Server) respond(w http.ResponseWriter) func(*app.Snapshot, error) {
	return func(snap *app.Snapshot, err error) {
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) workspaceID(w http.ResponseWriter, r *http.Request) (core.WorkspaceID, bool) {
	ws, err := core.ParseWorkspaceID(chi.URLParam(r, "ws"))
	if err != nil {
		s.writeError(w, err)
		return "", false
	}
	return ws, true
}

func (s *Server) pinnedSetID(w http.ResponseWriter, r *http.Request) (core.WorkspaceID, core.PinnedSetID, bool) {
	ws, ok := s.workspaceID(w, r)
	if !ok {
		return "", "", false
	}
	id, err := core.ParsePinnedSetID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return "", "", false
	}
	return ws, id, true
}

func (s *Server) intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		s.writeError(w, core.NewValidationError(name, "must be an integer"))
		return 0, false
	}
	return v, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, core.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

func confirmed(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return v
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
	}
	code := errors.GetCode(err)
	if code == "UNKNOWN" {
		code = errors.CodeInternalError
	}
	writeJSON(w, status, ErrorResponse{Code: code, Message: errors.Message(err)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
