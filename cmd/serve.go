package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"labgate/internal/bootstrap"
	"labgate/internal/bootstrap/logging"
	domainescalation "labgate/internal/domain/escalation"
	"labgate/internal/errs"
	"labgate/internal/ports"
	"labgate/internal/usecase/escalation"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the escalation HTTP server",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *escalation.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		addr, _ := cmd.Flags().GetString("addr")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			addr = app.Config.Server.Addr
		}

		server := &http.Server{
			Addr:    addr,
			Handler: newEscalationHandler(svc),
		}

		logging.Info(ctx, "escalation server started", slog.String("addr", addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(ctx, "escalation server failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "serve escalation http")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (defaults to server.addr from config)")
}

type escalationWorkflowService interface {
	Submit(ctx context.Context, input escalation.SubmitInspectionInput) (escalation.SubmitResult, error)
	Decide(ctx context.Context, input escalation.DecideInput) (escalation.DecideResult, error)
	Resend(ctx context.Context, input escalation.ResendInput) (escalation.ResendResult, error)
	GetInspection(ctx context.Context, inspectionID string) (escalation.InspectionDetail, error)
	ListInspections(ctx context.Context, filter escalation.ListFilter) ([]ports.Inspection, error)
	EscalationStatus(ctx context.Context, inspectionID string) (string, error)
}

type escalationHTTPHandler struct {
	svc escalationWorkflowService
}

func newEscalationHandler(svc escalationWorkflowService) http.Handler {
	h := &escalationHTTPHandler{svc: svc}

	r := chi.NewRouter()
	r.Get("/healthz", h.handleHealth)
	r.Post("/inspections", h.handleSubmit)
	r.Get("/inspections", h.handleList)
	r.Get("/inspections/{inspectionID}", h.handleDetail)
	r.Get("/inspections/{inspectionID}/status", h.handleStatus)
	r.Get("/escalation/approve", h.handleDecisionQuery)
	r.Get("/escalation/reject", h.handleDecisionQuery)
	r.Get("/escalation/final-approve/{inspectionID}", h.handleDecisionPath)
	r.Get("/escalation/final-reject/{inspectionID}", h.handleDecisionPath)
	r.Post("/escalation/resend", h.handleResend)
	return r
}

type submitRequest struct {
	Company          string   `json:"company"`
	Supplier         string   `json:"supplier"`
	Material         string   `json:"material"`
	InspectionType   string   `json:"inspection_type"`
	Lot              string   `json:"lot"`
	InspectedAt      string   `json:"inspected_at"`
	OverallStatus    string   `json:"overall_status"`
	FailedParameters []string `json:"failed_parameters"`
}

type submitResponse struct {
	InspectionID     string `json:"inspection_id"`
	OverallStatus    string `json:"overall_status"`
	EscalationStatus string `json:"escalation_status"`
	Warning          string `json:"warning,omitempty"`
}

type resendRequest struct {
	InspectionID string `json:"inspection_id"`
}

type resendResponse struct {
	InspectionID     string `json:"inspection_id"`
	Level            int    `json:"level"`
	Recipient        string `json:"recipient"`
	EscalationStatus string `json:"escalation_status"`
	Warning          string `json:"warning,omitempty"`
}

type apiErrorResponse struct {
	Error string `json:"error"`
}

func (h *escalationHTTPHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeAPIJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *escalationHTTPHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	out, err := h.svc.Submit(r.Context(), escalation.SubmitInspectionInput{
		Company:          req.Company,
		Supplier:         req.Supplier,
		Material:         req.Material,
		InspectionType:   req.InspectionType,
		Lot:              req.Lot,
		InspectedAt:      req.InspectedAt,
		OverallStatus:    req.OverallStatus,
		FailedParameters: req.FailedParameters,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, escalation.ErrValidation) || errors.Is(err, domainescalation.ErrUnknownCompany) {
			status = http.StatusBadRequest
		}
		writeAPIError(w, status, err.Error())
		return
	}

	writeAPIJSON(w, http.StatusCreated, submitResponse{
		InspectionID:     out.InspectionID,
		OverallStatus:    out.OverallStatus,
		EscalationStatus: out.EscalationStatus,
		Warning:          out.Warning,
	})
}

func (h *escalationHTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListInspections(r.Context(), escalation.ListFilter{
		Company:          r.URL.Query().Get("company"),
		EscalationStatus: r.URL.Query().Get("escalation_status"),
		OverallStatus:    r.URL.Query().Get("overall_status"),
	})
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, http.StatusOK, map[string]any{"inspections": items})
}

func (h *escalationHTTPHandler) handleDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetInspection(r.Context(), chi.URLParam(r, "inspectionID"))
	if err != nil {
		if errors.Is(err, ports.ErrInspectionNotFound) {
			writeAPIError(w, http.StatusNotFound, "inspection not found")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, http.StatusOK, detail)
}

func (h *escalationHTTPHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.EscalationStatus(r.Context(), chi.URLParam(r, "inspectionID"))
	if err != nil {
		if errors.Is(err, ports.ErrInspectionNotFound) {
			writeAPIError(w, http.StatusNotFound, "inspection not found")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, http.StatusOK, map[string]string{"escalation_status": status})
}

// handleDecisionQuery serves the level-1 links: /escalation/{approve,reject}?id=..&token=..
func (h *escalationHTTPHandler) handleDecisionQuery(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, r.URL.Query().Get("id"), r.URL.Query().Get("token"))
}

// handleDecisionPath serves the level-2 links: /escalation/final-{approve,reject}/{id}?token=..
func (h *escalationHTTPHandler) handleDecisionPath(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, chi.URLParam(r, "inspectionID"), r.URL.Query().Get("token"))
}

func (h *escalationHTTPHandler) decide(w http.ResponseWriter, r *http.Request, inspectionID string, token string) {
	out, err := h.svc.Decide(r.Context(), escalation.DecideInput{
		InspectionID: inspectionID,
		TokenValue:   token,
	})
	if err != nil {
		status, reason := decisionFailure(err)
		writeDecisionHTML(w, status, decisionPageData{
			Title:  "Link not accepted",
			Reason: reason,
		})
		return
	}

	verb := "approved"
	if out.Action == string(domainescalation.ActionReject) {
		verb = "rejected"
	}
	writeDecisionHTML(w, http.StatusOK, decisionPageData{
		Title:            "Decision recorded",
		InspectionID:     out.InspectionID,
		Outcome:          verb,
		Level:            out.Level,
		EscalationStatus: out.EscalationStatus,
		Warning:          out.Warning,
	})
}

func (h *escalationHTTPHandler) handleResend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	out, err := h.svc.Resend(r.Context(), escalation.ResendInput{InspectionID: req.InspectionID})
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrInspectionNotFound):
			writeAPIError(w, http.StatusNotFound, "inspection not found")
		case errors.Is(err, domainescalation.ErrInspectionTerminal):
			writeAPIError(w, http.StatusConflict, "escalation is already resolved")
		default:
			writeAPIError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeAPIJSON(w, http.StatusOK, resendResponse{
		InspectionID:     out.InspectionID,
		Level:            out.Level,
		Recipient:        out.Recipient,
		EscalationStatus: out.EscalationStatus,
		Warning:          out.Warning,
	})
}

// decisionFailure maps redemption errors to an HTTP status and a
// human-readable reason. Every reason is distinguishable; none leaks
// internals.
func decisionFailure(err error) (int, string) {
	switch {
	case errors.Is(err, domainescalation.ErrTokenExpired):
		return http.StatusGone, "This link has expired. Ask for a new escalation email."
	case errors.Is(err, domainescalation.ErrTokenConsumed):
		return http.StatusConflict, "This link was already used. The decision is on record."
	case errors.Is(err, domainescalation.ErrTokenSuperseded):
		return http.StatusConflict, "This link was replaced by a newer escalation email. Use the latest one."
	case errors.Is(err, domainescalation.ErrInspectionTerminal):
		return http.StatusConflict, "This inspection has already been resolved. No further decision is possible."
	case errors.Is(err, domainescalation.ErrLevelMismatch):
		return http.StatusConflict, "This inspection is not waiting on this decision anymore."
	case errors.Is(err, domainescalation.ErrTokenMismatch):
		return http.StatusBadRequest, "This link does not belong to the requested inspection."
	case errors.Is(err, domainescalation.ErrTokenUnknown):
		return http.StatusNotFound, "This link is not valid."
	}
	return http.StatusInternalServerError, "Something went wrong while recording the decision. Please try again."
}

type decisionPageData struct {
	Title            string
	Reason           string
	InspectionID     string
	Outcome          string
	Level            int
	EscalationStatus string
	Warning          string
}

var decisionPageTmpl = template.Must(template.New("decision").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body style="font-family: sans-serif; max-width: 40em; margin: 3em auto;">
<h1>{{.Title}}</h1>
{{if .Reason}}<p>{{.Reason}}</p>
{{else}}<p>Inspection {{.InspectionID}} was <strong>{{.Outcome}}</strong> at level {{.Level}}.</p>
<p>Escalation status: {{.EscalationStatus}}.</p>
{{if .Warning}}<p><em>Note: {{.Warning}}</em></p>{{end}}
{{end}}</body>
</html>
`))

func writeDecisionHTML(w http.ResponseWriter, status int, data decisionPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = decisionPageTmpl.Execute(w, data)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	writeAPIJSON(w, status, apiErrorResponse{Error: message})
}

func writeAPIJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
