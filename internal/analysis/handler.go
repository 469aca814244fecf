package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/medcabinet/cabinet/internal/export"
	"github.com/medcabinet/cabinet/internal/platform/httpx"
	"github.com/medcabinet/cabinet/internal/rbac"
	"github.com/medcabinet/cabinet/internal/shared"
)

// Handler manages bulletin endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator(), rbac: rbac}
}

// MountRoutes registers bulletin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleAdmin, shared.RoleDoctor))
		r.Get("/analyses", h.list)
		r.Post("/analyses", h.create)
		r.Post("/analyses/from-consultation", h.createFromConsultation)
		r.Get("/analyses/{id}", h.get)
		r.Patch("/analyses/{id}", h.update)
		r.Delete("/analyses/{id}", h.delete)
		r.Get("/analyses/{id}/print", h.print)
	})
}

type resultRequest struct {
	ID            string       `json:"id"`
	Parametre     string       `json:"parametre" validate:"required"`
	Valeur        string       `json:"valeur" validate:"required"`
	Unite         string       `json:"unite"`
	ValeurNormale string       `json:"valeur_normale"`
	Statut        ResultStatus `json:"statut" validate:"required,oneof=normal anormal critique"`
}

type analysisRequest struct {
	PatientID       string          `json:"patient_id" validate:"required"`
	ConsultationID  string          `json:"consultation_id"`
	ProfessionnelID string          `json:"professionnel_id" validate:"required"`
	TypeAnalyse     string          `json:"type_analyse" validate:"required"`
	Conclusion      string          `json:"conclusion"`
	Resultats       []resultRequest `json:"resultats" validate:"dive"`
}

type fromConsultationRequest struct {
	ConsultationID string          `json:"consultation_id" validate:"required"`
	TypeAnalyse    string          `json:"type_analyse" validate:"required"`
	Conclusion     string          `json:"conclusion"`
	Resultats      []resultRequest `json:"resultats" validate:"dive"`
}

type updateRequest struct {
	PatientID       *string          `json:"patient_id" validate:"omitempty,min=1"`
	ConsultationID  *string          `json:"consultation_id"`
	ProfessionnelID *string          `json:"professionnel_id" validate:"omitempty,min=1"`
	TypeAnalyse     *string          `json:"type_analyse" validate:"omitempty,min=1"`
	Conclusion      *string          `json:"conclusion"`
	Resultats       *[]resultRequest `json:"resultats" validate:"omitempty,dive"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		rows []AnalysisWithDetails
		err  error
	)
	if patientID := strings.TrimSpace(r.URL.Query().Get("patient_id")); patientID != "" {
		rows, err = h.service.ListByPatient(r.Context(), patientID)
	} else {
		rows, err = h.service.ListWithDetails(r.Context())
	}
	if err != nil {
		h.serverError(w, "list analyses", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	row, err := h.service.GetWithDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respond(w, "get analysis", err)
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.service.Add(r.Context(), AnalysisInput{
		PatientID:       req.PatientID,
		ConsultationID:  req.ConsultationID,
		ProfessionnelID: req.ProfessionnelID,
		TypeAnalyse:     req.TypeAnalyse,
		Conclusion:      req.Conclusion,
		Resultats:       toResults(req.Resultats),
	})
	if err != nil {
		h.respond(w, "create analysis", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *Handler) createFromConsultation(w http.ResponseWriter, r *http.Request) {
	var req fromConsultationRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.service.CreateFromConsultation(r.Context(), req.ConsultationID, AnalysisInput{
		TypeAnalyse: req.TypeAnalyse,
		Conclusion:  req.Conclusion,
		Resultats:   toResults(req.Resultats),
	})
	if err != nil {
		h.respond(w, "create analysis from consultation", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !h.decode(w, r, &req) {
		return
	}
	upd := AnalysisUpdate{
		PatientID:       req.PatientID,
		ConsultationID:  req.ConsultationID,
		ProfessionnelID: req.ProfessionnelID,
		TypeAnalyse:     req.TypeAnalyse,
		Conclusion:      req.Conclusion,
	}
	if req.Resultats != nil {
		results := toResults(*req.Resultats)
		upd.Resultats = &results
	}
	a, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		h.respond(w, "update analysis", err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.serverError(w, "delete analysis", err)
		return
	}
	if !ok {
		httpx.RespondError(w, fmt.Errorf("analysis: %s: %w", id, shared.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) print(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, ok, err := h.service.RenderPrintable(r.Context(), id)
	if err != nil {
		h.serverError(w, "render analysis", err)
		return
	}
	if !ok {
		httpx.RespondError(w, fmt.Errorf("analysis: %s: %w", id, shared.ErrNotFound))
		return
	}
	if err := export.Write(w, export.Text(export.Filename("txt", "analyse", id), body)); err != nil {
		h.logger.Warn("write analysis bulletin", slog.Any("error", err))
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.ValidationProblem(w, "invalid request", httpx.FieldErrors(err))
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.RespondError(w, err)
		return
	}
	h.serverError(w, op, err)
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func toResults(in []resultRequest) []AnalysisResult {
	out := make([]AnalysisResult, len(in))
	for i, r := range in {
		out[i] = AnalysisResult{
			ID:            r.ID,
			Parametre:     r.Parametre,
			Valeur:        r.Valeur,
			Unite:         r.Unite,
			ValeurNormale: r.ValeurNormale,
			Statut:        r.Statut,
		}
	}
	return out
}
