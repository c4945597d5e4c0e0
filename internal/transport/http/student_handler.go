package http

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "gradebook/internal/errors"
	"gradebook/internal/middleware"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

type dropRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type restoreRequest struct {
	ClassID string `json:"class_id"`
}

type vacationRequest struct {
	Vacation bool `json:"vacation"`
}

// StudentHandler serves student-scoped routes
type StudentHandler struct {
	records      RecordService
	gradebook    GradebookService
	validator    *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewStudentHandler creates a student handler
func NewStudentHandler(records RecordService, gradebook GradebookService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *StudentHandler {
	return &StudentHandler{
		records:      records,
		gradebook:    gradebook,
		validator:    middleware.NewRequestValidator(logger),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "student_handler")),
	}
}

// Routes returns the student routes
func (h *StudentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/{studentID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Get("/history", h.History)
		r.Post("/drop", h.Drop)
		r.Post("/restore", h.Restore)
		r.Put("/attendance/{month}", h.SetVacation)
	})
	return r
}

// Get handles GET /students/{studentID}
func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.gradebook.Student(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, entry)
}

// Update handles PUT /students/{studentID}. Drop state is changed only
// through drop and restore.
func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	st, err := h.records.Student(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	var req studentRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	st.Name = req.Name
	if req.EnrollmentDate != "" {
		st.EnrollmentDate = req.EnrollmentDate
	}
	if err := h.records.SaveStudent(r.Context(), &st); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, st)
}

// History handles GET /students/{studentID}/history
func (h *StudentHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.records.History(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, history)
}

// Drop handles POST /students/{studentID}/drop. An empty body drops today.
func (h *StudentHandler) Drop(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if r.ContentLength != 0 {
		if err := h.validator.DecodeJSON(r, &req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}
	st, err := h.records.DropStudent(r.Context(), chi.URLParam(r, "studentID"), req.Date)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, st)
}

// Restore handles POST /students/{studentID}/restore
func (h *StudentHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if r.ContentLength != 0 {
		if err := h.validator.DecodeJSON(r, &req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}
	st, err := h.records.RestoreStudent(r.Context(), chi.URLParam(r, "studentID"), req.ClassID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, st)
}

// SetVacation handles PUT /students/{studentID}/attendance/{month}
func (h *StudentHandler) SetVacation(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	if !monthPattern.MatchString(month) {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("month", "month must look like 2024-09"))
		return
	}
	var req vacationRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	rec, err := h.records.SetVacation(r.Context(), chi.URLParam(r, "studentID"), month, req.Vacation)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}
