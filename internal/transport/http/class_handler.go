package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "gradebook/internal/errors"
	"gradebook/internal/exporter"
	"gradebook/internal/middleware"
	"gradebook/internal/services"
	"gradebook/pkg/contracts/domain"
)

var schoolYearPattern = regexp.MustCompile(`^\d{4}(-\d{4})?$`)

// classRequest is the body of class create and update
type classRequest struct {
	Name                     string                  `json:"name" validate:"required,max=120"`
	CasasReadingLevelStart   float64                 `json:"casas_reading_level_start" validate:"gte=0"`
	CasasReadingTarget       float64                 `json:"casas_reading_target" validate:"gte=0"`
	CasasListeningLevelStart float64                 `json:"casas_listening_level_start" validate:"gte=0"`
	CasasListeningTarget     float64                 `json:"casas_listening_target" validate:"gte=0"`
	RankingWeights           *domain.RankingWeights  `json:"ranking_weights"`
	ColorThresholds          *domain.ColorThresholds `json:"color_thresholds"`
}

func (c classRequest) apply(class *domain.Class) {
	class.Name = c.Name
	class.CasasReadingLevelStart = c.CasasReadingLevelStart
	class.CasasReadingTarget = c.CasasReadingTarget
	class.CasasListeningLevelStart = c.CasasListeningLevelStart
	class.CasasListeningTarget = c.CasasListeningTarget
	if c.RankingWeights != nil {
		class.RankingWeights = *c.RankingWeights
	}
	if c.ColorThresholds != nil {
		class.ColorThresholds = *c.ColorThresholds
	}
}

// studentRequest is the body of student create and update
type studentRequest struct {
	Name           string `json:"name" validate:"required,max=120"`
	EnrollmentDate string `json:"enrollment_date" validate:"omitempty,datetime=2006-01-02"`
}

// renameRequest moves one unit-test column
type renameRequest struct {
	From services.UnitTestColumn `json:"from" validate:"required"`
	To   services.UnitTestColumn `json:"to" validate:"required"`
}

// ClassHandler serves class-scoped routes
type ClassHandler struct {
	records      RecordService
	gradebook    GradebookService
	imports      *ImportHandler
	validator    *middleware.RequestValidator
	query        *middleware.QueryParamValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewClassHandler creates a class handler
func NewClassHandler(records RecordService, gradebook GradebookService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ClassHandler {
	return &ClassHandler{
		records:      records,
		gradebook:    gradebook,
		validator:    middleware.NewRequestValidator(logger),
		query:        middleware.NewQueryParamValidator(errorHandler),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "class_handler")),
	}
}

// WithImports mounts the upload routes under each class
func (h *ClassHandler) WithImports(imports *ImportHandler) *ClassHandler {
	h.imports = imports
	return h
}

// Routes returns the class routes
func (h *ClassHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{classID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Get("/students", h.Students)
		r.Post("/students", h.AddStudent)
		r.Get("/roster", h.Roster)
		r.Get("/retention", h.Retention)
		r.Put("/unit-tests", h.RenameUnitTest)
		if h.imports != nil {
			r.Mount("/imports", h.imports.Routes())
		}
	})
	return r
}

// List handles GET /classes
func (h *ClassHandler) List(w http.ResponseWriter, r *http.Request) {
	classes, err := h.records.Classes(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if classes == nil {
		classes = []domain.Class{}
	}
	render.JSON(w, r, classes)
}

// Create handles POST /classes
func (h *ClassHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req classRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	var class domain.Class
	req.apply(&class)
	if err := h.records.SaveClass(r.Context(), &class); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, class)
}

// Get handles GET /classes/{classID}
func (h *ClassHandler) Get(w http.ResponseWriter, r *http.Request) {
	class, err := h.records.Class(r.Context(), chi.URLParam(r, "classID"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, class)
}

// Update handles PUT /classes/{classID}. Omitted weights and thresholds
// keep their stored values.
func (h *ClassHandler) Update(w http.ResponseWriter, r *http.Request) {
	class, err := h.records.Class(r.Context(), chi.URLParam(r, "classID"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	var req classRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	req.apply(&class)
	if err := h.records.SaveClass(r.Context(), &class); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, class)
}

// Students handles GET /classes/{classID}/students
func (h *ClassHandler) Students(w http.ResponseWriter, r *http.Request) {
	includeDropped, ok := h.query.ValidateBool(w, r, "include_dropped", false)
	if !ok {
		return
	}
	students, err := h.records.Students(r.Context(), chi.URLParam(r, "classID"), includeDropped)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if students == nil {
		students = []domain.Student{}
	}
	render.JSON(w, r, students)
}

// AddStudent handles POST /classes/{classID}/students
func (h *ClassHandler) AddStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	st := domain.Student{
		Name:           req.Name,
		ClassID:        chi.URLParam(r, "classID"),
		EnrollmentDate: req.EnrollmentDate,
	}
	if err := h.records.SaveStudent(r.Context(), &st); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, st)
}

// Roster handles GET /classes/{classID}/roster?format=json|csv|xlsx
func (h *ClassHandler) Roster(w http.ResponseWriter, r *http.Request) {
	format, ok := h.query.ValidateEnum(w, r, "format", rosterFormats, "json")
	if !ok {
		return
	}
	roster, err := h.gradebook.Roster(r.Context(), chi.URLParam(r, "classID"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if format == "json" {
		render.JSON(w, r, roster)
		return
	}

	table := exporter.RosterTable(roster)
	name := attachmentName(roster.Class.Name) + "-roster." + format
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		err = exporter.WriteCSV(w, table, exporter.WriteOptions{BOMPrefix: true})
	} else {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		err = exporter.WriteXLSX(w, "Roster", table)
	}
	if err != nil {
		// Headers are already sent; the client sees a truncated file.
		h.logger.ErrorContext(r.Context(), "roster export failed",
			slog.String("format", format),
			slog.String("error", err.Error()))
	}
}

var (
	rosterFormats = []string{"json", "csv", "xlsx"}
	unsafeName    = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

func attachmentName(className string) string {
	name := strings.Trim(unsafeName.ReplaceAllString(className, "-"), "-")
	if name == "" {
		return "class"
	}
	return name
}

// Retention handles GET /classes/{classID}/retention?year=2024-2025
func (h *ClassHandler) Retention(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.query.ValidatePattern(w, r, "year", schoolYearPattern, "2024-2025")
	if !ok {
		return
	}
	var year domain.SchoolYear
	if raw != "" {
		var err error
		if year, err = domain.ParseSchoolYear(raw); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("year", err.Error()))
			return
		}
	}
	report, err := h.gradebook.Retention(r.Context(), chi.URLParam(r, "classID"), year)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// RenameUnitTest handles PUT /classes/{classID}/unit-tests
func (h *ClassHandler) RenameUnitTest(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	n, err := h.records.RenameUnitTest(r.Context(), chi.URLParam(r, "classID"), req.From, req.To)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"updated": n, "column": req.To})
}
