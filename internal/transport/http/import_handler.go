package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "gradebook/internal/errors"
	"gradebook/internal/middleware"
	"gradebook/internal/services"
	"gradebook/pkg/contracts/domain"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// cappedBody records that the upload cap was hit. Multipart parsing can
// report a cut-off body as a malformed header that no longer wraps
// *http.MaxBytesError.
type cappedBody struct {
	io.ReadCloser
	exceeded bool
}

func (b *cappedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		b.exceeded = true
	}
	return n, err
}

// ImportHandler accepts spreadsheet uploads for a class
type ImportHandler struct {
	service      ImportService
	validator    *middleware.RequestValidator
	maxBytes     int64
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewImportHandler creates an import handler. maxBytes caps the whole
// multipart body.
func NewImportHandler(service ImportService, maxBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ImportHandler {
	return &ImportHandler{
		service:      service,
		validator:    middleware.NewRequestValidator(logger),
		maxBytes:     maxBytes,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "import_handler")),
	}
}

// Routes returns the import routes, mounted under /classes/{classID}/imports
func (h *ImportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data")).Post("/", h.Upload)
	r.Get("/kinds", h.Kinds)
	return r
}

// Kinds handles GET /classes/{classID}/imports/kinds
func (h *ImportHandler) Kinds(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, services.ImportKinds)
}

// Upload handles POST /classes/{classID}/imports. A sheet rejected for
// data problems answers 422 with the summary body.
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxBytes {
		h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
		return
	}
	body := &cappedBody{ReadCloser: http.MaxBytesReader(w, r.Body, h.maxBytes)}
	r.Body = body
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if body.exceeded || errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		h.errorHandler.HandleError(w, r, apierrors.MissingParameter("file"))
		return
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer file.Close()

	req, err := h.request(r, header.Filename)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.Import(r.Context(), req, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "import finished",
		slog.String("class_id", req.ClassID),
		slog.String("kind", string(req.Kind)),
		slog.String("file", req.FileName),
		slog.Int("saved", summary.Saved),
		slog.Bool("accepted", summary.OK()))

	if !summary.OK() {
		render.Status(r, http.StatusUnprocessableEntity)
	}
	render.JSON(w, r, summary)
}

func (h *ImportHandler) request(r *http.Request, fileName string) (services.ImportRequest, error) {
	if r.FormValue("kind") == "" {
		return services.ImportRequest{}, apierrors.MissingParameter("kind")
	}
	kind, err := services.ParseImportKind(r.FormValue("kind"))
	if err != nil {
		return services.ImportRequest{}, apierrors.InvalidParameter("kind", err.Error())
	}
	req := services.ImportRequest{
		ClassID:  chi.URLParam(r, "classID"),
		Kind:     kind,
		FileName: filepath.Base(fileName),
		Month:    r.FormValue("month"),
		TestName: r.FormValue("test_name"),
		TestDate: r.FormValue("test_date"),
	}
	if raw := r.FormValue("school_year"); raw != "" {
		year, err := domain.ParseSchoolYear(raw)
		if err != nil {
			return services.ImportRequest{}, apierrors.InvalidParameter("school_year", err.Error())
		}
		req.SchoolYear = year
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return services.ImportRequest{}, err
	}
	return req, nil
}
