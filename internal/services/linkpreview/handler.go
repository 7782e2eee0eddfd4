package linkpreview

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/zentra/linkpreview/internal/utils"
)

// SettingsManager lets users change their own preview setting.
type SettingsManager interface {
	SettingsStore
	SetLinkPreviewsEnabled(ctx context.Context, enabled bool) error
}

type Handler struct {
	service  *Service
	settings SettingsManager
}

func NewHandler(service *Service, settings SettingsManager) *Handler {
	return &Handler{service: service, settings: settings}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetPreview)
	r.Post("/extract", h.ExtractPreview)

	if h.settings != nil {
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
	}

	return r
}

type previewQuery struct {
	URL string `query:"url" validate:"required,max=2048,httpurl"`
}

type extractRequest struct {
	Content string `json:"content" validate:"required,max=65536"`
}

type settingsRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type settingsResponse struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	query := previewQuery{URL: r.URL.Query().Get("url")}
	if err := utils.Validate(query); err != nil {
		utils.RespondValidationError(w, utils.FormatValidationErrors(err))
		return
	}

	draft, err := h.service.FetchLinkPreview(r.Context(), query.URL)
	if err != nil {
		respondPreviewError(w, r, err)
		return
	}

	utils.RespondData(w, draft)
}

func (h *Handler) ExtractPreview(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.RespondValidationError(w, utils.FormatValidationErrors(err))
		return
	}

	draft, err := h.service.FetchFirstLinkPreview(r.Context(), req.Content)
	if err != nil {
		respondPreviewError(w, r, err)
		return
	}

	utils.RespondData(w, draft)
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.settings.LinkPreviewsEnabled(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to read link preview setting")
		utils.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get settings")
		return
	}

	utils.RespondData(w, settingsResponse{Enabled: enabled})
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.RespondValidationError(w, utils.FormatValidationErrors(err))
		return
	}

	if err := h.settings.SetLinkPreviewsEnabled(r.Context(), *req.Enabled); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to update link preview setting")
		utils.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update settings")
		return
	}

	utils.RespondData(w, settingsResponse{Enabled: *req.Enabled})
}

func respondPreviewError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrFeatureDisabled):
		utils.RespondError(w, http.StatusForbidden, "FEATURE_DISABLED", "Link previews are disabled")
	case errors.Is(err, ErrNoPreview):
		utils.RespondError(w, http.StatusNotFound, "NO_PREVIEW", "No preview available for this link")
	case errors.Is(err, ErrInvalidPreview):
		utils.RespondError(w, http.StatusUnprocessableEntity, "INVALID_PREVIEW", "Link could not be previewed")
	case errors.Is(err, context.DeadlineExceeded):
		// Checked first: fetch failures wrap the transport's deadline error.
		utils.RespondError(w, http.StatusGatewayTimeout, "TIMEOUT", "Link preview timed out")
	case errors.Is(err, ErrFetchFailure):
		utils.RespondError(w, http.StatusBadGateway, "FETCH_FAILED", "Failed to fetch link")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Link preview failed")
		utils.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build link preview")
	}
}
