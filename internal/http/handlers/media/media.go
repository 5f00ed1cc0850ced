package media

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/picstash/media-service/internal/config"
	"github.com/picstash/media-service/internal/events"
	"github.com/picstash/media-service/internal/http/middleware"
	mediaService "github.com/picstash/media-service/internal/services/media"
	"github.com/picstash/media-service/internal/services/tags"
	"github.com/picstash/media-service/internal/storage"
	"github.com/picstash/media-service/internal/utils/response"
)

// maxRequestTags is the request-layer tag policy: more than three tags is a
// client error, matching the three metadata slots an object can carry.
const maxRequestTags = 3

type MediaHandlers struct {
	mediaService *mediaService.Service
	publisher    events.Publisher
	mediaConfig  *config.Media
}

type UploadResponse struct {
	MediaID string   `json:"media_id"`
	Tags    []string `json:"tags"`
}

type SuggestionsResponse struct {
	Tags []string `json:"tags"`
}

// NewMediaHandlers creates a new media handlers instance
func NewMediaHandlers(mediaService *mediaService.Service, publisher events.Publisher, mediaConfig *config.Media) *MediaHandlers {
	return &MediaHandlers{
		mediaService: mediaService,
		publisher:    publisher,
		mediaConfig:  mediaConfig,
	}
}

// Upload stores a new image for the authenticated user
// @Summary Upload an image
// @Description Upload an image with up to 3 searchable tags
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Image file"
// @Param tags formData array false "Tags (at most 3)" collectionFormat(multi)
// @Success 201 {object} UploadResponse "Image uploaded successfully"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 500 {object} response.Response "Internal server error"
// @Security BearerAuth
// @Router /images [post]
func (h *MediaHandlers) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, h.mediaConfig.MaxFileSize)
		if err := r.ParseMultipartForm(h.mediaConfig.MaxFileSize); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid or oversized multipart body")))
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("image file is required")))
			return
		}
		defer file.Close()

		if !h.allowedContentType(header.Header.Get("Content-Type")) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("content type is not allowed")))
			return
		}

		imageTags := r.MultipartForm.Value["tags"]
		if len(imageTags) > maxRequestTags {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("at most 3 tags are allowed")))
			return
		}

		// The core reads from a path and streams from there, so spool the
		// upload to a temp file instead of holding it in memory.
		tmpPath, err := spoolToTempFile(file)
		if err != nil {
			slog.Error("Failed to spool upload", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to store upload")))
			return
		}
		defer os.Remove(tmpPath)

		mediaID, err := h.mediaService.AddImage(r.Context(), userID, tmpPath, filepath.Ext(header.Filename), imageTags)
		if err != nil {
			var writeErr *storage.WriteError
			if errors.As(err, &writeErr) {
				slog.Error("Storage write failed", slog.String("error", err.Error()), slog.String("user_id", userID))
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to store image")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		h.publisher.PublishMediaUploaded(userID, mediaID, imageTags)

		response.WriteJSON(w, http.StatusCreated, response.RequestOK("Image uploaded successfully", UploadResponse{
			MediaID: mediaID,
			Tags:    imageTags,
		}))
	}
}

// ListImages lists the authenticated user's images
// @Summary List images
// @Description List all images of the authenticated user, each with a short-lived access URL
// @Tags media
// @Produce json
// @Success 200 {array} types.MediaRecord "Images retrieved successfully"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 404 {object} response.Response "No images found"
// @Failure 500 {object} response.Response "Internal server error"
// @Security BearerAuth
// @Router /images [get]
func (h *MediaHandlers) ListImages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		records, err := h.mediaService.GetImagesByOwner(r.Context(), userID)
		if err != nil {
			h.writeListingError(w, err, userID)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Images retrieved successfully", records))
	}
}

// ListImagesByTag lists the authenticated user's images filtered by tag
// @Summary List images by tag
// @Description List the authenticated user's images whose tags contain an exact match
// @Tags media
// @Produce json
// @Param tag path string true "Tag to match"
// @Success 200 {array} types.MediaRecord "Images retrieved successfully"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 404 {object} response.Response "No matching images"
// @Failure 500 {object} response.Response "Internal server error"
// @Security BearerAuth
// @Router /images/tags/{tag} [get]
func (h *MediaHandlers) ListImagesByTag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		tag := r.PathValue("tag")
		if tag == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("tag is required")))
			return
		}

		records, err := h.mediaService.GetImagesByTag(r.Context(), userID, tag)
		if err != nil {
			h.writeListingError(w, err, userID)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Images retrieved successfully", records))
	}
}

// SuggestTags returns suggested tags for an uploaded image
// @Summary Suggest tags
// @Description Ask the external keyword service for descriptive tags for an image
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Image file"
// @Success 200 {object} SuggestionsResponse "Tags suggested successfully"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 502 {object} response.Response "Tag suggestion service failed"
// @Security BearerAuth
// @Router /images/suggestions [post]
func (h *MediaHandlers) SuggestTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, h.mediaConfig.MaxFileSize)
		if err := r.ParseMultipartForm(h.mediaConfig.MaxFileSize); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid or oversized multipart body")))
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("image file is required")))
			return
		}
		defer file.Close()

		if !h.allowedContentType(header.Header.Get("Content-Type")) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("content type is not allowed")))
			return
		}

		tmpPath, err := spoolToTempFile(file)
		if err != nil {
			slog.Error("Failed to spool upload", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to store upload")))
			return
		}
		defer os.Remove(tmpPath)

		suggested, err := h.mediaService.SuggestTags(r.Context(), tmpPath)
		if err != nil {
			var suggestionErr *tags.SuggestionError
			if errors.As(err, &suggestionErr) {
				slog.Error("Tag suggestion failed", slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusBadGateway, response.GeneralError(err))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Tags suggested successfully", SuggestionsResponse{Tags: suggested}))
	}
}

func (h *MediaHandlers) writeListingError(w http.ResponseWriter, err error, userID string) {
	switch {
	case errors.Is(err, mediaService.ErrNoImagesFound):
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(mediaService.ErrNoImagesFound))
	case errors.Is(err, mediaService.ErrNoMatchingTag):
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(mediaService.ErrNoMatchingTag))
	default:
		slog.Error("Listing failed", slog.String("error", err.Error()), slog.String("user_id", userID))
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to list images")))
	}
}

func (h *MediaHandlers) allowedContentType(contentType string) bool {
	for _, allowed := range h.mediaConfig.AllowedMimeTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}

func spoolToTempFile(file multipart.File) (string, error) {
	tmp, err := os.CreateTemp("", "media-upload-*")
	if err != nil {
		return "", err
	}

	_, copyErr := io.Copy(tmp, file)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmp.Name())
		if copyErr != nil {
			return "", copyErr
		}
		return "", closeErr
	}

	return tmp.Name(), nil
}
