package users

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/nagrik-sahayak/internal/http/respond"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

// Handler handles HTTP requests for accounts and profiles
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a new users handler
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.svc.Register(r.Context(), req)
	if err != nil {
		if isClientError(err) {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to register user", "error", err)
		respond.Error(w, http.StatusInternalServerError, "registration failed")
		return
	}

	respond.JSON(w, http.StatusCreated, map[string]string{
		"message": "Registered successfully",
		"id":      user.ID,
	})
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Error(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.Error("failed to log in", "error", err)
		respond.Error(w, http.StatusInternalServerError, "login failed")
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

// GetProfile handles GET /users/{userID}
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeUserError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, user.Profile())
}

// UpdateProfile handles PUT /users/{userID}/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.svc.UpdateProfile(r.Context(), chi.URLParam(r, "userID"), req); err != nil {
		h.writeUserError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Profile updated"})
}

// UpdatePreferences handles PUT /users/{userID}/preferences
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req UpdatePreferencesRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.svc.UpdatePreferences(r.Context(), chi.URLParam(r, "userID"), req); err != nil {
		h.writeUserError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Preferences updated"})
}

func (h *Handler) writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case isClientError(err):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("user request failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func isClientError(err error) bool {
	for _, target := range []error{ErrUserExists, ErrInvalidName, ErrInvalidMobile, ErrInvalidPassword, ErrInvalidLanguage} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
