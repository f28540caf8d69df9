package handlers

import (
	"encoding/json"
	"net/http"

	"task-app/backend/task-service/middleware"
	"task-app/backend/task-service/models"
	"task-app/backend/task-service/services"
)

// UserHandler pokriva registraciju, verifikaciju email adrese i profil.
type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &models.ValidationError{Message: "invalid request body"})
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}

	message := "User registered successfully. Please verify your email."
	if user.Role == models.RoleAdmin {
		message = "First admin registered successfully. Please verify your email."
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: message})
}

// VerifyEmailLink obrađuje link iz verifikacionog emaila.
func (h *UserHandler) VerifyEmailLink(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, &models.ValidationError{Message: "token is required"})
		return
	}

	if err := h.service.VerifyEmailToken(r.Context(), token); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Email verified successfully"})
}

// VerifyEmailCode obrađuje ručno unet verifikacioni kod.
func (h *UserHandler) VerifyEmailCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Code     string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &models.ValidationError{Message: "invalid request body"})
		return
	}

	if err := h.service.VerifyEmailCode(r.Context(), req.Username, req.Code); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Email verified successfully"})
}

func (h *UserHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, &models.UnauthorizedError{Message: "authentication required"})
		return
	}

	user, err := h.service.GetProfile(r.Context(), principal.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, &models.UnauthorizedError{Message: "authentication required"})
		return
	}

	var req services.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &models.ValidationError{Message: "invalid request body"})
		return
	}

	if _, err := h.service.UpdateProfile(r.Context(), principal.UserID, req); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Profile updated successfully"})
}

func (h *UserHandler) DeleteMyAccount(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, &models.UnauthorizedError{Message: "authentication required"})
		return
	}

	if err := h.service.DeleteAccount(r.Context(), principal.UserID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Account deleted successfully"})
}
