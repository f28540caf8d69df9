package handlers

import (
	"encoding/json"
	"net/http"

	"task-app/backend/task-service/models"
	"task-app/backend/task-service/services"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type LoginHandler struct {
	service *services.UserService
}

func NewLoginHandler(service *services.UserService) *LoginHandler {
	return &LoginHandler{service: service}
}

func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &models.ValidationError{Message: "invalid request body"})
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:    token,
		Username: user.Username,
		Role:     user.Role,
	})
}

// GetSecurityQuestion vraća sigurnosno pitanje korisnika, kao prvi korak
// samostalnog resetovanja lozinke.
func (h *LoginHandler) GetSecurityQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &models.ValidationError{Message: "invalid request body"})
		return
	}

	question, err := h.service.GetSecurityQuestion(r.Context(), req.Username)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"securityQuestion": question})
}

func (h *LoginHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		Answer      string `json:"answer"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &models.ValidationError{Message: "invalid request body"})
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Username, req.Answer, req.NewPassword); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset successful"})
}
