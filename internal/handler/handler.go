package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/auth-service/internal/auth"
	service "github.com/honeynil/auth-service/internal/services"
	pkgerrors "github.com/honeynil/auth-service/pkg/errors"
)

type Handler struct {
	service service.AccountService
}

func NewHandler(s service.AccountService) *Handler {
	return &Handler{service: s}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("POST")
	r.HandleFunc("/ask-code", h.AskVerifyCode).Methods("GET")
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/reset-confirm", h.ResetConfirm).Methods("POST")
	r.HandleFunc("/reset-password", h.ResetPassword).Methods("POST")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.Me).Methods("GET")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": result.Username,
		"role":     result.Role,
		"token":    result.Token,
		"expire":   result.Expire.Format(time.RFC3339),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.service.Logout(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		if errors.Is(err, pkgerrors.ErrLogoutFailed) {
			h.writeError(w, http.StatusBadRequest, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) AskVerifyCode(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	typ := r.URL.Query().Get("type")

	err := h.service.AskVerifyCode(r.Context(), typ, email, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrCodeRequestLimit):
			h.writeError(w, http.StatusTooManyRequests, err)
		case errors.Is(err, pkgerrors.ErrEmailExists):
			h.writeError(w, http.StatusConflict, err)
		case errors.Is(err, pkgerrors.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, err)
		case errors.Is(err, pkgerrors.ErrInvalidInput):
			h.writeError(w, http.StatusBadRequest, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "code sent"})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Code     string `json:"code"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	err := h.service.Register(r.Context(), req.Email, req.Code, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrUsernameExists), errors.Is(err, pkgerrors.ErrEmailExists):
			h.writeError(w, http.StatusConflict, err)
		case errors.Is(err, pkgerrors.ErrInvalidVerifyCode), errors.Is(err, pkgerrors.ErrInvalidInput):
			h.writeError(w, http.StatusBadRequest, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (h *Handler) ResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.service.ResetConfirm(r.Context(), req.Email, req.Code); err != nil {
		if errors.Is(err, pkgerrors.ErrInvalidVerifyCode) {
			h.writeError(w, http.StatusBadRequest, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Code     string `json:"code"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Email, req.Code, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrInvalidVerifyCode), errors.Is(err, pkgerrors.ErrInvalidInput):
			h.writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, pkgerrors.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "password reset"})
}

// Me returns the authenticated principal; it sits behind the gate plus
// RequireAuthenticated, so the context values are always present here.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}
	accountID, _ := auth.AccountIDFromContext(r.Context())

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":          accountID,
		"username":    principal.Username,
		"authorities": principal.Authorities,
	})
}

func clientIP(r *http.Request) string {
	return r.RemoteAddr
}
