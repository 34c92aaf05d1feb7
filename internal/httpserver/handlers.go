package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	domain "accounts/backend/internal/domain/identity"
	authusecase "accounts/backend/internal/usecase/auth"
)

// identityResponse is the wire shape for an identity. Token is present only
// on register/login responses.
type identityResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
	Token string `json:"token,omitempty"`
}

func toIdentityResponse(id *domain.Identity, token string) identityResponse {
	return identityResponse{
		ID:    id.ID,
		Name:  id.Name,
		Email: id.Email,
		Phone: id.Phone,
		Role:  string(id.Role),
		Token: token,
	}
}

func (s *Server) registerRoutes() {
	s.router.Handle("/health", http.HandlerFunc(s.handleHealth))
	s.router.Handle("/register", http.HandlerFunc(s.handleRegister))
	s.router.Handle("/login", http.HandlerFunc(s.handleLogin))

	guarded := s.sessionGuard
	s.router.Handle("/admin", guarded(http.HandlerFunc(s.handleCurrentIdentity)))
	s.router.Handle("/users", guarded(http.HandlerFunc(s.handleListIdentities)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	id, token, err := s.authService.Register(r.Context(), authusecase.RegisterInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Password: payload.Password,
		Role:     payload.Role,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toIdentityResponse(id, token))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	id, token, err := s.authService.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toIdentityResponse(id, token))
}

func (s *Server) handleCurrentIdentity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := s.authService.CurrentIdentity(r.Context(), caller.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toIdentityResponse(id, ""))
}

func (s *Server) handleListIdentities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ids, err := s.authService.ListAll(r.Context(), caller.Role)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]identityResponse, 0, len(ids))
	for _, id := range ids {
		out = append(out, toIdentityResponse(id, ""))
	}
	writeJSON(w, http.StatusOK, out)
}

// writeServiceError maps the error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a 500 whose detail is logged but never sent to the
// caller.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrDuplicateIdentity),
		errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "server error")
	}
}
