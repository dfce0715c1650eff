package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campus/identity/internal/auth"
	"campus/identity/internal/config"
	"campus/identity/internal/crypto"
	"campus/identity/internal/media"
	"campus/identity/internal/model"
	"campus/identity/internal/repository"
	"campus/identity/internal/revocation"
)

const sessionCookieName = "campus_session"

type Server struct {
	cfg      config.Config
	store    *repository.Store
	revoker  *revocation.Store
	uploader *media.Uploader
}

// NewServer wires the route handlers. revoker and uploader may be nil: without
// a revoker logout only clears the cookie (the token stays valid until
// expiry), and without an uploader accounts simply carry no profile image.
func NewServer(cfg config.Config, store *repository.Store, revoker *revocation.Store, uploader *media.Uploader) *Server {
	return &Server{cfg: cfg, store: store, revoker: revoker, uploader: uploader}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/signup", s.handleSignup)
	r.Post("/login", s.handleLogin)
	r.With(s.authMiddleware).Post("/logout", s.handleLogout)

	r.With(s.authMiddleware).Get("/me", s.handleGetMe)
	r.With(s.authMiddleware).Put("/updateUserInfo", s.handleUpdateUserInfo)
	r.With(s.authMiddleware).Put("/updateProfile", s.handleUpdateProfile)

	r.Route("/student", func(r chi.Router) {
		r.Use(s.authMiddleware, s.requireRole(model.RoleStudent))
		r.Get("/courses", s.handleStudentCourses)
		r.Get("/courses/{courseID}/assignments", s.handleStudentAssignments)
		r.Get("/grades", s.handleStudentGrades)
	})

	r.Route("/teacher", func(r chi.Router) {
		r.Use(s.authMiddleware, s.requireRole(model.RoleTeacher))
		r.Get("/courses", s.handleTeacherCourses)
		r.Post("/courses/{courseID}/assignments", s.handleCreateAssignment)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.authMiddleware, s.requireRole(model.RoleAdmin))
		r.Post("/courses", s.handleCreateCourse)
		r.Post("/courses/{courseID}/enrollments", s.handleEnrollStudent)
		r.Get("/accounts", s.handleListAccounts)
	})

	r.Route("/manager", func(r chi.Router) {
		r.Use(s.authMiddleware, s.requireRole(model.RoleManager))
		r.Get("/accounts", s.handleListAccounts)
	})

	return r
}

// Auth

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		if s.revoker != nil {
			revoked, err := s.revoker.IsRevoked(r.Context(), crypto.HashToken(token))
			if err != nil {
				writeError(w, http.StatusInternalServerError, "server_error")
				return
			}
			if revoked {
				writeError(w, http.StatusUnauthorized, "token_revoked")
				return
			}
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireRole(allowed ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			role, err := model.ParseRole(claims.Role)
			if err != nil {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			for _, want := range allowed {
				if role == want {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden")
		})
	}
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

// sessionToken prefers the session cookie and falls back to a bearer header
// for non-browser clients.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cfg.SessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   s.cfg.Production(),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   s.cfg.Production(),
	})
}

// Signup / session handlers

type signupRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	ProfileImage string `json:"profileImage,omitempty"`
}

type accountSummary struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	ProfileImage string `json:"profileImage"`
}

type sessionResponse struct {
	Message string         `json:"message,omitempty"`
	User    accountSummary `json:"user"`
	Token   string         `json:"token"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	role, err := model.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "password_hash_failed")
		return
	}

	// The image is a nice-to-have; a failed upload must not abort signup.
	imageURL := s.uploadProfileImage(r.Context(), req.Email, req.ProfileImage)

	now := time.Now().UTC()
	account := model.Account{
		ID:              uuid.NewString(),
		Email:           req.Email,
		PasswordHash:    hash,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Role:            role,
		ProfileImageURL: imageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.CreateAccount(r.Context(), account); err != nil {
		if errors.Is(err, repository.ErrDuplicateAccount) {
			writeError(w, http.StatusBadRequest, "duplicate_account")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	token, err := auth.NewSessionToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.SessionTTL, account.ID, account.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, sessionResponse{
		Message: "account created",
		User:    summarize(account),
		Token:   token,
	})
}

func (s *Server) uploadProfileImage(ctx context.Context, email, encoded string) string {
	if encoded == "" || s.uploader == nil {
		return ""
	}
	data, err := decodeImage(encoded)
	if err != nil {
		log.Printf("profile image for %s rejected: %v", email, err)
		return ""
	}
	url, err := s.uploader.Upload(ctx, email, data)
	if err != nil {
		log.Printf("profile image upload for %s failed: %v", email, err)
		return ""
	}
	return url
}

// decodeImage accepts raw base64 or a data URI.
func decodeImage(encoded string) ([]byte, error) {
	if idx := strings.Index(encoded, ";base64,"); idx >= 0 {
		encoded = encoded[idx+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(encoded)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	account, err := s.store.GetAccountByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if err := crypto.CheckPassword(account.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, err := auth.NewSessionToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.SessionTTL, account.ID, account.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, sessionResponse{User: summarize(account), Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	if s.revoker != nil && claims.ExpiresAt != nil {
		remaining := time.Until(claims.ExpiresAt.Time)
		if err := s.revoker.Revoke(r.Context(), crypto.HashToken(sessionToken(r)), remaining); err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
	}

	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	account, err := s.store.GetAccountByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, summarize(account))
}

type updateUserInfoRequest struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
}

func (s *Server) handleUpdateUserInfo(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req updateUserInfoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	update := repository.AccountUpdate{}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email != "" {
			update.Email = &email
		}
	}
	if req.FirstName != nil {
		first := strings.TrimSpace(*req.FirstName)
		if first != "" {
			update.FirstName = &first
		}
	}
	if req.LastName != nil {
		last := strings.TrimSpace(*req.LastName)
		if last != "" {
			update.LastName = &last
		}
	}
	if update.Email == nil && update.FirstName == nil && update.LastName == nil {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	account, err := s.store.UpdateAccountInfo(r.Context(), claims.UserID, update)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateAccount):
			writeError(w, http.StatusBadRequest, "duplicate_account")
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "account_not_found")
		default:
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	writeJSON(w, http.StatusOK, summarize(account))
}

type updateProfileRequest struct {
	ProfileImage string `json:"profileImage"`
}

// handleUpdateProfile replaces the caller's profile image. Unlike signup the
// image is the whole point of this call, so an upload failure is surfaced.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.ProfileImage == "" {
		writeError(w, http.StatusBadRequest, "missing_profile_image")
		return
	}

	if s.uploader == nil {
		writeError(w, http.StatusBadGateway, "upload_unavailable")
		return
	}

	data, err := decodeImage(req.ProfileImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_profile_image")
		return
	}

	url, err := s.uploader.Upload(r.Context(), claims.UserID, data)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upload_failed")
		return
	}

	account, err := s.store.UpdateProfileImage(r.Context(), claims.UserID, url)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, summarize(account))
}

func summarize(account model.Account) accountSummary {
	return accountSummary{
		ID:           account.ID,
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		Email:        account.Email,
		Role:         string(account.Role),
		ProfileImage: account.ProfileImageURL,
	}
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
