// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/shopcore/internal/platform/constants"
	"github.com/taibuivan/shopcore/internal/platform/middleware"
	requestutil "github.com/taibuivan/shopcore/internal/platform/request"
	"github.com/taibuivan/shopcore/internal/platform/respond"
	"github.com/taibuivan/shopcore/internal/platform/sec"
	"github.com/taibuivan/shopcore/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
//
// # Scope
//
// The handler is a thin transport layer: it decodes and validates input,
// calls one service method and writes the envelope. Status codes for domain
// failures come from the errors themselves.
type Handler struct {
	provisioning *ProvisioningService
	authService  *Service
	resetService *PasswordResetService
	activity     *ActivityLog
	verifier     middleware.TokenVerifier

	// publicBaseURL overrides the request-derived base of reset links.
	publicBaseURL string
}

// HandlerDeps groups the collaborators of a [Handler].
type HandlerDeps struct {
	Provisioning  *ProvisioningService
	Auth          *Service
	Reset         *PasswordResetService
	Activity      *ActivityLog
	Verifier      middleware.TokenVerifier
	PublicBaseURL string
}

// NewHandler constructs a new [Handler].
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		provisioning:  deps.Provisioning,
		authService:   deps.Auth,
		resetService:  deps.Reset,
		activity:      deps.Activity,
		verifier:      deps.Verifier,
		publicBaseURL: strings.TrimRight(deps.PublicBaseURL, "/"),
	}
}

// Routes returns a [chi.Router] configured with the authentication routes.
//
// # Endpoints
//   - POST /admins/register        : Claims an admin seat.
//   - GET  /admins                 : Lists seat holders (admin, subadmin).
//   - GET  /admins/activity        : Recent identity events (admin).
//   - POST /login                  : Returns a session token.
//   - POST /forgot-password        : Emails a reset link.
//   - POST /reset-password/{token} : Redeems a reset link.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/admins/register", handler.registerAdmin)
	router.Post("/login", handler.login)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password/{token}", handler.resetPassword)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(handler.verifier))

		r.With(middleware.RequireRole(sec.PrivilegedRoles...)).Get("/admins", handler.listAdmins)
		r.With(middleware.RequireRole(sec.RoleAdmin)).Get("/admins/activity", handler.listActivity)
	})

	return router
}

// # Request Payloads

type registerAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// passwordRules applies the shared password policy.
func passwordRules(validator *validate.Validator, password string) {
	validator.Required(FieldPassword, password).
		MinLen(FieldPassword, password, PasswordMinLength).
		MaxBytes(FieldPassword, password, PasswordMaxBytes)
}

/*
RegisterAdmin provisions a new admin-seat holder.

POST /api/v1/auth/admins/register

Request:
  - Body: registerAdminRequest (Name, Email, Password)

Response:
  - 201: ProvisionResult: {id, email, role}
  - 400: VALIDATION_ERROR, DUPLICATE_IDENTITY or SEAT_LIMIT_EXCEEDED
*/
func (handler *Handler) registerAdmin(writer http.ResponseWriter, request *http.Request) {
	var input registerAdminRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	email := strings.TrimSpace(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, NameMaxLength).
		Required(FieldEmail, email).
		Email(FieldEmail, email)
	passwordRules(validator, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.provisioning.ProvisionAdmin(request.Context(), ProvisionInput{
		Name:     strings.TrimSpace(input.Name),
		Email:    email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, result)
}

/*
ListAdmins returns every admin-seat holder.

GET /api/v1/auth/admins

Response:
  - 200: AdminList: {count, admins}
  - 401/403: Missing, invalid or under-privileged token
*/
func (handler *Handler) listAdmins(writer http.ResponseWriter, request *http.Request) {
	admins, err := handler.provisioning.ListAdmins(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, admins)
}

/*
ListActivity returns the most recent identity events.

GET /api/v1/auth/admins/activity
*/
func (handler *Handler) listActivity(writer http.ResponseWriter, request *http.Request) {
	entries, err := handler.activity.List(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, entries)
}

/*
Login authenticates an identity.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: LoginResult: Public profile and sessionToken
  - 401: INVALID_CREDENTIALS
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
ForgotPassword emails a single-use reset link.

POST /api/v1/auth/forgot-password

Request:
  - Body: forgotPasswordRequest (Email)

Response:
  - 200: Confirmation message
  - 400: IDENTITY_NOT_FOUND or DELIVERY_FAILED
  - 429: RATE_LIMITED
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	email := strings.TrimSpace(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, email).Email(FieldEmail, email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.resetService.RequestReset(request.Context(), email, handler.callbackBaseURL(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldMessage: "Password reset email sent"})
}

/*
ResetPassword redeems a reset link and sets a new password.

POST /api/v1/auth/reset-password/{token}

Request:
  - Path: token (raw reset token)
  - Body: resetPasswordRequest (Password)

Response:
  - 200: Confirmation message
  - 400: INVALID_OR_EXPIRED_TOKEN or VALIDATION_ERROR
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	token := requestutil.Param(request, FieldToken)

	validator := &validate.Validator{}
	validator.Required(FieldToken, token)
	passwordRules(validator, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.resetService.ConsumeReset(request.Context(), token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldMessage: "Password has been reset"})
}

// callbackBaseURL is the configured public base, or the request's own origin.
func (handler *Handler) callbackBaseURL(request *http.Request) string {
	if handler.publicBaseURL != "" {
		return handler.publicBaseURL
	}
	return requestutil.BaseURL(request, constants.APIPrefix)
}
