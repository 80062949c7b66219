package http

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// AccountHandler serves the email/password and session routes under the
// issuer base path.
type AccountHandler struct {
	UserService    *service.UserService
	SessionService *service.SessionService
	TokenService   *service.TokenService
	Cookie         SessionCookie
}

type signUpBody struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

type signInBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignUp godoc
//
//	@Summary		Sign up with email
//	@Description	Creates an account and signs it in. The session token is returned in the body and set as an HttpOnly cookie.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.SignUpRequest	true	"New account"
//	@Success		200		{object}	authsdk.SignUpResponse
//	@Failure		400		{object}	httpx.APIError	"bad_request, details.fields lists invalid fields"
//	@Failure		409		{object}	httpx.APIError	"user_already_exists"
//	@Failure		429		{object}	httpx.APIError	"rate_limit_exceeded"
//	@Router			/api/auth/v1/sign-up/email [post].
func (h *AccountHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var body signUpBody
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}

	u, err := h.UserService.SignUp(r.Context(), service.SignUpInput{
		Email:    body.Email,
		Password: body.Password,
		Name:     body.Name,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, sess, err := h.SessionService.Create(r.Context(), u.ID, sessionMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Cookie.Set(w, token, sess.ExpiresAt)
	httpx.WriteJSON(w, http.StatusOK, authsdk.SignUpResponse{Token: token, User: toUser(u)})
}

// HandleSignIn godoc
//
//	@Summary		Sign in with email
//	@Description	Exchanges email and password for a session. Unknown emails and wrong passwords are indistinguishable.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.SignInRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.SignInResponse
//	@Failure		400		{object}	httpx.APIError	"bad_request"
//	@Failure		401		{object}	httpx.APIError	"invalid_email_or_password"
//	@Failure		429		{object}	httpx.APIError	"rate_limit_exceeded"
//	@Router			/api/auth/v1/sign-in/email [post].
func (h *AccountHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var body signInBody
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}

	u, err := h.UserService.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, sess, err := h.SessionService.Create(r.Context(), u.ID, sessionMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("user_signed_in", slog.String("user_id", u.ID))

	h.Cookie.Set(w, token, sess.ExpiresAt)
	httpx.WriteJSON(w, http.StatusOK, authsdk.SignInResponse{Redirect: false, Token: token, User: toUser(u)})
}

// HandleSignOut godoc
//
//	@Summary		Sign out
//	@Description	Revokes the presented session and clears the cookie. Always succeeds.
//	@Tags			Accounts
//	@Produce		json
//	@Security		SessionAuth
//	@Success		200	{object}	authsdk.SignOutResponse
//	@Router			/api/auth/v1/sign-out [post].
func (h *AccountHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionService.Revoke(r.Context(), h.Cookie.Token(r)); err != nil {
		slogx.FromContext(r.Context()).Error("session_revoke_failed", slog.Any("error", err))
	}

	h.Cookie.Clear(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.SignOutResponse{Success: true})
}

// HandleGetSession godoc
//
//	@Summary		Get the current session
//	@Description	Resolves the session cookie or bearer session token. Sessions older than a day are refreshed.
//	@Tags			Accounts
//	@Produce		json
//	@Security		SessionAuth
//	@Success		200	{object}	authsdk.GetSessionResponse
//	@Failure		401	{object}	authsdk.GetSessionResponse	"session and user are null"
//	@Router			/api/auth/v1/get-session [get].
func (h *AccountHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, u, err := h.resolve(w, r)
	if err != nil {
		if errors.Is(err, service.ErrNoSession) {
			httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.GetSessionResponse{})
			return
		}
		writeServiceError(w, r, err)
		return
	}

	info := toSession(sess)
	user := toUser(u)
	httpx.WriteJSON(w, http.StatusOK, authsdk.GetSessionResponse{Session: &info, User: &user})
}

// HandleToken godoc
//
//	@Summary		Mint an access token
//	@Description	Returns a JWT for the signed-in user, valid for 15 minutes.
//	@Tags			Accounts
//	@Produce		json
//	@Security		SessionAuth
//	@Success		200	{object}	authsdk.TokenResponse
//	@Failure		401	{object}	httpx.APIError	"unauthorized"
//	@Failure		500	{object}	httpx.APIError	"internal_error"
//	@Header			200	{string}	Cache-Control	"no-store"
//	@Router			/api/auth/v1/token [get].
func (h *AccountHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	_, u, err := h.resolve(w, r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, err := h.TokenService.Issue(u)
	if err != nil {
		slogx.FromContext(r.Context()).Error("token_sign_failed",
			slog.String("user_id", u.ID),
			slog.Any("error", err),
		)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{Token: token})
}

// writeServiceError maps service errors onto the issuer's error catalog.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		authsdk.NewValidationError(verr.FieldMap()).WriteError(w)
	case errors.Is(err, service.ErrUserAlreadyExists):
		authsdk.ErrUserAlreadyExists.WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrNoSession):
		authsdk.ErrNoSession.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("request_failed", slog.Any("error", err))
		authsdk.ErrServerError.WriteError(w)
	}
}

func sessionMeta(r *http.Request) service.SessionMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return service.SessionMeta{IPAddress: ip, UserAgent: r.UserAgent()}
}

func toUser(u domain.User) authsdk.User {
	scopes := u.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return authsdk.User{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		Scopes:        scopes,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func toSession(s domain.Session) authsdk.SessionInfo {
	return authsdk.SessionInfo{
		ID:        s.ID,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		IPAddress: s.IPAddress,
		UserAgent: s.UserAgent,
	}
}
