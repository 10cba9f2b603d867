package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hopon/hopon-api/internal/apperror"
	"github.com/hopon/hopon-api/internal/auth"
	"github.com/hopon/hopon-api/internal/model"
	"github.com/hopon/hopon-api/internal/service"
)

// stateCookieName holds the nonce bound to the signed OAuth state.
const stateCookieName = "oauth_state"

// handoffTemplate is the page the popup lands on after Google redirects
// back. It hands the session to the SPA that opened it, then closes.
//
// html/template escapes per context: inside <script>, {{.Payload}} is
// rendered as a JSON literal and {{.Origin}} as a quoted JS string.
var handoffTemplate = template.Must(template.New("handoff").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Signing you in…</title></head>
<body>
<p>Signing you in…</p>
<script>
(function () {
  var payload = {{.Payload}};
  var origin = {{.Origin}};
  if (window.opener && !window.opener.closed) {
    window.opener.postMessage({ type: "hopon:auth", payload: payload }, origin);
    window.close();
    return;
  }
  try {
    window.localStorage.setItem("hoponAuthPayload", JSON.stringify(payload));
  } catch (e) {}
  window.location.replace(origin);
})();
</script>
</body>
</html>
`))

// handoffPayload is what the SPA receives from the popup.
type handoffPayload struct {
	Message            string      `json:"message"`
	User               *model.User `json:"user"`
	AccessToken        string      `json:"access_token"`
	NeedsUsernameSetup bool        `json:"needs_username_setup"`
}

// OAuthHandler runs the Google login popup flow.
//
// FLOW:
//  1. GET /auth/google/login?next=<url>
//     The return origin is validated, signed into a short-lived state JWT
//     together with a nonce, and the nonce is set in the oauth_state cookie.
//     The browser is redirected to Google.
//  2. GET /auth/google/callback?code&state
//     The state must verify and its nonce must match the cookie, which ties
//     the callback to the browser that started the login. The code is
//     exchanged, the identity linked, and the handoff page rendered.
//
// provider is nil when Google credentials are not configured.
type OAuthHandler struct {
	provider       auth.OAuthProvider
	tokens         *auth.TokenService
	origins        *auth.Origins
	auth           *service.AuthService
	cookies        CookieOptions
	devGoogleLogin bool
	logger         *slog.Logger
}

// NewOAuthHandler creates an OAuthHandler.
func NewOAuthHandler(
	provider auth.OAuthProvider,
	tokens *auth.TokenService,
	origins *auth.Origins,
	authSvc *service.AuthService,
	cookies CookieOptions,
	devGoogleLogin bool,
	logger *slog.Logger,
) *OAuthHandler {
	return &OAuthHandler{
		provider:       provider,
		tokens:         tokens,
		origins:        origins,
		auth:           authSvc,
		cookies:        cookies,
		devGoogleLogin: devGoogleLogin,
		logger:         logger,
	}
}

// HandleLogin starts the Google login.
//
// HTTP: GET /auth/google/login?next=<url>
func (h *OAuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	returnTo := h.origins.Resolve(r.URL.Query().Get("next"))

	if h.provider == nil {
		if h.devGoogleLogin {
			http.Redirect(w, r, "/auth/google/dev?next="+url.QueryEscape(returnTo), http.StatusTemporaryRedirect)
			return
		}
		writeErrorMessage(w, http.StatusInternalServerError, "internal_error", "Google OAuth is not configured")
		return
	}

	state, st, err := h.tokens.IssueState(returnTo)
	if err != nil {
		writeError(w, err)
		return
	}

	// SameSite=Lax: the cookie rides along on Google's top-level redirect
	// back to us but not on cross-site subrequests.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    st.Nonce,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL(auth.KindOAuthState).Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the Google login.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeErrorMessage(w, http.StatusInternalServerError, "internal_error", "Google OAuth is not configured")
		return
	}

	q := r.URL.Query()

	nonce := ""
	if c, err := r.Cookie(stateCookieName); err == nil {
		nonce = c.Value
	}
	st, err := h.tokens.DecodeState(q.Get("state"), nonce)
	if err != nil {
		h.logger.Warn("oauth callback: invalid state", slog.String("error", err.Error()))
		writeErrorMessage(w, http.StatusBadRequest, "validation_error", "Invalid OAuth state")
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	if denied := q.Get("error"); denied != "" {
		writeError(w, apperror.Upstream("Failed to authorize with Google", errString(denied)))
		return
	}
	code := q.Get("code")
	if code == "" {
		writeErrorMessage(w, http.StatusBadRequest, "validation_error", "Missing OAuth code")
		return
	}

	profile, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: Google exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Upstream("Failed to authorize with Google", err))
		return
	}

	result, err := h.auth.GoogleLogin(r.Context(), profile)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("user authenticated with Google",
		slog.String("userID", result.User.ID),
		slog.Bool("new", result.NeedsUsernameSetup),
	)
	h.handoff(w, result, st.ReturnTo, "Google login successful")
}

// HandleDevLogin simulates the Google flow for local development.
//
// HTTP: GET /auth/google/dev?email=&name=&next=
func (h *OAuthHandler) HandleDevLogin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	result, err := h.auth.DevGoogleLogin(r.Context(), q.Get("email"), q.Get("name"))
	if err != nil {
		writeError(w, err)
		return
	}

	h.handoff(w, result, q.Get("next"), "Dev login successful")
}

// handoff sets the refresh cookie and renders the page that passes the
// session to the SPA at returnTo. returnTo is validated again here and
// falls back to the default origin.
func (h *OAuthHandler) handoff(w http.ResponseWriter, result *service.AuthResult, returnTo, message string) {
	setRefreshCookie(w, h.cookies, result.RefreshToken)

	data := struct {
		Payload handoffPayload
		Origin  string
	}{
		Payload: handoffPayload{
			Message:            message,
			User:               result.User,
			AccessToken:        result.AccessToken,
			NeedsUsernameSetup: result.NeedsUsernameSetup,
		},
		Origin: h.origins.Resolve(returnTo),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := handoffTemplate.Execute(w, data); err != nil {
		h.logger.Error("rendering OAuth handoff page", slog.String("error", err.Error()))
	}
}

// errString lets a provider error code travel as an error value.
type errString string

func (e errString) Error() string { return string(e) }
