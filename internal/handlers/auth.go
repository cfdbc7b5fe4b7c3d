package handlers

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"planora/internal/middleware"
	"planora/internal/session"
)

// totpIssuer is the issuer label shown in authenticator apps.
const totpIssuer = "Planora"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Code string `json:"code"`
}

// Login checks credentials and opens a session. 2FA is not complete yet
// at this point; the response tells the client whether to go through
// setup or verification next.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body.", http.StatusBadRequest)
		return
	}

	user, err := a.users.FindByEmail(req.Email)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		writeError(w, "An unexpected error occurred.", http.StatusInternalServerError)
		return
	}
	if user == nil || !a.users.CheckPassword(user, req.Password) {
		writeError(w, "Invalid email or password.", http.StatusUnauthorized)
		return
	}

	// TwoFADone starts as false — the user must complete 2FA.
	_, err = a.sessions.Create(r.Context(), w, &session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		TwoFADone:   false,
	})
	if err != nil {
		slog.Error("session create failed", "error", err)
		writeError(w, "An unexpected error occurred.", http.StatusInternalServerError)
		return
	}

	next := "verify"
	if user.Needs2FASetup() {
		next = "setup"
	}
	writeJSON(w, http.StatusOK, map[string]string{"two_factor": next})
}

// TwoFASetup generates a fresh TOTP secret for the logged-in user and
// returns it with a QR code for authenticator apps.
func (a *API) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, "Authentication required.", http.StatusUnauthorized)
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: sess.Email,
	})
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		writeError(w, "An unexpected error occurred.", http.StatusInternalServerError)
		return
	}

	if err := a.users.SetTOTPSecret(sess.UserID, key.Secret()); err != nil {
		slog.Error("save totp secret failed", "error", err)
		writeError(w, "An unexpected error occurred.", http.StatusInternalServerError)
		return
	}

	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		writeError(w, "An unexpected error occurred.", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"secret":  key.Secret(),
		"qr_code": base64.StdEncoding.EncodeToString(qrPNG),
	})
}

// TwoFAVerify validates the TOTP code and completes authentication.
func (a *API) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, "Authentication required.", http.StatusUnauthorized)
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body.", http.StatusBadRequest)
		return
	}

	user, err := a.users.FindByID(sess.UserID)
	if err != nil || user == nil {
		slog.Error("user lookup for 2fa failed", "error", err)
		writeError(w, "An unexpected error occurred.", http.StatusInternalServerError)
		return
	}
	if user.TOTPSecret == nil {
		writeError(w, "Two-factor setup has not been started.", http.StatusConflict)
		return
	}

	if !totp.Validate(req.Code, *user.TOTPSecret) {
		writeError(w, "Invalid code.", http.StatusUnauthorized)
		return
	}

	// First successful verification enables TOTP permanently.
	if !user.TOTPEnabled {
		if err := a.users.EnableTOTP(user.ID); err != nil {
			slog.Error("enable totp failed", "error", err)
			writeError(w, "An unexpected error occurred.", http.StatusInternalServerError)
			return
		}
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		slog.Error("session update failed", "error", err)
		writeError(w, "An unexpected error occurred.", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// Me returns the authenticated user's session identity.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, "Authentication required.", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      sess.UserID,
		"email":        sess.Email,
		"display_name": sess.DisplayName,
		"two_fa_done":  sess.TwoFADone,
	})
}

// Logout destroys the session.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	a.sessions.Destroy(r.Context(), w, r)
	w.WriteHeader(http.StatusNoContent)
}
