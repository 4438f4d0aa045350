package inbound

import (
	"net/http"

	"github.com/schoolhub/schoolhub/internal/auth/usecase"
	"github.com/schoolhub/schoolhub/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for the OTP authentication workflows.
type HTTPEndpoint struct {
	uc           uc
	secureCookie bool
}

// OtpSend issues a one-time code and emails it to the address.
func (h *HTTPEndpoint) OtpSend(r *router.Request) (any, error) {
	var req OtpSendRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.OtpSend(r.Context(), usecase.OtpSendInput{Email: req.Email})
	if err != nil {
		return nil, err
	}

	return OtpSendResponse{ExpiresIn: resp.ExpiresInSeconds}, nil
}

// OtpVerify exchanges a valid code for a session, set as an HTTP-only cookie
// alongside the response body.
func (h *HTTPEndpoint) OtpVerify(r *router.Request) (any, error) {
	var req OtpVerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.OtpVerify(r.Context(), usecase.OtpVerifyInput{
		Email: req.Email,
		Code:  req.Code,
	})
	if err != nil {
		return nil, err
	}

	r.SetCookie(&http.Cookie{
		Name:     router.SessionCookie,
		Value:    resp.Token,
		Path:     "/",
		MaxAge:   resp.ExpiresInSeconds,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	return OtpVerifyResponse{
		Token: resp.Token,
		User: UserResponse{
			ID:    resp.User.ID,
			Email: resp.User.Email,
			Name:  resp.User.Name,
			Role:  resp.User.Role,
		},
		ExpiresIn: resp.ExpiresInSeconds,
	}, nil
}

// Logout ends the session and expires the session cookies.
func (h *HTTPEndpoint) Logout(r *router.Request) (any, error) {
	if err := h.uc.SessionLogout(r.Context()); err != nil {
		return nil, err
	}

	for _, name := range []string{router.SessionCookie, router.LegacySessionCookie} {
		r.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return LogoutResponse{}, nil
}

// Check reports the session state for the caller.
func (h *HTTPEndpoint) Check(r *router.Request) (any, error) {
	resp, err := h.uc.SessionCheck(r.Context())
	if err != nil {
		return nil, err
	}

	out := CheckResponse{Authenticated: resp.Authenticated}
	if resp.User != nil {
		out.User = &UserResponse{
			ID:    resp.User.ID,
			Email: resp.User.Email,
			Name:  resp.User.Name,
			Role:  resp.User.Role,
		}
	}

	return out, nil
}
