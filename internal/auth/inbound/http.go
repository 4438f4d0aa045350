package inbound

import (
	"context"

	"github.com/schoolhub/schoolhub/internal/auth/usecase"
	"github.com/schoolhub/schoolhub/internal/pkg/router"
)

type uc interface {
	OtpSend(ctx context.Context, in usecase.OtpSendInput) (*usecase.OtpSendOutput, error)
	OtpVerify(ctx context.Context, in usecase.OtpVerifyInput) (*usecase.OtpVerifyOutput, error)

	SessionCheck(ctx context.Context) (*usecase.SessionCheckOutput, error)
	SessionLogout(ctx context.Context) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc, secureCookie bool) {
	end := &HTTPEndpoint{uc: uc, secureCookie: secureCookie}

	r.POST("/api/auth/send-otp", end.OtpSend)
	r.POST("/api/auth/verify-otp", end.OtpVerify)
	r.POST("/api/auth/logout", end.Logout)
	r.GET("/api/auth/check", end.Check)
}
