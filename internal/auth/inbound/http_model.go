package inbound

type OtpSendRequest struct {
	Email string `json:"email"`
}

type OtpSendResponse struct {
	ExpiresIn int `json:"expires_in"`
}

func (OtpSendResponse) Message() string {
	return "If the address is valid, a verification code has been sent."
}

type OtpVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"otp"`
}

type UserResponse struct {
	ID    int64  `json:"id,string"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type OtpVerifyResponse struct {
	Token     string       `json:"token"`
	User      UserResponse `json:"user"`
	ExpiresIn int          `json:"expires_in"`
}

func (OtpVerifyResponse) Message() string {
	return "You are now signed in."
}

type LogoutResponse struct{}

func (LogoutResponse) Message() string {
	return "You have been signed out."
}

type CheckResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user,omitempty"`
}
