package transport

import (
	"context"
	"errors"
	"net/http"
)

// API paths relative to the base URL.
const (
	PathLogin          = "/auth/login"
	PathRegister       = "/auth/register"
	PathLogout         = "/auth/logout"
	PathRefresh        = "/auth/refresh"
	PathForgotPassword = "/auth/forgot-password"
)

// UserPayload is the user object returned by login and register.
type UserPayload struct {
	ID               int64  `json:"id"`
	Email            string `json:"email"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	EmailVerified    bool   `json:"emailVerified"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

// AuthData is the data member of auth responses. ExpiresIn is in seconds
// and may be zero when the server omits it.
type AuthData struct {
	User         UserPayload `json:"user"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    int64       `json:"expiresIn"`
}

type LoginRequest struct {
	Email      string     `json:"email"`
	Password   string     `json:"password"`
	RememberMe bool       `json:"rememberMe,omitempty"`
	DeviceInfo DeviceInfo `json:"deviceInfo"`
}

type RegisterRequest struct {
	Email      string     `json:"email"`
	Password   string     `json:"password"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	DeviceInfo DeviceInfo `json:"deviceInfo"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (AuthData, error) {
	if req.DeviceInfo.DeviceID == "" {
		req.DeviceInfo = c.cfg.Device
	}
	var data AuthData
	_, err := c.Do(ctx, http.MethodPost, PathLogin, req, "", &data)
	return data, err
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (AuthData, error) {
	if req.DeviceInfo.DeviceID == "" {
		req.DeviceInfo = c.cfg.Device
	}
	var data AuthData
	_, err := c.Do(ctx, http.MethodPost, PathRegister, req, "", &data)
	return data, err
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (AuthData, error) {
	var data AuthData
	_, err := c.Do(ctx, http.MethodPost, PathRefresh, refreshRequest{RefreshToken: refreshToken}, "", &data)
	return data, err
}

func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.Do(ctx, http.MethodPost, PathLogout, nil, token, nil)
	return err
}

// ForgotPassword returns the server's success flag. A success=false
// envelope is reported as (false, nil).
func (c *Client) ForgotPassword(ctx context.Context, email string) (bool, error) {
	env, err := c.Do(ctx, http.MethodPost, PathForgotPassword, forgotPasswordRequest{Email: email}, "", nil)
	if err != nil {
		if env != nil && !env.Success {
			var rej *RejectedError
			if errors.As(err, &rej) && rej.Status < 300 {
				return false, nil
			}
		}
		return false, err
	}
	return env.Success, nil
}
