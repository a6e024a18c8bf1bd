package authguard

import (
	"time"

	"github.com/skillswap/authguard/internal/flows"
	"github.com/skillswap/authguard/internal/security"
	"github.com/skillswap/authguard/risk"
	"github.com/skillswap/authguard/transport"
)

// AuthenticatedUser is the profile returned by login and registration.
type AuthenticatedUser struct {
	ID               int64  `json:"id"`
	Email            string `json:"email"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	EmailVerified    bool   `json:"emailVerified"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

// RegisterRequest is the registration form. Fields are sanitized before use.
type RegisterRequest struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	AcceptTerms bool
}

// SecurityStatus is a live snapshot of device, network, integrity and
// session signals.
type SecurityStatus struct {
	Level               risk.Level
	DeviceSecure        bool
	NetworkSecure       bool
	AppIntegrity        bool
	SessionValid        bool
	Threats             []string
	SessionExpires      time.Time
	TokenSubject        string
	AssessedAt          time.Time
	DeviceSignalsCached bool
}

// SecurityReport is the static posture derived from configuration.
type SecurityReport = security.Report

// Device identifies this installation to the server.
type Device = transport.DeviceInfo

func userFromFlow(u *flows.User) *AuthenticatedUser {
	if u == nil {
		return nil
	}
	return &AuthenticatedUser{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		EmailVerified:    u.EmailVerified,
		TwoFactorEnabled: u.TwoFactorEnabled,
	}
}

func userFromPayload(p transport.UserPayload) flows.User {
	return flows.User{
		ID:               p.ID,
		Email:            p.Email,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		EmailVerified:    p.EmailVerified,
		TwoFactorEnabled: p.TwoFactorEnabled,
	}
}
