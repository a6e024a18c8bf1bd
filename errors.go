package authguard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skillswap/authguard/internal/rate"
	"github.com/skillswap/authguard/jwt"
	"github.com/skillswap/authguard/transport"
)

var (
	// ErrValidation reports malformed or missing input. No network call was made.
	ErrValidation = errors.New("validation failed")
	// ErrRateLimitExceeded reports that an identifier has spent its failed-attempt budget.
	ErrRateLimitExceeded = errors.New("too many failed attempts")
	// ErrSecurityBlocked reports a critical device risk level.
	ErrSecurityBlocked = errors.New("blocked by security policy")
	// ErrNetwork reports a transport failure below HTTP.
	ErrNetwork = errors.New("network error")
	// ErrTimeout reports a request that exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrAuthRejected reports a non-success server response.
	ErrAuthRejected = errors.New("authentication rejected")
	// ErrStorage reports a token persistence failure.
	ErrStorage = errors.New("storage error")
	// ErrNoSession is returned by operations that need a stored session.
	ErrNoSession = errors.New("no active session")
	// ErrClientNotReady is returned by a zero or closed Client.
	ErrClientNotReady = errors.New("client not initialized")
)

// Kind is the coarse failure category shown to callers.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindRateLimitExceeded
	KindSecurityBlocked
	KindNetwork
	KindTimeout
	KindAuthRejected
	KindStorage
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "ValidationError"
	case KindRateLimitExceeded:
		return "RateLimitExceeded"
	case KindSecurityBlocked:
		return "SecurityBlocked"
	case KindNetwork:
		return "NetworkError"
	case KindTimeout:
		return "Timeout"
	case KindAuthRejected:
		return "AuthRejected"
	case KindStorage:
		return "StorageError"
	default:
		return "InternalError"
	}
}

// KindOf classifies err. A nil error is KindNone.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrRateLimitExceeded):
		return KindRateLimitExceeded
	case errors.Is(err, ErrSecurityBlocked):
		return KindSecurityBlocked
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrAuthRejected), errors.Is(err, ErrNoSession):
		return KindAuthRejected
	case errors.Is(err, ErrStorage):
		return KindStorage
	default:
		return KindInternal
	}
}

// Result is the discriminated outcome handed to UI callers.
type Result struct {
	OK      bool
	Kind    Kind
	Message string
}

// ResultOf converts err into a Result with a user-facing message. Server
// rejection messages are passed through when present.
func ResultOf(err error) Result {
	kind := KindOf(err)
	if kind == KindNone {
		return Result{OK: true, Kind: KindNone}
	}
	msg := defaultMessage(kind)
	if kind == KindAuthRejected {
		var rej *transport.RejectedError
		if errors.As(err, &rej) && rej.Message != "" {
			msg = rej.Message
		}
	}
	if kind == KindValidation {
		if detail, ok := strings.CutPrefix(err.Error(), ErrValidation.Error()+": "); ok && detail != "" {
			msg = detail
		}
	}
	return Result{OK: false, Kind: kind, Message: msg}
}

func defaultMessage(k Kind) string {
	switch k {
	case KindValidation:
		return "Please check the information you entered."
	case KindRateLimitExceeded:
		return "Too many failed attempts. Please try again later."
	case KindSecurityBlocked:
		return "This device does not meet the security requirements."
	case KindNetwork:
		return "Unable to reach the server. Check your connection."
	case KindTimeout:
		return "The request timed out. Please try again."
	case KindAuthRejected:
		return "Invalid email or password."
	case KindStorage:
		return "Unable to save your session on this device."
	default:
		return "Something went wrong. Please try again."
	}
}

// translate maps lower-layer errors onto the root sentinels, keeping the
// original chain for errors.As.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return fmt.Errorf("%w: %w", ErrRateLimitExceeded, err)
	case errors.Is(err, rate.ErrStoreUnavailable):
		return fmt.Errorf("%w: %w", ErrStorage, err)
	case errors.Is(err, transport.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, transport.ErrServerRateLimited):
		return fmt.Errorf("%w: %w", ErrRateLimitExceeded, err)
	case errors.Is(err, transport.ErrRejected), errors.Is(err, jwt.ErrTokenInvalid):
		return fmt.Errorf("%w: %w", ErrAuthRejected, err)
	case errors.Is(err, transport.ErrNetwork), errors.Is(err, transport.ErrResponseTooLarge),
		errors.Is(err, transport.ErrMalformedResponse):
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	default:
		return err
	}
}
