package flows

import "context"

// Service binds each auth flow to its dependency set. The root client
// builds exactly one and never mutates it.
type Service struct {
	deps Deps
}

func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized is false for the zero Service.
func (s Service) Initialized() bool {
	return s.deps.Login.Authenticate != nil
}

func (s Service) Login(ctx context.Context, identifier, secret string, rememberMe bool) (*User, error) {
	return RunLogin(ctx, identifier, secret, rememberMe, s.deps.Login)
}

func (s Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	return RunRegister(ctx, in, s.deps.Register)
}

func (s Service) Logout(ctx context.Context) error {
	return RunLogout(ctx, s.deps.Logout)
}

func (s Service) ForgotPassword(ctx context.Context, email string) (bool, error) {
	return RunForgotPassword(ctx, email, s.deps.Forgot)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) (Grant, error) {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) ValidateSession(ctx context.Context) bool {
	return RunValidateSession(ctx, s.deps.Validate)
}
