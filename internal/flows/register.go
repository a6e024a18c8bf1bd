package flows

import (
	"context"
	"fmt"
)

// RegisterInput is the unsanitized registration form.
type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	AcceptTerms bool
}

// RegisterMetrics carries metric IDs used by the register flow.
type RegisterMetrics struct {
	RegisterSuccess int
	RegisterFailure int
}

// RegisterEvents carries audit event names used by the register flow.
type RegisterEvents struct {
	RegisterSuccess string
	RegisterFailure string
}

// RegisterErrors carries host-level sentinel errors used by the register flow.
type RegisterErrors struct {
	NotReady   error
	Validation error
	Storage    error
}

// RegisterDeps captures register dependencies. Registration does not
// consult the failed-attempt limiter.
type RegisterDeps struct {
	Gate GateDeps

	CreateAccount func(ctx context.Context, in RegisterInput) (Grant, error)
	PersistGrant  func(ctx context.Context, g Grant) error
	Translate     func(error) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister creates an account and stores the issued tokens.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) (*User, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Translate == nil {
		deps.Translate = func(err error) error { return err }
	}
	if deps.CreateAccount == nil || deps.PersistGrant == nil {
		return nil, deps.Errors.NotReady
	}

	clean := RegisterInput{
		Email:       SanitizeEmail(in.Email),
		Password:    in.Password,
		FirstName:   SanitizeText(in.FirstName),
		LastName:    SanitizeText(in.LastName),
		AcceptTerms: in.AcceptTerms,
	}
	masked := MaskEmail(clean.Email)

	if !clean.AcceptTerms {
		return nil, fmt.Errorf("%w: terms and conditions must be accepted", deps.Errors.Validation)
	}
	if clean.Email == "" || clean.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", deps.Errors.Validation)
	}

	verdict, err := runGate(ctx, "register", masked, deps.Gate)
	if err != nil {
		return nil, err
	}

	grant, err := deps.CreateAccount(ctx, clean)
	if err != nil {
		mapped := deps.Translate(err)
		deps.MetricInc(deps.Metrics.RegisterFailure)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, masked, verdict.Level, mapped, nil)
		return nil, mapped
	}
	if err := deps.PersistGrant(ctx, grant); err != nil {
		wrapped := fmt.Errorf("%w: %w", deps.Errors.Storage, err)
		deps.MetricInc(deps.Metrics.RegisterFailure)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, masked, verdict.Level, wrapped, nil)
		return nil, wrapped
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, masked, verdict.Level, nil, nil)
	user := grant.User
	return &user, nil
}
