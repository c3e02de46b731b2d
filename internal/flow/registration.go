package flow

import (
	"context"
	"strings"

	"github.com/atinyakov/GophBank/internal/models"
	"github.com/atinyakov/GophBank/internal/session"
	"github.com/atinyakov/GophBank/internal/validate"
)

// Registrar opens accounts. *session.Manager implements it.
type Registrar interface {
	Register(ctx context.Context, req models.OpenAccountRequest) session.RegisterResult
}

// Registration is the three step account opening form.
type Registration struct {
	registrar Registrar
}

func NewRegistration(r Registrar) *Registration {
	return &Registration{registrar: r}
}

func (*Registration) Descriptor() Descriptor {
	return Descriptor{
		Kind:  KindRegistration,
		Title: "Open Account",
		Steps: [][]string{
			{FieldFullName, FieldEmail, FieldPhone, FieldPassword},
			{FieldAadhaar, FieldPAN},
			{FieldAccountType, FieldInitialDeposit},
		},
		Fallback:     session.MsgRegistrationFailed,
		SuccessRoute: RouteLogin,
		Defaults:     Values{FieldAccountType: string(models.Savings)},
	}
}

func (*Registration) Validate(step int, values Values, _ Env) FieldErrors {
	switch step {
	case 1:
		return applyRules(values,
			stepRule{FieldFullName, validate.FullName},
			stepRule{FieldEmail, validate.Email},
			stepRule{FieldPhone, validate.Phone},
			stepRule{FieldPassword, validate.Password},
		)
	case 2:
		return applyRules(values,
			stepRule{FieldAadhaar, validate.Aadhaar},
			stepRule{FieldPAN, validate.PAN},
		)
	case 3:
		return applyRules(values,
			stepRule{FieldAccountType, validate.AccountType},
			stepRule{FieldInitialDeposit, validate.InitialDeposit},
		)
	}
	return FieldErrors{}
}

func (r *Registration) Submit(ctx context.Context, values Values, _ Env) (Outcome, error) {
	deposit, _ := validate.ParseAmount(values[FieldInitialDeposit])
	res := r.registrar.Register(ctx, models.OpenAccountRequest{
		FullName:       strings.TrimSpace(values[FieldFullName]),
		Email:          values[FieldEmail],
		Phone:          values[FieldPhone],
		Password:       values[FieldPassword],
		AadhaarNumber:  values[FieldAadhaar],
		PANCardNumber:  values[FieldPAN],
		AccountType:    models.AccountType(values[FieldAccountType]),
		InitialDeposit: deposit,
	})
	if !res.Success {
		return Outcome{}, &Rejection{Reason: res.Error}
	}
	out := Outcome{Amount: deposit, Account: res.Account}
	if res.Account != nil {
		out.Message = res.Account.Message
	}
	return out, nil
}
