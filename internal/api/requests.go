package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"stagehand/internal/services"
	"stagehand/internal/store"
)

// requestValidate is shared by every request type.
var requestValidate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("controltype", validControlType); err != nil {
		panic(fmt.Sprintf("register controltype validation: %v", err))
	}
	return v
}

func validControlType(fl validator.FieldLevel) bool {
	_, err := store.ParseControlType(fl.Field().String())
	return err == nil
}

// AddFrameRequest is the body of POST /api/position-frames.
type AddFrameRequest struct {
	Start *int64 `json:"start" validate:"required,gte=0"`
}

// Validate checks the request.
func (r *AddFrameRequest) Validate() error { return validate(r) }

// EditFrameRequest is the body of PATCH /api/position-frames.
type EditFrameRequest struct {
	FrameID int64  `json:"frameID" validate:"required,gt=0"`
	Start   *int64 `json:"start,omitempty" validate:"omitempty,gte=0"`
}

// Validate checks the request.
func (r *EditFrameRequest) Validate() error { return validate(r) }

// DeleteFrameRequest is the body of DELETE /api/position-frames.
type DeleteFrameRequest struct {
	FrameID int64 `json:"frameID" validate:"required,gt=0"`
}

// Validate checks the request.
func (r *DeleteFrameRequest) Validate() error { return validate(r) }

// PositionInput sets one performer's coordinates.
type PositionInput struct {
	DancerName string  `json:"dancerName" validate:"required,max=64"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
}

// EditPositionsRequest is the body of PUT /api/position-frames/{id}/positions.
type EditPositionsRequest struct {
	Positions []PositionInput `json:"positions" validate:"required,min=1,max=1000,dive"`
}

// Validate checks the request.
func (r *EditPositionsRequest) Validate() error { return validate(r) }

// AddPartRequest is the body of POST /api/parts.
type AddPartRequest struct {
	Name       string `json:"name" validate:"required,max=64"`
	Type       string `json:"type" validate:"required,controltype"`
	DancerName string `json:"dancerName" validate:"required,max=64"`
}

// Validate checks the request.
func (r *AddPartRequest) Validate() error { return validate(r) }

// EditPartRequest is the body of PUT /api/parts.
type EditPartRequest struct {
	ID         int64  `json:"id" validate:"required,gt=0"`
	Name       string `json:"name" validate:"required,max=64"`
	Type       string `json:"type" validate:"required,controltype"`
	DancerName string `json:"dancerName" validate:"required,max=64"`
}

// Validate checks the request.
func (r *EditPartRequest) Validate() error { return validate(r) }

// DeletePartRequest is the body of DELETE /api/parts.
type DeletePartRequest struct {
	ID         int64  `json:"id" validate:"required,gt=0"`
	DancerName string `json:"dancerName" validate:"required,max=64"`
}

// Validate checks the request.
func (r *DeletePartRequest) Validate() error { return validate(r) }

// PerformerRequest is the body of POST and DELETE /api/performers.
type PerformerRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// Validate checks the request.
func (r *PerformerRequest) Validate() error { return validate(r) }

func validate(req any) error {
	err := requestValidate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return services.Wrap(services.ErrValidation, "api", "", err.Error(), nil)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return services.Wrap(services.ErrValidation, "api", "", strings.Join(msgs, "; "), nil)
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s", field, map[string]string{"gt": ">", "gte": ">="}[fe.Tag()], fe.Param())
	case "max":
		return fmt.Sprintf("%s exceeds %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	case "controltype":
		return fmt.Sprintf("%s must be LED or FIBER", field)
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
