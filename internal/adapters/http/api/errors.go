package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/lineup/internal/adapters/repository"
	service "github.com/okian/lineup/internal/app"
	"github.com/okian/lineup/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrRateLimited  = errors.New("rate limited")
	ErrNotFound     = errors.New("not found")
)

// OpError ties an error to the handler operation and an error kind.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Kind == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *OpError) Unwrap() error { return e.Err }

// Is matches the kind as well as anything in the wrapped chain.
func (e *OpError) Is(target error) bool {
	return e.Kind != nil && errors.Is(e.Kind, target)
}

// NewKind returns an error of the given kind with no underlying cause.
func NewKind(op string, kind error) error {
	return &OpError{Op: op, Kind: kind}
}

// WrapKind wraps err with an operation and a kind.
func WrapKind(op string, kind, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// Wrap annotates err with an operation.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Position string `json:"position,omitempty"`
	Inning   int    `json:"inning,omitempty"`
}

// classify maps an error to its HTTP status and body.
func classify(err error) (int, errorResponse) {
	body := errorResponse{Message: err.Error()}

	var roster *model.InfeasibleRosterError
	var inning *model.InfeasibleInningError
	switch {
	case errors.Is(err, ErrBadRequest):
		body.Code = "bad_request"
		return http.StatusBadRequest, body
	case errors.Is(err, model.ErrEmptyRoster):
		body.Code = "empty_roster"
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &roster):
		body.Code = "infeasible_roster"
		body.Position = string(roster.Position)
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &inning):
		body.Code = "infeasible_inning"
		body.Inning = inning.Inning
		if len(inning.Positions) > 0 {
			body.Position = string(inning.Positions[0])
		}
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, model.ErrCancelled) && errors.Is(err, context.DeadlineExceeded):
		body.Code = "timeout"
		return http.StatusGatewayTimeout, body
	case errors.Is(err, model.ErrCancelled), errors.Is(err, context.Canceled):
		body.Code = "cancelled"
		return http.StatusServiceUnavailable, body
	case errors.Is(err, ErrRateLimited):
		body.Code = "rate_limited"
		return http.StatusTooManyRequests, body
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		body.Code = "backpressure"
		return http.StatusTooManyRequests, body
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		body.Code = "not_found"
		return http.StatusNotFound, body
	case errors.Is(err, service.ErrNotStarted):
		body.Code = "unavailable"
		return http.StatusServiceUnavailable, body
	default:
		body.Code = "internal_error"
		return http.StatusInternalServerError, body
	}
}
