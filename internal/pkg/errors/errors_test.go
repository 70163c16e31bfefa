package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New(CodePlanNotFound, "plan not found", http.StatusNotFound),
			want: "PLAN_NOT_FOUND: plan not found",
		},
		{
			name: "with wrapped error",
			err:  Wrap(fmt.Errorf("db error"), CodeInternal, "database failure", http.StatusInternalServerError),
			want: "INTERNAL_ERROR: database failure: db error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap(inner, "CODE", "msg", 500)

	if !errors.Is(appErr, inner) {
		t.Error("errors.Is should match inner error")
	}
}

func TestIsAppError(t *testing.T) {
	appErr := NotFound(CodeNotFound, "resource not found")
	wrapped := fmt.Errorf("wrapped: %w", appErr)

	got, ok := IsAppError(wrapped)
	if !ok {
		t.Fatal("IsAppError should return true for wrapped AppError")
	}
	if got.Code != CodeNotFound {
		t.Errorf("Code = %q, want %s", got.Code, CodeNotFound)
	}
}

func TestWithParams_DoesNotMutateSentinel(t *testing.T) {
	sentinel := Conflict(CodeInviteTokenUsed, "invite token already used")

	withParams := sentinel.WithParams(map[string]interface{}{"token": "abc"})

	if sentinel.Params != nil {
		t.Error("sentinel params should stay nil")
	}
	if withParams.Params["token"] != "abc" {
		t.Errorf("Params[token] = %v, want abc", withParams.Params["token"])
	}
	if !errors.Is(withParams, sentinel) {
		t.Error("errors.Is should match the originating sentinel")
	}
}

func TestIsRejected(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"conflict", Conflict(CodeRewardAlreadyClaimed, "claimed"), true},
		{"wrapped bad request", fmt.Errorf("op: %w", BadRequest(CodeInvalidDuration, "days")), true},
		{"too many requests", TooManyRequests(CodeActorInCooldown, "cooldown"), true},
		{"internal", Internal(CodeInternal, "boom"), false},
		{"plain error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRejected(tt.err); got != tt.want {
				t.Errorf("IsRejected() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
	}{
		{"NotFound", NotFound("NF", "not found"), http.StatusNotFound},
		{"BadRequest", BadRequest("BR", "bad request"), http.StatusBadRequest},
		{"Unauthorized", Unauthorized("UA", "unauthorized"), http.StatusUnauthorized},
		{"Forbidden", Forbidden("FB", "forbidden"), http.StatusForbidden},
		{"Conflict", Conflict("CF", "conflict"), http.StatusConflict},
		{"TooManyRequests", TooManyRequests("TM", "slow down"), http.StatusTooManyRequests},
		{"Internal", Internal("IE", "internal"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.wantStatus)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("get plan: %w", ErrNotFound)) {
		t.Error("wrapped ErrNotFound should match")
	}
	if IsNotFound(ErrConflict) {
		t.Error("ErrConflict should not match")
	}
}
