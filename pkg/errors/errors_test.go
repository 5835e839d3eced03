package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestStoreKeepsBothErrors(t *testing.T) {
	driver := errors.New("connection reset")
	err := Store("count todos", driver)
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, driver) {
		t.Fatalf("wrapped chain lost: %v", err)
	}
}

func TestInvalid(t *testing.T) {
	err := Invalid("title cannot be empty")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatal("expected ErrInvalidInput in chain")
	}
	var app *AppError
	if !errors.As(err, &app) || app.Code != http.StatusBadRequest {
		t.Fatalf("unexpected AppError %+v", app)
	}
}

func TestNewBody(t *testing.T) {
	cases := map[int]string{
		http.StatusNotFound:            "NOT_FOUND",
		http.StatusUnauthorized:        "UNAUTHORIZED",
		http.StatusInternalServerError: "INTERNAL_SERVER_ERROR",
		http.StatusTooManyRequests:     "TOO_MANY_REQUESTS",
	}
	for code, want := range cases {
		if got := NewBody(code, "m"); got.Status != want || got.Code != code {
			t.Errorf("%d: got %+v", code, got)
		}
	}
}
