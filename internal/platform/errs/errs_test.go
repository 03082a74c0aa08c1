package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestValidationCarriesField(t *testing.T) {
	err := Validation("phone_number", "must match +<digits>")
	if !IsValidation(err) {
		t.Error("expected validation error")
	}
	if err.Field != "phone_number" {
		t.Errorf("expected field phone_number, got %s", err.Field)
	}
	if err.Error() != "phone_number: must match +<digits>" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestKindPredicatesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create patient: %w", NotFound("patient", "abc"))
	if !IsNotFound(wrapped) {
		t.Error("expected NotFound through wrapping")
	}
	if IsConflict(wrapped) {
		t.Error("did not expect Conflict")
	}
}

func TestFromStoreDeadline(t *testing.T) {
	err := FromStore(context.DeadlineExceeded, "get patient")
	if !IsTimeout(err) {
		t.Error("expected deadline to map to Timeout")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected cause to be preserved")
	}
}

func TestFromStorePassthrough(t *testing.T) {
	if FromStore(nil, "op") != nil {
		t.Error("expected nil for nil")
	}
	orig := errors.New("boom")
	if FromStore(orig, "op") != orig {
		t.Error("expected non-deadline errors untouched")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("f", "m"), http.StatusBadRequest},
		{InvalidStage("bogus"), http.StatusBadRequest},
		{IdentifierGeneration("bad suffix", nil), http.StatusBadRequest},
		{NotFound("visit", "x"), http.StatusNotFound},
		{Conflict("identifier collision"), http.StatusConflict},
		{Timeout("store"), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
