package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/wishwall/wishwall-backend/pkg/errors"
)

type body struct {
	Email string `json:"email" validate:"required,email"`
}

func TestDecodeJSONBody(t *testing.T) {
	cases := map[string]struct {
		raw      string
		validate bool
		wantErr  bool
	}{
		"valid":          {`{"email":"a@example.com"}`, true, false},
		"unknown field":  {`{"email":"a@example.com","x":1}`, true, true},
		"empty body":     {``, true, true},
		"invalid email":  {`{"email":"nope"}`, true, true},
		"skip validator": {`{"email":"nope"}`, false, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.raw))
			var dest body
			err := DecodeJSONBody(httptest.NewRecorder(), r, &dest, tc.validate)
			if tc.wantErr {
				if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	raw := `{"email":"` + strings.Repeat("a", maxBodyBytes) + `@example.com"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
	var dest body
	err := DecodeJSONBody(httptest.NewRecorder(), r, &dest, false)
	if !pkgerrors.IsCode(err, pkgerrors.CodePayloadTooLarge) {
		t.Fatalf("expected payload too large, got %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=10&bad=x&big=1000", nil)
	if v, err := ParseQueryInt(r, "limit", 25, 1, 100); err != nil || v != 10 {
		t.Fatalf("expected 10, got %d %v", v, err)
	}
	if v, err := ParseQueryInt(r, "missing", 25, 1, 100); err != nil || v != 25 {
		t.Fatalf("expected default, got %d %v", v, err)
	}
	if _, err := ParseQueryInt(r, "bad", 25, 1, 100); err == nil {
		t.Fatal("expected numeric error")
	}
	if _, err := ParseQueryInt(r, "big", 25, 1, 100); err == nil {
		t.Fatal("expected range error")
	}
}

func TestParseURLUUID(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("wishId", id.String())
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseURLUUID(r, "wishId")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s %v", id, got, err)
	}
	if _, err := ParseURLUUID(r, "other"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing param, got %v", err)
	}
}
