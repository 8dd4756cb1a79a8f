package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc12345")
	if got := RequestID(ctx); got != "abc12345" {
		t.Fatalf("expected abc12345, got %q", got)
	}
	if got := RequestID(context.Background()); got != "" {
		t.Fatalf("expected empty ID on bare context, got %q", got)
	}
}

func TestPrefix(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc12345")
	if got := Prefix(ctx); got != "[abc12345] " {
		t.Fatalf("expected bracketed prefix, got %q", got)
	}
	// Background work without a request must not grow a dangling prefix.
	if got := Prefix(context.Background()); got != "" {
		t.Fatalf("expected empty prefix on bare context, got %q", got)
	}
}

func TestMiddleware(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	// A caller-supplied ID is honored and propagated into the context.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "caller-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "caller-id" {
		t.Fatalf("expected caller-id in context, got %q", seen)
	}
	if rec.Header().Get("X-Request-ID") != "caller-id" {
		t.Fatalf("expected caller-id echoed, got %q", rec.Header().Get("X-Request-ID"))
	}

	// Without one, an ID is generated and still reaches the handler.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen == "" {
		t.Fatal("expected a generated request ID in context")
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Fatalf("header %q and context %q disagree", rec.Header().Get("X-Request-ID"), seen)
	}
}
