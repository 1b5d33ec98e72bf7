package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"

	"dealwire/internal/pkg/httpclient"
	"dealwire/internal/service/publishing/port"
)

func copyPayload() port.CopyPayload {
	return port.CopyPayload{
		Title: "Great Gadget", ASIN: "B00COPY", Price: 19.99, OldPrice: 39.99,
		Discount: 50, Link: "https://www.amazon.com/dp/B00COPY?tag=track-20",
	}
}

func TestAICopyUsesUpstreamText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req["asin"] != "B00COPY" {
			t.Fatalf("request asin = %v", req["asin"])
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "🔥 Great Gadget at half price"})
	}))
	defer srv.Close()

	adapter := NewAICopyAdapter(httpclient.NewClient(otel.Tracer("test")), srv.URL)
	result := adapter.Generate(context.Background(), copyPayload(), "casual")
	if result.Source != "ai" {
		t.Fatalf("source = %s, want ai", result.Source)
	}
	if result.Text != "🔥 Great Gadget at half price" {
		t.Fatalf("text = %q", result.Text)
	}
}

func TestAICopyFallsBackOnUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	adapter := NewAICopyAdapter(httpclient.NewClient(otel.Tracer("test")), srv.URL)
	result := adapter.Generate(context.Background(), copyPayload(), "casual")
	if result.Source != "template" {
		t.Fatalf("source = %s, want template fallback", result.Source)
	}
	if result.Text == "" {
		t.Fatal("fallback produced empty copy")
	}
}

func TestAICopyFallsBackWithoutEndpoint(t *testing.T) {
	adapter := NewAICopyAdapter(httpclient.NewClient(otel.Tracer("test")), "")
	result := adapter.Generate(context.Background(), copyPayload(), "minimal")
	if result.Source != "template" {
		t.Fatalf("source = %s, want template", result.Source)
	}
}
