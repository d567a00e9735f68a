package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"
	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/client"
	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/resilience"
)

func TestGotenberg_RenderHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/chromium/convert/html" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		file, _, err := r.FormFile("files")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(file)
		if !strings.Contains(string(body), "<h1>Report</h1>") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	c := client.NewGotenbergClient(&http.Client{Timeout: time.Second}, srv.URL, resilience.NewCircuitBreaker("pdf", nil))

	pdf, err := c.RenderHTML(context.Background(), "<html><body><h1>Report</h1></body></html>")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(pdf) != "%PDF-1.7" {
		t.Errorf("unexpected pdf bytes %q", pdf)
	}
}

func TestGotenberg_RenderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := client.NewGotenbergClient(&http.Client{Timeout: time.Second}, srv.URL, resilience.NewCircuitBreaker("pdf", nil))

	_, err := c.RenderHTML(context.Background(), "<html></html>")
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) || ext.Service != "gotenberg" {
		t.Fatalf("expected gotenberg external error, got %v", err)
	}
}

func TestGotenberg_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Write([]byte(`{"status":"up"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := client.NewGotenbergClient(&http.Client{Timeout: time.Second}, srv.URL, resilience.NewCircuitBreaker("pdf", nil))
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("expected healthy, got %v", err)
	}
}
