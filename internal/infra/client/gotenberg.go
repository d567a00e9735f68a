package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"
	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/resilience"

	"github.com/sony/gobreaker"
)

// GotenbergClient renders HTML documents to PDF through a Gotenberg instance.
type GotenbergClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
}

// NewGotenbergClient creates a new GotenbergClient.
func NewGotenbergClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker) *GotenbergClient {
	return &GotenbergClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
	}
}

// Ping checks if the Gotenberg service is available.
func (c *GotenbergClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &domain.ErrUpstreamStatus{Service: "gotenberg", StatusCode: resp.StatusCode}
	}
	return nil
}

// RenderHTML converts a standalone HTML document into a PDF.
func (c *GotenbergClient) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "GotenbergClient.RenderHTML")
	defer span.End()

	result, err := c.cb.Execute(func() (any, error) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("files", "index.html")
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(part, html); err != nil {
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/forms/chromium/convert/html", c.baseURL), body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, &domain.ErrUpstreamStatus{Service: "gotenberg", StatusCode: resp.StatusCode}
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		if resilience.IsOpen(err) {
			return nil, &domain.ErrExternalService{Service: "gotenberg", Err: &domain.ErrCircuitOpen{Service: "gotenberg"}}
		}
		return nil, &domain.ErrExternalService{Service: "gotenberg", Err: err}
	}

	return result.([]byte), nil
}
