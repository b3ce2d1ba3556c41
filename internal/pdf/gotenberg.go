// Package pdf renders quote documents to PDF via Gotenberg and stores them.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"salesquote_backend/platform/config"
)

// GotenbergClient converts HTML documents to PDF through a Gotenberg
// instance's Chromium route.
type GotenbergClient struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewGotenbergClient creates a Gotenberg client.
func NewGotenbergClient(cfg config.GotenbergConfig) *GotenbergClient {
	return &GotenbergClient{
		baseURL:  cfg.GetGotenbergURL(),
		username: cfg.GetGotenbergUsername(),
		password: cfg.GetGotenbergPassword(),
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// ConvertHTML renders an HTML document to PDF.
func (g *GotenbergClient) ConvertHTML(ctx context.Context, html []byte) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(html); err != nil {
		return nil, fmt.Errorf("failed to write html: %w", err)
	}
	if err := writer.WriteField("paperWidth", "8.27"); err != nil {
		return nil, fmt.Errorf("failed to write field: %w", err)
	}
	if err := writer.WriteField("paperHeight", "11.69"); err != nil {
		return nil, fmt.Errorf("failed to write field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/forms/chromium/convert/html", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if g.username != "" {
		req.SetBasicAuth(g.username, g.password)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gotenberg request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("gotenberg returned status %d: %s", resp.StatusCode, msg)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf response: %w", err)
	}
	return pdf, nil
}
