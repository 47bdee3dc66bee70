package dataaccess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPFacade implementa Facade contra el servicio HTTP de acceso a datos.
type HTTPFacade struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPFacade construye la fachada HTTP.
func NewHTTPFacade(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPFacade {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFacade{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (f *HTTPFacade) FetchPackageMetadata(ctx context.Context, packageID string) (*PackageMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/packages/"+packageID+"/metadata", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch metadata: status=%d", resp.StatusCode)
	}

	var meta PackageMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

func (f *HTTPFacade) RetrieveAndDecrypt(ctx context.Context, meta *PackageMetadata) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/packages/"+meta.PackageID+"/content", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieve content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("retrieve content: status=%d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

func (f *HTTPFacade) ExtractText(ctx context.Context, data []byte, mimeType, filename string) (string, error) {
	// text/* no necesita extraccion remota.
	if strings.HasPrefix(mimeType, "text/") {
		return string(data), nil
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"content":  data,
		"mimeType": mimeType,
		"filename": filename,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/extract-text", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnsupportedMediaType {
		if f.logger != nil {
			f.logger.Warn("text extraction unsupported", zap.String("mime_type", mimeType))
		}
		return "", nil
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("extract text: status=%d", resp.StatusCode)
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode extraction: %w", err)
	}
	return payload.Text, nil
}
