package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// openAIProvider implements the Renderer interface using the OpenAI
// image edits API (POST /v1/images/edits) with the floor plan as the
// input image.
type openAIProvider struct {
	config ProviderConfig
	client *http.Client
}

// newOpenAI creates a new OpenAI provider.
func newOpenAI(cfg ProviderConfig) *openAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-image-1"
	}
	return &openAIProvider{
		config: cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *openAIProvider) Name() string { return "openai" }

// Render sends a multipart image edit request and decodes the b64_json
// payload of the first returned image.
func (p *openAIProvider) Render(ctx context.Context, r RenderRequest) (*RenderResult, error) {
	if len(r.Image) == 0 {
		return nil, fmt.Errorf("openai: empty source image")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("model", p.config.Model); err != nil {
		return nil, fmt.Errorf("openai form model: %w", err)
	}
	if err := w.WriteField("prompt", renderPrompt); err != nil {
		return nil, fmt.Errorf("openai form prompt: %w", err)
	}

	part, err := w.CreateFormFile("image", "floorplan."+imageExt(r.ContentType))
	if err != nil {
		return nil, fmt.Errorf("openai form image: %w", err)
	}
	if _, err := part.Write(r.Image); err != nil {
		return nil, fmt.Errorf("openai write image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("openai close form: %w", err)
	}

	url := p.config.BaseURL + "/images/edits"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}

	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result openAIImageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("openai unmarshal: %w", err)
	}

	if len(result.Data) == 0 || result.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai: no image data in response")
	}

	img, err := base64.StdEncoding.DecodeString(result.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai decode base64: %w", err)
	}

	// gpt-image-1 returns PNG output.
	return &RenderResult{Image: img, ContentType: "image/png"}, nil
}

// imageExt maps a content type to the upload filename extension.
func imageExt(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

// --- OpenAI image API types ---

type openAIImageData struct {
	B64JSON string `json:"b64_json"`
}

type openAIImageResponse struct {
	Data []openAIImageData `json:"data"`
}
