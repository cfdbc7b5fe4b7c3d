// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ---------- Helpers ----------

// newTestServer creates an httptest.Server that responds with the given status
// code and body bytes. The caller must call Close on the returned server.
func newTestServer(t *testing.T, statusCode int, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write(body)
	}))
}

// geminiSuccessBody builds a JSON body matching the Gemini generateContent
// response format with one inline-data image part.
func geminiSuccessBody(img []byte, mimeType string) []byte {
	resp := geminiResponse{
		Candidates: []geminiCandidate{
			{Content: geminiContent{Parts: []geminiPart{
				{InlineData: &geminiInlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(img),
				}},
			}}},
		},
	}
	b, _ := json.Marshal(resp)
	return b
}

// openAISuccessBody builds a JSON body matching the OpenAI images
// response format with one b64_json entry.
func openAISuccessBody(img []byte) []byte {
	resp := openAIImageResponse{
		Data: []openAIImageData{
			{B64JSON: base64.StdEncoding.EncodeToString(img)},
		},
	}
	b, _ := json.Marshal(resp)
	return b
}

// =====================================================================
// Gemini Provider Tests
// =====================================================================

func TestGeminiRender_Success(t *testing.T) {
	want := []byte("rendered-image-bytes")
	srv := newTestServer(t, http.StatusOK, geminiSuccessBody(want, "image/png"))
	defer srv.Close()

	p := newGemini(ProviderConfig{
		APIKey:  "test-key",
		Model:   "gemini-2.5-flash-image",
		BaseURL: srv.URL,
	})

	got, err := p.Render(context.Background(), testReq())
	if err != nil {
		t.Fatalf("Render: unexpected error: %v", err)
	}
	if string(got.Image) != string(want) {
		t.Errorf("Render image: got %q, want %q", got.Image, want)
	}
	if got.ContentType != "image/png" {
		t.Errorf("content type: got %q, want image/png", got.ContentType)
	}
}

func TestGeminiRender_VerifiesRequest(t *testing.T) {
	var capturedHeaders http.Header
	var capturedBody []byte
	var capturedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedHeaders = r.Header.Clone()
		capturedBody, _ = io.ReadAll(r.Body)
		capturedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(geminiSuccessBody([]byte("ok"), "image/png"))
	}))
	defer srv.Close()

	p := newGemini(ProviderConfig{
		APIKey:  "gemini-api-key-123",
		Model:   "gemini-2.5-flash-image",
		BaseURL: srv.URL,
	})

	_, err := p.Render(context.Background(), RenderRequest{
		Image:       []byte("floor-plan"),
		ContentType: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("Render: unexpected error: %v", err)
	}

	// Verify x-goog-api-key header.
	apiKey := capturedHeaders.Get("x-goog-api-key")
	if apiKey != "gemini-api-key-123" {
		t.Errorf("x-goog-api-key: got %q, want %q", apiKey, "gemini-api-key-123")
	}

	// Verify Content-Type.
	ct := capturedHeaders.Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}

	// Verify URL path includes model name.
	expectedPath := "/v1beta/models/gemini-2.5-flash-image:generateContent"
	if capturedPath != expectedPath {
		t.Errorf("request path: got %q, want %q", capturedPath, expectedPath)
	}

	// Verify request body: one content with the image first, prompt second.
	var reqBody geminiRequest
	if err := json.Unmarshal(capturedBody, &reqBody); err != nil {
		t.Fatalf("unmarshal request body: %v", err)
	}
	if len(reqBody.Contents) != 1 {
		t.Fatalf("contents count: got %d, want 1", len(reqBody.Contents))
	}
	parts := reqBody.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("parts count: got %d, want 2", len(parts))
	}
	if parts[0].InlineData == nil || parts[0].InlineData.MimeType != "image/jpeg" {
		t.Errorf("first part should carry the source image, got %+v", parts[0])
	}
	decoded, _ := base64.StdEncoding.DecodeString(parts[0].InlineData.Data)
	if string(decoded) != "floor-plan" {
		t.Errorf("inline image: got %q, want %q", decoded, "floor-plan")
	}
	if parts[1].Text == "" {
		t.Error("second part should carry the render prompt")
	}

	// Verify IMAGE response modality.
	if len(reqBody.GenerationConfig.ResponseModalities) != 1 ||
		reqBody.GenerationConfig.ResponseModalities[0] != "IMAGE" {
		t.Errorf("responseModalities: got %v, want [IMAGE]", reqBody.GenerationConfig.ResponseModalities)
	}
}

func TestGeminiRender_HTTPError(t *testing.T) {
	srv := newTestServer(t, http.StatusForbidden, []byte(`{"error":{"message":"forbidden"}}`))
	defer srv.Close()

	p := newGemini(ProviderConfig{APIKey: "test-key", BaseURL: srv.URL})

	_, err := p.Render(context.Background(), testReq())
	if err == nil {
		t.Fatal("expected error for HTTP 403, got nil")
	}
	if !strings.Contains(err.Error(), "status 403") {
		t.Errorf("error should mention status 403: got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "forbidden") {
		t.Errorf("error should contain API error body: got %q", err.Error())
	}
}

func TestGeminiRender_MalformedJSON(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, []byte(`[broken json`))
	defer srv.Close()

	p := newGemini(ProviderConfig{APIKey: "test-key", BaseURL: srv.URL})

	_, err := p.Render(context.Background(), testReq())
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
	if !strings.Contains(err.Error(), "unmarshal") {
		t.Errorf("error should mention unmarshal: got %q", err.Error())
	}
}

func TestGeminiRender_NoImageData(t *testing.T) {
	// Text-only candidate: no inline data anywhere.
	resp := geminiResponse{
		Candidates: []geminiCandidate{
			{Content: geminiContent{Parts: []geminiPart{{Text: "cannot render"}}}},
		},
	}
	body, _ := json.Marshal(resp)
	srv := newTestServer(t, http.StatusOK, body)
	defer srv.Close()

	p := newGemini(ProviderConfig{APIKey: "test-key", BaseURL: srv.URL})

	_, err := p.Render(context.Background(), testReq())
	if err == nil {
		t.Fatal("expected error for missing image data, got nil")
	}
	if !strings.Contains(err.Error(), "no image data") {
		t.Errorf("error should mention no image data: got %q", err.Error())
	}
}

func TestGeminiRender_EmptySourceImage(t *testing.T) {
	p := newGemini(ProviderConfig{APIKey: "test-key"})
	if _, err := p.Render(context.Background(), RenderRequest{}); err == nil {
		t.Fatal("expected error for empty source image, got nil")
	}
}

func TestGeminiRender_CancelledContext(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, geminiSuccessBody([]byte("ok"), "image/png"))
	defer srv.Close()

	p := newGemini(ProviderConfig{APIKey: "test-key", BaseURL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Render(ctx, testReq()); err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}

func TestGeminiRender_ConnectionRefused(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, geminiSuccessBody([]byte("ok"), "image/png"))
	srv.Close()

	p := newGemini(ProviderConfig{APIKey: "test-key", BaseURL: srv.URL})

	_, err := p.Render(context.Background(), testReq())
	if err == nil {
		t.Fatal("expected error for connection refused, got nil")
	}
	if !strings.Contains(err.Error(), "gemini http") {
		t.Errorf("error should be wrapped with 'gemini http': got %q", err.Error())
	}
}

func TestGeminiDefaults(t *testing.T) {
	p := newGemini(ProviderConfig{APIKey: "test-key"})
	if p.config.BaseURL != "https://generativelanguage.googleapis.com" {
		t.Errorf("default BaseURL: got %q", p.config.BaseURL)
	}
	if p.config.Model != "gemini-2.5-flash-image" {
		t.Errorf("default Model: got %q", p.config.Model)
	}
	if p.Name() != "gemini" {
		t.Errorf("Name: got %q, want %q", p.Name(), "gemini")
	}
}

// =====================================================================
// OpenAI Provider Tests
// =====================================================================

func TestOpenAIRender_Success(t *testing.T) {
	want := []byte("rendered-image-bytes")
	srv := newTestServer(t, http.StatusOK, openAISuccessBody(want))
	defer srv.Close()

	p := newOpenAI(ProviderConfig{
		APIKey:  "test-key",
		Model:   "gpt-image-1",
		BaseURL: srv.URL,
	})

	got, err := p.Render(context.Background(), testReq())
	if err != nil {
		t.Fatalf("Render: unexpected error: %v", err)
	}
	if string(got.Image) != string(want) {
		t.Errorf("Render image: got %q, want %q", got.Image, want)
	}
	if got.ContentType != "image/png" {
		t.Errorf("content type: got %q, want image/png", got.ContentType)
	}
}

func TestOpenAIRender_VerifiesRequest(t *testing.T) {
	var capturedAuth, capturedContentType, capturedPath string
	var capturedModel, capturedPrompt string
	var capturedImage []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedAuth = r.Header.Get("Authorization")
		capturedContentType = r.Header.Get("Content-Type")
		capturedPath = r.URL.Path

		if err := r.ParseMultipartForm(16 << 20); err == nil {
			capturedModel = r.FormValue("model")
			capturedPrompt = r.FormValue("prompt")
			if f, _, err := r.FormFile("image"); err == nil {
				capturedImage, _ = io.ReadAll(f)
				f.Close()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(openAISuccessBody([]byte("ok")))
	}))
	defer srv.Close()

	p := newOpenAI(ProviderConfig{
		APIKey:  "sk-test-12345",
		Model:   "gpt-image-1",
		BaseURL: srv.URL,
	})

	_, err := p.Render(context.Background(), RenderRequest{
		Image:       []byte("floor-plan"),
		ContentType: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("Render: unexpected error: %v", err)
	}

	if capturedAuth != "Bearer sk-test-12345" {
		t.Errorf("Authorization header: got %q, want %q", capturedAuth, "Bearer sk-test-12345")
	}
	if mediaType, _, _ := mime.ParseMediaType(capturedContentType); mediaType != "multipart/form-data" {
		t.Errorf("Content-Type: got %q, want multipart/form-data", capturedContentType)
	}
	if capturedPath != "/images/edits" {
		t.Errorf("request path: got %q, want %q", capturedPath, "/images/edits")
	}
	if capturedModel != "gpt-image-1" {
		t.Errorf("form model: got %q, want %q", capturedModel, "gpt-image-1")
	}
	if capturedPrompt == "" {
		t.Error("form prompt should carry the render prompt")
	}
	if string(capturedImage) != "floor-plan" {
		t.Errorf("form image: got %q, want %q", capturedImage, "floor-plan")
	}
}

func TestOpenAIRender_HTTPError(t *testing.T) {
	errBody := `{"error":{"message":"invalid API key","type":"invalid_request_error"}}`
	srv := newTestServer(t, http.StatusUnauthorized, []byte(errBody))
	defer srv.Close()

	p := newOpenAI(ProviderConfig{APIKey: "bad-key", BaseURL: srv.URL})

	_, err := p.Render(context.Background(), testReq())
	if err == nil {
		t.Fatal("expected error for HTTP 401, got nil")
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Errorf("error should mention status 401: got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "invalid API key") {
		t.Errorf("error should contain API error body: got %q", err.Error())
	}
}

func TestOpenAIRender_MalformedJSON(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, []byte(`{not json`))
	defer srv.Close()

	p := newOpenAI(ProviderConfig{APIKey: "test-key", BaseURL: srv.URL})

	_, err := p.Render(context.Background(), testReq())
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
	if !strings.Contains(err.Error(), "unmarshal") {
		t.Errorf("error should mention unmarshal: got %q", err.Error())
	}
}

func TestOpenAIRender_EmptyData(t *testing.T) {
	body, _ := json.Marshal(openAIImageResponse{Data: []openAIImageData{}})
	srv := newTestServer(t, http.StatusOK, body)
	defer srv.Close()

	p := newOpenAI(ProviderConfig{APIKey: "test-key", BaseURL: srv.URL})

	_, err := p.Render(context.Background(), testReq())
	if err == nil {
		t.Fatal("expected error for empty data, got nil")
	}
	if !strings.Contains(err.Error(), "no image data") {
		t.Errorf("error should mention no image data: got %q", err.Error())
	}
}

func TestOpenAIRender_EmptySourceImage(t *testing.T) {
	p := newOpenAI(ProviderConfig{APIKey: "test-key"})
	if _, err := p.Render(context.Background(), RenderRequest{}); err == nil {
		t.Fatal("expected error for empty source image, got nil")
	}
}

func TestOpenAIRender_CancelledContext(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, openAISuccessBody([]byte("ok")))
	defer srv.Close()

	p := newOpenAI(ProviderConfig{APIKey: "test-key", BaseURL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Render(ctx, testReq()); err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}

func TestOpenAIRender_ConnectionRefused(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, openAISuccessBody([]byte("ok")))
	srv.Close()

	p := newOpenAI(ProviderConfig{APIKey: "test-key", BaseURL: srv.URL})

	_, err := p.Render(context.Background(), testReq())
	if err == nil {
		t.Fatal("expected error for connection refused, got nil")
	}
	if !strings.Contains(err.Error(), "openai http") {
		t.Errorf("error should be wrapped with 'openai http': got %q", err.Error())
	}
}

func TestOpenAIDefaults(t *testing.T) {
	p := newOpenAI(ProviderConfig{APIKey: "test-key"})
	if p.config.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("default BaseURL: got %q", p.config.BaseURL)
	}
	if p.config.Model != "gpt-image-1" {
		t.Errorf("default Model: got %q", p.config.Model)
	}
	if p.Name() != "openai" {
		t.Errorf("Name: got %q, want %q", p.Name(), "openai")
	}
}

// =====================================================================
// Registry integration with real HTTP (end-to-end via httptest)
// =====================================================================

func TestRegistryRender_WithRealHTTPProviders(t *testing.T) {
	geminiSrv := newTestServer(t, http.StatusOK, geminiSuccessBody([]byte("gemini render"), "image/png"))
	defer geminiSrv.Close()

	openaiSrv := newTestServer(t, http.StatusOK, openAISuccessBody([]byte("openai render")))
	defer openaiSrv.Close()

	configs := map[string]ProviderConfig{
		"gemini": {APIKey: "ok1", Model: "gemini-2.5-flash-image", BaseURL: geminiSrv.URL},
		"openai": {APIKey: "ok2", Model: "gpt-image-1", BaseURL: openaiSrv.URL},
	}

	reg := NewRegistry("gemini", configs)

	tests := []struct {
		providerName string
		wantImage    string
	}{
		{"gemini", "gemini render"},
		{"openai", "openai render"},
	}

	for _, tt := range tests {
		t.Run(tt.providerName, func(t *testing.T) {
			if err := reg.SetActive(tt.providerName); err != nil {
				t.Fatalf("SetActive(%q): %v", tt.providerName, err)
			}

			got, err := reg.Render(context.Background(), testReq())
			if err != nil {
				t.Fatalf("Render with %s: %v", tt.providerName, err)
			}
			if string(got.Image) != tt.wantImage {
				t.Errorf("Render with %s: got %q, want %q", tt.providerName, got.Image, tt.wantImage)
			}
		})
	}
}
