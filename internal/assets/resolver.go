// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package assets turns image references of any supported form into
// raw bytes ready for storage. A reference can be a remote URL, a bare
// base64 payload, or a data URI; callers never need to know which form
// they were handed.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

// maxFetchBytes caps how much of a remote asset is read, matching the
// upload size limit.
const maxFetchBytes = 50 << 20

// Asset is a resolved image: raw bytes plus sniffed content type.
type Asset struct {
	Data        []byte
	ContentType string
}

// Resolver fetches and decodes image references.
type Resolver struct {
	client *http.Client
}

// NewResolver creates a Resolver. A nil client gets a default with a
// 30-second timeout.
func NewResolver(client *http.Client) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Resolver{client: client}
}

// Resolve turns a reference into asset bytes. URLs are fetched; anything
// else is treated as base64, with an optional data URI prefix stripped
// first. The content type is sniffed from the decoded bytes, not trusted
// from the reference.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*Asset, error) {
	if ref == "" {
		return nil, fmt.Errorf("resolve asset: empty reference")
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return r.fetch(ctx, ref)
	}

	data, err := base64.StdEncoding.DecodeString(stripDataURI(ref))
	if err != nil {
		return nil, fmt.Errorf("resolve asset: decode base64: %w", err)
	}
	return &Asset{Data: data, ContentType: sniff(data)}, nil
}

func (r *Resolver) fetch(ctx context.Context, rawURL string) (*Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve asset: build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve asset: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolve asset: fetch %s: status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("resolve asset: read %s: %w", rawURL, err)
	}
	if len(data) > maxFetchBytes {
		return nil, fmt.Errorf("resolve asset: %s exceeds %d bytes", rawURL, maxFetchBytes)
	}
	return &Asset{Data: data, ContentType: sniff(data)}, nil
}

// stripDataURI removes a "data:<type>;base64," prefix when present.
func stripDataURI(ref string) string {
	if !strings.HasPrefix(ref, "data:") {
		return ref
	}
	if i := strings.Index(ref, "base64,"); i >= 0 {
		return ref[i+len("base64,"):]
	}
	return ref
}

// sniff detects the content type from the first 512 bytes.
func sniff(data []byte) string {
	n := len(data)
	if n > 512 {
		n = 512
	}
	return http.DetectContentType(data[:n])
}

// ToPNG re-encodes the asset as PNG in place. Already-PNG assets are
// left untouched. Decoders for PNG, JPEG, GIF, and WebP are registered.
func (a *Asset) ToPNG() error {
	if a.ContentType == "image/png" {
		return nil
	}

	img, _, err := image.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return fmt.Errorf("normalize to png: decode: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("normalize to png: encode: %w", err)
	}

	a.Data = buf.Bytes()
	a.ContentType = "image/png"
	return nil
}

// Extension picks a file extension for an asset: content type first,
// then the reference URL's suffix, then "png" as the catch-all.
func Extension(contentType, ref string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		clean := ref
		if i := strings.IndexAny(clean, "?#"); i >= 0 {
			clean = clean[:i]
		}
		if ext := strings.TrimPrefix(path.Ext(clean), "."); ext != "" && len(ext) <= 4 {
			return strings.ToLower(ext)
		}
	}
	return "png"
}
