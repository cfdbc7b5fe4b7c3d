// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai turns floor-plan images into photorealistic 3D renderings
// through hosted image-generation providers (Gemini, OpenAI). Each
// provider implements the Renderer interface, and the Registry selects
// the active one by name.
package ai

import (
	"context"
	"fmt"
	"sync"
)

// RenderRequest carries the floor-plan image to be rendered.
type RenderRequest struct {
	Image       []byte
	ContentType string
}

// RenderResult is the generated rendering.
type RenderResult struct {
	Image       []byte
	ContentType string
}

// Renderer defines the interface that all rendering providers implement.
// Each provider handles its own HTTP communication and response parsing.
type Renderer interface {
	// Render generates a 3D visualization from a floor-plan image.
	Render(ctx context.Context, req RenderRequest) (*RenderResult, error)

	// Name returns the provider identifier (e.g., "openai", "gemini").
	Name() string
}

// ProviderConfig holds the credentials and settings for a single provider.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Registry manages available rendering providers and selects the active
// one. It supports runtime switching by changing the active provider
// name. All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Renderer
	active    string
}

// NewRegistry creates a registry and initialises providers for every
// config that has a non-empty API key. Providers without keys are
// silently skipped.
func NewRegistry(active string, configs map[string]ProviderConfig) *Registry {
	r := &Registry{
		providers: make(map[string]Renderer),
		active:    active,
	}

	for name, cfg := range configs {
		if cfg.APIKey == "" {
			continue
		}
		switch name {
		case "gemini":
			r.providers[name] = newGemini(cfg)
		case "openai":
			r.providers[name] = newOpenAI(cfg)
		}
	}

	return r
}

// Render calls the active provider's Render method.
func (r *Registry) Render(ctx context.Context, req RenderRequest) (*RenderResult, error) {
	p, err := r.Active()
	if err != nil {
		return nil, err
	}
	return p.Render(ctx, req)
}

// Active returns the currently active provider.
func (r *Registry) Active() (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[r.active]
	if !ok {
		return nil, fmt.Errorf("ai: no provider configured for %q", r.active)
	}
	return p, nil
}

// SetActive switches the active provider at runtime. Returns an error if
// the named provider has no API key configured.
func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("ai: provider %q is not available (no API key?)", name)
	}
	r.active = name
	return nil
}

// ActiveName returns the name of the currently active provider.
func (r *Registry) ActiveName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.active
}

// Available returns the names of all providers that have valid API keys.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Register adds or replaces a provider in the registry. This allows
// injecting custom providers at runtime (e.g. for testing).
func (r *Registry) Register(name string, p Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// HasProvider checks whether a named provider is configured and available.
func (r *Registry) HasProvider(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.providers[name]
	return ok
}
