// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Visibility controls who can see a project. Only "private" is exercised
// by the pipeline today; "public" is a reserved extension point.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether the visibility value is one of the known enums.
func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// Project represents a floor-plan visualization project. The id is
// caller-generated at draft time (UnixMilli string) and never changes;
// writes with an existing id are upserts. Image fields hold either an
// inline reference (raw base64 or data URI) or a hosted URL, depending
// on whether the hosting gateway was available at persist time.
type Project struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	SourceImage   string     `json:"sourceImage"`
	RenderedImage string     `json:"renderedImage,omitempty"`
	RenderedPath  string     `json:"renderedPath,omitempty"`
	OwnerID       *uuid.UUID `json:"ownerId,omitempty"`
	Visibility    Visibility `json:"visibility"`
	Timestamp     time.Time  `json:"timestamp"`
}

// RenderComplete reports whether a generation attempt has produced a
// usable output. This is the only externally observable status besides
// "pending".
func (p *Project) RenderComplete() bool {
	return p.RenderedImage != ""
}

// CurrentImage returns the image the presentation layer should show:
// the rendered image once available, the source otherwise.
func (p *Project) CurrentImage() string {
	if p.RenderedImage != "" {
		return p.RenderedImage
	}
	return p.SourceImage
}

// DefaultName derives the display name from the id suffix, matching the
// draft naming convention (Project_<last 4 digits>).
func DefaultName(id string) string {
	suffix := id
	if len(id) > 4 {
		suffix = id[len(id)-4:]
	}
	return "Project_" + suffix
}

// Normalize fills defaulted fields in place: empty name from the id
// suffix, empty visibility to private, zero timestamp to now.
func (p *Project) Normalize() {
	if strings.TrimSpace(p.Name) == "" {
		p.Name = DefaultName(p.ID)
	}
	if !p.Visibility.Valid() {
		p.Visibility = VisibilityPrivate
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}
}
