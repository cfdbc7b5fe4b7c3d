// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package intake validates uploaded floor-plan files and encodes them
// into base64 payloads for the generation pipeline. Encoding is near-instant,
// so progress is simulated: a ticker walks the percentage up while the
// read runs, and completion is reported after a short settle delay so
// clients see a finished bar instead of a flicker.
package intake

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	// MaxUploadBytes caps uploaded floor plans at 50 MiB.
	MaxUploadBytes = 50 << 20

	progressStep     = 5
	progressCeiling  = 90
	progressInterval = 100 * time.Millisecond
	completionDelay  = 600 * time.Millisecond
)

// allowedTypes is the floor-plan MIME whitelist. "image/jpg" is not a
// real MIME type but browsers send it anyway.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// ValidationError describes a rejected upload. It maps to a 400-class
// response rather than a server error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ProgressFunc receives simulated upload progress between 0 and 100.
type ProgressFunc func(percent int)

// Upload describes an incoming file before its bytes are read.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
}

// Validate rejects uploads that exceed the size cap or fall outside the
// image whitelist.
func Validate(up Upload) error {
	if up.Size > MaxUploadBytes {
		return &ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("file exceeds the %d MiB limit", MaxUploadBytes>>20),
		}
	}
	if !allowedTypes[up.ContentType] {
		return &ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("unsupported file type %q: use JPEG or PNG", up.ContentType),
		}
	}
	return nil
}

// Intake reads and encodes uploads. The zero value is unusable; use New.
type Intake struct {
	Step            int
	Interval        time.Duration
	CompletionDelay time.Duration
}

// New creates an Intake with the default progress pacing.
func New() *Intake {
	return &Intake{
		Step:            progressStep,
		Interval:        progressInterval,
		CompletionDelay: completionDelay,
	}
}

// Accept validates an upload, reads it fully, and returns it as raw
// base64 with no data-URI prefix, so downstream consumers never have
// to strip one. Progress ticks while the read runs and reaches 100
// only after the settle delay. An Interval of zero collapses the whole
// thing to a synchronous encode with a single 100 notification.
func (in *Intake) Accept(ctx context.Context, file io.Reader, up Upload, notify ProgressFunc) (string, error) {
	if notify == nil {
		notify = func(int) {}
	}
	if err := Validate(up); err != nil {
		return "", err
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	if in.Interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(in.Interval)
			defer ticker.Stop()
			pct := 0
			for {
				select {
				case <-done:
					return
				case <-ctx.Done():
					return
				case <-ticker.C:
					if pct < progressCeiling {
						pct += in.Step
						notify(pct)
					}
				}
			}
		}()
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	close(done)
	wg.Wait()
	if err != nil {
		return "", fmt.Errorf("intake read: %w", err)
	}

	// The declared size can lie; re-check what actually arrived.
	if len(data) > MaxUploadBytes {
		return "", &ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("file exceeds the %d MiB limit", MaxUploadBytes>>20),
		}
	}

	// The declared content type can lie too.
	if sniffed := sniff(data); !allowedTypes[sniffed] {
		return "", &ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("file content is %q, not a JPEG or PNG image", sniffed),
		}
	}

	encoded := base64.StdEncoding.EncodeToString(data)

	if in.CompletionDelay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(in.CompletionDelay):
		}
	}
	notify(100)
	return encoded, nil
}

func sniff(data []byte) string {
	n := len(data)
	if n > 512 {
		n = 512
	}
	return http.DetectContentType(data[:n])
}
