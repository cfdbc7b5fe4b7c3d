// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"planora/internal/ai"
	"planora/internal/intake"
	"planora/internal/middleware"
	"planora/internal/models"
	"planora/internal/orchestrator"
	"planora/internal/projects"
	"planora/internal/session"
)

// fakeProjectStore is an in-memory projects.Store.
type fakeProjectStore struct {
	mu       sync.Mutex
	projects map[string]models.Project
}

func newFakeProjectStore() *fakeProjectStore {
	return &fakeProjectStore{projects: make(map[string]models.Project)}
}

func (f *fakeProjectStore) Upsert(p *models.Project) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.Normalize()
	f.projects[p.ID] = *p
	saved := *p
	return &saved, nil
}

func (f *fakeProjectStore) FindByID(id string) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProjectStore) ListByOwner(ownerID uuid.UUID) ([]models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Project
	for _, p := range f.projects {
		if p.OwnerID != nil && *p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjectStore) Delete(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[id]; !ok {
		return false, nil
	}
	delete(f.projects, id)
	return true, nil
}

// stubRenderer returns a fixed PNG for every request.
type stubRenderer struct{}

func (stubRenderer) Render(ctx context.Context, req ai.RenderRequest) (*ai.RenderResult, error) {
	return &ai.RenderResult{Image: []byte("\x89PNG stub"), ContentType: "image/png"}, nil
}

func (stubRenderer) Name() string { return "stub" }

type testEnv struct {
	api   *API
	store *fakeProjectStore
	orch  *orchestrator.Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	registry := ai.NewRegistry("stub", nil)
	registry.Register("stub", stubRenderer{})

	st := newFakeProjectStore()
	repo := projects.NewRepository(st, nil)
	orch := orchestrator.New(repo, registry, nil)

	api := NewAPI(
		session.NewStore(client, false),
		nil, // user store exercised in DB-backed tests
		repo,
		orch,
		&intake.Intake{Step: 5}, // no pacing in tests
		nil,
		registry,
	)
	return &testEnv{api: api, store: st, orch: orch}
}

// withSession injects an authenticated session into the request context.
func withSession(r *http.Request, userID uuid.UUID) *http.Request {
	data := &session.Data{UserID: userID, Email: "owner@planora.local", DisplayName: "Owner", TwoFADone: true}
	return r.WithContext(context.WithValue(r.Context(), middleware.SessionKey, data))
}

// withURLParam attaches a chi route parameter to the request.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// multipartUpload builds a multipart body with one PNG file field.
func multipartUpload(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func createProject(t *testing.T, env *testEnv, owner uuid.UUID) string {
	t.Helper()

	body, ct := multipartUpload(t, "file", "plan.png", "image/png", pngData(t))
	req := httptest.NewRequest("POST", "/api/projects", body)
	req.Header.Set("Content-Type", ct)
	req = withSession(req, owner)
	w := httptest.NewRecorder()

	env.api.ProjectCreate(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create project: got %d, body %s", w.Code, w.Body.String())
	}

	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	for id := range env.store.projects {
		return id
	}
	t.Fatal("no project stored")
	return ""
}
