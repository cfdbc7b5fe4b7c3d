// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package orchestrator drives the generation lifecycle of projects.
// It is a small state machine per project: loading a draft triggers
// exactly one automatic render, re-loading a finished project never
// re-renders, and a failed render leaves the stored record untouched so
// the user can retry manually. Projects render independently; work on
// one never affects another's in-flight result.
package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"planora/internal/ai"
	"planora/internal/assets"
	"planora/internal/models"
)

// State is the lifecycle phase of a project.
type State string

const (
	StateNoProject State = "no_project"
	StateLoading   State = "loading"
	StatePending   State = "pending"
	StateRendering State = "rendering"
	StateComplete  State = "complete"
)

// ErrCreateInFlight is returned when a draft creation starts while a
// previous one has not finished. It guards against double-submits.
var ErrCreateInFlight = errors.New("orchestrator: draft creation already in flight")

// Repository is the persistence capability the orchestrator needs.
// *projects.Repository satisfies it.
type Repository interface {
	Save(ctx context.Context, p *models.Project) (*models.Project, error)
	Get(ctx context.Context, id string) (*models.Project, error)
}

// Renderer produces a 3D rendering from a floor-plan image.
// *ai.Registry satisfies it.
type Renderer interface {
	Render(ctx context.Context, req ai.RenderRequest) (*ai.RenderResult, error)
}

// entry tracks the render lifecycle of one project. launched latches
// the single automatic render; epoch stamps each attempt so a
// superseded one cannot persist its result.
type entry struct {
	state    State
	launched bool
	epoch    uint64
}

// Orchestrator coordinates rendering and persistence, keyed by project
// id so concurrent users never interfere with each other's renders.
// All methods are safe for concurrent use.
type Orchestrator struct {
	repo     Repository
	renderer Renderer
	res      *assets.Resolver

	mu       sync.Mutex
	entries  map[string]*entry
	creating bool

	wg sync.WaitGroup
}

// New creates an Orchestrator with no tracked projects. A nil resolver
// gets a default.
func New(repo Repository, renderer Renderer, res *assets.Resolver) *Orchestrator {
	if res == nil {
		res = assets.NewResolver(nil)
	}
	return &Orchestrator{repo: repo, renderer: renderer, res: res, entries: make(map[string]*entry)}
}

// State returns a project's lifecycle phase. Projects the orchestrator
// has never seen report NO_PROJECT.
func (o *Orchestrator) State(id string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.entries[id]; ok {
		return e.state
	}
	return StateNoProject
}

// CreateDraft persists a fresh draft from an uploaded source image.
// The id is the creation time in Unix milliseconds; it never changes
// afterwards. Only one creation may be in flight at a time, across all
// callers.
func (o *Orchestrator) CreateDraft(ctx context.Context, source, name string, owner *uuid.UUID) (*models.Project, error) {
	o.mu.Lock()
	if o.creating {
		o.mu.Unlock()
		return nil, ErrCreateInFlight
	}
	o.creating = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.creating = false
		o.mu.Unlock()
	}()

	now := time.Now()
	p := &models.Project{
		ID:          strconv.FormatInt(now.UnixMilli(), 10),
		Name:        name,
		SourceImage: source,
		OwnerID:     owner,
		Visibility:  models.VisibilityPrivate,
		Timestamp:   now,
	}
	return o.repo.Save(ctx, p)
}

// Load fetches a project and, when it has no rendering yet, triggers
// exactly one automatic render in the background. Re-loading the same
// project never triggers a second render: a finished project goes
// straight to COMPLETE, an unfinished one keeps whatever state the
// earlier attempt left behind. Returns nil when the project does not
// exist.
func (o *Orchestrator) Load(ctx context.Context, id string, owner *uuid.UUID) (*models.Project, error) {
	o.mu.Lock()
	e, ok := o.entries[id]
	if !ok {
		e = &entry{state: StateLoading}
		o.entries[id] = e
	}
	epoch := e.epoch
	o.mu.Unlock()

	p, err := o.repo.Get(ctx, id)
	if err != nil {
		o.clear(id, epoch)
		return nil, err
	}
	if p == nil {
		o.clear(id, epoch)
		return nil, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok = o.entries[id]
	if !ok || e.epoch != epoch {
		// Forgotten or superseded while we were reading.
		return p, nil
	}
	switch {
	case p.RenderComplete():
		e.state = StateComplete
	case !e.launched:
		e.launched = true
		e.state = StateRendering
		o.wg.Add(1)
		go o.generate(context.WithoutCancel(ctx), epoch, *p, owner)
	}
	return p, nil
}

// Regenerate re-renders a project on explicit user request. Unlike the
// load-triggered path it is allowed from any state, including COMPLETE.
// An automatic render still in flight for the same project is
// superseded: only the newer attempt may persist. Returns nil when the
// project does not exist.
func (o *Orchestrator) Regenerate(ctx context.Context, id string, owner *uuid.UUID) (*models.Project, error) {
	p, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	o.mu.Lock()
	e, ok := o.entries[id]
	if !ok {
		e = &entry{}
		o.entries[id] = e
	}
	e.epoch++
	e.launched = true
	e.state = StateRendering
	epoch := e.epoch
	o.mu.Unlock()

	o.wg.Add(1)
	go o.generate(context.WithoutCancel(ctx), epoch, *p, owner)
	return p, nil
}

// Forget discards a project's lifecycle state, typically after the
// project is deleted. Any in-flight render keeps running but its result
// is dropped on arrival.
func (o *Orchestrator) Forget(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, id)
}

// Wait blocks until in-flight generations finish. Called during
// shutdown so results are not lost mid-write.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// generate runs one render attempt to completion. Failures log and
// settle into PENDING without touching the stored record; a result
// arriving after the project was forgotten or regenerated is dropped.
func (o *Orchestrator) generate(ctx context.Context, epoch uint64, p models.Project, owner *uuid.UUID) {
	defer o.wg.Done()

	result := o.render(ctx, &p)
	if result == nil {
		o.setState(p.ID, epoch, StatePending)
		return
	}

	p.RenderedImage = base64.StdEncoding.EncodeToString(result.Image)
	p.Timestamp = time.Now()
	if p.OwnerID == nil {
		p.OwnerID = owner
	}

	if o.stale(p.ID, epoch) {
		return
	}

	if _, err := o.repo.Save(ctx, &p); err != nil {
		slog.Warn("render result not persisted", "project", p.ID, "error", err)
		o.setState(p.ID, epoch, StatePending)
		return
	}
	o.setState(p.ID, epoch, StateComplete)
}

func (o *Orchestrator) render(ctx context.Context, p *models.Project) *ai.RenderResult {
	asset, err := o.res.Resolve(ctx, p.SourceImage)
	if err != nil {
		slog.Warn("source image unavailable for render", "project", p.ID, "error", err)
		return nil
	}

	result, err := o.renderer.Render(ctx, ai.RenderRequest{Image: asset.Data, ContentType: asset.ContentType})
	if err != nil {
		slog.Warn("render failed", "project", p.ID, "error", err)
		return nil
	}
	if result == nil || len(result.Image) == 0 {
		slog.Warn("render returned no image", "project", p.ID)
		return nil
	}
	return result
}

// clear drops an entry that never launched a render, so a missing
// project does not leave state behind. An entry with work in flight is
// kept.
func (o *Orchestrator) clear(id string, epoch uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.entries[id]; ok && e.epoch == epoch && !e.launched {
		delete(o.entries, id)
	}
}

func (o *Orchestrator) stale(id string, epoch uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[id]
	return !ok || e.epoch != epoch
}

// setState applies a state transition unless the attempt was forgotten
// or superseded.
func (o *Orchestrator) setState(id string, epoch uint64, s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.entries[id]; ok && e.epoch == epoch {
		e.state = s
	}
}
