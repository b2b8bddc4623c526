// internal/viewer/adapter.go
package viewer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultCameraMultiplier scales the largest box dimension into a camera distance
const DefaultCameraMultiplier = 2.2

// Options configure an Adapter
type Options struct {
	// MetaSuffix replaces the model extension when no metadata URL is given
	MetaSuffix string
	// DeriveMetaURL overrides suffix substitution
	DeriveMetaURL func(modelURL string) string
	// CameraMultiplier scales framing distance
	CameraMultiplier float64
	// Fetcher loads metadata documents; nil disables fetching
	Fetcher      MetaFetcher
	FetchTimeout time.Duration
	// InitialModelURL is the model shown before any load event
	InitialModelURL string
	// OnMeta runs when a current metadata document arrives and reports
	// whether it replaced the scene meshes
	OnMeta func(*Meta) bool
	// AfterMeta runs once a current metadata document has been fully applied
	AfterMeta func()
	Log       logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.MetaSuffix == "" {
		o.MetaSuffix = DefaultMetaSuffix
	}
	if o.DeriveMetaURL == nil {
		suffix := o.MetaSuffix
		o.DeriveMetaURL = func(modelURL string) string { return DeriveMetaURL(modelURL, suffix) }
	}
	if o.CameraMultiplier <= 0 {
		o.CameraMultiplier = DefaultCameraMultiplier
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 5 * time.Second
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	return o
}

// Adapter applies bridge events to a scene and camera
type Adapter struct {
	scene  Scene
	camera Camera
	opts   Options

	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	mu          sync.Mutex
	highlighted []Mesh
	originals   map[Mesh]Material
	clones      []Material
	productID   string
	viewMode    ViewMode
	meta        *Meta
	generation  uint64
	detached    bool
}

// Attach subscribes a new adapter to the bridge and starts loading
// metadata for the initial model when one is configured
func Attach(bridge *Bridge, scene Scene, camera Camera, opts Options) *Adapter {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		scene:     scene,
		camera:    camera,
		opts:      opts.withDefaults(),
		ctx:       ctx,
		cancel:    cancel,
		originals: make(map[Mesh]Material),
		viewMode:  ViewMode3D,
	}
	a.unsubscribe = bridge.Subscribe(a.handle)

	if a.opts.InitialModelURL != "" {
		a.mu.Lock()
		a.loadMeta(a.opts.InitialModelURL, "")
		a.mu.Unlock()
	}
	return a
}

// Detach stops reacting to events, restores original materials and releases
// highlight clones. Pending metadata fetches are cancelled; Wait blocks on them.
func (a *Adapter) Detach() {
	a.unsubscribe()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detached {
		return
	}
	a.detached = true
	a.clearHighlight()
	a.cancel()
}

// Wait blocks until background metadata fetches have returned
func (a *Adapter) Wait() {
	a.wg.Wait()
}

// Metadata returns the last metadata document that arrived for the current model
func (a *Adapter) Metadata() *Meta {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meta
}

// Highlighted returns the names of highlighted meshes
func (a *Adapter) Highlighted() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, len(a.highlighted))
	for i, m := range a.highlighted {
		names[i] = m.Name()
	}
	return names
}

// ViewMode returns the last announced view mode
func (a *Adapter) ViewMode() ViewMode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewMode
}

// ProductID returns the product of the last load event
func (a *Adapter) ProductID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.productID
}

func (a *Adapter) handle(e Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detached {
		return
	}

	switch e.Kind {
	case EventSelectPart, EventSelectOption:
		a.highlight(e.Code)
	case EventCameraTo:
		a.cameraTo(e.Code)
	case EventLoad:
		a.productID = e.ProductID
		a.clearHighlight()
		a.loadMeta(e.ModelURL, e.MetaURL)
	case EventViewMode:
		a.viewMode = e.Mode
	}
}

// findByCode returns meshes whose name contains code, ignoring case
func (a *Adapter) findByCode(code string) []Mesh {
	k := strings.ToLower(code)
	var out []Mesh
	for _, m := range a.scene.Meshes() {
		if m == nil {
			continue
		}
		if strings.Contains(strings.ToLower(m.Name()), k) {
			out = append(out, m)
		}
	}
	return out
}

func (a *Adapter) clearHighlight() {
	for _, m := range a.highlighted {
		if original, ok := a.originals[m]; ok {
			m.SetMaterial(original)
		}
	}
	for _, c := range a.clones {
		if d, ok := c.(Disposable); ok {
			d.Dispose()
		}
	}
	a.highlighted = nil
	a.clones = nil
	clear(a.originals)
}

func (a *Adapter) highlight(code string) {
	a.clearHighlight()

	targets := a.findByCode(code)
	for _, m := range targets {
		original := m.Material()
		if original == nil {
			continue
		}
		a.originals[m] = original

		hl := original.Clone(m.Name() + "_HL")
		if e, ok := hl.(Emissive); ok {
			e.SetEmissive(HighlightColor)
		}
		m.SetMaterial(hl)
		a.clones = append(a.clones, hl)
	}
	a.highlighted = targets
}

func (a *Adapter) cameraTo(code string) {
	var (
		box   Box
		found bool
	)
	for _, m := range a.findByCode(code) {
		b, ok := m.Bounds()
		if !ok {
			continue
		}
		if !found {
			box, found = b, true
			continue
		}
		box = box.Union(b)
	}
	if !found {
		return
	}

	radius := box.MaxDimension() * a.opts.CameraMultiplier
	if radius == 0 {
		radius = a.camera.Radius()
	}
	a.camera.SetTarget(box.Center())
	a.camera.SetRadius(radius)
}

// loadMeta starts a background fetch for the current model. Callers hold a.mu.
func (a *Adapter) loadMeta(modelURL, metaURL string) {
	a.generation++
	gen := a.generation

	target := metaURL
	if target == "" && modelURL != "" {
		target = a.opts.DeriveMetaURL(modelURL)
	}
	if target == "" || a.opts.Fetcher == nil {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(a.ctx, a.opts.FetchTimeout)
		defer cancel()

		meta, err := a.opts.Fetcher.Fetch(ctx, target)
		if err != nil {
			a.opts.Log.WithError(err).WithField("url", target).Debug("Viewer metadata unavailable")
			return
		}
		a.applyMeta(gen, meta)
	}()
}

// applyMeta stores a fetched document unless a newer load superseded it
func (a *Adapter) applyMeta(gen uint64, meta *Meta) {
	a.mu.Lock()
	if a.detached || gen != a.generation {
		a.mu.Unlock()
		return
	}
	a.meta = meta
	a.mu.Unlock()

	if a.opts.OnMeta != nil && a.opts.OnMeta(meta) {
		// The scene was rebuilt, so remembered meshes are gone
		a.mu.Lock()
		if !a.detached && gen == a.generation {
			a.clearHighlight()
		}
		a.mu.Unlock()
	}

	if a.opts.AfterMeta != nil {
		a.opts.AfterMeta()
	}
}
