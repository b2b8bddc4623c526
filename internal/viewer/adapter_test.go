package viewer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/pkg/logger"
	"go.uber.org/goleak"
)

type pcScene struct {
	graph  *Graph
	camera *OrbitCamera
	cpuMat *StdMaterial
	gpuMat *StdMaterial
	caseM  *StdMaterial
}

func newPCScene() pcScene {
	s := pcScene{
		graph:  NewGraph(),
		camera: NewOrbitCamera(10),
		cpuMat: NewStdMaterial("metal"),
		gpuMat: NewStdMaterial("pcb"),
		caseM:  NewStdMaterial("glass"),
	}
	s.graph.AddMesh("CPU-1_Cooler", s.cpuMat, &Box{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}})
	s.graph.AddMesh("gpu-1_Board", s.gpuMat, &Box{Min: Vec3{2, 0, 0}, Max: Vec3{6, 1, 2}})
	s.graph.AddMesh("gpu-1_Fan", s.gpuMat, &Box{Min: Vec3{2, 1, 0}, Max: Vec3{4, 2, 1}})
	s.graph.AddMesh("Case", s.caseM, nil)
	return s
}

func mustMesh(t *testing.T, g *Graph, name string) *MeshNode {
	t.Helper()
	m, ok := g.Mesh(name)
	require.True(t, ok, name)
	return m
}

func TestHighlightRestoresPreviousMaterials(t *testing.T) {
	s := newPCScene()
	b := NewBridge()
	a := Attach(b, s.graph, s.camera, Options{Log: logger.Discard()})
	defer a.Detach()

	cpu := mustMesh(t, s.graph, "CPU-1_Cooler")

	b.SelectPart("cpu-1")
	hl, ok := cpu.Material().(*StdMaterial)
	require.True(t, ok)
	assert.Equal(t, "CPU-1_Cooler_HL", hl.Name())
	assert.Equal(t, HighlightColor, hl.EmissiveColor())
	assert.Equal(t, Color{}, s.cpuMat.EmissiveColor(), "original is untouched")

	b.SelectPart("gpu-1")
	assert.Same(t, s.cpuMat, cpu.Material(), "cpu-1 restored before gpu-1 highlight")
	assert.True(t, hl.Disposed())

	board := mustMesh(t, s.graph, "gpu-1_Board")
	fan := mustMesh(t, s.graph, "gpu-1_Fan")
	assert.Equal(t, "gpu-1_Board_HL", board.Material().Name())
	assert.Equal(t, "gpu-1_Fan_HL", fan.Material().Name())
	assert.Equal(t, []string{"gpu-1_Board", "gpu-1_Fan"}, a.Highlighted())
}

func TestHighlightWithoutMatchesClearsOnly(t *testing.T) {
	s := newPCScene()
	b := NewBridge()
	a := Attach(b, s.graph, s.camera, Options{Log: logger.Discard()})
	defer a.Detach()

	b.SelectOption("cpu")
	b.SelectOption("warranty-1")

	assert.Empty(t, a.Highlighted())
	assert.Same(t, s.cpuMat, mustMesh(t, s.graph, "CPU-1_Cooler").Material())
}

func TestCameraFramesUnionOfMatches(t *testing.T) {
	s := newPCScene()
	b := NewBridge()
	a := Attach(b, s.graph, s.camera, Options{Log: logger.Discard()})
	defer a.Detach()

	b.CameraTo("GPU-1")

	// union is (2,0,0)-(6,2,2): largest dimension 4
	assert.Equal(t, Vec3{4, 1, 1}, s.camera.Target())
	assert.InDelta(t, 8.8, s.camera.Radius(), 1e-9)
}

func TestCameraIgnoresMisses(t *testing.T) {
	s := newPCScene()
	b := NewBridge()
	a := Attach(b, s.graph, s.camera, Options{Log: logger.Discard(), CameraMultiplier: 3})
	defer a.Detach()

	b.CameraTo("nothing")
	b.CameraTo("case") // matches a mesh without bounds
	assert.Equal(t, Vec3{}, s.camera.Target())
	assert.Equal(t, 10.0, s.camera.Radius())
}

func TestCameraKeepsRadiusForFlatBox(t *testing.T) {
	g := NewGraph()
	g.AddMesh("marker", NewStdMaterial("m"), &Box{Min: Vec3{1, 1, 1}, Max: Vec3{1, 1, 1}})
	cam := NewOrbitCamera(7)
	b := NewBridge()
	a := Attach(b, g, cam, Options{Log: logger.Discard()})
	defer a.Detach()

	b.CameraTo("marker")
	assert.Equal(t, Vec3{1, 1, 1}, cam.Target())
	assert.Equal(t, 7.0, cam.Radius())
}

func TestViewModeAndLoadAreRecorded(t *testing.T) {
	s := newPCScene()
	b := NewBridge()
	a := Attach(b, s.graph, s.camera, Options{Log: logger.Discard()})
	defer a.Detach()

	b.SelectPart("cpu-1")
	b.SetViewMode(ViewModeImage)
	assert.Equal(t, ViewModeImage, a.ViewMode())

	b.Load("2", "", "")
	assert.Equal(t, "2", a.ProductID())
	assert.Empty(t, a.Highlighted(), "load clears the highlight")
	assert.Same(t, s.cpuMat, mustMesh(t, s.graph, "CPU-1_Cooler").Material())
}

func TestDetachRestoresAndStopsReacting(t *testing.T) {
	s := newPCScene()
	b := NewBridge()
	a := Attach(b, s.graph, s.camera, Options{Log: logger.Discard()})

	b.SelectPart("gpu-1")
	board := mustMesh(t, s.graph, "gpu-1_Board")
	clone := board.Material().(*StdMaterial)

	a.Detach()
	a.Detach()

	assert.Same(t, s.gpuMat, board.Material())
	assert.True(t, clone.Disposed())
	assert.Zero(t, b.Len())

	b.SelectPart("cpu-1")
	b.CameraTo("cpu-1")
	assert.Same(t, s.cpuMat, mustMesh(t, s.graph, "CPU-1_Cooler").Material())
	assert.Equal(t, 10.0, s.camera.Radius())
}

// gatedFetcher blocks each fetch until its URL is released
type gatedFetcher struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	urls  []string
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{gates: make(map[string]chan struct{})}
}

func (f *gatedFetcher) gate(url string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.gates[url]
	if !ok {
		g = make(chan struct{})
		f.gates[url] = g
	}
	return g
}

func (f *gatedFetcher) Fetch(ctx context.Context, url string) (*Meta, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()

	select {
	case <-f.gate(url):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if url == "/broken_meta.json" {
		return nil, errors.New("boom")
	}
	return &Meta{URL: url}, nil
}

func (f *gatedFetcher) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

func TestStaleMetadataIsDiscarded(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newPCScene()
	b := NewBridge()
	fetcher := newGatedFetcher()
	a := Attach(b, s.graph, s.camera, Options{Fetcher: fetcher, Log: logger.Discard()})
	defer a.Wait()
	defer a.Detach()

	b.Load("1", "/models/gaming-pc.glb", "")
	b.Load("2", "/models/phone.GLB?v=3", "")

	// the newer document lands first, then the stale one
	close(fetcher.gate("/models/phone_meta.json?v=3"))
	require.Eventually(t, func() bool { return a.Metadata() != nil }, time.Second, 5*time.Millisecond)
	close(fetcher.gate("/models/gaming-pc_meta.json"))
	a.Wait()

	assert.Equal(t, "/models/phone_meta.json?v=3", a.Metadata().URL)
	assert.ElementsMatch(t, []string{"/models/gaming-pc_meta.json", "/models/phone_meta.json?v=3"}, fetcher.requested())
}

func TestMetadataFailureIsIgnored(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newPCScene()
	b := NewBridge()
	fetcher := newGatedFetcher()
	close(fetcher.gate("/broken_meta.json"))
	a := Attach(b, s.graph, s.camera, Options{Fetcher: fetcher, Log: logger.Discard()})

	b.Load("1", "", "/broken_meta.json")
	a.Wait()
	assert.Nil(t, a.Metadata())
	a.Detach()
}

func TestInitialModelMetadataIsFetched(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newPCScene()
	fetcher := newGatedFetcher()
	close(fetcher.gate("/models/gaming-pc_meta.json"))

	a := Attach(NewBridge(), s.graph, s.camera, Options{
		Fetcher:         fetcher,
		InitialModelURL: "/models/gaming-pc.glb",
		Log:             logger.Discard(),
	})
	a.Wait()
	require.NotNil(t, a.Metadata())
	assert.Equal(t, "/models/gaming-pc_meta.json", a.Metadata().URL)
	a.Detach()
}

func TestDetachCancelsPendingFetch(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newPCScene()
	b := NewBridge()
	fetcher := newGatedFetcher()
	a := Attach(b, s.graph, s.camera, Options{Fetcher: fetcher, Log: logger.Discard()})

	b.Load("1", "/models/gaming-pc.glb", "")
	a.Detach()
	a.Wait()
	assert.Nil(t, a.Metadata())
}

func TestMetaRebuildClearsHighlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newPCScene()
	b := NewBridge()
	fetcher := newGatedFetcher()
	applied := make(chan struct{}, 1)
	a := Attach(b, s.graph, s.camera, Options{
		Fetcher:   fetcher,
		Log:       logger.Discard(),
		OnMeta:    func(*Meta) bool { return true },
		AfterMeta: func() { applied <- struct{}{} },
	})
	defer a.Detach()

	b.Load("1", "/models/gaming-pc.glb", "")
	b.SelectPart("cpu-1")
	require.NotEmpty(t, a.Highlighted())

	close(fetcher.gate("/models/gaming-pc_meta.json"))
	<-applied
	a.Wait()
	assert.Empty(t, a.Highlighted())
	assert.Same(t, s.cpuMat, mustMesh(t, s.graph, "CPU-1_Cooler").Material())
}
