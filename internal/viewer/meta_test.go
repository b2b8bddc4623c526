package viewer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveMetaURL(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  string
	}{
		{"plain", "/models/gaming-pc.glb", "/models/gaming-pc_meta.json"},
		{"upper case with query", "https://cdn.example.com/phone.GLB?v=3", "https://cdn.example.com/phone_meta.json?v=3"},
		{"first match only", "/a.glb?next=/b.glb", "/a_meta.json?next=/b.glb"},
		{"extension inside name", "/models/x.glbackup.glb", "/models/x.glbackup_meta.json"},
		{"no extension", "/models/phone.gltf", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveMetaURL(tt.model, DefaultMetaSuffix))
		})
	}
}

func TestMeshSpecBox(t *testing.T) {
	box, ok := MeshSpec{Min: []float64{0, 1, 2}, Max: []float64{3, 4, 5}}.Box()
	require.True(t, ok)
	assert.Equal(t, Box{Min: Vec3{0, 1, 2}, Max: Vec3{3, 4, 5}}, box)

	_, ok = MeshSpec{Min: []float64{0, 1}}.Box()
	assert.False(t, ok)
}

func TestParseMeta(t *testing.T) {
	meta, err := ParseMeta("/m_meta.json", []byte(`{"meshes":[{"name":"cpu-1","material":"steel"}],"extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, "/m_meta.json", meta.URL)
	require.Len(t, meta.Meshes, 1)
	assert.Equal(t, "steel", meta.Meshes[0].Material)
	assert.JSONEq(t, `{"meshes":[{"name":"cpu-1","material":"steel"}],"extra":true}`, string(meta.Raw))

	_, err = ParseMeta("/m_meta.json", []byte(`[1,2]`))
	assert.Error(t, err)
}

func TestHTTPMetaFetcher(t *testing.T) {
	cacheControl := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/gaming-pc_meta.json":
			cacheControl <- r.Header.Get("Cache-Control")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"meshes":[{"name":"gpu-1_Board","min":[0,0,0],"max":[1,1,1]}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f, err := NewHTTPMetaFetcher(srv.URL+"/assets/", time.Second)
	require.NoError(t, err)
	defer f.Close()

	ctx := context.Background()

	meta, err := f.Fetch(ctx, "/models/gaming-pc_meta.json")
	require.NoError(t, err)
	assert.Equal(t, "no-store", <-cacheControl)
	assert.Equal(t, srv.URL+"/models/gaming-pc_meta.json", meta.URL)
	require.Len(t, meta.Meshes, 1)

	_, err = f.Fetch(ctx, srv.URL+"/models/phone_meta.json")
	assert.ErrorContains(t, err, "404")
}

func TestHTTPMetaFetcherRequiresBaseForRelativeURLs(t *testing.T) {
	f, err := NewHTTPMetaFetcher("", time.Second)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "/models/gaming-pc_meta.json")
	assert.ErrorContains(t, err, "without asset base URL")
}
