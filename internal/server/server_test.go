package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := New(Config{Host: "localhost", Port: "0", DataDir: t.TempDir()})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSliceEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/slice", map[string]any{
		"zoom":   2,
		"buffer": 0.0625,
		"feature": map[string]any{
			"type": "Feature",
			"geometry": map[string]any{
				"type": "Polygon",
				"coordinates": [][][]float64{{
					{-90, 60}, {-90, -60}, {90, -60}, {90, 60}, {-90, 60},
				}},
			},
			"properties": map[string]any{},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out struct {
		Zoom   int          `json:"zoom"`
		Tiles  []SlicedTile `json:"tiles"`
		Counts struct {
			Clipped int `json:"clipped"`
			Filled  int `json:"filled"`
		} `json:"counts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.Zoom != 2 {
		t.Fatalf("zoom = %d", out.Zoom)
	}
	if out.Counts.Clipped == 0 {
		t.Fatal("no clipped tiles reported")
	}
	if len(out.Tiles) != out.Counts.Clipped+out.Counts.Filled {
		t.Fatalf("tile list length %d does not match counts %+v", len(out.Tiles), out.Counts)
	}
	for _, tile := range out.Tiles {
		if tile.Z != 2 || tile.X > 3 || tile.Y > 3 {
			t.Fatalf("tile %+v outside the z=2 pyramid", tile)
		}
	}
}

func TestSliceEndpointAcceptsBareGeometry(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/slice", map[string]any{
		"zoom": 1,
		"feature": map[string]any{
			"type":        "LineString",
			"coordinates": [][]float64{{-10, 0}, {10, 0}},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSliceEndpointRejectsGarbage(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/slice", map[string]any{
		"zoom":    1,
		"feature": map[string]any{"type": "Nonsense"},
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestGenerateRejectsPathTraversal(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/generate", map[string]any{
		"source": "../../etc/passwd",
		"output": "out",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}
