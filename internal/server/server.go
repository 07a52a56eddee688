// Package server exposes the slicing pipeline over HTTP: a documented
// JSON API for slicing ad-hoc features and generating archives, plus
// range-request-capable serving of the PMTiles files it produces.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tiledgeo/slicer/internal/sourceload"
	"github.com/tiledgeo/slicer/internal/tiler"
	"github.com/tiledgeo/slicer/internal/tiler/gotiler"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
}

// Server is the slicer HTTP server.
type Server struct {
	config  Config
	mux     *http.ServeMux
	humaAPI huma.API
	tiler   *gotiler.GoTiler
}

// New creates a new slicer server.
func New(cfg Config) *Server {
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("tiledgeo slicer API", "1.0.0")
	humaConfig.Info.Description = "Slices geometries into vector tiles and serves the resulting PMTiles archives."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humago.New(mux, humaConfig),
		tiler:   gotiler.New(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated API description, for the spec export
// subcommand.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close releases server resources.
func (s *Server) Close() error {
	return sourceload.Close()
}

// SlicedTile is one destination tile of a slice request.
type SlicedTile struct {
	X      uint32 `json:"x"`
	Y      uint32 `json:"y"`
	Z      int    `json:"z"`
	Groups int    `json:"groups,omitempty" doc:"Clipped ring groups in this tile; 0 for filled tiles"`
	Filled bool   `json:"filled,omitempty" doc:"Tile is entirely inside the polygon interior"`
}

type sliceInput struct {
	Body struct {
		Feature json.RawMessage `json:"feature" doc:"GeoJSON Feature or bare Geometry to slice"`
		Zoom    int             `json:"zoom" minimum:"0" maximum:"14" doc:"Zoom level to slice at"`
		Buffer  float64         `json:"buffer,omitempty" minimum:"0" maximum:"1" doc:"Clip buffer in tile units"`
	}
}

type sliceOutput struct {
	Body struct {
		Zoom   int          `json:"zoom"`
		Tiles  []SlicedTile `json:"tiles"`
		Counts struct {
			Clipped int `json:"clipped"`
			Filled  int `json:"filled"`
		} `json:"counts"`
	}
}

type generateInput struct {
	Body struct {
		Source  string  `json:"source" doc:"Source file name, read from <data>/sources (GeoJSON or GeoParquet)"`
		Output  string  `json:"output" doc:"Output archive name, written under <data>/tiles"`
		Layer   string  `json:"layer,omitempty" default:"default" doc:"MVT layer name"`
		MinZoom int     `json:"minzoom,omitempty" minimum:"0" maximum:"14"`
		MaxZoom int     `json:"maxzoom,omitempty" minimum:"0" maximum:"14" default:"14"`
		Buffer  float64 `json:"buffer,omitempty" minimum:"0" maximum:"1" default:"0.0625"`
	}
}

type generateOutput struct {
	Body struct {
		Output string `json:"output"`
	}
}

func (s *Server) routes() {
	huma.Register(s.humaAPI, huma.Operation{
		OperationID: "slice-feature",
		Method:      http.MethodPost,
		Path:        "/api/v1/slice",
		Summary:     "Slice one feature into tiles",
		Description: "Runs the tile slicer over a single GeoJSON feature at one zoom level and reports which tiles received clipped geometry and which are entirely filled.",
	}, s.handleSlice)

	huma.Register(s.humaAPI, huma.Operation{
		OperationID: "generate-tiles",
		Method:      http.MethodPost,
		Path:        "/api/v1/generate",
		Summary:     "Generate a PMTiles archive from a source file",
	}, s.handleGenerate)

	tilesDir := filepath.Join(s.config.DataDir, "tiles")
	s.mux.Handle("/tiles/", http.StripPrefix("/tiles/", s.handleTiles(tilesDir)))
}

func (s *Server) handleSlice(ctx context.Context, in *sliceInput) (*sliceOutput, error) {
	geom, err := decodeGeometry(in.Body.Feature)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid GeoJSON feature", err)
	}

	sliced := gotiler.SliceGeometry(geom, in.Body.Zoom, in.Body.Buffer)
	if sliced == nil {
		return nil, huma.Error422UnprocessableEntity(fmt.Sprintf("geometry type %s cannot be sliced", geom.GeoJSONType()))
	}

	out := &sliceOutput{}
	out.Body.Zoom = sliced.ZoomLevel()
	for _, td := range sliced.TileData() {
		out.Body.Tiles = append(out.Body.Tiles, SlicedTile{
			X: td.ID.X, Y: td.ID.Y, Z: int(td.ID.Z),
			Groups: len(td.Groups),
		})
		out.Body.Counts.Clipped++
	}
	for _, id := range sliced.FilledTiles() {
		out.Body.Tiles = append(out.Body.Tiles, SlicedTile{
			X: id.X, Y: id.Y, Z: int(id.Z),
			Filled: true,
		})
		out.Body.Counts.Filled++
	}
	return out, nil
}

func (s *Server) handleGenerate(ctx context.Context, in *generateInput) (*generateOutput, error) {
	source := in.Body.Source
	output := in.Body.Output
	if strings.ContainsAny(source, `/\`) || strings.ContainsAny(output, `/\`) {
		return nil, huma.Error422UnprocessableEntity("source and output must be bare file names")
	}
	if !strings.HasSuffix(output, ".pmtiles") {
		output += ".pmtiles"
	}

	fc, err := sourceload.Load(filepath.Join(s.config.DataDir, "sources", source))
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("loading source", err)
	}

	outPath := filepath.Join(s.config.DataDir, "tiles", output)
	err = s.tiler.TileCollection(fc, outPath, tiler.TileConfig{
		Layer:   in.Body.Layer,
		MinZoom: in.Body.MinZoom,
		MaxZoom: in.Body.MaxZoom,
		Buffer:  in.Body.Buffer,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("tile generation failed", err)
	}

	resp := &generateOutput{}
	resp.Body.Output = output
	return resp, nil
}

// decodeGeometry accepts either a full GeoJSON Feature or a bare
// Geometry document.
func decodeGeometry(raw json.RawMessage) (orb.Geometry, error) {
	if f, err := geojson.UnmarshalFeature(raw); err == nil {
		return f.Geometry, nil
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, err
	}
	return g.Geometry(), nil
}

// handleTiles serves PMTiles archives with the CORS and range-request
// headers browser map clients need.
func (s *Server) handleTiles(tilesDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		http.FileServer(http.Dir(tilesDir)).ServeHTTP(w, r)
	})
}
