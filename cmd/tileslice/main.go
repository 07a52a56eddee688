package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tiledgeo/slicer/internal/server"
	"github.com/tiledgeo/slicer/internal/sourceload"
	"github.com/tiledgeo/slicer/internal/tiler"
	"github.com/tiledgeo/slicer/internal/tiler/gotiler"
)

// Options defines all CLI flags and env vars for the slicer.
// Flags: --host, --port, --data-dir
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir string `doc:"Directory for source and tile files" default:".data"`
}

// sliceJob is the slice subcommand's configuration, loadable from a
// YAML file so repeated builds of the same dataset stay in one place.
type sliceJob struct {
	Source  string  `yaml:"source"`
	Output  string  `yaml:"output"`
	Layer   string  `yaml:"layer"`
	MinZoom int     `yaml:"minzoom"`
	MaxZoom int     `yaml:"maxzoom"`
	Buffer  float64 `yaml:"buffer"`
}

func newServer(opts *Options) *server.Server {
	return server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
	})
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		srv := newServer(opts)

		hooks.OnStart(func() {
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("tileslice API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		})
	})

	cli.Root().Use = "tileslice"
	cli.Root().Short = "Slice geometries into vector tiles"
	cli.Root().Version = "0.1.0"

	// slice subcommand: one-shot source file -> PMTiles archive
	sliceCmd := &cobra.Command{
		Use:   "slice",
		Short: "Slice a source file into a PMTiles archive",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			job := sliceJob{Layer: "default", MaxZoom: 14, Buffer: 0.0625}
			if cfgPath, _ := cmd.Flags().GetString("config"); cfgPath != "" {
				data, err := os.ReadFile(cfgPath)
				if err != nil {
					log.Fatalf("Reading config: %v", err)
				}
				if err := yaml.Unmarshal(data, &job); err != nil {
					log.Fatalf("Parsing config: %v", err)
				}
			}
			if v, _ := cmd.Flags().GetString("source"); v != "" {
				job.Source = v
			}
			if v, _ := cmd.Flags().GetString("output"); v != "" {
				job.Output = v
			}
			if v, _ := cmd.Flags().GetString("layer"); v != "" {
				job.Layer = v
			}
			if cmd.Flags().Changed("minzoom") {
				job.MinZoom, _ = cmd.Flags().GetInt("minzoom")
			}
			if cmd.Flags().Changed("maxzoom") {
				job.MaxZoom, _ = cmd.Flags().GetInt("maxzoom")
			}
			if cmd.Flags().Changed("buffer") {
				job.Buffer, _ = cmd.Flags().GetFloat64("buffer")
			}
			if job.Source == "" || job.Output == "" {
				log.Fatalf("slice requires --source and --output (or a --config file providing them)")
			}

			fc, err := sourceload.Load(job.Source)
			if err != nil {
				log.Fatalf("Loading %s: %v", job.Source, err)
			}
			defer sourceload.Close()

			engine := gotiler.New()
			err = engine.TileCollection(fc, job.Output, tiler.TileConfig{
				Layer:   job.Layer,
				MinZoom: job.MinZoom,
				MaxZoom: job.MaxZoom,
				Buffer:  job.Buffer,
			})
			if err != nil {
				log.Fatalf("Generating tiles: %v", err)
			}
			fmt.Printf("Wrote %s (%d features, z%d-z%d)\n", job.Output, len(fc.Features), job.MinZoom, job.MaxZoom)
		}),
	}
	sliceCmd.Flags().StringP("source", "s", "", "Source file (GeoJSON or GeoParquet)")
	sliceCmd.Flags().StringP("output", "o", "", "Output PMTiles path")
	sliceCmd.Flags().StringP("layer", "l", "", "MVT layer name")
	sliceCmd.Flags().Int("minzoom", 0, "Minimum zoom level")
	sliceCmd.Flags().Int("maxzoom", 14, "Maximum zoom level")
	sliceCmd.Flags().Float64("buffer", 0.0625, "Tile clip buffer in tile units")
	sliceCmd.Flags().StringP("config", "c", "", "YAML file with slice job settings")
	cli.Root().AddCommand(sliceCmd)

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	cli.Run()
}
