// Package sourceload reads source feature files (GeoJSON, GeoParquet)
// into the feature collections the tiling pipeline consumes, using
// DuckDB's spatial extension so every supported format goes through
// one reader.
package sourceload

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/paulmach/orb/geojson"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Get returns the singleton in-memory DuckDB connection with the
// spatial and parquet extensions loaded.
func Get() (*sql.DB, error) {
	once.Do(func() {
		instance, initErr = sql.Open("duckdb", "")
		if initErr != nil {
			return
		}

		extensions := []string{"spatial", "parquet"}
		for _, ext := range extensions {
			if _, err := instance.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
				// Extensions might already be installed, continue
			}
		}
	})
	return instance, initErr
}

// Close closes the database connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}

// Load reads every feature of path into a feature collection.
// Geometries come back as GeoJSON via ST_AsGeoJSON; every other column
// of the source becomes a feature property under its column name.
func Load(path string) (*geojson.FeatureCollection, error) {
	db, err := Get()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT ST_AsGeoJSON(geom) AS geojson, * EXCLUDE (geom) FROM ST_Read(?)`, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		var geomJSON string
		props := make(map[string]interface{})
		for i, col := range columns {
			if col == "geojson" {
				switch v := values[i].(type) {
				case string:
					geomJSON = v
				case []byte:
					geomJSON = string(v)
				}
				continue
			}
			props[col] = values[i]
		}
		if geomJSON == "" {
			continue
		}

		g, err := geojson.UnmarshalGeometry([]byte(geomJSON))
		if err != nil {
			return nil, fmt.Errorf("decoding geometry from %s: %w", path, err)
		}
		f := geojson.NewFeature(g.Geometry())
		f.Properties = props
		fc.Append(f)
	}
	return fc, rows.Err()
}
