package report

import (
	"log"
	"os"

	"github.com/crazyharmony/traf-exercize/internal/config"
	"github.com/crazyharmony/traf-exercize/internal/model"
)

// BuildWriters creates every enabled report writer from the config. Writers
// that fail to initialize are skipped with a warning so that a missing sink
// never blocks the analysis itself.
func BuildWriters(defs []config.WriterDef) []model.Writer {
	writers := make([]model.Writer, 0, len(defs))
	for _, def := range defs {
		if !def.Enabled {
			continue
		}
		switch def.Type {
		case "text":
			writers = append(writers, NewTextWriter(os.Stdout))
		case "json":
			writers = append(writers, NewJSONWriter(def.JSON.RootPath))
		case "clickhouse":
			writer, err := NewClickHouseWriter(def.ClickHouse)
			if err != nil {
				log.Printf("Warning: failed to create writer type '%s': %v, skipping.", def.Type, err)
				continue
			}
			writers = append(writers, writer)
		case "sqlite":
			writer, err := NewSQLiteWriter(def.SQLite.Path)
			if err != nil {
				log.Printf("Warning: failed to create writer type '%s': %v, skipping.", def.Type, err)
				continue
			}
			writers = append(writers, writer)
		default:
			log.Printf("Warning: unknown writer type '%s' in config, skipping.", def.Type)
		}
	}
	return writers
}
