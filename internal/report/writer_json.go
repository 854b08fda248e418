package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crazyharmony/traf-exercize/internal/model"
)

// JSONWriter persists reports as timestamped JSON files under a root
// directory. It implements the model.Writer interface.
type JSONWriter struct {
	rootPath string
}

// NewJSONWriter creates a JSON report writer rooted at rootPath.
func NewJSONWriter(rootPath string) model.Writer {
	return &JSONWriter{rootPath: rootPath}
}

func (w *JSONWriter) Write(payload interface{}, timestamp string) error {
	rep, ok := payload.(*Report)
	if !ok {
		return fmt.Errorf("invalid payload type for JSONWriter: expected *report.Report, got %T", payload)
	}

	if err := os.MkdirAll(w.rootPath, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	filePath := filepath.Join(w.rootPath, fmt.Sprintf("report_%s.json", timestamp))
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create report file '%s': %w", filePath, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rep); err != nil {
		return fmt.Errorf("failed to encode report to json: %w", err)
	}
	return nil
}
