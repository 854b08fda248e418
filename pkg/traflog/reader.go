package traflog

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/crazyharmony/traf-exercize/internal/model"
)

// Separator between the positional fields of one record.
const Separator = ";"

// Reader streams raw records out of a delimiter-separated capture log.
type Reader struct {
	file *os.File
}

// NewReader opens the capture log at the given path.
func NewReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture log: %w", err)
	}
	return &Reader{file: file}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadRecords reads the log line by line and sends the split raw records to
// the provided channel. The line index advances on every line, including
// blank ones, so record identity stays aligned with the file. The channel is
// left open for the caller to close.
func (r *Reader) ReadRecords(out chan<- model.RawRecord) error {
	scanner := bufio.NewScanner(r.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	index := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			out <- SplitLine(line, index)
		}
		index++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed while reading capture log: %w", err)
	}
	return nil
}

// SplitLine splits one log line into a raw record, trimming whitespace around
// each field.
func SplitLine(line string, index int) model.RawRecord {
	fields := strings.Split(line, Separator)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return model.RawRecord{LineIndex: index, Fields: fields}
}
