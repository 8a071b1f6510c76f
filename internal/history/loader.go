package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Load reads a printed-label log from JSONL (one entry per line), a JSON
// array, or Parquet. A missing file is an empty log.
func Load(path string) ([]Entry, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var (
		entries []Entry
		err     error
	)
	switch ext {
	case ".parquet":
		entries, err = loadParquet(path)
	case ".jsonl", ".json", ".log":
		entries, err = loadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported log format: %s (supported: .jsonl, .json, .parquet)", ext)
	}
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("No print log yet", "path", path)
		return nil, nil
	}
	return entries, err
}

func loadJSON(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse print log: %w", err)
		}
		return entries, nil
	}

	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("failed to parse print log at line %d: %w", lineNum, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading print log: %w", err)
	}
	slog.Debug("Loaded print log", "path", path, "entries", len(entries))
	return entries, nil
}

func loadParquet(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[entryRow](pf)
	defer reader.Close()

	var entries []Entry
	rows := make([]entryRow, 128)
	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			entries = append(entries, fromRow(row))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	slog.Debug("Loaded print log", "path", path, "entries", len(entries), "row_groups", len(pf.RowGroups()))
	return entries, nil
}
