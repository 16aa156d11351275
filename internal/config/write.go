package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeycumines/thief-autosplitter/internal/storage"
)

// SetKeyInFile updates or adds key in the config file, preserving comments
// and formatting. An empty section targets the global block at the top of the
// file; otherwise the key is placed in [section], which is appended if it
// does not exist yet. Keys with the same name in other sections are never
// touched.
func SetKeyInFile(path, section, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	}

	newLine := key
	if value != "" {
		newLine = key + " " + value
	}

	current := ""
	sectionSeen := section == ""
	// insertAt is the index after the last line belonging to the target
	// section, or -1 until the section is found
	insertAt := -1
	if section == "" {
		insertAt = 0
	}
	found := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			current = strings.TrimSpace(strings.Trim(trimmed, "[]"))
			if current == section {
				sectionSeen = true
				insertAt = i + 1
			}
			continue
		}
		if current != section {
			continue
		}
		if trimmed != "" {
			insertAt = i + 1
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if name, _, _ := strings.Cut(trimmed, " "); name == key {
			lines[i] = newLine
			found = true
			break
		}
	}

	switch {
	case found:
	case !sectionSeen:
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) != "" {
			lines = append(lines, "")
		}
		lines = append(lines, "["+section+"]", newLine)
	default:
		lines = append(lines[:insertAt], append([]string{newLine}, lines[insertAt:]...)...)
	}

	result := strings.Join(lines, "\n") + "\n"

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return storage.AtomicWriteFile(path, []byte(result), 0644)
}
