package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"rigdna/internal/archive"
)

var titleCaser = cases.Title(language.English)

// displayTrigger renders an archive trigger for table output.
func displayTrigger(t archive.Trigger) string {
	return titleCaser.String(string(t))
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// formatWeight prints evaluation scalars with enough digits to tell
// neighboring keyframes apart without drowning the table.
func formatWeight(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 4, 32)
}

// parseControlAssignments parses "name=value" pairs separated by commas.
// Control names may themselves contain dots (group.name), but not commas
// or equals signs.
func parseControlAssignments(spec string) (map[string]float32, error) {
	values := make(map[string]float32)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, raw, found := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, fmt.Errorf("invalid control assignment %q (want name=value)", pair)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid control value in %q: %w", pair, err)
		}
		values[name] = float32(value)
	}
	if len(values) == 0 {
		return nil, errors.New("no control assignments given")
	}
	return values, nil
}

// loadControlFile reads a JSON object of control name to value.
func loadControlFile(path string) (map[string]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read controls file: %w", err)
	}
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse controls file: %w", err)
	}
	values := make(map[string]float32, len(raw))
	for name, v := range raw {
		values[name] = float32(v)
	}
	return values, nil
}
