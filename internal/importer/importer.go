// Package importer turns JSON, YAML, CSV and XLSX files into schedule
// candidates, and YAML files into reference data.
//
// Decoding is row-tolerant: a row that cannot be parsed becomes a rejected
// candidate at its position, so batch results keep the file's ordering.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/nhle/disposal-planner/internal/schedule"
)

// Format is a supported candidate file format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat infers the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported import file %q", filepath.Base(path))
	}
}

// LoadFile reads candidates from path. Dates without an offset in CSV and
// XLSX rows are interpreted in loc.
func LoadFile(path string, loc *time.Location) ([]schedule.Candidate, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	return Parse(f, format, loc)
}

// Parse reads candidates in the given format.
func Parse(r io.Reader, format Format, loc *time.Location) ([]schedule.Candidate, error) {
	switch format {
	case FormatJSON:
		return ParseJSON(r)
	case FormatYAML:
		return ParseYAML(r)
	case FormatCSV:
		return ParseCSV(r, loc)
	case FormatXLSX:
		return ParseXLSX(r, loc)
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
}

// ParseJSON reads a JSON array of candidate objects.
func ParseJSON(r io.Reader) ([]schedule.Candidate, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding JSON array: %w", err)
	}

	out := make([]schedule.Candidate, len(raw))
	for i, msg := range raw {
		out[i] = schedule.DecodeCandidate(msg)
	}
	return out, nil
}

// ParseYAML reads a YAML sequence of candidate mappings.
func ParseYAML(r io.Reader) ([]schedule.Candidate, error) {
	var nodes []yaml.Node
	if err := yaml.NewDecoder(r).Decode(&nodes); err != nil {
		if err == io.EOF {
			return []schedule.Candidate{}, nil
		}
		return nil, fmt.Errorf("decoding YAML list: %w", err)
	}

	out := make([]schedule.Candidate, len(nodes))
	for i := range nodes {
		var c schedule.Candidate
		if err := nodes[i].Decode(&c); err != nil {
			out[i] = schedule.RejectedCandidate(fmt.Errorf("line %d: %w", nodes[i].Line, err))
			continue
		}
		out[i] = c
	}
	return out, nil
}
