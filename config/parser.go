package config

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
)

// CommentMarker starts a comment line.
const CommentMarker = "#"

// Parser is a koanf.Parser for LightGBM style "key = value" files.
// Values stay strings; type interpretation happens in Params.
type Parser struct {
	// Path is only used to label errors.
	Path string
}

// NewParser returns a Parser that reports errors against path.
func NewParser(path string) *Parser {
	return &Parser{Path: path}
}

// Unmarshal parses b into a flat map of string values.
func (p *Parser) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	scanner := bufio.NewScanner(bytes.NewReader(b))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		key, value, ok, err := parseLine(scanner.Text())
		if err != nil {
			return nil, errors.NewMalformedConfigError(p.Path, lineNo, strings.TrimSpace(scanner.Text()), err.Error())
		}
		if !ok {
			continue
		}
		out[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewFileAccessError("config", p.Path, err)
	}
	return out, nil
}

// Marshal writes the map back as sorted "key = value" lines.
func (p *Parser) Marshal(m map[string]interface{}) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s = %v\n", k, m[k])
	}
	return buf.Bytes(), nil
}

// parseLine returns ok=false for blank and comment lines.
func parseLine(raw string) (key, value string, ok bool, err error) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, CommentMarker) {
		return "", "", false, nil
	}
	tokens := strings.Split(line, "=")
	if len(tokens) != 2 {
		return "", "", false, fmt.Errorf("expected exactly one '=', found %d", len(tokens)-1)
	}
	key = strings.TrimSpace(tokens[0])
	value = strings.TrimSpace(tokens[1])
	if key == "" {
		return "", "", false, fmt.Errorf("empty key")
	}
	return key, value, true, nil
}
