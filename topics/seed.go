package topics

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadSeedFile reads a seed list. .yaml, .yml and .json files hold a list
// of strings; anything else is read one topic per line, skipping blank
// lines and lines starting with '#'.
func LoadSeedFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		var seed []string
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return nil, fmt.Errorf("parse seed file %s: %w", path, err)
		}
		return trimSeed(seed), nil
	default:
		var seed []string
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			seed = append(seed, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read seed file %s: %w", path, err)
		}
		return seed, nil
	}
}

func trimSeed(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
