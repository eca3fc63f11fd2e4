package pseudonym

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var ErrMissingPrefixMap = errors.New("missing_prefix_map")

// PrefixMap maps raw two-character member-id prefixes to their replacements.
type PrefixMap map[string]string

// Apply substitutes the prefix of id. Ids shorter than the prefix or with an
// unknown prefix are returned unchanged.
func (m PrefixMap) Apply(id string) string {
	p, ok := memberPrefix(id)
	if !ok {
		return id
	}
	repl, ok := m[p]
	if !ok {
		return id
	}
	return repl + string([]rune(id)[memberPrefixLen:])
}

// SavePrefixMap writes m as a JSON object, replacing path atomically.
func SavePrefixMap(path string, m PrefixMap) (err error) {
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prefix map: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefix map dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prefix-map-*.json")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(append(body, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadPrefixMap reads a map written by SavePrefixMap.
func LoadPrefixMap(path string) (PrefixMap, error) {
	body, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingPrefixMap, path)
	}
	if err != nil {
		return nil, err
	}
	var m PrefixMap
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decode prefix map %s: %w", path, err)
	}
	if m == nil {
		m = PrefixMap{}
	}
	return m, nil
}
