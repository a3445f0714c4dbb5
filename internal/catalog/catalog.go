package catalog

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelExtension is the weight format the detector runtime reads.
const ModelExtension = ".onnx"

// Entry maps a display name to the location its weights are downloaded from.
type Entry struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// Catalog is the fixed, ordered list of selectable models.
type Catalog struct {
	entries []Entry
	byName  map[string]Entry
	builtin bool
}

type catalogFile struct {
	Models []Entry `yaml:"models"`
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Default returns the built-in five model catalog.
func Default() *Catalog {
	c, err := New([]Entry{
		{Name: "Yolo 8 Nano + Trained manually with limited cow images", URL: "https://drive.google.com/uc?id=1MUadIAXW63vh_w1TPSWjUFVT7sAShxc9"},
		{Name: "Yolo 11 Nano", URL: "https://drive.google.com/uc?id=1dg-_9_MSHvyN2FgOY4vovRXN9NoaZNCY"},
		{Name: "Yolo 11 Extra", URL: "https://drive.google.com/uc?id=1NoZTxteebhEPG-gPNYfa-XGDtNA8mw1R"},
		{Name: "Yolo 8 Nano", URL: "https://drive.google.com/uc?id=1BknHGF2-2NsOzxcw7BIF7MRHhjETNNFU"},
		{Name: "Yolo 8 Extra", URL: "https://drive.google.com/uc?id=1jb8ZrmSBWz_mRyXu5PPKCSayCZkg3_HK"},
	})
	if err != nil {
		panic(err)
	}
	c.builtin = true
	return c
}

// Load reads a YAML catalog from path. An empty path yields the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	return New(file.Models)
}

// New validates entries and builds a catalog preserving their order.
func New(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog has no models")
	}

	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		byName:  make(map[string]Entry, len(entries)),
	}
	files := make(map[string]string, len(entries))

	for i, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		e.URL = strings.TrimSpace(e.URL)
		if e.Name == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
		if e.URL == "" {
			return nil, fmt.Errorf("catalog entry %q has no url", e.Name)
		}
		if _, exists := c.byName[e.Name]; exists {
			return nil, fmt.Errorf("duplicate catalog entry %q", e.Name)
		}
		file := FileName(e.Name)
		if other, exists := files[file]; exists {
			return nil, fmt.Errorf("catalog entries %q and %q map to the same file %s", other, e.Name, file)
		}
		files[file] = e.Name

		c.entries = append(c.entries, e)
		c.byName[e.Name] = e
	}

	return c, nil
}

// Entries returns a copy of the catalog in display order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Names returns display names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		names = append(names, e.Name)
	}
	return names
}

// Lookup finds an entry by display name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	e, ok := c.byName[name]
	return e, ok
}

// First returns the entry preselected on startup.
func (c *Catalog) First() Entry {
	return c.entries[0]
}

// Builtin reports whether c is the default catalog. Its Drive links serve
// PyTorch .pt weights, which the ONNX backend cannot load.
func (c *Catalog) Builtin() bool {
	return c.builtin
}

// FileName derives the cache file name for a display name.
func FileName(name string) string {
	base := strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "_.")
	if base == "" {
		base = "model"
	}
	return base + ModelExtension
}
