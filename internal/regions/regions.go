// Package regions provides named region presets users can select instead of
// drawing shapes: a built-in set of rectangles plus optional entries loaded
// from a YAML file.
package regions

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/couchcryptid/quake-explorer/internal/domain"
)

// Preset is a named, reusable region.
type Preset struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Region      domain.Region `json:"polygons"`
}

// builtins are rectangles as [minLat, minLon, maxLat, maxLon]. A "world"
// preset is deliberately absent: an empty region already means worldwide.
var builtins = []struct {
	name, description string
	box               domain.BoundingBox
}{
	{"turkey", "Anatolia and the East Anatolian Fault", domain.BoundingBox{MinLat: 36, MinLon: 26, MaxLat: 42, MaxLon: 45}},
	{"japan", "Japanese archipelago and trench", domain.BoundingBox{MinLat: 30, MinLon: 129, MaxLat: 46, MaxLon: 146}},
	{"california", "California and the San Andreas system", domain.BoundingBox{MinLat: 32, MinLon: -125, MaxLat: 42, MaxLon: -114}},
	{"chile", "Chilean subduction margin", domain.BoundingBox{MinLat: -56, MinLon: -76, MaxLat: -17, MaxLon: -66}},
	{"mediterranean", "Mediterranean basin", domain.BoundingBox{MinLat: 30, MinLon: -6, MaxLat: 46, MaxLon: 36}},
	{"indonesia", "Sunda and Banda arcs", domain.BoundingBox{MinLat: -11, MinLon: 95, MaxLat: 6, MaxLon: 141}},
	{"alaska", "Alaska and the Aleutian arc", domain.BoundingBox{MinLat: 51, MinLon: -180, MaxLat: 72, MaxLon: -129}},
}

// Catalog is a lookup table of presets keyed by lower-case name.
type Catalog struct {
	presets map[string]Preset
}

// Builtin returns a catalog holding only the built-in presets.
func Builtin() *Catalog {
	c := &Catalog{presets: make(map[string]Preset, len(builtins))}
	for _, b := range builtins {
		c.presets[b.name] = Preset{Name: b.name, Description: b.description, Region: domain.Region{b.box.Polygon()}}
	}
	return c
}

// Load returns the built-in catalog extended with the presets in path. An
// empty path yields the built-ins. File entries replace built-ins of the same name.
func Load(path string) (*Catalog, error) {
	c := Builtin()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region presets: %w", err)
	}
	if err := c.merge(data); err != nil {
		return nil, fmt.Errorf("region presets %s: %w", path, err)
	}
	return c, nil
}

// fileFormat is the YAML document layout:
//
//	regions:
//	  - name: aegean
//	    description: Aegean Sea
//	    polygons:
//	      - [[35, 22], [35, 28], [41, 28], [41, 22]]
type fileFormat struct {
	Regions []struct {
		Name        string         `yaml:"name"`
		Description string         `yaml:"description"`
		Polygons    [][][2]float64 `yaml:"polygons"`
	} `yaml:"regions"`
}

func (c *Catalog) merge(data []byte) error {
	var doc fileFormat
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	for i, entry := range doc.Regions {
		name := strings.ToLower(strings.TrimSpace(entry.Name))
		if name == "" {
			return fmt.Errorf("regions[%d]: name is required", i)
		}
		if len(entry.Polygons) == 0 {
			return fmt.Errorf("region %q: at least one polygon is required", name)
		}
		region := make(domain.Region, 0, len(entry.Polygons))
		for _, verts := range entry.Polygons {
			poly := make(domain.Polygon, len(verts))
			for k, v := range verts {
				poly[k] = domain.Point{Lat: v[0], Lon: v[1]}
			}
			region = append(region, poly)
		}
		if err := region.Validate(); err != nil {
			return fmt.Errorf("region %q: %w", name, err)
		}
		c.presets[name] = Preset{Name: name, Description: entry.Description, Region: region}
	}
	return nil
}

// Get looks up a preset by case-insensitive name.
func (c *Catalog) Get(name string) (Preset, bool) {
	p, ok := c.presets[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Resolve unions the named presets into one region. Unknown names are
// reported as a *domain.ValidationError.
func (c *Catalog) Resolve(names []string) (domain.Region, error) {
	var region domain.Region
	verr := &domain.ValidationError{}
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		p, ok := c.Get(n)
		if !ok {
			verr.Problems = append(verr.Problems, domain.FieldError{Field: "region", Message: fmt.Sprintf("unknown region preset %q", n)})
			continue
		}
		region = append(region, p.Region...)
	}
	if len(verr.Problems) > 0 {
		return nil, verr
	}
	return region, nil
}

// List returns every preset sorted by name.
func (c *Catalog) List() []Preset {
	out := make([]Preset, 0, len(c.presets))
	for _, p := range c.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
