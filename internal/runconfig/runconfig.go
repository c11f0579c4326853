// Package runconfig decodes the demo CLI's run manifest: a small HCL
// document naming HTTP endpoints, an optional set of seed cache entries,
// and a concurrency block holding a cap on evaluator levels. The muse
// package itself takes no file format at all; this is purely a demo-CLI
// concern. The demo CLI reads only the concurrency block.
package runconfig

import (
	"fmt"
	"reflect"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/muse"
)

// Manifest is the decoded shape of one run's HCL document.
type Manifest struct {
	Endpoints   []Endpoint   `hcl:"endpoint,block"`
	Seeds       []Seed       `hcl:"seed,block"`
	Concurrency *Concurrency `hcl:"concurrency,block"`
}

// Endpoint names a base URL plus an optional latency string. Load decodes
// both as given; nothing in this package or the demo CLI connects them to
// an httpsource client or simulates the latency.
type Endpoint struct {
	Name    string `hcl:"name,label"`
	BaseURL string `hcl:"base_url"`
	Latency string `hcl:"latency,optional"`
}

// Seed pre-populates the run's cache with a known response, letting a
// caller of SeedCache replay a fixed result for a given
// resource kind and identity without performing a real fetch. Kind names
// the Go type of the DataSource this entry answers for, resolved against
// the registry passed to SeedCache. Response is decoded as a raw HCL
// expression rather than a typed attribute, since a seeded response can be
// any shape a real Fetch might have returned; ctyToNative converts it to
// the same plain Go value a DataSource's Fetch would hand the cache.
type Seed struct {
	Kind     string    `hcl:"kind,label"`
	Identity string    `hcl:"identity"`
	Response cty.Value `hcl:"response"`
}

// Concurrency bounds how many evaluator levels one run is allowed before
// it is treated as diverged.
type Concurrency struct {
	MaxLevels int `hcl:"max_levels,optional"`
}

// Load decodes the manifest at path.
func Load(path string) (*Manifest, error) {
	var m Manifest
	if err := hclsimple.DecodeFile(path, nil, &m); err != nil {
		return nil, fmt.Errorf("runconfig: decoding %s: %w", path, err)
	}
	return &m, nil
}

// KindRegistry maps the kind names a manifest's seed blocks may reference
// to the concrete DataSource type they identify. The caller of SeedCache
// builds one from the sources it wires up; this indirection is what lets a
// manifest name a kind by string without the runconfig package importing
// every possible DataSource implementation.
type KindRegistry map[string]reflect.Type

// SeedCache applies every seed in m to cache, resolving each Kind name
// against reg. An unknown kind name is an error: a manifest referencing a
// kind the demo never registered is a configuration mistake, not a
// runtime condition to skip past silently.
func SeedCache(cache *muse.Cache, reg KindRegistry, m *Manifest) error {
	for _, seed := range m.Seeds {
		kind, ok := reg[seed.Kind]
		if !ok {
			return fmt.Errorf("runconfig: seed references unknown kind %q", seed.Kind)
		}
		response, err := ctyToNative(seed.Response)
		if err != nil {
			return fmt.Errorf("runconfig: seed %s/%s: decoding response: %w", seed.Kind, seed.Identity, err)
		}
		cache.Seed(kind, seed.Identity, response)
	}
	return nil
}

// ctyToNative recursively converts a cty.Value into its natural Go
// representation.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("converting cty.Number to float64: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		var b bool
		if err := gocty.FromCtyValue(v, &b); err != nil {
			return nil, fmt.Errorf("converting cty.Bool to bool: %w", err)
		}
		return b, nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0)
		it := v.ElementIterator()
		for it.Next() {
			_, val := it.Element()
			nativeVal, err := ctyToNative(val)
			if err != nil {
				return nil, err
			}
			out = append(out, nativeVal)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, val := it.Element()
			nativeVal, err := ctyToNative(val)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = nativeVal
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported cty type for response conversion: %s", ty.FriendlyName())
	}
}

// ResolveMaxLevels returns the manifest's configured level cap, or zero
// (meaning "use muse's default") when the manifest carries no
// concurrency block.
func (m *Manifest) ResolveMaxLevels() int {
	if m.Concurrency == nil {
		return 0
	}
	return m.Concurrency.MaxLevels
}
