// Package registry loads the vendors under test and designates the baseline.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/okian/pathbench/internal/domain/model"
)

// DefaultVendor is used when no vendors file is given.
const DefaultVendor = "direct"

// Registry is an immutable, ordered set of vendors with one baseline.
type Registry struct {
	vendors  []model.Vendor
	index    map[string]int
	baseline int
}

// New validates vendors and picks the baseline: the vendor named baseline,
// or the first vendor when none matches.
func New(vendors []model.Vendor, baseline string) (*Registry, error) {
	if len(vendors) == 0 {
		return nil, ErrNoVendors
	}
	r := &Registry{
		vendors: make([]model.Vendor, 0, len(vendors)),
		index:   make(map[string]int, len(vendors)),
	}
	for i, v := range vendors {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: vendor #%d has no name", ErrInvalidVendor, i)
		}
		if _, dup := r.index[name]; dup {
			return nil, fmt.Errorf("%w: duplicate vendor %q", ErrInvalidVendor, name)
		}
		r.index[name] = len(r.vendors)
		r.vendors = append(r.vendors, model.Vendor{Name: name, Routing: v.Routing})
	}
	if i, ok := r.index[baseline]; ok {
		r.baseline = i
	}
	return r, nil
}

// Load reads a vendors file. An empty path or a file that does not exist
// yields the single direct vendor.
func Load(path, baseline string) (*Registry, error) {
	if path == "" {
		return New([]model.Vendor{{Name: DefaultVendor}}, baseline)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New([]model.Vendor{{Name: DefaultVendor}}, baseline)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadVendors, err)
	}
	vendors, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(vendors, baseline)
}

// Parse decodes either a JSON array of {name, routing} objects or a JSON
// object mapping names to routing descriptors. Object key order is kept.
func Parse(data []byte) ([]model.Vendor, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoVendors
	}
	switch trimmed[0] {
	case '[':
		var raw []struct {
			Name    string          `json:"name"`
			Routing json.RawMessage `json:"routing"`
		}
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadVendors, err)
		}
		out := make([]model.Vendor, 0, len(raw))
		for _, r := range raw {
			out = append(out, model.Vendor{Name: r.Name, Routing: routing(r.Routing)})
		}
		return out, nil
	case '{':
		return parseObject(trimmed)
	default:
		return nil, fmt.Errorf("%w: expected a JSON array or object", ErrReadVendors)
	}
}

func parseObject(data []byte) ([]model.Vendor, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadVendors, err)
	}
	var out []model.Vendor
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadVendors, err)
		}
		name, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: vendor %q: %w", ErrReadVendors, name, err)
		}
		out = append(out, model.Vendor{Name: name, Routing: routing(raw)})
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrReadVendors, err)
	}
	return out, nil
}

// routing keeps string descriptors as-is and any other non-null JSON value as
// its compact text.
func routing(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return model.Ptr(string(raw))
	}
	return model.Ptr(buf.String())
}

// Vendors returns the vendors in file order.
func (r *Registry) Vendors() []model.Vendor {
	out := make([]model.Vendor, len(r.vendors))
	copy(out, r.vendors)
	return out
}

// Baseline returns the baseline vendor.
func (r *Registry) Baseline() model.Vendor { return r.vendors[r.baseline] }

// Lookup finds a vendor by name.
func (r *Registry) Lookup(name string) (model.Vendor, bool) {
	i, ok := r.index[name]
	if !ok {
		return model.Vendor{}, false
	}
	return r.vendors[i], true
}

// Len returns the number of vendors.
func (r *Registry) Len() int { return len(r.vendors) }
