package product

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed products.yaml
var builtinProducts []byte

// Enumeration sources.
const (
	SourceFilesystem = "filesystem"
	SourceCatalog    = "catalog"
)

// Product describes one streamable product.
type Product struct {
	Name        string
	Title       string
	Source      string
	Pattern     string
	Enumeration string
	Prefix      string
	Layout      Layout
}

// DisplayTitle returns Title, or the name upper-cased when no title is set.
func (p Product) DisplayTitle() string {
	if strings.TrimSpace(p.Title) != "" {
		return p.Title
	}
	return cases.Upper(language.Und).String(p.Name)
}

// Registry holds product definitions keyed by name.
type Registry struct {
	products map[string]Product
}

type registryDoc struct {
	Products map[string]productDoc `yaml:"products"`
}

type productDoc struct {
	Title       string `yaml:"title"`
	Source      string `yaml:"source"`
	Pattern     string `yaml:"pattern"`
	Enumeration string `yaml:"enumeration"`
	Prefix      string `yaml:"prefix"`
	Layout      string `yaml:"layout"`
	Template    string `yaml:"template"`
}

// Builtin returns the registry compiled into the binary.
func Builtin() *Registry {
	reg, err := Parse(builtinProducts)
	if err != nil {
		panic(fmt.Sprintf("builtin products: %v", err))
	}
	return reg
}

// Load reads a registry from path. An empty path yields the builtin registry.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read products file: %w", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("products file %s: %w", path, err)
	}
	return reg, nil
}

// Parse decodes YAML product definitions.
func Parse(data []byte) (*Registry, error) {
	var doc registryDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	if len(doc.Products) == 0 {
		return nil, errors.New("no products defined")
	}
	reg := &Registry{products: make(map[string]Product, len(doc.Products))}
	for name, pd := range doc.Products {
		p, err := pd.toProduct(name)
		if err != nil {
			return nil, err
		}
		reg.products[name] = p
	}
	return reg, nil
}

func (d productDoc) toProduct(name string) (Product, error) {
	if err := (Signature{Product: name}).Validate(); err != nil {
		return Product{}, fmt.Errorf("product %q: %w", name, err)
	}
	p := Product{
		Name:        name,
		Title:       strings.TrimSpace(d.Title),
		Source:      strings.TrimSpace(d.Source),
		Pattern:     strings.TrimSpace(d.Pattern),
		Enumeration: strings.ToLower(strings.TrimSpace(d.Enumeration)),
		Prefix:      strings.Trim(strings.TrimSpace(d.Prefix), "/"),
	}
	if p.Enumeration == "" {
		p.Enumeration = SourceFilesystem
	}
	if p.Pattern == "" {
		p.Pattern = "*.nc"
	}
	switch p.Enumeration {
	case SourceFilesystem:
		if p.Source == "" {
			return Product{}, fmt.Errorf("product %q: source is required for filesystem enumeration", name)
		}
	case SourceCatalog:
	default:
		return Product{}, fmt.Errorf("product %q: unknown enumeration %q", name, d.Enumeration)
	}
	switch strings.ToLower(strings.TrimSpace(d.Layout)) {
	case "", "time_partitioned":
		if d.Template != "" {
			return Product{}, fmt.Errorf("product %q: template requires layout flat", name)
		}
		p.Layout = TimePartitioned{}
	case "flat":
		p.Layout = Flat{Template: d.Template}
	default:
		return Product{}, fmt.Errorf("product %q: unknown layout %q", name, d.Layout)
	}
	return p, nil
}

// Lookup returns the named product.
func (r *Registry) Lookup(name string) (Product, error) {
	p, ok := r.products[name]
	if !ok {
		return Product{}, fmt.Errorf("unknown product %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return p, nil
}

// Names returns the sorted product names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.products))
	for name := range r.products {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
