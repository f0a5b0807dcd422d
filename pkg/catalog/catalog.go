package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultCacheTTL = 5 * time.Minute
)

var validParamTypes = map[string]bool{
	"string": true, "number": true, "boolean": true,
	"object": true, "array": true, "integer": true,
}

// Catalog is the registry of tool specifications and their handlers. Schemas
// are compiled once at registration; reads require no synchronization beyond
// the read lock, and specifications are never mutated after registration.
type Catalog struct {
	mu            sync.RWMutex
	tools         map[string]*Specification
	inputSchemas  map[string]*gojsonschema.Schema
	outputSchemas map[string]*gojsonschema.Schema
	logger        zerolog.Logger
}

// New creates an empty catalog
func New(logger zerolog.Logger) *Catalog {
	return &Catalog{
		tools:         make(map[string]*Specification),
		inputSchemas:  make(map[string]*gojsonschema.Schema),
		outputSchemas: make(map[string]*gojsonschema.Schema),
		logger:        logger.With().Str("component", "catalog").Logger(),
	}
}

// Register adds a tool to the catalog. It fails if the name is already taken,
// the definition is incomplete, or a declared schema does not compile.
func (c *Catalog) Register(spec Specification) error {
	if err := validateSpec(&spec); err != nil {
		return fmt.Errorf("invalid tool specification: %w", err)
	}

	if spec.Timeout <= 0 {
		spec.Timeout = defaultTimeout
	}
	if spec.Cacheable && spec.CacheTTL <= 0 {
		spec.CacheTTL = defaultCacheTTL
	}

	inputSchema, err := compileSchema(spec.JSONSchema())
	if err != nil {
		return fmt.Errorf("failed to compile input schema for %s: %w", spec.Name, err)
	}

	var outputSchema *gojsonschema.Schema
	if spec.OutputSchema != nil {
		outputSchema, err = compileSchema(spec.OutputSchema)
		if err != nil {
			return fmt.Errorf("failed to compile output schema for %s: %w", spec.Name, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[spec.Name]; exists {
		return fmt.Errorf("tool already registered: %s", spec.Name)
	}

	stored := spec
	c.tools[spec.Name] = &stored
	c.inputSchemas[spec.Name] = inputSchema
	if outputSchema != nil {
		c.outputSchemas[spec.Name] = outputSchema
	}

	c.logger.Info().
		Str("tool", spec.Name).
		Str("category", string(spec.Category)).
		Str("risk_tier", string(spec.RiskTier)).
		Msg("Tool registered")

	return nil
}

// Lookup returns the specification for a tool name
func (c *Catalog) Lookup(name string) (*Specification, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	spec, ok := c.tools[name]
	return spec, ok
}

// InputSchema returns the compiled input schema for a tool, or nil
func (c *Catalog) InputSchema(name string) *gojsonschema.Schema {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.inputSchemas[name]
}

// OutputSchema returns the compiled output schema for a tool, or nil if the
// tool declares none
func (c *Catalog) OutputSchema(name string) *gojsonschema.Schema {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.outputSchemas[name]
}

// List returns all registered specifications sorted by name
func (c *Catalog) List() []*Specification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	specs := make([]*Specification, 0, len(c.tools))
	for _, spec := range c.tools {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })

	return specs
}

// ListEnabled returns all specifications not marked disabled, sorted by name
func (c *Catalog) ListEnabled() []*Specification {
	all := c.List()
	enabled := make([]*Specification, 0, len(all))
	for _, spec := range all {
		if !spec.Disabled {
			enabled = append(enabled, spec)
		}
	}
	return enabled
}

// ByCategory returns the specifications in a category, sorted by name
func (c *Catalog) ByCategory(category Category) []*Specification {
	all := c.List()
	matched := []*Specification{}
	for _, spec := range all {
		if spec.Category == category {
			matched = append(matched, spec)
		}
	}
	return matched
}

// Search returns tools whose name or description contains the query,
// case-insensitively
func (c *Catalog) Search(query string) []*Specification {
	query = strings.ToLower(query)
	matched := []*Specification{}
	for _, spec := range c.List() {
		if strings.Contains(strings.ToLower(spec.Name), query) ||
			strings.Contains(strings.ToLower(spec.Description), query) {
			matched = append(matched, spec)
		}
	}
	return matched
}

// Len returns the number of registered tools
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.tools)
}

func validateSpec(spec *Specification) error {
	if spec.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if spec.Description == "" {
		return fmt.Errorf("tool description cannot be empty for %s", spec.Name)
	}
	if spec.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil for %s", spec.Name)
	}

	for _, param := range spec.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if !validParamTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %q for %s", param.Type, param.Name)
		}
	}

	return nil
}

func compileSchema(schema map[string]interface{}) (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
}
