package catalog

import (
	"context"
	"time"
)

// Category groups tools by function
type Category string

const (
	CategoryContent       Category = "content"
	CategoryCommerce      Category = "commerce"
	CategoryMedia         Category = "media"
	CategoryCommunication Category = "communication"
	CategoryAnalytics     Category = "analytics"
	CategoryIntegration   Category = "integration"
	CategorySystem        Category = "system"
	CategoryAI            Category = "ai"
	CategoryOperations    Category = "operations"
	CategorySecurity      Category = "security"
)

// RiskTier classifies a tool's blast radius. HIGH and CRITICAL tiers require
// an explicit approval flag on the invocation context before execution.
type RiskTier string

const (
	RiskReadOnly RiskTier = "read_only"
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

// RequiresApproval reports whether the tier needs an explicit approval flag
func (r RiskTier) RequiresApproval() bool {
	return r == RiskHigh || r == RiskCritical
}

// ReadOnly reports whether the tool has no side effects
func (r RiskTier) ReadOnly() bool {
	return r == RiskReadOnly
}

// Destructive reports whether the tool performs irreversible actions
func (r RiskTier) Destructive() bool {
	return r == RiskCritical
}

// Handler is the single call signature every tool implements
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Parameter defines a single tool parameter with its JSON Schema constraints
type Parameter struct {
	Name        string                 `json:"name"`
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Required    bool                   `json:"required"`
	Default     interface{}            `json:"default,omitempty"`
	Enum        []interface{}          `json:"enum,omitempty"`
	Minimum     *float64               `json:"minimum,omitempty"`
	Maximum     *float64               `json:"maximum,omitempty"`
	MinLength   *int                   `json:"min_length,omitempty"`
	MaxLength   *int                   `json:"max_length,omitempty"`
	Pattern     string                 `json:"pattern,omitempty"`
	Items       map[string]interface{} `json:"items,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
}

// JSONSchema converts the parameter to its JSON Schema fragment
func (p Parameter) JSONSchema() map[string]interface{} {
	schema := map[string]interface{}{
		"type":        p.Type,
		"description": p.Description,
	}

	if len(p.Enum) > 0 {
		schema["enum"] = p.Enum
	}
	if p.Default != nil {
		schema["default"] = p.Default
	}
	if p.Minimum != nil {
		schema["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		schema["maximum"] = *p.Maximum
	}
	if p.MinLength != nil {
		schema["minLength"] = *p.MinLength
	}
	if p.MaxLength != nil {
		schema["maxLength"] = *p.MaxLength
	}
	if p.Pattern != "" {
		schema["pattern"] = p.Pattern
	}
	if p.Items != nil {
		schema["items"] = p.Items
	}
	if p.Properties != nil {
		schema["properties"] = p.Properties
	}

	return schema
}

// Specification describes a tool's interface, constraints, and metadata.
// Immutable once registered.
type Specification struct {
	// Identity
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version,omitempty"`

	// Classification
	Category Category `json:"category,omitempty"`
	RiskTier RiskTier `json:"risk_tier,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	// Interface. InputSchema overrides Parameters when set; OutputSchema,
	// when set, is re-checked against the handler's result.
	Parameters   []Parameter            `json:"parameters,omitempty"`
	InputSchema  map[string]interface{} `json:"input_schema,omitempty"`
	OutputSchema map[string]interface{} `json:"output_schema,omitempty"`

	// Constraints
	Permissions    []string      `json:"permissions,omitempty"`
	AllowedCallers []string      `json:"allowed_callers,omitempty"`
	RateLimit      int           `json:"rate_limit,omitempty"` // calls per minute per caller, 0 = unlimited
	Timeout        time.Duration `json:"timeout,omitempty"`

	// Behavior
	Idempotent bool          `json:"idempotent,omitempty"`
	Cacheable  bool          `json:"cacheable,omitempty"`
	CacheTTL   time.Duration `json:"cache_ttl,omitempty"`
	Disabled   bool          `json:"disabled,omitempty"`

	// Metadata
	Examples []map[string]interface{} `json:"examples,omitempty"`

	// Implementation
	Handler Handler `json:"-"`
}

// CacheEligible reports whether results may be memoized. Caching a
// non-idempotent tool would replay side-effect results, so both flags
// are required.
func (s *Specification) CacheEligible() bool {
	return s.Cacheable && s.Idempotent
}

// RequiredParams returns the names of the required parameters
func (s *Specification) RequiredParams() []string {
	required := []string{}
	for _, p := range s.Parameters {
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return required
}

// JSONSchema returns the tool's input schema, either the raw override or one
// generated from the parameter list
func (s *Specification) JSONSchema() map[string]interface{} {
	if s.InputSchema != nil {
		return s.InputSchema
	}

	properties := map[string]interface{}{}
	for _, p := range s.Parameters {
		properties[p.Name] = p.JSONSchema()
	}

	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   s.RequiredParams(),
	}
}

// CallerAllowed reports whether the given caller may invoke this tool.
// An empty allow list admits every caller.
func (s *Specification) CallerAllowed(caller string) bool {
	if len(s.AllowedCallers) == 0 {
		return true
	}
	for _, allowed := range s.AllowedCallers {
		if allowed == caller || allowed == "*" {
			return true
		}
	}
	return false
}
