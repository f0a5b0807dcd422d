// Package validate checks invocation arguments and handler results against
// the JSON Schemas compiled at tool registration. Input validation runs
// before any side effect and reports every violation, not just the first.
package validate

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// InputError reports one or more argument violations
type InputError struct {
	Violations []string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid arguments: %s", strings.Join(e.Violations, "; "))
}

// Code returns the machine-readable reason code
func (e *InputError) Code() string {
	return "validation_error"
}

// OutputError reports a handler result that does not conform to the tool's
// declared output schema. It is treated as an execution failure even when
// the handler itself reported success.
type OutputError struct {
	Violations []string
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("non-conforming result: %s", strings.Join(e.Violations, "; "))
}

// Code returns the machine-readable reason code
func (e *OutputError) Code() string {
	return "output_validation_error"
}

// Input validates arguments against a compiled schema. A nil schema admits
// any arguments.
func Input(schema *gojsonschema.Schema, args map[string]interface{}) error {
	if schema == nil {
		return nil
	}

	violations, err := run(schema, args)
	if err != nil {
		return &InputError{Violations: []string{err.Error()}}
	}
	if len(violations) > 0 {
		return &InputError{Violations: violations}
	}
	return nil
}

// Output validates a handler result against a tool's declared output schema.
// A nil schema admits any result.
func Output(schema *gojsonschema.Schema, result interface{}) error {
	if schema == nil {
		return nil
	}

	violations, err := run(schema, result)
	if err != nil {
		return &OutputError{Violations: []string{err.Error()}}
	}
	if len(violations) > 0 {
		return &OutputError{Violations: violations}
	}
	return nil
}

func run(schema *gojsonschema.Schema, value interface{}) ([]string, error) {
	result, err := schema.Validate(gojsonschema.NewGoLoader(value))
	if err != nil {
		return nil, err
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		violations = append(violations, verr.String())
	}
	return violations, nil
}
