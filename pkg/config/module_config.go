package config

import (
	"errors"
	"fmt"
)

// Module is a declarative deployment module definition. Each module deploys
// exactly one contract and exposes the result under Output.
type Module struct {
	ID       string `yaml:"ID"`
	Contract string `yaml:"Contract"`
	// Output is the local name of the deployed instance, defaults to ID
	// with the first letter lowercased.
	Output string `yaml:"Output"`
	// Args are constructor arguments. A mapping with Module and Output keys
	// refers to an instance deployed by another module. Integers that don't
	// fit into 64 bits must be quoted.
	Args []any `yaml:"Args"`
}

// Validate checks module definition for consistency.
func (m Module) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: module without ID", ErrConfiguration)
	}
	if m.Contract == "" {
		return fmt.Errorf("%w: module %q: Contract is not set", ErrConfiguration, m.ID)
	}
	for i, a := range m.Args {
		if err := validateArg(a); err != nil {
			return fmt.Errorf("%w: module %q: argument #%d: %v", ErrConfiguration, m.ID, i, err)
		}
	}
	return nil
}

// validateArg checks references in a and in lists nested into it.
func validateArg(a any) error {
	switch v := a.(type) {
	case map[string]any:
		mod, _ := v["Module"].(string)
		out, _ := v["Output"].(string)
		if mod == "" || out == "" || len(v) != 2 {
			return errors.New("reference needs Module and Output only")
		}
	case []any:
		for i := range v {
			if err := validateArg(v[i]); err != nil {
				return fmt.Errorf("element #%d: %w", i, err)
			}
		}
	}
	return nil
}
