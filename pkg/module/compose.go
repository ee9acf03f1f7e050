package module

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/nspcc-dev/evmdeploy/pkg/config"
)

// Composer is a Context that can also build other modules, so that their
// outputs can be passed as constructor arguments.
type Composer interface {
	Context
	// Use builds the module with the given id (once per orchestrator run)
	// and returns its outputs.
	Use(id string) (Outputs, error)
}

// Ref is a constructor argument referring to an output of another module.
type Ref struct {
	Module string
	Output string
}

// String implements fmt.Stringer.
func (r Ref) String() string {
	return r.Module + "." + r.Output
}

// ErrNoComposer is returned when a descriptor refers to other modules, but
// the context can't build them.
var ErrNoComposer = errors.New("context can't resolve module references")

// FromConfig creates a declarative descriptor out of configuration. Output
// defaults to module id with the first letter lowercased.
func FromConfig(m config.Module) (*Declarative, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	out := m.Output
	if out == "" {
		out = lowerFirst(m.ID)
	}
	args := make([]any, len(m.Args))
	for i, a := range m.Args {
		args[i] = refFromConfig(a)
	}
	return New(m.ID, m.Contract, out, args...), nil
}

func refFromConfig(a any) any {
	switch v := a.(type) {
	case map[string]any:
		mod, _ := v["Module"].(string)
		out, _ := v["Output"].(string)
		return Ref{Module: mod, Output: out}
	case []any:
		res := make([]any, len(v))
		for i := range v {
			res[i] = refFromConfig(v[i])
		}
		return res
	}
	return a
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}

// resolveArgs replaces Ref values (including ones inside lists) with handles
// built via Composer.
func resolveArgs(ctx Context, args []any) ([]any, error) {
	res := make([]any, len(args))
	for i, a := range args {
		var err error
		res[i], err = resolveArg(ctx, a)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func resolveArg(ctx Context, a any) (any, error) {
	switch v := a.(type) {
	case Ref:
		c, ok := ctx.(Composer)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoComposer, v)
		}
		outs, err := c.Use(v.Module)
		if err != nil {
			return nil, err
		}
		h, ok := outs[v.Output]
		if !ok {
			return nil, fmt.Errorf("module %s has no output %s", v.Module, v.Output)
		}
		return h, nil
	case []any:
		return resolveArgs(ctx, v)
	}
	return a, nil
}
