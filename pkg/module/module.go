/*
Package module provides deployment module descriptors. A descriptor is a
named unit declaring contract deployments through a Context supplied by the
orchestrator, it exposes deployed instances as named outputs.
*/
package module

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnknownModule is returned for module ids that are not registered.
var ErrUnknownModule = errors.New("unknown module")

// Handle is a deployed contract instance reference.
type Handle interface {
	// Artifact is the contract artifact name the instance is deployed from.
	Artifact() string
	// Address is the on-chain address of the instance.
	Address() common.Address
}

// Context is the capability given to descriptors by the orchestrator.
type Context interface {
	// Contract deploys (or reuses a known deployment of) the named artifact
	// with the given constructor arguments.
	Contract(name string, args ...any) (Handle, error)
}

// Outputs maps local names to deployed instances.
type Outputs map[string]Handle

// Descriptor is a deployment module.
type Descriptor interface {
	ID() string
	Build(Context) (Outputs, error)
}

// Declarative is a descriptor deploying a single contract.
type Declarative struct {
	id       string
	contract string
	output   string
	args     []any
}

// New returns a declarative descriptor with the given id deploying contract
// and exposing it as output. Arguments may contain Ref values, these are
// resolved via Composer when building.
func New(id, contract, output string, args ...any) *Declarative {
	return &Declarative{
		id:       id,
		contract: contract,
		output:   output,
		args:     append([]any(nil), args...),
	}
}

// ID implements Descriptor.
func (d *Declarative) ID() string { return d.id }

// Contract returns the artifact name deployed by this descriptor.
func (d *Declarative) Contract() string { return d.contract }

// Output returns the local output name.
func (d *Declarative) Output() string { return d.output }

// Build implements Descriptor. Context errors are returned as is.
func (d *Declarative) Build(ctx Context) (Outputs, error) {
	args, err := resolveArgs(ctx, d.args)
	if err != nil {
		return nil, err
	}
	h, err := ctx.Contract(d.contract, args...)
	if err != nil {
		return nil, err
	}
	return Outputs{d.output: h}, nil
}

// String implements fmt.Stringer.
func (d *Declarative) String() string {
	return fmt.Sprintf("%s (%s -> %s)", d.id, d.contract, d.output)
}
