/*
Package deployer implements deployment orchestration. It runs module
descriptors against a network, submits contract creation transactions and
keeps track of what is deployed in the ledger so that repeated runs reuse
existing instances.
*/
package deployer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/nspcc-dev/evmdeploy/pkg/artifact"
	"github.com/nspcc-dev/evmdeploy/pkg/chain"
	"github.com/nspcc-dev/evmdeploy/pkg/ledger"
	"github.com/nspcc-dev/evmdeploy/pkg/metrics"
	"github.com/nspcc-dev/evmdeploy/pkg/module"
	"go.uber.org/zap"
)

var (
	// ErrDuplicateFuture is returned when a module deploys the same contract
	// twice in a single build.
	ErrDuplicateFuture = errors.New("duplicate contract deployment in module")
	// ErrModuleCycle is returned when modules depend on each other.
	ErrModuleCycle = errors.New("module dependency cycle")
	// ErrChainMismatch is returned when the ledger has a contract recorded
	// for the network under a different chain ID.
	ErrChainMismatch = errors.New("recorded deployment belongs to another chain")
)

// Resolver provides contract artifacts by name, artifact.Store implements it.
type Resolver interface {
	Get(name string) (*artifact.Artifact, error)
}

// Submitter sends contract creation transactions, chain.Client implements
// it.
type Submitter interface {
	ChainID() uint64
	Deploy(ctx context.Context, data []byte) (chain.Receipt, error)
}

// Options are Deployer parameters. Network, Modules, Artifacts, Ledger and
// Submitter are mandatory.
type Options struct {
	// Network is the name deployments are recorded under in the ledger.
	Network   string
	Modules   *module.Registry
	Artifacts Resolver
	Ledger    *ledger.Ledger
	Submitter Submitter
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Deployer runs modules against one network.
type Deployer struct {
	Options
	log *zap.Logger
	now func() time.Time
}

// ModuleError is the error of a particular module build.
type ModuleError struct {
	Module string
	Err    error
}

// Error implements error interface.
func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %s: %v", e.Module, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModuleError) Unwrap() error {
	return e.Err
}

// New creates a Deployer.
func New(o Options) *Deployer {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Deployer{
		Options: o,
		log:     log.With(zap.String("network", o.Network)),
		now:     time.Now,
	}
}

// Deploy builds the module with the given id along with all modules it
// uses. Contracts already recorded in the ledger are not deployed again.
// Returned errors are *ModuleError for the failed module.
func (d *Deployer) Deploy(ctx context.Context, id string) (module.Outputs, error) {
	r := &run{
		ctx:     ctx,
		d:       d,
		id:      uuid.NewString(),
		outputs: make(map[string]module.Outputs),
	}
	d.log.Info("starting deployment", zap.String("module", id), zap.String("run", r.id))
	outs, err := r.use(id)
	if err != nil {
		return nil, err
	}
	return outs, nil
}

// run is a single Deploy invocation state.
type run struct {
	ctx     context.Context
	d       *Deployer
	id      string
	outputs map[string]module.Outputs
	// stack is the chain of modules being built.
	stack []string
}

func (r *run) use(id string) (module.Outputs, error) {
	if outs, ok := r.outputs[id]; ok {
		return outs, nil
	}
	for i, m := range r.stack {
		if m == id {
			path := append(append([]string{}, r.stack[i:]...), id)
			return nil, &ModuleError{Module: id, Err: fmt.Errorf("%w: %s", ErrModuleCycle, strings.Join(path, " -> "))}
		}
	}
	desc, err := r.d.Modules.Get(id)
	if err != nil {
		return nil, &ModuleError{Module: id, Err: err}
	}

	r.stack = append(r.stack, id)
	start := time.Now()
	mc := &moduleContext{run: r, module: id, futures: make(map[string]struct{})}
	outs, err := desc.Build(mc)
	r.stack = r.stack[:len(r.stack)-1]
	r.d.Metrics.ObserveModule(id, time.Since(start))
	if err != nil {
		var merr *ModuleError
		if errors.As(err, &merr) {
			return nil, err
		}
		return nil, &ModuleError{Module: id, Err: err}
	}
	r.outputs[id] = outs
	r.d.log.Info("module deployed", zap.String("module", id), zap.Int("outputs", len(outs)))
	return outs, nil
}

// moduleContext is given to a single descriptor build.
type moduleContext struct {
	*run
	module  string
	futures map[string]struct{}
}

// instance is a deployed contract handle.
type instance struct {
	contract string
	address  common.Address
}

func (i instance) Artifact() string        { return i.contract }
func (i instance) Address() common.Address { return i.address }

// Use implements module.Composer.
func (c *moduleContext) Use(id string) (module.Outputs, error) {
	return c.run.use(id)
}

// Contract implements module.Context.
func (c *moduleContext) Contract(name string, args ...any) (module.Handle, error) {
	future := c.module + "#" + name
	if _, ok := c.futures[future]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateFuture, future)
	}
	c.futures[future] = struct{}{}

	d := c.d
	log := d.log.With(zap.String("module", c.module), zap.String("future", future))
	rec, err := d.Ledger.Get(d.Network, c.module, future)
	if err == nil {
		if id := d.Submitter.ChainID(); rec.ChainID != id {
			log.Warn("recorded contract is on another chain",
				zap.Uint64("recorded", rec.ChainID), zap.Uint64("chain", id))
			d.Metrics.ObserveContract(d.Network, metrics.ResultFailed)
			return nil, fmt.Errorf("%w: %s at %s has chain ID %d, network %s has %d, clear the ledger to redeploy",
				ErrChainMismatch, future, rec.Address, rec.ChainID, d.Network, id)
		}
		d.Metrics.ObserveContract(d.Network, metrics.ResultReused)
		log.Info("reusing deployed contract", zap.Stringer("address", rec.Address))
		return instance{contract: rec.Contract, address: rec.Address}, nil
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return nil, err
	}

	h, err := c.deploy(future, name, args, log)
	if err != nil {
		d.Metrics.ObserveContract(d.Network, metrics.ResultFailed)
		return nil, err
	}
	d.Metrics.ObserveContract(d.Network, metrics.ResultDeployed)
	return h, nil
}

func (c *moduleContext) deploy(future, name string, args []any, log *zap.Logger) (module.Handle, error) {
	d := c.d
	a, err := d.Artifacts.Get(name)
	if err != nil {
		return nil, err
	}
	data, err := a.DeployData(args...)
	if err != nil {
		return nil, err
	}
	receipt, err := d.Submitter.Deploy(c.ctx, data)
	if err != nil {
		return nil, err
	}
	err = d.Ledger.Put(ledger.Record{
		Network:     d.Network,
		Module:      c.module,
		Future:      future,
		Contract:    a.Name,
		Address:     receipt.Address,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
		ChainID:     d.Submitter.ChainID(),
		RunID:       c.run.id,
		DeployedAt:  d.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("contract %s is deployed at %s, but can't be recorded: %w", future, receipt.Address, err)
	}
	log.Info("contract deployed",
		zap.Stringer("address", receipt.Address),
		zap.Stringer("tx", receipt.TxHash),
		zap.Uint64("block", receipt.BlockNumber))
	return instance{contract: a.Name, address: receipt.Address}, nil
}
