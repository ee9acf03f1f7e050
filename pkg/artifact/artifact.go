/*
Package artifact reads compiled contract artifacts (Hardhat and Foundry JSON
output) and prepares contract creation data out of them.
*/
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrUnknownArtifact is returned when there is no compiled artifact for
	// the requested contract.
	ErrUnknownArtifact = errors.New("unknown artifact")
	// ErrConstructorArgument is returned when constructor arguments don't
	// match the artifact's constructor signature.
	ErrConstructorArgument = errors.New("constructor argument mismatch")
	// ErrCompilerVersion is returned for artifacts built with a compiler
	// version different from the configured one.
	ErrCompilerVersion = errors.New("compiler version mismatch")
)

// Artifact is a compiled contract ready to be deployed.
type Artifact struct {
	// Name is the contract name.
	Name string
	// SourceName is the source file the contract was compiled from, may be
	// empty if the artifact doesn't carry it.
	SourceName string
	ABI        abi.ABI
	// Bytecode is the creation code without constructor arguments.
	Bytecode []byte
	// CompilerVersion is taken from the artifact metadata, may be empty.
	CompilerVersion string
}

// rawArtifact covers both Hardhat (bytecode as a string) and Foundry
// (bytecode.object, metadata object) output formats.
type rawArtifact struct {
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     bytecode        `json:"bytecode"`
	Metadata     json.RawMessage `json:"metadata"`
}

type bytecode string

// UnmarshalJSON handles both string and {"object": "0x..."} formats.
func (b *bytecode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = bytecode(s)
		return nil
	}
	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.New("bytecode must be a string or an object with 'object' field")
	}
	*b = bytecode(obj.Object)
	return nil
}

type metadata struct {
	Compiler struct {
		Version string `json:"version"`
	} `json:"compiler"`
}

// FromJSON parses an artifact. The name is used when the artifact itself
// doesn't specify the contract name (Foundry).
func FromJSON(name string, data []byte) (*Artifact, error) {
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid artifact %s: %w", name, err)
	}
	if raw.ContractName != "" {
		name = raw.ContractName
	}
	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("invalid artifact %s: no ABI", name)
	}
	parsedABI, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("invalid artifact %s: bad ABI: %w", name, err)
	}
	code := string(raw.Bytecode)
	if strings.Contains(code, "__") {
		return nil, fmt.Errorf("artifact %s needs library linking which is not supported", name)
	}
	if code == "" || code == "0x" {
		return nil, fmt.Errorf("artifact %s has no bytecode (abstract contract or interface?)", name)
	}
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	bin, err := hexutil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact %s: bad bytecode: %w", name, err)
	}
	a := &Artifact{
		Name:       name,
		SourceName: raw.SourceName,
		ABI:        parsedABI,
		Bytecode:   bin,
	}
	if len(raw.Metadata) != 0 {
		a.CompilerVersion, err = compilerVersion(raw.Metadata)
		if err != nil {
			return nil, fmt.Errorf("invalid artifact %s: bad metadata: %w", name, err)
		}
	}
	return a, nil
}

// compilerVersion extracts compiler version from solc metadata that can be
// either a JSON object or a string containing JSON.
func compilerVersion(data json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			return "", nil
		}
		data = json.RawMessage(s)
	}
	var m metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return "", err
	}
	return m.Compiler.Version, nil
}

// CheckCompiler returns an error if the artifact has compiler version
// information and it doesn't match the given version. Build metadata
// (commit hash) is ignored.
func (a *Artifact) CheckCompiler(pin semver.Version) error {
	if a.CompilerVersion == "" {
		return nil
	}
	v, err := semver.Parse(a.CompilerVersion)
	if err != nil {
		return fmt.Errorf("%w: %s: unparseable version %q", ErrCompilerVersion, a.Name, a.CompilerVersion)
	}
	if v.Major != pin.Major || v.Minor != pin.Minor || v.Patch != pin.Patch {
		return fmt.Errorf("%w: %s is built with %s, expected %s", ErrCompilerVersion, a.Name, a.CompilerVersion, pin)
	}
	return nil
}

// DeployData returns contract creation code with ABI-encoded constructor
// arguments appended.
func (a *Artifact) DeployData(args ...any) ([]byte, error) {
	inputs := a.ABI.Constructor.Inputs
	if len(args) != len(inputs) {
		return nil, fmt.Errorf("%w: %s constructor expects %d argument(s), got %d",
			ErrConstructorArgument, a.Name, len(inputs), len(args))
	}
	vals := make([]any, len(args))
	for i := range args {
		var err error
		vals[i], err = convert(inputs[i].Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %s constructor argument #%d (%s %s): %v",
				ErrConstructorArgument, a.Name, i, inputs[i].Type, inputs[i].Name, err)
		}
	}
	packed, err := inputs.Pack(vals...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConstructorArgument, a.Name, err)
	}
	res := make([]byte, 0, len(a.Bytecode)+len(packed))
	res = append(res, a.Bytecode...)
	return append(res, packed...), nil
}
