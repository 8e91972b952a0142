package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ContractID identifies one of the contracts this tool knows how to
// deploy. The String form doubles as the env var under which a
// predeployed address can be supplied and as the key written to the
// exported .env file.
type ContractID int

const (
	PlonkVerifier ContractID = iota
	StateUpdateVK
	LightClient
	LightClientProxy
)

func (c ContractID) String() string {
	switch c {
	case PlonkVerifier:
		return "ESPRESSO_SEQUENCER_PLONK_VERIFIER_ADDRESS"
	case StateUpdateVK:
		return "ESPRESSO_SEQUENCER_LIGHT_CLIENT_STATE_UPDATE_VK_ADDRESS"
	case LightClient:
		return "ESPRESSO_SEQUENCER_LIGHT_CLIENT_ADDRESS"
	case LightClientProxy:
		return "ESPRESSO_SEQUENCER_LIGHT_CLIENT_PROXY_ADDRESS"
	default:
		return fmt.Sprintf("ContractID(%d)", int(c))
	}
}

// DeployedContracts carries one optional predeployed address per contract.
// A zero address means "not predeployed". How the fields get populated
// (flags, env, .env file) is the caller's business.
type DeployedContracts struct {
	PlonkVerifier    common.Address
	StateUpdateVK    common.Address
	LightClient      common.Address
	LightClientProxy common.Address
}

// Contracts seeds a fresh cache with every non-zero predeployed address.
func (d DeployedContracts) Contracts() *Contracts {
	c := NewContracts()
	for id, addr := range map[ContractID]common.Address{
		PlonkVerifier:    d.PlonkVerifier,
		StateUpdateVK:    d.StateUpdateVK,
		LightClient:      d.LightClient,
		LightClientProxy: d.LightClientProxy,
	} {
		if addr != (common.Address{}) {
			c.Record(id, addr)
		}
	}
	return c
}

// Contracts is the cache of contracts predeployed or deployed during the
// current run. It is owned by a single deployment flow and is not safe for
// concurrent use; recursive use through DeployFn is fine because nested
// calls complete before the caller resumes.
type Contracts struct {
	addrs map[ContractID]common.Address
}

func NewContracts() *Contracts {
	return &Contracts{addrs: make(map[ContractID]common.Address)}
}

// Address returns the cached address for name, if any.
func (c *Contracts) Address(name ContractID) (common.Address, bool) {
	addr, ok := c.addrs[name]
	return addr, ok
}

// Record inserts or overwrites the entry for name. DeployFn calls this
// exactly once per contract per run, immediately after a successful
// deployment; callers normally have no reason to call it directly.
func (c *Contracts) Record(name ContractID, addr common.Address) {
	c.addrs[name] = addr
}

// Entry is one exported cache line.
type Entry struct {
	Contract ContractID
	Address  common.Address
}

// Entries returns the cache contents in declaration order of ContractID,
// so exports are deterministic.
func (c *Contracts) Entries() []Entry {
	entries := make([]Entry, 0, len(c.addrs))
	for name, addr := range c.addrs {
		entries = append(entries, Entry{Contract: name, Address: addr})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Contract < entries[j].Contract
	})
	return entries
}

// Write writes the cache as a .env file, one NAME=0xaddress line per entry.
func (c *Contracts) Write(w io.Writer) error {
	for _, e := range c.Entries() {
		if _, err := fmt.Fprintf(w, "%s=%s\n", e.Contract, strings.ToLower(e.Address.Hex())); err != nil {
			return err
		}
	}
	return nil
}

// DeployError reports which contract's deployment failed.
type DeployError struct {
	Contract ContractID
	Err      error
}

func (e *DeployError) Error() string {
	return fmt.Sprintf("deploy %s: %v", e.Contract, e.Err)
}

func (e *DeployError) Unwrap() error { return e.Err }

// DeployFunc deploys one contract and returns its address. It receives the
// shared cache so it can deploy its own dependencies through DeployFn or
// DeployTx first.
type DeployFunc func(ctx context.Context, c *Contracts) (common.Address, error)

// Backend broadcasts a creation transaction and waits until the contract
// exists. *Deployer is the production implementation.
type Backend interface {
	CreateContract(ctx context.Context, code, constructorArgs []byte, gasLimit uint64) (common.Address, error)
}

// CreationTx is a prepared creation transaction: fully linked code, the
// ABI-encoded constructor arguments to append, and a gas limit.
type CreationTx struct {
	Code            []byte
	ConstructorArgs []byte
	GasLimit        uint64
}

// DeployFn deploys a contract by calling a function.
//
// deploy is invoked only if name is not already in the cache; otherwise
// the cached address is returned without any backend traffic. deploy
// receives this same cache, so contracts can be deployed recursively in
// dependency order, each level memoized independently. The dependency
// graph is assumed acyclic; a cycle recurses without bound.
//
// On failure nothing is recorded for name, but entries recorded for
// dependencies that already succeeded remain in the cache.
func (c *Contracts) DeployFn(ctx context.Context, name ContractID, deploy DeployFunc) (common.Address, error) {
	if addr, ok := c.addrs[name]; ok {
		slog.Info("skipping deployment, already deployed", "contract", name.String(), "address", strings.ToLower(addr.Hex()))
		return addr, nil
	}
	slog.Info("deploying", "contract", name.String())
	addr, err := deploy(ctx, c)
	if err != nil {
		return common.Address{}, &DeployError{Contract: name, Err: err}
	}
	slog.Info("deployed", "contract", name.String(), "address", strings.ToLower(addr.Hex()))

	c.addrs[name] = addr
	return addr, nil
}

// DeployTx deploys a contract by broadcasting a prepared creation
// transaction. The transaction is only broadcast if name is not already
// in the cache.
func (c *Contracts) DeployTx(ctx context.Context, name ContractID, backend Backend, tx CreationTx) (common.Address, error) {
	return c.DeployFn(ctx, name, func(ctx context.Context, _ *Contracts) (common.Address, error) {
		return backend.CreateContract(ctx, tx.Code, tx.ConstructorArgs, tx.GasLimit)
	})
}
