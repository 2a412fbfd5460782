package signer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vqp-project/responder/core"
)

// Circuit is a registered zero-knowledge circuit description. The
// actual proving/verifying keys and constraint system are opaque here:
// no circuit-compiler dependency exists anywhere in this module's
// stack, so this is a contract-only registry that a real ZK toolchain
// (gnark, bellman-via-cgo, a prover microservice) would back in a
// production deployment.
type Circuit struct {
	Name   string
	Inputs []string
}

// zkToolchain is a capability a Signer may or may not carry; its
// presence is what core.CryptoPort.ZKCapable reports.
type zkToolchain struct {
	mu       sync.RWMutex
	circuits map[string]Circuit
}

// newZKToolchain returns an empty circuit registry.
func newZKToolchain() *zkToolchain {
	return &zkToolchain{circuits: make(map[string]Circuit)}
}

// WithZKToolchain equips s with ZK proof capability and a circuit
// registry preloaded with circuits.
func WithZKToolchain(circuits ...Circuit) func(*Signer) {
	return func(s *Signer) {
		zk := newZKToolchain()
		for _, c := range circuits {
			zk.circuits[c.Name] = c
		}
		s.zk = zk
	}
}

// loadCircuit registers or replaces a circuit definition.
func (z *zkToolchain) loadCircuit(c Circuit) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.circuits[c.Name] = c
}

// hasCircuit reports whether name is registered.
func (z *zkToolchain) hasCircuit(name string) bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	_, ok := z.circuits[name]
	return ok
}

// listCircuits returns the registered circuit names, sorted.
func (z *zkToolchain) listCircuits() []string {
	z.mu.RLock()
	defer z.mu.RUnlock()
	names := make([]string, 0, len(z.circuits))
	for name := range z.circuits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// generate produces a ZK proof contract object. Without a backing
// prover this only validates that the circuit is registered and that
// every input it declares was supplied; it does not produce a
// cryptographically sound proof.
func (z *zkToolchain) generate(circuit string, inputs map[string]interface{}) (core.Proof, error) {
	z.mu.RLock()
	c, ok := z.circuits[circuit]
	z.mu.RUnlock()
	if !ok {
		return core.Proof{}, fmt.Errorf("signer: unregistered ZK circuit %q", circuit)
	}
	for _, name := range c.Inputs {
		if _, ok := inputs[name]; !ok {
			return core.Proof{}, fmt.Errorf("signer: ZK circuit %q missing required input %q", circuit, name)
		}
	}
	return core.Proof{
		Type:    core.ProofTypeZK,
		Circuit: circuit,
	}, nil
}

// verify checks a ZK proof against publicInputs. As with generate,
// without a backing prover this can only check structural agreement
// with the registered circuit.
func (z *zkToolchain) verify(proof core.Proof, publicInputs map[string]interface{}) (bool, error) {
	if proof.Type != core.ProofTypeZK {
		return false, fmt.Errorf("signer: verify called with proof type %q, want zk-snark", proof.Type)
	}
	z.mu.RLock()
	_, ok := z.circuits[proof.Circuit]
	z.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("signer: unregistered ZK circuit %q", proof.Circuit)
	}
	return len(proof.ZKProof) > 0, nil
}
