package signer

import (
	"context"
	"crypto/ed25519"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/vqp-project/responder/core"
)

func TestSignAndVerifyEd25519Default(t *testing.T) {
	s := New()
	payload := []byte(`{"queryId":"1","result":true,"timestamp":"2026-01-01T00:00:00Z","responder":"did:example:r"}`)

	proof, err := s.Sign(context.Background(), payload, "default")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if proof.Algorithm != core.AlgorithmEd25519 {
		t.Errorf("got algorithm %q, want ed25519", proof.Algorithm)
	}

	ok, err := s.Verify(context.Background(), proof, payload, proof.PublicKey)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("expected signature to verify")
	}
}

func TestVerifyFailsOnTamperedPayload(t *testing.T) {
	s := New()
	payload := []byte("original")
	proof, err := s.Sign(context.Background(), payload, "default")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	ok, err := s.Verify(context.Background(), proof, []byte("tampered"), proof.PublicKey)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("expected verification to fail on tampered payload")
	}
}

func TestSignAndVerifySecp256k1(t *testing.T) {
	s := New()
	if err := s.Registry().GenerateKeyPair("k1", core.AlgorithmSecp256k1); err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	payload := []byte("secp256k1 payload")
	proof, err := s.Sign(context.Background(), payload, "k1")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	ok, err := s.Verify(context.Background(), proof, payload, proof.PublicKey)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("expected secp256k1 signature to verify")
	}
}

func TestSignAndVerifyRSAPSS(t *testing.T) {
	s := New()
	if err := s.Registry().GenerateKeyPair("k2", core.AlgorithmRSAPSS); err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	payload := []byte("rsa-pss payload")
	proof, err := s.Sign(context.Background(), payload, "k2")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	ok, err := s.Verify(context.Background(), proof, payload, proof.PublicKey)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("expected RSA-PSS signature to verify")
	}
}

func TestDefaultKeyIsStableAcrossCalls(t *testing.T) {
	s := New()
	pub1, err := s.Registry().publicKeyHex("default")
	if err != nil {
		t.Fatalf("publicKeyHex: %v", err)
	}
	pub2, err := s.Registry().publicKeyHex("default")
	if err != nil {
		t.Fatalf("publicKeyHex: %v", err)
	}
	if pub1 != pub2 {
		t.Error("expected default key to be generated once and reused")
	}
}

func TestUseWeakKeyDirRejectsBlocklistedKey(t *testing.T) {
	// Generate the key we're about to blocklist first, so its
	// fingerprint suffix is known ahead of time, then confirm a
	// registry configured with that blocklist refuses to accept it.
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating test key: %v", err)
	}
	sum := sha1.Sum(pub)
	suffix := hex.EncodeToString(sum[len(sum)-10:])

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blocklist"), []byte(suffix+"\n"), 0644); err != nil {
		t.Fatalf("writing blocklist file: %v", err)
	}

	s := New()
	if err := s.Registry().UseWeakKeyDir(dir); err != nil {
		t.Fatalf("UseWeakKeyDir: %v", err)
	}
	if err := s.registry.policy.GoodKey(pub); err == nil {
		t.Error("expected the blocklisted key to be rejected by the loaded policy")
	}
}

func TestUseWeakKeyDirMissingDirectoryErrors(t *testing.T) {
	s := New()
	if err := s.Registry().UseWeakKeyDir(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Error("expected an error loading a nonexistent weak key directory")
	}
}

func TestUnregisteredKeyIDFails(t *testing.T) {
	s := New()
	_, err := s.Sign(context.Background(), []byte("x"), "nonexistent")
	if err == nil {
		t.Error("expected signing with an unregistered key id to fail")
	}
}

func TestZKCapableFalseByDefault(t *testing.T) {
	s := New()
	if s.ZKCapable() {
		t.Error("expected ZKCapable false without WithZKToolchain")
	}
	_, err := s.GenerateZKProof(context.Background(), "any", nil)
	if err == nil {
		t.Error("expected GenerateZKProof to fail without a ZK toolchain")
	}
}

func TestZKToolchainGenerateAndVerify(t *testing.T) {
	s := New(WithZKToolchain(Circuit{Name: "age-over-18", Inputs: []string{"age", "threshold"}}))
	if !s.ZKCapable() {
		t.Fatal("expected ZKCapable true with WithZKToolchain")
	}

	proof, err := s.GenerateZKProof(context.Background(), "age-over-18", map[string]interface{}{"age": 30, "threshold": 18})
	if err != nil {
		t.Fatalf("GenerateZKProof: %v", err)
	}
	proof.ZKProof = []byte("placeholder-proof-bytes")

	ok, err := s.VerifyZKProof(context.Background(), proof, map[string]interface{}{"threshold": 18})
	if err != nil {
		t.Fatalf("VerifyZKProof: %v", err)
	}
	if !ok {
		t.Error("expected ZK proof with non-empty bytes to verify structurally")
	}
}

func TestZKToolchainRejectsMissingInput(t *testing.T) {
	s := New(WithZKToolchain(Circuit{Name: "c", Inputs: []string{"a", "b"}}))
	_, err := s.GenerateZKProof(context.Background(), "c", map[string]interface{}{"a": 1})
	if err == nil {
		t.Error("expected error for missing required circuit input")
	}
}

func TestListCircuits(t *testing.T) {
	zk := newZKToolchain()
	zk.loadCircuit(Circuit{Name: "b"})
	zk.loadCircuit(Circuit{Name: "a"})
	got := zk.listCircuits()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v, want sorted [a b]", got)
	}
	if !zk.hasCircuit("a") || zk.hasCircuit("z") {
		t.Error("hasCircuit mismatch")
	}
}
