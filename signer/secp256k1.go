package signer

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
)

// secp256k1 parameters (SEC 2, section 2.4.1). No dependency in the
// retrieval pack implements this curve, and stdlib crypto/elliptic's
// generic CurveParams group law assumes a=-3, which secp256k1 (a=0)
// does not satisfy — so its arithmetic is implemented here directly
// over affine big.Int coordinates rather than borrowed from either.
var (
	secp256k1P  = bigFromHex("fffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f")
	secp256k1N  = bigFromHex("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")
	secp256k1Gx = bigFromHex("79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	secp256k1Gy = bigFromHex("483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8")
)

func bigFromHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("signer: invalid secp256k1 constant " + s)
	}
	return n
}

type point struct {
	X, Y *big.Int
}

func (p point) isInfinity() bool {
	return p.X == nil || p.Y == nil
}

var infinity = point{}

func secp256k1Base() point {
	return point{X: new(big.Int).Set(secp256k1Gx), Y: new(big.Int).Set(secp256k1Gy)}
}

func mod(a *big.Int) *big.Int {
	return new(big.Int).Mod(a, secp256k1P)
}

func pointDouble(p point) point {
	if p.isInfinity() {
		return infinity
	}
	// lambda = (3*x^2) / (2*y) mod p   (a = 0 for secp256k1)
	xx := new(big.Int).Mul(p.X, p.X)
	num := mod(new(big.Int).Mul(big.NewInt(3), xx))
	den := mod(new(big.Int).Mul(big.NewInt(2), p.Y))
	denInv := new(big.Int).ModInverse(den, secp256k1P)
	if denInv == nil {
		return infinity
	}
	lambda := mod(new(big.Int).Mul(num, denInv))

	x3 := mod(new(big.Int).Sub(mod(new(big.Int).Mul(lambda, lambda)), mod(new(big.Int).Mul(big.NewInt(2), p.X))))
	y3 := mod(new(big.Int).Sub(mod(new(big.Int).Mul(lambda, new(big.Int).Sub(p.X, x3))), p.Y))
	return point{X: x3, Y: y3}
}

func pointAdd(p1, p2 point) point {
	if p1.isInfinity() {
		return p2
	}
	if p2.isInfinity() {
		return infinity
	}
	if p1.X.Cmp(p2.X) == 0 {
		if p1.Y.Cmp(p2.Y) == 0 {
			return pointDouble(p1)
		}
		return infinity
	}
	num := mod(new(big.Int).Sub(p2.Y, p1.Y))
	den := mod(new(big.Int).Sub(p2.X, p1.X))
	denInv := new(big.Int).ModInverse(den, secp256k1P)
	if denInv == nil {
		return infinity
	}
	lambda := mod(new(big.Int).Mul(num, denInv))

	x3 := mod(new(big.Int).Sub(mod(new(big.Int).Mul(lambda, lambda)), new(big.Int).Add(p1.X, p2.X)))
	y3 := mod(new(big.Int).Sub(mod(new(big.Int).Mul(lambda, new(big.Int).Sub(p1.X, x3))), p1.Y))
	return point{X: x3, Y: y3}
}

// scalarMult computes k*P via double-and-add.
func scalarMult(k *big.Int, p point) point {
	result := infinity
	addend := p
	kBits := new(big.Int).Set(k)
	for kBits.Sign() > 0 {
		if kBits.Bit(0) == 1 {
			result = pointAdd(result, addend)
		}
		addend = pointDouble(addend)
		kBits.Rsh(kBits, 1)
	}
	return result
}

// secp256k1KeyPair holds a raw scalar private key and its curve point.
type secp256k1KeyPair struct {
	priv *big.Int
	pub  point
}

func generateSecp256k1() (*secp256k1KeyPair, error) {
	priv, err := rand.Int(rand.Reader, new(big.Int).Sub(secp256k1N, big.NewInt(1)))
	if err != nil {
		return nil, fmt.Errorf("signer: generating secp256k1 key: %w", err)
	}
	priv.Add(priv, big.NewInt(1))
	pub := scalarMult(priv, secp256k1Base())
	return &secp256k1KeyPair{priv: priv, pub: pub}, nil
}

// secp256k1Sign produces a deterministic-length (r||s), 64-byte ECDSA
// signature over sha256(payload).
func secp256k1Sign(kp *secp256k1KeyPair, payload []byte) ([]byte, error) {
	h := sha256.Sum256(payload)
	z := new(big.Int).SetBytes(h[:])

	for {
		k, err := rand.Int(rand.Reader, new(big.Int).Sub(secp256k1N, big.NewInt(1)))
		if err != nil {
			return nil, fmt.Errorf("signer: generating nonce: %w", err)
		}
		k.Add(k, big.NewInt(1))

		R := scalarMult(k, secp256k1Base())
		r := new(big.Int).Mod(R.X, secp256k1N)
		if r.Sign() == 0 {
			continue
		}

		kInv := new(big.Int).ModInverse(k, secp256k1N)
		if kInv == nil {
			continue
		}
		s := new(big.Int).Mul(r, kp.priv)
		s.Add(s, z)
		s.Mul(s, kInv)
		s.Mod(s, secp256k1N)
		if s.Sign() == 0 {
			continue
		}
		// Canonicalize to the low-s form to avoid signature malleability.
		half := new(big.Int).Rsh(secp256k1N, 1)
		if s.Cmp(half) > 0 {
			s.Sub(secp256k1N, s)
		}

		out := make([]byte, 64)
		r.FillBytes(out[:32])
		s.FillBytes(out[32:])
		return out, nil
	}
}

// secp256k1Verify checks a 64-byte (r||s) signature over sha256(payload).
func secp256k1Verify(pub point, payload, sig []byte) bool {
	if len(sig) != 64 {
		return false
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	if r.Sign() <= 0 || r.Cmp(secp256k1N) >= 0 || s.Sign() <= 0 || s.Cmp(secp256k1N) >= 0 {
		return false
	}

	h := sha256.Sum256(payload)
	z := new(big.Int).SetBytes(h[:])

	sInv := new(big.Int).ModInverse(s, secp256k1N)
	if sInv == nil {
		return false
	}
	u1 := new(big.Int).Mod(new(big.Int).Mul(z, sInv), secp256k1N)
	u2 := new(big.Int).Mod(new(big.Int).Mul(r, sInv), secp256k1N)

	p1 := scalarMult(u1, secp256k1Base())
	p2 := scalarMult(u2, pub)
	R := pointAdd(p1, p2)
	if R.isInfinity() {
		return false
	}
	return new(big.Int).Mod(R.X, secp256k1N).Cmp(r) == 0
}

// encodeSecp256k1PublicKey returns the uncompressed SEC1 point
// encoding: 0x04 || X || Y, each 32 bytes.
func encodeSecp256k1PublicKey(p point) []byte {
	out := make([]byte, 65)
	out[0] = 0x04
	p.X.FillBytes(out[1:33])
	p.Y.FillBytes(out[33:65])
	return out
}

func decodeSecp256k1PublicKey(raw []byte) (point, error) {
	if len(raw) != 65 || raw[0] != 0x04 {
		return point{}, fmt.Errorf("signer: expected 65-byte uncompressed secp256k1 point")
	}
	return point{
		X: new(big.Int).SetBytes(raw[1:33]),
		Y: new(big.Int).SetBytes(raw[33:65]),
	}, nil
}
