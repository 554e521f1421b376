// Copyright 2014 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"maps"
	"math"
	"math/big"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fp"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core/tracing"
	"github.com/sunyihoo/go-evm/crypto"
	"github.com/sunyihoo/go-evm/crypto/blake2b"
	"github.com/sunyihoo/go-evm/crypto/bn256"
	"github.com/sunyihoo/go-evm/crypto/kzg4844"
	"github.com/sunyihoo/go-evm/crypto/secp256r1"
	"github.com/sunyihoo/go-evm/params"
	"golang.org/x/crypto/ripemd160"
)

// PrecompiledContract is the basic interface for native Go contracts. The implementation
// requires a deterministic gas count based on the input size of the Run method of the
// contract.
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64  // RequiredPrice calculates the contract gas use
	Run(input []byte) ([]byte, error) // Run runs the precompiled contract
	Name() string
}

// PrecompiledContracts contains the precompiled contracts supported at the given fork.
type PrecompiledContracts map[common.Address]PrecompiledContract

// Lookup returns the contract registered at addr. A miss means the call
// proceeds as an ordinary contract call.
func (p PrecompiledContracts) Lookup(addr common.Address) (PrecompiledContract, bool) {
	c, ok := p[addr]
	return c, ok
}

// PrecompiledContractsHomestead contains the default set of pre-compiled Ethereum
// contracts used in the Frontier and Homestead releases.
var PrecompiledContractsHomestead = PrecompiledContracts{
	common.BytesToAddress([]byte{0x1}): &ecrecover{},
	common.BytesToAddress([]byte{0x2}): &sha256hash{},
	common.BytesToAddress([]byte{0x3}): &ripemd160hash{},
	common.BytesToAddress([]byte{0x4}): &dataCopy{},
}

// PrecompiledContractsByzantium contains the default set of pre-compiled Ethereum
// contracts used in the Byzantium release.
var PrecompiledContractsByzantium = PrecompiledContracts{
	common.BytesToAddress([]byte{0x1}): &ecrecover{},
	common.BytesToAddress([]byte{0x2}): &sha256hash{},
	common.BytesToAddress([]byte{0x3}): &ripemd160hash{},
	common.BytesToAddress([]byte{0x4}): &dataCopy{},
	common.BytesToAddress([]byte{0x5}): &bigModExp{schedule: modExpEIP198},
	common.BytesToAddress([]byte{0x6}): &bn256AddByzantium{},
	common.BytesToAddress([]byte{0x7}): &bn256ScalarMulByzantium{},
	common.BytesToAddress([]byte{0x8}): &bn256PairingByzantium{},
}

// PrecompiledContractsIstanbul contains the default set of pre-compiled Ethereum
// contracts used in the Istanbul release.
var PrecompiledContractsIstanbul = PrecompiledContracts{
	common.BytesToAddress([]byte{0x1}): &ecrecover{},
	common.BytesToAddress([]byte{0x2}): &sha256hash{},
	common.BytesToAddress([]byte{0x3}): &ripemd160hash{},
	common.BytesToAddress([]byte{0x4}): &dataCopy{},
	common.BytesToAddress([]byte{0x5}): &bigModExp{schedule: modExpEIP198},
	common.BytesToAddress([]byte{0x6}): &bn256AddIstanbul{},
	common.BytesToAddress([]byte{0x7}): &bn256ScalarMulIstanbul{},
	common.BytesToAddress([]byte{0x8}): &bn256PairingIstanbul{},
	common.BytesToAddress([]byte{0x9}): &blake2F{},
}

// PrecompiledContractsBerlin contains the default set of pre-compiled Ethereum
// contracts used in the Berlin release.
var PrecompiledContractsBerlin = PrecompiledContracts{
	common.BytesToAddress([]byte{0x1}): &ecrecover{},
	common.BytesToAddress([]byte{0x2}): &sha256hash{},
	common.BytesToAddress([]byte{0x3}): &ripemd160hash{},
	common.BytesToAddress([]byte{0x4}): &dataCopy{},
	common.BytesToAddress([]byte{0x5}): &bigModExp{schedule: modExpEIP2565},
	common.BytesToAddress([]byte{0x6}): &bn256AddIstanbul{},
	common.BytesToAddress([]byte{0x7}): &bn256ScalarMulIstanbul{},
	common.BytesToAddress([]byte{0x8}): &bn256PairingIstanbul{},
	common.BytesToAddress([]byte{0x9}): &blake2F{},
}

// PrecompiledContractsCancun contains the default set of pre-compiled Ethereum
// contracts used in the Cancun release.
var PrecompiledContractsCancun = PrecompiledContracts{
	common.BytesToAddress([]byte{0x1}): &ecrecover{},
	common.BytesToAddress([]byte{0x2}): &sha256hash{},
	common.BytesToAddress([]byte{0x3}): &ripemd160hash{},
	common.BytesToAddress([]byte{0x4}): &dataCopy{},
	common.BytesToAddress([]byte{0x5}): &bigModExp{schedule: modExpEIP2565},
	common.BytesToAddress([]byte{0x6}): &bn256AddIstanbul{},
	common.BytesToAddress([]byte{0x7}): &bn256ScalarMulIstanbul{},
	common.BytesToAddress([]byte{0x8}): &bn256PairingIstanbul{},
	common.BytesToAddress([]byte{0x9}): &blake2F{},
	common.BytesToAddress([]byte{0xa}): &kzgPointEvaluation{},
}

// PrecompiledContractsPrague contains the set of pre-compiled Ethereum
// contracts used in the Prague release.
var PrecompiledContractsPrague = PrecompiledContracts{
	common.BytesToAddress([]byte{0x01}): &ecrecover{},
	common.BytesToAddress([]byte{0x02}): &sha256hash{},
	common.BytesToAddress([]byte{0x03}): &ripemd160hash{},
	common.BytesToAddress([]byte{0x04}): &dataCopy{},
	common.BytesToAddress([]byte{0x05}): &bigModExp{schedule: modExpEIP2565},
	common.BytesToAddress([]byte{0x06}): &bn256AddIstanbul{},
	common.BytesToAddress([]byte{0x07}): &bn256ScalarMulIstanbul{},
	common.BytesToAddress([]byte{0x08}): &bn256PairingIstanbul{},
	common.BytesToAddress([]byte{0x09}): &blake2F{},
	common.BytesToAddress([]byte{0x0a}): &kzgPointEvaluation{},
	common.BytesToAddress([]byte{0x0b}): &bls12381G1Add{},
	common.BytesToAddress([]byte{0x0c}): &bls12381G1MultiExp{},
	common.BytesToAddress([]byte{0x0d}): &bls12381G2Add{},
	common.BytesToAddress([]byte{0x0e}): &bls12381G2MultiExp{},
	common.BytesToAddress([]byte{0x0f}): &bls12381Pairing{},
	common.BytesToAddress([]byte{0x10}): &bls12381MapG1{},
	common.BytesToAddress([]byte{0x11}): &bls12381MapG2{},
}

// PrecompiledContractsOsaka reprices MODEXP and adds P256VERIFY.
var PrecompiledContractsOsaka = func() PrecompiledContracts {
	c := maps.Clone(PrecompiledContractsPrague)
	c[common.BytesToAddress([]byte{0x05})] = &bigModExp{schedule: modExpEIP7883}
	c[common.BytesToAddress([]byte{0x01, 0x00})] = &p256Verify{}
	return c
}()

var (
	PrecompiledAddressesOsaka     []common.Address
	PrecompiledAddressesPrague    []common.Address
	PrecompiledAddressesCancun    []common.Address
	PrecompiledAddressesBerlin    []common.Address
	PrecompiledAddressesIstanbul  []common.Address
	PrecompiledAddressesByzantium []common.Address
	PrecompiledAddressesHomestead []common.Address
)

// sortedAddresses lists the keys of set in ascending order.
func sortedAddresses(set PrecompiledContracts) []common.Address {
	addrs := make([]common.Address, 0, len(set))
	for k := range set {
		addrs = append(addrs, k)
	}
	for i := 1; i < len(addrs); i++ {
		for j := i; j > 0 && addrs[j].Cmp(addrs[j-1]) < 0; j-- {
			addrs[j], addrs[j-1] = addrs[j-1], addrs[j]
		}
	}
	return addrs
}

func init() {
	PrecompiledAddressesHomestead = sortedAddresses(PrecompiledContractsHomestead)
	PrecompiledAddressesByzantium = sortedAddresses(PrecompiledContractsByzantium)
	PrecompiledAddressesIstanbul = sortedAddresses(PrecompiledContractsIstanbul)
	PrecompiledAddressesBerlin = sortedAddresses(PrecompiledContractsBerlin)
	PrecompiledAddressesCancun = sortedAddresses(PrecompiledContractsCancun)
	PrecompiledAddressesPrague = sortedAddresses(PrecompiledContractsPrague)
	PrecompiledAddressesOsaka = sortedAddresses(PrecompiledContractsOsaka)
}

// ActivePrecompiledContracts returns the precompiled contracts enabled with
// the current configuration. The returned map is a copy the caller may
// modify.
func ActivePrecompiledContracts(rules params.Rules) PrecompiledContracts {
	return maps.Clone(activePrecompiledContracts(rules))
}

func activePrecompiledContracts(rules params.Rules) PrecompiledContracts {
	switch {
	case rules.IsOsaka:
		return PrecompiledContractsOsaka
	case rules.IsPrague:
		return PrecompiledContractsPrague
	case rules.IsCancun:
		return PrecompiledContractsCancun
	case rules.IsBerlin:
		return PrecompiledContractsBerlin
	case rules.IsIstanbul:
		return PrecompiledContractsIstanbul
	case rules.IsByzantium:
		return PrecompiledContractsByzantium
	default:
		return PrecompiledContractsHomestead
	}
}

// ActivePrecompiles returns the precompile addresses enabled with the current configuration.
func ActivePrecompiles(rules params.Rules) []common.Address {
	switch {
	case rules.IsOsaka:
		return PrecompiledAddressesOsaka
	case rules.IsPrague:
		return PrecompiledAddressesPrague
	case rules.IsCancun:
		return PrecompiledAddressesCancun
	case rules.IsBerlin:
		return PrecompiledAddressesBerlin
	case rules.IsIstanbul:
		return PrecompiledAddressesIstanbul
	case rules.IsByzantium:
		return PrecompiledAddressesByzantium
	default:
		return PrecompiledAddressesHomestead
	}
}

// RunPrecompiledContract runs and evaluates the output of a precompiled contract.
// It returns
// - the returned bytes,
// - the _remaining_ gas,
// - any error that occurred
//
// Insufficient gas yields ErrOutOfGas, malformed input a *PrecompileError.
// 预编译合约出错等同于调用失败，剩余 gas 由调用方清零。
func RunPrecompiledContract(p PrecompiledContract, input []byte, suppliedGas uint64, logger *tracing.Hooks) (ret []byte, remainingGas uint64, err error) {
	gasCost := p.RequiredGas(input)
	if suppliedGas < gasCost {
		return nil, 0, ErrOutOfGas
	}
	if logger != nil && logger.OnGasChange != nil {
		logger.OnGasChange(suppliedGas, suppliedGas-gasCost, tracing.GasChangeCallPrecompiledContract)
	}
	suppliedGas -= gasCost
	output, err := p.Run(input)
	if err != nil {
		return nil, suppliedGas, &PrecompileError{Name: p.Name(), Err: err}
	}
	return output, suppliedGas, nil
}

// ecrecover implemented as a native contract.
type ecrecover struct{}

func (c *ecrecover) RequiredGas(input []byte) uint64 {
	return params.EcrecoverGas
}

// Run never fails: malformed signatures produce empty output.
// 签名不合法时返回空输出而不是错误。
func (c *ecrecover) Run(input []byte) ([]byte, error) {
	const ecRecoverInputLength = 128

	input = common.RightPadBytes(input, ecRecoverInputLength)
	// "input" is (hash, v, r, s), each 32 bytes
	// but for ecrecover we want (r, s, v)

	r := new(big.Int).SetBytes(input[64:96])
	s := new(big.Int).SetBytes(input[96:128])
	v := input[63] - 27

	// s must lie in the lower half of the order, malleable signatures
	// recover nothing
	if !allZero(input[32:63]) || !crypto.ValidateSignatureValues(v, r, s, true) {
		return nil, nil
	}
	// We must make sure not to modify the 'input', so placing the 'v' along with
	// the signature needs to be done on a new allocation
	sig := make([]byte, 65)
	copy(sig, input[64:128])
	sig[64] = v
	// v needs to be at the end for libsecp256k1
	pubKey, err := crypto.Ecrecover(input[:32], sig)
	// make sure the public key is a valid one
	if err != nil {
		return nil, nil
	}

	// the first byte of pubkey is bitcoin heritage
	return common.LeftPadBytes(crypto.Keccak256(pubKey[1:])[12:], 32), nil
}

func (c *ecrecover) Name() string {
	return "ECREC"
}

// SHA256 implemented as a native contract.
type sha256hash struct{}

// RequiredGas returns the gas required to execute the pre-compiled contract.
//
// This method does not require any overflow checking as the input size gas costs
// required for anything significant is so high it's impossible to pay for.
func (c *sha256hash) RequiredGas(input []byte) uint64 {
	return uint64(len(input)+31)/32*params.Sha256PerWordGas + params.Sha256BaseGas
}

func (c *sha256hash) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

func (c *sha256hash) Name() string {
	return "SHA256"
}

// RIPEMD160 implemented as a native contract.
type ripemd160hash struct{}

func (c *ripemd160hash) RequiredGas(input []byte) uint64 {
	return uint64(len(input)+31)/32*params.Ripemd160PerWordGas + params.Ripemd160BaseGas
}

func (c *ripemd160hash) Run(input []byte) ([]byte, error) {
	ripemd := ripemd160.New()
	ripemd.Write(input)
	return common.LeftPadBytes(ripemd.Sum(nil), 32), nil
}

func (c *ripemd160hash) Name() string {
	return "RIPEMD160"
}

// data copy implemented as a native contract.
type dataCopy struct{}

func (c *dataCopy) RequiredGas(input []byte) uint64 {
	return uint64(len(input)+31)/32*params.IdentityPerWordGas + params.IdentityBaseGas
}

func (c *dataCopy) Run(in []byte) ([]byte, error) {
	return common.CopyBytes(in), nil
}

func (c *dataCopy) Name() string {
	return "ID"
}

// modExpSchedule selects the MODEXP pricing rules.
type modExpSchedule int

const (
	modExpEIP198  modExpSchedule = iota // Byzantium
	modExpEIP2565                       // Berlin
	modExpEIP7883                       // Osaka, with the EIP-7823 input bounds
)

// bigModExp implements a native big integer exponential modular operation.
type bigModExp struct {
	schedule modExpSchedule
}

// modExpMultComplexityEIP198 implements the multiplication complexity of
// EIP-198:
//
//	if x <= 64: return x ** 2
//	elif x <= 1024: return x ** 2 // 4 + 96 * x - 3072
//	else: return x ** 2 // 16 + 480 * x - 199680
//
// where is x is max(base_length, modulus_length)
func modExpMultComplexityEIP198(x uint64) uint64 {
	xx := x * x
	switch {
	case x <= 64:
		return xx
	case x <= 1024:
		return xx/4 + 96*x - 3072
	default:
		return xx/16 + 480*x - 199680
	}
}

// modExpMultComplexityEIP2565 is ceil(x/8)**2.
func modExpMultComplexityEIP2565(x uint64) uint64 {
	words := (x + 7) / 8
	return words * words
}

// modExpMultComplexityEIP7883 is 16 for inputs up to 32 bytes, twice the
// EIP-2565 complexity above that.
func modExpMultComplexityEIP7883(x uint64) uint64 {
	if x > 32 {
		return 2 * modExpMultComplexityEIP2565(x)
	}
	return 16
}

// RequiredGas returns the gas required to execute the pre-compiled contract.
// 三种计价规则共用同一骨架：复杂度 × 迭代次数 / 除数，再取下限。
func (c *bigModExp) RequiredGas(input []byte) uint64 {
	var (
		minGas       uint64
		adjExpFactor uint64
		divisor      uint64
		complexity   func(uint64) uint64
	)
	switch c.schedule {
	case modExpEIP7883:
		minGas, adjExpFactor, divisor, complexity = params.ModExpMinGasEIP7883, 16, 1, modExpMultComplexityEIP7883
	case modExpEIP2565:
		minGas, adjExpFactor, divisor, complexity = params.ModExpMinGasEIP2565, 8, params.ModExpQuadCoeffDivEIP2565, modExpMultComplexityEIP2565
	default:
		minGas, adjExpFactor, divisor, complexity = 0, 8, params.ModExpQuadCoeffDivEIP198, modExpMultComplexityEIP198
	}

	header := getData(input, 0, 3*32)
	baseLen256 := new(uint256.Int).SetBytes32(header[0:32])
	expLen256 := new(uint256.Int).SetBytes32(header[32:64])
	modLen256 := new(uint256.Int).SetBytes32(header[64:96])

	// Lengths beyond uint32 are unpayable.
	const lenLimit = math.MaxUint32
	if baseLen256.CmpUint64(lenLimit) > 0 || modLen256.CmpUint64(lenLimit) > 0 {
		return math.MaxUint64
	}
	if expLen256.CmpUint64(lenLimit) > 0 {
		// A zero multiplication complexity cancels the huge exponent
		// under the older schedules.
		if c.schedule != modExpEIP7883 && baseLen256.IsZero() && modLen256.IsZero() {
			return minGas
		}
		return math.MaxUint64
	}
	var (
		baseLen = baseLen256.Uint64()
		expLen  = expLen256.Uint64()
		modLen  = modLen256.Uint64()
	)
	if len(input) > 96 {
		input = input[96:]
	} else {
		input = input[:0]
	}
	// Retrieve the head 32 bytes of exp for the adjusted exponent length
	expHeadLen := min(expLen, 32)
	expHead := new(big.Int).SetBytes(getData(input, baseLen, expHeadLen))

	var adjExpLen uint64
	if bitlen := expHead.BitLen(); bitlen > 0 {
		adjExpLen = uint64(bitlen - 1)
	}
	if expLen > 32 {
		adjExpLen += adjExpFactor * (expLen - 32)
	}
	adjExpLen = max(adjExpLen, 1)

	gasHi, gasLo := bits.Mul64(complexity(max(baseLen, modLen)), adjExpLen)
	if gasHi != 0 {
		return math.MaxUint64
	}
	return max(gasLo/divisor, minGas)
}

var (
	errModExpBaseLengthTooLarge     = errors.New("base length is too large")
	errModExpExponentLengthTooLarge = errors.New("exponent length is too large")
	errModExpModulusLengthTooLarge  = errors.New("modulus length is too large")
)

func (c *bigModExp) Run(input []byte) ([]byte, error) {
	header := getData(input, 0, 3*32)
	var (
		baseLen = binary.BigEndian.Uint64(header[32-8 : 32])
		expLen  = binary.BigEndian.Uint64(header[64-8 : 64])
		modLen  = binary.BigEndian.Uint64(header[96-8 : 96])

		// 32 - 8 bytes are truncated in the Uint64 conversion above
		baseLenHighZero = allZero(header[0 : 32-8])
		expLenHighZero  = allZero(header[32 : 64-8])
		modLenHighZero  = allZero(header[64 : 96-8])
	)
	if c.schedule == modExpEIP7883 {
		// EIP-7823: upper bounds for the operand lengths
		if !baseLenHighZero || baseLen > params.ModExpMaxInputLenEIP7823 {
			return nil, errModExpBaseLengthTooLarge
		}
		if !expLenHighZero || expLen > params.ModExpMaxInputLenEIP7823 {
			return nil, errModExpExponentLengthTooLarge
		}
		if !modLenHighZero || modLen > params.ModExpMaxInputLenEIP7823 {
			return nil, errModExpModulusLengthTooLarge
		}
	}
	// Handle a special case when both the base and mod length is zero
	if baseLen == 0 && modLen == 0 && modLenHighZero {
		return []byte{}, nil
	}
	if !baseLenHighZero || !expLenHighZero || !modLenHighZero {
		return nil, ErrGasUintOverflow
	}
	if len(input) > 96 {
		input = input[96:]
	} else {
		input = input[:0]
	}
	// Retrieve the operands and execute the exponentiation
	var (
		base = new(big.Int).SetBytes(getData(input, 0, baseLen))
		exp  = new(big.Int).SetBytes(getData(input, baseLen, expLen))
		mod  = new(big.Int).SetBytes(getData(input, baseLen+expLen, modLen))
		v    []byte
	)
	switch {
	case mod.BitLen() == 0:
		// Modulo 0 is undefined, return zero
		return common.LeftPadBytes([]byte{}, int(modLen)), nil
	case base.BitLen() == 1: // a bit length of 1 means it's 1 (or -1).
		// If base == 1, then we can just return base % mod (if mod >= 1, which it is)
		v = base.Mod(base, mod).Bytes()
	default:
		v = base.Exp(base, exp, mod).Bytes()
	}
	return common.LeftPadBytes(v, int(modLen)), nil
}

func (c *bigModExp) Name() string {
	return "MODEXP"
}

// runBn256Add implements the Bn256Add precompile, referenced by both
// Byzantium and Istanbul operations.
func runBn256Add(input []byte) ([]byte, error) {
	x, err := bn256.UnmarshalG1(getData(input, 0, 64))
	if err != nil {
		return nil, err
	}
	y, err := bn256.UnmarshalG1(getData(input, 64, 64))
	if err != nil {
		return nil, err
	}
	return bn256.MarshalG1(bn256.Add(x, y)), nil
}

// bn256AddIstanbul implements a native elliptic curve point addition conforming to
// Istanbul consensus rules.
type bn256AddIstanbul struct{}

func (c *bn256AddIstanbul) RequiredGas(input []byte) uint64 {
	return params.Bn256AddGasIstanbul
}

func (c *bn256AddIstanbul) Run(input []byte) ([]byte, error) {
	return runBn256Add(input)
}

func (c *bn256AddIstanbul) Name() string {
	return "BN254_ADD"
}

// bn256AddByzantium implements a native elliptic curve point addition
// conforming to Byzantium consensus rules.
type bn256AddByzantium struct{}

func (c *bn256AddByzantium) RequiredGas(input []byte) uint64 {
	return params.Bn256AddGasByzantium
}

func (c *bn256AddByzantium) Run(input []byte) ([]byte, error) {
	return runBn256Add(input)
}

func (c *bn256AddByzantium) Name() string {
	return "BN254_ADD"
}

// runBn256ScalarMul implements the Bn256ScalarMul precompile, referenced by
// both Byzantium and Istanbul operations.
func runBn256ScalarMul(input []byte) ([]byte, error) {
	p, err := bn256.UnmarshalG1(getData(input, 0, 64))
	if err != nil {
		return nil, err
	}
	return bn256.MarshalG1(bn256.ScalarMul(p, new(big.Int).SetBytes(getData(input, 64, 32)))), nil
}

type bn256ScalarMulIstanbul struct{}

func (c *bn256ScalarMulIstanbul) RequiredGas(input []byte) uint64 {
	return params.Bn256ScalarMulGasIstanbul
}

func (c *bn256ScalarMulIstanbul) Run(input []byte) ([]byte, error) {
	return runBn256ScalarMul(input)
}

func (c *bn256ScalarMulIstanbul) Name() string {
	return "BN254_MUL"
}

type bn256ScalarMulByzantium struct{}

func (c *bn256ScalarMulByzantium) RequiredGas(input []byte) uint64 {
	return params.Bn256ScalarMulGasByzantium
}

func (c *bn256ScalarMulByzantium) Run(input []byte) ([]byte, error) {
	return runBn256ScalarMul(input)
}

func (c *bn256ScalarMulByzantium) Name() string {
	return "BN254_MUL"
}

var (
	// true32Byte is returned if the bn256 pairing check succeeds.
	true32Byte = []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}

	// false32Byte is returned if the bn256 pairing check fails.
	false32Byte = make([]byte, 32)

	// errBadPairingInput is returned if the bn256 pairing input is invalid.
	errBadPairingInput = errors.New("bad elliptic curve pairing size")
)

// runBn256Pairing implements the Bn256Pairing precompile, referenced by both
// Byzantium and Istanbul operations.
func runBn256Pairing(input []byte) ([]byte, error) {
	// Handle some corner cases cheaply
	if len(input)%192 > 0 {
		return nil, errBadPairingInput
	}
	// Convert the input into a set of coordinates
	var (
		cs = make([]bn256.G1, 0, len(input)/192)
		ts = make([]bn256.G2, 0, len(input)/192)
	)
	for i := 0; i < len(input); i += 192 {
		c, err := bn256.UnmarshalG1(input[i : i+64])
		if err != nil {
			return nil, err
		}
		t, err := bn256.UnmarshalG2(input[i+64 : i+192])
		if err != nil {
			return nil, err
		}
		cs = append(cs, *c)
		ts = append(ts, *t)
	}
	// Execute the pairing checks and return the results
	ok, err := bn256.PairingCheck(cs, ts)
	if err != nil {
		return nil, err
	}
	if ok {
		return true32Byte, nil
	}
	return false32Byte, nil
}

type bn256PairingIstanbul struct{}

func (c *bn256PairingIstanbul) RequiredGas(input []byte) uint64 {
	return params.Bn256PairingBaseGasIstanbul + uint64(len(input)/192)*params.Bn256PairingPerPointGasIstanbul
}

func (c *bn256PairingIstanbul) Run(input []byte) ([]byte, error) {
	return runBn256Pairing(input)
}

func (c *bn256PairingIstanbul) Name() string {
	return "BN254_PAIRING"
}

type bn256PairingByzantium struct{}

func (c *bn256PairingByzantium) RequiredGas(input []byte) uint64 {
	return params.Bn256PairingBaseGasByzantium + uint64(len(input)/192)*params.Bn256PairingPerPointGasByzantium
}

func (c *bn256PairingByzantium) Run(input []byte) ([]byte, error) {
	return runBn256Pairing(input)
}

func (c *bn256PairingByzantium) Name() string {
	return "BN254_PAIRING"
}

type blake2F struct{}

func (c *blake2F) RequiredGas(input []byte) uint64 {
	// If the input is malformed, we can't calculate the gas, return 0 and let the
	// actual call choke and fault.
	if len(input) != blake2FInputLength {
		return 0
	}
	return uint64(binary.BigEndian.Uint32(input[0:4])) * params.Blake2FRoundGas
}

const (
	blake2FInputLength        = 213
	blake2FFinalBlockBytes    = byte(1)
	blake2FNonFinalBlockBytes = byte(0)
)

var (
	errBlake2FInvalidInputLength = errors.New("invalid input length")
	errBlake2FInvalidFinalFlag   = errors.New("invalid final flag")
)

func (c *blake2F) Run(input []byte) ([]byte, error) {
	// Make sure the input is valid (correct length and final flag)
	if len(input) != blake2FInputLength {
		return nil, errBlake2FInvalidInputLength
	}
	if input[212] != blake2FNonFinalBlockBytes && input[212] != blake2FFinalBlockBytes {
		return nil, errBlake2FInvalidFinalFlag
	}
	// Parse the input into the Blake2b call parameters
	var (
		rounds = binary.BigEndian.Uint32(input[0:4])
		final  = input[212] == blake2FFinalBlockBytes

		h [8]uint64
		m [16]uint64
		t [2]uint64
	)
	for i := 0; i < 8; i++ {
		offset := 4 + i*8
		h[i] = binary.LittleEndian.Uint64(input[offset : offset+8])
	}
	for i := 0; i < 16; i++ {
		offset := 68 + i*8
		m[i] = binary.LittleEndian.Uint64(input[offset : offset+8])
	}
	t[0] = binary.LittleEndian.Uint64(input[196:204])
	t[1] = binary.LittleEndian.Uint64(input[204:212])

	// Execute the compression function, extract and return the result
	blake2b.F(&h, m, t, final, rounds)

	output := make([]byte, 64)
	for i := 0; i < 8; i++ {
		offset := i * 8
		binary.LittleEndian.PutUint64(output[offset:offset+8], h[i])
	}
	return output, nil
}

func (c *blake2F) Name() string {
	return "BLAKE2F"
}

var (
	errBLS12381InvalidInputLength          = errors.New("invalid input length")
	errBLS12381InvalidFieldElementTopBytes = errors.New("invalid field element top bytes")
	errBLS12381PointNotOnCurve             = errors.New("invalid point: not on curve")
	errBLS12381G1PointSubgroup             = errors.New("g1 point is not on correct subgroup")
	errBLS12381G2PointSubgroup             = errors.New("g2 point is not on correct subgroup")
)

// bls12381G1Add implements EIP-2537 G1Add precompile.
type bls12381G1Add struct{}

func (c *bls12381G1Add) RequiredGas(input []byte) uint64 {
	return params.Bls12381G1AddGas
}

// Run expects two 128 byte G1 points. Addition needs no subgroup check.
func (c *bls12381G1Add) Run(input []byte) ([]byte, error) {
	if len(input) != 256 {
		return nil, errBLS12381InvalidInputLength
	}
	p0, err := decodePointG1(input[:128])
	if err != nil {
		return nil, err
	}
	p1, err := decodePointG1(input[128:])
	if err != nil {
		return nil, err
	}
	p0.Add(p0, p1)
	return encodePointG1(p0), nil
}

func (c *bls12381G1Add) Name() string {
	return "BLS12_G1ADD"
}

// msmDiscount returns the EIP-2537 discount for k pairs.
func msmDiscount(table *[128]uint64, k int) uint64 {
	if k <= len(table) {
		return table[k-1]
	}
	return table[len(table)-1]
}

// bls12381G1MultiExp implements EIP-2537 G1MultiExp precompile.
type bls12381G1MultiExp struct{}

func (c *bls12381G1MultiExp) RequiredGas(input []byte) uint64 {
	// Calculate G1 point, scalar value pair length
	k := len(input) / 160
	if k == 0 {
		// Return 0 gas for small input length
		return 0
	}
	discount := msmDiscount(&params.Bls12381G1MultiExpDiscountTable, k)
	return (uint64(k) * params.Bls12381G1MulGas * discount) / params.Bls12381MSMMultiplier
}

// Run expects k pairs of a 128 byte G1 point and a 32 byte scalar.
func (c *bls12381G1MultiExp) Run(input []byte) ([]byte, error) {
	k := len(input) / 160
	if len(input) == 0 || len(input)%160 != 0 {
		return nil, errBLS12381InvalidInputLength
	}
	points := make([]bls12381.G1Affine, k)
	scalars := make([]fr.Element, k)

	for i := 0; i < k; i++ {
		off := 160 * i
		t0, t1, t2 := off, off+128, off+160
		p, err := decodePointG1(input[t0:t1])
		if err != nil {
			return nil, err
		}
		if !p.IsInSubGroup() {
			return nil, errBLS12381G1PointSubgroup
		}
		points[i] = *p
		scalars[i].SetBytes(input[t1:t2])
	}
	r := new(bls12381.G1Affine)
	if _, err := r.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return nil, err
	}
	return encodePointG1(r), nil
}

func (c *bls12381G1MultiExp) Name() string {
	return "BLS12_G1MSM"
}

// bls12381G2Add implements EIP-2537 G2Add precompile.
type bls12381G2Add struct{}

func (c *bls12381G2Add) RequiredGas(input []byte) uint64 {
	return params.Bls12381G2AddGas
}

func (c *bls12381G2Add) Run(input []byte) ([]byte, error) {
	if len(input) != 512 {
		return nil, errBLS12381InvalidInputLength
	}
	p0, err := decodePointG2(input[:256])
	if err != nil {
		return nil, err
	}
	p1, err := decodePointG2(input[256:])
	if err != nil {
		return nil, err
	}
	r := new(bls12381.G2Affine)
	r.Add(p0, p1)
	return encodePointG2(r), nil
}

func (c *bls12381G2Add) Name() string {
	return "BLS12_G2ADD"
}

// bls12381G2MultiExp implements EIP-2537 G2MultiExp precompile. Pricing and
// validation follow the published EIP: 288 byte pairs, every point subgroup
// checked, discount table indexed by the pair count.
type bls12381G2MultiExp struct{}

func (c *bls12381G2MultiExp) RequiredGas(input []byte) uint64 {
	k := len(input) / 288
	if k == 0 {
		return 0
	}
	discount := msmDiscount(&params.Bls12381G2MultiExpDiscountTable, k)
	return (uint64(k) * params.Bls12381G2MulGas * discount) / params.Bls12381MSMMultiplier
}

func (c *bls12381G2MultiExp) Run(input []byte) ([]byte, error) {
	k := len(input) / 288
	if len(input) == 0 || len(input)%288 != 0 {
		return nil, errBLS12381InvalidInputLength
	}
	points := make([]bls12381.G2Affine, k)
	scalars := make([]fr.Element, k)

	for i := 0; i < k; i++ {
		off := 288 * i
		t0, t1, t2 := off, off+256, off+288
		p, err := decodePointG2(input[t0:t1])
		if err != nil {
			return nil, err
		}
		if !p.IsInSubGroup() {
			return nil, errBLS12381G2PointSubgroup
		}
		points[i] = *p
		scalars[i].SetBytes(input[t1:t2])
	}
	r := new(bls12381.G2Affine)
	if _, err := r.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return nil, err
	}
	return encodePointG2(r), nil
}

func (c *bls12381G2MultiExp) Name() string {
	return "BLS12_G2MSM"
}

// bls12381Pairing implements EIP-2537 Pairing precompile.
type bls12381Pairing struct{}

func (c *bls12381Pairing) RequiredGas(input []byte) uint64 {
	return params.Bls12381PairingBaseGas + uint64(len(input)/384)*params.Bls12381PairingPerPairGas
}

// Run expects k pairs of a 128 byte G1 point and a 256 byte G2 point and
// returns 32 bytes, the last one being 1 iff the pairing product is one.
func (c *bls12381Pairing) Run(input []byte) ([]byte, error) {
	k := len(input) / 384
	if len(input) == 0 || len(input)%384 != 0 {
		return nil, errBLS12381InvalidInputLength
	}
	var (
		p = make([]bls12381.G1Affine, 0, k)
		q = make([]bls12381.G2Affine, 0, k)
	)
	for i := 0; i < k; i++ {
		off := 384 * i
		t0, t1, t2 := off, off+128, off+384

		p1, err := decodePointG1(input[t0:t1])
		if err != nil {
			return nil, err
		}
		p2, err := decodePointG2(input[t1:t2])
		if err != nil {
			return nil, err
		}
		// 'point is on curve' check already done,
		// Here we need to apply subgroup checks.
		if !p1.IsInSubGroup() {
			return nil, errBLS12381G1PointSubgroup
		}
		if !p2.IsInSubGroup() {
			return nil, errBLS12381G2PointSubgroup
		}
		// 含无穷远点的配对贡献单位元，直接跳过。
		if p1.IsInfinity() || p2.IsInfinity() {
			continue
		}
		p = append(p, *p1)
		q = append(q, *p2)
	}
	out := make([]byte, 32)
	if len(p) == 0 {
		out[31] = 1
		return out, nil
	}
	ok, err := bls12381.PairingCheck(p, q)
	if err != nil {
		return nil, err
	}
	if ok {
		out[31] = 1
	}
	return out, nil
}

func (c *bls12381Pairing) Name() string {
	return "BLS12_PAIRING_CHECK"
}

// decodePointG1 decodes a 128 byte G1 point. All zeroes encode infinity.
func decodePointG1(in []byte) (*bls12381.G1Affine, error) {
	if len(in) != 128 {
		return nil, errBLS12381InvalidInputLength
	}
	x, err := decodeBLS12381FieldElement(in[:64])
	if err != nil {
		return nil, err
	}
	y, err := decodeBLS12381FieldElement(in[64:])
	if err != nil {
		return nil, err
	}
	elem := bls12381.G1Affine{X: x, Y: y}
	if elem.IsInfinity() {
		return &elem, nil
	}
	if !elem.IsOnCurve() {
		return nil, errBLS12381PointNotOnCurve
	}
	return &elem, nil
}

// decodePointG2 given encoded (x, y) coordinates in 256 bytes returns a valid G2 Point.
func decodePointG2(in []byte) (*bls12381.G2Affine, error) {
	if len(in) != 256 {
		return nil, errBLS12381InvalidInputLength
	}
	var coords [4]fp.Element
	for i := range coords {
		e, err := decodeBLS12381FieldElement(in[i*64 : (i+1)*64])
		if err != nil {
			return nil, err
		}
		coords[i] = e
	}
	p := bls12381.G2Affine{
		X: bls12381.E2{A0: coords[0], A1: coords[1]},
		Y: bls12381.E2{A0: coords[2], A1: coords[3]},
	}
	if p.IsInfinity() {
		return &p, nil
	}
	if !p.IsOnCurve() {
		return nil, errBLS12381PointNotOnCurve
	}
	return &p, nil
}

// decodeBLS12381FieldElement decodes a 64 byte field element whose top 16
// bytes must be zero. The value must be below the field modulus.
func decodeBLS12381FieldElement(in []byte) (fp.Element, error) {
	if len(in) != 64 {
		return fp.Element{}, errBLS12381InvalidInputLength
	}
	if !allZero(in[:16]) {
		return fp.Element{}, errBLS12381InvalidFieldElementTopBytes
	}
	var res [fp.Bytes]byte
	copy(res[:], in[16:])
	return fp.BigEndian.Element(&res)
}

// encodePointG1 encodes a point into 128 bytes.
func encodePointG1(p *bls12381.G1Affine) []byte {
	out := make([]byte, 128)
	fp.BigEndian.PutElement((*[fp.Bytes]byte)(out[16:64]), p.X)
	fp.BigEndian.PutElement((*[fp.Bytes]byte)(out[80:128]), p.Y)
	return out
}

// encodePointG2 encodes a point into 256 bytes.
func encodePointG2(p *bls12381.G2Affine) []byte {
	out := make([]byte, 256)
	fp.BigEndian.PutElement((*[fp.Bytes]byte)(out[16:64]), p.X.A0)
	fp.BigEndian.PutElement((*[fp.Bytes]byte)(out[80:128]), p.X.A1)
	fp.BigEndian.PutElement((*[fp.Bytes]byte)(out[144:192]), p.Y.A0)
	fp.BigEndian.PutElement((*[fp.Bytes]byte)(out[208:256]), p.Y.A1)
	return out
}

// bls12381MapG1 implements EIP-2537 MapFpToG1 precompile.
type bls12381MapG1 struct{}

func (c *bls12381MapG1) RequiredGas(input []byte) uint64 {
	return params.Bls12381MapG1Gas
}

func (c *bls12381MapG1) Run(input []byte) ([]byte, error) {
	if len(input) != 64 {
		return nil, errBLS12381InvalidInputLength
	}
	fe, err := decodeBLS12381FieldElement(input)
	if err != nil {
		return nil, err
	}
	r := bls12381.MapToG1(fe)
	return encodePointG1(&r), nil
}

func (c *bls12381MapG1) Name() string {
	return "BLS12_MAP_FP_TO_G1"
}

// bls12381MapG2 implements EIP-2537 MapFp2ToG2 precompile.
type bls12381MapG2 struct{}

func (c *bls12381MapG2) RequiredGas(input []byte) uint64 {
	return params.Bls12381MapG2Gas
}

func (c *bls12381MapG2) Run(input []byte) ([]byte, error) {
	if len(input) != 128 {
		return nil, errBLS12381InvalidInputLength
	}
	c0, err := decodeBLS12381FieldElement(input[:64])
	if err != nil {
		return nil, err
	}
	c1, err := decodeBLS12381FieldElement(input[64:])
	if err != nil {
		return nil, err
	}
	r := bls12381.MapToG2(bls12381.E2{A0: c0, A1: c1})
	return encodePointG2(&r), nil
}

func (c *bls12381MapG2) Name() string {
	return "BLS12_MAP_FP2_TO_G2"
}

// kzgPointEvaluation implements the EIP-4844 point evaluation precompile.
type kzgPointEvaluation struct{}

func (b *kzgPointEvaluation) RequiredGas(input []byte) uint64 {
	return params.BlobTxPointEvaluationPrecompileGas
}

const blobVerifyInputLength = 192 // Max input length for the point evaluation precompile.

var (
	// blsModulus is the order of the BLS12-381 scalar field.
	blsModulus = fr.Modulus()

	errBlobVerifyInvalidInputLength = errors.New("invalid input length")
	errBlobVerifyMismatchedVersion  = errors.New("mismatched versioned hash")
	errBlobVerifyKZGProof           = errors.New("error verifying kzg proof")
)

// Run executes the point evaluation precompile. The input is the versioned
// hash, z, y, the commitment and the proof. On success it returns
// FIELD_ELEMENTS_PER_BLOB and BLS_MODULUS as two 32 byte words.
func (b *kzgPointEvaluation) Run(input []byte) ([]byte, error) {
	if len(input) != blobVerifyInputLength {
		return nil, errBlobVerifyInvalidInputLength
	}
	// versioned hash: first 32 bytes
	var versionedHash common.Hash
	copy(versionedHash[:], input[:])

	var (
		point kzg4844.Point
		claim kzg4844.Claim
	)
	// Evaluation point: next 32 bytes
	copy(point[:], input[32:])
	// Expected output: next 32 bytes
	copy(claim[:], input[64:])

	// input kzg point: next 48 bytes
	var commitment kzg4844.Commitment
	copy(commitment[:], input[96:])
	if err := kzg4844.VerifyVersionedHash(versionedHash[:], &commitment); err != nil {
		return nil, errBlobVerifyMismatchedVersion
	}
	// Proof: next 48 bytes
	var proof kzg4844.Proof
	copy(proof[:], input[144:])

	if err := kzg4844.VerifyProof(commitment, point, claim, proof); err != nil {
		return nil, errors.Join(errBlobVerifyKZGProof, err)
	}
	out := make([]byte, 64)
	binary.BigEndian.PutUint64(out[24:32], params.BlobTxFieldElementsPerBlob)
	blsModulus.FillBytes(out[32:])
	return out, nil
}

func (b *kzgPointEvaluation) Name() string {
	return "KZG_POINT_EVALUATION"
}

// p256Verify implements the P256VERIFY precompile (EIP-7951).
type p256Verify struct{}

func (c *p256Verify) RequiredGas(input []byte) uint64 {
	return params.P256VerifyGas
}

// Run returns a one word 1 for a valid signature and empty output otherwise.
func (c *p256Verify) Run(input []byte) ([]byte, error) {
	const p256VerifyInputLength = 160
	if len(input) != p256VerifyInputLength {
		return nil, nil
	}
	// Extract the hash, r, s, x, y from the input
	hash := input[0:32]
	r, s := new(big.Int).SetBytes(input[32:64]), new(big.Int).SetBytes(input[64:96])
	x, y := new(big.Int).SetBytes(input[96:128]), new(big.Int).SetBytes(input[128:160])

	if secp256r1.Verify(hash, r, s, x, y) {
		return true32Byte, nil
	}
	return nil, nil
}

func (c *p256Verify) Name() string {
	return "P256VERIFY"
}
