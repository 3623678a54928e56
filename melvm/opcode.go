package melvm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// An Opcode identifies a VM instruction.
type Opcode uint8

// The instruction set. Binary operators pop x (the top of the stack) and then
// y, and push x op y.
const (
	OpNoop Opcode = 0x00
	OpFail Opcode = 0x01

	// arithmetic
	OpAdd Opcode = 0x10
	OpSub Opcode = 0x11
	OpMul Opcode = 0x12
	OpDiv Opcode = 0x13
	OpRem Opcode = 0x14

	// logic
	OpAnd Opcode = 0x20
	OpOr  Opcode = 0x21
	OpXor Opcode = 0x22
	OpNot Opcode = 0x23
	OpEql Opcode = 0x24
	OpLt  Opcode = 0x25
	OpGt  Opcode = 0x26
	OpShl Opcode = 0x27
	OpShr Opcode = 0x28

	// cryptography
	OpHash   Opcode = 0x30
	OpSha3   Opcode = 0x31
	OpSigEOk Opcode = 0x32

	// heap
	OpLoad     Opcode = 0x40
	OpStore    Opcode = 0x41
	OpLoadImm  Opcode = 0x42
	OpStoreImm Opcode = 0x43

	// vectors
	OpVRef    Opcode = 0x50
	OpVAppend Opcode = 0x51
	OpVEmpty  Opcode = 0x52
	OpVLength Opcode = 0x53
	OpVSlice  Opcode = 0x54
	OpVSet    Opcode = 0x55
	OpVPush   Opcode = 0x56

	// byte strings
	OpBRef    Opcode = 0x70
	OpBAppend Opcode = 0x71
	OpBEmpty  Opcode = 0x72
	OpBLength Opcode = 0x73
	OpBSlice  Opcode = 0x74
	OpBPush   Opcode = 0x75

	// control flow; jump offsets are forward only
	OpJmp  Opcode = 0xa0
	OpBez  Opcode = 0xa1
	OpBnz  Opcode = 0xa2
	OpLoop Opcode = 0xb0

	// type conversion
	OpItoB  Opcode = 0xc0
	OpBtoI  Opcode = 0xc1
	OpTypeQ Opcode = 0xc2

	// stack
	OpPushB Opcode = 0xf0
	OpPushI Opcode = 0xf1
	OpDup   Opcode = 0xf3
	OpSwap  Opcode = 0xf4
	OpDrop  Opcode = 0xf5
)

var opNames = map[Opcode]string{
	OpNoop: "noop", OpFail: "fail",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpRem: "rem",
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpNot: "not", OpEql: "eql",
	OpLt: "lt", OpGt: "gt", OpShl: "shl", OpShr: "shr",
	OpHash: "hash", OpSha3: "sha3", OpSigEOk: "sigeok",
	OpLoad: "load", OpStore: "store", OpLoadImm: "loadimm", OpStoreImm: "storeimm",
	OpVRef: "vref", OpVAppend: "vappend", OpVEmpty: "vempty", OpVLength: "vlength",
	OpVSlice: "vslice", OpVSet: "vset", OpVPush: "vpush",
	OpBRef: "bref", OpBAppend: "bappend", OpBEmpty: "bempty", OpBLength: "blength",
	OpBSlice: "bslice", OpBPush: "bpush",
	OpJmp: "jmp", OpBez: "bez", OpBnz: "bnz", OpLoop: "loop",
	OpItoB: "itob", OpBtoI: "btoi", OpTypeQ: "typeq",
	OpPushB: "pushb", OpPushI: "pushi", OpDup: "dup", OpSwap: "swap", OpDrop: "drop",
}

// String implements fmt.Stringer.
func (c Opcode) String() string {
	if s, ok := opNames[c]; ok {
		return s
	}
	return fmt.Sprintf("op(%#x)", uint8(c))
}

// An Op is a single decoded instruction along with its immediates.
type Op struct {
	Code Opcode
	// Int is the immediate of OpPushI.
	Int uint256.Int
	// Bytes is the immediate of OpPushB.
	Bytes []byte
	// Arg is the jump offset, heap index, or loop iteration count.
	Arg uint16
	// Body is the number of instructions repeated by OpLoop.
	Body uint16
}

// PushI returns an instruction that pushes u.
func PushI(u uint64) Op {
	op := Op{Code: OpPushI}
	op.Int.SetUint64(u)
	return op
}

// PushB returns an instruction that pushes b.
func PushB(b []byte) Op { return Op{Code: OpPushB, Bytes: b} }

// String implements fmt.Stringer.
func (op Op) String() string {
	switch op.Code {
	case OpPushI:
		return op.Code.String() + " " + op.Int.Dec()
	case OpPushB:
		return op.Code.String() + " " + Bytes(op.Bytes).String()
	case OpJmp, OpBez, OpBnz, OpLoadImm, OpStoreImm:
		return fmt.Sprintf("%v %d", op.Code, op.Arg)
	case OpLoop:
		return fmt.Sprintf("%v %d %d", op.Code, op.Arg, op.Body)
	default:
		return op.Code.String()
	}
}

// EncodeOps returns the bytecode for ops.
func EncodeOps(ops []Op) ([]byte, error) {
	var b []byte
	for _, op := range ops {
		if _, ok := opNames[op.Code]; !ok {
			return nil, fmt.Errorf("%w: unknown opcode %v", ErrDecode, op.Code)
		}
		b = append(b, byte(op.Code))
		switch op.Code {
		case OpPushI:
			v := op.Int.Bytes32()
			b = append(b, v[:]...)
		case OpPushB:
			if len(op.Bytes) > 255 {
				return nil, fmt.Errorf("%w: pushb immediate too long (%v bytes)", ErrDecode, len(op.Bytes))
			}
			b = append(b, byte(len(op.Bytes)))
			b = append(b, op.Bytes...)
		case OpJmp, OpBez, OpBnz, OpLoadImm, OpStoreImm:
			b = binary.BigEndian.AppendUint16(b, op.Arg)
		case OpLoop:
			b = binary.BigEndian.AppendUint16(b, op.Arg)
			b = binary.BigEndian.AppendUint16(b, op.Body)
		}
	}
	return b, nil
}

// DecodeOps parses bytecode into instructions.
func DecodeOps(b []byte) ([]Op, error) {
	var ops []Op
	for len(b) > 0 {
		op := Op{Code: Opcode(b[0])}
		if _, ok := opNames[op.Code]; !ok {
			return nil, fmt.Errorf("%w: unknown opcode %v at instruction %v", ErrDecode, op.Code, len(ops))
		}
		b = b[1:]
		need := 0
		switch op.Code {
		case OpPushI:
			need = 32
		case OpPushB:
			if len(b) == 0 {
				return nil, fmt.Errorf("%w: truncated pushb", ErrDecode)
			}
			need = 1 + int(b[0])
		case OpJmp, OpBez, OpBnz, OpLoadImm, OpStoreImm:
			need = 2
		case OpLoop:
			need = 4
		}
		if len(b) < need {
			return nil, fmt.Errorf("%w: truncated %v immediate", ErrDecode, op.Code)
		}
		switch op.Code {
		case OpPushI:
			op.Int.SetBytes32(b[:32])
		case OpPushB:
			op.Bytes = append([]byte(nil), b[1:need]...)
		case OpJmp, OpBez, OpBnz, OpLoadImm, OpStoreImm:
			op.Arg = binary.BigEndian.Uint16(b)
		case OpLoop:
			op.Arg = binary.BigEndian.Uint16(b)
			op.Body = binary.BigEndian.Uint16(b[2:])
		}
		b = b[need:]
		ops = append(ops, op)
	}
	return ops, nil
}

// Disassemble returns a human-readable listing of ops.
func Disassemble(ops []Op) string {
	lines := make([]string, len(ops))
	for i := range ops {
		lines[i] = ops[i].String()
	}
	return strings.Join(lines, "\n")
}

// opWeight returns the cost of executing a single instruction once.
func opWeight(op Op) uint64 {
	switch op.Code {
	case OpHash, OpSha3:
		return 50
	case OpSigEOk:
		return 100
	case OpMul, OpDiv, OpRem:
		return 6
	case OpVAppend, OpVSlice, OpVSet, OpVPush, OpBAppend, OpBSlice, OpBPush:
		return 50
	case OpStore, OpStoreImm:
		return 10
	default:
		return 1
	}
}

// opsWeight returns the weight of ops, multiplying loop bodies by their
// iteration count. The result saturates.
func opsWeight(ops []Op) uint64 {
	var w uint64
	for i := 0; i < len(ops); i++ {
		op := ops[i]
		if op.Code == OpLoop {
			end := min(i+1+int(op.Body), len(ops))
			w = satAdd(w, satAdd(1, satMul(uint64(op.Arg), opsWeight(ops[i+1:end]))))
			i = end - 1
			continue
		}
		w = satAdd(w, opWeight(op))
	}
	return w
}

func satAdd(a, b uint64) uint64 {
	if a+b < a {
		return ^uint64(0)
	}
	return a + b
}

func satMul(a, b uint64) uint64 {
	if a != 0 && b > ^uint64(0)/a {
		return ^uint64(0)
	}
	return a * b
}
