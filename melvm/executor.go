package melvm

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"go.melnet.tech/stf/types"
	"golang.org/x/crypto/sha3"
)

// Execution faults.
var (
	ErrStackUnderflow = errors.New("stack underflow")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrTypeMismatch   = errors.New("type mismatch")
	ErrDivideByZero   = errors.New("division by zero")
	ErrOutOfRange     = errors.New("index out of range")
	ErrReadOnly       = errors.New("write to bound input")
	ErrUninitialized  = errors.New("load of uninitialized heap slot")
	ErrTooLarge       = errors.New("value too large")
	ErrDecode         = errors.New("invalid bytecode")
	ErrFail           = errors.New("explicit failure")
)

const (
	maxStackDepth = 1024
	maxValueLen   = 1 << 21
)

type fault struct{ err error }

func faultf(err error, format string, args ...any) fault {
	return fault{fmt.Errorf("%w: "+format, append([]any{err}, args...)...)}
}

type loopFrame struct {
	start, end int
	remaining  uint16
}

// An Executor runs a sequence of instructions one step at a time.
type Executor struct {
	ops   []Op
	pc    int
	stack []Value
	heap  map[uint16]Value
	// indices below nbound hold read-only bindings
	nbound uint16
	loops  []loopFrame
}

// PC returns the index of the next instruction to execute.
func (e *Executor) PC() int { return e.pc }

// Done reports whether execution has reached the end of the program.
func (e *Executor) Done() bool { return e.pc >= len(e.ops) }

// Stack returns the current stack, bottom first.
func (e *Executor) Stack() []Value { return e.stack }

func (e *Executor) push(v Value) {
	if len(e.stack) >= maxStackDepth {
		panic(fault{ErrStackOverflow})
	}
	e.stack = append(e.stack, v)
}

func (e *Executor) pop() Value {
	if len(e.stack) == 0 {
		panic(faultf(ErrStackUnderflow, "%v at instruction %v", e.ops[e.pc].Code, e.pc))
	}
	v := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return v
}

func (e *Executor) popInt() Int {
	v, ok := e.pop().(Int)
	if !ok {
		panic(faultf(ErrTypeMismatch, "%v expected int", e.ops[e.pc].Code))
	}
	return v
}

func (e *Executor) popBytes() Bytes {
	v, ok := e.pop().(Bytes)
	if !ok {
		panic(faultf(ErrTypeMismatch, "%v expected bytes", e.ops[e.pc].Code))
	}
	return v
}

func (e *Executor) popVector() Vector {
	v, ok := e.pop().(Vector)
	if !ok {
		panic(faultf(ErrTypeMismatch, "%v expected vector", e.ops[e.pc].Code))
	}
	return v
}

func (e *Executor) index(i Int, n int) int {
	if !i.IsUint64() || i.Uint64() >= uint64(n) {
		panic(faultf(ErrOutOfRange, "%v index %v, length %v", e.ops[e.pc].Code, i, n))
	}
	return int(i.Uint64())
}

func (e *Executor) popHeapIndex() uint16 {
	i := e.popInt()
	if !i.IsUint64() || i.Uint64() > 0xffff {
		panic(faultf(ErrOutOfRange, "heap index %v", i))
	}
	return uint16(i.Uint64())
}

func (e *Executor) load(i uint16) {
	v, ok := e.heap[i]
	if !ok {
		panic(faultf(ErrUninitialized, "slot %v", i))
	}
	e.push(v)
}

func (e *Executor) store(i uint16, v Value) {
	if i < e.nbound {
		panic(faultf(ErrReadOnly, "slot %v", i))
	}
	e.heap[i] = v
}

func (e *Executor) binop(fn func(x, y *uint256.Int) Int) {
	x := e.popInt()
	y := e.popInt()
	e.push(fn(&x.Int, &y.Int))
}

func checkLen(n int) {
	if n > maxValueLen {
		panic(faultf(ErrTooLarge, "length %v", n))
	}
}

// Step executes the next instruction. Any fault is returned as an error; the
// Executor must not be stepped again after a fault.
func (e *Executor) Step() (err error) {
	if e.Done() {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(fault)
			if !ok {
				panic(r)
			}
			err = f.err
		}
	}()
	op := e.ops[e.pc]
	next := e.pc + 1
	switch op.Code {
	case OpNoop:
	case OpFail:
		panic(fault{ErrFail})

	case OpAdd:
		e.binop(func(x, y *uint256.Int) (z Int) { z.Add(x, y); return })
	case OpSub:
		e.binop(func(x, y *uint256.Int) (z Int) { z.Sub(x, y); return })
	case OpMul:
		e.binop(func(x, y *uint256.Int) (z Int) { z.Mul(x, y); return })
	case OpDiv:
		e.binop(func(x, y *uint256.Int) (z Int) {
			if y.IsZero() {
				panic(fault{ErrDivideByZero})
			}
			z.Div(x, y)
			return
		})
	case OpRem:
		e.binop(func(x, y *uint256.Int) (z Int) {
			if y.IsZero() {
				panic(fault{ErrDivideByZero})
			}
			z.Mod(x, y)
			return
		})

	case OpAnd:
		e.binop(func(x, y *uint256.Int) (z Int) { z.And(x, y); return })
	case OpOr:
		e.binop(func(x, y *uint256.Int) (z Int) { z.Or(x, y); return })
	case OpXor:
		e.binop(func(x, y *uint256.Int) (z Int) { z.Xor(x, y); return })
	case OpNot:
		x := e.popInt()
		var z Int
		z.Not(&x.Int)
		e.push(z)
	case OpEql:
		x, y := e.pop(), e.pop()
		switch x.(type) {
		case Int, Bytes:
		default:
			panic(faultf(ErrTypeMismatch, "eql on %T", x))
		}
		e.push(boolValue(Equal(x, y)))
	case OpLt:
		e.binop(func(x, y *uint256.Int) Int { return boolValue(x.Lt(y)) })
	case OpGt:
		e.binop(func(x, y *uint256.Int) Int { return boolValue(x.Gt(y)) })
	case OpShl:
		e.binop(func(x, y *uint256.Int) (z Int) {
			if y.IsUint64() && y.Uint64() < 256 {
				z.Lsh(x, uint(y.Uint64()))
			}
			return
		})
	case OpShr:
		e.binop(func(x, y *uint256.Int) (z Int) {
			if y.IsUint64() && y.Uint64() < 256 {
				z.Rsh(x, uint(y.Uint64()))
			}
			return
		})

	case OpHash:
		b := e.popBytes()
		e.push(hashValue(types.HashBytes(b)))
	case OpSha3:
		b := e.popBytes()
		e.push(hashValue(sha3.Sum256(b)))
	case OpSigEOk:
		pk := e.popBytes()
		msg := e.popBytes()
		sig := e.popBytes()
		ok := len(pk) == ed25519.PublicKeySize && len(sig) == ed25519.SignatureSize &&
			ed25519.Verify(ed25519.PublicKey(pk), msg, sig)
		e.push(boolValue(ok))

	case OpLoad:
		e.load(e.popHeapIndex())
	case OpStore:
		i := e.popHeapIndex()
		e.store(i, e.pop())
	case OpLoadImm:
		e.load(op.Arg)
	case OpStoreImm:
		e.store(op.Arg, e.pop())

	case OpVRef:
		i := e.popInt()
		v := e.popVector()
		e.push(v[e.index(i, len(v))])
	case OpVAppend:
		x := e.popVector()
		y := e.popVector()
		checkLen(len(x) + len(y))
		e.push(append(append(Vector(nil), x...), y...))
	case OpVEmpty:
		e.push(Vector{})
	case OpVLength:
		e.push(NewInt(uint64(len(e.popVector()))))
	case OpVSlice:
		end := e.popInt()
		begin := e.popInt()
		v := e.popVector()
		lo, hi := sliceBounds(begin, end, len(v))
		e.push(append(Vector(nil), v[lo:hi]...))
	case OpVSet:
		x := e.pop()
		i := e.popInt()
		v := e.popVector()
		nv := append(Vector(nil), v...)
		nv[e.index(i, len(v))] = x
		e.push(nv)
	case OpVPush:
		x := e.pop()
		v := e.popVector()
		checkLen(len(v) + 1)
		e.push(append(append(Vector(nil), v...), x))

	case OpBRef:
		i := e.popInt()
		b := e.popBytes()
		e.push(NewInt(uint64(b[e.index(i, len(b))])))
	case OpBAppend:
		x := e.popBytes()
		y := e.popBytes()
		checkLen(len(x) + len(y))
		e.push(append(append(Bytes(nil), x...), y...))
	case OpBEmpty:
		e.push(Bytes{})
	case OpBLength:
		e.push(NewInt(uint64(len(e.popBytes()))))
	case OpBSlice:
		end := e.popInt()
		begin := e.popInt()
		b := e.popBytes()
		lo, hi := sliceBounds(begin, end, len(b))
		e.push(append(Bytes(nil), b[lo:hi]...))
	case OpBPush:
		x := e.popInt()
		b := e.popBytes()
		if !x.IsUint64() || x.Uint64() > 0xff {
			panic(faultf(ErrOutOfRange, "byte value %v", x))
		}
		checkLen(len(b) + 1)
		e.push(append(append(Bytes(nil), b...), byte(x.Uint64())))

	case OpJmp:
		next += int(op.Arg)
	case OpBez:
		if x := e.popInt(); x.IsZero() {
			next += int(op.Arg)
		}
	case OpBnz:
		if x := e.popInt(); !x.IsZero() {
			next += int(op.Arg)
		}
	case OpLoop:
		if op.Arg == 0 {
			next += int(op.Body)
		} else {
			e.loops = append(e.loops, loopFrame{start: next, end: next + int(op.Body), remaining: op.Arg})
		}

	case OpItoB:
		x := e.popInt()
		b := x.Bytes32()
		e.push(Bytes(b[:]))
	case OpBtoI:
		b := e.popBytes()
		if len(b) != 32 {
			panic(faultf(ErrTypeMismatch, "btoi on %v bytes", len(b)))
		}
		var z Int
		z.SetBytes32(b)
		e.push(z)
	case OpTypeQ:
		switch e.pop().(type) {
		case Int:
			e.push(NewInt(0))
		case Bytes:
			e.push(NewInt(1))
		case Vector:
			e.push(NewInt(2))
		}

	case OpPushB:
		e.push(Bytes(op.Bytes))
	case OpPushI:
		e.push(Int{op.Int})
	case OpDup:
		x := e.pop()
		e.push(x)
		e.push(x)
	case OpSwap:
		x := e.pop()
		y := e.pop()
		e.push(x)
		e.push(y)
	case OpDrop:
		e.pop()

	default:
		panic(faultf(ErrDecode, "unknown opcode %v", op.Code))
	}

	e.pc = next
	for len(e.loops) > 0 {
		top := &e.loops[len(e.loops)-1]
		if e.pc != top.end {
			break
		}
		if top.remaining--; top.remaining > 0 {
			e.pc = top.start
			break
		}
		e.loops = e.loops[:len(e.loops)-1]
	}
	return nil
}

// Run steps the Executor until the program ends or faults.
func (e *Executor) Run() error {
	for !e.Done() {
		if err := e.Step(); err != nil {
			return err
		}
	}
	return nil
}

func sliceBounds(begin, end Int, n int) (int, int) {
	if !begin.IsUint64() || !end.IsUint64() || begin.Uint64() > end.Uint64() || end.Uint64() > uint64(n) {
		panic(faultf(ErrOutOfRange, "slice [%v:%v] of length %v", begin, end, n))
	}
	return int(begin.Uint64()), int(end.Uint64())
}

// validateOps checks that every jump and loop in ops[lo:hi] stays within its
// enclosing loop body, so that execution always terminates.
func validateOps(ops []Op, lo, hi int) error {
	for i := lo; i < hi; i++ {
		switch op := ops[i]; op.Code {
		case OpJmp, OpBez, OpBnz:
			if i+1+int(op.Arg) > hi {
				return fmt.Errorf("%w: jump at %v leaves its block", ErrDecode, i)
			}
		case OpLoop:
			end := i + 1 + int(op.Body)
			if op.Body == 0 || end > hi {
				return fmt.Errorf("%w: loop at %v has invalid body", ErrDecode, i)
			} else if err := validateOps(ops, i+1, end); err != nil {
				return err
			}
			i = end - 1
		}
	}
	return nil
}

// NewExecutor returns an Executor for ops. The bindings occupy heap slots
// 0 through len(bindings)-1 and cannot be overwritten.
func NewExecutor(ops []Op, bindings []Value) (*Executor, error) {
	if err := validateOps(ops, 0, len(ops)); err != nil {
		return nil, err
	} else if len(bindings) > 0xffff {
		return nil, errors.New("too many bindings")
	}
	e := &Executor{
		ops:    ops,
		heap:   make(map[uint16]Value, len(bindings)),
		nbound: uint16(len(bindings)),
	}
	for i, v := range bindings {
		e.heap[uint16(i)] = v
	}
	return e, nil
}
