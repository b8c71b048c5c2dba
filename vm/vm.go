/*
File   : microperl/vm/vm.go
Package: vm

A reference implementation of the bytecode interpreter contract from
spec.md section 4.4, in the fetch/decode/execute style of the teacher
pack's own stack-machine core (grounded on the ngaro virtual machine's
run loop). It is not the Z80 runtime described in spec.md section 1 —
that is an external binary blob outside this repository's scope — but
a Go-native implementation of the same wire contract, built so the
compiler's output can be exercised and its testable properties checked
end to end.

Frame layout is one deliberate, documented simplification over the
informally-specified calling convention (see DESIGN.md): locals live in
a per-call frame array addressed by LDLOC/STLOC, separate from the
shared value stack, rather than being interleaved into that stack via
explicit frame-pointer arithmetic. Arguments are still passed by pushing
them onto the value stack before CALL and popped into the callee's
locals by compiler-emitted STLOC during its prologue — exactly the
observable contract spec.md describes — the frame array is simply where
those locals then live for the remainder of the call, instead of
sharing address space with the expression stack.

PRINT auto-detects scalar vs. string by the heap-pointer range test
spec.md section 9 names explicitly as the chosen (if memory-map-coupled)
policy: heap pointers are allocated from a high, reserved band of the
16-bit value space, so any value below that band is printed as a signed
number and anything at or above it is printed as a heap string.
*/
package vm

import (
	"fmt"
	"io"

	"github.com/ajokela/microperl/bytecode"
)

// heapBase is the first value in the reserved heap-pointer band. Any
// 16-bit cell >= heapBase is a string pointer; anything below it is a
// signed integer. See the package doc comment for why this band sits
// here rather than at 0.
const heapBase = 0x8000

const defaultGlobalCount = 128

// frame is one call's local-variable storage, indexed directly by the
// slot a LDLOC/STLOC operand names.
type frame struct {
	locals []uint16
}

// VM is a single run of one module image. It is not safe for concurrent
// use and is not reused across runs, matching spec.md section 5: the
// interpreter is a single-threaded cooperative loop.
type VM struct {
	code    []byte
	heap    [][]byte
	globals []uint16

	stack   []uint16
	frames  []*frame
	retPCs  []int

	pc int

	Stdout io.Writer
	Stdin  io.Reader
}

// New constructs a VM ready to Run m. Stdout/Stdin default to discard
// and an empty reader respectively; set them before calling Run to
// capture output or supply input.
func New(m *bytecode.Module) *VM {
	heap := make([][]byte, len(m.Strings))
	copy(heap, m.Strings)
	return &VM{
		code:    m.Code,
		heap:    heap,
		globals: make([]uint16, defaultGlobalCount),
	}
}

func (v *VM) push(x uint16) { v.stack = append(v.stack, x) }

func (v *VM) pop() (uint16, error) {
	if len(v.stack) == 0 {
		return 0, trap(v.pc, "stack underflow")
	}
	x := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return x, nil
}

func (v *VM) top() (uint16, error) {
	if len(v.stack) == 0 {
		return 0, trap(v.pc, "stack underflow")
	}
	return v.stack[len(v.stack)-1], nil
}

func (v *VM) curFrame() (*frame, error) {
	if len(v.frames) == 0 {
		return nil, trap(v.pc, "no active frame")
	}
	return v.frames[len(v.frames)-1], nil
}

func (v *VM) allocString(b []byte) uint16 {
	idx := len(v.heap)
	v.heap = append(v.heap, b)
	return heapBase + uint16(idx)
}

func (v *VM) stringAt(ptr uint16) ([]byte, error) {
	if ptr < heapBase {
		return nil, trap(v.pc, "value %d is not a heap pointer", ptr)
	}
	idx := int(ptr - heapBase)
	if idx < 0 || idx >= len(v.heap) {
		return nil, trap(v.pc, "heap pointer %d out of range", ptr)
	}
	return v.heap[idx], nil
}

func (v *VM) globalSlot(idx uint16) *uint16 {
	for int(idx) >= len(v.globals) {
		v.globals = append(v.globals, 0)
	}
	return &v.globals[idx]
}

func u16(a, b byte) uint16 { return uint16(a) | uint16(b)<<8 }

// Run executes the module from offset 0 until HALT, a RETURN with no
// enclosing caller, or a runtime trap.
func (v *VM) Run() error {
	for {
		if v.pc < 0 || v.pc >= len(v.code) {
			return trap(v.pc, "program counter ran off the end of code")
		}
		op := bytecode.Opcode(v.code[v.pc])
		done, err := v.step(op)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// step executes one instruction and reports whether execution should
// stop (HALT, or RETURN with no caller left).
func (v *VM) step(op bytecode.Opcode) (bool, error) {
	switch op {
	case bytecode.NOP:
		v.pc++

	case bytecode.PUSH:
		v.push(u16(v.code[v.pc+1], v.code[v.pc+2]))
		v.pc += 3
	case bytecode.PUSHBYTE:
		v.push(uint16(int16(int8(v.code[v.pc+1]))))
		v.pc += 2
	case bytecode.POP:
		if _, err := v.pop(); err != nil {
			return false, err
		}
		v.pc++
	case bytecode.DUP:
		x, err := v.top()
		if err != nil {
			return false, err
		}
		v.push(x)
		v.pc++
	case bytecode.SWAP:
		if len(v.stack) < 2 {
			return false, trap(v.pc, "stack underflow on SWAP")
		}
		n := len(v.stack)
		v.stack[n-1], v.stack[n-2] = v.stack[n-2], v.stack[n-1]
		v.pc++
	case bytecode.OVER:
		if len(v.stack) < 2 {
			return false, trap(v.pc, "stack underflow on OVER")
		}
		v.push(v.stack[len(v.stack)-2])
		v.pc++

	case bytecode.LDLOC:
		f, err := v.curFrame()
		if err != nil {
			return false, err
		}
		slot := int(v.code[v.pc+1])
		if slot < 0 || slot >= len(f.locals) {
			return false, trap(v.pc, "local slot %d out of range [0,%d)", slot, len(f.locals))
		}
		v.push(f.locals[slot])
		v.pc += 2
	case bytecode.STLOC:
		f, err := v.curFrame()
		if err != nil {
			return false, err
		}
		x, err := v.pop()
		if err != nil {
			return false, err
		}
		slot := int(v.code[v.pc+1])
		if slot < 0 || slot >= len(f.locals) {
			return false, trap(v.pc, "local slot %d out of range [0,%d)", slot, len(f.locals))
		}
		f.locals[slot] = x
		v.pc += 2
	case bytecode.LDGLOB:
		idx := u16(v.code[v.pc+1], v.code[v.pc+2])
		v.push(*v.globalSlot(idx))
		v.pc += 3
	case bytecode.STGLOB:
		x, err := v.pop()
		if err != nil {
			return false, err
		}
		idx := u16(v.code[v.pc+1], v.code[v.pc+2])
		*v.globalSlot(idx) = x
		v.pc += 3

	case bytecode.PUSHSTR:
		idx := u16(v.code[v.pc+1], v.code[v.pc+2])
		v.push(heapBase + idx)
		v.pc += 3

	case bytecode.STRLEN:
		return v.execStrLen()
	case bytecode.STRCAT:
		return v.execStrCat()
	case bytecode.STRIDX:
		return v.execStrIdx()
	case bytecode.STRCMP:
		return v.execStrCmp()
	case bytecode.SUBSTR:
		return v.execSubstr()

	case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.MOD,
		bytecode.BITAND, bytecode.BITOR, bytecode.BITXOR, bytecode.SHL, bytecode.SHR:
		return v.execArith(op)
	case bytecode.NEG, bytecode.BITNOT, bytecode.INC, bytecode.DEC:
		return v.execUnaryArith(op)

	case bytecode.CMPEQ, bytecode.CMPNE, bytecode.CMPLT, bytecode.CMPGT, bytecode.CMPLE, bytecode.CMPGE:
		return v.execCompare(op)
	case bytecode.CMP:
		return v.execCmp3way()

	case bytecode.STREQ, bytecode.STRNE, bytecode.STRLT, bytecode.STRGT, bytecode.STRLE, bytecode.STRGE:
		return v.execStrCompare(op)

	case bytecode.NOT:
		x, err := v.pop()
		if err != nil {
			return false, err
		}
		v.push(boolCell(x == 0))
		v.pc++
	case bytecode.AND:
		b, err := v.pop()
		if err != nil {
			return false, err
		}
		a, err := v.pop()
		if err != nil {
			return false, err
		}
		v.push(boolCell(a != 0 && b != 0))
		v.pc++
	case bytecode.OR:
		b, err := v.pop()
		if err != nil {
			return false, err
		}
		a, err := v.pop()
		if err != nil {
			return false, err
		}
		v.push(boolCell(a != 0 || b != 0))
		v.pc++

	case bytecode.JUMP:
		v.pc = int(u16(v.code[v.pc+1], v.code[v.pc+2]))
	case bytecode.JUMPIF:
		x, err := v.pop()
		if err != nil {
			return false, err
		}
		if x != 0 {
			v.pc = int(u16(v.code[v.pc+1], v.code[v.pc+2]))
		} else {
			v.pc += 3
		}
	case bytecode.JUMPIFNOT:
		x, err := v.pop()
		if err != nil {
			return false, err
		}
		if x == 0 {
			v.pc = int(u16(v.code[v.pc+1], v.code[v.pc+2]))
		} else {
			v.pc += 3
		}
	case bytecode.JUMPIFDEF:
		x, err := v.pop()
		if err != nil {
			return false, err
		}
		if x != 0 {
			v.pc = int(u16(v.code[v.pc+1], v.code[v.pc+2]))
		} else {
			v.pc += 3
		}

	case bytecode.CALL:
		target := int(u16(v.code[v.pc+1], v.code[v.pc+2]))
		v.retPCs = append(v.retPCs, v.pc+3)
		v.pc = target

	case bytecode.RETURN, bytecode.RETURNVAL:
		if len(v.frames) == 0 || len(v.retPCs) == 0 {
			return true, nil
		}
		v.frames = v.frames[:len(v.frames)-1]
		v.pc = v.retPCs[len(v.retPCs)-1]
		v.retPCs = v.retPCs[:len(v.retPCs)-1]

	case bytecode.ENTER:
		k := int(v.code[v.pc+1])
		v.frames = append(v.frames, &frame{locals: make([]uint16, k)})
		v.pc += 2
	case bytecode.LEAVE:
		if len(v.frames) > 0 {
			v.frames = v.frames[:len(v.frames)-1]
		}
		v.pc++

	case bytecode.PRINT:
		x, err := v.pop()
		if err != nil {
			return false, err
		}
		if err := v.printCell(x); err != nil {
			return false, err
		}
		v.pc++
	case bytecode.PRINTSTR:
		x, err := v.pop()
		if err != nil {
			return false, err
		}
		b, err := v.stringAt(x)
		if err != nil {
			return false, err
		}
		fmt.Fprint(v.out(), string(b))
		v.pc++
	case bytecode.PRINTNUM:
		x, err := v.pop()
		if err != nil {
			return false, err
		}
		fmt.Fprintf(v.out(), "%d", int16(x))
		v.pc++
	case bytecode.PRINTCHAR:
		x, err := v.pop()
		if err != nil {
			return false, err
		}
		fmt.Fprintf(v.out(), "%c", byte(x))
		v.pc++
	case bytecode.PRINTLN:
		fmt.Fprintln(v.out())
		v.pc++

	case bytecode.INPUT:
		var n int16
		fmt.Fscan(v.in(), &n)
		v.push(uint16(n))
		v.pc++
	case bytecode.INPUTCHAR:
		var b [1]byte
		v.in().Read(b[:])
		v.push(uint16(b[0]))
		v.pc++

	case bytecode.TONUM:
		x, err := v.pop()
		if err != nil {
			return false, err
		}
		if x >= heapBase {
			b, err := v.stringAt(x)
			if err != nil {
				return false, err
			}
			var n int
			fmt.Sscanf(string(b), "%d", &n)
			v.push(uint16(int16(n)))
		} else {
			v.push(x)
		}
		v.pc++
	case bytecode.TOSTR:
		x, err := v.pop()
		if err != nil {
			return false, err
		}
		if x >= heapBase {
			v.push(x)
		} else {
			v.push(v.allocString([]byte(fmt.Sprintf("%d", int16(x)))))
		}
		v.pc++
	case bytecode.TYPEOF:
		x, err := v.pop()
		if err != nil {
			return false, err
		}
		if x >= heapBase {
			v.push(1)
		} else {
			v.push(0)
		}
		v.pc++
	case bytecode.ISDEF:
		x, err := v.pop()
		if err != nil {
			return false, err
		}
		v.push(boolCell(x != 0))
		v.pc++

	case bytecode.MATCH:
		return v.execMatch()

	case bytecode.HALT:
		return true, nil

	case bytecode.NEWARR, bytecode.ARRLEN, bytecode.ARRGET, bytecode.ARRSET, bytecode.ARRPUSH, bytecode.ARRPOP,
		bytecode.NEWHASH, bytecode.HASHGET, bytecode.HASHSET, bytecode.HASHDEL, bytecode.HASHKEYS,
		bytecode.SUBST, bytecode.CALLNAT, bytecode.DEBUG:
		return false, trap(v.pc, "%s is a recognized opcode but has no implementation in this interpreter", op)

	default:
		return false, trap(v.pc, "invalid opcode 0x%02X", byte(op))
	}
	return false, nil
}

func (v *VM) out() io.Writer {
	if v.Stdout == nil {
		return io.Discard
	}
	return v.Stdout
}

func (v *VM) in() io.Reader {
	if v.Stdin == nil {
		return new(nullReader)
	}
	return v.Stdin
}

type nullReader struct{}

func (n *nullReader) Read([]byte) (int, error) { return 0, io.EOF }

func boolCell(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

// printCell implements the single-opcode PRINT's heap-pointer range
// test described in the package doc comment.
func (v *VM) printCell(x uint16) error {
	if x >= heapBase {
		b, err := v.stringAt(x)
		if err != nil {
			return err
		}
		fmt.Fprint(v.out(), string(b))
		return nil
	}
	fmt.Fprintf(v.out(), "%d", int16(x))
	return nil
}
