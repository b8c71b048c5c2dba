package vm

import (
	"bytes"

	"github.com/ajokela/microperl/bytecode"
)

// execArith implements the two-operand numeric opcodes: pop b then a,
// push the result of a OP b as a 16-bit cell. Operands are reinterpreted
// as signed int16 for DIV/MOD and the shifts, matching the "16-bit
// signed integers" value model spec.md section 4.4 describes.
func (v *VM) execArith(op bytecode.Opcode) (bool, error) {
	b, err := v.pop()
	if err != nil {
		return false, err
	}
	a, err := v.pop()
	if err != nil {
		return false, err
	}
	ai, bi := int16(a), int16(b)
	var r int16
	switch op {
	case bytecode.ADD:
		r = ai + bi
	case bytecode.SUB:
		r = ai - bi
	case bytecode.MUL:
		r = ai * bi
	case bytecode.DIV:
		if bi == 0 {
			return false, trap(v.pc, "division by zero")
		}
		r = ai / bi
	case bytecode.MOD:
		if bi == 0 {
			return false, trap(v.pc, "division by zero")
		}
		r = ai % bi
	case bytecode.BITAND:
		r = int16(a & b)
	case bytecode.BITOR:
		r = int16(a | b)
	case bytecode.BITXOR:
		r = int16(a ^ b)
	case bytecode.SHL:
		r = int16(a << (b & 0xF))
	case bytecode.SHR:
		r = ai >> (b & 0xF)
	default:
		return false, trap(v.pc, "unreachable arithmetic opcode %s", op)
	}
	v.push(uint16(r))
	v.pc++
	return false, nil
}

// execUnaryArith implements NEG, BITNOT, and the bare INC/DEC opcodes
// that operate directly on the top of stack (as opposed to the
// compiler's load/add/store lowering of Perl's ++/-- operators, which
// never emits these two).
func (v *VM) execUnaryArith(op bytecode.Opcode) (bool, error) {
	x, err := v.pop()
	if err != nil {
		return false, err
	}
	var r int16
	switch op {
	case bytecode.NEG:
		r = -int16(x)
	case bytecode.BITNOT:
		r = int16(^x)
	case bytecode.INC:
		r = int16(x) + 1
	case bytecode.DEC:
		r = int16(x) - 1
	default:
		return false, trap(v.pc, "unreachable unary opcode %s", op)
	}
	v.push(uint16(r))
	v.pc++
	return false, nil
}

// execCompare implements the six numeric CMPxx opcodes, each leaving a
// 0/1 cell behind.
func (v *VM) execCompare(op bytecode.Opcode) (bool, error) {
	b, err := v.pop()
	if err != nil {
		return false, err
	}
	a, err := v.pop()
	if err != nil {
		return false, err
	}
	ai, bi := int16(a), int16(b)
	var r bool
	switch op {
	case bytecode.CMPEQ:
		r = ai == bi
	case bytecode.CMPNE:
		r = ai != bi
	case bytecode.CMPLT:
		r = ai < bi
	case bytecode.CMPGT:
		r = ai > bi
	case bytecode.CMPLE:
		r = ai <= bi
	case bytecode.CMPGE:
		r = ai >= bi
	default:
		return false, trap(v.pc, "unreachable comparison opcode %s", op)
	}
	v.push(boolCell(r))
	v.pc++
	return false, nil
}

// execCmp3way implements CMP's three-way spaceship result: -1, 0, or 1.
func (v *VM) execCmp3way() (bool, error) {
	b, err := v.pop()
	if err != nil {
		return false, err
	}
	a, err := v.pop()
	if err != nil {
		return false, err
	}
	ai, bi := int16(a), int16(b)
	switch {
	case ai < bi:
		v.push(uint16(int16(-1)))
	case ai > bi:
		v.push(1)
	default:
		v.push(0)
	}
	v.pc++
	return false, nil
}

// execStrCompare implements the six string-comparison opcodes (STREQ..
// STRGE), which pop two heap pointers and compare the underlying bytes.
func (v *VM) execStrCompare(op bytecode.Opcode) (bool, error) {
	b, err := v.pop()
	if err != nil {
		return false, err
	}
	a, err := v.pop()
	if err != nil {
		return false, err
	}
	as, err := v.stringAt(a)
	if err != nil {
		return false, err
	}
	bs, err := v.stringAt(b)
	if err != nil {
		return false, err
	}
	cmp := bytes.Compare(as, bs)
	var r bool
	switch op {
	case bytecode.STREQ:
		r = cmp == 0
	case bytecode.STRNE:
		r = cmp != 0
	case bytecode.STRLT:
		r = cmp < 0
	case bytecode.STRGT:
		r = cmp > 0
	case bytecode.STRLE:
		r = cmp <= 0
	case bytecode.STRGE:
		r = cmp >= 0
	default:
		return false, trap(v.pc, "unreachable string comparison opcode %s", op)
	}
	v.push(boolCell(r))
	v.pc++
	return false, nil
}

// execStrLen pops a heap pointer and pushes its byte length.
func (v *VM) execStrLen() (bool, error) {
	x, err := v.pop()
	if err != nil {
		return false, err
	}
	s, err := v.stringAt(x)
	if err != nil {
		return false, err
	}
	v.push(uint16(len(s)))
	v.pc++
	return false, nil
}

// execStrCat pops two heap pointers (b on top, a beneath) and pushes a
// freshly allocated pointer to their concatenation a+b.
func (v *VM) execStrCat() (bool, error) {
	b, err := v.pop()
	if err != nil {
		return false, err
	}
	a, err := v.pop()
	if err != nil {
		return false, err
	}
	as, err := v.stringAt(a)
	if err != nil {
		return false, err
	}
	bs, err := v.stringAt(b)
	if err != nil {
		return false, err
	}
	out := append(append([]byte{}, as...), bs...)
	v.push(v.allocString(out))
	v.pc++
	return false, nil
}

// execStrIdx pops an index then a heap pointer and pushes the byte at
// that index as a number, trapping if out of range.
func (v *VM) execStrIdx() (bool, error) {
	idx, err := v.pop()
	if err != nil {
		return false, err
	}
	ptr, err := v.pop()
	if err != nil {
		return false, err
	}
	s, err := v.stringAt(ptr)
	if err != nil {
		return false, err
	}
	i := int(idx)
	if i < 0 || i >= len(s) {
		return false, trap(v.pc, "string index %d out of range [0,%d)", i, len(s))
	}
	v.push(uint16(s[i]))
	v.pc++
	return false, nil
}

// execStrCmp pops two heap pointers and pushes bytes.Compare's
// three-way -1/0/1 result, the string counterpart to CMP.
func (v *VM) execStrCmp() (bool, error) {
	b, err := v.pop()
	if err != nil {
		return false, err
	}
	a, err := v.pop()
	if err != nil {
		return false, err
	}
	as, err := v.stringAt(a)
	if err != nil {
		return false, err
	}
	bs, err := v.stringAt(b)
	if err != nil {
		return false, err
	}
	v.push(uint16(int16(bytes.Compare(as, bs))))
	v.pc++
	return false, nil
}

// execSubstr pops length, start, then a heap pointer and pushes a
// freshly allocated pointer to the extracted substring, clamped to the
// source string's bounds.
func (v *VM) execSubstr() (bool, error) {
	length, err := v.pop()
	if err != nil {
		return false, err
	}
	start, err := v.pop()
	if err != nil {
		return false, err
	}
	ptr, err := v.pop()
	if err != nil {
		return false, err
	}
	s, err := v.stringAt(ptr)
	if err != nil {
		return false, err
	}
	st := int(start)
	if st < 0 {
		st = 0
	}
	if st > len(s) {
		st = len(s)
	}
	end := st + int(length)
	if end > len(s) {
		end = len(s)
	}
	v.push(v.allocString(append([]byte{}, s[st:end]...)))
	v.pc++
	return false, nil
}

// execMatch pops a pattern pointer then a target pointer and pushes 1
// if the decoded literal/wildcard pattern occurs anywhere in the
// target string, 0 otherwise — the unanchored =~ semantics pattern.go
// implements.
func (v *VM) execMatch() (bool, error) {
	pat, err := v.pop()
	if err != nil {
		return false, err
	}
	target, err := v.pop()
	if err != nil {
		return false, err
	}
	patBytes, err := v.stringAt(pat)
	if err != nil {
		return false, err
	}
	targetBytes, err := v.stringAt(target)
	if err != nil {
		return false, err
	}
	v.push(boolCell(matchPattern(string(targetBytes), string(patBytes))))
	v.pc++
	return false, nil
}
