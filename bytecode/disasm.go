package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	offsetColor  = color.New(color.FgBlue)
	mnemColor    = color.New(color.FgCyan)
	operandColor = color.New(color.FgYellow)
	badColor     = color.New(color.FgRed, color.Bold)
)

// Disassemble renders code as one line per instruction: offset,
// mnemonic, and decoded operand. It is one of the debug emitters named
// in spec.md section 6, and doubles as the decoder exercised by the
// "opcode well-formedness" testable property (section 8, item 6) —
// Disassemble never advances past a byte it cannot account for.
func Disassemble(code []byte) string {
	var b strings.Builder
	off := 0
	for off < len(code) {
		op := Opcode(code[off])
		line, width := disasmOne(code, off, op)
		b.WriteString(line)
		b.WriteByte('\n')
		off += width
	}
	return b.String()
}

func disasmOne(code []byte, off int, op Opcode) (string, int) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  ", offsetColor.Sprintf("%04X", off))

	if !op.Defined() {
		fmt.Fprintf(&b, "%s %s", badColor.Sprint("INVALID"), operandColor.Sprintf("(0x%02X)", byte(op)))
		return b.String(), 1
	}

	width := 1 + op.OperandLen()
	b.WriteString(mnemColor.Sprint(op.String()))

	switch op.OperandLen() {
	case 0:
		// no operand
	case 1:
		if off+2 > len(code) {
			b.WriteString(" " + badColor.Sprint("<truncated>"))
			return b.String(), len(code) - off
		}
		fmt.Fprintf(&b, " %s", operandColor.Sprintf("%d", int8(code[off+1])))
	case 2:
		if off+3 > len(code) {
			b.WriteString(" " + badColor.Sprint("<truncated>"))
			return b.String(), len(code) - off
		}
		v := binary.LittleEndian.Uint16(code[off+1 : off+3])
		fmt.Fprintf(&b, " %s", operandColor.Sprintf("%d", v))
	}
	return b.String(), width
}

// Instruction is one decoded instruction (offset, opcode, operand, and
// total width in bytes), as returned by DecodeInstructions for tests
// and tooling. The reference interpreter does not use it.
type Instruction struct {
	Offset  int
	Op      Opcode
	Operand uint16
	Width   int
}

// DecodeInstructions walks code and returns its instruction boundaries, or an error
// naming the first unrecognized opcode or truncated operand — the same
// well-formedness check Disassemble performs, structured for
// programmatic use instead of text rendering.
func DecodeInstructions(code []byte) ([]Instruction, error) {
	var out []Instruction
	off := 0
	for off < len(code) {
		op := Opcode(code[off])
		if !op.Defined() {
			return nil, fmt.Errorf("bytecode: unrecognized opcode 0x%02X at offset %d", code[off], off)
		}
		width := 1 + op.OperandLen()
		if off+width > len(code) {
			return nil, fmt.Errorf("bytecode: truncated operand for %s at offset %d", op, off)
		}
		var operand uint16
		switch op.OperandLen() {
		case 1:
			operand = uint16(int8(code[off+1]))
		case 2:
			operand = binary.LittleEndian.Uint16(code[off+1 : off+3])
		}
		out = append(out, Instruction{Offset: off, Op: op, Operand: operand, Width: width})
		off += width
	}
	return out, nil
}
