package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModule_EncodeDecodeRoundTrip(t *testing.T) {
	m := &Module{
		EntryPoint: 0,
		Code:       []byte{byte(PUSHBYTE), 7, byte(PRINTNUM), byte(HALT)},
		Strings:    [][]byte{[]byte("hi"), []byte("bye")},
	}
	data, err := m.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, m.EntryPoint, decoded.EntryPoint)
	assert.Equal(t, m.Code, decoded.Code)
	assert.Equal(t, m.Strings, decoded.Strings)
}

func TestModule_HeaderIntegrity(t *testing.T) {
	m := &Module{Code: []byte{byte(NOP), byte(HALT)}, Strings: [][]byte{[]byte("x")}}
	data, err := m.Encode()
	require.NoError(t, err)

	assert.Equal(t, Magic[:], data[0:4])

	wantStrTabOffset := headerSize + len(m.Code)
	gotStrTabOffset := int(data[4]) | int(data[5])<<8
	assert.Equal(t, wantStrTabOffset, gotStrTabOffset)

	gotCodeLen := int(data[6]) | int(data[7])<<8
	assert.Equal(t, len(m.Code), gotCodeLen)

	gotEntry := int(data[8]) | int(data[9])<<8
	assert.Equal(t, 0, gotEntry)
}

func TestModule_DecodeRejectsBadMagic(t *testing.T) {
	data := []byte{'X', 'X', 'X', 'X', 12, 0, 0, 0, 0, 0, 0, 0}
	_, err := Decode(data)
	require.Error(t, err)
}

func TestModule_DecodeRejectsBadStringTableOffset(t *testing.T) {
	m := &Module{Code: []byte{byte(HALT)}}
	data, err := m.Encode()
	require.NoError(t, err)
	data[4] = 0xFF // corrupt the string-table offset field
	_, err = Decode(data)
	require.Error(t, err)
}

func TestModule_DecodeRejectsTrailingBytes(t *testing.T) {
	m := &Module{Code: []byte{byte(HALT)}}
	data, err := m.Encode()
	require.NoError(t, err)
	data = append(data, 0xAB)
	_, err = Decode(data)
	require.Error(t, err)
}

func TestDisassemble_WellFormedOpcodes(t *testing.T) {
	code := []byte{byte(PUSHBYTE), 7, byte(PRINTNUM), byte(HALT)}
	instrs, err := DecodeInstructions(code)
	require.NoError(t, err)
	require.Len(t, instrs, 3)
	assert.Equal(t, PUSHBYTE, instrs[0].Op)
	assert.Equal(t, 2, instrs[0].Width)
	assert.Equal(t, uint16(7), instrs[0].Operand)
	assert.Equal(t, PRINTNUM, instrs[1].Op)
	assert.Equal(t, HALT, instrs[2].Op)
}

func TestDisassemble_RejectsUnrecognizedOpcode(t *testing.T) {
	code := []byte{0x7F} // not in the fixed contract
	_, err := DecodeInstructions(code)
	require.Error(t, err)
}

func TestDisassemble_RejectsTruncatedOperand(t *testing.T) {
	code := []byte{byte(PUSH), 0x01} // PUSH needs 2 operand bytes, only 1 present
	_, err := DecodeInstructions(code)
	require.Error(t, err)
}

func TestDisassemble_ProducesOneLinePerInstruction(t *testing.T) {
	code := []byte{byte(NOP), byte(PUSHBYTE), 5, byte(HALT)}
	out := Disassemble(code)
	assert.Equal(t, 3, len(splitNonEmptyLines(out)))
}

func splitNonEmptyLines(s string) []string {
	var out []string
	cur := ""
	for _, c := range s {
		if c == '\n' {
			if cur != "" {
				out = append(out, cur)
			}
			cur = ""
			continue
		}
		cur += string(c)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func TestOpcode_StringAndDefined(t *testing.T) {
	assert.Equal(t, "ADD", ADD.String())
	assert.True(t, ADD.Defined())
	assert.Equal(t, "INVALID", Opcode(0x7F).String())
	assert.False(t, Opcode(0x7F).Defined())
}
