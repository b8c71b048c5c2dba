/*
File   : microperl/bytecode/module.go
Package: bytecode

The module image wire format of spec.md section 3 and section 6: a
12-byte header, code bytes, and a string table. Encode/Decode are each
other's exact inverse — decoding an encoded Module reproduces it
byte-for-byte, which is what the header-integrity and string-interning
testable properties (spec.md section 8, items 4 and 5) check.
*/
package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Magic is the fixed 4-byte module header tag.
var Magic = [4]byte{'M', 'P', 'L', 0x01}

const headerSize = 12

// Module is a fully assembled, finalized program image: executable
// code plus its string table. There are no open fixups in a Module —
// the compiler only produces one once every jump and call site has been
// patched (spec.md section 3, Invariants).
type Module struct {
	EntryPoint uint16
	Code       []byte
	Strings    [][]byte
}

// Encode serializes m into the wire format of spec.md section 3.
// Returns an error if the string table would overflow its count byte or
// any entry its length byte, or if the code exceeds the 16-bit length
// field.
func (m *Module) Encode() ([]byte, error) {
	if len(m.Code) > 0xFFFF {
		return nil, fmt.Errorf("bytecode: code length %d exceeds 65535 bytes", len(m.Code))
	}
	if len(m.Strings) > 0xFF {
		return nil, fmt.Errorf("bytecode: string table has %d entries, limit 255", len(m.Strings))
	}

	var strTab []byte
	strTab = append(strTab, byte(len(m.Strings)))
	for _, s := range m.Strings {
		if len(s) > 0xFF {
			return nil, fmt.Errorf("bytecode: string entry length %d exceeds 255 bytes", len(s))
		}
		strTab = append(strTab, byte(len(s)))
		strTab = append(strTab, s...)
	}

	strTabOffset := headerSize + len(m.Code)
	out := make([]byte, 0, strTabOffset+len(strTab))
	out = append(out, Magic[:]...)
	out = binary.LittleEndian.AppendUint16(out, uint16(strTabOffset))
	out = binary.LittleEndian.AppendUint16(out, uint16(len(m.Code)))
	out = binary.LittleEndian.AppendUint16(out, m.EntryPoint)
	out = binary.LittleEndian.AppendUint16(out, 0) // reserved
	out = append(out, m.Code...)
	out = append(out, strTab...)
	return out, nil
}

// Decode parses the wire format produced by Encode. It validates the
// header-integrity invariants of spec.md section 8 item 4: magic,
// string-table offset, and code length must all agree with the actual
// byte layout.
func Decode(data []byte) (*Module, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("bytecode: module image too short: %d bytes", len(data))
	}
	if data[0] != Magic[0] || data[1] != Magic[1] || data[2] != Magic[2] || data[3] != Magic[3] {
		return nil, fmt.Errorf("bytecode: bad magic %v, want %v", data[0:4], Magic)
	}
	strTabOffset := binary.LittleEndian.Uint16(data[4:6])
	codeLen := binary.LittleEndian.Uint16(data[6:8])
	entry := binary.LittleEndian.Uint16(data[8:10])

	wantOffset := headerSize + int(codeLen)
	if int(strTabOffset) != wantOffset {
		return nil, fmt.Errorf("bytecode: string-table offset %d does not equal header+code length %d", strTabOffset, wantOffset)
	}
	if len(data) < wantOffset+1 {
		return nil, fmt.Errorf("bytecode: module image truncated before string table")
	}

	code := append([]byte(nil), data[headerSize:headerSize+int(codeLen)]...)

	pos := wantOffset
	count := int(data[pos])
	pos++
	strings := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		if pos >= len(data) {
			return nil, fmt.Errorf("bytecode: string table truncated at entry %d", i)
		}
		entryLen := int(data[pos])
		pos++
		if pos+entryLen > len(data) {
			return nil, fmt.Errorf("bytecode: string table entry %d overruns module", i)
		}
		strings = append(strings, append([]byte(nil), data[pos:pos+entryLen]...))
		pos += entryLen
	}
	if pos != len(data) {
		return nil, fmt.Errorf("bytecode: %d trailing bytes after string table", len(data)-pos)
	}

	return &Module{EntryPoint: entry, Code: code, Strings: strings}, nil
}
