package dwarfinfo

import (
	"encoding/binary"
	"testing"
)

func TestParseLocationAddr(t *testing.T) {
	// DW_OP_addr with a 4-byte little-endian operand.
	expr := []byte{opAddr, 0x00, 0x00, 0x00, 0x20}
	addr, ok := parseLocation(expr, 4, binary.LittleEndian, nil, 0)
	if !ok || addr != 0x20000000 {
		t.Errorf("parseLocation = %#x, %v; want 0x20000000, true", addr, ok)
	}

	// 8-byte operand.
	expr = []byte{opAddr, 0x00, 0x10, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}
	addr, ok = parseLocation(expr, 8, binary.LittleEndian, nil, 0)
	if !ok || addr != 0x100001000 {
		t.Errorf("parseLocation = %#x, %v; want 0x100001000, true", addr, ok)
	}
}

func TestParseLocationAddrx(t *testing.T) {
	// .debug_addr: 8-byte header (skipped via base), then two 4-byte
	// entries; DW_OP_addrx 1 selects the second.
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[8:], 0x08000000)
	binary.LittleEndian.PutUint32(data[12:], 0x20000004)
	tab := &debugAddrTable{data: data, addrSize: 4, byteOrder: binary.LittleEndian}

	expr := []byte{opAddrx, 0x01}
	addr, ok := parseLocation(expr, 4, binary.LittleEndian, tab, 8)
	if !ok || addr != 0x20000004 {
		t.Errorf("parseLocation addrx = %#x, %v; want 0x20000004, true", addr, ok)
	}

	// Out-of-range index.
	expr = []byte{opAddrx, 0x05}
	if _, ok := parseLocation(expr, 4, binary.LittleEndian, tab, 8); ok {
		t.Error("out-of-range addrx index resolved")
	}

	// Missing table.
	if _, ok := parseLocation([]byte{opAddrx, 0x00}, 4, binary.LittleEndian, nil, 0); ok {
		t.Error("addrx without .debug_addr resolved")
	}
}

func TestParseLocationNonGlobal(t *testing.T) {
	tests := []struct {
		name string
		expr []byte
	}{
		{"empty", nil},
		{"register (DW_OP_reg3)", []byte{0x53}},
		{"frame base (DW_OP_fbreg)", []byte{0x91, 0x7c}},
		{"truncated addr", []byte{opAddr, 0x01, 0x02}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := parseLocation(tt.expr, 4, binary.LittleEndian, nil, 0); ok {
				t.Errorf("parseLocation(%v) resolved, want ignored", tt.expr)
			}
		})
	}
}

func TestUleb128(t *testing.T) {
	tests := []struct {
		bytes []byte
		want  uint64
		n     int
	}{
		{[]byte{0x00}, 0, 1},
		{[]byte{0x7f}, 127, 1},
		{[]byte{0x80, 0x01}, 128, 2},
		{[]byte{0xe5, 0x8e, 0x26}, 624485, 3},
		{[]byte{0x80}, 0, 0}, // truncated
	}
	for _, tt := range tests {
		v, n := uleb128(tt.bytes)
		if v != tt.want || n != tt.n {
			t.Errorf("uleb128(%v) = %d, %d; want %d, %d", tt.bytes, v, n, tt.want, tt.n)
		}
	}
}
