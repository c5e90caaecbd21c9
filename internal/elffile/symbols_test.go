package elffile

import (
	"debug/elf"
	"strings"
	"testing"
)

func mkSym(name string, bind elf.SymBind, typ elf.SymType, size uint64) elf.Symbol {
	return elf.Symbol{
		Name: name,
		Info: elf.ST_INFO(bind, typ),
		Size: size,
	}
}

func TestKeepSymbol(t *testing.T) {
	tests := []struct {
		name string
		sym  elf.Symbol
		want bool
	}{
		{"global function", mkSym("main", elf.STB_GLOBAL, elf.STT_FUNC, 120), true},
		{"local object", mkSym("counter", elf.STB_LOCAL, elf.STT_OBJECT, 4), true},
		{"zero-size function kept", mkSym("Reset_Handler", elf.STB_GLOBAL, elf.STT_FUNC, 0), true},
		{"zero-size local object kept", mkSym("guard", elf.STB_LOCAL, elf.STT_OBJECT, 0), true},
		{"weak symbol", mkSym("memset", elf.STB_WEAK, elf.STT_FUNC, 64), true},
		{"unnamed", mkSym("", elf.STB_GLOBAL, elf.STT_FUNC, 8), false},
		{"arm mapping symbol", mkSym("$t", elf.STB_LOCAL, elf.STT_NOTYPE, 0), false},
		{"arm data marker", mkSym("$d.12", elf.STB_LOCAL, elf.STT_NOTYPE, 0), false},
		{"section symbol", mkSym(".text", elf.STB_LOCAL, elf.STT_SECTION, 0), false},
		{"file symbol", mkSym("main.c", elf.STB_LOCAL, elf.STT_FILE, 0), false},
		{"sizeless local label", mkSym(".L42", elf.STB_LOCAL, elf.STT_NOTYPE, 0), false},
		{"sized local notype kept", mkSym("jump_table", elf.STB_LOCAL, elf.STT_NOTYPE, 32), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keepSymbol(tt.sym); got != tt.want {
				t.Errorf("keepSymbol(%q) = %v, want %v", tt.sym.Name, got, tt.want)
			}
		})
	}
}

func TestSymbolKindAndBinding(t *testing.T) {
	if got := symbolKind(elf.STT_FUNC); got != "FUNC" {
		t.Errorf("symbolKind(STT_FUNC) = %q", got)
	}
	if got := symbolKind(elf.STT_OBJECT); got != "OBJECT" {
		t.Errorf("symbolKind(STT_OBJECT) = %q", got)
	}
	if got := symbolKind(elf.STT_TLS); got != "TLS" {
		t.Errorf("symbolKind(STT_TLS) = %q", got)
	}
	if got := symbolKind(elf.STT_NOTYPE); got != "OTHER" {
		t.Errorf("symbolKind(STT_NOTYPE) = %q", got)
	}
	if got := symbolBinding(elf.STB_LOCAL); got != "LOCAL" {
		t.Errorf("symbolBinding(STB_LOCAL) = %q", got)
	}
	if got := symbolBinding(elf.STB_WEAK); got != "WEAK" {
		t.Errorf("symbolBinding(STB_WEAK) = %q", got)
	}
	if got := symbolBinding(elf.STB_GLOBAL); got != "GLOBAL" {
		t.Errorf("symbolBinding(STB_GLOBAL) = %q", got)
	}
}

func TestDemangleName(t *testing.T) {
	got := demangleName("_ZN5Motor5startEv")
	if !strings.Contains(got, "Motor::start") {
		t.Errorf("demangleName(_ZN5Motor5startEv) = %q, want Motor::start", got)
	}
	if got := demangleName("main"); got != "" {
		t.Errorf("demangleName(main) = %q, want empty", got)
	}
	if got := demangleName("uart_isr_handler"); got != "" {
		t.Errorf("demangleName(uart_isr_handler) = %q, want empty", got)
	}
}
