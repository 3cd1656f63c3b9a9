package mto

import (
	"testing"
)

func TestParseNumber(t *testing.T) {
	ptr := func(f float64) *float64 { return &f }
	tests := []struct {
		name string
		in   string
		want *float64
	}{
		{"integer", "16", ptr(16)},
		{"decimal point", "3.14", ptr(3.14)},
		{"decimal comma", "12,5", ptr(12.5)},
		{"thousands comma", "1,234", ptr(1234)},
		{"thousands point", "12.345", ptr(12345)},
		{"grouped points", "1.234.567", ptr(1234567)},
		{"mixed continental", "1.234,5", ptr(1234.5)},
		{"mixed anglo", "1,234.5", ptr(1234.5)},
		{"whitespace", "  42 ", ptr(42)},
		{"embedded text", "qty: 7", ptr(7)},
		{"negative", "-3", ptr(-3)},
		{"empty", "", nil},
		{"letters only", "abc", nil},
		{"dash placeholder", "-", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNumber(tt.in)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("ParseNumber(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, *got, *tt.want)
			}
		})
	}
}

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"meter", "m"},
		{"Meters", "m"},
		{"pc", "pcs"},
		{"PC", "pcs"},
		{"joints", "joint"},
		{"M", "M"},   // case preserved for unmapped tokens
		{"EA", "EA"}, // same
		{"pcs", "pcs"},
		{"", ""},
		{"  set ", "set"},
	}
	for _, tt := range tests {
		if got := NormalizeUnit(tt.in); got != tt.want {
			t.Errorf("NormalizeUnit(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsKnownUnit(t *testing.T) {
	for _, u := range []string{"M", "m", "pcs", "EA", "set", "joint", "14.5kg", "kg"} {
		if !IsKnownUnit(u) {
			t.Errorf("IsKnownUnit(%q) = false, want true", u)
		}
	}
	for _, u := range []string{"", "furlong", "4 Inch"} {
		if IsKnownUnit(u) {
			t.Errorf("IsKnownUnit(%q) = true, want false", u)
		}
	}
}

func TestNormalizeSize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string // "" means nil
	}{
		{"inch mark", `4"`, "4 Inch"},
		{"fraction inch", `1/2"`, "1/2 Inch"},
		{"decimal inch", `1.5"`, "1.5 Inch"},
		{"spelled inch", "4 in", "4 Inch"},
		{"dash means none", "-", ""},
		{"double dash", "--", ""},
		{"empty", "", ""},
		{"compound", "50x50", "50x50"},
		{"millimetres", "3mm", "3mm"},
		{"dn passthrough", "DN50", "DN50"},
		{"already normalized", "6 Inch", "6 Inch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeSize(tt.in)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("NormalizeSize(%q) = %q, want nil", tt.in, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Fatalf("NormalizeSize(%q) = %v, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitNameSpec(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantName string
		wantSpec string // "" means nil
	}{
		{
			"comma separated",
			"PIPE, API 5L Gr.B, ERW, SCH.40, BE (ASME B36.10M)",
			"PIPE",
			"API 5L Gr.B, ERW, SCH.40, BE (ASME B36.10M)",
		},
		{"marker token", "PIPE SCH40 SMLS", "PIPE", "SCH40 SMLS"},
		{"standards body", "FLANGE ASTM A105", "FLANGE", "ASTM A105"},
		{"parenthesised", "ELBOW 90 DEG (ASME B16.9)", "ELBOW 90 DEG", "(ASME B16.9)"},
		{"no split point", "GATE VALVE", "GATE VALVE", ""},
		{"marker first token stays whole", "API PLAN FLUSH", "API PLAN FLUSH", ""},
		{"empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, spec := SplitNameSpec(tt.in)
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if tt.wantSpec == "" {
				if spec != nil {
					t.Errorf("spec = %q, want nil", *spec)
				}
			} else if spec == nil || *spec != tt.wantSpec {
				t.Errorf("spec = %v, want %q", spec, tt.wantSpec)
			}
		})
	}
}

func TestApplyWeightUnitSwap(t *testing.T) {
	tests := []struct {
		name     string
		size     string // "" means nil
		unit     string // "" means nil
		wantSize string
		wantUnit string
	}{
		{"weight with ea", "14.5kg", "ea", "", "14.5kg"},
		{"weight with EA", "20 kg", "EA", "", "20kg"},
		{"comma weight", "14,5kg", "ea", "", "14,5kg"},
		{"pcs does not trigger", "14.5kg", "pcs", "14.5kg", "pcs"},
		{"real size untouched", "4 Inch", "ea", "4 Inch", "ea"},
		{"nil unit untouched", "14.5kg", "", "14.5kg", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var size, unit *string
			if tt.size != "" {
				size = strptr(tt.size)
			}
			if tt.unit != "" {
				unit = strptr(tt.unit)
			}
			gotSize, gotUnit := ApplyWeightUnitSwap(size, unit)
			checkOpt(t, "size", gotSize, tt.wantSize)
			checkOpt(t, "unit", gotUnit, tt.wantUnit)
		})
	}
}

func checkOpt(t *testing.T, field string, got *string, want string) {
	t.Helper()
	if want == "" {
		if got != nil {
			t.Errorf("%s = %q, want nil", field, *got)
		}
		return
	}
	if got == nil || *got != want {
		t.Errorf("%s = %v, want %q", field, got, want)
	}
}

func TestBuildMaterial(t *testing.T) {
	t.Run("full row", func(t *testing.T) {
		var c Collector
		m, ok := buildMaterial("PIPE, API 5L Gr.B, ERW, SCH.40, BE (ASME B36.10M)", "16", "M", `4"`, 1, &c)
		if !ok {
			t.Fatal("expected material")
		}
		if m.Description != "PIPE" {
			t.Errorf("description = %q, want PIPE", m.Description)
		}
		if m.Spec == nil || *m.Spec != "API 5L Gr.B, ERW, SCH.40, BE (ASME B36.10M)" {
			t.Errorf("spec = %v", m.Spec)
		}
		if m.Quantity == nil || *m.Quantity != 16 {
			t.Errorf("quantity = %v, want 16", m.Quantity)
		}
		if m.Unit == nil || *m.Unit != "M" {
			t.Errorf("unit = %v, want M", m.Unit)
		}
		if m.Size == nil || *m.Size != "4 Inch" {
			t.Errorf("size = %v, want 4 Inch", m.Size)
		}
		if len(c.Warnings()) != 0 {
			t.Errorf("unexpected warnings: %v", c.Messages())
		}
	})

	t.Run("empty description skipped", func(t *testing.T) {
		var c Collector
		if _, ok := buildMaterial("   ", "1", "pcs", "", 3, &c); ok {
			t.Fatal("expected row to be skipped")
		}
		ws := c.Warnings()
		if len(ws) != 1 || ws[0].Kind != WarnEmptyDescription || ws[0].Row != 3 {
			t.Errorf("warnings = %+v", ws)
		}
	})

	t.Run("unparseable quantity stays nil", func(t *testing.T) {
		var c Collector
		m, ok := buildMaterial("GASKET", "N/A", "pcs", "", 2, &c)
		if !ok {
			t.Fatal("expected material")
		}
		if m.Quantity != nil {
			t.Errorf("quantity = %v, want nil", *m.Quantity)
		}
		found := false
		for _, w := range c.Warnings() {
			if w.Kind == WarnQuantityUnparsed && w.Row == 2 {
				found = true
			}
		}
		if !found {
			t.Errorf("missing quantity warning: %+v", c.Warnings())
		}
	})

	t.Run("unknown unit kept with warning", func(t *testing.T) {
		var c Collector
		m, ok := buildMaterial("BOLT", "10", "furlong", "", 1, &c)
		if !ok {
			t.Fatal("expected material")
		}
		if m.Unit == nil || *m.Unit != "furlong" {
			t.Errorf("unit = %v, want furlong", m.Unit)
		}
		if len(c.Warnings()) != 1 || c.Warnings()[0].Kind != WarnUnitUnrecognized {
			t.Errorf("warnings = %+v", c.Warnings())
		}
	})
}

func TestNormalizeSpec(t *testing.T) {
	got := NormalizeSpec("API 5L Gr.B,\n ERW, SCH.40\n")
	want := "API 5L Gr.B, ERW, SCH.40"
	if got != want {
		t.Errorf("NormalizeSpec = %q, want %q", got, want)
	}
}
