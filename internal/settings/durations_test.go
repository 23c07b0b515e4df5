package settings

import "testing"

func TestDefaultIsValid(t *testing.T) {
	d := Default()
	if d != (Durations{Settle: 2, Meditate: 20, Emerge: 2}) {
		t.Errorf("Default() = %+v", d)
	}
	if !d.Valid() {
		t.Error("default durations should be valid")
	}
	if d.Total() != 24 {
		t.Errorf("Total() = %d, want 24", d.Total())
	}
}

func TestAdjustClampsToBounds(t *testing.T) {
	tests := []struct {
		name  string
		start Durations
		field Field
		dir   int
		want  int
	}{
		{"settle at max", Durations{30, 20, 2}, Settle, +1, 30},
		{"settle at min", Durations{1, 20, 2}, Settle, -1, 1},
		{"meditate at max", Durations{2, 120, 2}, Meditate, +1, 120},
		{"meditate step", Durations{2, 20, 2}, Meditate, +1, 21},
		{"emerge at min", Durations{2, 20, 1}, Emerge, -1, 1},
		{"emerge large jump", Durations{2, 20, 2}, Emerge, +100, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start.Adjust(tt.field, tt.dir)
			if got.Get(tt.field) != tt.want {
				t.Errorf("Adjust(%s, %+d) = %d, want %d", tt.field, tt.dir, got.Get(tt.field), tt.want)
			}
			if !got.Valid() {
				t.Errorf("Adjust produced invalid durations %+v", got)
			}
		})
	}
}

func TestAdjustNeverLeavesBounds(t *testing.T) {
	for _, f := range []Field{Settle, Meditate, Emerge} {
		d := Default()
		for i := 0; i < 200; i++ {
			d = d.Adjust(f, +1)
		}
		if d.Get(f) != Limits(f).Max {
			t.Errorf("%s after many +1 = %d, want %d", f, d.Get(f), Limits(f).Max)
		}
		for i := 0; i < 200; i++ {
			d = d.Adjust(f, -1)
		}
		if d.Get(f) != Limits(f).Min {
			t.Errorf("%s after many -1 = %d, want %d", f, d.Get(f), Limits(f).Min)
		}
	}
}

func TestSetClamps(t *testing.T) {
	d := Default().Set(Meditate, 999)
	if d.Meditate != 120 {
		t.Errorf("Set(Meditate, 999) = %d, want 120", d.Meditate)
	}
	d = d.Set(Settle, 0)
	if d.Settle != 1 {
		t.Errorf("Set(Settle, 0) = %d, want 1", d.Settle)
	}
}

func TestParseField(t *testing.T) {
	for _, f := range []Field{Settle, Meditate, Emerge} {
		got, err := ParseField(f.String())
		if err != nil || got != f {
			t.Errorf("ParseField(%q) = %v, %v", f.String(), got, err)
		}
	}
	if _, err := ParseField("nap"); err == nil {
		t.Error("expected error for unknown field")
	}
}
