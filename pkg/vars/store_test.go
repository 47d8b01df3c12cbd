package vars

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	want := map[string]int{HP: 20, Strength: 2, Dexterity: 2, Intellect: 2, Possession: 0}
	for name, n := range want {
		if got := d.Num(name); got != n {
			t.Errorf("Defaults()[%s] = %d, want %d", name, got, n)
		}
	}
	if len(d) != len(want) {
		t.Errorf("Defaults() has %d variables, want %d", len(d), len(want))
	}
}

func TestStore_ApplyDelta(t *testing.T) {
	tests := []struct {
		name  string
		start Store
		delta map[string]int
		want  Store
	}{
		{
			name:  "increments existing",
			start: Store{Possession: Int(1)},
			delta: map[string]int{Possession: 2},
			want:  Store{Possession: Int(3)},
		},
		{
			name:  "unset defaults to zero",
			start: Store{},
			delta: map[string]int{"gold": 5},
			want:  Store{"gold": Int(5)},
		},
		{
			name:  "negative delta",
			start: Store{Possession: Int(0)},
			delta: map[string]int{Possession: -1},
			want:  Store{Possession: Int(-1)},
		},
		{
			name:  "non-numeric reads as zero",
			start: Store{"path": String("crow")},
			delta: map[string]int{"path": 1},
			want:  Store{"path": Int(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.start.Clone()
			s.ApplyDelta(tt.delta)
			if !s.Equal(tt.want) {
				t.Errorf("ApplyDelta() = %v, want %v", s, tt.want)
			}
		})
	}
}

func TestStore_AssignReturnsSortedNames(t *testing.T) {
	s := Store{}
	got := s.Assign(map[string]Value{"b": Bool(true), "a": Int(1)})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Assign() touched = %v, want [a b]", got)
	}
	if v, _ := s.Get("b"); !v.Bool() {
		t.Error("expected b to be true")
	}
}

func TestStore_ClampHP(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 24, want: 20},
		{in: 20, want: 20},
		{in: 7, want: 7},
		{in: -2, want: 0},
	}
	for _, tt := range tests {
		s := Store{HP: Int(tt.in)}
		s.ClampHP()
		if got := s.Num(HP); got != tt.want {
			t.Errorf("ClampHP(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}

	s := Store{HP: Bool(true)}
	s.ClampHP()
	if v, _ := s.Get(HP); v.Kind() != KindBool {
		t.Error("ClampHP should leave non-numeric hp untouched")
	}
}

func TestStore_Damage(t *testing.T) {
	s := Store{HP: Int(2)}
	s.Damage(3)
	if s.Num(HP) != 0 {
		t.Errorf("Damage() hp = %d, want 0", s.Num(HP))
	}
}

func TestStore_CloneIsIndependent(t *testing.T) {
	a := Defaults()
	b := a.Clone()
	b[HP] = Int(1)
	if a.Num(HP) != HeroMaxHP {
		t.Error("mutating clone changed original")
	}
}

func TestValue_JSON(t *testing.T) {
	var s Store
	if err := json.Unmarshal([]byte(`{"hp": 12, "quete_signes": true, "path": "crow", "quoted": "12"}`), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if s.Num(HP) != 12 {
		t.Errorf("hp = %d, want 12", s.Num(HP))
	}
	if v := s["quete_signes"]; v.Kind() != KindBool || !v.Bool() {
		t.Errorf("quete_signes = %v, want true", v)
	}
	if v := s["path"]; v != String("crow") {
		t.Errorf("path = %v, want crow", v)
	}
	if v := s["quoted"]; v.Kind() != KindString {
		t.Errorf("quoted kind = %v, want string", v.Kind())
	}

	out, err := json.Marshal(Store{"hp": Int(3)})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != `{"hp":3}` {
		t.Errorf("Marshal() = %s", out)
	}

	var bad Value
	if err := json.Unmarshal([]byte(`1.5`), &bad); err == nil {
		t.Error("expected error for fractional value")
	}
}

func TestValue_YAML(t *testing.T) {
	var s Store
	doc := "hp: 8\nquete_signes: true\npath: light\n"
	if err := yaml.Unmarshal([]byte(doc), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if s.Num(HP) != 8 {
		t.Errorf("hp = %d, want 8", s.Num(HP))
	}
	if !s["quete_signes"].Bool() {
		t.Error("quete_signes should be true")
	}
	if s["path"] != String("light") {
		t.Errorf("path = %v, want light", s["path"])
	}

	var bad Value
	if err := yaml.Unmarshal([]byte("[1, 2]"), &bad); err == nil {
		t.Error("expected error for sequence value")
	}
}
