package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()

	if c.Len() != 12 {
		t.Errorf("Len = %d, want 12", c.Len())
	}

	tests := []struct {
		tag   int
		name  string
		obj   int
		model string
	}{
		{0, "Cam-A", 6, "sea_models/stringray.stl"},
		{2, "Crank", 8, "sea_models/dolphin.stl"},
		{5, "Gear-C", 11, "sea_models/sea_turtle.stl"},
		{31, "Tropical Fish", 31, "fish_tropical_0409190013_texture.stl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := c.Get(tt.tag)
			if err != nil {
				t.Fatalf("Get(%d): %v", tt.tag, err)
			}
			if s.Name != tt.name {
				t.Errorf("Name = %q, want %q", s.Name, tt.name)
			}
			model, ok := s.ObjectModel(tt.obj)
			if !ok || model != tt.model {
				t.Errorf("ObjectModel(%d) = (%q, %v), want %q", tt.obj, model, ok, tt.model)
			}
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	_, err := Default().Get(27)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDirectModel(t *testing.T) {
	c := Default()

	if m, ok := c.DirectModel(15); !ok || m != "octopus_baby_exotic_t_0409195159_texture.stl" {
		t.Errorf("DirectModel(15) = (%q, %v)", m, ok)
	}
	if _, ok := c.DirectModel(20); ok {
		t.Error("DirectModel(20) should be unset")
	}
}

func TestIdentifierTags_Sorted(t *testing.T) {
	tags := Default().IdentifierTags()
	for i := 1; i < len(tags); i++ {
		if tags[i-1] >= tags[i] {
			t.Fatalf("tags not strictly ascending: %v", tags)
		}
	}
}

func TestNew_DuplicateTag(t *testing.T) {
	_, err := New([]Scenario{
		{IdentifierTag: 1, Name: "a"},
		{IdentifierTag: 1, Name: "b"},
	}, nil)
	if err == nil {
		t.Error("expected duplicate tag error")
	}
}

func TestParse(t *testing.T) {
	doc := []byte(`
scenarios:
  - identifier_tag: 3
    name: Gear-A
    objects:
      - tag: "9"
        model: octopus.stl
  - identifier_tag: "12"
    name: Lever
direct_models:
  "9": octopus.stl
  "12": lever.stl
`)
	c, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	s, err := c.Get(12)
	if err != nil {
		t.Fatalf("Get(12): %v", err)
	}
	if s.Name != "Lever" {
		t.Errorf("Name = %q", s.Name)
	}
	gear, _ := c.Get(3)
	if m, ok := gear.ObjectModel(9); !ok || m != "octopus.stl" {
		t.Errorf("ObjectModel(9) = (%q, %v)", m, ok)
	}
	if m, _ := c.DirectModel(12); m != "lever.stl" {
		t.Errorf("DirectModel(12) = %q", m)
	}
}

func TestParse_InvalidTag(t *testing.T) {
	_, err := Parse([]byte("scenarios:\n  - identifier_tag: abc\n    name: x\n"))
	if err == nil {
		t.Error("expected error for non-numeric tag")
	}
}

func TestMarshalRoundTripThroughFile(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != Default().Len() {
		t.Errorf("Len = %d, want %d", c.Len(), Default().Len())
	}
	if m, ok := c.DirectModel(0); !ok || m != "sea_models/stringray.stl" {
		t.Errorf("DirectModel(0) = (%q, %v)", m, ok)
	}
}

func TestLoadOrDefault_Empty(t *testing.T) {
	c, err := LoadOrDefault("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != Default().Len() {
		t.Error("empty path should yield the built-in catalog")
	}
}
