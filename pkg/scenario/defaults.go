package scenario

// Built-in kit scenarios. Tags 0-5 are the mechanism boards; the remaining
// entries use the object marker itself as the identifier.
var builtin = []Scenario{
	{IdentifierTag: 0, Name: "Cam-A", Description: "Cam follower with a stingray rider",
		Objects: []Object{{Tag: 6, ModelPath: "sea_models/stringray.stl"}}},
	{IdentifierTag: 1, Name: "Cam-C", Description: "Offset cam driving a jellyfish",
		Objects: []Object{{Tag: 7, ModelPath: "sea_models/jellyfish.stl"}}},
	{IdentifierTag: 2, Name: "Crank", Description: "Crank slider with a dolphin",
		Objects: []Object{{Tag: 8, ModelPath: "sea_models/dolphin.stl"}}},
	{IdentifierTag: 3, Name: "Gear-A", Description: "Spur gear train with an octopus",
		Objects: []Object{{Tag: 9, ModelPath: "sea_models/octopus.stl"}}},
	{IdentifierTag: 4, Name: "Gear-B", Description: "Gear pair carrying a school of fish",
		Objects: []Object{{Tag: 10, ModelPath: "sea_models/fishes.stl"}}},
	{IdentifierTag: 5, Name: "Gear-C", Description: "Compound gears with a sea turtle",
		Objects: []Object{{Tag: 11, ModelPath: "sea_models/sea_turtle.stl"}}},

	{IdentifierTag: 15, Name: "Baby Octopus", Description: "Exotic baby octopus",
		Objects: []Object{{Tag: 15, ModelPath: "octopus_baby_exotic_t_0409195159_texture.stl"}}},
	{IdentifierTag: 7, Name: "Exotic Octopus", Description: "Tropical octopus",
		Objects: []Object{{Tag: 7, ModelPath: "octopus_exotic_tropic_0409194610_texture.stl"}}},
	{IdentifierTag: 8, Name: "Reef Fish", Description: "Coral reef fish",
		Objects: []Object{{Tag: 8, ModelPath: "coral_reef_fish_uniqu_0409193350_texture.stl"}}},
	{IdentifierTag: 9, Name: "Marine Animal", Description: "Exotic marine animal",
		Objects: []Object{{Tag: 9, ModelPath: "marine_animal_exotic__0409191724_texture.stl"}}},
	{IdentifierTag: 10, Name: "Exotic Jellyfish", Description: "Tropical jellyfish",
		Objects: []Object{{Tag: 10, ModelPath: "jellyfish_exotic_trop_0409193559_texture.stl"}}},
	{IdentifierTag: 31, Name: "Tropical Fish", Description: "Tropical fish",
		Objects: []Object{{Tag: 31, ModelPath: "fish_tropical_0409190013_texture.stl"}}},
}

// builtinDirect binds marker ids straight to a model regardless of scenario
var builtinDirect = map[int]string{
	0:  "sea_models/stringray.stl",
	1:  "sea_models/jellyfish.stl",
	2:  "sea_models/dolphin.stl",
	3:  "sea_models/octopus.stl",
	4:  "sea_models/fishes.stl",
	5:  "sea_models/sea_turtle.stl",
	6:  "sea_models/stringray.stl",
	7:  "octopus_exotic_tropic_0409194610_texture.stl",
	8:  "coral_reef_fish_uniqu_0409193350_texture.stl",
	9:  "marine_animal_exotic__0409191724_texture.stl",
	10: "jellyfish_exotic_trop_0409193559_texture.stl",
	11: "sea_models/sea_turtle.stl",
	15: "octopus_baby_exotic_t_0409195159_texture.stl",
	31: "fish_tropical_0409190013_texture.stl",
}

// Default returns the built-in catalog
func Default() *Catalog {
	c, err := New(builtin, builtinDirect)
	if err != nil {
		panic(err) // built-in table is static
	}
	return c
}
