// Package genome defines the immutable stat and trait bundle a fighter is
// spawned from. Genomes are produced elsewhere (generation and breeding) and
// are only validated and read here.
package genome

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// StatMin and StatMax bound every individual stat.
	StatMin = 10
	StatMax = 100
	// StatSumCap bounds the sum of the four stats.
	StatSumCap = 350
)

// ErrInvalidGenome is wrapped by every validation failure.
var ErrInvalidGenome = errors.New("invalid genome")

// Stats holds the four numeric stats.
type Stats struct {
	Bulk     int `yaml:"bulk" json:"bulk" msgpack:"bulk"`
	Speed    int `yaml:"speed" json:"speed" msgpack:"speed"`
	Fury     int `yaml:"fury" json:"fury" msgpack:"fury"`
	Instinct int `yaml:"instinct" json:"instinct" msgpack:"instinct"`
}

// Sum returns Bulk+Speed+Fury+Instinct.
func (s Stats) Sum() int { return s.Bulk + s.Speed + s.Fury + s.Instinct }

// Mobility is the movement domain of a fighter.
type Mobility string

const (
	MobilityGround      Mobility = "ground"
	MobilityFlyer       Mobility = "flyer"
	MobilityWallcrawler Mobility = "wallcrawler"
)

// Valid reports whether m is one of the three mobility classes.
func (m Mobility) Valid() bool {
	switch m {
	case MobilityGround, MobilityFlyer, MobilityWallcrawler:
		return true
	}
	return false
}

// Traits holds the categorical traits selected at creation or breeding time.
type Traits struct {
	Weapon   string   `yaml:"weapon" json:"weapon" msgpack:"weapon"`
	Defense  string   `yaml:"defense" json:"defense" msgpack:"defense"`
	Mobility Mobility `yaml:"mobility" json:"mobility" msgpack:"mobility"`
}

// Genome is the read-only description of a fighter.
type Genome struct {
	ID     string `yaml:"id" json:"id" msgpack:"id"`
	Name   string `yaml:"name" json:"name" msgpack:"name"`
	Stats  Stats  `yaml:"stats" json:"stats" msgpack:"stats"`
	Traits Traits `yaml:"traits" json:"traits" msgpack:"traits"`
}

// Validate checks the stat bounds, the stat sum cap and that every trait is known.
// All violations are reported together.
//
// Postcondition: Returns nil iff every stat is in [StatMin, StatMax], the sum is at
// most StatSumCap, and Weapon, Defense and Mobility name known traits. Any returned
// error wraps ErrInvalidGenome.
func (g Genome) Validate() error {
	var errs []string
	if g.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	for _, st := range []struct {
		name  string
		value int
	}{
		{"bulk", g.Stats.Bulk},
		{"speed", g.Stats.Speed},
		{"fury", g.Stats.Fury},
		{"instinct", g.Stats.Instinct},
	} {
		if st.value < StatMin || st.value > StatMax {
			errs = append(errs, fmt.Sprintf("%s must be %d-%d, got %d", st.name, StatMin, StatMax, st.value))
		}
	}
	if sum := g.Stats.Sum(); sum > StatSumCap {
		errs = append(errs, fmt.Sprintf("stat sum must be <= %d, got %d", StatSumCap, sum))
	}
	if _, ok := weapons[g.Traits.Weapon]; !ok {
		errs = append(errs, fmt.Sprintf("unknown weapon %q", g.Traits.Weapon))
	}
	if _, ok := defenses[g.Traits.Defense]; !ok {
		errs = append(errs, fmt.Sprintf("unknown defense %q", g.Traits.Defense))
	}
	if !g.Traits.Mobility.Valid() {
		errs = append(errs, fmt.Sprintf("unknown mobility %q", g.Traits.Mobility))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %s", ErrInvalidGenome, g.ID, strings.Join(errs, "; "))
	}
	return nil
}

// Weapon returns the weapon profile for the genome's weapon trait.
//
// Precondition: Validate returned nil.
func (g Genome) Weapon() WeaponProfile { return weapons[g.Traits.Weapon] }

// Defense returns the defense profile for the genome's defense trait.
//
// Precondition: Validate returned nil.
func (g Genome) Defense() DefenseProfile { return defenses[g.Traits.Defense] }

// LoadFromBytes parses and validates a single genome from YAML.
//
// Postcondition: Returns a validated Genome or an error.
func LoadFromBytes(data []byte) (Genome, error) {
	var g Genome
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Genome{}, fmt.Errorf("parsing genome YAML: %w", err)
	}
	if err := g.Validate(); err != nil {
		return Genome{}, err
	}
	return g, nil
}

// LoadDir reads every *.yaml file in dir, sorted by file name.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all genomes or the first parse/validate error; genome IDs
// are unique in the result.
func LoadDir(dir string) ([]Genome, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading genome dir %q: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	seen := make(map[string]string, len(names))
	out := make([]Genome, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		g, err := LoadFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if prev, dup := seen[g.ID]; dup {
			return nil, fmt.Errorf("loading %q: duplicate genome id %q (also in %q)", path, g.ID, prev)
		}
		seen[g.ID] = path
		out = append(out, g)
	}
	return out, nil
}
