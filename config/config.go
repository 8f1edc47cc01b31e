// Package config provides configuration loading and validation for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Plant species names accepted by plant.species.
const (
	SpeciesGeometric = "geometric"
	SpeciesSinuous   = "sinuous"
)

// directionalGenes are the only symbols besides the no-op a genome may carry.
const directionalGenes = "NSEW"

// Config holds all simulation configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Plant     PlantConfig     `yaml:"plant"`
	Organism  OrganismConfig  `yaml:"organism"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds grid dimensions.
type WorldConfig struct {
	Rows    int `yaml:"rows"`
	Columns int `yaml:"columns"`
}

// PlantConfig holds plant growth parameters.
type PlantConfig struct {
	Species          string  `yaml:"species"`            // geometric or sinuous
	MaxPopulation    int     `yaml:"max_population"`     // Cap on live plant cells across all plants
	EnergyPerCell    int     `yaml:"energy_per_cell"`    // Growth cost and meal value of one cell
	RandGrowthFactor float64 `yaml:"rand_growth_factor"` // Sinuous claim probability, 1.0 = geometric-like
	MinGrowthBatch   int     `yaml:"min_growth_batch"`   // Growth is deferred until this many cells are affordable
	MaxGrowthPasses  int     `yaml:"max_growth_passes"`  // Cap on sinuous passes per grow call
	SeedCount        int     `yaml:"seed_count"`         // Number of independent plants
	InitialEnergy    int     `yaml:"initial_energy"`     // Pooled growth energy at start
}

// OrganismConfig holds organism cell parameters.
type OrganismConfig struct {
	GenomeLength  int    `yaml:"genome_length"`
	Genes         string `yaml:"genes"`     // Ordered gene alphabet
	NoOpGene      string `yaml:"noop_gene"` // Single symbol within Genes meaning "do nothing"
	Maturity      int    `yaml:"maturity"`  // Age that must be exceeded before cloning
	EnergyPerMove int    `yaml:"energy_per_move"`
	WellFedLevel  int    `yaml:"well_fed_level"`
	MaxPopulation int    `yaml:"max_population"`
	FounderGenome string `yaml:"founder_genome"`
	FounderCount  int    `yaml:"founder_count"`
	FounderEnergy int    `yaml:"founder_energy"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow int `yaml:"stats_window"` // Ticks per stats window
	PerfWindow  int `yaml:"perf_window"`  // Ticks averaged by the perf collector
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Alphabet []byte // Organism.Genes as bytes
	NoOp     byte   // Organism.NoOpGene as a byte
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize recomputes derived values and validates the configuration.
// Callers that edit a loaded Config in place must call it again before use.
func (c *Config) Finalize() error {
	c.computeDerived()
	return c.Validate()
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Derived.Alphabet = append([]byte(nil), c.Derived.Alphabet...)
	return &out
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Plant.Species = strings.ToLower(strings.TrimSpace(c.Plant.Species))
	c.Derived.Alphabet = []byte(c.Organism.Genes)
	c.Derived.NoOp = 0
	if len(c.Organism.NoOpGene) == 1 {
		c.Derived.NoOp = c.Organism.NoOpGene[0]
	}
}

// Validate reports every contract violation in the configuration.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	if c.World.Rows <= 0 || c.World.Columns <= 0 {
		fail("world dimensions must be positive, got %dx%d", c.World.Rows, c.World.Columns)
	}

	p := c.Plant
	if p.Species != SpeciesGeometric && p.Species != SpeciesSinuous {
		fail("unknown plant species %q", p.Species)
	}
	if p.EnergyPerCell <= 0 {
		fail("plant.energy_per_cell must be positive, got %d", p.EnergyPerCell)
	}
	if p.RandGrowthFactor < 0 || p.RandGrowthFactor > 1 {
		fail("plant.rand_growth_factor must be within [0,1], got %v", p.RandGrowthFactor)
	}
	if p.MaxPopulation <= 0 {
		fail("plant.max_population must be positive, got %d", p.MaxPopulation)
	}
	if p.MinGrowthBatch <= 0 {
		fail("plant.min_growth_batch must be positive, got %d", p.MinGrowthBatch)
	}
	if p.MaxGrowthPasses <= 0 {
		fail("plant.max_growth_passes must be positive, got %d", p.MaxGrowthPasses)
	}
	if p.SeedCount < 0 {
		fail("plant.seed_count must not be negative, got %d", p.SeedCount)
	}
	if p.InitialEnergy < 0 {
		fail("plant.initial_energy must not be negative, got %d", p.InitialEnergy)
	}

	o := c.Organism
	if o.GenomeLength <= 0 {
		fail("organism.genome_length must be positive, got %d", o.GenomeLength)
	}
	if len(o.NoOpGene) != 1 {
		fail("organism.noop_gene must be a single symbol, got %q", o.NoOpGene)
	} else if !strings.Contains(o.Genes, o.NoOpGene) {
		fail("organism.noop_gene %q is not in the gene alphabet %q", o.NoOpGene, o.Genes)
	}
	seen := make(map[rune]bool, len(o.Genes))
	for _, g := range o.Genes {
		if seen[g] {
			fail("organism.genes contains %q twice", g)
		}
		seen[g] = true
		if !strings.ContainsRune(directionalGenes, g) && string(g) != o.NoOpGene {
			fail("organism.genes symbol %q is neither a direction nor the no-op", g)
		}
	}
	if len(o.FounderGenome) != o.GenomeLength {
		fail("organism.founder_genome %q has length %d, want %d", o.FounderGenome, len(o.FounderGenome), o.GenomeLength)
	}
	for _, g := range o.FounderGenome {
		if !seen[g] {
			fail("organism.founder_genome symbol %q is not in the gene alphabet", g)
			break
		}
	}
	if o.EnergyPerMove < 0 {
		fail("organism.energy_per_move must not be negative, got %d", o.EnergyPerMove)
	}
	if o.MaxPopulation <= 0 {
		fail("organism.max_population must be positive, got %d", o.MaxPopulation)
	}
	if o.FounderCount < 0 || o.FounderCount > o.MaxPopulation {
		fail("organism.founder_count must be within [0,%d], got %d", o.MaxPopulation, o.FounderCount)
	}
	if o.FounderEnergy < 0 {
		fail("organism.founder_energy must not be negative, got %d", o.FounderEnergy)
	}
	if cells := c.World.Rows * c.World.Columns; c.World.Rows > 0 && c.World.Columns > 0 && o.FounderCount+p.SeedCount > cells {
		fail("%d founders and %d plant seeds do not fit a %d cell grid", o.FounderCount, p.SeedCount, cells)
	}

	if c.Telemetry.StatsWindow <= 0 {
		fail("telemetry.stats_window must be positive, got %d", c.Telemetry.StatsWindow)
	}

	return errors.Join(errs...)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
