package config

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/hedgerow/hedgerow/internal/core/spatial"
)

// Config is the single YAML document a world boots from: simulation tuning,
// the outward surfaces, and the declarative world content. Digest is the
// xxhash of the raw bytes; it is logged at startup and stamped into the
// journal header so a replay can be matched to the exact config it ran with.
type Config struct {
	Tuning  Tuning  `yaml:"tuning"`
	Server  Server  `yaml:"server"`
	Journal Journal `yaml:"journal"`
	World   World   `yaml:"world"`

	Digest uint64 `yaml:"-"`
}

type Tuning struct {
	// Dt is the fixed timestep in seconds.
	Dt float64 `yaml:"dt"`
	// Epsilon absorbs boundary jitter in overlap tests.
	Epsilon float64 `yaml:"epsilon"`
	// Margin fattens indexed bounds so small moves skip reindexing.
	Margin float64 `yaml:"margin"`
}

type Server struct {
	// Addr is the debug-stream listen address; empty disables the server.
	Addr string `yaml:"addr"`
}

type Journal struct {
	// Dir is the journal output directory; empty disables journaling.
	Dir string `yaml:"dir"`
}

// World is declarative content: everything an entity can be spawned as.
type World struct {
	Bodies  []Body   `yaml:"bodies"`
	Zones   []Area   `yaml:"zones"`
	Fences  []Fence  `yaml:"fences"`
	Items   []Item   `yaml:"items"`
	Actions []Action `yaml:"actions"`
}

type Vec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type Box struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

type Body struct {
	Name      string `yaml:"name"`
	Pos       Vec    `yaml:"pos"`
	Velocity  Vec    `yaml:"velocity"`
	Boxes     []Box  `yaml:"boxes"`
	Barrier   bool   `yaml:"barrier"`
	Inventory bool   `yaml:"inventory"`
}

type Area struct {
	Name  string `yaml:"name"`
	Pos   Vec    `yaml:"pos"`
	Boxes []Box  `yaml:"boxes"`
}

type Fence struct {
	Name   string `yaml:"name"`
	Pos    Vec    `yaml:"pos"`
	Points []Vec  `yaml:"points"`
	// Step turns the polyline into ordered checkpoints.
	Step bool `yaml:"step"`
}

type Item struct {
	Name   string `yaml:"name"`
	Usable bool   `yaml:"usable"`
	Stack  int    `yaml:"stack"`
	// Holder names the body whose inventory starts with this item.
	Holder string `yaml:"holder"`
}

type Action struct {
	Text string `yaml:"text"`
	Pos  Vec    `yaml:"pos"`
	Area []Box  `yaml:"area"`
	// Fitness is a rule expression, e.g. `any [has_item "key", has_inventory]`.
	Fitness string `yaml:"fitness"`
	// Lifespan is "forever" or a use count.
	Lifespan string `yaml:"lifespan"`
}

// Load reads, fingerprints and decodes a config document, applying defaults
// and structural validation.
func Load(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	c.Digest = xxhash.Sum64(raw)
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}

func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

func (c *Config) applyDefaults() {
	if c.Tuning.Dt == 0 {
		c.Tuning.Dt = 1.0 / 60
	}
	if c.Tuning.Margin == 0 {
		c.Tuning.Margin = spatial.DefaultMargin
	}
}

func (c *Config) validate() error {
	if c.Tuning.Dt <= 0 {
		return fmt.Errorf("tuning.dt must be positive, got %v", c.Tuning.Dt)
	}
	if c.Tuning.Epsilon < 0 {
		return fmt.Errorf("tuning.epsilon must not be negative, got %v", c.Tuning.Epsilon)
	}
	for _, b := range c.World.Bodies {
		if len(b.Boxes) == 0 {
			return fmt.Errorf("body %q has no boxes", b.Name)
		}
	}
	for _, z := range c.World.Zones {
		if len(z.Boxes) == 0 {
			return fmt.Errorf("zone %q has no boxes", z.Name)
		}
	}
	for _, f := range c.World.Fences {
		if len(f.Points) < 2 {
			return fmt.Errorf("fence %q needs at least two points", f.Name)
		}
	}
	for _, a := range c.World.Actions {
		if len(a.Area) == 0 {
			return fmt.Errorf("action %q has no interaction area", a.Text)
		}
	}
	return nil
}
