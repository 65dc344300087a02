// internal/catalog/catalog.go
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/jason-s-yu/csgames/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Minefield sizes a Minesweeper board.
type Minefield struct {
	Rows  int `yaml:"rows" json:"rows"`
	Cols  int `yaml:"cols" json:"cols"`
	Mines int `yaml:"mines" json:"mines"`
}

// Game is one catalog entry.
type Game struct {
	ID          models.GameKind `yaml:"id" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description" json:"description"`
	Players     int             `yaml:"players" json:"players"`
	AI          bool            `yaml:"ai" json:"ai"`
	// Lobby is false for games that cannot host a lobby. Defaults to true.
	Lobby     *bool      `yaml:"lobby,omitempty" json:"-"`
	Minefield *Minefield `yaml:"minefield,omitempty" json:"minefield,omitempty"`
}

// HostsLobby reports whether a lobby can be created for the game.
func (g Game) HostsLobby() bool {
	return g.Lobby == nil || *g.Lobby
}

// Catalog is the list of games in display order.
type Catalog struct {
	Games []Game `yaml:"games" json:"games"`
}

// Parse decodes and validates a YAML catalog.
func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[models.GameKind]bool, len(c.Games))
	for i, g := range c.Games {
		if g.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if seen[g.ID] {
			return nil, fmt.Errorf("catalog lists %q twice", g.ID)
		}
		seen[g.ID] = true
		if g.Players < 1 || g.Players > 2 {
			return nil, fmt.Errorf("catalog entry %q: players must be 1 or 2", g.ID)
		}
		if m := g.Minefield; m != nil && (m.Rows < 2 || m.Cols < 2 || m.Mines < 1 || m.Mines >= m.Rows*m.Cols) {
			return nil, fmt.Errorf("catalog entry %q: bad minefield %dx%d/%d", g.ID, m.Rows, m.Cols, m.Mines)
		}
	}
	return &c, nil
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads the catalog at path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

// Lookup finds a game by id. A nil catalog holds no games.
func (c *Catalog) Lookup(id models.GameKind) (Game, bool) {
	if c == nil {
		return Game{}, false
	}
	for _, g := range c.Games {
		if g.ID == id {
			return g, true
		}
	}
	return Game{}, false
}

// Name returns the display name of id, falling back to the id itself.
func (c *Catalog) Name(id models.GameKind) string {
	if g, ok := c.Lookup(id); ok && g.Name != "" {
		return g.Name
	}
	return string(id)
}
