package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Len(t, c.Games, 5)

	ms, ok := c.Lookup(models.KindMinesweeper)
	require.True(t, ok)
	require.NotNil(t, ms.Minefield)
	assert.Equal(t, Minefield{Rows: 9, Cols: 9, Mines: 10}, *ms.Minefield)
	assert.Equal(t, 1, ms.Players)

	w, ok := c.Lookup(models.KindWordle)
	require.True(t, ok)
	assert.False(t, w.HostsLobby())

	c4, _ := c.Lookup(models.KindConnectFour)
	assert.True(t, c4.HostsLobby())
	assert.Equal(t, "Connect Four", c.Name(models.KindConnectFour))
	assert.Equal(t, "chess", c.Name("chess"))
}

func TestParseRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"missing id": "games:\n  - name: x\n    players: 1\n",
		"duplicate":  "games:\n  - id: a\n    players: 1\n  - id: a\n    players: 1\n",
		"players":    "games:\n  - id: a\n    players: 3\n",
		"minefield":  "games:\n  - id: a\n    players: 1\n    minefield: {rows: 2, cols: 2, mines: 4}\n",
		"yaml":       "games: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("games:\n  - id: tictactoe\n    name: TTT\n    players: 2\n"), 0o600))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "TTT", c.Name(models.KindTicTacToe))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	def, err := Load("")
	require.NoError(t, err)
	assert.Len(t, def.Games, 5)
}
