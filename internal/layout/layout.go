// internal/layout/layout.go
//
// Starting deployment management for the game server.
//
// Responsibilities:
//   - Load Black's half of the starting layout from a file, or fall back to the
//     embedded default (assets/default_layout.txt).
//   - Validate every line and mirror the result for White.
//
// Layout format, one piece per line:
//
//	<kind> <x> <y>
//
// Blank lines and lines starting with '#' are ignored. Kind names are
// case-insensitive. Positions must lie in Black's half (rows 0..3), must not be
// void and must not repeat.

package layout

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/robalobadob/shashkrid/assets"
	"github.com/robalobadob/shashkrid/internal/game"
)

// HomeRows is the number of rows, counted from Black's edge, a layout may use.
const HomeRows = 4

var ErrEmpty = errors.New("layout: no pieces")

var (
	defaultOnce sync.Once
	defaultSet  []game.Placement
	defaultErr  error
)

// Default returns the embedded layout, mirrored for both players. It is parsed
// once.
func Default() ([]game.Placement, error) {
	defaultOnce.Do(func() {
		raw, err := assets.DefaultLayout()
		if err != nil {
			defaultErr = fmt.Errorf("layout: embedded default: %w", err)
			return
		}
		defaultSet, defaultErr = Parse(bytes.NewReader(raw))
	})
	if defaultErr != nil {
		return nil, defaultErr
	}
	return append([]game.Placement(nil), defaultSet...), nil
}

// Load reads the layout at path, or the embedded default when path is empty.
func Load(path string) ([]game.Placement, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	defer f.Close()
	out, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Parse reads Black's layout from r and returns the full two-sided deployment.
func Parse(r io.Reader) ([]game.Placement, error) {
	var black []game.Placement
	seen := make(map[game.Position]int)

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		pl, err := parseLine(s)
		if err != nil {
			return nil, fmt.Errorf("layout: line %d: %w", line, err)
		}
		if prev, dup := seen[pl.Position]; dup {
			return nil, fmt.Errorf("layout: line %d: %s already used on line %d", line, pl.Position, prev)
		}
		seen[pl.Position] = line
		black = append(black, pl)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	if len(black) == 0 {
		return nil, ErrEmpty
	}
	return game.MirrorDeployment(black), nil
}

func parseLine(s string) (game.Placement, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return game.Placement{}, fmt.Errorf("want <kind> <x> <y>, got %q", s)
	}
	kind, err := game.ParseKind(fields[0])
	if err != nil {
		return game.Placement{}, err
	}
	x, err := strconv.Atoi(fields[1])
	if err != nil {
		return game.Placement{}, fmt.Errorf("bad x %q", fields[1])
	}
	y, err := strconv.Atoi(fields[2])
	if err != nil {
		return game.Placement{}, fmt.Errorf("bad y %q", fields[2])
	}
	p := game.Position{X: x, Y: y}
	switch {
	case !p.InBounds() || y >= HomeRows:
		return game.Placement{}, fmt.Errorf("%s is outside the home rows", p)
	case p.IsVoid():
		return game.Placement{}, fmt.Errorf("%s is a void cell", p)
	}
	return game.Placement{Kind: kind, Owner: game.Black, Position: p}, nil
}
