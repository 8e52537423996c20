package player

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"unicode"
)

// Player is an immutable catalog entry a league account can own.
type Player struct {
	ID       string
	Name     string
	Team     string
	BaseCost int64
	// MMR, PeakMMR and Rank feed market tiering only; settlement never reads them.
	MMR     int
	PeakMMR int
	Rank    string
}

func (p Player) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("player id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("player name is required")
	}
	if p.BaseCost <= 0 {
		return fmt.Errorf("player %s base cost must be greater than zero", p.ID)
	}
	return nil
}

// DeriveID returns a stable id from name, peak rating and team so that two
// racers sharing a display name never collide.
func DeriveID(name string, peakMMR int, team string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.Itoa(peakMMR)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(team))))

	slug := slugify(name)
	if slug == "" {
		slug = "player"
	}
	return fmt.Sprintf("%s-%08x", slug, h.Sum32())
}

func slugify(v string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(v)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Index maps catalog entries by id.
func Index(players []Player) map[string]Player {
	out := make(map[string]Player, len(players))
	for _, p := range players {
		out[p.ID] = p
	}
	return out
}
