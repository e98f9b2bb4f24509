package game

import (
	"fmt"
	"math"
)

// Profile is the externally stored data a wrestler enters a bout with.
type Profile struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Color          string   `json:"color"`
	AvatarSeed     string   `json:"avatarSeed"`
	Strength       float64  `json:"strength"`
	Technique      float64  `json:"technique"`
	Speed          float64  `json:"speed"`
	Weight         float64  `json:"weight"`
	UnlockedSkills []string `json:"unlockedSkills"`
}

// Direction of the last directional push
type Direction string

const (
	DirNone  Direction = ""
	DirLeft  Direction = "LEFT"
	DirRight Direction = "RIGHT"
)

// Opposite returns the mirrored direction
func (d Direction) Opposite() Direction {
	switch d {
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	default:
		return DirNone
	}
}

// Wrestler is the mutable per-bout state of one combatant.
// Only the engine that owns it reads or writes it.
type Wrestler struct {
	ID         string
	Name       string
	Color      string
	AvatarSeed string

	X, Y   float64
	VX, VY float64

	Strength  float64
	Technique float64
	Speed     float64
	Mass      float64

	Stamina             float64
	LastPushTime        float64
	LastActionDirection Direction
	LastActionTime      float64
	ActionStreakCount   int
	PushCount           int
	UnlockedSkills      []string

	lastFlavorTime float64
}

const neverActed = -1e9

// ReferenceWeight is the weight that maps to a mass of 1.0
const ReferenceWeight = 150.0

func newWrestler(p Profile, staminaMax float64) *Wrestler {
	mass := 1.0
	if p.Weight > 0 {
		mass = p.Weight / ReferenceWeight
	}
	skills := make([]string, len(p.UnlockedSkills))
	copy(skills, p.UnlockedSkills)

	return &Wrestler{
		ID:             p.ID,
		Name:           p.Name,
		Color:          p.Color,
		AvatarSeed:     p.AvatarSeed,
		Strength:       positiveOr(p.Strength, 1),
		Technique:      positiveOr(p.Technique, 1),
		Speed:          positiveOr(p.Speed, 1),
		Mass:           mass,
		Stamina:        staminaMax,
		LastPushTime:   neverActed,
		LastActionTime: neverActed,
		UnlockedSkills: skills,
		lastFlavorTime: neverActed,
	}
}

func positiveOr(v, fallback float64) float64 {
	if v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v
	}
	return fallback
}

// DistanceTo returns the euclidean distance to a point
func (w *Wrestler) DistanceTo(x, y float64) float64 {
	return math.Hypot(w.X-x, w.Y-y)
}

// setStamina is the only writer of Stamina so the bounds hold everywhere.
func (w *Wrestler) setStamina(v, max float64) {
	w.Stamina = math.Max(0, math.Min(max, v))
}

// Shikona pools for synthetic wrestlers
var (
	namesFirst = []string{"Taka", "Waka", "Koto", "Haku", "Asa", "Teru", "Kise", "Mitake", "Ura", "Tobi"}
	namesLast  = []string{"fuji", "ryu", "umi", "zan", "shu", "hana", "noyama", "kaze", "sato", "nishiki"}
	colors     = []string{"#c0392b", "#2980b9", "#27ae60", "#8e44ad", "#d35400", "#16a085"}
)

// SyntheticProfile builds a stand-in wrestler with default stats.
// Used when the profile store is unavailable in simulation mode.
func SyntheticProfile(id string, r Rand) Profile {
	return Profile{
		ID:         id,
		Name:       namesFirst[r.Intn(len(namesFirst))] + namesLast[r.Intn(len(namesLast))],
		Color:      colors[r.Intn(len(colors))],
		AvatarSeed: fmt.Sprintf("%s-%d", id, r.Intn(1_000_000)),
		Strength:   1,
		Technique:  1,
		Speed:      1,
		Weight:     ReferenceWeight,
	}
}
