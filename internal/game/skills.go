package game

import "strings"

// SkillStat is the attribute an unlockable skill is tied to
type SkillStat string

const (
	StatStrength  SkillStat = "strength"
	StatTechnique SkillStat = "technique"
	StatSpeed     SkillStat = "speed"
)

// ProcSkill describes what an unlocked skill does when it procs on a push
type ProcSkill struct {
	ID            string
	Name          string
	Stat          SkillStat
	Tier          int
	ForceMult     float64 // 0 when the skill does not scale force
	StaminaDamage float64
}

// ProcSkills are the unlockable skills, keyed by id. Tier is the id suffix.
var ProcSkills = map[string]ProcSkill{
	"str_1":  {ID: "str_1", Name: "Iron Palms", Stat: StatStrength, Tier: 1, ForceMult: 1.5},
	"str_2":  {ID: "str_2", Name: "Mountain Push", Stat: StatStrength, Tier: 2, ForceMult: 2.0},
	"tech_1": {ID: "tech_1", Name: "Belt Grip", Stat: StatTechnique, Tier: 1, StaminaDamage: 10},
	"tech_2": {ID: "tech_2", Name: "Breath Breaker", Stat: StatTechnique, Tier: 2, StaminaDamage: 20},
	"spd_1":  {ID: "spd_1", Name: "Quick Step", Stat: StatSpeed, Tier: 1, ForceMult: 1.4},
	"spd_2":  {ID: "spd_2", Name: "Lightning Charge", Stat: StatSpeed, Tier: 2, ForceMult: 1.8},
}

// LookupProcSkill resolves an unlocked skill id.
// Unknown ids fall back to their prefix so profile data from newer tiers still procs.
func LookupProcSkill(id string) (ProcSkill, bool) {
	if s, ok := ProcSkills[id]; ok {
		return s, true
	}
	switch {
	case strings.HasPrefix(id, "str_"):
		return ProcSkills["str_2"], true
	case strings.HasPrefix(id, "tech_"):
		return ProcSkills["tech_2"], true
	case strings.HasPrefix(id, "spd_"):
		return ProcSkills["spd_2"], true
	}
	return ProcSkill{}, false
}

// Kimarite is a named winning technique shown by flavor events
type Kimarite struct {
	ID   string
	Name string
	JP   string
}

// Kimarite categories
const (
	CategoryOshi    = "OSHI"
	CategoryYori    = "YORI"
	CategoryNage    = "NAGE"
	CategoryKake    = "KAKE"
	CategoryHineri  = "HINERI"
	CategoryGeneric = "GENERIC"
)

var kimarite = map[string][]Kimarite{
	CategoryOshi: {
		{ID: "oshidashi", Name: "Frontal Push Out", JP: "押し出し"},
		{ID: "tsukidashi", Name: "Frontal Thrust Out", JP: "突き出し"},
	},
	CategoryYori: {
		{ID: "yorikiri", Name: "Frontal Force Out", JP: "寄り切り"},
		{ID: "yoritaoshi", Name: "Frontal Crush Out", JP: "寄り倒し"},
	},
	CategoryNage: {
		{ID: "uwatenage", Name: "Overarm Throw", JP: "上手投げ"},
		{ID: "kotenage", Name: "Armlock Throw", JP: "小手投げ"},
	},
	CategoryKake: {
		{ID: "sotogake", Name: "Outside Leg Trip", JP: "外掛け"},
		{ID: "ketaguri", Name: "Leg Kick Pull Down", JP: "蹴手繰り"},
	},
	CategoryHineri: {
		{ID: "makiotoshi", Name: "Twist Down", JP: "巻き落とし"},
	},
	CategoryGeneric: {
		{ID: "kiai", Name: "Fighting Spirit", JP: "気合"},
		{ID: "push", Name: "Strong Push", JP: "押し"},
		{ID: "resist", Name: "Hold Ground", JP: "踏ん張り"},
	},
}

// categoriesFor picks candidate categories by the wrestler's dominant stat
func categoriesFor(w *Wrestler, dominance, threshold float64) []string {
	if dominance <= threshold {
		return []string{CategoryGeneric}
	}
	switch {
	case w.Strength >= w.Technique && w.Strength >= w.Speed:
		return []string{CategoryOshi, CategoryYori, CategoryGeneric}
	case w.Technique >= w.Speed:
		return []string{CategoryNage, CategoryHineri, CategoryYori}
	default:
		return []string{CategoryKake, CategoryGeneric}
	}
}

// pickKimarite draws a technique for a flavor event
func pickKimarite(r Rand, w *Wrestler, dominance, threshold float64) Kimarite {
	cats := categoriesFor(w, dominance, threshold)
	moves := kimarite[cats[r.Intn(len(cats))]]
	return moves[r.Intn(len(moves))]
}
