package model

import "strings"

// Category is the display class of a round narrative.
type Category string

// Narrative categories.
const (
	CategoryCritical Category = "critical"
	CategoryOffense  Category = "offense"
	CategoryDefense  Category = "defense"
	CategoryNeutral  Category = "neutral"
)

// CriticalMagnitude is the damage above which a round is shown as critical.
const CriticalMagnitude = 30

// Keyword tables, checked in order critical, defense, offense. Defense comes
// before offense because blocked attacks mention the attack ("擋下了致命的反擊").
var ( //nolint:gochecknoglobals // immutable keyword tables
	criticalKeywords = []string{
		"critical", "crit!", "devastating", "fatal blow", "lethal strike",
		"暴擊", "暴击", "重創", "重创", "會心一擊", "会心一击", "致命一擊", "致命一击",
	}
	defenseKeywords = []string{
		"block", "dodge", "evade", "parry", "shield", "defend", "guard", "resist",
		"防禦", "防御", "閃避", "闪避", "格擋", "格挡", "擋下", "挡下", "護盾", "护盾", "抵擋", "抵挡",
	}
	offenseKeywords = []string{
		"attack", "strike", "hit", "slash", "stab", "smash", "blast", "punch", "kick", "fire",
		"攻擊", "攻击", "斬", "斩", "撲向", "扑向", "重擊", "重击", "猛擊", "猛击", "火焰", "傷害", "伤害",
	}
)

// Classify maps a narrative to a display category by keyword matching.
func Classify(narrative string) Category {
	text := strings.ToLower(narrative)
	switch {
	case containsAny(text, criticalKeywords):
		return CategoryCritical
	case containsAny(text, defenseKeywords):
		return CategoryDefense
	case containsAny(text, offenseKeywords):
		return CategoryOffense
	default:
		return CategoryNeutral
	}
}

// ClassifyRound classifies a round, treating magnitudes above CriticalMagnitude as critical.
func ClassifyRound(r RoundRecord) Category {
	if r.Magnitude > CriticalMagnitude {
		return CategoryCritical
	}
	return Classify(r.Narrative)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
