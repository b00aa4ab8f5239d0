package ai

import "github.com/poiesic/wellspring/core"

// KnownFrames lists the frames of reference analyzers are asked to detect.
// Detected frames outside this list are kept but may not map to any bridge.
var KnownFrames = []string{
	"ayurveda",
	"buddhism",
	"chinese medicine",
	"egyptian",
	"greek philosophy",
	"hawaiian",
	"hermeticism",
	"hinduism",
	"kabbalah",
	"qigong",
	"reiki",
	"shamanism",
	"stoicism",
	"taoism",
	"tantra",
	"western astrology",
	"wicca",
	"yoga",
}

// DimensionHints describes each classification dimension for analyzer prompts.
var DimensionHints = map[core.Dimension]string{
	core.DimensionFire:   "will, transformation, action, courage",
	core.DimensionWater:  "emotion, intuition, healing, flow",
	core.DimensionEarth:  "body, grounding, ritual, material practice",
	core.DimensionAir:    "intellect, language, teaching, theory",
	core.DimensionSpirit: "devotion, mystery, transcendence, the sacred",
}
