package layers

import (
	"regexp"
	"strings"

	"github.com/hpungsan/wisdom/internal/wisdom"
)

// patternGroup is one thematic signal for a layer.
type patternGroup struct {
	name string
	re   *regexp.Regexp
}

// layerRule pairs a layer with its pattern groups, tried in order.
type layerRule struct {
	layer  wisdom.LayerName
	groups []patternGroup
}

// wordGroup compiles alternatives into a case-insensitive, word-bounded regexp.
// Alternatives are regexp fragments, not literals.
func wordGroup(name string, alternatives ...string) patternGroup {
	return patternGroup{
		name: name,
		re:   regexp.MustCompile(`(?i)\b(?:` + strings.Join(alternatives, "|") + `)\b`),
	}
}

// rules is the ordered classification table. Its order matches wisdom.LayerOrder.
var rules = []layerRule{
	{
		layer: wisdom.LayerNarrative,
		groups: []patternGroup{
			wordGroup("memory",
				`remember\w*`, `recall\w*`, `years ago`, `when i was`, `back then`,
				`childhood`, `grandm\w*`, `grandf\w*`, `once upon`),
			wordGroup("journey",
				`journey`, `story`, `began`, `begin`, `started`, `learned`, `realized`,
				`discovered`, `became`, `moved to`, `left home`),
		},
	},
	{
		layer: wisdom.LayerSomatic,
		groups: []patternGroup{
			wordGroup("emotion",
				`felt`, `feel`, `feels`, `feelings?`, `fear`, `afraid`, `joy`, `grief`,
				`sad`, `sadness`, `anxious`, `anxiety`, `calm`, `love`, `loved`, `anger`,
				`angry`, `peace`, `ashamed`, `lonely`, `hope`),
			wordGroup("body",
				`body`, `breath`, `breathe`, `breathed`, `breathing`, `chest`, `heart`,
				`heartbeat`, `stomach`, `gut`, `shoulders`, `hands`, `skin`, `tears`,
				`trembl\w*`, `shiver\w*`, `pulse`),
		},
	},
	{
		layer: wisdom.LayerAttention,
		groups: []patternGroup{
			wordGroup("perception",
				`notice`, `noticed`, `noticing`, `watched`, `watching`, `observed`,
				`observing`, `gazed`, `glimpsed`, `spotted`, `witnessed`),
			wordGroup("focus",
				`focus\w*`, `attention`, `aware`, `awareness`, `attentive`, `mindful\w*`),
		},
	},
	{
		layer: wisdom.LayerSynesthetic,
		groups: []patternGroup{
			wordGroup("texture",
				`texture\w*`, `velvet\w*`, `silk\w*`, `grain\w*`, `like (?:sand|glass|honey|water|silk)`),
			wordGroup("crossmodal",
				`tasted`, `taste of`, `smelled`, `smell of`, `scent`, `colou?r of`,
				`sounded like`, `felt like`, `looked like`),
		},
	},
	{
		layer: wisdom.LayerTemporalAuditory,
		groups: []patternGroup{
			wordGroup("sound",
				`hum`, `humming`, `hummed`, `echo\w*`, `ring\w*`, `chime\w*`, `whisper\w*`,
				`music`, `song`, `melod\w*`, `rhythm\w*`, `beat`, `drum\w*`, `silence`, `silent`),
			wordGroup("time",
				`clock`, `tick\w*`, `moment`, `minutes?`, `hours?`, `seconds?`, `slowly`,
				`suddenly`, `pause\w*`, `waited`, `waiting`, `forever`, `dawn`, `dusk`),
		},
	},
}

// GroupNames returns the pattern group names for a layer, in evaluation order.
func GroupNames(layer wisdom.LayerName) []string {
	for _, r := range rules {
		if r.layer != layer {
			continue
		}
		names := make([]string, len(r.groups))
		for i, g := range r.groups {
			names[i] = g.name
		}
		return names
	}
	return nil
}
