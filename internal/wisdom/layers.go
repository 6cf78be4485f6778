package wisdom

// LayerName names one of the five semantic layers.
type LayerName string

const (
	LayerNarrative        LayerName = "narrative"
	LayerSomatic          LayerName = "somatic"
	LayerAttention        LayerName = "attention"
	LayerSynesthetic      LayerName = "synesthetic"
	LayerTemporalAuditory LayerName = "temporal_auditory"
)

// LayerOrder is the committed iteration order for classification and composition.
var LayerOrder = []LayerName{
	LayerNarrative,
	LayerSomatic,
	LayerAttention,
	LayerSynesthetic,
	LayerTemporalAuditory,
}

// layerTitles are the headings used in canonical content.
var layerTitles = map[LayerName]string{
	LayerNarrative:        "Narrative",
	LayerSomatic:          "Somatic",
	LayerAttention:        "Attention",
	LayerSynesthetic:      "Synesthetic",
	LayerTemporalAuditory: "Temporal-Auditory",
}

// Title returns the display heading for the layer.
func (n LayerName) Title() string {
	if t, ok := layerTitles[n]; ok {
		return t
	}
	return string(n)
}

// Valid reports whether n is one of the five layer names.
func (n LayerName) Valid() bool {
	_, ok := layerTitles[n]
	return ok
}

// LayerSet is the five-layer decomposition of a narrative.
type LayerSet struct {
	Narrative        string `json:"narrative"`
	Somatic          string `json:"somatic"`
	Attention        string `json:"attention"`
	Synesthetic      string `json:"synesthetic"`
	TemporalAuditory string `json:"temporal_auditory"`
}

// Get returns the value stored for name, or "" for an unknown name.
func (l LayerSet) Get(name LayerName) string {
	switch name {
	case LayerNarrative:
		return l.Narrative
	case LayerSomatic:
		return l.Somatic
	case LayerAttention:
		return l.Attention
	case LayerSynesthetic:
		return l.Synesthetic
	case LayerTemporalAuditory:
		return l.TemporalAuditory
	}
	return ""
}

// Set stores value under name. Unknown names are ignored.
func (l *LayerSet) Set(name LayerName, value string) {
	switch name {
	case LayerNarrative:
		l.Narrative = value
	case LayerSomatic:
		l.Somatic = value
	case LayerAttention:
		l.Attention = value
	case LayerSynesthetic:
		l.Synesthetic = value
	case LayerTemporalAuditory:
		l.TemporalAuditory = value
	}
}

// Missing lists the layers that are still empty, in LayerOrder.
func (l LayerSet) Missing() []LayerName {
	var missing []LayerName
	for _, name := range LayerOrder {
		if l.Get(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Complete reports whether all five layers are populated.
func (l LayerSet) Complete() bool {
	return len(l.Missing()) == 0
}
