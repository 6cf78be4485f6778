package layers

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/wisdom/internal/wisdom"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const scenarioText = "I felt a warm stillness. I noticed the clock's quiet hum."

func assertComplete(t *testing.T, input string, set wisdom.LayerSet) {
	t.Helper()
	for _, name := range wisdom.LayerOrder {
		if strings.TrimSpace(set.Get(name)) == "" {
			t.Errorf("Classify(%q): layer %s is empty", input, name)
		}
	}
}

func TestClassify_Scenario(t *testing.T) {
	set := Classify(scenarioText)
	assertComplete(t, scenarioText, set)

	if !strings.Contains(set.Somatic, "felt") {
		t.Errorf("Somatic = %q, want it to contain %q", set.Somatic, "felt")
	}
	if !strings.Contains(set.Attention, "noticed") {
		t.Errorf("Attention = %q, want it to contain %q", set.Attention, "noticed")
	}
	if !strings.Contains(strings.ToLower(set.TemporalAuditory), "quiet") {
		t.Errorf("TemporalAuditory = %q, want it to contain %q", set.TemporalAuditory, "quiet")
	}

	want := wisdom.LayerSet{
		Narrative:        scenarioText,
		Somatic:          "I felt a warm stillness.",
		Attention:        "I noticed the clock's quiet hum.",
		Synesthetic:      "Texture of the moment: warm.",
		TemporalAuditory: "I noticed the clock's quiet hum.",
	}
	if diff := cmp.Diff(want, set); diff != "" {
		t.Errorf("Classify mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_AlwaysComplete(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"\n\n\n",
		"x",
		"...",
		"!?",
		"The river runs.",
		"no punctuation at all just words",
		"日本語のテキストだけ",
		strings.Repeat("word ", 500),
		"First.\n\nSecond.\r\n\r\nThird.",
		scenarioText,
	}
	for _, in := range inputs {
		assertComplete(t, in, Classify(in))
	}
}

func TestClassify_GeneratedCorpus(t *testing.T) {
	vocab := []string{
		"I", "we", "remember", "felt", "heart", "noticed", "saw", "warm", "soft",
		"quiet", "loud", "clock", "hum", "the", "river", "stone", "journey", "scent",
		"texture", "slowly", ".", ".", "!", "?", "\n\n", "\n",
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		n := rng.Intn(40)
		words := make([]string, n)
		for j := range words {
			words[j] = vocab[rng.Intn(len(vocab))]
		}
		text := strings.Join(words, " ")
		first := Classify(text)
		assertComplete(t, text, first)
		if diff := cmp.Diff(first, Classify(text)); diff != "" {
			t.Fatalf("Classify(%q) not deterministic:\n%s", text, diff)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	text := "I remember the lake.\n\nMy heart raced as I watched the loud storm.\n\nThe scent of rain."
	first := Classify(text)
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, Classify(text)); diff != "" {
			t.Fatalf("iteration %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestClassify_Concurrent(t *testing.T) {
	want := Classify(scenarioText)

	var g errgroup.Group
	results := make([]wisdom.LayerSet, 32)
	for i := range results {
		g.Go(func() error {
			results[i] = Classify(scenarioText)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	for i, got := range results {
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("goroutine %d differs:\n%s", i, diff)
		}
	}
}

func TestClassify_FirstParagraphWins(t *testing.T) {
	text := "I remember the lake.\n\nI remember the mountain."
	set := Classify(text)
	if set.Narrative != "I remember the lake." {
		t.Errorf("Narrative = %q, want first paragraph's sentence", set.Narrative)
	}
}

func TestClassify_GroupOrderWithinLayer(t *testing.T) {
	// journey and memory both match; memory is tried first and only its sentences are taken
	set := Classify("The journey was long. I remember the rain.")
	if set.Narrative != "I remember the rain." {
		t.Errorf("Narrative = %q, want %q", set.Narrative, "I remember the rain.")
	}
}

func TestClassify_JoinsMatchingSentences(t *testing.T) {
	set := Classify("I felt calm. The sky was grey. I felt free.")
	if set.Somatic != "I felt calm. I felt free." {
		t.Errorf("Somatic = %q", set.Somatic)
	}
}

func TestClassify_LaterParagraphFillsEmptyLayer(t *testing.T) {
	text := "I remember the lake.\n\nMy heart raced."
	set := Classify(text)
	if set.Somatic != "My heart raced." {
		t.Errorf("Somatic = %q, want %q", set.Somatic, "My heart raced.")
	}

	m := Explain(text)[1]
	if m.Layer != wisdom.LayerSomatic || m.Source != SourcePattern || m.Group != "body" || m.Paragraph != 1 {
		t.Errorf("Explain somatic = %+v", m)
	}
}

func TestClassify_CollapsesLineBreaksInSentences(t *testing.T) {
	set := Classify("I felt the\nweight of it.")
	if set.Somatic != "I felt the weight of it." {
		t.Errorf("Somatic = %q", set.Somatic)
	}
}

func TestFallback_Narrative(t *testing.T) {
	long := strings.Repeat("x", 300)
	set := Classify(long)
	if wisdom.CountChars(set.Narrative) != 200 {
		t.Errorf("Narrative has %d chars, want 200", wisdom.CountChars(set.Narrative))
	}

	set = Classify("Plain opening line.\n\nI remember nothing else.")
	// memory group matches paragraph 1, so the fallback is not used
	if set.Narrative != "I remember nothing else." {
		t.Errorf("Narrative = %q", set.Narrative)
	}
}

func TestFallback_Somatic(t *testing.T) {
	set := Classify("The road was empty.\n\nWe walked to the shore.")
	if set.Somatic != "We walked to the shore." {
		t.Errorf("Somatic = %q, want first-person paragraph", set.Somatic)
	}

	long := "I " + strings.Repeat("walked on ", 40)
	set = Classify(long)
	if wisdom.CountChars(set.Somatic) > 150 {
		t.Errorf("Somatic has %d chars, want <= 150", wisdom.CountChars(set.Somatic))
	}

	set = Classify("The river runs.")
	if set.Somatic != NeutralPhrase(wisdom.LayerSomatic) {
		t.Errorf("Somatic = %q, want neutral phrase", set.Somatic)
	}
}

func TestFallback_Attention(t *testing.T) {
	set := Classify("Rain fell. She saw the\nharbor. It was grey.")
	if set.Attention != "She saw the harbor." {
		t.Errorf("Attention = %q", set.Attention)
	}

	set = Classify("The river runs.")
	if set.Attention != NeutralPhrase(wisdom.LayerAttention) {
		t.Errorf("Attention = %q, want neutral phrase", set.Attention)
	}
}

func TestAttentionFallback_Termination(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Rain fell. She saw the harbor. It was grey.", "She saw the harbor."},
		{"Rain fell. I saw it", "I saw it"},
		{"I saw it", "I saw it"},
		{"The river runs.", ""},
	}

	for _, tt := range tests {
		if got := attentionFallback(tt.text, nil); got != tt.want {
			t.Errorf("attentionFallback(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestFallback_Synesthetic(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"one", "A cold morning.", "Texture of the moment: cold."},
		{"two with duplicate", "Cold, cold and soft.", "Texture of the moment: cold and soft."},
		{"capped at three", "The cold rain, the soft grass, the rough bark, the warm fire.", "Texture of the moment: cold, soft and rough."},
		{"none uses neutral phrase", "The river runs.", "No distinct sensory texture surfaced."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text).Synesthetic; got != tt.want {
				t.Errorf("Synesthetic = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFallback_TemporalAuditory(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"It was quiet.", QuietPhrase},
		{"It was QUIET and loud.", QuietPhrase},
		{"A loud truck passed.", LoudPhrase},
		{"Noise everywhere.", LoudPhrase},
		{"The river runs.", DefaultPhrase},
		{"", DefaultPhrase},
	}
	for _, tt := range tests {
		if got := Classify(tt.text).TemporalAuditory; got != tt.want {
			t.Errorf("Classify(%q).TemporalAuditory = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestClassify_EmptyInputUsesNeutralPhrases(t *testing.T) {
	set := Classify("")
	want := wisdom.LayerSet{
		Narrative:        NeutralPhrase(wisdom.LayerNarrative),
		Somatic:          NeutralPhrase(wisdom.LayerSomatic),
		Attention:        NeutralPhrase(wisdom.LayerAttention),
		Synesthetic:      NeutralPhrase(wisdom.LayerSynesthetic),
		TemporalAuditory: DefaultPhrase,
	}
	if diff := cmp.Diff(want, set); diff != "" {
		t.Errorf("Classify(\"\") mismatch (-want +got):\n%s", diff)
	}
}

func TestExplain_Sources(t *testing.T) {
	matches := Explain(scenarioText)
	if len(matches) != len(wisdom.LayerOrder) {
		t.Fatalf("Explain returned %d matches", len(matches))
	}

	wantSources := []Source{SourceFallback, SourcePattern, SourcePattern, SourceFallback, SourcePattern}
	wantGroups := []string{"", "emotion", "perception", "", "sound"}
	for i, m := range matches {
		if m.Layer != wisdom.LayerOrder[i] {
			t.Errorf("matches[%d].Layer = %s, want %s", i, m.Layer, wisdom.LayerOrder[i])
		}
		if m.Source != wantSources[i] {
			t.Errorf("%s source = %s, want %s", m.Layer, m.Source, wantSources[i])
		}
		if m.Group != wantGroups[i] {
			t.Errorf("%s group = %q, want %q", m.Layer, m.Group, wantGroups[i])
		}
		if m.Value == "" {
			t.Errorf("%s value empty", m.Layer)
		}
	}

	for _, m := range Explain("") {
		if m.Layer != wisdom.LayerTemporalAuditory && m.Source != SourceNeutral {
			t.Errorf("%s source = %s, want neutral", m.Layer, m.Source)
		}
	}
}

func TestRulesFollowLayerOrder(t *testing.T) {
	if len(rules) != len(wisdom.LayerOrder) {
		t.Fatalf("rules has %d layers, want %d", len(rules), len(wisdom.LayerOrder))
	}
	for i, r := range rules {
		if r.layer != wisdom.LayerOrder[i] {
			t.Errorf("rules[%d] = %s, want %s", i, r.layer, wisdom.LayerOrder[i])
		}
		if len(r.groups) == 0 {
			t.Errorf("%s has no pattern groups", r.layer)
		}
	}
	for i, fb := range fallbacks {
		if fb.layer != wisdom.LayerOrder[i] {
			t.Errorf("fallbacks[%d] = %s, want %s", i, fb.layer, wisdom.LayerOrder[i])
		}
	}
	for _, name := range wisdom.LayerOrder {
		if NeutralPhrase(name) == "" {
			t.Errorf("no neutral phrase for %s", name)
		}
	}
}

func TestGroupNames(t *testing.T) {
	if diff := cmp.Diff([]string{"emotion", "body"}, GroupNames(wisdom.LayerSomatic)); diff != "" {
		t.Errorf("GroupNames(somatic) mismatch:\n%s", diff)
	}
	if GroupNames("bogus") != nil {
		t.Error("GroupNames(bogus) should be nil")
	}
}
