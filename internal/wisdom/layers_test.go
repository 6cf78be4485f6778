package wisdom

import "testing"

func TestLayerSet_GetSet(t *testing.T) {
	var l LayerSet
	for i, name := range LayerOrder {
		l.Set(name, string(rune('a'+i)))
	}
	if l.Narrative != "a" || l.Somatic != "b" || l.Attention != "c" || l.Synesthetic != "d" || l.TemporalAuditory != "e" {
		t.Errorf("Set wrote to the wrong fields: %+v", l)
	}
	for i, name := range LayerOrder {
		if got := l.Get(name); got != string(rune('a'+i)) {
			t.Errorf("Get(%s) = %q", name, got)
		}
	}
	if got := l.Get("bogus"); got != "" {
		t.Errorf("Get(bogus) = %q, want empty", got)
	}
}

func TestLayerSet_Missing(t *testing.T) {
	l := LayerSet{Narrative: "x", Attention: "y"}
	missing := l.Missing()
	want := []LayerName{LayerSomatic, LayerSynesthetic, LayerTemporalAuditory}
	if len(missing) != len(want) {
		t.Fatalf("Missing() = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Errorf("Missing()[%d] = %s, want %s", i, missing[i], want[i])
		}
	}
	if l.Complete() {
		t.Error("Complete() = true for partial set")
	}
}

func TestLayerOrder(t *testing.T) {
	want := []LayerName{"narrative", "somatic", "attention", "synesthetic", "temporal_auditory"}
	if len(LayerOrder) != len(want) {
		t.Fatalf("LayerOrder has %d entries", len(LayerOrder))
	}
	for i := range want {
		if LayerOrder[i] != want[i] {
			t.Errorf("LayerOrder[%d] = %s, want %s", i, LayerOrder[i], want[i])
		}
		if !LayerOrder[i].Valid() {
			t.Errorf("%s not valid", LayerOrder[i])
		}
	}
	if LayerName("bogus").Valid() {
		t.Error("bogus layer reported valid")
	}
}
