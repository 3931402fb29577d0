package catalog

import (
	"reflect"
	"strings"
	"testing"
)

func mustEmbedded(t *testing.T) *Catalog {
	t.Helper()
	c, err := Embedded()
	if err != nil {
		t.Fatalf("Embedded: %v", err)
	}
	return c
}

func TestEmbeddedCatalogIsValid(t *testing.T) {
	c := mustEmbedded(t)
	want := []string{"funny", "sarcastic", "inspirational", "heartfelt", "proud", "nostalgic", "edgy", "professional", "wholesome", "witty", "default"}
	for _, k := range want {
		if _, ok := c.Tones[k]; !ok {
			t.Fatalf("missing tone %q", k)
		}
	}
	cats := map[string]bool{}
	for _, n := range c.NichePool {
		cats[n.Category] = true
	}
	for _, k := range []string{"profession", "hobby", "food", "family", "personality", "life-stage", "region", "humor-style"} {
		if !cats[k] {
			t.Fatalf("niche pool missing category %q", k)
		}
	}
}

func TestToneLookup(t *testing.T) {
	c := mustEmbedded(t)
	cases := map[string]string{
		"Funny":            "funny",
		"super sarcastic!": "sarcastic",
		"fun":              "funny",
		"":                 "default",
		"mysterious":       "default",
	}
	for in, want := range cases {
		if _, got := c.Tone(in); got != want {
			t.Fatalf("Tone(%q) matched %q, want %q", in, got, want)
		}
	}
}

func TestNicheStyleLookup(t *testing.T) {
	c := mustEmbedded(t)
	if s, ok := c.NicheStyle("Night Shift Nurses"); !ok || s.ShirtColor != "navy" {
		t.Fatalf("expected nurse style, got %+v %v", s, ok)
	}
	if _, ok := c.NicheStyle("quantum physicists"); ok {
		t.Fatalf("expected no style")
	}
}

func TestSeasonAndCrossNiches(t *testing.T) {
	c := mustEmbedded(t)
	if got := c.Season("Santa's Favorite Nurse", "nurse"); got != "christmas" {
		t.Fatalf("season = %q", got)
	}
	if got := c.Season("Coffee Then Adulting"); got != "" {
		t.Fatalf("expected no season, got %q", got)
	}
	got := c.CrossNiches("coffee addict", "Coffee And Dogs Forever", "coffee")
	if !reflect.DeepEqual(got, []string{"dog"}) {
		t.Fatalf("CrossNiches = %v", got)
	}
}

func TestVocabulary(t *testing.T) {
	c := mustEmbedded(t)
	got := c.Vocabulary("Vintage, distressed retro badge with bold type")
	if !reflect.DeepEqual(got, []string{"vintage", "retro", "distressed", "bold"}) {
		t.Fatalf("Vocabulary = %v", got)
	}
}

func TestParseRejectsMissingDefaultTone(t *testing.T) {
	_, err := Parse([]byte("version: 1\nniche_pool: [{name: a}]\nphrase_templates: [x]\n"))
	if err == nil || !strings.Contains(err.Error(), "tones.default") {
		t.Fatalf("expected tones.default error, got %v", err)
	}
}

func TestCrossNicheRulesDecodeFromTable(t *testing.T) {
	c := mustEmbedded(t)
	if len(c.CrossNicheRules) == 0 {
		t.Fatalf("expected cross_niches rules to decode")
	}
	for _, r := range c.CrossNicheRules {
		if r.Name == "" || len(r.Keywords) == 0 {
			t.Fatalf("incomplete cross-niche rule: %+v", r)
		}
	}
}
