package catalog

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/normalization"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

const catalogEnv = "CATALOG_YAML"

//go:embed catalog.yaml
var catalogFS embed.FS

// ToneEnrichment is applied when a brief field has no specific upstream signal.
type ToneEnrichment struct {
	Typography        string   `yaml:"typography"`
	Weight            string   `yaml:"weight"`
	Effects           []string `yaml:"effects"`
	AestheticKeywords []string `yaml:"aesthetic_keywords"`
	IconStyle         string   `yaml:"icon_style"`
	Mood              string   `yaml:"mood"`
}

// NicheStyle is the hand-curated default style for a niche.
type NicheStyle struct {
	Typography string   `yaml:"typography"`
	Weight     string   `yaml:"weight"`
	Effects    []string `yaml:"effects"`
	Palette    []string `yaml:"palette"`
	Mood       string   `yaml:"mood"`
	ShirtColor string   `yaml:"shirt_color"`
	Aesthetic  string   `yaml:"aesthetic"`
	Keywords   []string `yaml:"keywords"`
	Audience   string   `yaml:"audience"`
	IconStyle  string   `yaml:"icon_style"`
}

// PoolNiche is one entry of the static fallback niche pool.
type PoolNiche struct {
	Name        string   `yaml:"name"`
	Category    string   `yaml:"category"`
	Description string   `yaml:"description"`
	Audience    string   `yaml:"audience"`
	Trend       string   `yaml:"trend"`
	Competition string   `yaml:"competition"`
	Phrases     []string `yaml:"phrases"`
	Related     []string `yaml:"related"`
}

// KeywordRule maps a label to the keywords that imply it. Rule order is significant.
type KeywordRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type Catalog struct {
	Name                   string                    `yaml:"catalog"`
	Version                int                       `yaml:"version"`
	BannedWords            []string                  `yaml:"banned_words"`
	QualityFloor           []string                  `yaml:"quality_floor"`
	PhraseTemplates        []string                  `yaml:"phrase_templates"`
	DefaultPhraseTemplates []string                  `yaml:"default_phrase_templates"`
	Tones                  map[string]ToneEnrichment `yaml:"tones"`
	NicheStyles            map[string]NicheStyle     `yaml:"niche_styles"`
	Seasons                []KeywordRule             `yaml:"seasons"`
	CrossNicheRules        []KeywordRule             `yaml:"cross_niches"`
	StyleVocabulary        []string                  `yaml:"style_vocabulary"`
	NichePool              []PoolNiche               `yaml:"niche_pool"`

	toneKeys  []string
	styleKeys []string
	rules     map[string]*regexp.Regexp
}

var (
	loadOnce sync.Once
	loaded   *Catalog
	loadErr  error
)

// Load reads the catalog once per process: CATALOG_YAML when set, else the embedded file.
func Load(log *logger.Logger) (*Catalog, error) {
	loadOnce.Do(func() {
		data, err := read()
		if err != nil {
			loadErr = err
			return
		}
		loaded, loadErr = Parse(data)
	})
	if loadErr != nil && log != nil {
		log.Error("catalog load failed", "error", loadErr)
	}
	return loaded, loadErr
}

// Embedded parses the built-in catalog, bypassing CATALOG_YAML and the process cache.
func Embedded() (*Catalog, error) {
	data, err := catalogFS.ReadFile("catalog.yaml")
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func read() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(catalogEnv)); path != "" {
		return os.ReadFile(path)
	}
	return catalogFS.ReadFile("catalog.yaml")
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	c.index()
	return &c, nil
}

func (c *Catalog) validate() error {
	if c.Version <= 0 {
		return errors.New("version is required")
	}
	if _, ok := c.Tones["default"]; !ok {
		return errors.New("tones.default is required")
	}
	if strings.TrimSpace(c.Tones["default"].Typography) == "" {
		return errors.New("tones.default.typography is required")
	}
	if len(c.NichePool) == 0 {
		return errors.New("niche_pool is empty")
	}
	if len(c.PhraseTemplates) == 0 {
		return errors.New("phrase_templates is empty")
	}
	seen := map[string]bool{}
	for i, n := range c.NichePool {
		key := normalization.NormalizeKey(n.Name)
		if key == "" {
			return fmt.Errorf("niche_pool[%d]: name is required", i)
		}
		if seen[key] {
			return fmt.Errorf("niche_pool: duplicate niche %q", n.Name)
		}
		seen[key] = true
	}
	for _, list := range [][]KeywordRule{c.Seasons, c.CrossNicheRules} {
		for i, r := range list {
			if strings.TrimSpace(r.Name) == "" || len(r.Keywords) == 0 {
				return fmt.Errorf("keyword rule %d: name and keywords are required", i)
			}
		}
	}
	return nil
}

func (c *Catalog) index() {
	c.toneKeys = sortedKeys(c.Tones)
	// Longest first so "dog mom" style keys would beat "dog".
	c.styleKeys = sortedKeys(c.NicheStyles)
	sort.SliceStable(c.styleKeys, func(i, j int) bool { return len(c.styleKeys[i]) > len(c.styleKeys[j]) })

	c.rules = map[string]*regexp.Regexp{}
	for prefix, list := range map[string][]KeywordRule{"season:": c.Seasons, "niche:": c.CrossNicheRules} {
		for _, r := range list {
			parts := make([]string, 0, len(r.Keywords))
			for _, k := range r.Keywords {
				if k = normalization.NormalizeKey(k); k != "" {
					parts = append(parts, regexp.QuoteMeta(k))
				}
			}
			if len(parts) > 0 {
				c.rules[prefix+r.Name] = regexp.MustCompile(`\b(?:` + strings.Join(parts, "|") + `)\b`)
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Tone resolves a free-text tone: exact key, then the first key (sorted) contained
// in the tone or containing it, then "default". It returns the matched key.
func (c *Catalog) Tone(tone string) (ToneEnrichment, string) {
	t := normalization.NormalizeKey(tone)
	if t != "" {
		if e, ok := c.Tones[t]; ok {
			return e, t
		}
		for _, k := range c.toneKeys {
			if k == "default" {
				continue
			}
			if strings.Contains(t, k) || strings.Contains(k, t) {
				return c.Tones[k], k
			}
		}
	}
	return c.Tones["default"], "default"
}

// NicheStyle finds the curated style for a niche by exact or contained key.
func (c *Catalog) NicheStyle(niche string) (NicheStyle, bool) {
	n := normalization.NormalizeKey(niche)
	if n == "" {
		return NicheStyle{}, false
	}
	if s, ok := c.NicheStyles[n]; ok {
		return s, true
	}
	for _, k := range c.styleKeys {
		if containsWord(n, k) {
			return c.NicheStyles[k], true
		}
	}
	return NicheStyle{}, false
}

func containsWord(haystack, word string) bool {
	for _, f := range strings.Fields(haystack) {
		if f == word || strings.TrimSuffix(f, "s") == word {
			return true
		}
	}
	return strings.Contains(" "+haystack+" ", " "+word+" ")
}

// Season returns the first season whose keywords appear in any of the texts.
func (c *Catalog) Season(texts ...string) string {
	joined := normalization.NormalizeKey(strings.Join(texts, " "))
	for _, r := range c.Seasons {
		if re := c.rules["season:"+r.Name]; re != nil && re.MatchString(joined) {
			return r.Name
		}
	}
	return ""
}

// CrossNiches lists niches whose keywords appear in the texts, in table order,
// leaving out the primary niche.
func (c *Catalog) CrossNiches(primary string, texts ...string) []string {
	joined := normalization.NormalizeKey(strings.Join(texts, " "))
	p := normalization.NormalizeKey(primary)
	out := []string{}
	for _, r := range c.CrossNicheRules {
		name := normalization.NormalizeKey(r.Name)
		if name == p || (p != "" && containsWord(p, name)) {
			continue
		}
		if re := c.rules["niche:"+r.Name]; re != nil && re.MatchString(joined) {
			out = append(out, r.Name)
		}
	}
	return out
}

// Vocabulary returns style words from the vocabulary that occur in text, in vocabulary order.
func (c *Catalog) Vocabulary(text string) []string {
	t := " " + strings.Join(strings.FieldsFunc(normalization.NormalizeKey(text), func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == ';' || r == '/' || r == '(' || r == ')'
	}), " ") + " "
	out := []string{}
	for _, w := range c.StyleVocabulary {
		if strings.Contains(t, " "+strings.ToLower(w)+" ") {
			out = append(out, w)
		}
	}
	return out
}
