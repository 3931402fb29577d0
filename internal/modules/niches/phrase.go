package niches

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/observability"
)

const (
	minPhraseWords = 2
	maxPhraseWords = 5
)

var titleCaser = cases.Title(language.English)

func riskDescriptor(riskLevel int) string {
	switch {
	case riskLevel < 30:
		return "safe, warm and broadly appealing"
	case riskLevel < 70:
		return "clever with a fresh angle"
	default:
		return "bold, edgy and unexpected (still tasteful)"
	}
}

// PhraseFor picks a phrase for the niche: one of its suggested phrases, else a
// short AI-written phrase, else a catalog template.
func (e *Explorer) PhraseFor(ctx context.Context, n DiscoveredNiche, riskLevel int) (string, PhraseSource) {
	suggested := make([]string, 0, len(n.Phrases))
	for _, p := range n.Phrases {
		if p = e.norm.Normalize(p); p != "" {
			suggested = append(suggested, p)
		}
	}
	if len(suggested) > 0 {
		return suggested[e.intn(len(suggested))], PhraseSuggested
	}

	if e.ai != nil {
		phrase, err := e.generatePhrase(ctx, n.Name, riskLevel)
		if err == nil {
			return phrase, PhraseAI
		}
		e.log.Warn("phrase generation failed; using template", "niche", n.Name, "error", err)
		observability.Current().IncFallback("phrase", "ai_error")
	}
	return e.templatePhrase(n.Name), PhraseTemplate
}

func (e *Explorer) generatePhrase(ctx context.Context, niche string, riskLevel int) (string, error) {
	sys := strings.TrimSpace(`
You write t-shirt phrases. Reply with the phrase only: 2 to 5 words, no quotes,
no hashtags, no emoji, no brand names.
`)
	usr := fmt.Sprintf("NICHE: %s\nSTYLE: %s", niche, riskDescriptor(riskLevel))
	out, err := e.ai.GenerateText(ctx, sys, usr)
	if err != nil {
		return "", err
	}
	return e.cleanPhrase(out)
}

func (e *Explorer) cleanPhrase(raw string) (string, error) {
	line := strings.TrimSpace(raw)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = e.norm.Normalize(line)
	line = strings.Trim(line, "\"' .")
	words := strings.Fields(line)
	if len(words) < minPhraseWords || len(words) > maxPhraseWords {
		return "", fmt.Errorf("niches: phrase %q has %d words", line, len(words))
	}
	return strings.Join(words, " "), nil
}

func (e *Explorer) templatePhrase(niche string) string {
	name := titleCaser.String(strings.TrimSpace(niche))
	if e.cat != nil && name != "" && len(e.cat.PhraseTemplates) > 0 {
		t := e.cat.PhraseTemplates[e.intn(len(e.cat.PhraseTemplates))]
		if out := e.norm.Normalize(strings.ReplaceAll(t, "{niche}", name)); out != "" {
			return out
		}
	}
	if e.cat != nil && len(e.cat.DefaultPhraseTemplates) > 0 {
		return e.norm.Normalize(e.cat.DefaultPhraseTemplates[e.intn(len(e.cat.DefaultPhraseTemplates))])
	}
	if name == "" {
		return "Good Vibes Only"
	}
	return name + " Mode On"
}
