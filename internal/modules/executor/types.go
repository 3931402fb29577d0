package executor

// Compliance is the collaborator's self-assessment of the generated prompt.
type Compliance struct {
	TextPreserved         bool    `json:"text_preserved"`
	TypographyFollowed    bool    `json:"typography_followed"`
	ColorApproachFollowed bool    `json:"color_approach_followed"`
	AestheticFollowed     bool    `json:"aesthetic_followed"`
	ForbiddenAvoided      bool    `json:"forbidden_elements_avoided"`
	OverallScore          float64 `json:"overall_score"`
	Notes                 string  `json:"notes,omitempty"`
}

// Result is what the image-generation step consumes.
type Result struct {
	Success      bool       `json:"success"`
	Prompt       string     `json:"prompt"`
	Compliance   Compliance `json:"compliance"`
	Warnings     []string   `json:"warnings,omitempty"`
	UsedFallback bool       `json:"used_fallback"`
	Error        string     `json:"error,omitempty"`
}

type CollaboratorStatus string

const (
	CollaboratorOK          CollaboratorStatus = "ok"
	CollaboratorUnavailable CollaboratorStatus = "unavailable"
	CollaboratorCallFailure CollaboratorStatus = "call_failure"
	CollaboratorParseError  CollaboratorStatus = "parse_error"
)

// CollaboratorResult is the checked outcome of the compliance call. Prompt and
// Compliance are set only for CollaboratorOK.
type CollaboratorResult struct {
	Status     CollaboratorStatus
	Prompt     string
	Compliance Compliance
	Err        error
}

const (
	WarnText       = "Text may not have been preserved exactly"
	WarnTypography = "Typography requirements may not have been followed"
	WarnColor      = "Color approach may not have been followed"
	WarnAesthetic  = "Aesthetic direction may not have been followed"
	WarnForbidden  = "Forbidden elements may be present"
	WarnFallback   = "Used template fallback; compliance was not verified"

	// FallbackScore is reported for the template path: every check is asserted
	// true but the score stays below a verified pass.
	FallbackScore = 0.8

	complianceChecks = 5
)

// Score fills OverallScore and returns one warning per failed check.
func (c *Compliance) Score() []string {
	checks := []struct {
		ok   bool
		warn string
	}{
		{c.TextPreserved, WarnText},
		{c.TypographyFollowed, WarnTypography},
		{c.ColorApproachFollowed, WarnColor},
		{c.AestheticFollowed, WarnAesthetic},
		{c.ForbiddenAvoided, WarnForbidden},
	}
	passed := 0
	var warnings []string
	for _, ch := range checks {
		if ch.ok {
			passed++
			continue
		}
		warnings = append(warnings, ch.warn)
	}
	c.OverallScore = float64(passed) / complianceChecks
	return warnings
}
