package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/catalog"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/brief"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/observability"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/openai"
)

const executionSchemaName = "design_brief_execution_v1"

var defaultQualityFloor = []string{"amateur", "clipart", "blurry", "low resolution", "low effort"}

type JSONGenerator interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
}

type Executor struct {
	log *logger.Logger
	ai  JSONGenerator
	cat *catalog.Catalog
}

// NewExecutor accepts a nil ai; every Execute then takes the template path.
func NewExecutor(log *logger.Logger, ai JSONGenerator, cat *catalog.Catalog) *Executor {
	return &Executor{
		log: log.With("service", "BriefComplianceExecutor"),
		ai:  ai,
		cat: cat,
	}
}

// Execute turns a validated brief into an image prompt. It never fails: a bad
// collaborator outcome yields the deterministic template prompt.
func (e *Executor) Execute(ctx context.Context, b *brief.Brief) Result {
	ctx, span := observability.StartSpan(ctx, "executor.execute")
	defer span.End()

	if err := brief.Validate(b); err != nil {
		e.log.Error("refusing to execute incomplete brief", "error", err)
		return Result{Success: false, Error: err.Error()}
	}

	res := e.callCollaborator(ctx, b)
	var out Result
	if res.Status == CollaboratorOK {
		c := res.Compliance
		warnings := c.Score()
		out = Result{Success: true, Prompt: res.Prompt, Compliance: c, Warnings: warnings}
		if len(warnings) > 0 {
			e.log.Info("brief compliance gaps reported",
				"score", c.OverallScore,
				"warnings", warnings,
			)
		}
	} else {
		e.log.Warn("compliance collaborator failed; using template prompt",
			"status", res.Status,
			"error", res.Err,
		)
		observability.Current().IncFallback("executor", string(res.Status))
		out = FallbackResult(b, e.qualityFloor())
	}

	e.log.Debug("brief executed",
		"brief_id", b.Metadata.ID.String(),
		"used_fallback", out.UsedFallback,
		"prompt_tokens_est", openai.EstimateTokens(out.Prompt),
	)
	span.SetAttributes(
		attribute.Float64("compliance_score", out.Compliance.OverallScore),
		attribute.Bool("used_fallback", out.UsedFallback),
	)
	observability.Current().ObserveCompliance(out.Compliance.OverallScore, out.UsedFallback)
	return out
}

func (e *Executor) qualityFloor() []string {
	if e.cat != nil && len(e.cat.QualityFloor) > 0 {
		return e.cat.QualityFloor
	}
	return defaultQualityFloor
}

func (e *Executor) callCollaborator(ctx context.Context, b *brief.Brief) CollaboratorResult {
	if e.ai == nil {
		return CollaboratorResult{Status: CollaboratorUnavailable}
	}
	sys, usr, err := promptExecution(b, e.qualityFloor())
	if err != nil {
		return CollaboratorResult{Status: CollaboratorParseError, Err: err}
	}
	obj, err := e.ai.GenerateJSON(ctx, sys, usr, executionSchemaName, schemaExecutionV1())
	if err != nil {
		if errors.Is(err, openai.ErrNotConfigured) {
			return CollaboratorResult{Status: CollaboratorUnavailable, Err: err}
		}
		return CollaboratorResult{Status: CollaboratorCallFailure, Err: err}
	}
	prompt, c, err := coerceExecution(obj)
	if err != nil {
		return CollaboratorResult{Status: CollaboratorParseError, Err: err}
	}
	return CollaboratorResult{Status: CollaboratorOK, Prompt: prompt, Compliance: c}
}

func promptExecution(b *brief.Brief, floor []string) (system string, user string, err error) {
	system = strings.TrimSpace(`
You are a disciplined executor, not a creative. You turn a design brief into one image-generation prompt for a t-shirt graphic.

Rules:
1. The EXACT TEXT must appear verbatim, character for character, as the first and loudest element of the prompt. Never reword, translate, shorten or correct it.
2. Honor every typography, color, aesthetic and layout requirement in the brief.
3. Avoid every forbidden element listed in the brief.
4. End the prompt with the QUALITY FLOOR as negative constraints.
5. Generic quality instructions never override the brief's specific style directives.
6. Assess your own prompt honestly: set each compliance flag to true only if the prompt satisfies it.
`)

	js, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("executor: encode brief: %w", err)
	}
	user = fmt.Sprintf("EXACT TEXT: %q\n\nDESIGN BRIEF:\n%s\n\nQUALITY FLOOR (avoid): %s\n\nCHECKLIST: text_preserved, typography_followed, color_approach_followed, aesthetic_followed, forbidden_elements_avoided",
		b.Text.Exact, string(js), strings.Join(floor, ", "))
	return system, user, nil
}

func schemaExecutionV1() map[string]any {
	boolean := map[string]any{"type": "boolean"}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt":                     map[string]any{"type": "string"},
			"text_preserved":             boolean,
			"typography_followed":        boolean,
			"color_approach_followed":    boolean,
			"aesthetic_followed":         boolean,
			"forbidden_elements_avoided": boolean,
			"notes":                      map[string]any{"type": "string"},
		},
		"required": []any{
			"aesthetic_followed", "color_approach_followed", "forbidden_elements_avoided",
			"notes", "prompt", "text_preserved", "typography_followed",
		},
		"additionalProperties": false,
	}
}

func coerceExecution(obj map[string]any) (string, Compliance, error) {
	prompt, _ := obj["prompt"].(string)
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", Compliance{}, fmt.Errorf("executor: response missing prompt")
	}
	flag := func(key string) (bool, error) {
		v, ok := obj[key].(bool)
		if !ok {
			return false, fmt.Errorf("executor: response missing %s", key)
		}
		return v, nil
	}
	var c Compliance
	var err error
	for _, f := range []struct {
		key string
		dst *bool
	}{
		{"text_preserved", &c.TextPreserved},
		{"typography_followed", &c.TypographyFollowed},
		{"color_approach_followed", &c.ColorApproachFollowed},
		{"aesthetic_followed", &c.AestheticFollowed},
		{"forbidden_elements_avoided", &c.ForbiddenAvoided},
	} {
		if *f.dst, err = flag(f.key); err != nil {
			return "", Compliance{}, err
		}
	}
	c.Notes, _ = obj["notes"].(string)
	c.Notes = strings.TrimSpace(c.Notes)
	return prompt, c, nil
}
