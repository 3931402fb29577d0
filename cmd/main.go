package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/app"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/brief"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/generation"
)

func main() {
	os.Exit(run())
}

func run() int {
	var req generation.Request
	var text, style, tone, audience, approved string
	var metrics bool
	flag.StringVar(&req.UserScope, "user", "", "user scope for history and novelty (empty = global)")
	flag.IntVar(&req.RiskLevel, "risk", 50, "risk level 0-100")
	flag.BoolVar(&req.ForceExploration, "force", false, "always explore a new niche")
	flag.StringVar(&req.Niche, "niche", "", "skip selection and use this niche")
	flag.StringVar(&text, "text", "", "exact design text")
	flag.StringVar(&style, "style", "", "free-text style request")
	flag.StringVar(&tone, "tone", "", "tone (funny, sarcastic, heartfelt, ...)")
	flag.StringVar(&audience, "audience", "", "target audience")
	flag.StringVar(&approved, "approved", "", "mark the recorded design approved (true) or rejected (false)")
	flag.BoolVar(&metrics, "metrics", false, "print Prometheus metrics to stderr on exit")
	flag.Parse()

	if approved != "" {
		v, err := strconv.ParseBool(approved)
		if err != nil {
			fmt.Printf("invalid -approved %q: %v\n", approved, err)
			return 2
		}
		req.Approved = &v
	}

	if text != "" || style != "" || tone != "" || audience != "" {
		req.Overrides = &brief.UserOverrides{
			Text:     strings.TrimSpace(text),
			Style:    strings.TrimSpace(style),
			Tone:     strings.TrimSpace(tone),
			Audience: strings.TrimSpace(audience),
		}
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		return 1
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	application.Start(ctx)

	resp := application.Services.Generation.Run(ctx, req)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		fmt.Printf("encode result: %v\n", err)
		return 1
	}
	if metrics && application.Metrics != nil {
		_ = application.Metrics.WritePrometheus(os.Stderr)
	}
	if resp.Status == generation.StatusFailed {
		return 2
	}
	return 0
}
