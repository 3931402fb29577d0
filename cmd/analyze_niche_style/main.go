package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/app"
)

type urlList []string

func (l *urlList) String() string { return strings.Join(*l, ",") }
func (l *urlList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	var images urlList
	var niche string
	var research bool
	flag.StringVar(&niche, "niche", "", "niche to analyze")
	flag.Var(&images, "image", "product image URL (repeatable)")
	flag.BoolVar(&research, "research", false, "print the agent research result instead of analyzing images")
	flag.Parse()

	if strings.TrimSpace(niche) == "" {
		fmt.Println("-niche is required")
		return 1
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		return 1
	}
	defer application.Close()
	ctx := context.Background()

	var out any
	if research {
		res := application.Services.Researcher.Research(ctx, niche)
		if !res.OK() {
			fmt.Printf("research %s: %s %v\n", niche, res.Status, res.Err)
			return 1
		}
		out = res.Profile
	} else {
		if len(images) == 0 {
			fmt.Println("at least one -image is required")
			return 1
		}
		p, err := application.Services.Analyzer.Analyze(ctx, niche, images)
		if err != nil && p == nil {
			fmt.Printf("analyze %s: %v\n", niche, err)
			return 1
		}
		if err != nil {
			fmt.Printf("warning: %v\n", err)
		}
		out = p
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Printf("encode result: %v\n", err)
		return 1
	}
	return 0
}
