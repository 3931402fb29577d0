package gcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/ctxutil"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

// ErrImageUnavailable means Vision could not fetch or decode the image.
var ErrImageUnavailable = errors.New("gcp: image unavailable")

type Color struct {
	Hex           string  `json:"hex"`
	Score         float64 `json:"score"`
	PixelFraction float64 `json:"pixel_fraction"`
}

// Palette extracts dominant colors from public image URLs.
type Palette interface {
	DominantColors(ctx context.Context, imageURL string, max int) ([]Color, error)
	Close() error
}

type visionPalette struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewVisionPalette(ctx context.Context, log *logger.Logger) (Palette, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := vision.NewImageAnnotatorClient(ctxutil.Default(ctx), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &visionPalette{log: log.With("service", "gcp.VisionPalette"), client: c}, nil
}

func (p *visionPalette) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *visionPalette) DominantColors(ctx context.Context, imageURL string, max int) ([]Color, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, ErrImageUnavailable
	}
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), 30*time.Second)
	defer cancel()

	req := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{{
		Image:    &visionpb.Image{Source: &visionpb.ImageSource{ImageUri: imageURL}},
		Features: []*visionpb.Feature{{Type: visionpb.Feature_IMAGE_PROPERTIES}},
	}}}
	resp, err := p.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		switch status.Code(err) {
		case codes.InvalidArgument, codes.NotFound:
			return nil, fmt.Errorf("%w: %v", ErrImageUnavailable, err)
		}
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, nil
	}
	r0 := resp.GetResponses()[0]
	if msg := r0.GetError().GetMessage(); msg != "" {
		p.log.Warn("vision annotate error", "image_url", imageURL, "error", msg)
		return nil, fmt.Errorf("%w: %s", ErrImageUnavailable, msg)
	}
	return topColors(r0.GetImagePropertiesAnnotation().GetDominantColors().GetColors(), max), nil
}

// topColors orders by score, drops duplicates after hex rounding and caps at max.
func topColors(infos []*visionpb.ColorInfo, max int) []Color {
	if max <= 0 {
		max = 5
	}
	out := make([]Color, 0, len(infos))
	seen := map[string]bool{}
	for _, ci := range infos {
		if ci == nil || ci.GetColor() == nil {
			continue
		}
		c := ci.GetColor()
		hex := fmt.Sprintf("#%02x%02x%02x", clampByte(c.GetRed()), clampByte(c.GetGreen()), clampByte(c.GetBlue()))
		if seen[hex] {
			continue
		}
		seen[hex] = true
		out = append(out, Color{Hex: hex, Score: float64(ci.GetScore()), PixelFraction: float64(ci.GetPixelFraction())})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func clampByte(v float32) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return int(v + 0.5)
}
