package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/fallback"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
)

const pollinationsImageEndpoint = "https://image.pollinations.ai/prompt/"

// PollinationsImage generates an AI illustration when no stock footage
// matches. Free and keyless; the seed is derived from the scene index
// so re-runs regenerate the same picture.
type PollinationsImage struct {
	httpClient *http.Client
	Width      int
	Height     int
}

func NewPollinationsImage(width, height int) *PollinationsImage {
	return &PollinationsImage{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		Width:      width,
		Height:     height,
	}
}

func (p *PollinationsImage) Name() string { return "pollinations-image" }

func (p *PollinationsImage) Fetch(ctx context.Context, scene types.Scene, outDir string) (Fetched, error) {
	prompt := scene.ImagePrompt
	if prompt == "" {
		prompt = scene.Query
	}
	if prompt == "" {
		return Fetched{}, fallback.Permanent(fmt.Errorf("scene %d has no image prompt", scene.Index))
	}

	imageURL := fmt.Sprintf("%s%s?width=%d&height=%d&nologo=true&model=flux&seed=%d",
		pollinationsImageEndpoint,
		url.PathEscape(enhancePrompt(prompt)),
		p.Width, p.Height,
		scene.Index*42+7,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Fetched{}, fallback.Permanent(err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; KidsChannelPipeline/1.0)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Fetched{}, fallback.Transient(fmt.Errorf("pollinations image: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fetched{}, fallback.Transient(err)
	}
	if resp.StatusCode != http.StatusOK {
		return Fetched{}, fallback.FromHTTPStatus(resp.StatusCode, "")
	}
	// An error page instead of an image comes back tiny.
	if len(data) < 100 {
		return Fetched{}, fallback.Transient(fmt.Errorf("response too small (%d bytes)", len(data)))
	}

	out := filepath.Join(outDir, fmt.Sprintf("scene_%03d_gen.jpg", scene.Index))
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return Fetched{}, fallback.Permanent(err)
	}
	return Fetched{Path: out, Kind: types.KindImage}, nil
}

// enhancePrompt pins the channel's visual style onto the scene prompt.
func enhancePrompt(base string) string {
	return base + ", bright colorful 2D cartoon for preschool children, flat shading, friendly, simple shapes, no text, no watermark"
}
