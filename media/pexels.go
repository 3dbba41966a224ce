package media

import (
	"context"
	"encoding/json"
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

const pexelsEndpoint = "https://api.pexels.com/videos/search"

// Pexels downloads stock footage matching the scene's search query.
type Pexels struct {
	httpClient  *http.Client
	apiKey      string
	Orientation string
	ResultCount int
	MinWidth    int
}

func NewPexels(orientation string, resultCount, minWidth int) *Pexels {
	return &Pexels{
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		apiKey:      os.Getenv("PEXELS_API_KEY"),
		Orientation: orientation,
		ResultCount: resultCount,
		MinWidth:    minWidth,
	}
}

func (p *Pexels) Name() string { return "pexels" }

type pexelsResponse struct {
	Videos []struct {
		ID         int `json:"id"`
		VideoFiles []struct {
			Link     string `json:"link"`
			Width    int    `json:"width"`
			Height   int    `json:"height"`
			FileType string `json:"file_type"`
		} `json:"video_files"`
	} `json:"videos"`
}

func (p *Pexels) Fetch(ctx context.Context, scene types.Scene, outDir string) (Fetched, error) {
	if p.apiKey == "" {
		return Fetched{}, fallback.Permanent(fmt.Errorf("PEXELS_API_KEY not set"))
	}
	query := scene.Query
	if query == "" {
		return Fetched{}, fallback.Permanent(fmt.Errorf("scene %d has no search query", scene.Index))
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", fmt.Sprint(p.ResultCount))
	params.Set("orientation", p.Orientation)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pexelsEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Fetched{}, fallback.Permanent(err)
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Fetched{}, fallback.Transient(fmt.Errorf("pexels search: %w", err))
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fetched{}, fallback.Transient(err)
	}
	if resp.StatusCode != http.StatusOK {
		return Fetched{}, fallback.FromHTTPStatus(resp.StatusCode, string(body))
	}

	var parsed pexelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Fetched{}, fallback.Transient(fmt.Errorf("parse pexels response: %w", err))
	}
	link := p.bestFile(parsed)
	if link == "" {
		return Fetched{}, fallback.Permanent(fmt.Errorf("no usable pexels results for %q", query))
	}

	out := filepath.Join(outDir, fmt.Sprintf("scene_%03d_stock.mp4", scene.Index))
	if err := p.download(ctx, link, out); err != nil {
		return Fetched{}, fallback.Transient(fmt.Errorf("download clip: %w", err))
	}
	return Fetched{Path: out, Kind: types.KindVideo}, nil
}

// bestFile picks the smallest rendition at or above the minimum width,
// from the first result that has one.
func (p *Pexels) bestFile(resp pexelsResponse) string {
	for _, v := range resp.Videos {
		best := ""
		bestWidth := 0
		for _, f := range v.VideoFiles {
			if f.FileType != "video/mp4" || f.Width < p.MinWidth {
				continue
			}
			if best == "" || f.Width < bestWidth {
				best = f.Link
				bestWidth = f.Width
			}
		}
		if best != "" {
			return best
		}
	}
	return ""
}

func (p *Pexels) download(ctx context.Context, link, out string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d downloading clip", resp.StatusCode)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	return f.Close()
}
