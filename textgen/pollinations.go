package textgen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/fallback"
)

const pollinationsTextEndpoint = "https://text.pollinations.ai/"

// PollinationsText is the free keyless text generator; quality is
// lower than Groq so it sits behind it in the chain.
type PollinationsText struct {
	httpClient *http.Client
}

func NewPollinationsText() *PollinationsText {
	return &PollinationsText{httpClient: &http.Client{Timeout: 60 * time.Second}}
}

func (p *PollinationsText) Name() string { return "pollinations-text" }

func (p *PollinationsText) Generate(ctx context.Context, req Request) (string, error) {
	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}
	endpoint := pollinationsTextEndpoint + url.PathEscape(prompt) + "?json=false"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fallback.Permanent(err)
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (compatible; KidsChannelPipeline/1.0)")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fallback.Transient(fmt.Errorf("pollinations request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fallback.Transient(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fallback.FromHTTPStatus(resp.StatusCode, truncate(string(body), 200))
	}
	if len(body) == 0 {
		return "", fallback.Transient(fmt.Errorf("pollinations returned an empty body"))
	}
	return string(body), nil
}
