// Package upload pushes the finished video to YouTube over the Data
// API v3. It is the outermost boundary of the pipeline and runs only
// when explicitly enabled.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/config"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/manifest"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
)

// Uploader uploads one video with its metadata.
type Uploader struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Uploader {
	return &Uploader{cfg: cfg}
}

// Upload sends the video and returns its watch URL.
func (u *Uploader) Upload(ctx context.Context, videoFile string, md *types.VideoMetadata) (string, error) {
	client, err := u.oauthClient(ctx)
	if err != nil {
		return "", fmt.Errorf("youtube auth: %w", err)
	}
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", fmt.Errorf("youtube service: %w", err)
	}

	status := &youtube.VideoStatus{
		PrivacyStatus:           md.Visibility,
		SelfDeclaredMadeForKids: u.cfg.Upload.MadeForKids,
	}
	if md.ScheduledTimeUTC != "" && md.Visibility == "public" {
		// Scheduled videos must sit private until publish time.
		status.PrivacyStatus = "private"
		status.PublishAt = md.ScheduledTimeUTC
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                md.Title,
			Description:          md.Description,
			Tags:                 md.Tags,
			CategoryId:           md.CategoryID,
			DefaultLanguage:      u.cfg.Upload.DefaultLanguage,
			DefaultAudioLanguage: u.cfg.Upload.DefaultLanguage,
		},
		Status: status,
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	log.Printf("[upload] uploading %q", md.Title)
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		NotifySubscribers(u.cfg.Upload.NotifySubscribers).
		Media(f).
		Do()
	if err != nil {
		return "", fmt.Errorf("youtube upload: %w", err)
	}
	url := "https://www.youtube.com/watch?v=" + uploaded.Id
	log.Printf("[upload] done: %s", url)
	return url, nil
}

func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh on first use
	}
	return &http.Client{Transport: &oauth2.Transport{Source: conf.TokenSource(ctx, token)}}, nil
}

// Stage uploads the assembled video using the metadata stage's output.
type Stage struct {
	Cfg    *config.Config
	RunDir string
}

func (s *Stage) Name() string { return "upload" }

func (s *Stage) Run(ctx context.Context, _ *types.ContentSpec, m *manifest.Manifest) ([]types.Artifact, error) {
	final, ok := m.ArtifactByKind("assemble", types.KindVideo)
	if !ok {
		return nil, fmt.Errorf("no assembled video to upload")
	}
	mdArt, ok := m.ArtifactByKind("metadata", types.KindText)
	if !ok {
		return nil, fmt.Errorf("no metadata to upload with")
	}
	data, err := os.ReadFile(mdArt.Path)
	if err != nil {
		return nil, err
	}
	var md types.VideoMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("parse %s: %w", mdArt.Path, err)
	}

	url, err := New(s.Cfg).Upload(ctx, final.Path, &md)
	if err != nil {
		return nil, err
	}

	receipt := map[string]string{
		"video_url":   url,
		"title":       md.Title,
		"uploaded_at": time.Now().UTC().Format(time.RFC3339),
		"video_file":  final.Path,
	}
	out := filepath.Join(s.RunDir, "upload_receipt.json")
	receiptData, _ := json.MarshalIndent(receipt, "", "  ")
	if err := manifest.WriteFileAtomic(out, receiptData); err != nil {
		return nil, err
	}
	return []types.Artifact{{Kind: types.KindText, Path: out, Stage: s.Name()}}, nil
}
