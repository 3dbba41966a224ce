package render

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpeg is the real Backend, shelling out to ffmpeg/ffprobe.
type FFmpeg struct {
	ffmpeg  string
	ffprobe string

	Width        int
	Height       int
	FPS          int
	KenBurnsZoom float64
}

func NewFFmpeg(ffmpegPath, ffprobePath string, width, height, fps int, kenBurnsZoom float64) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		Width:   width, Height: height, FPS: fps,
		KenBurnsZoom: kenBurnsZoom,
	}
}

var _ Backend = (*FFmpeg)(nil)

func (f *FFmpeg) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, f.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w\n%s", args[0], err, tail(string(b), 2048))
	}
	return nil
}

func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	dur, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return dur, nil
}

// scalePad fits any source into the target frame with letterboxing.
func (f *FFmpeg) scalePad() string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		f.Width, f.Height, f.Width, f.Height,
	)
}

func (f *FFmpeg) encodeArgs() []string {
	return []string{
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-r", strconv.Itoa(f.FPS),
		"-pix_fmt", "yuv420p",
	}
}

func (f *FFmpeg) Trim(ctx context.Context, in string, dur float64, out string) error {
	args := []string{"-y",
		"-i", in,
		"-t", fmtSec(dur),
		"-vf", f.scalePad(),
	}
	args = append(args, f.encodeArgs()...)
	args = append(args, "-an", out)
	return f.run(ctx, args...)
}

func (f *FFmpeg) LoopToDuration(ctx context.Context, in string, dur float64, out string) error {
	srcDur, err := f.ProbeDuration(ctx, in)
	if err != nil || srcDur <= 0 {
		srcDur = dur
	}
	// One extra loop beyond the exact quotient so -t always cuts
	// inside real frames rather than at a stream boundary.
	loops := int(dur/srcDur) + 2
	args := []string{"-y",
		"-stream_loop", strconv.Itoa(loops),
		"-i", in,
		"-t", fmtSec(dur),
		"-vf", f.scalePad(),
	}
	args = append(args, f.encodeArgs()...)
	args = append(args, "-an", out)
	return f.run(ctx, args...)
}

func (f *FFmpeg) StillClip(ctx context.Context, img string, dur float64, out string) error {
	zoom := f.KenBurnsZoom
	if zoom <= 1 {
		zoom = 1.08
	}
	totalFrames := int(dur * float64(f.FPS))
	if totalFrames < 1 {
		totalFrames = 1
	}
	zoomStep := (zoom - 1.0) / float64(totalFrames)
	// Upscale before zoompan to avoid visible jitter on the pan.
	filter := fmt.Sprintf(
		"scale=%d:%d,zoompan=z='min(zoom+%.6f,%.3f)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:fps=%d,scale=%d:%d,setsar=1",
		f.Width*2, f.Height*2, zoomStep, zoom, totalFrames, f.FPS, f.Width, f.Height,
	)
	args := []string{"-y",
		"-loop", "1",
		"-i", img,
		"-vf", filter,
		"-t", fmtSec(dur),
	}
	args = append(args, f.encodeArgs()...)
	args = append(args, "-an", out)
	return f.run(ctx, args...)
}

func (f *FFmpeg) ColorClip(ctx context.Context, color string, dur float64, out string) error {
	if color == "" {
		color = "black"
	}
	args := []string{"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=%s:r=%d", color, f.Width, f.Height, fmtSec(dur), f.FPS),
	}
	args = append(args, f.encodeArgs()...)
	args = append(args, "-an", out)
	return f.run(ctx, args...)
}

func (f *FFmpeg) Concat(ctx context.Context, files []string, out string) error {
	if len(files) == 0 {
		return fmt.Errorf("concat: no input segments")
	}
	listFile := filepath.Join(filepath.Dir(out), "concat_list.txt")
	var lines []string
	for _, file := range files {
		lines = append(lines, fmt.Sprintf("file '%s'", file))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return err
	}
	args := []string{"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
	}
	args = append(args, f.encodeArgs()...)
	args = append(args, "-c:a", "aac", "-b:a", "192k", out)
	return f.run(ctx, args...)
}

func (f *FFmpeg) MuxAudio(ctx context.Context, video, audio, out string) error {
	return f.run(ctx, "-y",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		out,
	)
}

func (f *FFmpeg) MixMusic(ctx context.Context, video, music string, gain float64, out string) error {
	filter := fmt.Sprintf(
		"[1:a]volume=%.3f[bed];[0:a][bed]amix=inputs=2:duration=first:normalize=0[aout]",
		gain,
	)
	return f.run(ctx, "-y",
		"-i", video,
		"-stream_loop", "-1",
		"-i", music,
		"-filter_complex", filter,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		out,
	)
}

func (f *FFmpeg) Head(ctx context.Context, in string, dur float64, out string) error {
	args := []string{"-y",
		"-i", in,
		"-t", fmtSec(dur),
	}
	args = append(args, f.encodeArgs()...)
	args = append(args,
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		out,
	)
	return f.run(ctx, args...)
}

func (f *FFmpeg) FramesToVideo(ctx context.Context, pattern string, fps int, out string) error {
	return f.run(ctx, "-y",
		"-framerate", strconv.Itoa(fps),
		"-i", pattern,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-an",
		out,
	)
}

func (f *FFmpeg) DrawCaption(ctx context.Context, in, text, out string) error {
	filter := fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white:fontsize=54:borderw=3:bordercolor=black:x=(w-tw)/2:y=h-th-60",
		escapeDrawtext(text),
	)
	return f.run(ctx, "-y",
		"-i", in,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "copy",
		out,
	)
}

func (f *FFmpeg) Silence(ctx context.Context, dur float64, out string) error {
	return f.run(ctx, "-y",
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=mono",
		"-t", fmtSec(dur),
		"-c:a", "libmp3lame",
		"-q:a", "9",
		out,
	)
}

func (f *FFmpeg) ConcatAudio(ctx context.Context, files []string, out string) error {
	if len(files) == 0 {
		return fmt.Errorf("concat audio: no inputs")
	}
	listFile := filepath.Join(filepath.Dir(out), "audio_concat_list.txt")
	var lines []string
	for _, file := range files {
		lines = append(lines, fmt.Sprintf("file '%s'", file))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return err
	}
	return f.run(ctx, "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		out,
	)
}

func (f *FFmpeg) DecodePCM(ctx context.Context, path string, sampleRate int) ([]float64, error) {
	cmd := exec.CommandContext(ctx, f.ffmpeg,
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	raw, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode pcm: %w\n%s", err, tail(stderr.String(), 2048))
	}
	samples := make([]float64, len(raw)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float64(v) / math.MaxInt16
	}
	return samples, nil
}

func fmtSec(d float64) string {
	return strconv.FormatFloat(d, 'f', 3, 64)
}

func escapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, ":", "\\:")
	s = strings.ReplaceAll(s, "%", "\\%")
	return s
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
