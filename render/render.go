// Package render wraps the external encode/decode tool behind a
// narrow interface so the assembler and viseme engine stay
// backend-agnostic and testable without invoking a real encoder.
package render

import "context"

// Backend is the narrow rendering surface the assembly stages need.
// All durations are seconds.
type Backend interface {
	// ProbeDuration returns the native length of a media file.
	ProbeDuration(ctx context.Context, path string) (float64, error)
	// Trim re-encodes the first dur seconds of a video.
	Trim(ctx context.Context, in string, dur float64, out string) error
	// LoopToDuration loops a video seamlessly from its start until it
	// covers dur seconds.
	LoopToDuration(ctx context.Context, in string, dur float64, out string) error
	// StillClip turns a still image into a dur-second clip with a slow
	// continuous zoom.
	StillClip(ctx context.Context, img string, dur float64, out string) error
	// ColorClip produces a dur-second solid-color placeholder segment.
	ColorClip(ctx context.Context, color string, dur float64, out string) error
	// Concat joins video segments in the given order.
	Concat(ctx context.Context, files []string, out string) error
	// MuxAudio attaches an audio track to a video segment.
	MuxAudio(ctx context.Context, video, audio, out string) error
	// MixMusic mixes a looped low-level music bed under the timeline's
	// existing audio, trimmed to the timeline length.
	MixMusic(ctx context.Context, video, music string, gain float64, out string) error
	// Head re-encodes the first dur seconds of the timeline.
	Head(ctx context.Context, in string, dur float64, out string) error
	// FramesToVideo encodes a numbered PNG frame sequence.
	FramesToVideo(ctx context.Context, pattern string, fps int, out string) error
	// DrawCaption burns caption text onto a video segment.
	DrawCaption(ctx context.Context, in, text, out string) error
	// Silence writes dur seconds of silent audio.
	Silence(ctx context.Context, dur float64, out string) error
	// ConcatAudio joins audio files in order without re-encoding.
	ConcatAudio(ctx context.Context, files []string, out string) error
	// DecodePCM decodes an audio file to mono float samples in [-1, 1]
	// at the given sample rate.
	DecodePCM(ctx context.Context, path string, sampleRate int) ([]float64, error)
}
