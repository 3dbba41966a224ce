package viseme

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	th := Thresholds{Low: 0.005, Mid: 0.03}
	cases := []struct {
		rms  float64
		want State
	}{
		{0.001, Closed},
		{0.02, Mid},
		{0.08, Open},
		{0.005, Mid},  // at the low threshold speech has started
		{0.03, Open},  // at the mid threshold the mouth is open
		{0, Closed},
	}
	for _, tc := range cases {
		if got := th.Classify(tc.rms); got != tc.want {
			t.Errorf("Classify(%v) = %v, want %v", tc.rms, got, tc.want)
		}
	}
}

func TestRMS(t *testing.T) {
	t.Parallel()

	if got := RMS(nil); got != 0 {
		t.Fatalf("RMS(nil) = %v", got)
	}
	got := RMS([]float64{0.5, -0.5, 0.5, -0.5})
	if math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("RMS of constant magnitude 0.5 = %v", got)
	}
}

func constantSamples(value float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = value
	}
	return s
}

func TestSequence_WindowsAtFrameRate(t *testing.T) {
	t.Parallel()

	const rate, fps = 16000, 25
	window := rate / fps

	// Three frame windows: quiet, mid, loud.
	samples := append(constantSamples(0.001, window),
		append(constantSamples(0.02, window), constantSamples(0.08, window)...)...)

	states := Sequence(samples, rate, fps, Thresholds{Low: 0.005, Mid: 0.03})
	want := []State{Closed, Mid, Open}
	if len(states) != len(want) {
		t.Fatalf("expected %d states, got %d", len(want), len(states))
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("state %d = %v, want %v", i, states[i], want[i])
		}
	}
}

func TestSequence_Deterministic(t *testing.T) {
	t.Parallel()

	samples := make([]float64, 16000)
	for i := range samples {
		samples[i] = math.Sin(float64(i)/7) * math.Sin(float64(i)/631)
	}
	th := Thresholds{Low: 0.01, Mid: 0.05}

	a := Sequence(samples, 16000, 25, th)
	b := Sequence(samples, 16000, 25, th)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sequences diverge at frame %d", i)
		}
	}
}

func TestSpeakerAt(t *testing.T) {
	t.Parallel()

	spans := []LineSpan{
		{Speaker: "Cory", Start: 0, End: 2},
		{Speaker: "Luna", Start: 2.5, End: 4},
	}
	if got := SpeakerAt(spans, 1); got != "Cory" {
		t.Fatalf("t=1: %q", got)
	}
	if got := SpeakerAt(spans, 2.2); got != "" {
		t.Fatalf("expected silence gap, got %q", got)
	}
	if got := SpeakerAt(spans, 3); got != "Luna" {
		t.Fatalf("t=3: %q", got)
	}
	if got := SpeakerAt(spans, 9); got != "" {
		t.Fatalf("after last span: %q", got)
	}
}

func solidSprite(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func testComposer() *Composer {
	ch := Character{
		Name: "Cory",
		Body: solidSprite(40, 60, color.RGBA{255, 200, 0, 255}),
		Mouths: map[State]image.Image{
			Closed: solidSprite(10, 4, color.RGBA{0, 0, 0, 255}),
			Mid:    solidSprite(10, 8, color.RGBA{120, 0, 0, 255}),
			Open:   solidSprite(10, 14, color.RGBA{200, 0, 0, 255}),
		},
	}
	c := &Composer{
		Width: 160, Height: 120,
		Characters: []Character{ch},
		BobAmp:     3,
		BobPeriod:  50,
	}
	c.PlaceCharacters()
	return c
}

func TestRenderFrames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := testComposer()
	states := []State{Closed, Open, Mid}
	spans := []LineSpan{{Speaker: "Cory", Start: 0, End: 1}}

	pattern, err := c.RenderFrames(dir, states, spans, 25)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if filepath.Dir(pattern) != dir {
		t.Fatalf("pattern outside frame dir: %s", pattern)
	}
	for i := range states {
		path := filepath.Join(dir, "frame_0000"+string(rune('0'+i))+".png")
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("missing frame %d: %v", i, err)
		}
		if info.Size() == 0 {
			t.Fatalf("empty frame %d", i)
		}
	}
}

func TestPlaceCharacters(t *testing.T) {
	t.Parallel()

	c := testComposer()
	ch := c.Characters[0]
	if ch.Anchor.X < 0 || ch.Anchor.X+40 > c.Width {
		t.Fatalf("body out of frame horizontally: %v", ch.Anchor)
	}
	if ch.Anchor.Y+60 > c.Height {
		t.Fatalf("body below frame: %v", ch.Anchor)
	}
	if ch.MouthOffset == (image.Point{}) {
		t.Fatal("mouth offset not placed")
	}
}
