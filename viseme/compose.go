package viseme

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
)

// Character is one animated sprite set: a body and one mouth image per
// viseme state, all anchored at the body's top-left frame position.
type Character struct {
	Name   string
	Body   image.Image
	Mouths map[State]image.Image
	// Anchor is the body's top-left position in the frame.
	Anchor image.Point
	// MouthOffset positions the mouth sprite relative to Anchor.
	MouthOffset image.Point
}

// Composer composites one talking scene: background, characters with a
// small periodic vertical oscillation, and per-frame mouth sprites.
type Composer struct {
	Width      int
	Height     int
	Background image.Image
	Characters []Character
	BobAmp     float64 // pixels
	BobPeriod  int     // frames per full oscillation
}

// LoadCharacter reads a character sprite set from dir:
// body.png, mouth_closed.png, mouth_mid.png, mouth_open.png.
func LoadCharacter(dir, name string) (Character, error) {
	body, err := loadPNG(filepath.Join(dir, name, "body.png"))
	if err != nil {
		return Character{}, fmt.Errorf("character %s: %w", name, err)
	}
	mouths := make(map[State]image.Image, 3)
	for _, st := range []State{Closed, Mid, Open} {
		img, err := loadPNG(filepath.Join(dir, name, "mouth_"+st.String()+".png"))
		if err != nil {
			return Character{}, fmt.Errorf("character %s: %w", name, err)
		}
		mouths[st] = img
	}
	return Character{Name: name, Body: body, Mouths: mouths}, nil
}

// PlaceCharacters spreads characters evenly along the bottom of the
// frame and centers each mouth on its body.
func (c *Composer) PlaceCharacters() {
	n := len(c.Characters)
	if n == 0 {
		return
	}
	slot := c.Width / n
	for i := range c.Characters {
		ch := &c.Characters[i]
		bw := ch.Body.Bounds().Dx()
		bh := ch.Body.Bounds().Dy()
		ch.Anchor = image.Point{
			X: i*slot + (slot-bw)/2,
			Y: c.Height - bh - 40,
		}
		if m, ok := ch.Mouths[Closed]; ok {
			ch.MouthOffset = image.Point{
				X: (bw - m.Bounds().Dx()) / 2,
				Y: bh * 2 / 3,
			}
		}
	}
}

// RenderFrames writes one PNG per viseme state and returns the ffmpeg
// input pattern. The active speaker's mouth follows the state
// sequence; everyone else stays closed. Deterministic for a fixed
// state sequence and span list.
func (c *Composer) RenderFrames(dir string, states []State, spans []LineSpan, fps int) (string, error) {
	bounds := image.Rect(0, 0, c.Width, c.Height)
	for i, st := range states {
		frame := image.NewRGBA(bounds)
		if c.Background != nil {
			draw.Draw(frame, bounds, c.Background, c.Background.Bounds().Min, draw.Src)
		} else {
			draw.Draw(frame, bounds, &image.Uniform{color.RGBA{26, 42, 108, 255}}, image.Point{}, draw.Src)
		}

		t := float64(i) / float64(fps)
		active := SpeakerAt(spans, t)

		for _, ch := range c.Characters {
			bob := 0
			if c.BobPeriod > 0 {
				bob = int(math.Round(c.BobAmp * math.Sin(2*math.Pi*float64(i)/float64(c.BobPeriod))))
			}
			at := image.Point{X: ch.Anchor.X, Y: ch.Anchor.Y + bob}
			drawOver(frame, ch.Body, at)

			mouthState := Closed
			if ch.Name == active {
				mouthState = st
			}
			if mouth, ok := ch.Mouths[mouthState]; ok {
				drawOver(frame, mouth, at.Add(ch.MouthOffset))
			}
		}

		if err := writePNG(filepath.Join(dir, fmt.Sprintf("frame_%05d.png", i)), frame); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "frame_%05d.png"), nil
}

func drawOver(dst *image.RGBA, src image.Image, at image.Point) {
	r := image.Rectangle{Min: at, Max: at.Add(src.Bounds().Size())}
	draw.Draw(dst, r, src, src.Bounds().Min, draw.Over)
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
