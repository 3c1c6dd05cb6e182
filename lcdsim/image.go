// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"fmt"
	"image"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

// Cell geometry of the rendered image, in pixels.
const (
	cellW  = 20
	cellH  = 32
	gap    = 2
	margin = 16
)

var (
	faceOnce sync.Once
	face     font.Face
	faceErr  error
	// A truetype face caches glyphs and is not safe for concurrent use.
	renderMu sync.Mutex
)

func monoFace() (font.Face, error) {
	faceOnce.Do(func() {
		f, err := truetype.Parse(gomono.TTF)
		if err != nil {
			faceErr = fmt.Errorf("lcdsim: %w", err)
			return
		}
		face = truetype.NewFace(f, &truetype.Options{Size: 24, Hinting: font.HintingFull})
	})
	return face, faceErr
}

// Image renders the visible content of s as a picture of the module.
func Image(s *Bus) (image.Image, error) {
	dc, err := render(s)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// SavePNG renders s and saves it as a PNG file.
func SavePNG(s *Bus, path string) error {
	dc, err := render(s)
	if err != nil {
		return err
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("lcdsim: %w", err)
	}
	return nil
}

func render(s *Bus) (*gg.Context, error) {
	f, err := monoFace()
	if err != nil {
		return nil, err
	}
	renderMu.Lock()
	defer renderMu.Unlock()
	lines := s.Lines()
	st := s.State()
	crow, ccol, ok := s.Cursor()
	w := 2*margin + s.Cols()*(cellW+gap) - gap
	h := 2*margin + s.Rows()*(cellH+gap) - gap
	dc := gg.NewContext(w, h)
	if st.Backlight {
		dc.SetRGB255(0x9c, 0xcc, 0x3c)
	} else {
		dc.SetRGB255(0x30, 0x40, 0x20)
	}
	dc.Clear()
	dc.SetFontFace(f)
	for r, line := range lines {
		y := float64(margin + r*(cellH+gap))
		c := 0
		for _, g := range line {
			x := float64(margin + c*(cellW+gap))
			// Unlit pixels are slightly visible on a real module.
			dc.SetRGBA255(0, 0, 0, 0x18)
			dc.DrawRectangle(x, y, cellW, cellH)
			dc.Fill()
			if st.DisplayOn {
				dc.SetRGB255(0x10, 0x18, 0x08)
				if ok && r == crow && c == ccol {
					if st.Blink {
						dc.DrawRectangle(x, y, cellW, cellH)
						dc.Fill()
						dc.SetRGB255(0x9c, 0xcc, 0x3c)
					} else if st.CursorOn {
						dc.DrawRectangle(x, y+cellH-3, cellW, 3)
						dc.Fill()
					}
				}
				if g != ' ' {
					dc.DrawStringAnchored(string(g), x+cellW/2, y+cellH/2, 0.5, 0.35)
				}
			}
			c++
		}
	}
	return dc, nil
}
