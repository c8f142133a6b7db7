package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"runtime"
)

var (
	iconIdle []byte
	iconRec  []byte
	iconWarn []byte
)

func init() {
	red := color.RGBA{R: 255, G: 59, B: 48, A: 255}
	iconIdle = encodeIcon(renderIcon(44, nil, 0))
	iconRec = encodeIcon(renderIcon(44, &red, 44.0/6.5))
	iconWarn = encodeIcon(withWarnBadge(renderIcon(44, &red, 44.0/6.5)))
}

// renderIcon draws a black disc with an optional coloured dot in the middle.
func renderIcon(size int, dot *color.RGBA, dotR float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	c := float64(size) / 2
	r := c - 1
	for y := range size {
		for x := range size {
			d := math.Hypot(float64(x)+0.5-c, float64(y)+0.5-c)
			switch {
			case dot != nil && d <= dotR:
				img.Set(x, y, dot)
			case d <= r:
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

// withWarnBadge adds a yellow "!" badge in the bottom-right corner.
func withWarnBadge(img *image.RGBA) *image.RGBA {
	size := img.Bounds().Dx()
	s := float64(size)
	badgeR := s * 0.34
	cx, cy := s-badgeR+0.5, s-badgeR+0.5
	dark := color.RGBA{R: 40, G: 40, B: 40, A: 255}
	yellow := color.RGBA{R: 255, G: 204, B: 0, A: 255}
	halfW := badgeR * 0.24

	for y := range size {
		for x := range size {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			if math.Hypot(fx-cx, fy-cy) > badgeR {
				continue
			}
			ly := (fy - (cy - badgeR*0.7)) / (badgeR * 1.4)
			lx := math.Abs(fx - cx)
			bar := lx <= halfW && ly >= 0.1 && ly <= 0.62
			point := lx <= halfW && ly >= 0.72 && ly <= 0.85
			if bar || point {
				img.Set(x, y, dark)
			} else {
				img.Set(x, y, yellow)
			}
		}
	}
	return img
}

func encodeIcon(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("encodeIcon: " + err.Error())
	}
	if runtime.GOOS == "windows" {
		return wrapICO(buf.Bytes(), img.Bounds().Dx())
	}
	return buf.Bytes()
}

// wrapICO embeds a PNG in a single-image ICO container, which the Windows
// tray requires.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	header := []uint16{0, 1, 1} // reserved, type icon, one image
	binary.Write(&buf, binary.LittleEndian, header)
	buf.Write([]byte{byte(size), byte(size), 0, 0})
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // planes
	binary.Write(&buf, binary.LittleEndian, uint16(32)) // bits per pixel
	binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	binary.Write(&buf, binary.LittleEndian, uint32(6+16))
	buf.Write(pngData)
	return buf.Bytes()
}
