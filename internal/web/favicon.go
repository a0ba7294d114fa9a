// internal/web/favicon.go
package web

import (
	"image"
	"image/color"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"favgrab/internal/exporter"
)

// A bookmark ribbon over a rounded tile.
const faviconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 32 32" width="32" height="32">
  <rect width="32" height="32" rx="7" fill="#2563eb"/>
  <path d="M10 7h12v18l-6-4.5-6 4.5z" fill="#ffffff"/>
</svg>`

var (
	faviconPNGOnce sync.Once
	faviconPNG     []byte
)

func (s *Server) serveFavicon(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=31536000")
	c.Data(http.StatusOK, "image/svg+xml", []byte(faviconSVG))
}

// serveFaviconICO answers /favicon.ico with a PNG; browsers accept either.
func (s *Server) serveFaviconICO(c *gin.Context) {
	faviconPNGOnce.Do(func() {
		data, _, err := exporter.EncodePNG(renderFavicon(32))
		if err != nil {
			logrus.WithError(err).Error("Failed to render favicon")
			return
		}
		faviconPNG = data
	})
	if faviconPNG == nil {
		c.Status(http.StatusNotFound)
		return
	}

	c.Header("Cache-Control", "public, max-age=31536000")
	c.Data(http.StatusOK, "image/png", faviconPNG)
}

// renderFavicon draws the same ribbon as faviconSVG on an n by n grid.
func renderFavicon(n int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, n, n))
	blue := color.RGBA{R: 0x25, G: 0x63, B: 0xeb, A: 0xff}
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	scale := float64(n) / 32
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			fx, fy := float64(x)/scale, float64(y)/scale
			if !insideRoundedTile(fx, fy) {
				continue
			}
			img.Set(x, y, blue)
			if insideRibbon(fx, fy) {
				img.Set(x, y, white)
			}
		}
	}
	return img
}

func insideRoundedTile(x, y float64) bool {
	const r = 7.0
	cx, cy := x, y
	switch {
	case x < r:
		cx = r
	case x > 32-r:
		cx = 32 - r
	}
	switch {
	case y < r:
		cy = r
	case y > 32-r:
		cy = 32 - r
	}
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= r*r
}

func insideRibbon(x, y float64) bool {
	if x < 10 || x > 22 || y < 7 || y > 25 {
		return false
	}
	// The notch rises 4.5 units from the bottom corners to the middle.
	notch := 25 - 4.5*(1-abs(x-16)/6)
	return y <= notch
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
