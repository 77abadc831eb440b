// Package render draws tracks as overlaid lines onto a PNG image.
package render

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/fogleman/gg"
	"github.com/kwoodhouse93/strava-heatmap/colors"
	"github.com/kwoodhouse93/strava-heatmap/metrics"
	"github.com/kwoodhouse93/strava-heatmap/track"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

var ErrNoTracks = errors.New("render: no tracks to draw")

type Projection string

const (
	// Equirectangular scales longitude by the cosine of the middle latitude.
	Equirectangular Projection = "equirectangular"
	// PlateCarree draws longitude and latitude as plain x and y.
	PlateCarree Projection = "plate-carree"
)

func ParseProjection(s string) (Projection, error) {
	switch Projection(s) {
	case Equirectangular, PlateCarree:
		return Projection(s), nil
	}
	return "", errors.Errorf("render: unknown projection %q", s)
}

type Options struct {
	// Width is the longer side of the image in pixels. The shorter side follows
	// the projected aspect ratio.
	Width int
	// Padding around the tracks as a fraction of the width.
	Padding    float64
	Background color.Color
	Line       colors.Spec
	LineWidth  float64
	LineAlpha  float64
	Projection Projection
}

func DefaultOptions() Options {
	bg, _ := colors.Named("black")
	line, _ := colors.ParseSpec("xkcd:sky blue")
	return Options{
		Width:      3000,
		Padding:    0.02,
		Background: bg,
		Line:       line,
		LineWidth:  1,
		LineAlpha:  0.2,
		Projection: Equirectangular,
	}
}

type Renderer struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Renderer {
	if opts.Width < 1 {
		opts.Width = DefaultOptions().Width
	}
	if opts.Background == nil {
		opts.Background = DefaultOptions().Background
	}
	if opts.Projection == "" {
		opts.Projection = Equirectangular
	}
	return &Renderer{opts: opts, logger: logger.Named("render")}
}

// frame maps lon/lat onto image pixels.
type frame struct {
	bound  orb.Bound
	kx     float64
	scale  float64
	pad    float64
	width  int
	height int
	aspect float64
}

func (r *Renderer) frame(b orb.Bound) frame {
	kx := 1.0
	if r.opts.Projection == Equirectangular {
		kx = math.Cos(b.Center().Lat() * math.Pi / 180)
	}
	w := (b.Max.Lon() - b.Min.Lon()) * kx
	h := b.Max.Lat() - b.Min.Lat()
	switch {
	case w <= 0 && h <= 0:
		w, h = 1e-3, 1e-3
	case w <= 0:
		w = h
	case h <= 0:
		h = w
	}

	pad := r.opts.Padding * float64(r.opts.Width)
	inner := float64(r.opts.Width) - 2*pad
	if inner < 1 {
		pad, inner = 0, float64(r.opts.Width)
	}
	// The tracks fit into a square of Width pixels.
	scale := math.Min(inner/w, inner/h)
	width := clampSize(w*scale+2*pad, r.opts.Width)
	height := clampSize(h*scale+2*pad, r.opts.Width)
	return frame{
		bound:  b,
		kx:     kx,
		scale:  scale,
		pad:    pad,
		width:  width,
		height: height,
		aspect: h / w,
	}
}

func clampSize(v float64, max int) int {
	n := int(math.Ceil(v - 1e-9))
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}

func (f frame) project(p track.Point) (float64, float64) {
	x := f.pad + (p.Lon-f.bound.Min.Lon())*f.kx*f.scale
	y := f.pad + (f.bound.Max.Lat()-p.Lat)*f.scale
	return x, y
}

// Draw renders the tracks. Map colour specifications fail with
// colors.ErrNoElevation before anything is drawn when a track has no elevation.
func (r *Renderer) Draw(tracks []*track.Track) (image.Image, error) {
	var drawable []*track.Track
	for _, t := range tracks {
		if t.NumPoints() > 0 {
			drawable = append(drawable, t)
		}
	}
	if len(drawable) == 0 {
		return nil, ErrNoTracks
	}

	resolver, err := colors.NewResolver(r.opts.Line, drawable)
	if err != nil {
		return nil, err
	}
	if r.opts.Line.IsMap() && !r.opts.Line.Local() {
		min, max := resolver.Range()
		r.logger.Info("elevation range", zap.Float64("min", min), zap.Float64("max", max))
	}

	f := r.frame(track.Bound(drawable))
	r.logger.Info("bounding box",
		zap.Float64("min_lon", f.bound.Min.Lon()),
		zap.Float64("min_lat", f.bound.Min.Lat()),
		zap.Float64("max_lon", f.bound.Max.Lon()),
		zap.Float64("max_lat", f.bound.Max.Lat()),
		zap.Float64("aspect_ratio", f.aspect),
		zap.Int("width", f.width),
		zap.Int("height", f.height))

	dc := gg.NewContext(f.width, f.height)
	dc.SetColor(r.opts.Background)
	dc.Clear()
	dc.SetLineWidth(r.opts.LineWidth)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()

	for _, t := range drawable {
		colorer, err := resolver.ForTrack(t)
		if err != nil {
			return nil, err
		}
		if r.opts.Line.IsMap() {
			r.drawGradient(dc, f, t, colorer)
		} else {
			r.drawPlain(dc, f, t, withAlpha(colorer.At(0), r.opts.LineAlpha))
		}
	}
	metrics.TracksDrawn.Add(float64(len(drawable)))
	return dc.Image(), nil
}

func (r *Renderer) drawPlain(dc *gg.Context, f frame, t *track.Track, c color.Color) {
	dc.SetColor(c)
	for _, s := range t.Segments {
		if len(s) == 1 {
			x, y := f.project(s[0])
			dc.DrawPoint(x, y, r.opts.LineWidth/2)
			dc.Fill()
			continue
		}
		dc.NewSubPath()
		for i, p := range s {
			x, y := f.project(p)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.Stroke()
	}
}

// drawGradient strokes every piece between two points in the colour of its
// first point. A single point segment is drawn as a dot.
func (r *Renderer) drawGradient(dc *gg.Context, f frame, t *track.Track, colorer colors.TrackColorer) {
	for _, s := range t.Segments {
		if len(s) == 1 {
			x, y := f.project(s[0])
			dc.SetColor(withAlpha(colorer.At(s[0].Ele), r.opts.LineAlpha))
			dc.DrawPoint(x, y, r.opts.LineWidth/2)
			dc.Fill()
			continue
		}
		for i := 1; i < len(s); i++ {
			x1, y1 := f.project(s[i-1])
			x2, y2 := f.project(s[i])
			dc.SetColor(withAlpha(colorer.At(s[i-1].Ele), r.opts.LineAlpha))
			dc.DrawLine(x1, y1, x2, y2)
			dc.Stroke()
		}
	}
}

func withAlpha(c color.Color, alpha float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	alpha = math.Max(0, math.Min(1, alpha))
	n.A = uint8(math.Round(float64(n.A) * alpha))
	return n
}

// WriteFile draws the tracks and saves them as a PNG at path.
func (r *Renderer) WriteFile(path string, tracks []*track.Track) (image.Image, error) {
	started := time.Now()
	img, err := r.Draw(tracks)
	if err != nil {
		return nil, err
	}
	if err := SavePNG(path, img); err != nil {
		return nil, err
	}
	metrics.RenderDuration.Observe(time.Since(started).Seconds())
	r.logger.Info("wrote image", zap.String("file", path), zap.Int("tracks", len(tracks)))
	return img, nil
}

// SavePNG writes img to path through a temporary file in the same directory.
func SavePNG(path string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "render: failed to create temp file")
	}
	name := tmp.Name()
	tmp.Close()
	defer os.Remove(name)

	if err := gg.SavePNG(name, img); err != nil {
		return errors.Wrapf(err, "render: failed to encode %s", path)
	}
	if err := os.Chmod(name, 0644); err != nil {
		return errors.Wrap(err, "render: failed to set file mode")
	}
	if err := os.Rename(name, path); err != nil {
		return errors.Wrapf(err, "render: failed to write %s", path)
	}
	metrics.ImagesWritten.Inc()
	return nil
}

// Thumbnail scales img down to fit into a size x size square.
func Thumbnail(img image.Image, size int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > size || height > size {
		ratio := float64(width) / float64(height)
		if ratio < 1 {
			width = int(math.Max(1, math.Round(float64(size)*ratio)))
			height = size
		} else {
			height = int(math.Max(1, math.Round(float64(size)/ratio)))
			width = size
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
