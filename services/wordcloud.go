package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sort"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"playstore-analytics/models"
)

// wordColors cycle over the placed words, largest first.
var wordColors = []color.RGBA{
	{0x1f, 0x77, 0xb4, 0xff},
	{0xff, 0x7f, 0x0e, 0xff},
	{0x2c, 0xa0, 0x2c, 0xff},
	{0xd6, 0x27, 0x28, 0xff},
	{0x94, 0x67, 0xbd, 0xff},
	{0x8c, 0x56, 0x4b, 0xff},
	{0xe3, 0x77, 0xc2, 0xff},
	{0x7f, 0x7f, 0x7f, 0xff},
	{0xbc, 0xbd, 0x22, 0xff},
	{0x17, 0xbe, 0xcf, 0xff},
}

const (
	minWordScale = 1.5
	maxWordScale = 6.0
	wordPadding  = 2
)

// WordWeights sums installs per app, or per category when byCategoryMode is
// set, and returns the n heaviest in descending order. Ties keep first
// appearance.
func WordWeights(view *models.View, byCategoryMode bool, n int) []models.WordWeight {
	if view.Empty() {
		return nil
	}
	key := byApp
	if byCategoryMode {
		key = byCategory
	}
	groups := aggregate(view.Rows, key, installs)
	sortGroups(groups, func(g *group) float64 { return g.sum })
	if n > 0 && len(groups) > n {
		groups = groups[:n]
	}
	out := make([]models.WordWeight, len(groups))
	for i, g := range groups {
		out[i] = models.WordWeight{Word: g.key, Weight: g.sum}
	}
	return out
}

// WordCloudRenderer draws frequency-weighted words onto a PNG.
type WordCloudRenderer struct {
	Width  int
	Height int
}

// NewWordCloudRenderer creates a renderer for a width x height canvas.
func NewWordCloudRenderer(width, height int) *WordCloudRenderer {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 400
	}
	return &WordCloudRenderer{Width: width, Height: height}
}

// Render places the words on an Archimedean spiral from the centre, the
// heaviest first. Words that do not fit are left out of the image but kept
// in the returned weights.
func (r *WordCloudRenderer) Render(words []models.WordWeight) (*models.WordCloud, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	sorted := make([]models.WordWeight, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Weight > sorted[j].Weight })

	maxWeight := 0.0
	if len(sorted) > 0 {
		maxWeight = sorted[0].Weight
	}

	var placed []image.Rectangle
	for i, w := range sorted {
		if w.Word == "" {
			continue
		}
		glyphs := renderWord(w.Word, wordColors[i%len(wordColors)])
		scale := minWordScale
		if maxWeight > 0 {
			scale += (maxWordScale - minWordScale) * math.Sqrt(w.Weight/maxWeight)
		}
		size := image.Pt(
			int(float64(glyphs.Bounds().Dx())*scale),
			int(float64(glyphs.Bounds().Dy())*scale),
		)
		rect, ok := r.place(size, placed)
		if !ok {
			continue
		}
		draw.NearestNeighbor.Scale(canvas, rect, glyphs, glyphs.Bounds(), draw.Over, nil)
		placed = append(placed, rect)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("wordcloud: encode png: %w", err)
	}
	return &models.WordCloud{Words: words, Width: r.Width, Height: r.Height, PNG: buf.Bytes()}, nil
}

// place walks the spiral until a free spot inside the canvas is found.
func (r *WordCloudRenderer) place(size image.Point, placed []image.Rectangle) (image.Rectangle, bool) {
	bounds := image.Rect(0, 0, r.Width, r.Height)
	cx, cy := float64(r.Width)/2, float64(r.Height)/2
	aspect := float64(r.Height) / float64(r.Width)
	limit := math.Hypot(cx, cy)

	for t := 0.0; 2*t < limit; t += 0.1 {
		x := cx + 2*t*math.Cos(t) - float64(size.X)/2
		y := cy + 2*t*aspect*math.Sin(t) - float64(size.Y)/2
		rect := image.Rect(int(x), int(y), int(x)+size.X, int(y)+size.Y)
		if !rect.In(bounds) {
			continue
		}
		padded := rect.Inset(-wordPadding)
		free := true
		for _, p := range placed {
			if padded.Overlaps(p) {
				free = false
				break
			}
		}
		if free {
			return rect, true
		}
	}
	return image.Rectangle{}, false
}

// renderWord draws s at the native size of the 7x13 bitmap face.
func renderWord(s string, c color.RGBA) *image.RGBA {
	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Ceil()
	img := image.NewRGBA(image.Rect(0, 0, width, face.Height))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)
	return img
}

// DataURI returns the PNG as an inline image URL.
func DataURI(pngData []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
}

// WordCloudChart builds the word cloud of the view and its image-mark spec.
// Apps are summarised per category when every category is selected.
func WordCloudChart(view *models.View, ctx ChartContext, r *WordCloudRenderer) (*models.ChartSpec, *models.WordCloud, error) {
	id := string(models.OutputWordCloud)
	if view.Empty() {
		return models.NoDataChart(id, ""), nil, nil
	}
	words := WordWeights(view, ctx.AllCategories, orDefault(ctx.TopN, 10))
	cloud, err := r.Render(words)
	if err != nil {
		return models.NoDataChart(id, ""), nil, err
	}

	data := make([]models.Row, len(words))
	for i, w := range words {
		data[i] = models.Row{"word": w.Word, "weight": w.Weight}
	}
	title := "Top Apps by Installs"
	if ctx.AllCategories {
		title = "Top Categories by Installs"
	}
	return &models.ChartSpec{
		ID:     id,
		Mark:   models.MarkImage,
		Title:  title,
		Width:  cloud.Width,
		Height: cloud.Height,
		Encodings: []models.Encoding{
			{Channel: models.ChannelURL, Value: DataURI(cloud.PNG)},
		},
		Data: data,
	}, cloud, nil
}
