package sentiment

import (
	"context"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

var (
	markdownLinkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern          = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

func RemoveLinks(input string) string {
	input = markdownLinkPattern.ReplaceAllString(input, "$1") // Keep only the text
	return urlPattern.ReplaceAllString(input, "")
}

func ConvertMarkdownToText(input string) string {
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plainText := strings.Join(strings.Fields(stripTags(string(output))), " ")

	return RemoveLinks(plainText)
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(html string) string {
	return tagPattern.ReplaceAllString(html, " ")
}

// VaderModel is the offline lexicon based backend. Its lexicon is English, so
// it only scores Latin-script comments meaningfully; everything else lands
// on a compound of 0 and therefore on the positive side of the tie.
type VaderModel struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderModel() *VaderModel {
	return &VaderModel{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Logits maps the compound score c in [-1, 1] to [-c, c].
func (v *VaderModel) Logits(_ context.Context, text string) ([]float64, error) {
	scores := v.analyzer.PolarityScores(ConvertMarkdownToText(text))
	c := scores.Compound
	return []float64{-c, c}, nil
}
