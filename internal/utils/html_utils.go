package utils

import (
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// enhanceImages 为图片增加懒加载和 no-referrer 属性
func enhanceImages(htmlStr string) string {
	if !strings.Contains(htmlStr, "<img") {
		return htmlStr
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		s.SetAttr("loading", "lazy")
		s.SetAttr("referrerpolicy", "no-referrer")
	})
	out, err := doc.Find("body").Html()
	if err != nil {
		return htmlStr
	}
	return out
}

// Excerpt returns the visible text of rendered HTML, whitespace collapsed
// and cut to at most maxRunes runes plus an ellipsis.
func Excerpt(h template.HTML, maxRunes int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(h)))
	if err != nil {
		return ""
	}
	text := strings.Join(strings.Fields(doc.Text()), " ")
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}
