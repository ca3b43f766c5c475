package utils

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

type markdownRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	// 仅帖子正文需要处理图片
	images bool
}

var (
	postRenderer = markdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		policy: postPolicy(),
		images: true,
	}
	commentRenderer = markdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		policy: commentPolicy(),
	}
)

// postPolicy is the UGC policy plus images; links open in a new tab
// without a referrer.
func postPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowImages()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

// commentPolicy keeps inline formatting, lists, quotes and code. Headings
// collapse to their text, images and tables are dropped.
func commentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "del", "code", "pre", "blockquote", "ul", "ol", "li")
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

func (r markdownRenderer) render(source string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	out := r.policy.Sanitize(buf.String())
	if r.images {
		out = enhanceImages(out)
	}
	return template.HTML(out)
}

// RenderMarkdown converts a post body into sanitized HTML. Raw HTML in the
// source is stripped.
func RenderMarkdown(source string) template.HTML {
	return postRenderer.render(source)
}

// RenderComment renders a comment with the stricter comment policy.
func RenderComment(source string) template.HTML {
	return commentRenderer.render(source)
}
