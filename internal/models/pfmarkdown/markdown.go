package pfmarkdown

import (
	"bytes"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	stripmd "github.com/writeas/go-strip-markdown"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Les messages viennent de visiteurs anonymes: le HTML brut n'est jamais rendu
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.Linkify,
		extension.Strikethrough,
		emoji.Emoji,
	),
	goldmark.WithParserOptions(
		parser.WithASTTransformers(
			util.Prioritized(&externalLinkTransformer{}, 100),
		),
	),
	goldmark.WithRendererOptions(
		gmhtml.WithHardWraps(),
		gmhtml.WithXHTML(),
	),
)

type externalLinkTransformer struct{}

func (t *externalLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch link := n.(type) {
		case *ast.Link:
			link.SetAttributeString("target", []byte("_blank"))
			link.SetAttributeString("rel", []byte("nofollow noopener noreferrer"))
		case *ast.AutoLink:
			link.SetAttributeString("target", []byte("_blank"))
			link.SetAttributeString("rel", []byte("nofollow noopener noreferrer"))
		}
		return ast.WalkContinue, nil
	})
}

// ToHTML rend le markdown d'un message
func ToHTML(markdown string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		log.Error().Err(err).Msg("Erreur conversion Markdown")
		return "<pre>" + html.EscapeString(markdown) + "</pre>"
	}
	return buf.String()
}

// Excerpt retourne le texte sans markdown, tronqué à max caractères
func Excerpt(markdown string, max int) string {
	plain := strings.Join(strings.Fields(stripmd.Strip(markdown)), " ")
	if utf8.RuneCountInString(plain) <= max {
		return plain
	}
	runes := []rune(plain)
	return strings.TrimSpace(string(runes[:max])) + "…"
}
