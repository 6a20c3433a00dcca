package render

import (
	"strings"

	"github.com/bandreports/bandreports/internal/media/images"
)

// BlockKind identifies a story element.
type BlockKind int

// Block kinds.
const (
	BlockParagraph BlockKind = iota
	BlockSpacer
	BlockImage
	BlockPageBreak
)

// Run is a span of text with one weight.
type Run struct {
	Text string
	Bold bool
}

// Block is one element of a report, laid out top to bottom.
type Block struct {
	Kind BlockKind

	// Paragraph.
	Style TextStyle
	Runs  []Run

	// Spacer.
	Height float64

	// Image, drawn into a Width x Height box. Fallback replaces the image when
	// the PDF writer rejects it.
	Image    *images.Embeddable
	Width    float64
	Fallback []Block
}

// Text returns the paragraph text without markup.
func (b Block) Text() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Story is the ordered content of one report.
type Story []Block

// Pages returns the number of pages the story asks for explicitly.
// Long paragraphs may still overflow onto more pages.
func (s Story) Pages() int {
	n := 1
	for _, b := range s {
		if b.Kind == BlockPageBreak {
			n++
		}
	}
	return n
}

// Paragraphs returns the text of every paragraph, in order.
func (s Story) Paragraphs() []string {
	var out []string
	for _, b := range s {
		if b.Kind == BlockParagraph {
			out = append(out, b.Text())
		}
	}
	return out
}

// HasImage reports whether the story embeds an image.
func (s Story) HasImage() bool {
	for _, b := range s {
		if b.Kind == BlockImage {
			return true
		}
	}
	return false
}
