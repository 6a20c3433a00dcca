package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/bandreports/bandreports/internal/errors"
	"github.com/bandreports/bandreports/internal/fetch"
	"github.com/bandreports/bandreports/internal/group"
	"github.com/bandreports/bandreports/internal/media/images"
	"github.com/bandreports/bandreports/internal/record"
)

// Image box on the first page: 6in x 4in.
const (
	imageWidth  = 6 * 72
	imageHeight = 4 * 72
)

// Compose lays out the report for g. The first page shows the task and either
// the image in blob or, when it is missing or unusable, the image description.
// Each record then gets its own page.
func (r *Renderer) Compose(g *group.Group, blob fetch.Result) Story {
	st := r.style
	var story Story

	story = append(story,
		paragraph(st.Title, Run{Text: "Task 1: " + oneLine(g.Topic())}),
		spacer(12),
		paragraph(st.Body, Run{Text: "Subject:", Bold: true}, Run{Text: " " + oneLine(g.Subject())}),
		spacer(st.SubjectGap),
	)

	fallback := r.describeImage(g)
	if img := r.loadImage(blob); img != nil {
		story = append(story, Block{
			Kind:     BlockImage,
			Image:    img,
			Width:    imageWidth,
			Height:   imageHeight,
			Fallback: fallback,
		})
	} else {
		story = append(story, fallback...)
	}

	story = append(story, Block{Kind: BlockPageBreak})

	for i, rec := range g.Records {
		story = append(story, r.answer(i+1, rec)...)
		if i < len(g.Records)-1 {
			story = append(story, Block{Kind: BlockPageBreak})
		}
	}

	return story
}

func (r *Renderer) describeImage(g *group.Group) []Block {
	desc := normalizeNewlines(g.ImageDescription())
	if !r.style.KeepDescriptionBreaks {
		desc = oneLine(desc)
	}
	return []Block{
		paragraph(r.style.Heading, Run{Text: "Image Description:", Bold: true}),
		paragraph(r.style.Body, Run{Text: desc}),
	}
}

func (r *Renderer) answer(n int, rec record.Record) []Block {
	st := r.style
	lines := strings.Split(normalizeNewlines(rec.Content()), "\n")

	blocks := []Block{paragraph(st.Heading, Run{Text: fmt.Sprintf(st.AnswerHeading, n)})}
	if st.AnswerGap > 0 {
		blocks = append(blocks, spacer(st.AnswerGap))
	}
	blocks = append(blocks,
		paragraph(st.Body, Run{Text: "Response:", Bold: true}),
		paragraph(st.Body, Run{Text: strings.Join(lines, st.ContentBreak)}),
		spacer(st.SectionGap),
		paragraph(st.Body, Run{Text: st.EvaluationLabel, Bold: true}),
	)
	if st.EvalGap > 0 {
		blocks = append(blocks, spacer(st.EvalGap))
	}

	overall := "Overall Band Score: " + rec.OverallScore()
	if st.LabelledCriteria {
		blocks = append(blocks, paragraph(st.Strong, Run{Text: overall, Bold: true}))
	} else {
		blocks = append(blocks, paragraph(st.Body, Run{Text: overall}))
	}

	for _, c := range rec.Criteria() {
		desc := oneLine(c.Description)
		if st.LabelledCriteria {
			blocks = append(blocks, paragraph(st.Body,
				Run{Text: fmt.Sprintf("%s (%s):", c.Name, c.Score), Bold: true},
				Run{Text: " " + desc},
			))
		} else {
			blocks = append(blocks, paragraph(st.Body,
				Run{Text: fmt.Sprintf("%s: %s - %s", c.Name, c.Score, desc)},
			))
		}
	}

	return append(blocks, spacer(st.ClosingGap))
}

// loadImage returns the blob ready for embedding, or nil when it is absent or
// cannot be decoded.
func (r *Renderer) loadImage(blob fetch.Result) *images.Embeddable {
	if !blob.Available() || blob.Path == "" {
		return nil
	}

	data, err := os.ReadFile(blob.Path)
	if err != nil {
		r.logger.Warn("image unreadable, using description",
			"path", blob.Path,
			"error", errors.Renderf("read image %s", blob.Path).WithCause(err),
		)
		return nil
	}

	img, err := images.ToEmbeddable(data)
	if err != nil {
		r.logger.Warn("image unusable, using description",
			"path", blob.Path,
			"error", errors.Renderf("prepare image %s", blob.Path).WithCause(err),
		)
		return nil
	}
	return img
}

func paragraph(style TextStyle, runs ...Run) Block {
	return Block{Kind: BlockParagraph, Style: style, Runs: runs}
}

func spacer(h float64) Block {
	return Block{Kind: BlockSpacer, Height: h}
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

// oneLine collapses all whitespace runs, newlines included, into single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
