// Package render turns a group of records into a PDF report.
package render

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-pdf/fpdf"

	"github.com/bandreports/bandreports/internal/errors"
	"github.com/bandreports/bandreports/internal/fetch"
	"github.com/bandreports/bandreports/internal/group"
	"github.com/bandreports/bandreports/internal/util"
)

const (
	coreFamily = "Helvetica"
	ttfFamily  = "Body"
)

// Options configures a Renderer.
type Options struct {
	Style string
	// FontPath is an optional UTF-8 TrueType font. Without it text is set in
	// Helvetica and limited to the Windows-1252 repertoire.
	FontPath string
	// FontBoldPath is the bold variant of FontPath; FontPath is reused when empty.
	FontBoldPath string
}

// Output describes a written report.
type Output struct {
	Path  string
	Pages int
	// ImageEmbedded is false when the description replaced the image.
	ImageEmbedded bool
}

// Renderer writes A4 PDF reports.
type Renderer struct {
	style        Style
	fontPath     string
	fontBoldPath string
	logger       *slog.Logger
}

// New creates a renderer. Unknown styles and unreadable fonts are rejected.
func New(opts Options, logger *slog.Logger) (*Renderer, error) {
	style, err := LookupStyle(opts.Style)
	if err != nil {
		return nil, errors.Validation(err.Error())
	}

	r := &Renderer{style: style, logger: logger}
	if opts.FontPath != "" {
		r.fontPath = opts.FontPath
		r.fontBoldPath = opts.FontBoldPath
		if r.fontBoldPath == "" {
			r.fontBoldPath = r.fontPath
		}
		for _, p := range []string{r.fontPath, r.fontBoldPath} {
			if _, err := os.Stat(p); err != nil {
				return nil, errors.Validationf("font %s: %v", p, err)
			}
		}
	} else if opts.FontBoldPath != "" {
		return nil, errors.Validation("bold font given without a regular font")
	}
	return r, nil
}

// Style returns the active layout.
func (r *Renderer) Style() Style { return r.style }

// Render composes the report for g and writes it to outPath atomically.
// Any failure to produce or write the PDF is returned; image problems are not
// failures and fall back to the description.
func (r *Renderer) Render(g *group.Group, blob fetch.Result, outPath string) (*Output, error) {
	story := r.Compose(g, blob)

	var buf bytes.Buffer
	pages, embedded, err := r.write(&buf, story, "Task 1: "+oneLine(g.Topic()))
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "build %s", outPath)
	}

	if err := util.WriteAtomic(outPath, 0o644, func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	}); err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "write %s", outPath)
	}

	return &Output{Path: outPath, Pages: pages, ImageEmbedded: embedded}, nil
}

// write typesets story into w and returns the page count.
func (r *Renderer) write(w io.Writer, story Story, title string) (pages int, embedded bool, err error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	m := r.style.Margin
	pdf.SetMargins(m, m, m)
	pdf.SetAutoPageBreak(true, m)
	pdf.SetCreator("bandreports", true)

	family := coreFamily
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if r.fontPath != "" {
		family = ttfFamily
		pdf.AddUTF8Font(ttfFamily, "", r.fontPath)
		pdf.AddUTF8Font(ttfFamily, "B", r.fontBoldPath)
		tr = func(s string) string { return s }
	}
	if pdf.Err() {
		return 0, false, fmt.Errorf("load font: %w", pdf.Error())
	}

	pdf.SetTitle(title, true)
	pdf.AddPage()

	tw := &typesetter{pdf: pdf, family: family, tr: tr, logger: r.logger}
	for i, b := range story {
		if b.Kind == BlockImage && tw.image(i, b) {
			embedded = true
			continue
		}
		tw.block(b)
		if pdf.Err() {
			return 0, false, pdf.Error()
		}
	}

	pages = pdf.PageNo()
	if err := pdf.Output(w); err != nil {
		return 0, false, err
	}
	return pages, embedded, nil
}

type typesetter struct {
	pdf    *fpdf.Fpdf
	family string
	tr     func(string) string
	logger *slog.Logger
}

func (t *typesetter) block(b Block) {
	switch b.Kind {
	case BlockParagraph:
		t.paragraph(b)
	case BlockSpacer:
		t.pdf.Ln(b.Height)
	case BlockPageBreak:
		t.pdf.AddPage()
	case BlockImage:
		for _, fb := range b.Fallback {
			t.block(fb)
		}
	}
}

func (t *typesetter) paragraph(b Block) {
	st := b.Style
	if st.Align == "C" {
		style := ""
		if st.Bold {
			style = "B"
		}
		t.pdf.SetFont(t.family, style, st.Size)
		t.pdf.MultiCell(0, st.Leading, t.tr(b.Text()), "", "C", false)
	} else {
		for _, run := range b.Runs {
			style := ""
			if st.Bold || run.Bold {
				style = "B"
			}
			t.pdf.SetFont(t.family, style, st.Size)
			t.pdf.Write(st.Leading, t.tr(run.Text))
		}
		t.pdf.Ln(st.Leading)
	}
	t.pdf.Ln(st.SpaceAfter)
}

// image draws b centered on the page and reports whether it succeeded.
// On failure the PDF error is cleared so the fallback can be drawn.
func (t *typesetter) image(i int, b Block) bool {
	name := fmt.Sprintf("image-%d", i)
	opts := fpdf.ImageOptions{ImageType: b.Image.Type}

	t.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(b.Image.Data))
	if t.pdf.Err() {
		t.logger.Warn("image rejected by PDF writer, using description", "error", t.pdf.Error())
		t.pdf.ClearError()
		return false
	}

	pageW, pageH := t.pdf.GetPageSize()
	_, _, _, bottom := t.pdf.GetMargins()
	y := t.pdf.GetY()
	if y+b.Height > pageH-bottom {
		t.pdf.AddPage()
		y = t.pdf.GetY()
	}

	x := (pageW - b.Width) / 2
	t.pdf.ImageOptions(name, x, y, b.Width, b.Height, false, opts, 0, "")
	t.pdf.SetY(y + b.Height)
	return true
}
