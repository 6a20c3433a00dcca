package render

import (
	"fmt"
	"slices"
)

// Style names.
const (
	StyleImproved = "improved"
	StyleCompact  = "compact"
)

// TextStyle sets how a paragraph is typeset. Sizes are in points.
type TextStyle struct {
	Size       float64
	Leading    float64
	SpaceAfter float64
	Bold       bool
	// Align is "L" or "C".
	Align string
}

// Style is a complete report layout.
type Style struct {
	Name string

	Margin  float64
	Title   TextStyle
	Heading TextStyle
	Body    TextStyle
	Strong  TextStyle

	// AnswerHeading is a format string taking the 1-based answer number.
	AnswerHeading   string
	EvaluationLabel string
	// ContentBreak separates the lines of an essay.
	ContentBreak string
	// KeepDescriptionBreaks preserves newlines in the image description.
	KeepDescriptionBreaks bool
	// LabelledCriteria renders "<b>Name (score):</b> text" instead of "Name: score - text".
	LabelledCriteria bool

	// Vertical gaps, in points.
	SubjectGap float64
	AnswerGap  float64
	EvalGap    float64
	SectionGap float64
	ClosingGap float64
}

// Styles returns the known style names.
func Styles() []string {
	return []string{StyleImproved, StyleCompact}
}

// LookupStyle returns the layout registered under name.
func LookupStyle(name string) (Style, error) {
	switch name {
	case StyleImproved, "":
		return improvedStyle(), nil
	case StyleCompact:
		return compactStyle(), nil
	default:
		return Style{}, fmt.Errorf("unknown style %q (want one of %v)", name, Styles())
	}
}

// IsStyle reports whether name is a known style.
func IsStyle(name string) bool {
	return slices.Contains(Styles(), name)
}

func improvedStyle() Style {
	return Style{
		Name:    StyleImproved,
		Margin:  50,
		Title:   TextStyle{Size: 18, Leading: 22, SpaceAfter: 20, Bold: true, Align: "C"},
		Heading: TextStyle{Size: 14, Leading: 17, SpaceAfter: 12, Bold: true, Align: "L"},
		Body:    TextStyle{Size: 11, Leading: 16, SpaceAfter: 12, Align: "L"},
		Strong:  TextStyle{Size: 11, Leading: 14, SpaceAfter: 8, Bold: true, Align: "L"},

		AnswerHeading:         "Model Answer #%d",
		EvaluationLabel:       "Evaluation:",
		ContentBreak:          "\n\n",
		KeepDescriptionBreaks: true,
		LabelledCriteria:      true,

		SubjectGap: 20,
		AnswerGap:  12,
		EvalGap:    6,
		SectionGap: 12,
		ClosingGap: 24,
	}
}

func compactStyle() Style {
	return Style{
		Name:    StyleCompact,
		Margin:  72,
		Title:   TextStyle{Size: 16, Leading: 20, SpaceAfter: 30, Bold: true, Align: "C"},
		Heading: TextStyle{Size: 14, Leading: 17, SpaceAfter: 12, Bold: true, Align: "L"},
		Body:    TextStyle{Size: 10, Leading: 12, SpaceAfter: 6, Align: "L"},
		Strong:  TextStyle{Size: 10, Leading: 12, SpaceAfter: 6, Bold: true, Align: "L"},

		AnswerHeading:   "Answer #%d",
		EvaluationLabel: "Scores:",
		ContentBreak:    "\n",

		SubjectGap: 12,
		SectionGap: 12,
		ClosingGap: 20,
	}
}
