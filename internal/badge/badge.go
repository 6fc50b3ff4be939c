// File: internal/badge/badge.go
package badge

import (
	"bytes"
	"html/template"
	"strconv"
	"strings"
	"unicode/utf8"

	"launchpad_backend/internal/common"
)

// Kind selects the badge artwork.
type Kind string

const (
	KindLaunched Kind = "launched"
	KindFeatured Kind = "featured"
	KindUpvote   Kind = "upvote"
)

const (
	defaultName   = "Launchpad"
	maxNameLength = 40
	charWidth     = 7
	padding       = 12
)

var palette = map[Kind]struct {
	label string
	color string
}{
	KindLaunched: {label: "LAUNCHED ON", color: "#4f46e5"},
	KindFeatured: {label: "FEATURED ON", color: "#d97706"},
	KindUpvote:   {label: "UPVOTES", color: "#059669"},
}

var badgeTemplate = template.Must(template.New("badge").Parse(
	`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="28" role="img" aria-label="{{.Label}} {{.Value}}">` +
		`<title>{{.Label}} {{.Value}}</title>` +
		`<rect width="{{.LabelWidth}}" height="28" rx="4" fill="#1f2937"/>` +
		`<rect x="{{.LabelWidth}}" width="{{.ValueWidth}}" height="28" rx="4" fill="{{.Color}}"/>` +
		`<g fill="#fff" font-family="Verdana,Geneva,sans-serif" font-size="11" text-anchor="middle">` +
		`<text x="{{.LabelCenter}}" y="18">{{.Label}}</text>` +
		`<text x="{{.ValueCenter}}" y="18" font-weight="bold">{{.Value}}</text>` +
		`</g></svg>`))

// Params are the badge query parameters.
type Params struct {
	Type  string `form:"type"`
	Name  string `form:"name"`
	Count string `form:"count"`
}

type view struct {
	Label       string
	Value       string
	Color       string
	Width       int
	LabelWidth  int
	ValueWidth  int
	LabelCenter int
	ValueCenter int
}

// Render validates params and returns the SVG document.
func Render(p Params) ([]byte, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(p.Type)))
	style, ok := palette[kind]
	if !ok {
		return nil, common.ErrBadRequest.WithDetails("type must be one of launched, featured or upvote.")
	}

	value := strings.TrimSpace(p.Name)
	if value == "" {
		value = defaultName
	}
	if utf8.RuneCountInString(value) > maxNameLength {
		return nil, common.NewValidationAPIError(map[string]string{
			"Name": "The name may not be greater than " + strconv.Itoa(maxNameLength) + " characters.",
		})
	}

	if kind == KindUpvote {
		count, err := parseCount(p.Count)
		if err != nil {
			return nil, err
		}
		value = "▲ " + strconv.Itoa(count)
	}

	v := view{
		Label:      style.label,
		Value:      value,
		Color:      style.color,
		LabelWidth: textWidth(style.label),
		ValueWidth: textWidth(value),
	}
	v.Width = v.LabelWidth + v.ValueWidth
	v.LabelCenter = v.LabelWidth / 2
	v.ValueCenter = v.LabelWidth + v.ValueWidth/2

	var buf bytes.Buffer
	if err := badgeTemplate.Execute(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parseCount(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 0 {
		return 0, common.ErrBadRequest.WithDetails("count must be a non-negative integer.")
	}
	return count, nil
}

func textWidth(s string) int {
	return utf8.RuneCountInString(s)*charWidth + 2*padding
}
