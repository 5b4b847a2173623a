package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PrintRequest is the body of POST /print.
type PrintRequest struct {
	LabelText  string  `json:"label_text"`
	Subtitle   *string `json:"subtitle,omitempty"`
	SmallTitle *bool   `json:"small_title,omitempty"`
}

// UnmarshalJSON accepts "grocery" as an alias for "label_text". When both
// keys are present label_text wins.
func (r *PrintRequest) UnmarshalJSON(b []byte) error {
	var raw struct {
		LabelText  *string `json:"label_text"`
		Grocery    *string `json:"grocery"`
		Subtitle   *string `json:"subtitle"`
		SmallTitle *bool   `json:"small_title"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*r = PrintRequest{Subtitle: raw.Subtitle, SmallTitle: raw.SmallTitle}
	switch {
	case raw.LabelText != nil:
		r.LabelText = *raw.LabelText
	case raw.Grocery != nil:
		r.LabelText = *raw.Grocery
	}
	return nil
}

// RenderData is written to the data file read by the label template. The
// keys are part of the template contract and must not change.
type RenderData struct {
	Grocery    string  `yaml:"grocery"`
	Subtitle   *string `yaml:"subtitle"`
	SmallTitle bool    `yaml:"small-title"`
}

// Normalize validates r and derives the render data. Blank subtitles become
// absent and a missing small_title means true. Blank label text is rejected
// unless allowBlank is set.
func Normalize(r PrintRequest, allowBlank bool) (RenderData, error) {
	if !allowBlank && strings.TrimSpace(r.LabelText) == "" {
		return RenderData{}, fmt.Errorf("%w: label_text is required", ErrInvalidRequest)
	}

	data := RenderData{
		Grocery:    r.LabelText,
		SmallTitle: true,
	}
	if r.Subtitle != nil && strings.TrimSpace(*r.Subtitle) != "" {
		s := *r.Subtitle
		data.Subtitle = &s
	}
	if r.SmallTitle != nil {
		data.SmallTitle = *r.SmallTitle
	}
	return data, nil
}

// RenderJob locates the files of one render. WorkDir contains Template and
// Data; the template finds Data by name relative to WorkDir.
type RenderJob struct {
	WorkDir  string
	Template string
	Data     string
	Output   string
}
