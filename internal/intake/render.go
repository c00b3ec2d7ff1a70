package intake

import (
	"context"
	_ "embed"
	"html/template"
	"io"

	"github.com/vetcare/intake/pkg/core"
	"github.com/vetcare/intake/pkg/forms"
)

//go:embed intake.html
var intakeHTML string

var intakeTemplate = template.Must(template.New("intake").Parse(intakeHTML))

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type fieldView struct {
	ID          string
	Kind        string
	Label       string
	Placeholder string
	Required    bool
	Value       string
	Options     []optionView
	Error       string
}

type reviewItem struct {
	ID    string
	Label string
	Text  string
}

type reviewGroup struct {
	Title string
	Items []reviewItem
}

type stepView struct {
	Index     int
	Title     string
	Active    bool
	First     bool
	Review    bool
	Progress  string
	Clickable bool
	Fields    []fieldView
}

type pageView struct {
	CSRFToken      string
	Alert          string
	Steps          []stepView
	Review         []reviewGroup
	ShowReview     bool
	ShowSuccess    bool
	SuccessMessage string
	SubmitLabel    string
	SubmitDisabled bool
	Busy           bool
}

func (c *Component) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		return intakeTemplate.Execute(w, c.view())
	})
}

func (c *Component) view() pageView {
	wz := c.wizard
	locked := wz.Status() == StatusSubmitting || wz.Status() == StatusSubmitted

	v := pageView{
		CSRFToken:      c.creds.CSRFToken,
		Alert:          wz.Alert(),
		ShowReview:     wz.ReviewVisible(),
		ShowSuccess:    wz.SuccessVisible(),
		SuccessMessage: wz.SuccessMessage(),
		SubmitLabel:    wz.SubmitLabel(),
		SubmitDisabled: wz.SubmitDisabled(),
		Busy:           wz.Status() == StatusSubmitting,
	}

	for _, step := range wz.steps {
		sv := stepView{
			Index:     step.Index,
			Title:     step.Title,
			Active:    wz.ActivePanel() == step.Index,
			First:     step.Index == 0,
			Review:    step.Index == ReviewStep,
			Progress:  wz.Progress(step.Index).Class(),
			Clickable: !locked && step.Index < wz.CurrentStep(),
		}
		group := reviewGroup{Title: step.Title}

		for _, id := range step.Fields {
			field, ok := wz.form.Field(id)
			if !ok {
				continue
			}
			sv.Fields = append(sv.Fields, c.fieldView(field))
			group.Items = append(group.Items, reviewItem{
				ID:    field.ID,
				Label: field.Label,
				Text:  wz.ReviewText(field.ID),
			})
		}

		v.Steps = append(v.Steps, sv)
		if len(group.Items) > 0 {
			v.Review = append(v.Review, group)
		}
	}
	return v
}

func (c *Component) fieldView(field forms.Field) fieldView {
	value := c.wizard.Value(field.ID)
	fv := fieldView{
		ID:          field.ID,
		Kind:        string(field.Type),
		Label:       field.Label,
		Placeholder: field.Placeholder,
		Required:    field.Required,
		Value:       value,
		Error:       c.wizard.FieldError(field.ID),
	}
	for _, o := range field.Options {
		fv.Options = append(fv.Options, optionView{
			Value:    o.Value,
			Label:    o.Label,
			Selected: o.Value == value,
		})
	}
	return fv
}
