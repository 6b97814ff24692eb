package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type reviewEmailData struct {
	baseEmailData
	JobID          string
	JobTitle       string
	JobAddress     string
	LeadTechID     string
	ExceptionCount int
	Threshold      int
	Stages         []string
}

func newReviewEmailData(n ReviewNotification) reviewEmailData {
	return reviewEmailData{
		baseEmailData: baseEmailData{
			Title:      "Job needs review",
			Heading:    "Job needs review",
			Subheading: fmt.Sprintf("%d of 7 gates were skipped by exception", n.ExceptionCount),
		},
		JobID:          n.JobID,
		JobTitle:       n.JobTitle,
		JobAddress:     n.JobAddress,
		LeadTechID:     n.LeadTechID,
		ExceptionCount: n.ExceptionCount,
		Threshold:      n.Threshold,
		Stages:         n.Stages,
	}
}

func renderEmailTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
