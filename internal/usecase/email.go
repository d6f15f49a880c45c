package usecase

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"time"
)

type Email struct {
	To          []string
	From        string
	CC          []string
	BCC         []string
	Subject     string
	Body        string
	Attachments []EmailAttachment
}

type EmailAttachment struct {
	Name        string
	ContentType string
	Content     []byte
}

//go:embed templates/*
var templates embed.FS

var reportTemplate = template.Must(template.ParseFS(
	templates,
	"templates/base.html",
	"templates/sweep_report.html",
))

type SweepReportData struct {
	Title       string
	CurrentYear string

	JobID      string
	Status     string
	Error      string
	StartedAt  string
	FinishedAt string
	Result     SweepResult
}

// sendSweepReport mails the outcome of a sweep job to the configured
// recipients, with the raw result attached. It is a no-op without a mailer
// or recipients.
func (u Usecase) sendSweepReport(ctx context.Context, job Job, res SweepResult) error {
	if u.mailer == nil || len(u.cfg.SweepReportTo) == 0 {
		return nil
	}

	data := SweepReportData{
		Title:       "Asset sweep report",
		CurrentYear: time.Now().Format("2006"),
		JobID:       job.ID.String(),
		Status:      job.Status,
		Error:       job.Error,
		Result:      res,
	}
	if job.StartedAt != nil {
		data.StartedAt = job.StartedAt.Format(time.RFC3339)
	}
	if job.FinishedAt != nil {
		data.FinishedAt = job.FinishedAt.Format(time.RFC3339)
	}

	var buf bytes.Buffer
	if err := reportTemplate.ExecuteTemplate(&buf, "base.html", data); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}

	return u.mailer.SendEmail(ctx, Email{
		To:      u.cfg.SweepReportTo,
		From:    u.cfg.MailFrom,
		Subject: "Asset sweep " + job.Status,
		Body:    buf.String(),
		Attachments: []EmailAttachment{{
			Name:        "sweep-" + job.ID.String() + ".json",
			ContentType: "application/json",
			Content:     raw,
		}},
	})
}
