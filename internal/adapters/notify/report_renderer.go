// Package notify renders the weekly digest and delivers it by e-mail.
package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

const textReport = `OLX Monitor - raport tygodniowy {{.GeneratedAt.Format "2006-01-02"}}

PODSUMOWANIE TYGODNIA
{{range .Summaries}}- {{.Profile}}: stan {{num .LastTotal}} (tydzien temu {{num .FirstTotal}}), nowe {{num .TotalNew}}, usuniete {{num .TotalGone}}, netto {{signed .NetChange}}, dni z danymi: {{.DaysTracked}}
{{end}}
RYNEK
- ogloszen lacznie: {{num .Market.ListingCount}} (z cena: {{num .Market.PricedCount}})
- srednia cena: {{pln .Market.AveragePrice}}
{{- if gt .Market.DeclaredTotal 0}}
- licznik serwisu: {{num .Market.DeclaredTotal}}
{{- end}}
{{if .Commentary}}
ANALIZA
{{range .Commentary.Summary}}- {{.}}
{{end}}{{range .Commentary.Observations}}- [{{.Category}}] {{.Details}}
{{end}}{{end}}
{{- if .Changes}}
ZMIANY CEN
{{range .Changes}}- {{.ListingID}}: {{num .PreviousPrice}} zl -> {{num .NewPrice}} zl ({{percent .ChangeRatio}})
{{end}}{{end}}`

const htmlReport = `<!DOCTYPE html>
<html lang="pl">
<head><meta charset="UTF-8"><meta name="viewport" content="width=device-width,initial-scale=1"></head>
<body style="margin:0;padding:0;background:#f0f4f8;font-family:Arial,sans-serif;">
<div style="max-width:680px;margin:32px auto;background:#fff;border-radius:10px;overflow:hidden;">

  <div style="background:#2c5f8a;padding:24px 32px;">
    <h1 style="margin:0;color:#fff;font-size:20px;">OLX Monitor</h1>
    <p style="margin:6px 0 0;color:#a8c8e8;font-size:13px;">Raport tygodniowy &middot; {{.GeneratedAt.Format "2006-01-02"}}</p>
  </div>

  <div style="padding:24px 32px;">

    <h2 style="font-size:15px;color:#2c5f8a;border-bottom:2px solid #2c5f8a;padding-bottom:8px;">Podsumowanie tygodnia</h2>
    <table width="100%" cellpadding="0" cellspacing="0" style="border-collapse:collapse;font-size:13px;">
      <thead>
        <tr style="background:#2c5f8a;color:#fff;">
          <th style="padding:8px 12px;text-align:left;">Profil</th>
          <th style="padding:8px 12px;text-align:center;">Dni</th>
          <th style="padding:8px 12px;text-align:center;">Stan</th>
          <th style="padding:8px 12px;text-align:center;">Nowe</th>
          <th style="padding:8px 12px;text-align:center;">Usuni&#281;te</th>
          <th style="padding:8px 12px;text-align:center;">Netto</th>
        </tr>
      </thead>
      <tbody>
        {{range .Summaries}}
        <tr>
          <td style="padding:8px 12px;border-bottom:1px solid #eee;">{{.Profile}}</td>
          <td style="padding:8px 12px;border-bottom:1px solid #eee;text-align:center;">{{.DaysTracked}}</td>
          <td style="padding:8px 12px;border-bottom:1px solid #eee;text-align:center;font-weight:600;">{{num .LastTotal}}</td>
          <td style="padding:8px 12px;border-bottom:1px solid #eee;text-align:center;color:#1a7a3c;">{{signed .TotalNew}}</td>
          <td style="padding:8px 12px;border-bottom:1px solid #eee;text-align:center;color:#c0392b;">{{num .TotalGone}}</td>
          <td style="padding:8px 12px;border-bottom:1px solid #eee;text-align:center;font-weight:bold;">{{signed .NetChange}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <h2 style="font-size:15px;color:#2c5f8a;border-bottom:2px solid #2c5f8a;padding-bottom:8px;margin-top:28px;">Rynek</h2>
    <p style="font-size:13px;color:#333;line-height:1.7;">
      Og&#322;osze&#324; &#322;&#261;cznie: <strong>{{num .Market.ListingCount}}</strong> (z cen&#261;: {{num .Market.PricedCount}})<br>
      &#346;rednia cena: <strong>{{pln .Market.AveragePrice}}</strong>
      {{- if gt .Market.DeclaredTotal 0}}<br>Licznik serwisu: {{num .Market.DeclaredTotal}}{{end}}
    </p>

    {{if .Commentary}}
    <h2 style="font-size:15px;color:#2c5f8a;border-bottom:2px solid #2c5f8a;padding-bottom:8px;margin-top:28px;">Analiza</h2>
    <div style="background:#f0f4f8;border-left:4px solid #2c5f8a;padding:14px 20px;font-size:13px;line-height:1.7;color:#333;">
      <ul style="margin:0;padding-left:18px;">
        {{range .Commentary.Summary}}<li>{{.}}</li>{{end}}
      </ul>
      {{if .Commentary.Observations}}
      <ul style="margin:10px 0 0;padding-left:18px;">
        {{range .Commentary.Observations}}<li><strong>{{.Category}}:</strong> {{.Details}}</li>{{end}}
      </ul>
      {{end}}
    </div>
    {{end}}

    {{if .Changes}}
    <h2 style="font-size:15px;color:#2c5f8a;border-bottom:2px solid #2c5f8a;padding-bottom:8px;margin-top:28px;">Zmiany cen</h2>
    <table width="100%" cellpadding="0" cellspacing="0" style="border-collapse:collapse;font-size:13px;">
      <thead>
        <tr style="background:#2c5f8a;color:#fff;">
          <th style="padding:8px 12px;text-align:left;">Og&#322;oszenie</th>
          <th style="padding:8px 12px;text-align:center;">Poprzednia</th>
          <th style="padding:8px 12px;text-align:center;">Nowa</th>
          <th style="padding:8px 12px;text-align:center;">Zmiana</th>
        </tr>
      </thead>
      <tbody>
        {{range .Changes}}
        <tr>
          <td style="padding:8px 12px;border-bottom:1px solid #eee;">{{.ListingID}}</td>
          <td style="padding:8px 12px;border-bottom:1px solid #eee;text-align:center;">{{num .PreviousPrice}} z&#322;</td>
          <td style="padding:8px 12px;border-bottom:1px solid #eee;text-align:center;">{{num .NewPrice}} z&#322;</td>
          <td style="padding:8px 12px;border-bottom:1px solid #eee;text-align:center;font-weight:bold;">{{percent .ChangeRatio}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}

  </div>

  <div style="background:#f0f4f8;padding:14px 32px;text-align:center;font-size:11px;color:#888;">
    Raport wygenerowany automatycznie przez OLX Monitor &middot; {{.GeneratedAt.Format "2006-01-02 15:04"}}
  </div>

</div>
</body>
</html>`

// ReportRenderer turns the weekly digest into a Polish e-mail with an HTML
// body and a plain-text alternative. Numbers are formatted with Polish
// grouping (1 234, not 1,234).
type ReportRenderer struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

func NewReportRenderer() (*ReportRenderer, error) {
	printer := message.NewPrinter(language.Polish)
	funcs := map[string]any{
		"num": func(n int) string {
			return printer.Sprintf("%d", n)
		},
		"signed": func(n int) string {
			return printer.Sprintf("%+d", n)
		},
		"pln": func(v float64) string {
			return printer.Sprintf("%.0f zł", v)
		},
		"percent": func(ratio float64) string {
			return fmt.Sprintf("%.0f%%", ratio*100)
		},
	}

	text, err := texttemplate.New("report").Funcs(funcs).Parse(textReport)
	if err != nil {
		return nil, fmt.Errorf("report renderer: parse text template: %w", err)
	}
	html, err := htmltemplate.New("report").Funcs(funcs).Parse(htmlReport)
	if err != nil {
		return nil, fmt.Errorf("report renderer: parse html template: %w", err)
	}
	return &ReportRenderer{text: text, html: html}, nil
}

func (r *ReportRenderer) Render(report domain.WeeklyReport) (*port.RenderedReport, error) {
	var textBuf bytes.Buffer
	if err := r.text.Execute(&textBuf, report); err != nil {
		return nil, fmt.Errorf("report renderer: render text body: %w", err)
	}
	var htmlBuf bytes.Buffer
	if err := r.html.Execute(&htmlBuf, report); err != nil {
		return nil, fmt.Errorf("report renderer: render html body: %w", err)
	}
	return &port.RenderedReport{
		Subject: fmt.Sprintf("OLX Monitor - raport tygodniowy %s", report.GeneratedAt.Format("2006-01-02")),
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}
