// Package report renders daily readings into the HTML email body.
package report

import (
	"bytes"
	"fmt"
	"html/template"

	"waterreport/backend/services/report-worker/internal/failure"
	"waterreport/backend/services/report-worker/internal/models"
)

const bodyTemplate = `<html>
<body>
    <p>Dear Sir/Madam,</p>
    <p>Please find below the daily water consumption report:</p>
    <table border="1" cellpadding="5" cellspacing="0">
        <tr>
            <th>Site Name</th>
            <th>Meter Name</th>
            <th>Date</th>
            <th>Initial Flow (m³)</th>
            <th>Final Flow (m³)</th>
            <th>Daily Flow (m³)</th>
        </tr>
        {{- range .}}
        <tr>
            <td>{{.SiteName}}</td>
            <td>{{.MeterName}}</td>
            <td>{{.Date}}</td>
            <td>{{.InitialFlow}}</td>
            <td>{{.FinalFlow}}</td>
            <td>{{.TotalConsumption}}</td>
        </tr>
        {{- end}}
    </table>
    <p><em>This is a system-generated email. Please do not reply.</em></p>
    <p>Thanks and Regards,</p>
    <p><strong>Support Team</strong></p>
</body>
</html>
`

var body = template.Must(template.New("daily_report").Parse(bodyTemplate))

type row struct {
	SiteName         string
	MeterName        string
	Date             string
	InitialFlow      string
	FinalFlow        string
	TotalConsumption string
}

// Render builds the report document, one table row per reading in input order.
// If any reading is missing a field it returns "" and a failure.KindFormat error.
func Render(readings []models.Reading) (string, error) {
	rows := make([]row, 0, len(readings))
	for i, r := range readings {
		if err := r.Validate(); err != nil {
			return "", failure.New(failure.KindFormat, "render report", fmt.Errorf("reading %d: %w", i, err))
		}
		rows = append(rows, row{
			SiteName:         r.SiteName.String(),
			MeterName:        r.DeviceFriendlyName.String(),
			Date:             r.Date(),
			InitialFlow:      r.InitialFlow.String(),
			FinalFlow:        r.FinalFlow.String(),
			TotalConsumption: r.TotalConsumption.String(),
		})
	}

	var buf bytes.Buffer
	if err := body.Execute(&buf, rows); err != nil {
		return "", failure.New(failure.KindFormat, "render report", err)
	}
	return buf.String(), nil
}
