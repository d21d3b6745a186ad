package alerting

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/kneutral-org/compliance-alerting/internal/device"
)

var endOfSupportTemplate = template.Must(template.New("eos").Parse(`<html>
<body style="font-family: Segoe UI, Arial, sans-serif;">
<h2>Device End of Support Alert</h2>
<p>The following device {{.Urgency}}:</p>
<table style="border-collapse: collapse; width: 100%; max-width: 600px;">
<tr><td style="padding: 8px; border: 1px solid #ddd; font-weight: bold;">Device Name</td><td style="padding: 8px; border: 1px solid #ddd;">{{.DeviceName}}</td></tr>
<tr><td style="padding: 8px; border: 1px solid #ddd; font-weight: bold;">Assigned User</td><td style="padding: 8px; border: 1px solid #ddd;">{{.UserName}}</td></tr>
<tr><td style="padding: 8px; border: 1px solid #ddd; font-weight: bold;">Operating System</td><td style="padding: 8px; border: 1px solid #ddd;">{{.OperatingSystem}}</td></tr>
<tr><td style="padding: 8px; border: 1px solid #ddd; font-weight: bold;">End of Support Date</td><td style="padding: 8px; border: 1px solid #ddd;">{{.EndOfSupportDate}}</td></tr>
<tr><td style="padding: 8px; border: 1px solid #ddd; font-weight: bold;">Days Remaining</td><td style="padding: 8px; border: 1px solid #ddd; color: {{.DaysColor}};">{{.DaysLabel}}</td></tr>
</table>
<p style="margin-top: 20px;">Please take action to update or replace this device to maintain Cyber Essentials compliance.</p>
<p style="color: #666; font-size: 12px;">This is an automated message from the device compliance portal.</p>
</body>
</html>`))

var complianceTemplate = template.Must(template.New("compliance").Parse(`<html>
<body style="font-family: Segoe UI, Arial, sans-serif;">
<h2>Device Compliance Alert</h2>
<p>The following device has critical compliance issues:</p>
<table style="border-collapse: collapse; width: 100%; max-width: 600px;">
<tr><td style="padding: 8px; border: 1px solid #ddd; font-weight: bold;">Device Name</td><td style="padding: 8px; border: 1px solid #ddd;">{{.DeviceName}}</td></tr>
<tr><td style="padding: 8px; border: 1px solid #ddd; font-weight: bold;">Assigned User</td><td style="padding: 8px; border: 1px solid #ddd;">{{.UserName}}</td></tr>
</table>
<h3>Compliance Issues</h3>
<table style="border-collapse: collapse; width: 100%; max-width: 600px;">
<tr style="background-color: #f2f2f2;"><th style="padding: 8px; border: 1px solid #ddd; text-align: left;">Issue</th><th style="padding: 8px; border: 1px solid #ddd; text-align: left;">Description</th></tr>
{{range .Issues}}<tr><td style="padding: 8px; border: 1px solid #ddd;">{{.RuleName}}</td><td style="padding: 8px; border: 1px solid #ddd;">{{.Description}}</td></tr>
{{end}}</table>
<p style="margin-top: 20px;">Please take action to resolve these issues to maintain Cyber Essentials compliance.</p>
<p style="color: #666; font-size: 12px;">This is an automated message from the device compliance portal.</p>
</body>
</html>`))

type endOfSupportBody struct {
	DeviceName       string
	UserName         string
	OperatingSystem  string
	EndOfSupportDate string
	Urgency          string
	DaysColor        template.CSS
	DaysLabel        string
}

type complianceBody struct {
	DeviceName string
	UserName   string
	Issues     []issueRow
}

type issueRow struct {
	RuleName    string
	Description string
}

// RenderEndOfSupportBody renders the email body for an end-of-support
// countdown alert.
func RenderEndOfSupportBody(d *device.Device, endOfSupportAt time.Time, daysRemaining int) (string, error) {
	urgency := "is approaching"
	switch {
	case daysRemaining <= 0:
		urgency = "has expired"
	case daysRemaining <= 30:
		urgency = "is critical"
	case daysRemaining <= 60:
		urgency = "requires attention"
	}

	color := template.CSS("green")
	switch {
	case daysRemaining <= 30:
		color = "red"
	case daysRemaining <= 60:
		color = "orange"
	}

	daysLabel := fmt.Sprintf("%d", daysRemaining)
	if daysRemaining <= 0 {
		daysLabel = "EXPIRED"
	}

	data := endOfSupportBody{
		DeviceName:       d.Name,
		UserName:         userNameOrDefault(d.UserDisplayName),
		OperatingSystem:  d.OS.String(),
		EndOfSupportDate: endOfSupportAt.Format("January 02, 2006"),
		Urgency:          urgency,
		DaysColor:        color,
		DaysLabel:        daysLabel,
	}

	var sb strings.Builder
	if err := endOfSupportTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render end-of-support alert body: %w", err)
	}
	return sb.String(), nil
}

// RenderComplianceBody renders the email body for a critical compliance
// issue alert.
func RenderComplianceBody(d *device.Device, issues []device.Issue) (string, error) {
	rows := make([]issueRow, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, issueRow{RuleName: issue.RuleName, Description: issue.Description})
	}

	data := complianceBody{
		DeviceName: d.Name,
		UserName:   userNameOrDefault(d.UserDisplayName),
		Issues:     rows,
	}

	var sb strings.Builder
	if err := complianceTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render compliance alert body: %w", err)
	}
	return sb.String(), nil
}

func userNameOrDefault(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Not assigned"
	}
	return name
}
