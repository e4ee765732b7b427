package escalation

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"labgate/internal/errs"
	"labgate/internal/ports"
)

type escalationMailData struct {
	InspectionID     string
	Company          string
	Supplier         string
	Material         string
	InspectionType   string
	Lot              string
	InspectedAt      string
	FailedParameters []string
	ApproveURL       string
	RejectURL        string
	ExpiresAt        string
	Final            bool
}

var escalationTmpl = template.Must(template.New("escalation").Parse(`<html>
<body style="font-family: sans-serif;">
{{if .Final}}<p><strong>Final decision required.</strong> The quality manager rejected this failed
lab inspection. Your decision closes the case; there is no further escalation level.</p>
{{else}}<p>A lab inspection failed and requires your decision.</p>
{{end}}<table cellpadding="4">
<tr><td>Inspection</td><td>{{.InspectionID}}</td></tr>
<tr><td>Company</td><td>{{.Company}}</td></tr>
<tr><td>Supplier</td><td>{{.Supplier}}</td></tr>
<tr><td>Material</td><td>{{.Material}}</td></tr>
<tr><td>Inspection type</td><td>{{.InspectionType}}</td></tr>
<tr><td>Lot</td><td>{{.Lot}}</td></tr>
<tr><td>Inspected at</td><td>{{.InspectedAt}}</td></tr>
</table>
{{if .FailedParameters}}<p>Failed parameters:</p>
<ul>{{range .FailedParameters}}<li>{{.}}</li>{{end}}</ul>
{{end}}<p>
<a href="{{.ApproveURL}}">Approve (release the lot)</a> &nbsp;|&nbsp;
<a href="{{.RejectURL}}">Reject{{if .Final}} (confirm failure){{end}}</a>
</p>
<p>These links are valid until {{.ExpiresAt}} and can be used once.</p>
</body>
</html>
`))

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<html>
<body style="font-family: sans-serif;">
<p>Your decision on lab inspection {{.InspectionID}} ({{.Company}}, lot {{.Lot}}) was recorded.</p>
<p>The inspection is now marked as <strong>passed</strong> by quality-manager override.</p>
</body>
</html>
`))

type finalNoticeData struct {
	InspectionID string
	Company      string
	Lot          string
	Approved     bool
	ActorEmail   string
}

var finalNoticeTmpl = template.Must(template.New("final_notice").Parse(`<html>
<body style="font-family: sans-serif;">
<p>The escalation for lab inspection {{.InspectionID}} ({{.Company}}, lot {{.Lot}}) is closed.</p>
{{if .Approved}}<p>Final decision by {{.ActorEmail}}: <strong>approved</strong>. The lot is released.</p>
{{else}}<p>Final decision by {{.ActorEmail}}: <strong>rejected</strong>. The inspection failure is confirmed.</p>
{{end}}</body>
</html>
`))

func (s *Service) actionLinks(inspection ports.Inspection, level int, approveToken string, rejectToken string) (string, string) {
	base := strings.TrimRight(s.settings.BaseURL, "/")
	id := url.QueryEscape(inspection.InspectionID)

	if level == 1 {
		return base + "/escalation/approve?id=" + id + "&token=" + url.QueryEscape(approveToken),
			base + "/escalation/reject?id=" + id + "&token=" + url.QueryEscape(rejectToken)
	}
	return base + "/escalation/final-approve/" + url.PathEscape(inspection.InspectionID) + "?token=" + url.QueryEscape(approveToken),
		base + "/escalation/final-reject/" + url.PathEscape(inspection.InspectionID) + "?token=" + url.QueryEscape(rejectToken)
}

func renderEscalationMail(inspection ports.Inspection, level int, approveURL string, rejectURL string, expiresAt string) (string, string, error) {
	data := escalationMailData{
		InspectionID:     inspection.InspectionID,
		Company:          inspection.Company,
		Supplier:         inspection.Supplier,
		Material:         inspection.Material,
		InspectionType:   inspection.InspectionType,
		Lot:              inspection.Lot,
		InspectedAt:      inspection.InspectedAt,
		FailedParameters: inspection.FailedParameters,
		ApproveURL:       approveURL,
		RejectURL:        rejectURL,
		ExpiresAt:        expiresAt,
		Final:            level == 2,
	}

	var buf bytes.Buffer
	if err := escalationTmpl.Execute(&buf, data); err != nil {
		return "", "", errs.Wrap(err, "render escalation mail")
	}

	subject := fmt.Sprintf("Action required: failed lab inspection %s (%s)", inspection.InspectionID, inspection.Company)
	if level == 2 {
		subject = fmt.Sprintf("Final decision required: lab inspection %s (%s)", inspection.InspectionID, inspection.Company)
	}
	return subject, buf.String(), nil
}

func renderConfirmationMail(inspection ports.Inspection) (string, string, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, escalationMailData{
		InspectionID: inspection.InspectionID,
		Company:      inspection.Company,
		Lot:          inspection.Lot,
	}); err != nil {
		return "", "", errs.Wrap(err, "render confirmation mail")
	}

	subject := fmt.Sprintf("Lab inspection %s approved", inspection.InspectionID)
	return subject, buf.String(), nil
}

func renderFinalNoticeMail(inspection ports.Inspection, approved bool, actorEmail string) (string, string, error) {
	var buf bytes.Buffer
	if err := finalNoticeTmpl.Execute(&buf, finalNoticeData{
		InspectionID: inspection.InspectionID,
		Company:      inspection.Company,
		Lot:          inspection.Lot,
		Approved:     approved,
		ActorEmail:   actorEmail,
	}); err != nil {
		return "", "", errs.Wrap(err, "render final notice mail")
	}

	outcome := "approved"
	if !approved {
		outcome = "rejected"
	}
	subject := fmt.Sprintf("Final decision for lab inspection %s: %s", inspection.InspectionID, outcome)
	return subject, buf.String(), nil
}
