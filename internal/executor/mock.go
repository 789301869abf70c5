package executor

import (
	"fmt"
	"strings"

	"github.com/good-yellow-bee/compliops/internal/models"
)

type mockSection struct {
	header string
	render func(b *strings.Builder, alert *models.Alert, level models.ImpactLevel, profile Profile)
}

var mockSections = []mockSection{
	{"## Executive Summary", writeExecutiveSummary},
	{"## Impact Assessment", writeImpactAssessment},
	{"## Company Profile", writeCompanyProfile},
	{"## Required Actions", writeRequiredActions},
	{"## Recommendations", writeRecommendations},
}

// MockSections lists the section headers of every mock report, in order.
var MockSections = func() []string {
	headers := make([]string, len(mockSections))
	for i, s := range mockSections {
		headers[i] = s.header
	}
	return headers
}()

var recommendations = map[models.ImpactLevel][]string{
	models.ImpactHigh: {
		"Escalate to the compliance committee within 48 hours.",
		"Assign an owner for each required action and track completion weekly.",
		"Schedule a regulator-facing readiness review before the effective date.",
	},
	models.ImpactMedium: {
		"Review the change with the compliance team at the next weekly sync.",
		"Update affected policies and procedures within 30 days.",
	},
	models.ImpactLow: {
		"Record the change in the regulatory register.",
		"Revisit during the next quarterly policy review.",
	},
}

// MockReport renders the deterministic fallback report for an alert. The
// output depends only on its arguments.
func MockReport(alert *models.Alert, profile Profile) string {
	level := alert.Impact.Level
	if !level.Valid() {
		level = models.ImpactMedium
	}

	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", models.ReportTitle(alert.ID))
	fmt.Fprintf(&b, "**Summary:** %s\n\n", alert.Summary)

	for i, section := range mockSections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(section.header + "\n\n")
		section.render(&b, alert, level, profile)
	}

	return b.String()
}

func writeExecutiveSummary(b *strings.Builder, alert *models.Alert, level models.ImpactLevel, profile Profile) {
	fmt.Fprintf(b, "A regulatory change was detected by %s on %s. ",
		alert.Source, alert.CreatedAt.UTC().Format("2006-01-02"))
	fmt.Fprintf(b, "It has been assessed as **%s** impact for %s.\n", level, profile.CompanyName)
}

func writeImpactAssessment(b *strings.Builder, alert *models.Alert, level models.ImpactLevel, _ Profile) {
	fmt.Fprintf(b, "- **Impact level:** %s\n", level)
	fmt.Fprintf(b, "- **Action required:** %s\n", yesNo(alert.Impact.ActionRequired))
}

func writeCompanyProfile(b *strings.Builder, _ *models.Alert, _ models.ImpactLevel, profile Profile) {
	fmt.Fprintf(b, "- **Company:** %s\n", profile.CompanyName)
	if len(profile.DataLocations) > 0 {
		fmt.Fprintf(b, "- **Data locations:** %s\n", strings.Join(profile.DataLocations, ", "))
	}
	fmt.Fprintf(b, "- **Users:** %d\n", profile.UserCount)
}

func writeRequiredActions(b *strings.Builder, alert *models.Alert, _ models.ImpactLevel, _ Profile) {
	if len(alert.Impact.Actions) == 0 {
		b.WriteString("No specific actions were identified.\n")
	}
	for i, action := range alert.Impact.Actions {
		fmt.Fprintf(b, "%d. %s\n", i+1, action)
	}
}

func writeRecommendations(b *strings.Builder, _ *models.Alert, level models.ImpactLevel, _ Profile) {
	for _, rec := range recommendations[level] {
		fmt.Fprintf(b, "- %s\n", rec)
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
