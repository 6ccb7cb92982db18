package resumes

import (
	_ "embed"
	"strings"
)

//go:embed prompts/feedback_v1.txt
var feedbackPromptV1 string

// Instructions renders the feedback instruction for a job.
func Instructions(jobTitle, jobDescription string) string {
	jd := strings.TrimSpace(jobDescription)
	if jd == "" {
		jd = "N/A"
	}
	title := strings.TrimSpace(jobTitle)
	if title == "" {
		title = "N/A"
	}
	return strings.NewReplacer(
		"{{JOB_TITLE}}", title,
		"{{JOB_DESCRIPTION}}", jd,
	).Replace(feedbackPromptV1)
}
