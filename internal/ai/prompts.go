package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/job_match.md
var jobMatchPromptRaw string

// JobMatchTemplate is the parsed prompt for scoring a job against a resume.
var JobMatchTemplate = template.Must(template.New("job_match").Parse(jobMatchPromptRaw))
