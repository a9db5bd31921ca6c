// Package lint implements the content-integrity checks for a book corpus:
// canonical section structure, exercise/solution pairing, cross-reference
// resolution and duplicate-chapter detection.
package lint

import "fmt"

// Severity classifies an issue. Errors break the corpus contract, warnings
// flag conventions the authors usually follow.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Rule identifiers, one per lint check.
const (
	RuleSections   = "sections"
	RulePairing    = "pairing"
	RuleCrossrefs  = "crossrefs"
	RuleDuplicates = "duplicates"
	RuleCodeFences = "code_fences"
	RuleManifest   = "manifest"
)

// Issue is a single finding against one file of the corpus.
type Issue struct {
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s (%s)", i.Path, i.Line, i.Severity, i.Message, i.Check)
	}
	return fmt.Sprintf("%s: %s: %s (%s)", i.Path, i.Severity, i.Message, i.Check)
}

// Report collects the findings of a lint run.
type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

func (r *Report) errorf(check, path string, line int, format string, args ...interface{}) {
	r.add(Issue{Check: check, Severity: SeverityError, Path: path, Line: line, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warnf(check, path string, line int, format string, args ...interface{}) {
	r.add(Issue{Check: check, Severity: SeverityWarning, Path: path, Line: line, Message: fmt.Sprintf(format, args...)})
}

// Errors returns only the error-severity issues.
func (r *Report) Errors() []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

// Warnings returns only the warning-severity issues.
func (r *Report) Warnings() []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			out = append(out, issue)
		}
	}
	return out
}

// Clean reports whether the run found no errors (warnings do not count).
func (r *Report) Clean() bool {
	return len(r.Errors()) == 0
}
