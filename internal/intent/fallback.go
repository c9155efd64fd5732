package intent

import "strings"

// Keyword triggers for the deterministic fallback, checked in order.
var fallbackKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{Plan, []string{"plan", "strategy", "roadmap"}},
	{Build, []string{"build", "create", "implement"}},
	{Design, []string{"design", "mockup", "wireframe", "sketch"}},
	{Test, []string{"test", "verify", "validate"}},
	{Deploy, []string{"deploy", "release", "publish", "ship"}},
	{Code, []string{"code", "refactor", "function", "snippet"}},
	{Help, []string{"help", "assist"}},
}

// Fallback classifies by keyword matching alone. Messages matching no
// keyword are treated as clarification requests.
func Fallback(message string) Intent {
	lower := strings.ToLower(message)
	for _, fk := range fallbackKeywords {
		for _, kw := range fk.keywords {
			if strings.Contains(lower, kw) {
				return fk.intent
			}
		}
	}
	return Clarify
}
