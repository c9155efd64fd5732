// Package intent classifies user messages into the closed routing
// vocabulary the agent dispatcher understands.
package intent

import "slices"

// Intent is the routing category assigned to a user message.
type Intent string

const (
	Plan    Intent = "plan"
	Build   Intent = "build"
	Design  Intent = "design"
	Test    Intent = "test"
	Deploy  Intent = "deploy"
	Code    Intent = "code"
	Clarify Intent = "clarify"
	Help    Intent = "help"
)

// All lists the vocabulary in priority order: when a provider reply
// mentions several intents, the earliest listed wins.
func All() []Intent {
	return []Intent{Plan, Build, Design, Test, Deploy, Code, Clarify, Help}
}

// Valid reports whether i is part of the vocabulary.
func (i Intent) Valid() bool {
	return slices.Contains(All(), i)
}
