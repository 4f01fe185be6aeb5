package ui

import (
	"fmt"
	"os"

	survey "github.com/AlecAivazis/survey/v2"
)

// Confirm asks a yes/no question. It logs the prompt and the answer to the full log.
// When stdin is not a terminal it returns def without prompting.
func (l *Logger) Confirm(text string, def bool) (bool, error) {
	l.InfoSilent("PROMPT: %s (default: %t)", text, def)

	if !IsTerminal(os.Stdin) {
		l.InfoSilent("ANSWER: %t (stdin is not a terminal)", def)
		return def, nil
	}

	answer := def
	prompt := &survey.Confirm{
		Message: text,
		Default: def,
	}

	err := survey.AskOne(
		prompt,
		&answer,
		survey.WithStdio(os.Stdin, os.Stderr, os.Stderr),
	)
	if err != nil {
		l.Error("PROMPT FAILED: %v", err)
		return false, fmt.Errorf("confirm: %w", err)
	}

	l.InfoSilent("ANSWER: %t", answer)
	return answer, nil
}
