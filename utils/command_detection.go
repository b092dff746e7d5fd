package utils

import (
	"strings"
	"unicode"
)

// CommandDetectionResult represents the result of command detection
type CommandDetectionResult struct {
	IsCommand bool
	Name      string
	RawArgs   string
	Args      []string
}

// DetectCommand checks whether a message starts with the configured prefix or
// with a mention of the agent, and splits the remainder into a command name
// and its argument tail. The name must follow the prefix directly; a mention
// must be followed by whitespace.
func DetectCommand(messageText, prefix, selfID string) CommandDetectionResult {
	text := strings.TrimSpace(messageText)

	rest, ok := stripInvocationPrefix(text, prefix, selfID)
	if !ok || rest == "" {
		return CommandDetectionResult{}
	}

	name, rawArgs := rest, ""
	if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
		name, rawArgs = rest[:i], strings.TrimSpace(rest[i:])
	}

	return CommandDetectionResult{
		IsCommand: true,
		Name:      name,
		RawArgs:   rawArgs,
		Args:      strings.Fields(rawArgs),
	}
}

func stripInvocationPrefix(text, prefix, selfID string) (string, bool) {
	if selfID != "" {
		for _, mention := range []string{"<@" + selfID + ">", "<@!" + selfID + ">"} {
			if rest, ok := strings.CutPrefix(text, mention); ok {
				trimmed := strings.TrimLeftFunc(rest, unicode.IsSpace)
				if len(trimmed) == len(rest) {
					return "", false
				}
				return trimmed, true
			}
		}
	}

	if prefix != "" {
		if rest, ok := strings.CutPrefix(text, prefix); ok {
			if strings.IndexFunc(rest, unicode.IsSpace) == 0 {
				return "", false
			}
			return rest, true
		}
	}

	return "", false
}

// ParseUserID accepts a raw id or a mention and returns the bare user id
func ParseUserID(arg string) (string, bool) {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "<@") && strings.HasSuffix(arg, ">") {
		arg = strings.TrimPrefix(strings.TrimSuffix(arg, ">"), "<@")
		arg = strings.TrimPrefix(arg, "!")
	}

	if arg == "" {
		return "", false
	}
	for _, r := range arg {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return arg, true
}
