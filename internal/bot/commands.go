package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is a parsed bot command with its arguments.
type Command struct {
	Name string
	Args []string
}

// ParseCommand extracts a command from a message text. Commands start with a
// slash; a "@botname" suffix on the command word is stripped so commands work
// in group chats. Returns false for plain text.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}
	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	name = strings.ToLower(name)
	if name == "" {
		return Command{}, false
	}
	return Command{Name: name, Args: fields[1:]}, true
}

// ParseRepo splits an "owner/name" argument.
func ParseRepo(arg string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(arg), "/")
	owner = strings.TrimSpace(owner)
	name = strings.TrimSpace(name)
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("repository must be in owner/name form")
	}
	return owner, name, nil
}

// ParseSeq parses a subscription number as shown by /subscriptions.
func ParseSeq(arg string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 32)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("subscription number must be a positive integer")
	}
	return int32(n), nil
}

const helpText = `Available commands:
/login - link your GitHub account
/logout - unlink your GitHub account
/subscribe owner/repo pattern - get notified when a push touches matching files
/subscriptions - list your subscriptions
/unsubscribe N - remove subscription number N
/enable - turn notifications on
/disable - turn notifications off
/help - show this message`
