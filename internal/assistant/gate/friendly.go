package gate

import (
	"fmt"
	"strings"
)

// friendlyTemplates are tried in order against the lowercased error text.
var friendlyTemplates = []struct {
	marker  string
	message string
}{
	{"not found", "I couldn't find that. Please check the name and try again."},
	{"already exists", "That already exists. Pick the existing entry or use a different name."},
	{"invalid", "Some of the details look invalid. Please review them and try again."},
	{"missing", "Some required details are missing. Please fill them in and try again."},
	{"unauthorized", "You're not authorized to do that."},
	{"network", "I couldn't reach the server. Please check the connection and try again."},
}

// FriendlyError maps a backend error onto an operator-facing message.
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}
	text := strings.ToLower(err.Error())
	for _, t := range friendlyTemplates {
		if strings.Contains(text, t.marker) {
			return t.message
		}
	}
	return fmt.Sprintf("Something went wrong: %s", err.Error())
}
