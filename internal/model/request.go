package model

import (
	"fmt"
	"strings"
)

// Wire action names understood by the backend.
const (
	ActionCreate = "ADD"
	ActionUpdate = "EDIT"
	ActionDelete = "DELETE"
	ActionSearch = "SEARCH"
)

// actionAliases maps accepted spellings to wire action names.
var actionAliases = map[string]string{
	"ADD":    ActionCreate,
	"CREATE": ActionCreate,
	"EDIT":   ActionUpdate,
	"UPDATE": ActionUpdate,
	"DELETE": ActionDelete,
	"SEARCH": ActionSearch,
}

// NormalizeAction returns the wire name for action. Unknown actions are
// returned unchanged so they still reach the backend verbatim.
func NormalizeAction(action string) string {
	if a, ok := actionAliases[strings.ToUpper(strings.TrimSpace(action))]; ok {
		return a
	}
	return action
}

// IsMutation reports whether action changes backend state.
func IsMutation(action string) bool {
	switch NormalizeAction(action) {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	default:
		return false
	}
}

// Request is one desired mutation against a named entity.
type Request struct {
	Entity   string  `json:"entity"`
	Action   string  `json:"action"`
	Payload  Payload `json:"payload,omitempty"`
	PageInfo Payload `json:"page_info,omitempty"`
}

// Mode selects how a batch is processed.
type Mode string

const (
	// ModeStandard executes every request against the backend.
	ModeStandard Mode = "standard"
	// ModeStrict only predicts whether each request would succeed.
	ModeStrict Mode = "strict"
)

// ParseMode converts s to a Mode. The empty string selects ModeStandard.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeStandard):
		return ModeStandard, nil
	case string(ModeStrict):
		return ModeStrict, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}
