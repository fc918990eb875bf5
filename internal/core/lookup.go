package core

import (
	"strconv"
	"strings"

	"github.com/jmylchreest/overbar/internal/model"
)

// LookupByID finds a message by its ID or a unique, case-insensitive ID
// prefix. Returns nil if nothing or more than one message matches.
func LookupByID(messages []model.Message, id string) *model.Message {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return nil
	}

	var found *model.Message
	for i := range messages {
		if messages[i].ID == id {
			return &messages[i]
		}
		if strings.HasPrefix(messages[i].ID, id) {
			if found != nil {
				return nil
			}
			found = &messages[i]
		}
	}
	return found
}

// LookupByIndex finds a message by its index (1-based for user-friendliness).
// Returns nil if index is out of bounds.
func LookupByIndex(messages []model.Message, index int) *model.Message {
	idx := index - 1
	if idx < 0 || idx >= len(messages) {
		return nil
	}
	return &messages[idx]
}

// Lookup resolves input as a 1-based index when it is a number, otherwise
// as an ID or ID prefix.
func Lookup(messages []model.Message, input string) *model.Message {
	if index, err := strconv.Atoi(strings.TrimSpace(input)); err == nil {
		return LookupByIndex(messages, index)
	}
	return LookupByID(messages, input)
}
