package pubsub

import (
	"fmt"
	"strings"
)

// Channel naming for realtime messaging fan-out:
//
//	messaging:{scope}:{id}:events
const (
	channelPrefix = "messaging"
	channelSuffix = "events"
)

// Broadcast scopes. Each scope maps to one group family in the realtime hub.
const (
	ScopeConversation = "conversation"
	ScopeUser         = "user"
	ScopeDepartment   = "department"
)

// Scopes lists every scope a relay must subscribe to.
var Scopes = []string{ScopeConversation, ScopeUser, ScopeDepartment}

// Channel returns the channel name for a scope and target id.
func Channel(scope, id string) string {
	return fmt.Sprintf("%s:%s:%s:%s", channelPrefix, scope, id, channelSuffix)
}

// ScopePattern returns the wildcard pattern matching every channel of a scope.
func ScopePattern(scope string) string {
	return Channel(scope, "*")
}

// ParseChannel splits a channel name into its scope and target id.
func ParseChannel(channel string) (scope, id string, err error) {
	parts := strings.Split(channel, ":")
	if len(parts) < 4 || parts[0] != channelPrefix || parts[len(parts)-1] != channelSuffix {
		return "", "", fmt.Errorf("invalid channel format: %s", channel)
	}
	id = strings.Join(parts[2:len(parts)-1], ":")
	if parts[1] == "" || id == "" {
		return "", "", fmt.Errorf("invalid channel format: %s", channel)
	}
	return parts[1], id, nil
}
