// cache/keys.go
package cache

import "fmt"

// Key scheme: "participant:<id>" for point lookups,
// "participants:<page>:<limit>" for paginated lists. The list pattern
// invalidates every page in one call.

func ParticipantKey(id string) string {
	return fmt.Sprintf("participant:%s", id)
}

func ParticipantListKey(page, limit int) string {
	return fmt.Sprintf("participants:%d:%d", page, limit)
}

func ParticipantListPattern() string {
	return "participants:*"
}
