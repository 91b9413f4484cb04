package rediskey

import "fmt"

// Class listing cache keys (global convention across services)
const (
	ClassListPrefix = "classes:venue"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildClassListKey returns "classes:venue:{venueID}:{filterHash}"
func BuildClassListKey(venueID, filterHash string) string {
	return fmt.Sprintf("%s:%s:%s", ClassListPrefix, venueID, filterHash)
}

// BuildClassListIndexKey returns "classes:venue:{venueID}:keys", the set that
// tracks every listing key cached for the venue so invalidation can delete
// them without a SCAN.
func BuildClassListIndexKey(venueID string) string {
	return fmt.Sprintf("%s:%s:keys", ClassListPrefix, venueID)
}
