package domain

import "github.com/google/uuid"

// NewID generates a globally unique document id. Ids are assigned at creation
// time and never depend on a store sequence.
var NewID = uuid.NewString

// KeyedID derives a stable id from an idempotency key, so retries of the same
// job address the same document.
func KeyedID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("dispatch:job:"+key)).String()
}
