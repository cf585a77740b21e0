package meeting

import (
	"strings"

	"github.com/google/uuid"
)

const idPrefix = "user_"

// NewParticipantID returns a fresh ephemeral participant id.
func NewParticipantID() string {
	return idPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Initiator reports whether local sends the offer to remote. Exactly one
// side of any pair sees true.
func Initiator(local, remote string) bool {
	return local < remote
}
