package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"mira/internal/media"
)

// Key derives the content address for an attachment from its raw bytes, the
// declared kind, and the submitting context. Identical inputs always produce
// the same digest; the components are length-prefixed so adjacent fields can
// never blur into each other.
func Key(content []byte, kind media.Kind, pctx media.Context) string {
	h := sha256.New()
	h.Write(content)
	for _, part := range []string{string(kind), pctx.ProjectID, pctx.UserID, pctx.ConversationID} {
		fmt.Fprintf(h, "|%d:%s", len(part), part)
	}
	return hex.EncodeToString(h.Sum(nil))
}
