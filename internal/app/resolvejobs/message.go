package resolvejobs

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const RequestedEventName = "resolver/url.requested"

type RequestedEventData struct {
	URL string `json:"url"`
}

// RequestedEnvelope is the RabbitMQ message body for a queued resolution.
type RequestedEnvelope struct {
	EventName string             `json:"event_name"`
	EventID   string             `json:"event_id"`
	TS        time.Time          `json:"ts"`
	Data      RequestedEventData `json:"data"`
}

// EventIDForURL is stable per URL so re-enqueues of the same link collapse.
func EventIDForURL(rawURL string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(rawURL)))
	return "urlsha256:" + hex.EncodeToString(sum[:])
}
