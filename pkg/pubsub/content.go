package pubsub

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ContentTopic carries content-change notifications.
const ContentTopic = "content"

// ContentChanged announces that a content document was modified.
type ContentChanged struct {
	// Location is the path or URL of the document.
	Location string `msgpack:"location"`

	// Op is the kind of change, e.g. "write" or "create".
	Op string `msgpack:"op"`

	At time.Time `msgpack:"at"`
}

// PublishContentChanged encodes ev and publishes it on ContentTopic.
func PublishContentChanged(ps PubSub, ev ContentChanged) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	data, err := msgpack.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("encode content event: %w", err)
	}
	return ps.Publish(ContentTopic, data)
}

// SubscribeContent calls fn for every ContentChanged published on ps.
// Undecodable messages are skipped.
func SubscribeContent(ps PubSub, fn func(ContentChanged)) (Subscription, error) {
	return ps.Subscribe(ContentTopic, func(msg []byte) {
		var ev ContentChanged
		if err := msgpack.Unmarshal(msg, &ev); err != nil {
			return
		}
		fn(ev)
	})
}
