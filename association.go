package eventflow

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Stream names partition the message log. Events live on "<root>-<id>"
// streams; commands live on "<root>:command-<id>" streams so that command
// traffic never interleaves with the event history of the same root.

func eventStreamName(root, id string) string {
	return root + "-" + id
}

func commandStreamName(root, id string) string {
	return root + ":command-" + id
}

// resolveStreamRoot derives the stream root for a registered message type:
// the explicit stream declared at registration wins, otherwise the associated
// aggregate's stream root is used. A type with neither association fails with
// an AssociationError naming the type.
func (r *Registry) resolveStreamRoot(entry *messageEntry) (string, error) {
	if entry.streamRoot != "" {
		return entry.streamRoot, nil
	}
	if entry.aggregate != "" {
		agg, err := r.aggregateEntry(entry.aggregate)
		if err != nil {
			return "", err
		}
		return agg.streamRoot, nil
	}
	return "", &AssociationError{TypeName: entry.name}
}

// resolveIdentifier picks the addressing identifier for a message payload:
// the payload's own identity when it declares one, or a fresh random
// identifier for anonymous occurrences.
func resolveIdentifier(payload any) string {
	if ident, ok := payload.(Identifiable); ok {
		if id := ident.EntityID(); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

func unmarshalPayload(data []byte, target any) error {
	return json.Unmarshal(data, target)
}
