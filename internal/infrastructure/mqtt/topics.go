package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "mostwo"

// Topics builds MQTT topics under a fixed prefix.
//
//	topics := mqtt.NewTopics("mostwo")
//	topics.RecordChange("machine", id, "updated")
//	// Returns: "mostwo/machine/<id>/updated"
type Topics struct {
	prefix string
}

// NewTopics returns topic builders rooted at prefix. Leading and trailing
// slashes are trimmed.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root segment.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// RecordChange returns the topic a record change is published on.
//
// Example: mostwo/event/3f1c.../toggled
func (t Topics) RecordChange(entity, id, action string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.Prefix(), entity, id, action)
}

// AllRecordChanges returns a wildcard matching every change of entity.
//
// Example: mostwo/machine/+/+
func (t Topics) AllRecordChanges(entity string) string {
	return fmt.Sprintf("%s/%s/+/+", t.Prefix(), entity)
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: mostwo/system/status
func (t Topics) SystemStatus() string {
	return t.Prefix() + "/system/status"
}
