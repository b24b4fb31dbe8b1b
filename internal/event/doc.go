// Package event manages automation rules.
//
// An Event pairs a trigger with a list of actions. Both are stored and
// returned exactly as the client sent them; nothing here interprets them.
// Event names are unique. An event may belong to a machine, in which case
// deleting the machine deletes the event.
package event
