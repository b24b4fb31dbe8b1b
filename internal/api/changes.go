package api

import (
	"net/http"

	"github.com/mostwo/mostwo-core/internal/audit"
	"github.com/mostwo/mostwo-core/internal/event"
	"github.com/mostwo/mostwo-core/internal/machine"
)

// Change actions. The WebSocket channel for a change is "{entity}.{action}",
// e.g. "machine.created"; the MQTT topic is {prefix}/{entity}/{id}/{action}.
const (
	actionCreated       = "created"
	actionUpdated       = "updated"
	actionDeleted       = "deleted"
	actionStatusChanged = "status_changed"
	actionToggled       = "toggled"
)

var auditActions = map[string]string{
	actionCreated:       audit.ActionCreate,
	actionUpdated:       audit.ActionUpdate,
	actionDeleted:       audit.ActionDelete,
	actionStatusChanged: audit.ActionStatus,
	actionToggled:       audit.ActionToggle,
}

func (s *Server) notifyMachine(r *http.Request, m *machine.Machine, action string, details ...any) {
	s.notify(r, audit.EntityMachine, m.ID, action, m, details)
}

func (s *Server) notifyEvent(r *http.Request, e *event.Event, action string, details ...any) {
	s.notify(r, audit.EntityEvent, e.ID, action, e, details)
}

// notify fans a committed change out to the audit trail, WebSocket
// subscribers, Prometheus, InfluxDB and MQTT. None of these can fail the
// request; failures are logged.
func (s *Server) notify(r *http.Request, entity, id, action string, record any, kv []any) {
	details := map[string]any{"name": recordName(record)}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			details[k] = kv[i+1]
		}
	}

	s.auditLog(auditActions[action], entity, id, userIDFromContext(r.Context()), details)
	s.hub.Publish(ChangeEvent{Entity: entity, ID: id, Action: action, Record: record})
	s.metrics.RecordChange(entity, action)

	if s.influx != nil {
		s.influx.WriteRecordChange(entity, action)
	}

	if s.mqtt != nil {
		s.publishing.Add(1)
		go func() {
			defer s.publishing.Done()
			if err := s.mqtt.PublishChange(entity, id, action, record); err != nil {
				s.logger.Warn("publishing record change failed",
					"entity", entity,
					"id", id,
					"action", action,
					"error", err,
				)
			}
		}()
	}
}

func recordName(record any) string {
	switch v := record.(type) {
	case *machine.Machine:
		return v.Name
	case *event.Event:
		return v.Name
	default:
		return ""
	}
}
