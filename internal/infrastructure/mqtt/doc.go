// Package mqtt connects mostwo to an MQTT broker and publishes record
// change notifications.
//
// Every successful create, update, delete, status change or toggle is
// published on {prefix}/{entity}/{id}/{action} with the record as JSON.
// The client also maintains a retained status message on
// {prefix}/system/status: "online" after connecting, "offline" on a
// graceful Close, and an "unexpected_disconnect" Last Will otherwise.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishChange("machine", m.ID, "created", m)
//
// Publishing is best-effort from the API's point of view; callers log
// failures rather than returning them to clients.
package mqtt
