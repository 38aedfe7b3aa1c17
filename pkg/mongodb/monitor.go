package mongodb

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/event"
)

// CommandRecorder receives one observation per completed MongoDB command.
// Implemented by the metrics registry.
type CommandRecorder interface {
	RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration)
}

// CommandMonitor builds a driver command monitor that feeds command
// outcomes to the recorder. The collection name is only present on the
// started event, so it is held per request id until the command finishes.
func CommandMonitor(recorder CommandRecorder) *event.CommandMonitor {
	var collections sync.Map

	return &event.CommandMonitor{
		Started: func(_ context.Context, evt *event.CommandStartedEvent) {
			collection := ""
			if value, err := evt.Command.LookupErr(evt.CommandName); err == nil {
				collection, _ = value.StringValueOK()
			}
			collections.Store(evt.RequestID, collection)
		},
		Succeeded: func(_ context.Context, evt *event.CommandSucceededEvent) {
			recorder.RecordMongoDBOperation(takeCollection(&collections, evt.RequestID), evt.CommandName, true, evt.Duration)
		},
		Failed: func(_ context.Context, evt *event.CommandFailedEvent) {
			recorder.RecordMongoDBOperation(takeCollection(&collections, evt.RequestID), evt.CommandName, false, evt.Duration)
		},
	}
}

func takeCollection(collections *sync.Map, requestID int64) string {
	value, ok := collections.LoadAndDelete(requestID)
	if !ok {
		return ""
	}
	collection, _ := value.(string)
	return collection
}
