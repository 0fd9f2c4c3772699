package persistence

import (
	"time"
)

func createEvent(
	eventType PersistenceEventType,
	operation string,
	label string,
	input any,
	output any,
	query any,
	err *string,
	startTime time.Time,
) PersistenceEvent {
	var duration *int64
	if !startTime.IsZero() {
		d := time.Since(startTime).Milliseconds()
		duration = &d
	}

	var labelPtr *string
	if label != "" {
		labelPtr = &label
	}

	return PersistenceEvent{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Operation: operation,
		Label:     labelPtr,
		Input:     input,
		Output:    output,
		Error:     err,
		Query:     query,
		Duration:  duration,
	}
}
