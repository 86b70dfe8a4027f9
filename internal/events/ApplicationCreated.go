package events

var ApplicationCreatedTopic = "ApplicationCreatedEvent"

type ApplicationCreated struct {
	ApplicationID int64
	UserID        string
	JobID         int64
}
