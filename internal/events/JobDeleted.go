package events

var JobDeletedTopic = "JobDeletedEvent"

type JobDeleted struct {
	JobID             int64
	DocumentsCount    int
	ApplicationsCount int64
}
