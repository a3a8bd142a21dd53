// Package dispatch turns notification requests into queued channel
// deliveries.
//
// CreateAndDispatch stores the notification first and only then enqueues
// one job per applicable channel, so a queue outage never loses a
// notification: the failure is reported in DispatchResult.QueueErr and the
// channel stays pending. Resend resets channels to pending before enqueueing
// them again.
//
// Router mounts the same operations on a chi mux:
//
//	POST  /notifications
//	GET   /notifications/{id}
//	POST  /notifications/{id}/resend?channel=push,email
//	PATCH /notifications/{id}/read
//	GET   /stats/queues
//	GET   /health/live
//	GET   /health/ready
package dispatch
