// Package delivery runs the per-channel workers that turn queued jobs into
// provider calls.
//
// Each job drives one channel of one notification through
// pending -> sent -> delivered, or back to pending while the queue still
// retries, or to failed once it stops. Push fans out to every registered
// device and counts as delivered when at least one device accepts it; a user
// with no devices is skipped without retry. Email treats a missing address
// as a retryable failure.
//
// Every transition is written as a targeted channel update and announced on
// the recipient's broadcast room as EventChannelUpdated.
//
//	push := delivery.NewPushWorker(store, users, pushProvider, delivery.WithPublisher(pub))
//	mail := delivery.NewEmailWorker(store, users, sender, delivery.WithPublisher(pub))
//	_ = pushWorker.RegisterHandler(push.Handler())
//	_ = emailWorker.RegisterHandler(mail.Handler())
package delivery
