// Package logger builds *slog.Logger values for every notifykit process.
//
// New takes functional options for format, level, output and static
// attributes. WithEnvironment and FromConfig apply presets: development
// logs debug as text, staging and production log info as JSON.
//
// Context extractors registered with WithContextExtractors or
// WithContextValue run on every record, which is how request ids from the
// HTTP layer end up on log lines written deep inside the dispatcher.
//
// attr.go holds constructors for the keys the services share:
// notification_id, user_id, channel, status, job_id, queue, attempt,
// provider, message_id and request_id. Use them instead of ad hoc strings
// so log queries stay stable.
//
//	log := logger.New(
//		logger.FromConfig(cfg),
//		logger.WithContextExtractors(requestid.LogExtractor()),
//	)
//	log.LogAttrs(ctx, slog.LevelInfo, "channel delivered",
//		logger.NotificationID(id),
//		logger.Channel(notifications.ChannelPush),
//	)
package logger
