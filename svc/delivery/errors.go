package delivery

import "errors"

var (
	// ErrNoDevices is recorded when a push recipient has no registered device.
	ErrNoDevices = errors.New("no devices registered")

	// ErrNoEmail is recorded when an email recipient has no address.
	ErrNoEmail = errors.New("user email not found")

	// ErrAllDevicesFailed is returned when a push fan-out delivered nothing.
	ErrAllDevicesFailed = errors.New("all devices failed")

	// ErrSendFailed wraps an email provider failure.
	ErrSendFailed = errors.New("email delivery failed")

	// ErrUnexpectedChannel is returned when a job lands on the wrong worker.
	ErrUnexpectedChannel = errors.New("job channel does not match worker")
)
