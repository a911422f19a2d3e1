// Package notifications delivers job milestones to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never need to check whether notifications are enabled. Delivery is
// best effort: the registry logs and discards every error returned here.
package notifications
