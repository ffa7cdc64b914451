// Package notifications posts run notices to an ntfy topic.
//
// New returns a no-op notifier when no topic is configured, so callers
// notify unconditionally and treat delivery errors as warnings.
package notifications
