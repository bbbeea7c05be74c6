// Package notifications delivers event outcome alerts via pluggable
// notifiers.
//
// The default implementation sends through shoutrrr service URLs configured
// in config.toml and gracefully degrades to a no-op when none are set.
// Delivery is best effort: failures are logged and recorded on the event's
// notification status but never fail an otherwise-successful event. A
// per-camera cooldown suppresses alert storms from busy cameras.
//
// Extend this package if you need alternative transports; all workflow code
// depends only on the simple Service interface.
package notifications
