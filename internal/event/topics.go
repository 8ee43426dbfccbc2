package event

// Topic identifies one of the named append-only streams the services
// coordinate on. The set is closed: every publish and subscription in the
// system must use a member of Topics(), and the provisioner creates all of
// them before any producer or consumer starts.
type Topic string

const (
	TopicUserCreated           Topic = "user.created"
	TopicUserLoggedIn          Topic = "user.logged_in"
	TopicUserUpdated           Topic = "user.updated"
	TopicEventCreated          Topic = "event.created"
	TopicEventUpdated          Topic = "event.updated"
	TopicRegistrationCreated   Topic = "registration.created"
	TopicRegistrationCancelled Topic = "registration.cancelled"
	TopicNotificationSent      Topic = "notification.sent"
	TopicNotificationFailed    Topic = "notification.failed"
	TopicAuditLogged           Topic = "audit.logged"
	TopicAuditFailed           Topic = "audit.failed"
)

// Topics returns the full registry.
func Topics() []Topic {
	return []Topic{
		TopicUserCreated,
		TopicUserLoggedIn,
		TopicUserUpdated,
		TopicEventCreated,
		TopicEventUpdated,
		TopicRegistrationCreated,
		TopicRegistrationCancelled,
		TopicNotificationSent,
		TopicNotificationFailed,
		TopicAuditLogged,
		TopicAuditFailed,
	}
}

// TopicNames returns the registry as plain strings for the broker admin API.
func TopicNames() []string {
	topics := Topics()
	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = string(t)
	}
	return names
}

// Valid reports whether t is a member of the registry.
func (t Topic) Valid() bool {
	for _, known := range Topics() {
		if t == known {
			return true
		}
	}
	return false
}
