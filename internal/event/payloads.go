package event

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrMalformed marks a message whose value could not be decoded. The
	// consumer runner logs these and commits; the message is gone.
	ErrMalformed = errors.New("malformed event payload")

	// ErrMissingFields marks a decodable message lacking a field the handler
	// requires. Same drop-and-commit policy as ErrMalformed.
	ErrMissingFields = errors.New("event payload missing required fields")
)

// Payload is a typed message body bound to exactly one topic. Producers
// marshal the payload directly as the wire value, so the JSON tags below are
// the inter-service contract; there is no schema registry behind them.
type Payload interface {
	EventTopic() Topic
}

// Envelope is the generic {eventType, data} wrapper used for audit
// submissions, both over HTTP and on the audit.logged topic.
type Envelope struct {
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
}

// UserCreated is published by the user service after a signup commits.
type UserCreated struct {
	UserID    int64     `json:"userId"`
	Username  string    `json:"username,omitempty"`
	UserEmail string    `json:"userEmail,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

func (UserCreated) EventTopic() Topic { return TopicUserCreated }

// UserLoggedIn is published by the user service on successful login.
type UserLoggedIn struct {
	UserID    int64     `json:"userId"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

func (UserLoggedIn) EventTopic() Topic { return TopicUserLoggedIn }

// UserUpdated is published by the user service after a profile change.
type UserUpdated struct {
	UserID        int64          `json:"userId"`
	UpdatedFields map[string]any `json:"updatedFields,omitempty"`
	Timestamp     time.Time      `json:"timestamp,omitzero"`
}

func (UserUpdated) EventTopic() Topic { return TopicUserUpdated }

// EventCreated is published by the event service when an event is listed.
type EventCreated struct {
	EventID   string    `json:"eventId"`
	Title     string    `json:"title,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

func (EventCreated) EventTopic() Topic { return TopicEventCreated }

// EventUpdated is published by the event service whenever event fields
// change, including the registered counter maintained in this repo.
type EventUpdated struct {
	EventID       string         `json:"eventId"`
	UpdatedFields map[string]any `json:"updatedFields"`
	UpdatedBy     string         `json:"updatedBy,omitempty"`
	Timestamp     time.Time      `json:"timestamp,omitzero"`
}

func (EventUpdated) EventTopic() Topic { return TopicEventUpdated }

// RegistrationCreated is published by the registration service after a
// registration commits locally. The publish and the local write are two
// independent actions; a crash between them loses or duplicates the event.
type RegistrationCreated struct {
	EventID         string    `json:"eventId"`
	UserID          int64     `json:"userId"`
	UserEmail       string    `json:"userEmail,omitempty"`
	UserPhone       string    `json:"userPhone,omitempty"`
	UserDeviceToken string    `json:"userDeviceToken,omitempty"`
	Timestamp       time.Time `json:"timestamp,omitzero"`
}

func (RegistrationCreated) EventTopic() Topic { return TopicRegistrationCreated }

// RegistrationCancelled is published when a registration is withdrawn.
type RegistrationCancelled struct {
	EventID   string    `json:"eventId"`
	UserID    int64     `json:"userId"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

func (RegistrationCancelled) EventTopic() Topic { return TopicRegistrationCancelled }

// NotificationSent is published by the notification service after an email
// was handed to the mail transport.
type NotificationSent struct {
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

func (NotificationSent) EventTopic() Topic { return TopicNotificationSent }

// NotificationFailed is published best-effort when an email send fails.
type NotificationFailed struct {
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	EventID   string    `json:"eventId,omitempty"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

func (NotificationFailed) EventTopic() Topic { return TopicNotificationFailed }

// AuditLogged travels on the audit.logged topic in two shapes: the audit
// recorder publishes the full persisted record (id and createdAt set), and
// other services fire-and-forget bare {eventType, data} notices for the
// audit service to persist. Consumers only rely on the shared fields.
type AuditLogged struct {
	ID        string          `json:"id,omitempty"`
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt,omitzero"`
}

func (AuditLogged) EventTopic() Topic { return TopicAuditLogged }

// AuditFailed is the compensation event emitted when an audit record could
// not be persisted (or its completion notice could not be published).
type AuditFailed struct {
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
}

func (AuditFailed) EventTopic() Topic { return TopicAuditFailed }
