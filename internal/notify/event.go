// AngelaMos | 2026
// event.go

package notify

type Topic string

const (
	TopicEntryReviewed       Topic = "entry_reviewed"
	TopicShareDeduction      Topic = "share_deduction"
	TopicApplicationReceived Topic = "application_received"
	TopicApplicationReviewed Topic = "application_reviewed"
)

type Recipient struct {
	Name  string
	Email string
}

// Event is one member-facing message. Kind is the ledger entry kind or the
// membership type; Decision is empty for events that are not reviews.
type Event struct {
	Topic    Topic
	Kind     string
	Decision string
	To       Recipient
	Data     map[string]any
}

// Message is a rendered event ready for a Sender.
type Message struct {
	To      Recipient
	Subject string
	Body    string
}
