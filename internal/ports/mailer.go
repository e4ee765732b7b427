package ports

import "context"

// Message is one outbound notification. Bodies are HTML.
type Message struct {
	To      []string
	Cc      []string
	Subject string
	HTML    string
}

// Mailer sends escalation mail. A send failure must be treated as a warning
// by callers: committed workflow state is never rolled back over transport.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
