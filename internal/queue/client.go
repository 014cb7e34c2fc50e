package queue

import "context"

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Delivery is one received message. Handle is the backend receipt used to
// acknowledge it.
type Delivery struct {
	ID           string
	Body         string
	Handle       string
	ReceiveCount int
}

// Consumer receives and acknowledges messages.
type Consumer interface {
	Receive(ctx context.Context, max int32, wait int32) ([]Delivery, error)
	Delete(ctx context.Context, handle string) error
}
