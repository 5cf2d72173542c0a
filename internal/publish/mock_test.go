package publish

import (
	"context"
	"fmt"
)

type MockPoster struct {
	Messages []Message
	FailOn   map[string]bool
}

func (m *MockPoster) Post(ctx context.Context, msg Message) error {
	if m.FailOn[msg.Text] {
		return fmt.Errorf("%w: status 500", ErrDelivery)
	}
	m.Messages = append(m.Messages, msg)
	return nil
}
