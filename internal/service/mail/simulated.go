package mail

import (
	"context"
	"fmt"
	"log"

	"github.com/zhouzirui/postscript/backend/internal/model/flow"
)

// SimulatedTransport 不真正发信，只记录收件地址。
type SimulatedTransport struct{}

func NewSimulatedTransport() *SimulatedTransport {
	return &SimulatedTransport{}
}

func (SimulatedTransport) Deliver(_ context.Context, env Envelope) (flow.EmailOutput, error) {
	log.Printf("[mail] simulated delivery to=%s subject=%q", env.To, env.Subject)
	return flow.EmailOutput{
		Success: true,
		Message: fmt.Sprintf("Conversation for %s would be sent to %s. This email address (%s) has been logged for our records.", env.PersonaName, env.To, env.To),
	}, nil
}
