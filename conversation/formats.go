package conversation

import (
	"fmt"

	kiln "github.com/spetersoncode/kiln"
)

// RenderSFT renders the full message list. When toolsColumn is non-empty,
// that column's value is attached as the conversation's tool catalog.
func RenderSFT(p *Program, c *kiln.Context, toolsColumn string) (kiln.Conversation, error) {
	messages, err := p.Render(c)
	if err != nil {
		return kiln.Conversation{}, err
	}
	conv := kiln.Conversation{Messages: messages}
	if toolsColumn != "" {
		tools, ok := c.Get(toolsColumn)
		if !ok {
			return kiln.Conversation{}, fmt.Errorf("%w: %q", kiln.ErrMissingColumn, toolsColumn)
		}
		conv.Tools = tools
	}
	return conv, nil
}

// RenderDPO renders the context messages (the program should hold everything
// before the final answer) plus chosen and rejected response columns, each
// normalized to a message-content string.
func RenderDPO(p *Program, c *kiln.Context, chosenColumn, rejectedColumn string) (kiln.Conversation, error) {
	messages, err := p.Render(c)
	if err != nil {
		return kiln.Conversation{}, err
	}
	chosen, ok := c.Get(chosenColumn)
	if !ok {
		return kiln.Conversation{}, fmt.Errorf("%w: %q", kiln.ErrMissingColumn, chosenColumn)
	}
	rejected, ok := c.Get(rejectedColumn)
	if !ok {
		return kiln.Conversation{}, fmt.Errorf("%w: %q", kiln.ErrMissingColumn, rejectedColumn)
	}
	return kiln.Conversation{
		Messages: messages,
		Chosen:   NormalizeMessageContent(chosen),
		Rejected: NormalizeMessageContent(rejected),
	}, nil
}

// RenderGRPO renders the context messages plus a solution column and a
// validator tag for group-relative policy optimization datasets.
func RenderGRPO(p *Program, c *kiln.Context, solutionColumn, validatorID string) (kiln.Conversation, error) {
	messages, err := p.Render(c)
	if err != nil {
		return kiln.Conversation{}, err
	}
	solution, ok := c.Get(solutionColumn)
	if !ok {
		return kiln.Conversation{}, fmt.Errorf("%w: %q", kiln.ErrMissingColumn, solutionColumn)
	}
	return kiln.Conversation{
		Messages:    messages,
		Solution:    NormalizeMessageContent(solution),
		ValidatorID: validatorID,
	}, nil
}
