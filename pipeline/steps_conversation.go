package pipeline

import (
	"context"
	"fmt"

	kiln "github.com/spetersoncode/kiln"
	"github.com/spetersoncode/kiln/conversation"
)

// conversationFormat selects the export specialization.
type conversationFormat int

const (
	formatPlain conversationFormat = iota
	formatSFT
	formatDPO
	formatGRPO
)

// ConversationOption configures a conversation-rendering step.
type ConversationOption func(*conversationStep)

// WithSeparator changes the turn separator of the DSL string. The default
// is "|"; "\n" switches to one turn per line.
func WithSeparator(sep string) ConversationOption {
	return func(s *conversationStep) { s.separator = sep }
}

// WithTools attaches the column's value as the conversation's tool catalog.
func WithTools(column string) ConversationOption {
	return func(s *conversationStep) { s.toolsColumn = column }
}

// WithConversationID sets the conversation "id" field from a column.
func WithConversationID(column string) ConversationOption {
	return func(s *conversationStep) { s.idColumn = column }
}

// conversationStep compiles a conversation DSL string at build time and
// renders it per record, binding the wire JSON under the output column.
type conversationStep struct {
	name      string
	dsl       string
	output    string
	separator string
	format    conversationFormat

	toolsColumn string
	idColumn    string

	// DPO / GRPO extras
	chosenColumn   string
	rejectedColumn string
	solutionColumn string
	validatorID    string

	program *conversation.Program
}

// RenderConversation compiles the "@role:column" DSL string and, per
// record, renders it into the {"messages": [...]} wire object, bound as a
// JSON string under output. Grammar errors fail the build; a missing
// column fails the record.
func RenderConversation(name, dsl, output string, opts ...ConversationOption) Step {
	return newConversationStep(name, dsl, output, formatPlain, opts)
}

// RenderSFT is RenderConversation with the full message list, typically
// combined with WithTools for function-calling corpora.
func RenderSFT(name, dsl, output string, opts ...ConversationOption) Step {
	return newConversationStep(name, dsl, output, formatSFT, opts)
}

// RenderDPO renders the context messages plus "chosen"/"rejected" fields
// taken from the two columns, each normalized to a message-content string.
func RenderDPO(name, dsl, chosenColumn, rejectedColumn, output string, opts ...ConversationOption) Step {
	s := newConversationStep(name, dsl, output, formatDPO, opts)
	s.chosenColumn = chosenColumn
	s.rejectedColumn = rejectedColumn
	return s
}

// RenderGRPO renders the context messages plus a "solution" field from the
// column and a "validator_id" tag.
func RenderGRPO(name, dsl, solutionColumn, validatorID, output string, opts ...ConversationOption) Step {
	s := newConversationStep(name, dsl, output, formatGRPO, opts)
	s.solutionColumn = solutionColumn
	s.validatorID = validatorID
	return s
}

func newConversationStep(name, dsl, output string, format conversationFormat, opts []ConversationOption) *conversationStep {
	s := &conversationStep{
		name:      name,
		dsl:       dsl,
		output:    output,
		separator: conversation.DefaultSeparator,
		format:    format,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *conversationStep) Name() string { return s.name }

func (s *conversationStep) bind(_ *runtime) error {
	p, err := conversation.Parse(s.dsl, s.separator)
	if err != nil {
		return err
	}
	s.program = p
	return nil
}

func (s *conversationStep) Apply(_ context.Context, c *kiln.Context) error {
	conv, err := s.render(c)
	if err != nil {
		return err
	}
	if s.idColumn != "" {
		id, ok := c.GetString(s.idColumn)
		if !ok {
			return fmt.Errorf("column %q: %w", s.idColumn, kiln.ErrMissingColumn)
		}
		conv.ID = id
	}

	out, err := conv.JSON()
	if err != nil {
		return err
	}
	c.Set(s.output, out)
	return nil
}

func (s *conversationStep) render(c *kiln.Context) (kiln.Conversation, error) {
	switch s.format {
	case formatDPO:
		return conversation.RenderDPO(s.program, c, s.chosenColumn, s.rejectedColumn)
	case formatGRPO:
		return conversation.RenderGRPO(s.program, c, s.solutionColumn, s.validatorID)
	default:
		// Plain rendering and SFT share the same wire shape; SFT may carry
		// a tool catalog.
		return conversation.RenderSFT(s.program, c, s.toolsColumn)
	}
}
