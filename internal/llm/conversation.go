package llm

// Conversation is the ordered message history of a single exchange. Messages
// are only ever appended; Messages returns a copy so callers cannot rewrite
// what has already been sent.
type Conversation struct {
	msgs []Message
}

func NewConversation(msgs ...Message) *Conversation {
	c := &Conversation{}
	c.Append(msgs...)
	return c
}

func (c *Conversation) Append(msgs ...Message) {
	c.msgs = append(c.msgs, msgs...)
}

func (c *Conversation) Len() int {
	return len(c.msgs)
}

func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}
