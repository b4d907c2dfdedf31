package agent

// Log is the append-only record of one conversation.
//
// A Log belongs to a single Controller run and is not safe for concurrent
// use. Entries are copied on the way in and on the way out, so nothing a
// caller holds can change what has been appended.
type Log struct {
	messages []Message
}

// NewLog returns a log seeded with one user message.
func NewLog(input string) *Log {
	l := &Log{}
	l.Append(UserMessage(input))
	return l
}

// Append adds messages to the end of the log in the given order.
func (l *Log) Append(msgs ...Message) {
	for _, m := range msgs {
		l.messages = append(l.messages, m.clone())
	}
}

// Latest returns the most recently appended message.
func (l *Log) Latest() (Message, error) {
	if len(l.messages) == 0 {
		return Message{}, ErrEmptyLog
	}
	return l.messages[len(l.messages)-1].clone(), nil
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	return len(l.messages)
}

// Messages returns a snapshot of the log.
func (l *Log) Messages() []Message {
	out := make([]Message, len(l.messages))
	for i, m := range l.messages {
		out[i] = m.clone()
	}
	return out
}
