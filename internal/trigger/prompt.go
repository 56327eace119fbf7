package trigger

import (
	"fmt"
	"strings"

	"github.com/landywei/agent-co/internal/model"
)

// buildPrompt renders the wake-up message for one recipient: a header
// naming the channel and sender and quoting the new message verbatim, the
// recent transcript oldest-first, and a trailer telling the agent how to
// reply — or to answer with the literal token PASS when it has nothing to
// add.
func buildPrompt(channelName string, msg model.ChannelMessage, transcript []model.ChannelMessage) string {
	var b strings.Builder

	fmt.Fprintf(&b, "New message in #%s from %s:\n\n%s\n", channelName, msg.SenderID, msg.Text)

	if len(transcript) > 0 {
		b.WriteString("\nRecent channel history:\n")
		for _, m := range transcript {
			fmt.Fprintf(&b, "[%s]: %s\n", m.SenderID, m.Text)
		}
	}

	b.WriteString("\nReply by posting to this channel with company.channels.post. " +
		"Use company.channels.history if you need more context. " +
		"If you have nothing to add, respond with the single token PASS.")

	return b.String()
}
