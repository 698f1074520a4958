// Package prompt assembles the message list sent to the completion
// provider: system prompt first, then conversation history in creation
// order, truncated to bound context size.
package prompt

import "charchat/pkg/models"

const (
	// maxMessages bounds how many conversation turns are forwarded.
	maxMessages = 20
)

// Prepare builds the provider message list. A non-empty systemPrompt is
// placed first; incoming system-role entries are dropped so clients
// cannot inject their own.
func Prepare(msgs []models.ChatMessage, systemPrompt string) []models.ChatMessage {
	prepared := make([]models.ChatMessage, 0, len(msgs)+1)
	if systemPrompt != "" {
		prepared = append(prepared, models.ChatMessage{Role: models.RoleSystem, Content: systemPrompt})
	}
	for _, m := range msgs {
		if m.Role == models.RoleSystem {
			continue
		}
		prepared = append(prepared, m)
	}
	return Truncate(prepared, maxMessages)
}

// Truncate keeps system messages plus the most recent conversation turns
// so the total stays within max.
func Truncate(msgs []models.ChatMessage, max int) []models.ChatMessage {
	if len(msgs) <= max {
		return msgs
	}
	var system, conv []models.ChatMessage
	for _, m := range msgs {
		if m.Role == models.RoleSystem {
			system = append(system, m)
		} else {
			conv = append(conv, m)
		}
	}
	keep := max - len(system)
	if keep < 0 {
		keep = 0
	}
	if keep < len(conv) {
		conv = conv[len(conv)-keep:]
	}
	return append(system, conv...)
}

// EstimateTokens is a rough size estimate: one token per four characters.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// TotalTokens sums the estimate across a message list.
func TotalTokens(msgs []models.ChatMessage) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content)
	}
	return total
}
