package respond

import (
	"fmt"
	"strings"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

const defaultPromptTemplate = "You are {agent_name}, an AI assistant handling email conversations with customers. Be concise, helpful, and professional."

// BuildSystemPrompt renders the agent's template with its variables, then
// appends the handover instruction block and, when the conversation is close
// to its reply limit, a wrap-up directive.
func BuildSystemPrompt(agent core.AgentProfile, conversation core.Conversation) string {
	template := strings.TrimSpace(agent.PromptTemplate)
	if template == "" {
		template = defaultPromptTemplate
	}

	variables := make(map[string]string, len(agent.Variables)+1)
	for key, value := range agent.Variables {
		variables[key] = value
	}
	if _, ok := variables["agent_name"]; !ok {
		variables["agent_name"] = agent.Name
	}
	rendered := substitute(template, variables)

	var builder strings.Builder
	builder.WriteString(rendered)

	builder.WriteString("\n\n")
	builder.WriteString(handoverInstruction(agent.HandoverTriggers))

	if agent.MaxMessages > 0 {
		remaining := agent.MaxMessages - conversation.AIMessageCount
		if remaining > 0 && remaining <= 2 {
			builder.WriteString("\n\n")
			fmt.Fprintf(&builder,
				"You have at most %d more repl%s in this conversation. Work toward a clear next step for the customer.",
				remaining, pluralSuffix(remaining))
		}
	}

	return builder.String()
}

// BuildContext converts the most recent stored messages into role-tagged
// prompt turns, oldest first. Stored sender types are internal vocabulary;
// the model sees Assistant/Customer labels instead.
func BuildContext(history []core.Message, window int) []core.PromptMessage {
	if window <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}
	turns := make([]core.PromptMessage, 0, len(history))
	for _, message := range history {
		content := strings.TrimSpace(message.Content)
		if content == "" {
			continue
		}
		turns = append(turns, core.PromptMessage{
			Role:    promptRole(message.SenderType),
			Content: content,
		})
	}
	return turns
}

func promptRole(sender core.SenderType) string {
	if sender == core.SenderAgent {
		return core.RoleAssistant
	}
	return core.RoleCustomer
}

func handoverInstruction(triggers []string) string {
	cleaned := make([]string, 0, len(triggers))
	for _, trigger := range triggers {
		if trimmed := strings.TrimSpace(trigger); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return fmt.Sprintf(
			"If the customer needs a human specialist, include the literal token %s in your reply.",
			SentinelToken)
	}
	return fmt.Sprintf(
		"If the customer asks about any of the following topics, include the literal token %s in your reply: %s.",
		SentinelToken, strings.Join(cleaned, ", "))
}

// substitute replaces {key} placeholders. Unknown placeholders pass through
// untouched so a typo in a template is visible instead of silently blank.
func substitute(template string, variables map[string]string) string {
	result := template
	for key, value := range variables {
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}
	return result
}

func pluralSuffix(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
