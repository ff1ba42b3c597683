package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/graphpatterns/prebuilt"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	humanStyle  = headerStyle.Foreground(lipgloss.Color("12"))
	aiStyle     = headerStyle.Foreground(lipgloss.Color("10"))
	toolStyle   = headerStyle.Foreground(lipgloss.Color("11"))
	systemStyle = headerStyle.Faint(true)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	bodyStyle   = lipgloss.NewStyle().PaddingLeft(2)
	bestStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("10")).
			Padding(0, 1)
)

func roleHeader(role llms.ChatMessageType) string {
	switch role {
	case llms.ChatMessageTypeHuman:
		return humanStyle.Render("Human")
	case llms.ChatMessageTypeAI:
		return aiStyle.Render("AI")
	case llms.ChatMessageTypeTool:
		return toolStyle.Render("Tool")
	case llms.ChatMessageTypeSystem:
		return systemStyle.Render("System")
	default:
		return headerStyle.Render(string(role))
	}
}

// formatMessage returns the plain-text body of a message.
func formatMessage(msg llms.MessageContent) string {
	var lines []string
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			lines = append(lines, p.Text)
		case llms.ToolCall:
			if p.FunctionCall != nil {
				lines = append(lines, fmt.Sprintf("-> %s(%s) [%s]", p.FunctionCall.Name, p.FunctionCall.Arguments, p.ID))
			}
		case llms.ToolCallResponse:
			lines = append(lines, fmt.Sprintf("%s [%s]: %s", p.Name, p.ToolCallID, p.Content))
		}
	}
	return strings.Join(lines, "\n")
}

func renderTranscript(w io.Writer, messages []llms.MessageContent) {
	for _, msg := range messages {
		fmt.Fprintln(w, roleHeader(msg.Role))
		fmt.Fprintln(w, bodyStyle.Render(formatMessage(msg)))
	}
}

func renderJokes(w io.Writer, state prebuilt.JokesState) {
	fmt.Fprintln(w, headerStyle.Render("Topic: "+state.Topic))
	fmt.Fprintln(w, bodyStyle.Render("Subjects: "+strings.Join(state.Subjects, ", ")))
	for i, joke := range state.Jokes {
		fmt.Fprintln(w, bodyStyle.Render(fmt.Sprintf("%d. %s", i, joke)))
	}
	fmt.Fprintln(w, bestStyle.Render(state.BestSelectedJoke))
}
