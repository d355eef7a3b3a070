package advisor

import (
	"fmt"
	"strings"

	"legal-gateway/internal/consultation"
)

const systemPrompt = "You are a helpful Indian legal assistant bot."

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func categoryTitle(name string) string {
	for _, c := range consultation.Categories {
		if c.Name == name {
			return c.Title
		}
	}
	return "General"
}

// BuildPrompt monta a mensagem do usuário no formato Legal Status / Law / Solution.
func BuildPrompt(q Question) string {
	var b strings.Builder
	b.WriteString("You are a legal expert trained in Indian law.\n\n")
	fmt.Fprintf(&b, "Area of law: %s\n", categoryTitle(q.Category))
	switch q.Urgency {
	case "emergency":
		b.WriteString("Urgency: EMERGENCY. Start with the immediate steps the user must take to stay safe and protect their rights.\n")
	case "urgent":
		b.WriteString("Urgency: urgent. Prioritise time-sensitive deadlines and remedies.\n")
	}
	fmt.Fprintf(&b, "\nUser's Problem: %s\n\n", q.Query)
	b.WriteString("Reply in this format:\n")
	b.WriteString("Legal Status: (Legal / Illegal / Partially Legal)\n")
	b.WriteString("Law: (Related law/section)\n")
	b.WriteString("Solution: (Simple action the user should take)\n")
	return b.String()
}

func buildMessages(q Question) []message {
	return []message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: BuildPrompt(q)},
	}
}
