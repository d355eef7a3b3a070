package advisor

import (
	"context"
	"fmt"

	"legal-gateway/internal/consultation"
)

// Demo responde sem chamar ninguém. Nunca falha.
type Demo struct{}

func (Demo) Mode() string  { return ModeDemo }
func (Demo) Model() string { return consultation.DemoModel }

func (Demo) Advise(_ context.Context, q Question) (Answer, error) {
	text := fmt.Sprintf(`Legal Status: Please consult a lawyer for accurate advice
Law: This is a demo response for the %s area. No AI provider is configured or it is currently unavailable.
Solution: To get a full analysis:
1. Configure OPENAI_API_KEY for the service
2. Consult a qualified advocate for matters that need immediate action

Your query was: %s
`, categoryTitle(q.Category), q.Query)
	return Answer{Text: text, Model: consultation.DemoModel}, nil
}
