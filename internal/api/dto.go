package api

import (
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"legal-gateway/internal/consultation"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 64 << 10

var errBadJSON = errors.New("invalid JSON body")

type ConsultationRequest struct {
	Query    string `json:"query" validate:"required,min=10,max=5000"`
	Category string `json:"category" validate:"max=64"`
	Urgency  string `json:"urgency" validate:"oneof=normal urgent emergency"`
}

// normalize faz trim e aplica os defaults. Os limites de tamanho valem para o
// texto digitado, então a validação roda antes de sanitize.
func (r *ConsultationRequest) normalize() {
	r.Query = strings.TrimSpace(r.Query)
	r.Category = consultation.NormalizeCategory(r.Category)
	r.Urgency = consultation.NormalizeUrgency(r.Urgency)
}

// sanitize prepara a pergunta já validada para o prompt e para o disco.
func (r *ConsultationRequest) sanitize() {
	r.Query = consultation.Sanitize(r.Query, consultation.MaxQueryLength)
}

type FeedbackRequest struct {
	ConsultationID string `json:"consultation_id" validate:"required,max=64"`
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback       string `json:"feedback" validate:"max=1000"`
}

func (r *FeedbackRequest) normalize() {
	r.ConsultationID = strings.TrimSpace(r.ConsultationID)
	r.Feedback = strings.TrimSpace(r.Feedback)
}

func (r *FeedbackRequest) sanitize() {
	r.Feedback = consultation.Sanitize(r.Feedback, consultation.MaxFeedbackLength)
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// usa o nome do campo JSON nas mensagens
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func formatValidationErrors(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{Field: "", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fe.Field() + " is required"
		case "min":
			if fe.Kind() == reflect.String {
				msg = fe.Field() + " must be at least " + fe.Param() + " characters"
			} else {
				msg = fe.Field() + " must be at least " + fe.Param()
			}
		case "max":
			if fe.Kind() == reflect.String {
				msg = fe.Field() + " must be at most " + fe.Param() + " characters"
			} else {
				msg = fe.Field() + " must be at most " + fe.Param()
			}
		case "oneof":
			msg = fe.Field() + " must be one of: " + fe.Param()
		default:
			msg = fe.Field() + " is invalid"
		}
		out = append(out, ValidationError{Field: fe.Field(), Message: msg})
	}
	return out
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return errBadJSON
	}
	if err := jsonAPI.Unmarshal(body, dst); err != nil {
		return errBadJSON
	}
	return nil
}
