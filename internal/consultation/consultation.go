// Package consultation define o registro de consulta jurídica e o log
// append-only onde ele é guardado.
package consultation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DemoModel é o ai_model gravado quando nenhuma chamada externa respondeu.
const DemoModel = "demo_mode"

const (
	CategoryGeneral = "general"
	UrgencyNormal   = "normal"
)

// CategoryInfo descreve uma área do direito aceita pela API.
type CategoryInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Categories lista as áreas em ordem de exibição; "general" é o fallback.
var Categories = []CategoryInfo{
	{"criminal", "Criminal Law", "IPC/BNS offences, FIRs, bail and criminal procedure"},
	{"civil", "Civil Law", "Contracts, torts, recovery suits and civil procedure"},
	{"constitutional", "Constitutional Law", "Fundamental rights, writs and public law remedies"},
	{"corporate", "Corporate Law", "Companies Act, compliance, governance and insolvency"},
	{"family", "Family Law", "Marriage, divorce, maintenance, custody and succession"},
	{"property", "Property Law", "Land, tenancy, registration and title disputes"},
	{"labor", "Labour Law", "Employment, wages, termination and industrial disputes"},
	{"tax", "Tax Law", "Income tax, GST and tax notices"},
	{"intellectual", "Intellectual Property", "Trademarks, copyright, patents and designs"},
	{"cyber", "Cyber Law", "IT Act, online fraud, data protection and cyber crime"},
	{CategoryGeneral, "General", "Anything that does not fit a specific area"},
}

// Urgencies são os níveis aceitos, do menos ao mais urgente.
var Urgencies = []string{UrgencyNormal, "urgent", "emergency"}

// NormalizeCategory devolve a categoria canônica; desconhecida vira "general".
func NormalizeCategory(raw string) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	for _, info := range Categories {
		if info.Name == c {
			return c
		}
	}
	return CategoryGeneral
}

// ValidUrgency informa se u (já normalizada) é um nível conhecido.
func ValidUrgency(u string) bool {
	for _, v := range Urgencies {
		if v == u {
			return true
		}
	}
	return false
}

// NormalizeUrgency aplica trim/lowercase; vazio vira "normal".
func NormalizeUrgency(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	if u == "" {
		return UrgencyNormal
	}
	return u
}

// Consultation é imutável depois de gravada.
type Consultation struct {
	ID           string    `json:"id"`
	Query        string    `json:"query"`
	Category     string    `json:"category"`
	Urgency      string    `json:"urgency"`
	Response     string    `json:"response"`
	AIModel      string    `json:"ai_model"`
	Timestamp    time.Time `json:"timestamp"`
	UserIP       *string   `json:"user_ip"`
	ResponseTime *float64  `json:"response_time"`
}

// NewID gera um identificador único para consultas e feedbacks.
func NewID() string {
	return uuid.NewString()
}

// New monta um registro com id e timestamp preenchidos.
func New(query, category, urgency, response, model string, at time.Time) Consultation {
	return Consultation{
		ID:        NewID(),
		Query:     query,
		Category:  category,
		Urgency:   urgency,
		Response:  response,
		AIModel:   model,
		Timestamp: at.UTC(),
	}
}

// WithUserIP devolve uma cópia com o IP do cliente.
func (c Consultation) WithUserIP(ip string) Consultation {
	if ip != "" {
		c.UserIP = &ip
	}
	return c
}

// WithResponseTime devolve uma cópia com a duração da geração, em segundos.
func (c Consultation) WithResponseTime(d time.Duration) Consultation {
	secs := d.Seconds()
	c.ResponseTime = &secs
	return c
}
