package consultation

import (
	"context"
	"errors"
	"fmt"

	"legal-gateway/internal/jsonfile"
)

// ErrPersist indica que a consulta não pôde ser gravada em disco.
var ErrPersist = errors.New("consultation: persist failed")

// Stats é a agregação exposta em /api/v1/statistics.
type Stats struct {
	TotalConsultations int            `json:"total_consultations"`
	Categories         map[string]int `json:"categories"`
	UrgencyLevels      map[string]int `json:"urgency_levels"`
}

// Store é o log de consultas: carrega no início, regrava no save, agrega na leitura.
type Store struct {
	log *jsonfile.Log[Consultation]
}

// Open carrega path; arquivo ausente ou inválido vira store vazio.
func Open(path string) *Store {
	return &Store{log: jsonfile.Open[Consultation](path)}
}

// Save anexa c e regrava o arquivo. Em falha de escrita nada fica em memória.
func (s *Store) Save(ctx context.Context, c Consultation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.log.Append(c); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersist, c.ID, err)
	}
	return nil
}

// Stats varre o log inteiro a cada chamada.
func (s *Store) Stats() Stats {
	out := Stats{
		Categories:    map[string]int{},
		UrgencyLevels: map[string]int{},
	}
	s.log.Scan(func(c Consultation) bool {
		out.TotalConsultations++

		cat := c.Category
		if cat == "" {
			cat = "unknown"
		}
		urg := c.Urgency
		if urg == "" {
			urg = UrgencyNormal
		}
		out.Categories[cat]++
		out.UrgencyLevels[urg]++
		return true
	})
	return out
}

// Exists informa se há uma consulta com esse id.
func (s *Store) Exists(id string) bool {
	found := false
	s.log.Scan(func(c Consultation) bool {
		if c.ID == id {
			found = true
			return false
		}
		return true
	})
	return found
}

func (s *Store) Len() int { return s.log.Len() }

// All devolve uma cópia de todos os registros, do mais antigo ao mais novo.
func (s *Store) All() []Consultation { return s.log.Snapshot() }

func (s *Store) Path() string { return s.log.Path() }
