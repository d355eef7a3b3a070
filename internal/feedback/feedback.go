// Package feedback guarda as avaliações (1..5) que os usuários dão às consultas.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"legal-gateway/internal/jsonfile"
)

var ErrPersist = errors.New("feedback: persist failed")

type Feedback struct {
	ID             string    `json:"id"`
	ConsultationID string    `json:"consultation_id"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"feedback,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	UserIP         *string   `json:"user_ip"`
}

type Summary struct {
	Total         int            `json:"total_feedback"`
	AverageRating float64        `json:"average_rating"`
	Ratings       map[string]int `json:"ratings"`
}

type Store struct {
	log *jsonfile.Log[Feedback]
}

func Open(path string) *Store {
	return &Store{log: jsonfile.Open[Feedback](path)}
}

func (s *Store) Save(ctx context.Context, f Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.log.Append(f); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersist, f.ID, err)
	}
	return nil
}

func (s *Store) Summary() Summary {
	out := Summary{Ratings: map[string]int{}}
	sum := 0
	s.log.Scan(func(f Feedback) bool {
		out.Total++
		sum += f.Rating
		out.Ratings[fmt.Sprint(f.Rating)]++
		return true
	})
	if out.Total > 0 {
		out.AverageRating = float64(sum) / float64(out.Total)
	}
	return out
}

func (s *Store) Len() int { return s.log.Len() }
