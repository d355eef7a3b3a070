package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// UnknownKey é usada quando não foi possível identificar o cliente.
const UnknownKey Key = "unknown"

type Key string

// Policy define quantas requisições são aceitas dentro da janela deslizante.
//
// MaxRequests == 0 rejeita tudo. A janela é semiaberta: (now-Window, now].
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// PerMinutes monta uma Policy no formato (max_requests, window_minutes).
func PerMinutes(maxRequests, minutes int) Policy {
	return Policy{MaxRequests: maxRequests, Window: time.Duration(minutes) * time.Minute}
}

// Limiter decide, para uma chave, se a ação é permitida no instante now.
//
// Check precisa ser atômico por chave: a poda, a contagem e o registro do novo
// timestamp acontecem sob o mesmo lock.
type Limiter interface {
	Check(key Key, now time.Time) Decision
}

type Decision struct {
	Allowed   bool
	Remaining int
	// ResetAt é quando o timestamp mais antigo da janela expira.
	// Zero quando não há nada registrado para a chave.
	ResetAt time.Time
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
