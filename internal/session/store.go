// Package session holds multi-turn clarification state between classify and
// continue_classification calls.
package session

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tariff-cli/internal/model"
)

// ErrNotFound is returned when a session id is unknown or expired. It maps
// to a 404 at the HTTP boundary and must never be a silent empty result.
var ErrNotFound = eris.New("session: not found")

// Session carries the pipeline state needed to resume after clarification.
type Session struct {
	ID            string                        `json:"id"`
	Product       string                        `json:"product"`
	ProductInfo   string                        `json:"product_info"`
	Determination model.FinalDetermination      `json:"determination"`
	ResolveCode   string                        `json:"resolve_code"`
	Questions     []model.ClarificationQuestion `json:"questions"`
	Answers       []model.ClarificationAnswer   `json:"answers"`
	CreatedAt     time.Time                     `json:"created_at"`
	ExpiresAt     time.Time                     `json:"expires_at"`
}

// Store is the session persistence abstraction injected into the
// orchestrator.
type Store interface {
	Create(ctx context.Context, s *Session) (string, error)
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	EvictExpired(ctx context.Context) int
	Close()
}
