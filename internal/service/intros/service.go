package intros

import (
	"context"

	"github.com/google/uuid"

	"github.com/grovehq/grove/internal/app"
	"github.com/grovehq/grove/internal/db"
	svcErr "github.com/grovehq/grove/internal/errors"
	"github.com/grovehq/grove/internal/notify"
	"github.com/grovehq/grove/internal/repository"
)

// Service creates introductions once a match goes mutual: it assigns the
// reveal token and sends the contact-detail email to both parties.
type Service struct {
	appCtx    *app.AppContext
	introRepo *repository.IntroRepository
	matchRepo *repository.MatchRepository
	userRepo  *repository.UserRepository
	auditRepo *repository.AuditRepository
	email     notify.EmailSender
}

// NewService creates the intros service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, email notify.EmailSender) *Service {
	return &Service{
		appCtx:    appCtx,
		introRepo: repository.NewIntroRepository(appCtx.DB),
		matchRepo: repository.NewMatchRepository(appCtx.DB),
		userRepo:  repository.NewUserRepository(appCtx.DB),
		auditRepo: repository.NewAuditRepository(appCtx.DB),
		email:     email,
	}
}

// Introduction is the collaborator-facing view of a completed intro.
type Introduction struct {
	ID     uint64 `json:"id"`
	Status string `json:"status"`
}

// CreateIntroduction finalizes a mutual match: it assigns the reveal token
// and sends the contact-reveal email to both parties. The intro stays in
// `mutual`; the transition to `completed` belongs to the conversation
// follow-up flow outside the matching core.
// Email sends are best-effort; a failed send is logged and swallowed so the
// introduction itself never fails on delivery.
func (s *Service) CreateIntroduction(ctx context.Context, matchID uint64, ipAddress, userAgent string) (*Introduction, error) {
	intro, err := s.introRepo.GetByMatchID(ctx, matchID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if intro == nil {
		return nil, svcErr.NotFound("intro not found for match")
	}
	if intro.Status != db.IntroStatusMutual {
		return nil, svcErr.BadRequest("introduction requires a mutual match")
	}

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	intro.RevealToken = uuid.NewString()
	if err := s.introRepo.Save(ctx, intro); err != nil {
		return nil, svcErr.Map(err)
	}

	users, err := s.userRepo.GetManyByID(ctx, []uint64{match.UserAID, match.UserBID})
	if err != nil {
		return nil, svcErr.Map(err)
	}

	s.auditRepo.Record(ctx, match.UserAID, "intro_created", map[string]any{"match_id": matchID}, ipAddress, userAgent)

	userA, userB := users[match.UserAID], users[match.UserBID]
	s.sendReveal(ctx, userA.Email, userA.Name, notify.IntroReveal{
		MatchID:          matchID,
		CounterpartName:  userB.Name,
		CounterpartEmail: userB.Email,
		RevealToken:      intro.RevealToken,
	})
	s.sendReveal(ctx, userB.Email, userB.Name, notify.IntroReveal{
		MatchID:          matchID,
		CounterpartName:  userA.Name,
		CounterpartEmail: userA.Email,
		RevealToken:      intro.RevealToken,
	})

	return &Introduction{ID: intro.ID, Status: intro.Status}, nil
}

func (s *Service) sendReveal(ctx context.Context, email, name string, payload notify.IntroReveal) {
	if err := s.email.SendIntroReveal(ctx, email, name, payload); err != nil {
		s.appCtx.Logger.Warn("intro reveal email failed", "to", email, "match", payload.MatchID, "err", err)
	}
}
