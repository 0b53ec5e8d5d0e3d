package matches

import (
	"context"
	"strings"
	"time"

	"github.com/grovehq/grove/internal/app"
	"github.com/grovehq/grove/internal/db"
	svcErr "github.com/grovehq/grove/internal/errors"
	"github.com/grovehq/grove/internal/matching"
	"github.com/grovehq/grove/internal/notify"
	"github.com/grovehq/grove/internal/repository"
	"github.com/grovehq/grove/internal/service/intros"
)

const (
	// DefaultListLimit caps how many stored pending matches one request returns.
	DefaultListLimit = 10

	reasonSeparator = ". "
)

// Service is the matching facade: it serves stored pending matches when they
// exist, runs the engine otherwise, and owns the accept/pass double opt-in
// state machine.
type Service struct {
	appCtx    *app.AppContext
	engine    *matching.Engine
	matchRepo *repository.MatchRepository
	userRepo  *repository.UserRepository
	auditRepo *repository.AuditRepository
	introRepo *repository.IntroRepository
	introsSvc *intros.Service
	email     notify.EmailSender
}

// NewService creates the matches service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, engine *matching.Engine, introsSvc *intros.Service, email notify.EmailSender) *Service {
	return &Service{
		appCtx:    appCtx,
		engine:    engine,
		matchRepo: repository.NewMatchRepository(appCtx.DB),
		userRepo:  repository.NewUserRepository(appCtx.DB),
		auditRepo: repository.NewAuditRepository(appCtx.DB),
		introRepo: repository.NewIntroRepository(appCtx.DB),
		introsSvc: introsSvc,
		email:     email,
	}
}

// MatchOptions are per-request knobs from the HTTP layer.
type MatchOptions struct {
	Limit              int
	MinSimilarityScore float64
}

// MatchDTO is the client-facing view of one match.
type MatchDTO struct {
	ID              uint64    `json:"id"`
	CandidateID     uint64    `json:"candidateId"`
	Name            string    `json:"name"`
	Score           float64   `json:"score"`
	Reason          string    `json:"reason"`
	SharedInterests []string  `json:"sharedInterests"`
	Confidence      float64   `json:"confidence"`
	Status          string    `json:"status"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// DecisionResponse is the outcome of an accept or pass.
type DecisionResponse struct {
	Status      string `json:"status"`
	MutualMatch bool   `json:"mutualMatch"`
}

// GetMatchesForUser returns the user's matches.
//
// Behavior:
//  1. Pending, unexpired matches already exist (either side) → they are
//     returned directly, best similarity first; the engine is NOT invoked.
//     Calling twice inside the same pending window therefore never creates
//     duplicate rows.
//  2. Otherwise the engine generates fresh matches; each is persisted with a
//     7-day expiry and both parties get a best-effort notification email.
func (s *Service) GetMatchesForUser(ctx context.Context, userID uint64, opts MatchOptions) ([]MatchDTO, error) {
	s.appCtx.Logger.Debug("GetMatchesForUser called", "user", userID, "limit", opts.Limit)

	now := time.Now()
	listLimit := opts.Limit
	if listLimit <= 0 {
		listLimit = DefaultListLimit
	}

	existing, err := s.matchRepo.GetPendingForUser(ctx, userID, now, listLimit)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if len(existing) > 0 {
		return s.toDTOs(ctx, userID, existing)
	}

	result, err := s.engine.GenerateMatches(ctx, matching.Request{
		SourceUserID:       userID,
		Limit:              opts.Limit,
		MinSimilarityScore: opts.MinSimilarityScore,
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}

	s.appCtx.Logger.Debug("engine run complete",
		"user", userID,
		"matches", len(result.Matches),
		"candidates", result.Metadata.TotalCandidates,
		"filtered", result.Metadata.TotalFiltered,
		"elapsed", result.Metadata.Elapsed,
	)

	source, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	created := make([]db.Match, 0, len(result.Matches))
	for _, cand := range result.Matches {
		reason := matching.FallbackReason
		if len(cand.Reasons) > 0 {
			reason = cand.Reasons[0]
		}
		match := db.Match{
			UserAID:         userID,
			UserBID:         cand.UserID,
			SimilarityScore: cand.SimilarityScore,
			FinalScore:      cand.FinalScore,
			SharedInterest:  reason,
			Context:         strings.Join(cand.Reasons, reasonSeparator),
			Status:          db.MatchStatusPending,
			ExpiresAt:       now.Add(s.appCtx.Cfg.Matching.MatchTTL),
		}
		if err := s.matchRepo.Create(ctx, &match); err != nil {
			return nil, svcErr.Map(err)
		}
		created = append(created, match)
	}

	candidates, err := s.userRepo.GetManyByID(ctx, candidateIDs(created, userID))
	if err != nil {
		return nil, svcErr.Map(err)
	}

	// Both sides are notified independently and both sends are swallowed on
	// failure. The symmetry is deliberate: neither party can infer whether
	// the other received a notification.
	for _, match := range created {
		candID, _ := match.OtherUserID(userID)
		cand := candidates[candID]
		s.sendNotification(ctx, source.Email, source.Name, &match, cand.Name)
		s.sendNotification(ctx, cand.Email, cand.Name, &match, source.Name)
		s.refreshPendingCount(ctx, candID)
	}
	s.refreshPendingCount(ctx, userID)

	return s.toDTOs(ctx, userID, created)
}

// AcceptMatch advances the double opt-in state machine by one accept.
//
// State per intro: none → accepted_by_a|accepted_by_b → mutual →
// (via intros service) completed. The second accept triggers introduction
// creation and flips the match to accepted.
//
// The read-then-update sequence is not wrapped in a transaction; two
// simultaneous accepts from opposite sides can race on the "am I second"
// check. Accepted at this system's scale, see DESIGN.md.
func (s *Service) AcceptMatch(ctx context.Context, matchID, userID uint64, ipAddress, userAgent string) (*DecisionResponse, error) {
	match, err := s.validateDecision(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}

	intro, err := s.introRepo.GetByMatchID(ctx, matchID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	isUserA := match.UserAID == userID

	if intro == nil {
		// first accept on this match
		intro = &db.Intro{
			MatchID:     matchID,
			UserAStatus: db.IntroSidePending,
			UserBStatus: db.IntroSidePending,
		}
		if isUserA {
			intro.UserAStatus = db.IntroSideAccepted
			intro.Status = db.IntroStatusAcceptedByA
		} else {
			intro.UserBStatus = db.IntroSideAccepted
			intro.Status = db.IntroStatusAcceptedByB
		}
		if err := s.introRepo.Create(ctx, intro); err != nil {
			return nil, svcErr.Map(err)
		}

		s.auditRepo.Record(ctx, userID, "match_accepted", map[string]any{"match_id": matchID}, ipAddress, userAgent)
		return &DecisionResponse{Status: "accepted", MutualMatch: false}, nil
	}

	// other side already accepted, or this is a re-accept
	if isUserA {
		intro.UserAStatus = db.IntroSideAccepted
	} else {
		intro.UserBStatus = db.IntroSideAccepted
	}

	if intro.UserAStatus == db.IntroSideAccepted && intro.UserBStatus == db.IntroSideAccepted &&
		intro.Status != db.IntroStatusMutual && intro.Status != db.IntroStatusCompleted {
		intro.Status = db.IntroStatusMutual
		if err := s.introRepo.Save(ctx, intro); err != nil {
			return nil, svcErr.Map(err)
		}

		if _, err := s.introsSvc.CreateIntroduction(ctx, matchID, ipAddress, userAgent); err != nil {
			return nil, svcErr.Map(err)
		}
		if err := s.matchRepo.UpdateStatus(ctx, matchID, db.MatchStatusAccepted); err != nil {
			return nil, svcErr.Map(err)
		}

		s.refreshPendingCount(ctx, match.UserAID)
		s.refreshPendingCount(ctx, match.UserBID)
		s.auditRepo.Record(ctx, userID, "match_mutual", map[string]any{"match_id": matchID}, ipAddress, userAgent)
		return &DecisionResponse{Status: "mutual_match", MutualMatch: true}, nil
	}

	// re-accept, idempotent
	if err := s.introRepo.Save(ctx, intro); err != nil {
		return nil, svcErr.Map(err)
	}
	s.auditRepo.Record(ctx, userID, "match_accepted", map[string]any{"match_id": matchID}, ipAddress, userAgent)

	mutual := intro.Status == db.IntroStatusMutual || intro.Status == db.IntroStatusCompleted
	status := "accepted"
	if mutual {
		status = "mutual_match"
	}
	return &DecisionResponse{Status: status, MutualMatch: mutual}, nil
}

// PassMatch declines a pending match. Terminal: a rejected match can be
// neither re-accepted nor re-passed.
func (s *Service) PassMatch(ctx context.Context, matchID, userID uint64, ipAddress, userAgent string) (*DecisionResponse, error) {
	match, err := s.validateDecision(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.matchRepo.UpdateStatus(ctx, matchID, db.MatchStatusRejected); err != nil {
		return nil, svcErr.Map(err)
	}

	s.refreshPendingCount(ctx, match.UserAID)
	s.refreshPendingCount(ctx, match.UserBID)
	s.auditRepo.Record(ctx, userID, "match_passed", map[string]any{"match_id": matchID}, ipAddress, userAgent)
	return &DecisionResponse{Status: "declined", MutualMatch: false}, nil
}

// PendingMatchCount returns the user's pending-match badge counter,
// cache-first with DB fallback (1h TTL, refreshed on access).
func (s *Service) PendingMatchCount(ctx context.Context, userID uint64) (int64, error) {
	if cached, hit, err := s.appCtx.RedisCache.GetPendingMatchCount(ctx, userID); err == nil && hit {
		return cached, nil
	}

	count, err := s.matchRepo.CountPendingForUser(ctx, userID, time.Now())
	if err != nil {
		return 0, svcErr.Map(err)
	}
	if err := s.appCtx.RedisCache.SetPendingMatchCount(ctx, userID, count); err != nil {
		s.appCtx.Logger.Warn("pending count cache write failed", "user", userID, "err", err)
	}
	return count, nil
}

// validateDecision loads the match and enforces the accept/pass guards:
// exists, requester is a party, pending, unexpired.
func (s *Service) validateDecision(ctx context.Context, matchID, userID uint64) (*db.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !match.HasUser(userID) {
		return nil, svcErr.Forbidden("you are not part of this match")
	}
	if match.Status != db.MatchStatusPending {
		return nil, svcErr.BadRequest("match is no longer pending")
	}
	if !match.ExpiresAt.After(time.Now()) {
		return nil, svcErr.BadRequest("match has expired")
	}
	return match, nil
}

func (s *Service) toDTOs(ctx context.Context, userID uint64, rows []db.Match) ([]MatchDTO, error) {
	users, err := s.userRepo.GetManyByID(ctx, candidateIDs(rows, userID))
	if err != nil {
		return nil, svcErr.Map(err)
	}

	dtos := make([]MatchDTO, 0, len(rows))
	for _, m := range rows {
		candID, _ := m.OtherUserID(userID)
		var interests []string
		if m.Context != "" {
			interests = strings.Split(m.Context, reasonSeparator)
		}
		dtos = append(dtos, MatchDTO{
			ID:              m.ID,
			CandidateID:     candID,
			Name:            users[candID].Name,
			Score:           m.SimilarityScore,
			Reason:          m.SharedInterest,
			SharedInterests: interests,
			Confidence:      m.FinalScore,
			Status:          m.Status,
			ExpiresAt:       m.ExpiresAt,
		})
	}
	return dtos, nil
}

// sendNotification is best-effort by contract: a failed send is logged and
// never fails the enclosing request.
func (s *Service) sendNotification(ctx context.Context, toEmail, toName string, match *db.Match, counterpartName string) {
	err := s.email.SendMatchNotification(ctx, toEmail, toName, notify.MatchNotification{
		MatchID:        match.ID,
		Name:           counterpartName,
		Score:          match.SimilarityScore,
		SharedInterest: match.SharedInterest,
		Reason:         match.SharedInterest,
	})
	if err != nil {
		s.appCtx.Logger.Warn("match notification email failed", "to", toEmail, "match", match.ID, "err", err)
	}
}

func (s *Service) refreshPendingCount(ctx context.Context, userID uint64) {
	if err := s.appCtx.RedisCache.InvalidatePendingMatchCount(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("pending count invalidation failed", "user", userID, "err", err)
	}
}

func candidateIDs(matches []db.Match, userID uint64) []uint64 {
	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		if other, ok := m.OtherUserID(userID); ok {
			ids = append(ids, other)
		}
	}
	return ids
}
