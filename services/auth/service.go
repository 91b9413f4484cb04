package auth

import (
	"context"

	"studiobook/pkg/clock"
	"studiobook/pkg/db/option"
	"studiobook/pkg/errutil"
	"studiobook/pkg/repository"
	"studiobook/pkg/security"
	"studiobook/services/apikey"
	"studiobook/services/cooperator"
	"studiobook/services/venue"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is the access authority: it maps presented credentials to tenant
// identity and answers venue-access questions. It is a pure verification
// layer; no authorization decision is ever cached across requests.
type Service struct {
	db       *gorm.DB
	clk      clock.Clock
	verifier *apikey.Verifier
	issuer   *TokenIssuer
	coops    repository.Repository[cooperator.Cooperator]
	keys     repository.Repository[apikey.APIKey]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Clock    clock.Clock
	Verifier *apikey.Verifier
	Issuer   *TokenIssuer
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		clk:      p.Clock,
		verifier: p.Verifier,
		issuer:   p.Issuer,
		coops:    repository.ProvideStore[cooperator.Cooperator](p.DB),
		keys:     repository.ProvideStore[apikey.APIKey](p.DB),
	}
}

// AuthenticateByKey resolves a verbatim API key to its owning cooperator.
//
// The stored hashes are salted, so this is a linear scan over the live
// credential snapshot. Clients that need a lookup-friendly path use the
// client-credentials flow instead, which addresses the key by its public id.
func (s *Service) AuthenticateByKey(ctx context.Context, plaintext string) (*cooperator.Cooperator, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	if plaintext == "" {
		return nil, errutil.Unauthorized("API key is required")
	}

	now := s.clk.Now()
	snapshot, err := s.keys.Find(ctx, &apikey.APIKey{Status: string(apikey.APIKeyStatusActive)},
		option.Where("expires_at IS NULL OR expires_at > ?", now),
	)
	if err != nil {
		zapLog.Error("failed to load active credentials", zap.Error(err))
		return nil, errutil.Internal("failed to validate API key", errutil.WithErr(err))
	}

	match := s.verifier.Match(snapshot, plaintext)
	if match == nil {
		return nil, errutil.Unauthorized("invalid API key")
	}

	coop, err := s.coops.FindOne(ctx, &cooperator.Cooperator{ID: match.CooperatorID})
	if err != nil {
		zapLog.Error("failed to load cooperator", zap.Error(err))
		return nil, errutil.Internal("failed to validate API key", errutil.WithErr(err))
	}
	if coop == nil || !coop.IsActive {
		return nil, errutil.Unauthorized("cooperator account is inactive")
	}

	s.touchKey(ctx, match.ID)

	return coop, nil
}

// IssueToken implements the OAuth 2.0 client-credentials grant: the client id
// is the credential's public key id, the client secret its plaintext. Every
// failure collapses into the same unauthorized outcome so a caller cannot
// probe which part of the credential was wrong.
func (s *Service) IssueToken(ctx context.Context, clientID, clientSecret string) (*TokenResponse, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	if clientID == "" || clientSecret == "" {
		return nil, errutil.Unauthorized("invalid client credentials")
	}

	key, err := s.keys.FindOne(ctx, &apikey.APIKey{KeyID: clientID})
	if err != nil {
		zapLog.Error("failed to load credential", zap.Error(err))
		return nil, errutil.Internal("failed to issue token", errutil.WithErr(err))
	}
	if key == nil || !key.Live(s.clk.Now()) {
		return nil, errutil.Unauthorized("invalid client credentials")
	}

	if !security.CompareSecret(key.SecretHash, clientSecret) {
		return nil, errutil.Unauthorized("invalid client credentials")
	}

	coop, err := s.coops.FindOne(ctx, &cooperator.Cooperator{ID: key.CooperatorID})
	if err != nil {
		zapLog.Error("failed to load cooperator", zap.Error(err))
		return nil, errutil.Internal("failed to issue token", errutil.WithErr(err))
	}
	if coop == nil || !coop.IsActive {
		return nil, errutil.Unauthorized("invalid client credentials")
	}

	s.touchKey(ctx, key.ID)

	token, err := s.issuer.Issue(coop)
	if err != nil {
		zapLog.Error("failed to sign token", zap.Error(err))
		return nil, errutil.Internal("failed to issue token", errutil.WithErr(err))
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.issuer.TTL().Seconds()),
	}, nil
}

// AuthenticateByToken validates a bearer token and re-confirms the referenced
// cooperator still exists and is active, so deactivating a tenant revokes
// access immediately even for unexpired tokens.
func (s *Service) AuthenticateByToken(ctx context.Context, raw string) (*cooperator.Cooperator, error) {
	ident, err := s.issuer.Verify(raw)
	if err != nil {
		return nil, errutil.Unauthorized("invalid or expired token")
	}

	coop, err := s.coops.FindOne(ctx, &cooperator.Cooperator{ID: ident.ID})
	if err != nil {
		return nil, errutil.Internal("failed to validate token", errutil.WithErr(err))
	}
	if coop == nil || !coop.IsActive {
		return nil, errutil.Unauthorized("cooperator not found or inactive")
	}

	return coop, nil
}

// HasVenueAccess reports whether the cooperator holds an active grant on an
// active, api-enabled venue.
func (s *Service) HasVenueAccess(ctx context.Context, cooperatorID, venueID string) (bool, error) {
	return s.HasVenueAccessIn(ctx, s.db, cooperatorID, venueID)
}

// HasVenueAccessIn evaluates the same predicate against an explicit storage
// handle, so the reservation engine can re-check access inside its own unit of
// work instead of trusting a decision made before the transaction began.
func (s *Service) HasVenueAccessIn(ctx context.Context, tx *gorm.DB, cooperatorID, venueID string) (bool, error) {
	var n int64
	err := tx.WithContext(ctx).
		Model(&venue.VenueCooperator{}).
		Joins("JOIN venues ON venues.id = venue_cooperators.venue_id").
		Where("venue_cooperators.cooperator_id = ? AND venue_cooperators.venue_id = ? AND venue_cooperators.is_active = ?", cooperatorID, venueID, true).
		Where("venues.is_active = ? AND venues.api_enabled = ?", true, true).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AccessibleVenueIDs lists every venue the cooperator may currently see.
func (s *Service) AccessibleVenueIDs(ctx context.Context, cooperatorID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&venue.VenueCooperator{}).
		Joins("JOIN venues ON venues.id = venue_cooperators.venue_id").
		Where("venue_cooperators.cooperator_id = ? AND venue_cooperators.is_active = ?", cooperatorID, true).
		Where("venues.is_active = ? AND venues.api_enabled = ?", true, true).
		Pluck("venue_cooperators.venue_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// touchKey stamps last-used on a successful authentication. Failure to stamp
// never fails the authentication itself.
func (s *Service) touchKey(ctx context.Context, keyID string) {
	if err := s.keys.Update(ctx, keyID, map[string]interface{}{"last_used_at": s.clk.Now()}); err != nil {
		zap.L().Warn("failed to stamp credential last_used_at", zap.String("key_id", keyID), zap.Error(err))
	}
}
