package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"studiobook/pkg/clock"
	"studiobook/pkg/config"
	"studiobook/pkg/errutil"
	"studiobook/pkg/security"
	"studiobook/services/apikey"
	"studiobook/services/cooperator"
	"studiobook/services/testutil"
	"studiobook/services/venue"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func requireCode(t *testing.T, err error, code errutil.CoreStatus) {
	t.Helper()
	require.Error(t, err)
	var be errutil.BaseError
	require.True(t, errors.As(err, &be), "expected BaseError, got %T: %v", err, err)
	require.Equal(t, code, be.Code)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret-not-for-production"
	cfg.Auth.Issuer = "studio-management-api"
	cfg.Auth.Audience = "cooperators"
	cfg.Auth.TokenTTL = time.Hour
	return cfg
}

func newAuthFixture(t *testing.T) (*Service, *gorm.DB, *clock.Mock) {
	t.Helper()

	db := testutil.NewTestDB(t,
		&cooperator.Cooperator{},
		&apikey.APIKey{},
		&venue.Venue{},
		&venue.VenueCooperator{},
	)

	clk := clock.NewMock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	issuer, err := NewTokenIssuer(testConfig(), clk)
	require.NoError(t, err)

	svc := NewService(ServiceParams{
		DB:       db,
		Clock:    clk,
		Verifier: apikey.NewVerifier(),
		Issuer:   issuer,
	})
	return svc, db, clk
}

func seedCooperator(t *testing.T, db *gorm.DB, id string, active bool) *cooperator.Cooperator {
	t.Helper()
	c := &cooperator.Cooperator{
		ID:       id,
		Name:     "Acme Fitness",
		Email:    "api@acme.example.com",
		IsActive: active,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// seedKey stores a credential and returns its plaintext secret.
func seedKey(t *testing.T, db *gorm.DB, id, cooperatorID, keyID string, mut func(*apikey.APIKey)) string {
	t.Helper()

	secret, err := security.GenerateBase64Secret(16)
	require.NoError(t, err)
	hash, err := security.HashSecret(secret)
	require.NoError(t, err)

	key := &apikey.APIKey{
		ID:           id,
		CooperatorID: cooperatorID,
		KeyID:        keyID,
		SecretHash:   hash,
		Status:       string(apikey.APIKeyStatusActive),
	}
	if mut != nil {
		mut(key)
	}
	require.NoError(t, db.Create(key).Error)
	return secret
}

func TestAuthenticateByKeySuccess(t *testing.T) {
	svc, db, _ := newAuthFixture(t)
	seedCooperator(t, db, "coop-1", true)
	secret := seedKey(t, db, "key-1", "coop-1", "sbk_live_one", nil)

	coop, err := svc.AuthenticateByKey(context.Background(), secret)
	require.NoError(t, err)
	require.Equal(t, "coop-1", coop.ID)

	var key apikey.APIKey
	require.NoError(t, db.Where("id = ?", "key-1").First(&key).Error)
	require.NotNil(t, key.LastUsedAt)
}

func TestAuthenticateByKeyEmpty(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.AuthenticateByKey(context.Background(), "")
	requireCode(t, err, errutil.StatusUnauthorized)
}

func TestAuthenticateByKeyWrongSecret(t *testing.T) {
	svc, db, _ := newAuthFixture(t)
	seedCooperator(t, db, "coop-1", true)
	seedKey(t, db, "key-1", "coop-1", "sbk_live_one", nil)

	_, err := svc.AuthenticateByKey(context.Background(), "not-the-secret")
	requireCode(t, err, errutil.StatusUnauthorized)
}

func TestAuthenticateByKeyRevoked(t *testing.T) {
	svc, db, _ := newAuthFixture(t)
	seedCooperator(t, db, "coop-1", true)
	secret := seedKey(t, db, "key-1", "coop-1", "sbk_live_one", func(k *apikey.APIKey) {
		k.Status = string(apikey.APIKeyStatusRevoked)
	})

	_, err := svc.AuthenticateByKey(context.Background(), secret)
	requireCode(t, err, errutil.StatusUnauthorized)
}

func TestAuthenticateByKeyExpired(t *testing.T) {
	svc, db, clk := newAuthFixture(t)
	seedCooperator(t, db, "coop-1", true)
	past := clk.Now().Add(-time.Minute)
	secret := seedKey(t, db, "key-1", "coop-1", "sbk_live_one", func(k *apikey.APIKey) {
		k.ExpiresAt = &past
	})

	_, err := svc.AuthenticateByKey(context.Background(), secret)
	requireCode(t, err, errutil.StatusUnauthorized)
}

func TestAuthenticateByKeyRotation(t *testing.T) {
	// During rotation both credentials are live and either authenticates.
	// Revoking the old one then rejects it while the replacement keeps
	// working untouched.
	svc, db, _ := newAuthFixture(t)
	seedCooperator(t, db, "coop-1", true)
	oldSecret := seedKey(t, db, "key-old", "coop-1", "sbk_live_old", nil)
	newSecret := seedKey(t, db, "key-new", "coop-1", "sbk_live_new", nil)

	for _, secret := range []string{oldSecret, newSecret} {
		coop, err := svc.AuthenticateByKey(context.Background(), secret)
		require.NoError(t, err)
		require.Equal(t, "coop-1", coop.ID)
	}

	require.NoError(t, db.Model(&apikey.APIKey{}).
		Where("id = ?", "key-old").
		UpdateColumn("status", string(apikey.APIKeyStatusRevoked)).Error)

	_, err := svc.AuthenticateByKey(context.Background(), oldSecret)
	requireCode(t, err, errutil.StatusUnauthorized)

	coop, err := svc.AuthenticateByKey(context.Background(), newSecret)
	require.NoError(t, err)
	require.Equal(t, "coop-1", coop.ID)
}

func TestAuthenticateByKeyInactiveCooperator(t *testing.T) {
	svc, db, _ := newAuthFixture(t)
	seedCooperator(t, db, "coop-1", false)
	secret := seedKey(t, db, "key-1", "coop-1", "sbk_live_one", nil)

	_, err := svc.AuthenticateByKey(context.Background(), secret)
	requireCode(t, err, errutil.StatusUnauthorized)
}

func TestIssueAndVerifyToken(t *testing.T) {
	svc, db, _ := newAuthFixture(t)
	seedCooperator(t, db, "coop-1", true)
	secret := seedKey(t, db, "key-1", "coop-1", "sbk_live_one", nil)

	resp, err := svc.IssueToken(context.Background(), "sbk_live_one", secret)
	require.NoError(t, err)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, 3600, resp.ExpiresIn)
	require.NotEmpty(t, resp.AccessToken)

	coop, err := svc.AuthenticateByToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "coop-1", coop.ID)
}

func TestIssueTokenWrongSecret(t *testing.T) {
	svc, db, _ := newAuthFixture(t)
	seedCooperator(t, db, "coop-1", true)
	seedKey(t, db, "key-1", "coop-1", "sbk_live_one", nil)

	_, err := svc.IssueToken(context.Background(), "sbk_live_one", "wrong")
	requireCode(t, err, errutil.StatusUnauthorized)
}

func TestIssueTokenUnknownClient(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.IssueToken(context.Background(), "sbk_live_ghost", "whatever")
	requireCode(t, err, errutil.StatusUnauthorized)
}

func TestIssueTokenRevokedKey(t *testing.T) {
	svc, db, _ := newAuthFixture(t)
	seedCooperator(t, db, "coop-1", true)
	secret := seedKey(t, db, "key-1", "coop-1", "sbk_live_one", func(k *apikey.APIKey) {
		k.Status = string(apikey.APIKeyStatusRevoked)
	})

	_, err := svc.IssueToken(context.Background(), "sbk_live_one", secret)
	requireCode(t, err, errutil.StatusUnauthorized)
}

func TestTokenExpires(t *testing.T) {
	svc, db, clk := newAuthFixture(t)
	seedCooperator(t, db, "coop-1", true)
	secret := seedKey(t, db, "key-1", "coop-1", "sbk_live_one", nil)

	resp, err := svc.IssueToken(context.Background(), "sbk_live_one", secret)
	require.NoError(t, err)

	// Past TTL plus validation leeway.
	clk.Advance(2 * time.Hour)

	_, err = svc.AuthenticateByToken(context.Background(), resp.AccessToken)
	requireCode(t, err, errutil.StatusUnauthorized)
}

func TestTokenRevokedByDeactivatingCooperator(t *testing.T) {
	svc, db, _ := newAuthFixture(t)
	seedCooperator(t, db, "coop-1", true)
	secret := seedKey(t, db, "key-1", "coop-1", "sbk_live_one", nil)

	resp, err := svc.IssueToken(context.Background(), "sbk_live_one", secret)
	require.NoError(t, err)

	require.NoError(t, db.Model(&cooperator.Cooperator{ID: "coop-1"}).
		UpdateColumn("is_active", false).Error)

	_, err = svc.AuthenticateByToken(context.Background(), resp.AccessToken)
	requireCode(t, err, errutil.StatusUnauthorized)
}

func TestAuthenticateByTokenGarbage(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.AuthenticateByToken(context.Background(), "not.a.token")
	requireCode(t, err, errutil.StatusUnauthorized)
}

func seedVenueWithGrant(t *testing.T, db *gorm.DB, venueID, cooperatorID string, venueActive, apiEnabled, grantActive bool) {
	t.Helper()
	require.NoError(t, db.Create(&venue.Venue{
		ID:         venueID,
		Name:       "Studio " + venueID,
		IsActive:   venueActive,
		APIEnabled: apiEnabled,
	}).Error)
	require.NoError(t, db.Create(&venue.VenueCooperator{
		ID:           venueID + "/" + cooperatorID,
		VenueID:      venueID,
		CooperatorID: cooperatorID,
		IsActive:     grantActive,
	}).Error)
}

func TestHasVenueAccess(t *testing.T) {
	svc, db, _ := newAuthFixture(t)
	seedVenueWithGrant(t, db, "venue-1", "coop-1", true, true, true)
	seedVenueWithGrant(t, db, "venue-2", "coop-1", true, true, false)
	seedVenueWithGrant(t, db, "venue-3", "coop-1", true, false, true)
	seedVenueWithGrant(t, db, "venue-4", "coop-1", false, true, true)

	ok, err := svc.HasVenueAccess(context.Background(), "coop-1", "venue-1")
	require.NoError(t, err)
	require.True(t, ok)

	for _, venueID := range []string{"venue-2", "venue-3", "venue-4", "venue-missing"} {
		ok, err := svc.HasVenueAccess(context.Background(), "coop-1", venueID)
		require.NoError(t, err)
		require.False(t, ok, "expected no access to %s", venueID)
	}

	ok, err = svc.HasVenueAccess(context.Background(), "coop-other", "venue-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasVenueAccessRevocationIsImmediate(t *testing.T) {
	svc, db, _ := newAuthFixture(t)
	seedVenueWithGrant(t, db, "venue-1", "coop-1", true, true, true)

	ok, err := svc.HasVenueAccess(context.Background(), "coop-1", "venue-1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, db.Model(&venue.VenueCooperator{}).
		Where("venue_id = ? AND cooperator_id = ?", "venue-1", "coop-1").
		UpdateColumn("is_active", false).Error)

	ok, err = svc.HasVenueAccess(context.Background(), "coop-1", "venue-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAccessibleVenueIDs(t *testing.T) {
	svc, db, _ := newAuthFixture(t)
	seedVenueWithGrant(t, db, "venue-1", "coop-1", true, true, true)
	seedVenueWithGrant(t, db, "venue-2", "coop-1", true, true, true)
	seedVenueWithGrant(t, db, "venue-3", "coop-1", false, true, true)

	ids, err := svc.AccessibleVenueIDs(context.Background(), "coop-1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"venue-1", "venue-2"}, ids)

	ids, err = svc.AccessibleVenueIDs(context.Background(), "coop-none")
	require.NoError(t, err)
	require.Empty(t, ids)
}
