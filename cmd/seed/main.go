package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"studiobook/pkg/config"
	"studiobook/pkg/db"
	"studiobook/pkg/security"
	"studiobook/services/apikey"
	"studiobook/services/class"
	"studiobook/services/cooperator"
	"studiobook/services/venue"
)

// Seeds a development database with demo cooperators, venues, grants,
// classes, and one API key per cooperator. Plaintext secrets are printed
// exactly once; only bcrypt hashes are persisted.
func main() {
	logger, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	gdb := db.New(cfg, db.Dialect(cfg))

	if err := gdb.AutoMigrate(
		&cooperator.Cooperator{},
		&apikey.APIKey{},
		&venue.Venue{},
		&venue.VenueCooperator{},
		&class.Class{},
	); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	if err := seed(gdb, cfg.Auth.KeyIDPrefix); err != nil {
		logger.Fatal("seed", zap.Error(err))
	}

	logger.Info("seed complete")
}

func seed(gdb *gorm.DB, keyPrefix string) error {
	coops := []*cooperator.Cooperator{
		{
			ID:          uuid.NewString(),
			Name:        "FitPass Aggregator",
			Email:       "api@fitpass.example.com",
			Description: "Multi-studio fitness pass platform",
			IsActive:    true,
		},
		{
			ID:          uuid.NewString(),
			Name:        "Corporate Wellness Co",
			Email:       "integrations@corpwellness.example.com",
			Description: "Employee wellness benefits provider",
			IsActive:    true,
		},
	}

	venues := []*venue.Venue{
		newVenue("Zen Flow Yoga", "hello@zenflow.example.com", "Austin", "TX", true),
		newVenue("Iron Temple Gym", "front@irontemple.example.com", "Austin", "TX", true),
		newVenue("Pulse Cycling Studio", "ride@pulsecycle.example.com", "Dallas", "TX", true),
		// Active but not opted in to the partner API; invisible to cooperators.
		newVenue("Private Pilates Loft", "studio@pilatesloft.example.com", "Houston", "TX", false),
	}

	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(coops).Error; err != nil {
			return err
		}
		if err := tx.Create(venues).Error; err != nil {
			return err
		}

		// FitPass sees every API-enabled venue, Corporate Wellness only the
		// first two.
		var grants []*venue.VenueCooperator
		for i, v := range venues[:3] {
			grants = append(grants, newGrant(v.ID, coops[0].ID))
			if i < 2 {
				grants = append(grants, newGrant(v.ID, coops[1].ID))
			}
		}
		if err := tx.Create(grants).Error; err != nil {
			return err
		}

		if err := tx.Create(demoClasses(venues)).Error; err != nil {
			return err
		}

		for _, c := range coops {
			keyID, secret, err := issueKey(tx, c, keyPrefix)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s\n  key_id: %s\n  secret: %s\n", c.Name, keyID, secret)
		}
		return nil
	})
}

func newVenue(name, email, city, state string, apiEnabled bool) *venue.Venue {
	return &venue.Venue{
		ID:         uuid.NewString(),
		Name:       name,
		Slug:       slug.Make(name),
		Email:      email,
		City:       city,
		State:      state,
		Country:    "US",
		IsActive:   true,
		APIEnabled: apiEnabled,
	}
}

func newGrant(venueID, cooperatorID string) *venue.VenueCooperator {
	return &venue.VenueCooperator{
		ID:           uuid.NewString(),
		VenueID:      venueID,
		CooperatorID: cooperatorID,
		IsActive:     true,
	}
}

func demoClasses(venues []*venue.Venue) []*class.Class {
	type tpl struct {
		name       string
		instructor string
		level      string
		spots      int
		price      float64
		dur        time.Duration
	}
	templates := []tpl{
		{"Morning Vinyasa", "Maya Chen", "beginner", 20, 18, time.Hour},
		{"Power Hour", "Derek Stone", "advanced", 12, 25, time.Hour},
		{"Sunset Ride", "Ana Lucia", "intermediate", 30, 22, 45 * time.Minute},
	}

	base := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	var out []*class.Class
	for vi, v := range venues[:3] {
		for ti, t := range templates {
			start := base.Add(time.Duration(vi*3+ti) * 2 * time.Hour)
			out = append(out, &class.Class{
				ID:              uuid.NewString(),
				VenueID:         v.ID,
				Name:            t.name,
				InstructorName:  t.instructor,
				StartTime:       start,
				EndTime:         start.Add(t.dur),
				SpotsTotal:      t.spots,
				SpotsAvailable:  t.spots,
				Price:           t.price,
				DifficultyLevel: t.level,
				IsActive:        true,
			})
		}
	}
	return out
}

func issueKey(tx *gorm.DB, c *cooperator.Cooperator, prefix string) (string, string, error) {
	secret, err := security.GenerateBase64Secret(32)
	if err != nil {
		return "", "", err
	}
	hash, err := security.HashSecret(secret)
	if err != nil {
		return "", "", err
	}

	suffix, err := security.GenerateBase64Secret(9)
	if err != nil {
		return "", "", err
	}
	keyID := prefix + suffix

	key := &apikey.APIKey{
		ID:           uuid.NewString(),
		CooperatorID: c.ID,
		KeyID:        keyID,
		Name:         c.Name + " default key",
		SecretHash:   hash,
		Scopes:       []string{"venues:read", "classes:read", "reservations:write"},
		Status:       string(apikey.APIKeyStatusActive),
	}
	if err := tx.Create(key).Error; err != nil {
		return "", "", err
	}
	// The secret is sent verbatim in X-API-Key, or as client_secret with the
	// key id as client_id in the token flow.
	return keyID, secret, nil
}
