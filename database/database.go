// File: /database/database.go
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/rs/zerolog"

	"eventhub-api/config"
	"eventhub-api/logging"
	"eventhub-api/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	level, writerLevel := logger.Warn, zerolog.WarnLevel
	if cfg.Debug {
		level, writerLevel = logger.Info, zerolog.DebugLevel
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(logging.Writer{Level: writerLevel}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := SetupJoinTables(db); err != nil {
		return nil, err
	}

	return db, nil
}

// SetupJoinTables registers the explicit join models so many2many
// associations keep their ids and unique indexes.
func SetupJoinTables(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Event{}, "Activities", &models.ActivityForEvent{}); err != nil {
		return fmt.Errorf("failed to set up event activities join table: %w", err)
	}
	if err := db.SetupJoinTable(&models.User{}, "Activities", &models.FavoriteActivity{}); err != nil {
		return fmt.Errorf("failed to set up favorite activities join table: %w", err)
	}
	return nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Activity{},
		&models.Location{},
		&models.Event{},
		&models.ActivityForEvent{},
		&models.FavoriteActivity{},
		&models.Participation{},
		&models.FavoriteEvent{},
		&models.Subscribe{},
		&models.Comment{},
		&models.Like{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := addCustomIndexes(db); err != nil {
		return fmt.Errorf("failed to add custom indexes: %w", err)
	}

	if err := addDatabaseConstraints(db); err != nil {
		return fmt.Errorf("failed to add database constraints: %w", err)
	}

	return nil
}

func addCustomIndexes(db *gorm.DB) error {
	// Comment listing per event, newest first
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_comments_event_id_desc ON comments(event_id, id DESC)").Error; err != nil {
		logging.Warn().Err(err).Msg("could not create index for comments")
	}

	// Participation lookups per user for the is_*_participation filters
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_participations_user_event ON participations(user_id, event_id)").Error; err != nil {
		logging.Warn().Err(err).Msg("could not create index for participations")
	}

	return nil
}

func addDatabaseConstraints(db *gorm.DB) error {
	// SQLite cannot add a CHECK constraint to an existing table; self
	// subscription is rejected by the service there.
	if db.Dialector.Name() != "mysql" {
		return nil
	}

	if err := db.Exec("ALTER TABLE subscribes ADD CONSTRAINT ck_subscribes_no_self_subscribe CHECK (user_id <> author_id)").Error; err != nil {
		// Ignore error if constraint already exists
		logging.Warn().Err(err).Msg("could not add check constraint for subscribes")
	}

	if err := db.Exec("ALTER TABLE events ADD CONSTRAINT ck_events_positive_duration CHECK (duration > 0)").Error; err != nil {
		logging.Warn().Err(err).Msg("could not add check constraint for events")
	}

	return nil
}

// SeedActivities inserts the named activities, skipping those that exist.
// It returns how many rows were created.
func SeedActivities(db *gorm.DB, names []string) (int64, error) {
	activities := make([]models.Activity, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		activities = append(activities, models.Activity{Name: name})
	}
	if len(activities) == 0 {
		return 0, nil
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&activities)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to seed activities: %w", res.Error)
	}
	logging.Info().Int64("created", res.RowsAffected).Int("requested", len(activities)).Msg("activities seeded")
	return res.RowsAffected, nil
}
