// Package settings persists the user settings of the pinger in a SQLite
// database. Every setting is stored independently, keyed by name.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/digineo/go-logwrap"
	"github.com/digineo/go-pinger/monitor"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var log = &logwrap.Instance{}

// SetLogger allows updating the Logger. For details, see
// "github.com/digineo/go-logwrap".Instance.SetLogger.
var SetLogger = log.SetLogger

// Setting keys.
const (
	KeyTargets   = "pinger.targets"
	KeyInterval  = "pinger.pingInterval"     // seconds
	KeyThreshold = "pinger.badPingThreshold" // milliseconds
	KeyPaused    = "pinger.isPaused"
)

// ErrInvalidValue is returned for values that cannot be stored or decoded.
var ErrInvalidValue = errors.New("invalid setting value")

type entry struct {
	Key       string `gorm:"primaryKey;type:varchar(100)"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (entry) TableName() string {
	return "settings"
}

// Store reads and writes settings.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %q: %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("migrating database %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) get(key string) (string, bool, error) {
	var e entry
	err := s.db.Where(&entry{Key: key}).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return e.Value, true, nil
}

func (s *Store) set(db *gorm.DB, key, value string) error {
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// HasTargets reports whether a target list has been stored.
func (s *Store) HasTargets() (bool, error) {
	_, found, err := s.get(KeyTargets)
	return found, err
}

// Targets returns the stored target list. A missing or undecodable list
// yields the default targets.
func (s *Store) Targets() ([]monitor.Target, error) {
	value, found, err := s.get(KeyTargets)
	if err != nil {
		return nil, err
	}
	if !found {
		return monitor.DefaultTargets(), nil
	}

	targets, err := DecodeTargets(value)
	if err != nil {
		log.Errorf("using default targets: %v", err)
		return monitor.DefaultTargets(), nil
	}
	return targets, nil
}

// SetTargets stores the target list.
func (s *Store) SetTargets(targets []monitor.Target) error {
	value, err := EncodeTargets(targets)
	if err != nil {
		return err
	}
	return s.set(s.db, KeyTargets, value)
}

// Interval returns the ping interval. A missing value yields the default.
func (s *Store) Interval() (time.Duration, error) {
	def := monitor.DefaultConfig().Interval

	value, found, err := s.get(KeyInterval)
	if err != nil || !found {
		return def, err
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || secs <= 0 {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidValue, KeyInterval, value)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// SetInterval stores the ping interval.
func (s *Store) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s=%v", ErrInvalidValue, KeyInterval, d)
	}
	return s.set(s.db, KeyInterval, formatSeconds(d))
}

// Threshold returns the bad latency threshold in milliseconds. A missing
// value yields the default.
func (s *Store) Threshold() (int, error) {
	def := monitor.DefaultConfig().ThresholdMs

	value, found, err := s.get(KeyThreshold)
	if err != nil || !found {
		return def, err
	}
	ms, err := strconv.Atoi(value)
	if err != nil || ms <= 0 {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidValue, KeyThreshold, value)
	}
	return ms, nil
}

// SetThreshold stores the bad latency threshold.
func (s *Store) SetThreshold(ms int) error {
	if ms <= 0 {
		return fmt.Errorf("%w: %s=%d", ErrInvalidValue, KeyThreshold, ms)
	}
	return s.set(s.db, KeyThreshold, strconv.Itoa(ms))
}

// Paused returns the paused flag.
func (s *Store) Paused() (bool, error) {
	value, found, err := s.get(KeyPaused)
	if err != nil || !found {
		return false, err
	}
	paused, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidValue, KeyPaused, value)
	}
	return paused, nil
}

// SetPaused stores the paused flag.
func (s *Store) SetPaused(paused bool) error {
	return s.set(s.db, KeyPaused, strconv.FormatBool(paused))
}

// Load reads the configuration and the targets. Invalid values are
// logged and replaced by their defaults; only database errors are
// returned.
func (s *Store) Load() (monitor.Config, []monitor.Target, error) {
	cfg := monitor.DefaultConfig()
	var err error

	if cfg.Interval, err = s.Interval(); err != nil && !errors.Is(err, ErrInvalidValue) {
		return cfg, nil, err
	} else if err != nil {
		log.Errorf("%v", err)
	}
	if cfg.ThresholdMs, err = s.Threshold(); err != nil && !errors.Is(err, ErrInvalidValue) {
		return cfg, nil, err
	} else if err != nil {
		log.Errorf("%v", err)
	}
	if cfg.Paused, err = s.Paused(); err != nil && !errors.Is(err, ErrInvalidValue) {
		return cfg, nil, err
	} else if err != nil {
		log.Errorf("%v", err)
	}

	targets, err := s.Targets()
	if err != nil {
		return cfg, nil, err
	}
	return cfg, targets, nil
}

// Save stores all values of cfg at once.
func (s *Store) Save(cfg monitor.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.set(tx, KeyInterval, formatSeconds(cfg.Interval)); err != nil {
			return err
		}
		if err := s.set(tx, KeyThreshold, strconv.Itoa(cfg.ThresholdMs)); err != nil {
			return err
		}
		return s.set(tx, KeyPaused, strconv.FormatBool(cfg.Paused))
	})
}

// Reset removes all settings, so that the defaults apply again.
func (s *Store) Reset() error {
	err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entry{}).Error
	if err != nil {
		return fmt.Errorf("resetting settings: %w", err)
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// EncodeTargets serializes targets as an ordered list of
// {id, host, name, isEnabled} records.
func EncodeTargets(targets []monitor.Target) (string, error) {
	if targets == nil {
		targets = []monitor.Target{}
	}
	b, err := json.Marshal(targets)
	if err != nil {
		return "", fmt.Errorf("encoding targets: %w", err)
	}
	return string(b), nil
}

// DecodeTargets parses the output of EncodeTargets.
func DecodeTargets(value string) ([]monitor.Target, error) {
	var targets []monitor.Target
	if err := json.Unmarshal([]byte(value), &targets); err != nil {
		return nil, fmt.Errorf("%w: decoding targets: %v", ErrInvalidValue, err)
	}
	return targets, nil
}
