// Package settings holds the persisted client state: the active school and academic year,
// and the display preferences. Every change is written to a kvstore.Store; a missing or
// malformed document is ignored and the defaults are used.
package settings

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/storage/kvstore"
)

// Storage keys
const (
	GeneralKey     = "general-settings"
	PreferencesKey = "user-preferences"
)

// Preferences values
const (
	FontSmall  = "small"
	FontMedium = "medium"
	FontLarge  = "large"

	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ErrNoActiveSchool is returned when an academic year is set while no school is active.
var ErrNoActiveSchool = errors.New("no active school: choose a school before its academic year")

type (
	// Settings is the active context of the admin: an academic year is only active within a school.
	Settings struct {
		ActiveSchoolID       null.Int `json:"active_school_id"`
		ActiveAcademicYearID null.Int `json:"active_academic_year_id"`
	}

	Preferences struct {
		FontSize string `json:"font_size" validate:"required,oneof=small medium large"`
		Theme    string `json:"theme" validate:"required,oneof=light dark"`
	}

	Store struct {
		backend kvstore.Store
		logger  core.Logger

		mu       sync.RWMutex
		settings Settings
		prefs    Preferences

		subsMu sync.Mutex
		nextID int
		subs   map[int]func(Settings)
	}
)

func DefaultPreferences() Preferences {
	return Preferences{FontSize: FontMedium, Theme: ThemeLight}
}

func New(backend kvstore.Store, logger core.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger,
		prefs:   DefaultPreferences(),
		subs:    make(map[int]func(Settings)),
	}
}

// Load rehydrates the store from its backend. It must run before the stores depending on the
// active school fetch anything. Only backend failures are returned.
func (s *Store) Load(ctx context.Context) error {
	var (
		settings Settings
		prefs    = DefaultPreferences()
	)
	if err := s.read(ctx, GeneralKey, &settings); err != nil {
		return err
	}
	if err := s.read(ctx, PreferencesKey, &prefs); err != nil {
		return err
	}
	if prefs.validate() != nil {
		s.logger.Warn("ignoring invalid preferences", prefs)
		prefs = DefaultPreferences()
	}
	if !settings.ActiveSchoolID.Valid {
		settings.ActiveAcademicYearID = null.Int{}
	}

	s.mu.Lock()
	s.settings = settings
	s.prefs = prefs
	s.mu.Unlock()
	s.notify(settings)
	return nil
}

// read decodes the document under key into v, leaving v untouched when the document is missing or malformed.
func (s *Store) read(ctx context.Context, key string, v interface{}) error {
	data, err := s.backend.Get(ctx, key)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "loading %s", key)
	}
	if err = json.Unmarshal(data, v); err != nil {
		s.logger.Warn("ignoring malformed "+key, err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	return errors.Wrapf(s.backend.Set(ctx, key, data), "saving %s", key)
}

func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *Store) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// SetSchool changes the active school. Clearing it clears the active academic year in the same update;
// setting it never touches the year.
// The new state applies even when it could not be persisted; the persistence error is returned.
func (s *Store) SetSchool(ctx context.Context, schoolID null.Int) error {
	return s.update(ctx, func(st *Settings) error {
		st.ActiveSchoolID = schoolID
		if !schoolID.Valid {
			st.ActiveAcademicYearID = null.Int{}
		}
		return nil
	})
}

// SetAcademicYear changes the active academic year, never the school.
// A year can only be activated within an active school, otherwise ErrNoActiveSchool is returned
// and nothing changes. Clearing the year is always allowed.
func (s *Store) SetAcademicYear(ctx context.Context, yearID null.Int) error {
	return s.update(ctx, func(st *Settings) error {
		if yearID.Valid && !st.ActiveSchoolID.Valid {
			return ErrNoActiveSchool
		}
		st.ActiveAcademicYearID = yearID
		return nil
	})
}

func (s *Store) update(ctx context.Context, fn func(*Settings) error) error {
	s.mu.Lock()
	next := s.settings
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.settings = next
	settings := s.settings
	err := s.write(ctx, GeneralKey, settings)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("persisting settings", err)
	}
	s.notify(settings)
	return err
}

// SetPreferences validates and persists the display preferences.
func (s *Store) SetPreferences(ctx context.Context, prefs Preferences) error {
	if err := prefs.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = prefs
	return s.write(ctx, PreferencesKey, prefs)
}

// Subscribe registers fn to be called with the new settings after every change.
func (s *Store) Subscribe(fn func(Settings)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(settings Settings) {
	s.subsMu.Lock()
	fns := make([]func(Settings), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()
	for _, fn := range fns {
		fn(settings)
	}
}

func (s *Store) Close() error {
	return s.backend.Close()
}
