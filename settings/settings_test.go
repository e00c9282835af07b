package settings

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	logsvc "github.com/trezcool/masomo-admin/services/logger"
	"github.com/trezcool/masomo-admin/storage/kvstore"
)

// failingBackend fails every write.
type failingBackend struct {
	*kvstore.MemoryStore
}

func (failingBackend) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestStore_Load(t *testing.T) {
	tests := []struct {
		name      string
		general   string
		prefs     string
		wantSet   Settings
		wantPrefs Preferences
	}{
		{name: "empty", wantSet: Settings{}, wantPrefs: DefaultPreferences()},
		{
			name:      "saved",
			general:   `{"active_school_id":3,"active_academic_year_id":5}`,
			prefs:     `{"font_size":"large","theme":"dark"}`,
			wantSet:   Settings{ActiveSchoolID: null.IntFrom(3), ActiveAcademicYearID: null.IntFrom(5)},
			wantPrefs: Preferences{FontSize: FontLarge, Theme: ThemeDark},
		},
		{name: "malformed", general: `{"active_school_id":`, prefs: `nope`, wantSet: Settings{}, wantPrefs: DefaultPreferences()},
		{
			name:      "year without school",
			general:   `{"active_school_id":null,"active_academic_year_id":5}`,
			wantSet:   Settings{},
			wantPrefs: DefaultPreferences(),
		},
		{name: "invalid preferences", prefs: `{"font_size":"huge","theme":"dark"}`, wantSet: Settings{}, wantPrefs: DefaultPreferences()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := kvstore.NewMemoryStore()
			if tt.general != "" {
				require.NoError(t, backend.Set(ctx, GeneralKey, []byte(tt.general)))
			}
			if tt.prefs != "" {
				require.NoError(t, backend.Set(ctx, PreferencesKey, []byte(tt.prefs)))
			}

			s := New(backend, logsvc.NewNopLogger())
			require.NoError(t, s.Load(ctx))
			assert.Equal(t, tt.wantSet, s.Settings())
			assert.Equal(t, tt.wantPrefs, s.Preferences())
		})
	}
}

func TestStore_ActiveContext(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "admin.db")
	backend, err := kvstore.OpenSQLite(ctx, path)
	require.NoError(t, err)
	s := New(backend, logsvc.NewNopLogger())
	require.NoError(t, s.Load(ctx))

	var seen []Settings
	unsubscribe := s.Subscribe(func(st Settings) { seen = append(seen, st) })

	require.NoError(t, s.SetSchool(ctx, null.IntFrom(1)))
	require.NoError(t, s.SetAcademicYear(ctx, null.IntFrom(4)))
	require.NoError(t, s.SetSchool(ctx, null.IntFrom(2)))
	assert.Equal(t, Settings{ActiveSchoolID: null.IntFrom(2), ActiveAcademicYearID: null.IntFrom(4)}, s.Settings(),
		"changing the school keeps the year")

	require.NoError(t, s.SetSchool(ctx, null.Int{}))
	assert.Equal(t, Settings{}, s.Settings(), "clearing the school clears the year")
	unsubscribe()
	require.NoError(t, s.SetSchool(ctx, null.IntFrom(9)))

	require.Len(t, seen, 4)
	assert.Equal(t, null.IntFrom(1), seen[0].ActiveSchoolID)
	assert.Equal(t, Settings{}, seen[3])

	raw, err := backend.Get(ctx, GeneralKey)
	require.NoError(t, err)
	var saved Settings
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, null.IntFrom(9), saved.ActiveSchoolID)
	require.NoError(t, s.Close())

	// a new store comes back to the saved state
	backend, err = kvstore.OpenSQLite(ctx, path)
	require.NoError(t, err)
	reloaded := New(backend, logsvc.NewNopLogger())
	defer reloaded.Close()
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, Settings{ActiveSchoolID: null.IntFrom(9)}, reloaded.Settings())
}

func TestStore_Preferences(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemoryStore()
	s := New(backend, logsvc.NewNopLogger())

	err := s.SetPreferences(ctx, Preferences{FontSize: "huge", Theme: ThemeDark})
	require.Error(t, err)
	assert.Equal(t, DefaultPreferences(), s.Preferences())

	require.NoError(t, s.SetPreferences(ctx, Preferences{FontSize: FontSmall, Theme: ThemeDark}))
	reloaded := New(backend, logsvc.NewNopLogger())
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, Preferences{FontSize: FontSmall, Theme: ThemeDark}, reloaded.Preferences())
}

func TestStore_PersistFailure(t *testing.T) {
	ctx := context.Background()
	s := New(failingBackend{kvstore.NewMemoryStore()}, logsvc.NewNopLogger())

	var notified bool
	s.Subscribe(func(Settings) { notified = true })

	err := s.SetSchool(ctx, null.IntFrom(1))
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, null.IntFrom(1), s.Settings().ActiveSchoolID, "the state applies anyway")
	assert.True(t, notified)
}

func TestStore_SetAcademicYearWithoutSchool(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemoryStore()
	s := New(backend, logsvc.NewNopLogger())

	notified := 0
	s.Subscribe(func(Settings) { notified++ })

	assert.ErrorIs(t, s.SetAcademicYear(ctx, null.IntFrom(4)), ErrNoActiveSchool)
	assert.Equal(t, Settings{}, s.Settings())
	assert.Zero(t, notified)
	_, err := backend.Get(ctx, GeneralKey)
	assert.ErrorIs(t, err, kvstore.ErrKeyNotFound, "nothing persisted")

	require.NoError(t, s.SetAcademicYear(ctx, null.Int{}), "clearing needs no school")

	require.NoError(t, s.SetSchool(ctx, null.IntFrom(1)))
	require.NoError(t, s.SetAcademicYear(ctx, null.IntFrom(4)))
	reloaded := New(backend, logsvc.NewNopLogger())
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, s.Settings(), reloaded.Settings(), "memory and storage agree")
}
