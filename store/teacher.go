package store

import (
	"context"
	"slices"

	"github.com/trezcool/masomo-admin/core/school"
)

const OpSyncSubjects = "sync_subjects"

type (
	// TeacherAPI is implemented by *apiclient.TeacherAPI.
	TeacherAPI interface {
		CRUD[school.Teacher, school.TeacherInput, school.TeacherFilter]
		Subjects(ctx context.Context, teacherID int) ([]school.Subject, error)
		SyncSubjects(ctx context.Context, teacherID int, subjectIDs []int) ([]school.Subject, error)
	}

	// TeacherStore is the teachers Store plus the subjects each teacher teaches.
	// Photos are uploaded along with the TeacherInput of Create and Update.
	TeacherStore struct {
		*Store[school.Teacher, school.TeacherInput, school.TeacherFilter]
		api TeacherAPI
	}
)

func NewTeacherStore(api TeacherAPI, deps Deps) *TeacherStore {
	return &TeacherStore{
		Store: New[school.Teacher, school.TeacherInput, school.TeacherFilter]("teachers", api, deps).
			SortBy(func(t school.Teacher) string { return t.Name }),
		api: api,
	}
}

// FetchSubjects loads the subjects of a teacher into its cached record.
func (s *TeacherStore) FetchSubjects(ctx context.Context, teacherID int) ([]school.Subject, error) {
	subjects, err := s.api.Subjects(ctx, teacherID)
	s.deps.Metrics.observe(s.name, OpGet, err)
	if err != nil {
		return nil, s.fail(err)
	}
	s.setSubjects(teacherID, subjects)
	return slices.Clone(subjects), nil
}

// SyncSubjects replaces the subjects of a teacher with subjectIDs.
func (s *TeacherStore) SyncSubjects(ctx context.Context, teacherID int, subjectIDs []int) ([]school.Subject, error) {
	subjects, err := s.api.SyncSubjects(ctx, teacherID, subjectIDs)
	s.deps.Metrics.observe(s.name, OpSyncSubjects, err)
	if err != nil {
		return nil, s.fail(err)
	}
	s.setSubjects(teacherID, subjects)
	return slices.Clone(subjects), nil
}

func (s *TeacherStore) setSubjects(teacherID int, subjects []school.Subject) {
	s.mu.Lock()
	if i := s.indexOf(teacherID); i >= 0 {
		s.state.Items[i].Subjects = slices.Clone(subjects)
	}
	if s.state.Current != nil && s.state.Current.ID == teacherID {
		cur := *s.state.Current
		cur.Subjects = slices.Clone(subjects)
		s.state.Current = &cur
	}
	s.mu.Unlock()
	s.notify()
}
