// Package memory is an in-process school store for single-node deployments
// and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/schoolhub/schoolhub/internal/pkg/clock"
	"github.com/schoolhub/schoolhub/internal/pkg/goerror"
	"github.com/schoolhub/schoolhub/internal/pkg/uid"
	"github.com/schoolhub/schoolhub/internal/school/entity"
)

type Store struct {
	mutex   sync.Mutex
	schools map[int64]*entity.School
	uid     uid.NumberID
	clock   clock.Clocker
}

func NewStore(uid uid.NumberID, clk clock.Clocker) *Store {
	if clk == nil {
		clk = &clock.TimeClocker{}
	}

	return &Store{
		schools: make(map[int64]*entity.School),
		uid:     uid,
		clock:   clk,
	}
}

func (s *Store) ListSchools(_ context.Context, filter entity.ListFilter) ([]entity.School, int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var matched []entity.School
	for _, sc := range s.schools {
		if filter.City != "" && !strings.EqualFold(sc.City, filter.City) {
			continue
		}
		if filter.State != "" && !strings.EqualFold(sc.State, filter.State) {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(sc.Name), needle) &&
				!strings.Contains(strings.ToLower(sc.Address), needle) {
				continue
			}
		}
		matched = append(matched, *sc)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))

	start := int(filter.Offset)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + int(filter.Limit)
	if end > len(matched) {
		end = len(matched)
	}

	return matched[start:end], total, nil
}

func (s *Store) GetSchool(_ context.Context, id int64) (*entity.School, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sc, ok := s.schools[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}

	found := *sc

	return &found, nil
}

func (s *Store) CreateSchool(_ context.Context, in entity.School) (*entity.School, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, sc := range s.schools {
		if strings.EqualFold(sc.Email, in.Email) {
			return nil, goerror.ErrConflict
		}
	}

	now := s.clock.Now()
	in.ID = s.uid.Generate()
	in.CreatedAt = now
	in.UpdatedAt = now
	s.schools[in.ID] = &in

	created := in

	return &created, nil
}

func (s *Store) UpdateSchool(_ context.Context, in entity.School) (*entity.School, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, ok := s.schools[in.ID]
	if !ok {
		return nil, goerror.ErrNotFound
	}

	for id, sc := range s.schools {
		if id != in.ID && strings.EqualFold(sc.Email, in.Email) {
			return nil, goerror.ErrConflict
		}
	}

	in.CreatedBy = current.CreatedBy
	in.CreatedAt = current.CreatedAt
	in.UpdatedAt = s.clock.Now()
	s.schools[in.ID] = &in

	updated := in

	return &updated, nil
}

func (s *Store) DeleteSchool(_ context.Context, id int64) (*entity.School, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sc, ok := s.schools[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}

	delete(s.schools, id)

	deleted := *sc

	return &deleted, nil
}
