package db

import (
	"context"
	"strconv"
	"strings"

	"github.com/schoolhub/schoolhub/internal/school/entity"
)

const schoolColumns = `id, name, email, contact, address, city, state, image_url, created_by, created_at, updated_at`

func (s *DB) ListSchools(ctx context.Context, filter entity.ListFilter) (schools []entity.School, total int64, err error) {
	ctx, span := s.startSpan(ctx, "ListSchools")
	defer func() { s.endSpan(span, err) }()

	var (
		conds []string
		args  []any
	)

	addCond := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if filter.City != "" {
		addCond("city ILIKE ?", filter.City)
	}
	if filter.State != "" {
		addCond("state ILIKE ?", filter.State)
	}
	if filter.Search != "" {
		addCond("(name ILIKE ? OR address ILIKE ?)", "%"+filter.Search+"%")
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	if err = s.conn.QueryRow(ctx, "SELECT count(*) FROM schools"+where, args...).Scan(&total); err != nil {
		err = s.mapError(err)
		return nil, 0, err
	}

	query := "SELECT " + schoolColumns + " FROM schools" + where +
		" ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args)+1) +
		" OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		err = s.mapError(err)
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var sc entity.School
		if err = rows.Scan(&sc.ID, &sc.Name, &sc.Email, &sc.Contact, &sc.Address,
			&sc.City, &sc.State, &sc.ImageURL, &sc.CreatedBy, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			err = s.mapError(err)
			return nil, 0, err
		}
		schools = append(schools, sc)
	}

	if err = rows.Err(); err != nil {
		err = s.mapError(err)
		return nil, 0, err
	}

	return schools, total, nil
}

func (s *DB) GetSchool(ctx context.Context, id int64) (school *entity.School, err error) {
	ctx, span := s.startSpan(ctx, "GetSchool")
	defer func() { s.endSpan(span, err) }()

	query := "SELECT " + schoolColumns + " FROM schools WHERE id = $1"

	var sc entity.School
	err = s.conn.QueryRow(ctx, query, id).Scan(&sc.ID, &sc.Name, &sc.Email, &sc.Contact,
		&sc.Address, &sc.City, &sc.State, &sc.ImageURL, &sc.CreatedBy, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}

	return &sc, nil
}

func (s *DB) CreateSchool(ctx context.Context, in entity.School) (school *entity.School, err error) {
	ctx, span := s.startSpan(ctx, "CreateSchool")
	defer func() { s.endSpan(span, err) }()

	query := `
		INSERT INTO schools (name, email, contact, address, city, state, image_url, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING ` + schoolColumns

	var sc entity.School
	err = s.conn.QueryRow(ctx, query, in.Name, in.Email, in.Contact, in.Address,
		in.City, in.State, in.ImageURL, in.CreatedBy).
		Scan(&sc.ID, &sc.Name, &sc.Email, &sc.Contact, &sc.Address,
			&sc.City, &sc.State, &sc.ImageURL, &sc.CreatedBy, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}

	return &sc, nil
}

func (s *DB) UpdateSchool(ctx context.Context, in entity.School) (school *entity.School, err error) {
	ctx, span := s.startSpan(ctx, "UpdateSchool")
	defer func() { s.endSpan(span, err) }()

	query := `
		UPDATE schools
		SET name = $2, email = $3, contact = $4, address = $5, city = $6, state = $7,
			image_url = $8, updated_at = now()
		WHERE id = $1
		RETURNING ` + schoolColumns

	var sc entity.School
	err = s.conn.QueryRow(ctx, query, in.ID, in.Name, in.Email, in.Contact, in.Address,
		in.City, in.State, in.ImageURL).
		Scan(&sc.ID, &sc.Name, &sc.Email, &sc.Contact, &sc.Address,
			&sc.City, &sc.State, &sc.ImageURL, &sc.CreatedBy, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}

	return &sc, nil
}

func (s *DB) DeleteSchool(ctx context.Context, id int64) (school *entity.School, err error) {
	ctx, span := s.startSpan(ctx, "DeleteSchool")
	defer func() { s.endSpan(span, err) }()

	query := "DELETE FROM schools WHERE id = $1 RETURNING " + schoolColumns

	var sc entity.School
	err = s.conn.QueryRow(ctx, query, id).Scan(&sc.ID, &sc.Name, &sc.Email, &sc.Contact,
		&sc.Address, &sc.City, &sc.State, &sc.ImageURL, &sc.CreatedBy, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}

	return &sc, nil
}
