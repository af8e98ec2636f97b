package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/calloutlint/domain/structure"
	"github.com/artpar/calloutlint/ports"
)

// StructureStore implements ports.StructureStore using SQLite.
type StructureStore struct {
	db *DB
}

// NewStructureStore creates a new SQLite structure store.
func NewStructureStore(db *DB) *StructureStore {
	return &StructureStore{db: db}
}

const structureColumns = `id, name, description, nesting_mode, root_type, child_types,
	metrics_type, required_types, optional_types`

// Get retrieves a structure by ID.
func (s *StructureStore) Get(ctx context.Context, id string) (structure.Structure, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+structureColumns+` FROM structures WHERE id = ?`, id)
	return scanStructure(row)
}

// List returns all structures in registration order.
func (s *StructureStore) List(ctx context.Context) ([]structure.Structure, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+structureColumns+` FROM structures ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []structure.Structure
	for rows.Next() {
		st, err := scanStructure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Create stores a new structure after the existing ones.
func (s *StructureStore) Create(ctx context.Context, st structure.Structure) error {
	child, required, optional, err := structureLists(st)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO structures (
			id, name, description, nesting_mode, root_type, child_types,
			metrics_type, required_types, optional_types, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM structures))
	`,
		st.ID, st.Name, st.Description, string(st.NestingMode), st.RootType, child,
		st.MetricsType, required, optional,
	)
	if isConstraint(err) {
		return ErrDuplicate
	}
	return err
}

// Update modifies an existing structure, keeping its position.
func (s *StructureStore) Update(ctx context.Context, st structure.Structure) error {
	child, required, optional, err := structureLists(st)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE structures
		SET name = ?, description = ?, nesting_mode = ?, root_type = ?, child_types = ?,
		    metrics_type = ?, required_types = ?, optional_types = ?, updated_at = ?
		WHERE id = ?
	`,
		st.Name, st.Description, string(st.NestingMode), st.RootType, child,
		st.MetricsType, required, optional, time.Now().UTC(), st.ID,
	)
	if err != nil {
		return err
	}
	return affected(result)
}

// Delete removes a structure.
func (s *StructureStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM structures WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}

func structureLists(st structure.Structure) (child, required, optional sql.NullString, err error) {
	if child, err = marshalStrings(st.ChildTypes); err != nil {
		return
	}
	if required, err = marshalStrings(st.RequiredTypes); err != nil {
		return
	}
	optional, err = marshalStrings(st.OptionalTypes)
	return
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStructure(row scanner) (structure.Structure, error) {
	var st structure.Structure
	var mode string
	var child, required, optional sql.NullString

	err := row.Scan(
		&st.ID, &st.Name, &st.Description, &mode, &st.RootType, &child,
		&st.MetricsType, &required, &optional,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return structure.Structure{}, ErrNotFound
	}
	if err != nil {
		return structure.Structure{}, err
	}
	st.NestingMode = structure.NestingMode(mode)

	if st.ChildTypes, err = unmarshalStrings(child); err != nil {
		return structure.Structure{}, fmt.Errorf("structure %s child_types: %w", st.ID, err)
	}
	if st.RequiredTypes, err = unmarshalStrings(required); err != nil {
		return structure.Structure{}, fmt.Errorf("structure %s required_types: %w", st.ID, err)
	}
	if st.OptionalTypes, err = unmarshalStrings(optional); err != nil {
		return structure.Structure{}, fmt.Errorf("structure %s optional_types: %w", st.ID, err)
	}
	return st, nil
}

// Interface compliance check.
var _ ports.StructureStore = (*StructureStore)(nil)
