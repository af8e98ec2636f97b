package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/artpar/calloutlint/domain/rule"
	"github.com/artpar/calloutlint/ports"
)

// RuleStore implements ports.RuleStore using SQLite.
type RuleStore struct {
	db *DB
}

// NewRuleStore creates a new SQLite rule store.
func NewRuleStore(db *DB) *RuleStore {
	return &RuleStore{db: db}
}

const ruleColumns = `id, name, description, kind, severity, pattern, pattern_type,
	negative, message, priority, enabled`

// Get retrieves a rule by ID.
func (s *RuleStore) Get(ctx context.Context, id string) (rule.Rule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id)
	return scanRule(row)
}

// List returns all rules in registration order.
func (s *RuleStore) List(ctx context.Context) ([]rule.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rule.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Create stores a new rule.
func (s *RuleStore) Create(ctx context.Context, r rule.Rule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (
			id, name, description, kind, severity, pattern, pattern_type,
			negative, message, priority, enabled, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM rules))
	`,
		r.ID, r.Name, r.Description, string(r.Kind), string(r.Severity), r.Pattern,
		string(r.PatternType), boolToInt(r.Negative), r.Message, r.Priority, boolToInt(r.Enabled),
	)
	if isConstraint(err) {
		return ErrDuplicate
	}
	return err
}

// Update modifies an existing rule.
func (s *RuleStore) Update(ctx context.Context, r rule.Rule) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE rules
		SET name = ?, description = ?, kind = ?, severity = ?, pattern = ?, pattern_type = ?,
		    negative = ?, message = ?, priority = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`,
		r.Name, r.Description, string(r.Kind), string(r.Severity), r.Pattern, string(r.PatternType),
		boolToInt(r.Negative), r.Message, r.Priority, boolToInt(r.Enabled), time.Now().UTC(), r.ID,
	)
	if err != nil {
		return err
	}
	return affected(result)
}

// Delete removes a rule.
func (s *RuleStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}

func scanRule(row scanner) (rule.Rule, error) {
	var r rule.Rule
	var kind, severity, patternType string
	var negative, enabled int

	err := row.Scan(
		&r.ID, &r.Name, &r.Description, &kind, &severity, &r.Pattern, &patternType,
		&negative, &r.Message, &r.Priority, &enabled,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return rule.Rule{}, ErrNotFound
	}
	if err != nil {
		return rule.Rule{}, err
	}

	r.Kind = rule.Kind(kind)
	r.Severity = rule.Severity(severity)
	r.PatternType = rule.PatternType(patternType)
	r.Negative = negative == 1
	r.Enabled = enabled == 1
	return r, nil
}

// Interface compliance check.
var _ ports.RuleStore = (*RuleStore)(nil)
