// Package store persists and materializes the valuation rule tree.
//
// The engine consumes fully materialized, immutable Ruleset trees; this
// package is the only component that writes to persistence, and the only
// write path the engine side owns is the hydration transaction (create
// concrete rules, deactivate the placeholder).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hwcatalog/appraisal/internal/core/db"
	"github.com/hwcatalog/appraisal/internal/types"
)

// Store loads and writes rule trees through named queries.
type Store struct {
	q      *db.Queries
	logger zerolog.Logger
}

// New creates a store over loaded queries.
func New(q *db.Queries, logger zerolog.Logger) *Store {
	return &Store{q: q, logger: logger}
}

// Row types mirror table columns; JSON-encoded columns decode during
// assembly so the domain types never see storage encoding.

type rulesetRow struct {
	RulesetID string `db:"ruleset_id"`
	Name      string `db:"name"`
	Version   int    `db:"version"`
	Active    bool   `db:"active"`
}

type groupRow struct {
	GroupID      string  `db:"group_id"`
	RulesetID    string  `db:"ruleset_id"`
	Name         string  `db:"name"`
	Category     string  `db:"category"`
	DisplayOrder int     `db:"display_order"`
	Weight       float64 `db:"weight"`
}

type ruleRow struct {
	RuleID                string `db:"rule_id"`
	GroupID               string `db:"group_id"`
	Name                  string `db:"name"`
	Priority              int    `db:"priority"`
	EvaluationOrder       int    `db:"evaluation_order"`
	Active                bool   `db:"active"`
	BaselinePlaceholder   bool   `db:"baseline_placeholder"`
	Hydrated              bool   `db:"hydrated"`
	HydrationSourceRuleID string `db:"hydration_source_rule_id"`
	HydrationSpec         string `db:"hydration_spec"`
}

type conditionRow struct {
	ConditionID string `db:"condition_id"`
	RuleID      string `db:"rule_id"`
	FieldPath   string `db:"field_path"`
	Operator    string `db:"operator"`
	Value       string `db:"value"`
	ValueList   string `db:"value_list"`
	LogicalOp   string `db:"logical_op"`
	GroupOrder  int    `db:"group_order"`
}

type actionRow struct {
	ActionID     string  `db:"action_id"`
	RuleID       string  `db:"rule_id"`
	ActionType   string  `db:"action_type"`
	Metric       string  `db:"metric"`
	BaseValue    float64 `db:"base_value"`
	UnitType     string  `db:"unit_type"`
	FormulaText  string  `db:"formula_text"`
	DisplayOrder int     `db:"display_order"`
}

type multiplierRow struct {
	MultiplierID string `db:"multiplier_id"`
	ActionID     string `db:"action_id"`
	Name         string `db:"name"`
	FieldPath    string `db:"field_path"`
	Factors      string `db:"factors"`
	DisplayOrder int    `db:"display_order"`
}

// LoadRuleset materializes the full rule tree for one ruleset.
// Returns types.ErrRulesetNotFound for unknown IDs.
func (s *Store) LoadRuleset(ctx context.Context, id types.RulesetID) (*types.Ruleset, error) {
	var rs rulesetRow
	if err := s.q.Get(ctx, "get-ruleset", &rs, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ruleset %s: %w", id, types.ErrRulesetNotFound)
		}
		return nil, fmt.Errorf("query ruleset %s: %w", id, err)
	}
	return s.assembleRuleset(ctx, rs)
}

// LoadRulesetByName materializes a ruleset addressed by its unique name.
func (s *Store) LoadRulesetByName(ctx context.Context, name string) (*types.Ruleset, error) {
	var rs rulesetRow
	if err := s.q.Get(ctx, "get-ruleset-by-name", &rs, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ruleset %q: %w", name, types.ErrRulesetNotFound)
		}
		return nil, fmt.Errorf("query ruleset %q: %w", name, err)
	}
	return s.assembleRuleset(ctx, rs)
}

// assembleRuleset loads all tree levels in four queries and stitches them
// together in memory. Every level orders deterministically in SQL so the
// materialized tree is stable across loads.
func (s *Store) assembleRuleset(ctx context.Context, rs rulesetRow) (*types.Ruleset, error) {
	var groups []groupRow
	if err := s.q.Select(ctx, "list-groups", &groups, rs.RulesetID); err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	var rules []ruleRow
	if err := s.q.Select(ctx, "list-rules", &rules, rs.RulesetID); err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	var conditions []conditionRow
	if err := s.q.Select(ctx, "list-conditions", &conditions, rs.RulesetID); err != nil {
		return nil, fmt.Errorf("query conditions: %w", err)
	}
	var actions []actionRow
	if err := s.q.Select(ctx, "list-actions", &actions, rs.RulesetID); err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	var multipliers []multiplierRow
	if err := s.q.Select(ctx, "list-multipliers", &multipliers, rs.RulesetID); err != nil {
		return nil, fmt.Errorf("query multipliers: %w", err)
	}

	multipliersByAction := make(map[string][]types.ActionMultiplier)
	for _, m := range multipliers {
		dm, err := decodeMultiplier(m)
		if err != nil {
			return nil, err
		}
		multipliersByAction[m.ActionID] = append(multipliersByAction[m.ActionID], dm)
	}

	actionsByRule := make(map[string][]types.Action)
	for _, a := range actions {
		da := decodeAction(a)
		da.Multipliers = multipliersByAction[a.ActionID]
		actionsByRule[a.RuleID] = append(actionsByRule[a.RuleID], da)
	}

	conditionsByRule := make(map[string][]types.Condition)
	for _, c := range conditions {
		dc, err := decodeCondition(c)
		if err != nil {
			return nil, err
		}
		conditionsByRule[c.RuleID] = append(conditionsByRule[c.RuleID], dc)
	}

	rulesByGroup := make(map[string][]types.Rule)
	for _, r := range rules {
		dr, err := decodeRule(r)
		if err != nil {
			return nil, err
		}
		dr.Conditions = conditionsByRule[r.RuleID]
		dr.Actions = actionsByRule[r.RuleID]
		rulesByGroup[r.GroupID] = append(rulesByGroup[r.GroupID], dr)
	}

	result := &types.Ruleset{
		ID:      types.RulesetID(rs.RulesetID),
		Name:    rs.Name,
		Version: rs.Version,
		Active:  rs.Active,
	}
	for _, g := range groups {
		result.Groups = append(result.Groups, types.RuleGroup{
			ID:           types.RuleGroupID(g.GroupID),
			RulesetID:    types.RulesetID(g.RulesetID),
			Name:         g.Name,
			Category:     g.Category,
			DisplayOrder: g.DisplayOrder,
			Weight:       g.Weight,
			Rules:        rulesByGroup[g.GroupID],
		})
	}

	return result, nil
}

// GeneratedRules returns the concrete rules stamped with the given source
// placeholder, with their conditions and actions attached.
func (s *Store) GeneratedRules(ctx context.Context, source types.RuleID) ([]types.Rule, error) {
	var rows []ruleRow
	if err := s.q.Select(ctx, "list-generated-rules", &rows, string(source)); err != nil {
		return nil, fmt.Errorf("query generated rules: %w", err)
	}

	rules := make([]types.Rule, 0, len(rows))
	for _, r := range rows {
		dr, err := decodeRule(r)
		if err != nil {
			return nil, err
		}

		var conds []conditionRow
		if err := s.q.Select(ctx, "list-conditions-by-rule", &conds, r.RuleID); err != nil {
			return nil, fmt.Errorf("query conditions for %s: %w", r.RuleID, err)
		}
		for _, c := range conds {
			dc, err := decodeCondition(c)
			if err != nil {
				return nil, err
			}
			dr.Conditions = append(dr.Conditions, dc)
		}

		var acts []actionRow
		if err := s.q.Select(ctx, "list-actions-by-rule", &acts, r.RuleID); err != nil {
			return nil, fmt.Errorf("query actions for %s: %w", r.RuleID, err)
		}
		var mults []multiplierRow
		if err := s.q.Select(ctx, "list-multipliers-by-rule", &mults, r.RuleID); err != nil {
			return nil, fmt.Errorf("query multipliers for %s: %w", r.RuleID, err)
		}
		multipliersByAction := make(map[string][]types.ActionMultiplier)
		for _, m := range mults {
			dm, err := decodeMultiplier(m)
			if err != nil {
				return nil, err
			}
			multipliersByAction[m.ActionID] = append(multipliersByAction[m.ActionID], dm)
		}
		for _, a := range acts {
			da := decodeAction(a)
			da.Multipliers = multipliersByAction[a.ActionID]
			dr.Actions = append(dr.Actions, da)
		}

		rules = append(rules, dr)
	}

	return rules, nil
}

// ApplyHydration atomically persists generated rules and marks the
// placeholder hydrated and inactive. On PostgreSQL the transaction takes an
// advisory lock keyed by the owning ruleset so concurrent hydration passes
// cannot double-create rules; SQLite serializes writers natively.
func (s *Store) ApplyHydration(ctx context.Context, placeholder types.RuleID, generated []types.Rule) error {
	database := s.q.DB()
	tx, err := database.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin hydration transaction: %w", err)
	}
	defer tx.Rollback()

	if database.DriverName() == "postgres" {
		var rulesetID string
		lookup := database.Rebind(`
			SELECT g.ruleset_id FROM rules r
			JOIN rule_groups g ON g.group_id = r.group_id
			WHERE r.rule_id = ?`)
		if err := tx.GetContext(ctx, &rulesetID, lookup, string(placeholder)); err != nil {
			return fmt.Errorf("resolve ruleset for placeholder %s: %w", placeholder, err)
		}
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", rulesetID); err != nil {
			return fmt.Errorf("acquire hydration lock: %w", err)
		}
	}

	// Re-check provenance inside the transaction: a racing pass may have
	// hydrated this placeholder between the service check and here.
	var hydrated bool
	check := database.Rebind("SELECT hydrated FROM rules WHERE rule_id = ?")
	if err := tx.GetContext(ctx, &hydrated, check, string(placeholder)); err != nil {
		return fmt.Errorf("check placeholder %s: %w", placeholder, err)
	}
	if hydrated {
		return fmt.Errorf("placeholder %s already hydrated", placeholder)
	}

	for i := range generated {
		if err := s.insertRuleTx(ctx, tx, &generated[i]); err != nil {
			return err
		}
	}

	markSQL, err := s.q.Raw("mark-rule-hydrated")
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, markSQL, true, false, string(placeholder)); err != nil {
		return fmt.Errorf("deactivate placeholder %s: %w", placeholder, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit hydration: %w", err)
	}

	s.logger.Debug().
		Str("placeholder", string(placeholder)).
		Int("rules", len(generated)).
		Msg("hydration transaction committed")
	return nil
}

// SaveRuleset persists a full tree in one transaction. Used for seeding and
// authoring flows; rules are validated before any row is written.
func (s *Store) SaveRuleset(ctx context.Context, ruleset *types.Ruleset) error {
	for gi := range ruleset.Groups {
		for ri := range ruleset.Groups[gi].Rules {
			if err := ruleset.Groups[gi].Rules[ri].Validate(); err != nil {
				return err
			}
		}
	}

	tx, err := s.q.DB().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback()

	insertRuleset, err := s.q.Raw("insert-ruleset")
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, insertRuleset,
		string(ruleset.ID), ruleset.Name, ruleset.Version, ruleset.Active, now); err != nil {
		return fmt.Errorf("insert ruleset %s: %w", ruleset.ID, err)
	}

	insertGroup, err := s.q.Raw("insert-group")
	if err != nil {
		return err
	}
	for gi := range ruleset.Groups {
		g := &ruleset.Groups[gi]
		if _, err := tx.ExecContext(ctx, insertGroup,
			string(g.ID), string(ruleset.ID), g.Name, g.Category, g.DisplayOrder, g.Weight); err != nil {
			return fmt.Errorf("insert group %s: %w", g.ID, err)
		}
		for ri := range g.Rules {
			if err := s.insertRuleTx(ctx, tx, &g.Rules[ri]); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// txExecer matches both *sqlx.Tx statement execution shape used below.
type txExecer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// insertRuleTx writes one rule with its conditions, actions, and multipliers.
func (s *Store) insertRuleTx(ctx context.Context, tx txExecer, rule *types.Rule) error {
	spec, err := encodeHydrationSpec(rule.Hydration)
	if err != nil {
		return fmt.Errorf("encode hydration spec for %s: %w", rule.ID, err)
	}

	insertRule, err := s.q.Raw("insert-rule")
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, insertRule,
		string(rule.ID), string(rule.GroupID), rule.Name, rule.Priority, rule.EvaluationOrder,
		rule.Active, rule.BaselinePlaceholder, rule.Hydrated,
		string(rule.HydrationSourceRuleID), spec); err != nil {
		return fmt.Errorf("insert rule %s: %w", rule.ID, err)
	}

	insertCondition, err := s.q.Raw("insert-condition")
	if err != nil {
		return err
	}
	for i := range rule.Conditions {
		c := &rule.Conditions[i]
		value, err := json.Marshal(c.Value)
		if err != nil {
			return fmt.Errorf("encode condition value: %w", err)
		}
		valueList, err := json.Marshal(c.Values)
		if err != nil {
			return fmt.Errorf("encode condition values: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertCondition,
			string(c.ID), string(rule.ID), c.FieldPath, string(c.Operator),
			string(value), string(valueList), string(c.LogicalOp), c.GroupOrder); err != nil {
			return fmt.Errorf("insert condition %s: %w", c.ID, err)
		}
	}

	insertAction, err := s.q.Raw("insert-action")
	if err != nil {
		return err
	}
	insertMultiplier, err := s.q.Raw("insert-multiplier")
	if err != nil {
		return err
	}
	for i := range rule.Actions {
		a := &rule.Actions[i]
		if _, err := tx.ExecContext(ctx, insertAction,
			string(a.ID), string(rule.ID), string(a.Type), a.Metric, a.BaseValue,
			a.UnitType, a.FormulaText, a.DisplayOrder); err != nil {
			return fmt.Errorf("insert action %s: %w", a.ID, err)
		}
		for mi, m := range a.Multipliers {
			factors, err := json.Marshal(m.Factors)
			if err != nil {
				return fmt.Errorf("encode multiplier factors: %w", err)
			}
			if _, err := tx.ExecContext(ctx, insertMultiplier,
				newRowID(), string(a.ID), m.Name, m.FieldPath, string(factors), mi); err != nil {
				return fmt.Errorf("insert multiplier %q: %w", m.Name, err)
			}
		}
	}

	return nil
}

func decodeRule(r ruleRow) (types.Rule, error) {
	spec, err := decodeHydrationSpec(r.HydrationSpec)
	if err != nil {
		return types.Rule{}, fmt.Errorf("decode hydration spec for %s: %w", r.RuleID, err)
	}
	return types.Rule{
		ID:                    types.RuleID(r.RuleID),
		GroupID:               types.RuleGroupID(r.GroupID),
		Name:                  r.Name,
		Priority:              r.Priority,
		EvaluationOrder:       r.EvaluationOrder,
		Active:                r.Active,
		BaselinePlaceholder:   r.BaselinePlaceholder,
		Hydrated:              r.Hydrated,
		HydrationSourceRuleID: types.RuleID(r.HydrationSourceRuleID),
		Hydration:             spec,
	}, nil
}

func decodeCondition(c conditionRow) (types.Condition, error) {
	var value any
	if c.Value != "" {
		if err := json.Unmarshal([]byte(c.Value), &value); err != nil {
			return types.Condition{}, fmt.Errorf("decode condition %s value: %w", c.ConditionID, err)
		}
	}
	var values []any
	if c.ValueList != "" {
		if err := json.Unmarshal([]byte(c.ValueList), &values); err != nil {
			return types.Condition{}, fmt.Errorf("decode condition %s values: %w", c.ConditionID, err)
		}
	}
	return types.Condition{
		ID:         types.ConditionID(c.ConditionID),
		RuleID:     types.RuleID(c.RuleID),
		FieldPath:  c.FieldPath,
		Operator:   types.Operator(c.Operator),
		Value:      value,
		Values:     values,
		LogicalOp:  types.LogicalOperator(c.LogicalOp),
		GroupOrder: c.GroupOrder,
	}, nil
}

func decodeAction(a actionRow) types.Action {
	return types.Action{
		ID:           types.ActionID(a.ActionID),
		RuleID:       types.RuleID(a.RuleID),
		Type:         types.ActionType(a.ActionType),
		Metric:       a.Metric,
		BaseValue:    a.BaseValue,
		UnitType:     a.UnitType,
		FormulaText:  a.FormulaText,
		DisplayOrder: a.DisplayOrder,
	}
}

func decodeMultiplier(m multiplierRow) (types.ActionMultiplier, error) {
	factors := make(map[string]float64)
	if m.Factors != "" {
		if err := json.Unmarshal([]byte(m.Factors), &factors); err != nil {
			return types.ActionMultiplier{}, fmt.Errorf("decode multiplier %s factors: %w", m.MultiplierID, err)
		}
	}
	return types.ActionMultiplier{
		Name:      m.Name,
		FieldPath: m.FieldPath,
		Factors:   factors,
	}, nil
}

func encodeHydrationSpec(spec *types.HydrationSpec) (string, error) {
	if spec == nil {
		return "", nil
	}
	encoded, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeHydrationSpec(raw string) (*types.HydrationSpec, error) {
	if raw == "" {
		return nil, nil
	}
	var spec types.HydrationSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// newRowID generates an identifier for rows with no domain-level ID.
func newRowID() string {
	return string(types.NewActionID())
}
