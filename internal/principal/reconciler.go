// AngelaMos | 2026
// reconciler.go

package principal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/angelamos/orderhub/internal/batch"
	"github.com/angelamos/orderhub/internal/core"
	"github.com/angelamos/orderhub/internal/directory"
	"github.com/angelamos/orderhub/internal/policy"
	"github.com/angelamos/orderhub/internal/store"
	"github.com/angelamos/orderhub/internal/tenant"
)

// DefaultCreateConcurrency bounds the identity-provider creation fan-out.
const DefaultCreateConcurrency = 16

type ImportResult struct {
	Created map[string]string `json:"created"`
	Updated map[string]string `json:"updated"`
	Errors  []ImportError     `json:"errors,omitempty"`
}

type ImportError struct {
	Email   string `json:"email,omitempty"`
	Message string `json:"message"`
}

// Reconciler merges a bulk import of principal rows against the directory
// and the document store under the permission policy, persisting the
// outcome in chunked transactional batches.
type Reconciler struct {
	tenants           tenant.Repository
	repo              Repository
	provider          directory.Provider
	partitioner       *Partitioner
	matrix            policy.Matrix
	writer            *batch.Writer
	createConcurrency int
	logger            *slog.Logger
}

type ReconcilerConfig struct {
	Tenants           tenant.Repository
	Repo              Repository
	Provider          directory.Provider
	Partitioner       *Partitioner
	Matrix            policy.Matrix
	Writer            *batch.Writer
	CreateConcurrency int
	Logger            *slog.Logger
}

func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	if cfg.CreateConcurrency <= 0 {
		cfg.CreateConcurrency = DefaultCreateConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Reconciler{
		tenants:           cfg.Tenants,
		repo:              cfg.Repo,
		provider:          cfg.Provider,
		partitioner:       cfg.Partitioner,
		matrix:            cfg.Matrix,
		writer:            cfg.Writer,
		createConcurrency: cfg.CreateConcurrency,
		logger:            cfg.Logger,
	}
}

// Import runs the reconciliation pipeline. Authorization, row validation
// and tenant-isolation failures abort before any mutation; per-email
// creation failures and batch-write failures are collected into the result
// instead. Concurrent imports against the same tenant are not excluded;
// the document store's last write wins.
func (r *Reconciler) Import(
	ctx context.Context,
	actor Actor,
	tenantID string,
	rows map[string]map[string]string,
) (*ImportResult, error) {
	if !actor.Tier.IsAdmin() || actor.TenantID != tenantID {
		return nil, fmt.Errorf("import principals: %w", core.ErrForbidden)
	}

	tenantRec, err := r.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("import principals: %w", err)
	}

	validated, err := tenantRec.ValidateRows(rows)
	if err != nil {
		return nil, fmt.Errorf("import principals: %w", err)
	}
	validated = normalizeRowKeys(validated)

	lookup, err := r.classify(ctx, tenantID, validated)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		Created: make(map[string]string),
		Updated: make(map[string]string),
	}

	created := r.createMissing(ctx, tenantRec, lookup.NotFound, result)

	editable, err := r.editableSet(ctx, actor, tenantID, lookup.Found)
	if err != nil {
		return nil, err
	}

	intents, err := r.buildIntents(
		ctx, actor, tenantRec, validated, created, lookup.Found, editable, result)
	if err != nil {
		return nil, err
	}

	if _, err := r.writer.Commit(ctx, intents); err != nil {
		var writeErr *batch.WriteError
		if errors.As(err, &writeErr) {
			result.Errors = append(result.Errors, ImportError{
				Message: fmt.Sprintf(
					"batch write failed after %d committed writes: %v",
					writeErr.Committed, writeErr.Err,
				),
			})
			return result, nil
		}
		return nil, fmt.Errorf("import principals: %w", err)
	}

	r.logger.Info("principal import finished",
		"tenant", tenantID,
		"created", len(result.Created),
		"updated", len(result.Updated),
		"errors", len(result.Errors),
	)
	return result, nil
}

// classify looks up all row emails and verifies every existing account
// belongs to the tenant. A mismatch is the same hard stop as the
// partitioner's cross-tenant check.
func (r *Reconciler) classify(
	ctx context.Context,
	tenantID string,
	rows map[string]tenant.ValidatedRow,
) (*directory.LookupResult, error) {
	emails := make([]string, 0, len(rows))
	for email := range rows {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	lookup, err := r.provider.LookupByEmails(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("classify rows: %w", err)
	}

	for email, id := range lookup.Found {
		membership, err := r.repo.GetMembership(ctx, id)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, fmt.Errorf("row %s: %w", email, core.ErrCrossTenant)
			}
			return nil, fmt.Errorf("classify rows: %w", err)
		}
		if !membership.BelongsTo(tenantID) {
			return nil, fmt.Errorf("row %s: %w", email, core.ErrCrossTenant)
		}
	}

	return lookup, nil
}

// createMissing creates directory accounts for unknown emails with the
// tenant's default password. Failures are collected per email; this is
// the one stage where partial failure is tolerated per item.
func (r *Reconciler) createMissing(
	ctx context.Context,
	tenantRec *tenant.Tenant,
	emails []string,
	result *ImportResult,
) map[string]string {
	created := make(map[string]string, len(emails))
	if len(emails) == 0 {
		return created
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.createConcurrency)

	for _, email := range emails {
		group.Go(func() error {
			id, err := r.provider.Create(
				groupCtx, email, tenantRec.DefaultPrincipal.Password)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Warn("account creation failed",
					"email", email, "error", err)
				result.Errors = append(result.Errors, ImportError{
					Email:   email,
					Message: err.Error(),
				})
				return nil
			}
			created[email] = id
			return nil
		})
	}

	//nolint:errcheck // workers only report via the shared result
	_ = group.Wait()
	return created
}

func (r *Reconciler) editableSet(
	ctx context.Context,
	actor Actor,
	tenantID string,
	found map[string]string,
) (map[string]bool, error) {
	targets := make([]string, 0, len(found))
	for _, id := range found {
		targets = append(targets, id)
	}
	sort.Strings(targets)

	partition, err := r.partitioner.Partition(
		ctx, actor, tenantID, targets, policy.ActionEdit)
	if err != nil {
		return nil, fmt.Errorf("compute editable set: %w", err)
	}

	editable := make(map[string]bool, len(partition.Editable))
	for _, id := range partition.Editable {
		editable[id] = true
	}
	return editable, nil
}

// buildIntents computes merged documents and queues one membership write
// per created principal plus one profile write per created or update-
// eligible principal. Found-but-uneditable ids are skipped silently: an
// admin cannot touch out-of-authority accounts, and that is not an error.
func (r *Reconciler) buildIntents(
	ctx context.Context,
	actor Actor,
	tenantRec *tenant.Tenant,
	rows map[string]tenant.ValidatedRow,
	created map[string]string,
	found map[string]string,
	editable map[string]bool,
	result *ImportResult,
) ([]store.WriteIntent, error) {
	var intents []store.WriteIntent

	for _, email := range sortedKeys(created) {
		id := created[email]
		row := rows[email]

		doc := store.Document{}
		maps.Copy(doc, tenantRec.DefaultPrincipal.Profile)
		maps.Copy(doc, row.Fields)
		doc[tierField] = r.resolveCreateTier(actor, row.Tier).String()

		intents = append(intents, MembershipIntent(id, []string{tenantRec.ID}))
		intents = append(intents, ProfileIntent(tenantRec.ID, id, doc))
		result.Created[email] = id
	}

	for _, email := range sortedKeys(found) {
		id := found[email]
		if !editable[id] {
			continue
		}
		row := rows[email]

		existing, err := r.repo.GetProfile(ctx, tenantRec.ID, id)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("merge profile for %s: %w", email, err)
		}

		doc := store.Document{}
		maps.Copy(doc, existing)
		maps.Copy(doc, row.Fields)

		currentTier := policy.TierUser
		if existing != nil {
			currentTier = tierFromDocument(existing)
		}
		doc[tierField] = r.resolveUpdateTier(actor, id, currentTier, row.Tier).String()

		intents = append(intents, ProfileIntent(tenantRec.ID, id, doc))
		result.Updated[email] = id
	}

	return intents, nil
}

// resolveCreateTier clamps a requested tier down to the highest tier the
// actor may create. Rows without a tier default to USER.
func (r *Reconciler) resolveCreateTier(
	actor Actor,
	requested policy.Tier,
) policy.Tier {
	if requested == 0 {
		return policy.TierUser
	}
	if !r.matrix.Allows(actor.Tier, policy.ActionCreate, requested) {
		return r.matrix.MaxCreatableTier(actor.Tier)
	}
	return requested
}

// resolveUpdateTier applies the tier-transition rules: the actor's own
// tier is frozen (no self-promotion via import); a transition is blocked
// unless the actor holds DELETE authority over the target's current tier;
// an authorized transition is still clamped by CREATE authority.
func (r *Reconciler) resolveUpdateTier(
	actor Actor,
	targetID string,
	current, requested policy.Tier,
) policy.Tier {
	if targetID == actor.ID {
		return actor.Tier
	}
	if requested == 0 {
		return current
	}
	if !r.matrix.Allows(actor.Tier, policy.ActionDelete, current) {
		return current
	}
	if !r.matrix.Allows(actor.Tier, policy.ActionCreate, requested) {
		return r.matrix.MaxCreatableTier(actor.Tier)
	}
	return requested
}

// normalizeRowKeys re-keys rows by their canonical email so merges line
// up with the directory's lookup results regardless of input casing.
func normalizeRowKeys(
	rows map[string]tenant.ValidatedRow,
) map[string]tenant.ValidatedRow {
	normalized := make(map[string]tenant.ValidatedRow, len(rows))
	for email, row := range rows {
		normalized[directory.NormalizeEmail(email)] = row
	}
	return normalized
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
