// AngelaMos | 2026
// service.go

package principal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/angelamos/orderhub/internal/batch"
	"github.com/angelamos/orderhub/internal/core"
	"github.com/angelamos/orderhub/internal/directory"
	"github.com/angelamos/orderhub/internal/policy"
	"github.com/angelamos/orderhub/internal/store"
	"github.com/angelamos/orderhub/internal/tenant"
)

// DefaultListLimit caps how many directory accounts a listing resolves.
const DefaultListLimit = 1000

// DeleteOutcome reports a bulk delete per id. Skipped holds the ids the
// actor lacked authority over; Failed holds directory-level errors.
type DeleteOutcome struct {
	Deleted []string          `json:"deleted"`
	Skipped []string          `json:"skipped,omitempty"`
	Failed  map[string]string `json:"failed,omitempty"`
	Errors  []string          `json:"errors,omitempty"`
}

// ResetOutcome reports a bulk password reset per id. Failed covers both
// out-of-authority targets and directory-level errors.
type ResetOutcome struct {
	Success []string          `json:"success"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// Service owns the tenant-scoped principal operations that are not part
// of the bulk import pipeline.
type Service struct {
	tenants     tenant.Repository
	repo        Repository
	provider    directory.Provider
	partitioner *Partitioner
	writer      *batch.Writer
	listLimit   int
	logger      *slog.Logger
}

type ServiceConfig struct {
	Tenants     tenant.Repository
	Repo        Repository
	Provider    directory.Provider
	Partitioner *Partitioner
	Writer      *batch.Writer
	ListLimit   int
	Logger      *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = DefaultListLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		tenants:     cfg.Tenants,
		repo:        cfg.Repo,
		provider:    cfg.Provider,
		partitioner: cfg.Partitioner,
		writer:      cfg.Writer,
		listLimit:   cfg.ListLimit,
		logger:      cfg.Logger,
	}
}

// CheckIsAdmin reports whether the account behind an email holds an
// administrative tier in its tenant. Unknown emails and accounts without
// a membership answer false rather than erroring, so the login screen
// cannot be used to probe which emails exist.
func (s *Service) CheckIsAdmin(ctx context.Context, email string) (bool, error) {
	account, err := s.provider.LookupByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check admin: %w", err)
	}

	membership, err := s.repo.GetMembership(ctx, account.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check admin: %w", err)
	}

	// An administrative tier in any member tenant opens the admin surface.
	for _, tenantID := range membership.Tenants {
		doc, err := s.repo.GetProfile(ctx, tenantID, account.ID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			return false, fmt.Errorf("check admin: %w", err)
		}
		if tierFromDocument(doc).IsAdmin() {
			return true, nil
		}
	}
	return false, nil
}

// Resolve loads the tier and tenant for an authenticated account id.
// Accounts without a membership resolve to USER with no tenant; those are
// half-finished signups that can still log in to delete themselves.
func (s *Service) Resolve(ctx context.Context, id string) (policy.Tier, string, error) {
	membership, err := s.repo.GetMembership(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return policy.TierUser, "", nil
		}
		return 0, "", fmt.Errorf("resolve principal: %w", err)
	}
	if len(membership.Tenants) == 0 {
		return policy.TierUser, "", nil
	}

	// The first tenant holding a profile wins. Current writers record a
	// single membership, so multi-tenant accounts only ever have one.
	for _, tenantID := range membership.Tenants {
		doc, err := s.repo.GetProfile(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			return 0, "", fmt.Errorf("resolve principal: %w", err)
		}
		return tierFromDocument(doc), tenantID, nil
	}
	return policy.TierUser, membership.Tenants[0], nil
}

// Delete removes principals from both the directory and the document
// store. Out-of-authority targets are skipped, not errors; a target
// outside the tenant aborts the whole call. Profile and membership
// documents are only removed for ids the directory actually deleted.
// Directory deletions are durable, so a failed document cleanup still
// reports the deleted ids, with the cleanup failure in Errors.
func (s *Service) Delete(
	ctx context.Context,
	actor Actor,
	tenantID string,
	ids []string,
) (*DeleteOutcome, error) {
	if err := s.authorize(actor, tenantID); err != nil {
		return nil, fmt.Errorf("delete principals: %w", err)
	}

	partition, err := s.partitioner.Partition(
		ctx, actor, tenantID, ids, policy.ActionDelete)
	if err != nil {
		return nil, fmt.Errorf("delete principals: %w", err)
	}

	outcome := &DeleteOutcome{
		Skipped: partition.Uneditable,
		Failed:  make(map[string]string),
	}
	if len(partition.Editable) == 0 {
		return outcome, nil
	}

	deleted, err := s.provider.DeleteMany(ctx, partition.Editable)
	if err != nil {
		return nil, fmt.Errorf("delete principals: %w", err)
	}
	for id, derr := range deleted.Failed {
		outcome.Failed[id] = derr.Error()
	}

	var intents []store.WriteIntent
	sort.Strings(deleted.Deleted)
	for _, id := range deleted.Deleted {
		intents = append(intents, DeleteProfileIntent(tenantID, id))
		intents = append(intents, DeleteMembershipIntent(id))
	}
	outcome.Deleted = deleted.Deleted

	if _, err := s.writer.Commit(ctx, intents); err != nil {
		var writeErr *batch.WriteError
		if errors.As(err, &writeErr) {
			s.logger.Error("document cleanup failed after directory delete",
				"tenant", tenantID,
				"deleted", len(outcome.Deleted),
				"committed_writes", writeErr.Committed,
				"error", writeErr.Err,
			)
			outcome.Errors = append(outcome.Errors, fmt.Sprintf(
				"document cleanup failed after %d committed writes: %v",
				writeErr.Committed, writeErr.Err,
			))
			return outcome, nil
		}
		return nil, fmt.Errorf("delete principals: %w", err)
	}

	s.logger.Info("principals deleted",
		"tenant", tenantID,
		"deleted", len(outcome.Deleted),
		"skipped", len(outcome.Skipped),
		"failed", len(outcome.Failed),
	)
	return outcome, nil
}

// SetEmail changes one principal's directory email. Unlike the bulk
// operations a single out-of-authority target is a hard failure here;
// there is no partial outcome to report.
func (s *Service) SetEmail(
	ctx context.Context,
	actor Actor,
	tenantID, id, email string,
) error {
	if err := s.authorize(actor, tenantID); err != nil {
		return fmt.Errorf("set email: %w", err)
	}

	partition, err := s.partitioner.Partition(
		ctx, actor, tenantID, []string{id}, policy.ActionEdit)
	if err != nil {
		return fmt.Errorf("set email: %w", err)
	}
	if len(partition.Editable) == 0 {
		return fmt.Errorf("set email: %w", core.ErrForbidden)
	}

	if err := s.provider.UpdateEmail(ctx, id, email); err != nil {
		return fmt.Errorf("set email: %w", err)
	}
	return nil
}

// ResetPasswords resets editable targets to the tenant's default
// password. Out-of-authority targets land in Failed alongside directory
// errors; the caller sees one failed list per id.
func (s *Service) ResetPasswords(
	ctx context.Context,
	actor Actor,
	tenantID string,
	ids []string,
) (*ResetOutcome, error) {
	if err := s.authorize(actor, tenantID); err != nil {
		return nil, fmt.Errorf("reset passwords: %w", err)
	}

	tenantRec, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("reset passwords: %w", err)
	}

	partition, err := s.partitioner.Partition(
		ctx, actor, tenantID, ids, policy.ActionEdit)
	if err != nil {
		return nil, fmt.Errorf("reset passwords: %w", err)
	}

	outcome := &ResetOutcome{
		Failed: make(map[string]string),
	}
	for _, id := range partition.Uneditable {
		outcome.Failed[id] = "insufficient authority"
	}
	for _, id := range partition.Editable {
		if err := s.provider.UpdatePassword(
			ctx, id, tenantRec.DefaultPrincipal.Password); err != nil {
			outcome.Failed[id] = err.Error()
			continue
		}
		outcome.Success = append(outcome.Success, id)
	}
	return outcome, nil
}

// List joins directory accounts with their tenant profiles, returning
// only accounts that belong to the requested tenant. The directory read
// is capped; tenants near the cap should page through the import export
// instead.
func (s *Service) List(
	ctx context.Context,
	actor Actor,
	tenantID string,
) ([]Principal, error) {
	if err := s.authorize(actor, tenantID); err != nil {
		return nil, fmt.Errorf("list principals: %w", err)
	}

	accounts, err := s.provider.List(ctx, s.listLimit)
	if err != nil {
		return nil, fmt.Errorf("list principals: %w", err)
	}

	profiles, err := s.repo.ListProfiles(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list principals: %w", err)
	}

	principals := make([]Principal, 0, len(profiles))
	for _, account := range accounts {
		profile, ok := profiles[account.ID]
		if !ok {
			continue
		}
		principals = append(principals, Principal{
			ID:       account.ID,
			Email:    account.Email,
			Tier:     tierFromDocument(profile),
			TenantID: tenantID,
			Profile:  profile,
		})
	}
	return principals, nil
}

// DeleteFailedSignup removes an account that never gained a tenant
// membership. Only the account itself may request it, and an account
// with a membership is not a failed signup and must go through Delete.
func (s *Service) DeleteFailedSignup(ctx context.Context, callerID, id string) error {
	if callerID != id {
		return fmt.Errorf("delete failed signup: %w", core.ErrForbidden)
	}

	_, err := s.repo.GetMembership(ctx, id)
	if err == nil {
		return fmt.Errorf(
			"delete failed signup: account has a membership: %w",
			core.ErrInvalidInput)
	}
	if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("delete failed signup: %w", err)
	}

	deleted, err := s.provider.DeleteMany(ctx, []string{id})
	if err != nil {
		return fmt.Errorf("delete failed signup: %w", err)
	}
	if derr, ok := deleted.Failed[id]; ok {
		return fmt.Errorf("delete failed signup: %w", derr)
	}
	return nil
}

func (s *Service) authorize(actor Actor, tenantID string) error {
	if !actor.Tier.IsAdmin() || actor.TenantID != tenantID {
		return core.ErrForbidden
	}
	return nil
}
