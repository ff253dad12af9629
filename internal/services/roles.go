package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrSelfRevocation = errors.New("cannot revoke your own admin access")

// ClaimSource yields the optional admin custom claim for an identity. The
// default source reads the parsed bearer token; tests substitute slow or
// failing sources.
type ClaimSource interface {
	AdminClaim(ctx context.Context) (bool, error)
}

// TokenClaims is the ClaimSource backed by an already-validated ID token.
type TokenClaims struct {
	Admin bool
}

func (t TokenClaims) AdminClaim(_ context.Context) (bool, error) {
	return t.Admin, nil
}

type Identity struct {
	UID    uuid.UUID
	Email  string
	Name   string
	Claims ClaimSource
}

type Resolution struct {
	IsPlatformAdmin bool              `json:"isPlatformAdmin"`
	PortalRole      models.PortalRole `json:"portalRole"`
}

// RoleService answers the platform-admin question and the portal-role question
// for a signed-in identity, reconciling the three admin representations:
// the custom claim, the UID-keyed record, and the lowercased-email-keyed record.
type RoleService struct {
	DB            *gorm.DB
	Tasks         *TaskRunner
	AllowedEmails []string
	CheckTimeout  time.Duration
}

func NewRoleService(db *gorm.DB, tasks *TaskRunner, allowedEmails []string, checkTimeout time.Duration) *RoleService {
	if checkTimeout <= 0 {
		checkTimeout = 3 * time.Second
	}
	return &RoleService{
		DB:            db,
		Tasks:         tasks,
		AllowedEmails: allowedEmails,
		CheckTimeout:  checkTimeout,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Resolve always produces a concrete answer. Every remote step is bounded by
// CheckTimeout; a timeout or transport error is inconclusive for that step,
// never a denial, and never reaches the caller. Unresolvable ambiguity lands
// on the least-privileged outcome.
func (r *RoleService) Resolve(ctx context.Context, identity Identity) Resolution {
	email := NormalizeEmail(identity.Email)

	// Profile fetch-or-create runs alongside the admin checks, not after them.
	roleCh := make(chan models.PortalRole, 1)
	go func() {
		roleCh <- r.ensureProfileRole(identity.UID, email, identity.Name)
	}()

	admin := r.resolveAdmin(ctx, identity.UID, email, identity.Claims)

	role := models.PortalRoleViewer
	select {
	case role = <-roleCh:
	case <-time.After(r.CheckTimeout):
		logger.WarnWithUser(identity.UID.String(), "profile_role_timeout", map[string]interface{}{
			"fallback": string(models.PortalRoleViewer),
		})
	}

	return Resolution{IsPlatformAdmin: admin, PortalRole: role}
}

func (r *RoleService) resolveAdmin(ctx context.Context, uid uuid.UUID, email string, claims ClaimSource) bool {
	// 1. Static allow-list: decide without waiting on any network call.
	if r.emailAllowListed(email) {
		return true
	}

	// 2. Custom claim, raced against the step timeout.
	if claims != nil {
		hasClaim, err := r.raceClaim(ctx, claims)
		if err != nil {
			logger.Warn("admin_claim_check_inconclusive", map[string]interface{}{
				"uid":   uid.String(),
				"error": err.Error(),
			})
		} else if hasClaim {
			return true
		}
	}

	// 3. UID-keyed admin record.
	record, err := r.fetchAdminRecord(ctx, uid.String())
	if err != nil {
		logger.Warn("admin_uid_check_inconclusive", map[string]interface{}{
			"uid":   uid.String(),
			"error": err.Error(),
		})
	} else if record != nil && record.Grants() {
		return true
	}

	// 4. Email-keyed admin record, mirroring to the UID key on a hit.
	if email != "" {
		record, err := r.fetchAdminRecord(ctx, email)
		if err != nil {
			logger.Warn("admin_email_check_inconclusive", map[string]interface{}{
				"uid":   uid.String(),
				"error": err.Error(),
			})
		} else if record != nil && record.Grants() {
			r.scheduleMirror(uid, email, *record)
			return true
		}
	}

	return false
}

func (r *RoleService) emailAllowListed(email string) bool {
	if email == "" {
		return false
	}
	for _, allowed := range r.AllowedEmails {
		if NormalizeEmail(allowed) == email {
			return true
		}
	}
	return false
}

func (r *RoleService) raceClaim(ctx context.Context, claims ClaimSource) (bool, error) {
	stepCtx, cancel := context.WithTimeout(ctx, r.CheckTimeout)
	defer cancel()

	type result struct {
		ok  bool
		err error
	}
	ch := make(chan result, 1)
	go func() {
		ok, err := claims.AdminClaim(stepCtx)
		ch <- result{ok: ok, err: err}
	}()

	select {
	case res := <-ch:
		return res.ok, res.err
	case <-stepCtx.Done():
		// Stop waiting; the source may still complete and its result is discarded.
		return false, stepCtx.Err()
	}
}

// fetchAdminRecord returns (nil, nil) when no record exists at the key.
func (r *RoleService) fetchAdminRecord(ctx context.Context, key string) (*models.AdminRecord, error) {
	stepCtx, cancel := context.WithTimeout(ctx, r.CheckTimeout)
	defer cancel()

	var record models.AdminRecord
	err := r.DB.WithContext(stepCtx).First(&record, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// scheduleMirror synthesizes the missing UID-keyed record so future lookups
// are a single keyed read. Best effort: a failed write must not block the
// current session's access.
func (r *RoleService) scheduleMirror(uid uuid.UUID, email string, source models.AdminRecord) {
	if r.Tasks == nil {
		return
	}
	r.Tasks.Submit("admin_mirror_record", func(ctx context.Context) error {
		var existing models.AdminRecord
		err := r.DB.WithContext(ctx).First(&existing, "key = ?", uid.String()).Error
		if err == nil {
			// Repeated resolutions must not stack conflicting rows.
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		mirror := models.AdminRecord{
			Key:       uid.String(),
			UID:       uid.String(),
			Email:     email,
			Role:      source.Role,
			Status:    source.Status,
			GrantedBy: source.GrantedBy,
			GrantedAt: source.GrantedAt,
		}
		return r.DB.WithContext(ctx).Create(&mirror).Error
	})
}

// ensureProfileRole reads the profile role, lazily creating the profile on
// first sign-in. Failures fall back to viewer and are logged only.
func (r *RoleService) ensureProfileRole(uid uuid.UUID, email, name string) models.PortalRole {
	var user models.User
	err := r.DB.First(&user, "id = ?", uid).Error
	if err == nil {
		if !models.IsValidPortalRole(user.Role) {
			return models.PortalRoleViewer
		}
		return user.Role
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.WarnWithUser(uid.String(), "profile_fetch_failed", map[string]interface{}{
			"error": err.Error(),
		})
		return models.PortalRoleViewer
	}

	if name == "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			name = email[:at]
		} else {
			name = "User"
		}
	}
	user = models.User{
		BaseModel:     models.BaseModel{ID: uid},
		Email:         email,
		Name:          name,
		Role:          models.PortalRoleViewer,
		Status:        models.UserStatusPending,
		Organizations: []string{},
	}
	if err := r.DB.Create(&user).Error; err != nil {
		logger.WarnWithUser(uid.String(), "profile_bootstrap_failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return models.PortalRoleViewer
}

// AdminClaimHint is the cheap signal stamped into freshly issued tokens. It is
// never authoritative; Resolve re-checks the records on every gated request.
func (r *RoleService) AdminClaimHint(ctx context.Context, uid uuid.UUID, email string) bool {
	email = NormalizeEmail(email)
	if r.emailAllowListed(email) {
		return true
	}
	record, err := r.fetchAdminRecord(ctx, uid.String())
	if err != nil || record == nil {
		return false
	}
	return record.Grants()
}

// Grant writes the UID-keyed admin record and syncs the portal role, matching
// how an existing admin hands out rights from the back office.
func (r *RoleService) Grant(ctx context.Context, grantedBy string, targetUID uuid.UUID, targetEmail string) error {
	email := NormalizeEmail(targetEmail)
	if targetUID == uuid.Nil || email == "" {
		return errors.New("target uid and email are required")
	}

	record := models.AdminRecord{
		Key:       targetUID.String(),
		UID:       targetUID.String(),
		Email:     email,
		Role:      models.AdminRoleAdmin,
		Status:    models.AdminStatusActive,
		GrantedBy: NormalizeEmail(grantedBy),
		GrantedAt: time.Now().UTC(),
	}
	if err := r.DB.WithContext(ctx).Save(&record).Error; err != nil {
		return err
	}

	// Role sync is best effort: the grantee may not have signed in yet.
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", targetUID).
		Updates(map[string]interface{}{
			"role":   models.PortalRoleAdmin,
			"status": models.UserStatusActive,
		}).Error
	if err != nil {
		logger.Warn("grant_role_sync_failed", map[string]interface{}{
			"uid":   targetUID.String(),
			"error": err.Error(),
		})
	}
	return nil
}

// Revoke removes admin rights at every key form that may exist: the UID key,
// the lowercased-email key, and any stray record whose email field matches.
// Individual deletion failures are swallowed so partial progress is kept, and
// revoking an already-revoked pair is a no-op. Self-revocation is rejected.
func (r *RoleService) Revoke(ctx context.Context, actorUID, targetUID uuid.UUID, targetEmail string) error {
	if actorUID == targetUID {
		return ErrSelfRevocation
	}

	email := NormalizeEmail(targetEmail)
	if email == "" {
		var user models.User
		if err := r.DB.WithContext(ctx).First(&user, "id = ?", targetUID).Error; err == nil {
			email = NormalizeEmail(user.Email)
		}
	}

	keys := []string{targetUID.String()}
	if email != "" {
		keys = append(keys, email)
	}
	for _, key := range keys {
		if err := r.DB.WithContext(ctx).Delete(&models.AdminRecord{}, "key = ?", key).Error; err != nil {
			logger.Warn("revoke_delete_failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	// Sweep any other record describing the same person under a different key.
	var strays []models.AdminRecord
	query := r.DB.WithContext(ctx).Where("uid = ?", targetUID.String())
	if email != "" {
		query = query.Or("email = ?", email)
	}
	if err := query.Find(&strays).Error; err == nil {
		for _, stray := range strays {
			if err := r.DB.WithContext(ctx).Delete(&models.AdminRecord{}, "key = ?", stray.Key).Error; err != nil {
				logger.Warn("revoke_stray_delete_failed", map[string]interface{}{
					"key":   stray.Key,
					"error": err.Error(),
				})
			}
		}
	}

	// Demote the portal role only when it was elevated by the admin grant.
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, "id = ?", targetUID).Error; err == nil {
		if user.Role == models.PortalRoleAdmin {
			if err := r.DB.WithContext(ctx).Model(&models.User{}).
				Where("id = ?", targetUID).
				Update("role", models.PortalRoleViewer).Error; err != nil {
				logger.Warn("revoke_demote_failed", map[string]interface{}{
					"uid":   targetUID.String(),
					"error": err.Error(),
				})
			}
		}
	}

	return nil
}
