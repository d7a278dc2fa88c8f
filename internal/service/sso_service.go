package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/domain"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/internal/repository"
	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrTokenProductMismatch  = errors.New("token not valid for this product")
)

// TokenSigner signs and verifies product handoff tokens
type TokenSigner interface {
	Generate(claims *domain.ProductClaims, now time.Time) (string, time.Time, error)
	Verify(token string, now time.Time) (*domain.ProductClaims, error)
	Expiry() time.Duration
}

type IssuedToken struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirectUrl"`
	ExpiresIn   int    `json:"expiresIn"`
}

// TokenUser is the identity a downstream product receives
type TokenUser struct {
	ID     uuid.UUID             `json:"id"`
	Email  string                `json:"email"`
	Name   string                `json:"name"`
	Role   domain.Role           `json:"role"`
	Tenant *domain.TenantSummary `json:"tenant,omitempty"`
}

type ValidatedToken struct {
	Valid bool       `json:"valid"`
	User  *TokenUser `json:"user"`
}

type SSOService struct {
	tokens   repository.ProductTokenRepository
	products repository.ProductRepository
	users    repository.UserRepository
	tenants  repository.TenantRepository
	access   *AccessService
	signer   TokenSigner
	audit    *AuditService
	metrics  *metrics.Metrics
	baseURL  string
	log      *zap.Logger
	now      func() time.Time
}

func NewSSOService(repos *repository.Set, access *AccessService, signer TokenSigner, audit *AuditService, m *metrics.Metrics, appBaseURL string, log *zap.Logger) *SSOService {
	return &SSOService{
		tokens:   repos.ProductTokens,
		products: repos.Products,
		users:    repos.Users,
		tenants:  repos.Tenants,
		access:   access,
		signer:   signer,
		audit:    audit,
		metrics:  m,
		baseURL:  strings.TrimRight(appBaseURL, "/"),
		log:      log,
		now:      time.Now,
	}
}

// IssueToken signs a handoff token for the session user after the access
// resolver grants the product
func (s *SSOService) IssueToken(ctx context.Context, data *SessionData, productSlug string, meta RequestMeta) (*IssuedToken, error) {
	result, err := s.access.ResolveForUser(ctx, productSlug, data, meta)
	if err != nil {
		return nil, err
	}
	if !result.HasAccess {
		s.metrics.SSOToken("issue", "denied")
		return nil, &AccessDeniedError{Reason: result.Code, Message: result.Reason}
	}

	product, err := s.products.GetBySlug(ctx, productSlug)
	if err != nil {
		return nil, lookupErr(err, ErrProductNotFound)
	}

	user := data.User
	claims := &domain.ProductClaims{
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		ProductID:   product.ID,
		ProductSlug: product.Slug,
	}
	if data.Tenant != nil {
		claims.TenantID = &data.Tenant.ID
		claims.TenantSlug = data.Tenant.Slug
	}

	now := s.now()
	signed, expiresAt, err := s.signer.Generate(claims, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sign product token: %w", err)
	}

	record := &domain.ProductToken{
		ID:        uuid.New(),
		Token:     signed,
		UserID:    user.ID,
		ProductID: product.ID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist product token: %w", err)
	}

	redirect, err := s.redirectURL(product, signed)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditSSOTokenIssued,
		Resource: domain.Resource("product", product.ID),
		Details:  domain.JSONMap{"productSlug": product.Slug, "tokenId": record.ID.String()},
		UserID:   &user.ID,
		TenantID: user.TenantID,
		Meta:     meta,
	})
	s.metrics.SSOToken("issue", "success")

	return &IssuedToken{
		Token:       signed,
		RedirectURL: redirect,
		ExpiresIn:   int(s.signer.Expiry().Seconds()),
	}, nil
}

func (s *SSOService) redirectURL(product *domain.Product, token string) (string, error) {
	if product.BaseURL == nil || strings.TrimSpace(*product.BaseURL) == "" {
		return fmt.Sprintf("%s/products/%s/launch?token=%s", s.baseURL, product.Slug, url.QueryEscape(token)), nil
	}

	u, err := url.Parse(*product.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid product base url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ValidateToken is called by downstream products. The persisted record
// decides; the signature is checked on top of it.
func (s *SSOService) ValidateToken(ctx context.Context, productSlug, token string, meta RequestMeta) (*ValidatedToken, error) {
	if token == "" {
		return nil, s.reject(ctx, nil, productSlug, "missing token", meta, ErrInvalidOrExpiredToken)
	}

	record, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.reject(ctx, nil, productSlug, "unknown token", meta, ErrInvalidOrExpiredToken)
		}
		return nil, err
	}

	now := s.now()
	if record.IsRevoked {
		return nil, s.reject(ctx, record, productSlug, "revoked", meta, ErrInvalidOrExpiredToken)
	}
	if record.IsExpired(now) {
		return nil, s.reject(ctx, record, productSlug, "expired", meta, ErrInvalidOrExpiredToken)
	}

	product, err := s.products.GetByID(ctx, record.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.reject(ctx, record, productSlug, "product missing", meta, ErrInvalidOrExpiredToken)
		}
		return nil, err
	}
	if product.Slug != productSlug {
		return nil, s.reject(ctx, record, productSlug, "product mismatch", meta, ErrTokenProductMismatch)
	}
	if !product.IsActive {
		return nil, s.reject(ctx, record, productSlug, "product inactive", meta, ErrInvalidOrExpiredToken)
	}

	claims, err := s.signer.Verify(token, now)
	if err != nil || claims.UserID != record.UserID || claims.ProductID != record.ProductID {
		return nil, s.reject(ctx, record, productSlug, "bad signature", meta, ErrInvalidOrExpiredToken)
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, s.reject(ctx, record, productSlug, "user unavailable", meta, ErrInvalidOrExpiredToken)
	}

	if err := s.tokens.MarkUsed(ctx, record.ID, now); err != nil {
		s.log.Warn("failed to mark product token used", zap.String("token_id", record.ID.String()), zap.Error(err))
	}

	out := &TokenUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
	if user.TenantID != nil {
		tenant, err := s.tenants.GetByID(ctx, *user.TenantID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if tenant != nil {
			out.Tenant = &domain.TenantSummary{ID: tenant.ID, Name: tenant.Name, Slug: tenant.Slug}
		}
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   domain.AuditSSOTokenValidated,
		Resource: domain.Resource("product", product.ID),
		Details:  domain.JSONMap{"productSlug": product.Slug, "tokenId": record.ID.String()},
		UserID:   &user.ID,
		TenantID: user.TenantID,
		Meta:     meta,
	})
	s.metrics.SSOToken("validate", "success")

	return &ValidatedToken{Valid: true, User: out}, nil
}

func (s *SSOService) reject(ctx context.Context, record *domain.ProductToken, productSlug, reason string, meta RequestMeta, err error) error {
	details := domain.JSONMap{"productSlug": productSlug, "reason": reason}
	entry := AuditEntry{Action: domain.AuditSSOTokenRejected, Details: details, Meta: meta}
	if record != nil {
		details["tokenId"] = record.ID.String()
		entry.UserID = &record.UserID
		entry.Resource = domain.Resource("product", record.ProductID)
	}
	s.audit.Record(ctx, entry)
	s.metrics.SSOToken("validate", "rejected")
	return err
}

func (s *SSOService) RevokeForTenantProduct(ctx context.Context, tenantID, productID uuid.UUID) (int64, error) {
	n, err := s.tokens.RevokeByTenantProduct(ctx, tenantID, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke tenant product tokens: %w", err)
	}
	return n, nil
}

func (s *SSOService) RevokeForPlanProduct(ctx context.Context, planID, productID uuid.UUID) (int64, error) {
	n, err := s.tokens.RevokeByPlanProduct(ctx, planID, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke plan product tokens: %w", err)
	}
	return n, nil
}

func (s *SSOService) RevokeForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	n, err := s.tokens.RevokeByTenant(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke tenant tokens: %w", err)
	}
	return n, nil
}

func (s *SSOService) RevokeForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.tokens.RevokeByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return n, nil
}
