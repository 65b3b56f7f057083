// Package credential implements the tenant credential workflows: storing
// vendor credentials through the vault, retrieving plaintext for feed
// retrieval, and connectivity verification.
package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/catsync/backend/internal/domain/vendor"
)

// Sealer is the encryption port the service stores credentials through. The
// vault implementation seals a field set into an opaque blob and fails closed
// on any tampering when opening one.
type Sealer interface {
	Seal(fields vendor.Credentials) ([]byte, error)
	Open(blob []byte) (vendor.Credentials, error)
}

// VaultService handles tenant vendor credential lifecycle operations.
// Plaintext credential fields exist only transiently inside a request; only
// sealed blobs are ever handed to the repository.
type VaultService struct {
	sealer   Sealer
	defs     vendor.DefinitionRepository
	creds    vendor.CredentialRepository
	registry vendor.HandlerRegistry
	logger   *zap.Logger
}

// NewVaultService creates a new VaultService
func NewVaultService(
	sealer Sealer,
	defs vendor.DefinitionRepository,
	creds vendor.CredentialRepository,
	registry vendor.HandlerRegistry,
	logger *zap.Logger,
) *VaultService {
	return &VaultService{
		sealer:   sealer,
		defs:     defs,
		creds:    creds,
		registry: registry,
		logger:   logger.Named("credential"),
	}
}

// Store validates the plaintext field set against the vendor's credential
// schema and seals it. The schema check runs before any vault operation, so a
// malformed field set never reaches the encryption layer. Re-storing replaces
// the existing blob and resets verification state.
func (s *VaultService) Store(ctx context.Context, tenantID uuid.UUID, vendorCode string, fields vendor.Credentials) (*vendor.TenantVendorCredential, error) {
	def, err := s.defs.FindByCode(ctx, vendorCode)
	if err != nil {
		return nil, err
	}
	if err := def.CredentialSchema.CheckFields(fields); err != nil {
		return nil, err
	}

	blob, err := s.sealer.Seal(fields)
	if err != nil {
		return nil, fmt.Errorf("sealing credential fields: %w", err)
	}

	cred, err := s.creds.FindByTenantAndVendor(ctx, tenantID, vendorCode)
	switch {
	case err == nil:
		cred.Reseal(blob)
	case errors.Is(err, vendor.ErrCredentialNotFound):
		cred = vendor.NewTenantVendorCredential(tenantID, vendorCode, blob)
	default:
		return nil, err
	}

	if err := s.creds.Save(ctx, cred); err != nil {
		return nil, err
	}
	s.logger.Info("credential stored",
		zap.String("tenant_id", tenantID.String()),
		zap.String("vendor_code", vendorCode))
	return cred, nil
}

// Plaintext opens the stored blob for a (tenant, vendor) pair. Decryption
// failures surface as vendor.ErrDecryptionFailed and never yield partial
// plaintext.
func (s *VaultService) Plaintext(ctx context.Context, tenantID uuid.UUID, vendorCode string) (vendor.Credentials, error) {
	cred, err := s.creds.FindByTenantAndVendor(ctx, tenantID, vendorCode)
	if err != nil {
		return nil, err
	}
	if !cred.Usable() {
		return nil, vendor.ErrCredentialRevoked
	}
	return s.sealer.Open(cred.EncryptedBlob)
}

// TestConnection opens the stored credential and performs the vendor
// handler's connectivity check, recording the outcome on the credential
// record. A failed check is a result, not an error.
func (s *VaultService) TestConnection(ctx context.Context, tenantID uuid.UUID, vendorCode string) (*vendor.ConnectionTestResult, error) {
	def, err := s.defs.FindByCode(ctx, vendorCode)
	if err != nil {
		return nil, err
	}
	handler, err := s.registry.Get(vendorCode)
	if err != nil {
		return nil, err
	}
	cred, err := s.creds.FindByTenantAndVendor(ctx, tenantID, vendorCode)
	if err != nil {
		return nil, err
	}
	if !cred.Usable() {
		return nil, vendor.ErrCredentialRevoked
	}
	fields, err := s.sealer.Open(cred.EncryptedBlob)
	if err != nil {
		return nil, err
	}

	result := &vendor.ConnectionTestResult{Success: true, Message: "connection verified"}
	if err := handler.TestConnection(ctx, def, fields); err != nil {
		result.Success = false
		result.Message = err.Error()
	}

	cred.MarkVerified(result.Success)
	if err := s.creds.Save(ctx, cred); err != nil {
		return nil, err
	}

	if !result.Success {
		s.logger.Warn("connection test failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("vendor_code", vendorCode),
			zap.String("reason", result.Message))
	}
	return result, nil
}

// Invalidate logically revokes the stored credential without deleting it.
func (s *VaultService) Invalidate(ctx context.Context, tenantID uuid.UUID, vendorCode string) error {
	cred, err := s.creds.FindByTenantAndVendor(ctx, tenantID, vendorCode)
	if err != nil {
		return err
	}
	cred.Invalidate()
	if err := s.creds.Save(ctx, cred); err != nil {
		return err
	}
	s.logger.Info("credential invalidated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("vendor_code", vendorCode))
	return nil
}

// ListForTenant returns the tenant's credential records, sealed blobs and
// all, for status display. Plaintext is never included.
func (s *VaultService) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]vendor.TenantVendorCredential, error) {
	return s.creds.FindAllForTenant(ctx, tenantID)
}
