// Package vendors implements vendor definition management: the catalog of
// vendors the platform can synchronize from, their protocols, formats and
// priority ranks.
package vendors

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/catsync/backend/internal/domain/vendor"
)

// HandlerBinder binds a vendor code to the handler serving its protocol.
// Binding on save keeps the registry current without a restart when vendors
// are added or switch protocols.
type HandlerBinder interface {
	Bind(vendorCode string, protocol vendor.FeedProtocol) error
}

// DefinitionService manages vendor definitions.
type DefinitionService struct {
	defs   vendor.DefinitionRepository
	binder HandlerBinder
	logger *zap.Logger
}

// NewDefinitionService creates a new DefinitionService
func NewDefinitionService(defs vendor.DefinitionRepository, binder HandlerBinder, logger *zap.Logger) *DefinitionService {
	return &DefinitionService{
		defs:   defs,
		binder: binder,
		logger: logger.Named("vendors"),
	}
}

// CreateDefinitionInput carries the fields for a new vendor definition.
type CreateDefinitionInput struct {
	Code               string
	Name               string
	Protocol           vendor.FeedProtocol
	Format             vendor.FeedFormat
	FeedEndpoint       string
	PriorityRank       int
	CredentialSchema   vendor.CredentialSchema
	FieldMappings      []vendor.FieldMapping
	StalenessThreshold time.Duration
}

// Create registers a new vendor definition.
func (s *DefinitionService) Create(ctx context.Context, input CreateDefinitionInput) (*vendor.VendorDefinition, error) {
	def, err := vendor.NewVendorDefinition(input.Code, input.Name, input.Protocol, input.Format, input.PriorityRank)
	if err != nil {
		return nil, err
	}
	def.FeedEndpoint = input.FeedEndpoint
	if input.CredentialSchema != nil {
		if err := input.CredentialSchema.Validate(); err != nil {
			return nil, err
		}
		def.CredentialSchema = input.CredentialSchema
	}
	if input.FieldMappings != nil {
		def.FieldMappings = input.FieldMappings
	}
	if input.StalenessThreshold > 0 {
		def.StalenessThreshold = input.StalenessThreshold
	}

	if err := s.binder.Bind(def.Code, def.Protocol); err != nil {
		return nil, err
	}
	if err := s.defs.Save(ctx, def); err != nil {
		return nil, err
	}
	s.logger.Info("vendor definition created",
		zap.String("vendor_code", def.Code),
		zap.String("protocol", string(def.Protocol)),
		zap.Int("priority_rank", def.PriorityRank))
	return def, nil
}

// UpdateDefinitionInput carries the mutable fields of a definition. Nil
// pointers leave the current value untouched.
type UpdateDefinitionInput struct {
	Name               *string
	FeedEndpoint       *string
	PriorityRank       *int
	CredentialSchema   vendor.CredentialSchema
	FieldMappings      []vendor.FieldMapping
	StalenessThreshold *time.Duration
	IsActive           *bool
}

// Update applies the given changes to an existing definition.
func (s *DefinitionService) Update(ctx context.Context, code string, input UpdateDefinitionInput) (*vendor.VendorDefinition, error) {
	def, err := s.defs.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		def.Name = *input.Name
	}
	if input.FeedEndpoint != nil {
		def.FeedEndpoint = *input.FeedEndpoint
	}
	if input.PriorityRank != nil {
		if *input.PriorityRank <= 0 {
			return nil, vendor.ErrInvalidPriorityRank
		}
		def.PriorityRank = *input.PriorityRank
	}
	if input.CredentialSchema != nil {
		if err := input.CredentialSchema.Validate(); err != nil {
			return nil, err
		}
		def.CredentialSchema = input.CredentialSchema
	}
	if input.FieldMappings != nil {
		def.FieldMappings = input.FieldMappings
	}
	if input.StalenessThreshold != nil && *input.StalenessThreshold > 0 {
		def.StalenessThreshold = *input.StalenessThreshold
	}
	if input.IsActive != nil {
		def.IsActive = *input.IsActive
	}
	def.UpdatedAt = time.Now()

	if err := s.defs.Save(ctx, def); err != nil {
		return nil, err
	}
	s.logger.Info("vendor definition updated", zap.String("vendor_code", def.Code))
	return def, nil
}

// Get returns a single definition by code.
func (s *DefinitionService) Get(ctx context.Context, code string) (*vendor.VendorDefinition, error) {
	return s.defs.FindByCode(ctx, code)
}

// ListActive returns all active definitions in priority order.
func (s *DefinitionService) ListActive(ctx context.Context) ([]vendor.VendorDefinition, error) {
	return s.defs.FindAllActive(ctx)
}
