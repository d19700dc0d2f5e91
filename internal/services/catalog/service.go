package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"tastymeals/internal/cache"
	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

// RepositoryInterface is the storage surface of the catalog service.
type RepositoryInterface interface {
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListCategories(ctx context.Context, q ListQuery) ([]models.Category, error)
	UpdateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateFoodItem(ctx context.Context, item *models.FoodItem) error
	GetFoodItem(ctx context.Context, id uuid.UUID) (*models.FoodItem, error)
	ListFoodItems(ctx context.Context, categoryID *uuid.UUID, q ListQuery) ([]models.FoodItem, error)
	UpdateFoodItem(ctx context.Context, item *models.FoodItem) error
	DeleteFoodItem(ctx context.Context, id uuid.UUID) error
	ActiveOfferForItem(ctx context.Context, itemID uuid.UUID, now time.Time) (*models.SpecialOffer, error)

	CreateOffer(ctx context.Context, offer *models.SpecialOffer) error
	GetOffer(ctx context.Context, id uuid.UUID) (*models.SpecialOffer, error)
	ListOffers(ctx context.Context) ([]models.SpecialOffer, error)
	UpdateOffer(ctx context.Context, offer *models.SpecialOffer) error
	DeleteOffer(ctx context.Context, id uuid.UUID) error

	CreateTable(ctx context.Context, table *models.DiningTable, qrPNG []byte) error
	GetTable(ctx context.Context, id uuid.UUID) (*models.DiningTable, error)
	GetTableQR(ctx context.Context, id uuid.UUID) ([]byte, error)
	ListTables(ctx context.Context) ([]models.DiningTable, error)
	UpdateTable(ctx context.Context, table *models.DiningTable, qrPNG []byte) error
	DeleteTable(ctx context.Context, id uuid.UUID) error
}

// ListQuery carries the optional search/ordering parameters of list
// endpoints.
type ListQuery struct {
	Search   string
	Ordering string
}

// MenuItem is a food item decorated with its effective price after any
// active special offer.
type MenuItem struct {
	models.FoodItem
	EffectivePrice string               `json:"effective_price"`
	Offer          *models.SpecialOffer `json:"offer,omitempty"`
}

// Service implements catalog management and customer menu reads.
type Service struct {
	repo    RepositoryInterface
	cache   *cache.Cache
	logger  *logger.Logger
	baseURL string
	now     func() time.Time
}

// NewService creates a catalog service. baseURL is embedded in dining
// table QR codes.
func NewService(repo RepositoryInterface, c *cache.Cache, log *logger.Logger, baseURL string) *Service {
	return &Service{
		repo:    repo,
		cache:   c,
		logger:  log,
		baseURL: baseURL,
		now:     time.Now,
	}
}

const (
	cacheKeyCategories = "catalog:categories"
	cacheKeyMenuPrefix = "catalog:menu"
)

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, "catalog:*")
	}
}

// CreateCategory adds a new category. Names are unique.
func (s *Service) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	category := &models.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return category, nil
}

// ListCategories returns categories for admin reads, uncached.
func (s *Service) ListCategories(ctx context.Context, q ListQuery) ([]models.Category, error) {
	return s.repo.ListCategories(ctx, q)
}

// ListCategoriesCached serves the customer menu path through the
// read-through cache. Only unparameterised reads are cached.
func (s *Service) ListCategoriesCached(ctx context.Context, q ListQuery) ([]models.Category, error) {
	if s.cache == nil || q.Search != "" || q.Ordering != "" {
		return s.repo.ListCategories(ctx, q)
	}

	var categories []models.Category
	if err := s.cache.Get(ctx, cacheKeyCategories, &categories); err == nil {
		return categories, nil
	}

	categories, err := s.repo.ListCategories(ctx, q)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cacheKeyCategories, categories)
	return categories, nil
}

// GetCategory fetches one category.
func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return s.repo.GetCategory(ctx, id)
}

// UpdateCategory renames or re-describes a category.
func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*models.Category, error) {
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		category.Name = name
	}
	if description != "" {
		category.Description = description
	}
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return category, nil
}

// DeleteCategory removes a category and, via the schema, its items.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// CreateFoodItemInput is the admin-facing food item payload.
type CreateFoodItemInput struct {
	Name        string
	Description string
	Price       string
	IsAvailable *bool
}

// CreateFoodItem adds an item under a category.
func (s *Service) CreateFoodItem(ctx context.Context, categoryID uuid.UUID, in CreateFoodItemInput) (*models.FoodItem, error) {
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}

	item := &models.FoodItem{
		ID:          uuid.New(),
		CategoryID:  categoryID,
		Name:        in.Name,
		Description: in.Description,
		Price:       price,
		IsAvailable: true,
	}
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
	if err := s.repo.CreateFoodItem(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return item, nil
}

// GetFoodItem fetches one item.
func (s *Service) GetFoodItem(ctx context.Context, id uuid.UUID) (*models.FoodItem, error) {
	return s.repo.GetFoodItem(ctx, id)
}

// ListFoodItems returns items, optionally scoped to one category,
// for admin reads.
func (s *Service) ListFoodItems(ctx context.Context, categoryID *uuid.UUID, q ListQuery) ([]models.FoodItem, error) {
	return s.repo.ListFoodItems(ctx, categoryID, q)
}

// Menu returns available items with effective (offer-discounted)
// prices, the customer-facing read. Unparameterised reads of a
// category page come from the cache.
func (s *Service) Menu(ctx context.Context, categoryID *uuid.UUID, q ListQuery) ([]MenuItem, error) {
	cacheable := s.cache != nil && q.Search == "" && q.Ordering == ""
	key := cacheKeyMenuPrefix
	if categoryID != nil {
		key = fmt.Sprintf("%s:%s", cacheKeyMenuPrefix, categoryID)
	}

	if cacheable {
		var menu []MenuItem
		if err := s.cache.Get(ctx, key, &menu); err == nil {
			return menu, nil
		}
	}

	items, err := s.repo.ListFoodItems(ctx, categoryID, q)
	if err != nil {
		return nil, err
	}

	now := s.now()
	menu := make([]MenuItem, 0, len(items))
	for _, item := range items {
		if !item.IsAvailable {
			continue
		}
		entry := MenuItem{FoodItem: item, EffectivePrice: item.Price.StringFixed(2)}
		offer, err := s.repo.ActiveOfferForItem(ctx, item.ID, now)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		if offer != nil {
			entry.Offer = offer
			entry.EffectivePrice = DiscountedPrice(item.Price, offer.DiscountPercentage).StringFixed(2)
		}
		menu = append(menu, entry)
	}

	if cacheable {
		s.cache.Set(ctx, key, menu)
	}
	return menu, nil
}

// UpdateFoodItemInput carries partial food item updates.
type UpdateFoodItemInput struct {
	Name        *string
	Description *string
	Price       *string
	IsAvailable *bool
	CategoryID  *uuid.UUID
}

// UpdateFoodItem applies a partial update to an item.
func (s *Service) UpdateFoodItem(ctx context.Context, id uuid.UUID, in UpdateFoodItemInput) (*models.FoodItem, error) {
	item, err := s.repo.GetFoodItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		item.Name = *in.Name
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Price != nil {
		price, err := parsePrice(*in.Price)
		if err != nil {
			return nil, err
		}
		item.Price = price
	}
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
	if in.CategoryID != nil {
		if _, err := s.repo.GetCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
		item.CategoryID = *in.CategoryID
	}
	if err := s.repo.UpdateFoodItem(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return item, nil
}

// DeleteFoodItem removes an item from the menu. Past order snapshots
// keep their copied name and price.
func (s *Service) DeleteFoodItem(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteFoodItem(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// CreateOfferInput is the admin-facing special offer payload.
type CreateOfferInput struct {
	FoodItemID         uuid.UUID
	Name               string
	DiscountPercentage string
	StartDate          time.Time
	EndDate            time.Time
	Description        string
}

// CreateOffer attaches a time-bound percentage discount to an item.
func (s *Service) CreateOffer(ctx context.Context, in CreateOfferInput) (*models.SpecialOffer, error) {
	if _, err := s.repo.GetFoodItem(ctx, in.FoodItemID); err != nil {
		return nil, err
	}
	pct, err := parsePercentage(in.DiscountPercentage)
	if err != nil {
		return nil, err
	}
	if !in.EndDate.After(in.StartDate) {
		return nil, fmt.Errorf("end_date must be after start_date: %w", models.ErrValidation)
	}

	offer := &models.SpecialOffer{
		ID:                 uuid.New(),
		FoodItemID:         in.FoodItemID,
		Name:               in.Name,
		DiscountPercentage: pct,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		Description:        in.Description,
	}
	if err := s.repo.CreateOffer(ctx, offer); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return offer, nil
}

// ListOffers returns all offers, active or not.
func (s *Service) ListOffers(ctx context.Context) ([]models.SpecialOffer, error) {
	return s.repo.ListOffers(ctx)
}

// GetOffer fetches one offer.
func (s *Service) GetOffer(ctx context.Context, id uuid.UUID) (*models.SpecialOffer, error) {
	return s.repo.GetOffer(ctx, id)
}

// UpdateOfferInput carries partial special offer updates.
type UpdateOfferInput struct {
	Name               *string
	DiscountPercentage *string
	StartDate          *time.Time
	EndDate            *time.Time
	Description        *string
}

// UpdateOffer applies a partial update to an offer.
func (s *Service) UpdateOffer(ctx context.Context, id uuid.UUID, in UpdateOfferInput) (*models.SpecialOffer, error) {
	offer, err := s.repo.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		offer.Name = *in.Name
	}
	if in.DiscountPercentage != nil {
		pct, err := parsePercentage(*in.DiscountPercentage)
		if err != nil {
			return nil, err
		}
		offer.DiscountPercentage = pct
	}
	if in.StartDate != nil {
		offer.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		offer.EndDate = *in.EndDate
	}
	if in.Description != nil {
		offer.Description = *in.Description
	}
	if !offer.EndDate.After(offer.StartDate) {
		return nil, fmt.Errorf("end_date must be after start_date: %w", models.ErrValidation)
	}
	if err := s.repo.UpdateOffer(ctx, offer); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return offer, nil
}

// DeleteOffer removes an offer; the item reverts to list price.
func (s *Service) DeleteOffer(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteOffer(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// CreateTable registers a dining table and renders its QR code, which
// points customers at the menu with the table preselected.
func (s *Service) CreateTable(ctx context.Context, tableNumber int) (*models.DiningTable, error) {
	if tableNumber <= 0 {
		return nil, fmt.Errorf("table_number must be positive: %w", models.ErrValidation)
	}
	table := &models.DiningTable{
		ID:          uuid.New(),
		TableNumber: tableNumber,
	}
	png, err := s.renderTableQR(table)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateTable(ctx, table, png); err != nil {
		return nil, err
	}
	return table, nil
}

// ListTables returns all dining tables.
func (s *Service) ListTables(ctx context.Context) ([]models.DiningTable, error) {
	return s.repo.ListTables(ctx)
}

// GetTable fetches one dining table.
func (s *Service) GetTable(ctx context.Context, id uuid.UUID) (*models.DiningTable, error) {
	return s.repo.GetTable(ctx, id)
}

// TableQR returns the stored QR code PNG for a table.
func (s *Service) TableQR(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return s.repo.GetTableQR(ctx, id)
}

// UpdateTable renumbers a table and re-renders its QR code.
func (s *Service) UpdateTable(ctx context.Context, id uuid.UUID, tableNumber int) (*models.DiningTable, error) {
	if tableNumber <= 0 {
		return nil, fmt.Errorf("table_number must be positive: %w", models.ErrValidation)
	}
	table, err := s.repo.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}
	table.TableNumber = tableNumber
	png, err := s.renderTableQR(table)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTable(ctx, table, png); err != nil {
		return nil, err
	}
	return table, nil
}

// DeleteTable removes a dining table. Orders keep a null reference.
func (s *Service) DeleteTable(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTable(ctx, id)
}

func (s *Service) renderTableQR(table *models.DiningTable) ([]byte, error) {
	target := fmt.Sprintf("%s/menu?table=%s", s.baseURL, table.ID)
	return qrcode.Encode(target, qrcode.Medium, 256)
}
