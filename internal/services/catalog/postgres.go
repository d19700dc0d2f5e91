package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tastymeals/internal/database"
	"tastymeals/internal/models"
)

// Repository is the pgx-backed catalog store.
type Repository struct {
	db *database.DB
}

// NewRepository wraps the shared connection pool.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *Repository) CreateCategory(ctx context.Context, c *models.Category) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO categories (id, name, description) VALUES ($1, $2, $3)
		 RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Description).Scan(&c.CreatedAt, &c.UpdatedAt)
	if isUniqueViolation(err) {
		return models.ErrDuplicateName
	}
	return err
}

func (r *Repository) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var c models.Category
	err := r.db.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM categories WHERE id = $1`,
		id).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// categoryOrderings maps the ordering query parameter to a safe ORDER BY
// clause. Anything else falls back to name.
var categoryOrderings = map[string]string{
	"name":        "name ASC",
	"-name":       "name DESC",
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
}

func (r *Repository) ListCategories(ctx context.Context, q ListQuery) ([]models.Category, error) {
	query := `SELECT id, name, description, created_at, updated_at FROM categories`
	var args []interface{}
	if q.Search != "" {
		query += ` WHERE name ILIKE $1 OR description ILIKE $1`
		args = append(args, "%"+q.Search+"%")
	}
	orderBy, ok := categoryOrderings[q.Ordering]
	if !ok {
		orderBy = "name ASC"
	}
	query += " ORDER BY " + orderBy

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *Repository) UpdateCategory(ctx context.Context, c *models.Category) error {
	err := r.db.QueryRow(ctx,
		`UPDATE categories SET name = $2, description = $3, updated_at = NOW()
		 WHERE id = $1 RETURNING updated_at`,
		c.ID, c.Name, c.Description).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	if isUniqueViolation(err) {
		return models.ErrDuplicateName
	}
	return err
}

func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "categories", id)
}

const foodItemColumns = `id, category_id, name, description, price, is_available, created_at, updated_at`

func scanFoodItem(row pgx.Row) (*models.FoodItem, error) {
	var item models.FoodItem
	err := row.Scan(&item.ID, &item.CategoryID, &item.Name, &item.Description,
		&item.Price, &item.IsAvailable, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) CreateFoodItem(ctx context.Context, item *models.FoodItem) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO food_items (id, category_id, name, description, price, is_available)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`,
		item.ID, item.CategoryID, item.Name, item.Description, item.Price, item.IsAvailable).
		Scan(&item.CreatedAt, &item.UpdatedAt)
}

func (r *Repository) GetFoodItem(ctx context.Context, id uuid.UUID) (*models.FoodItem, error) {
	return scanFoodItem(r.db.QueryRow(ctx,
		`SELECT `+foodItemColumns+` FROM food_items WHERE id = $1`, id))
}

var foodItemOrderings = map[string]string{
	"name":        "name ASC",
	"-name":       "name DESC",
	"price":       "price ASC",
	"-price":      "price DESC",
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
}

func (r *Repository) ListFoodItems(ctx context.Context, categoryID *uuid.UUID, q ListQuery) ([]models.FoodItem, error) {
	query := `SELECT ` + foodItemColumns + ` FROM food_items`
	var args []interface{}
	var where []string
	if categoryID != nil {
		args = append(args, *categoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	orderBy, ok := foodItemOrderings[q.Ordering]
	if !ok {
		orderBy = "name ASC"
	}
	query += " ORDER BY " + orderBy

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.FoodItem{}
	for rows.Next() {
		var item models.FoodItem
		if err := rows.Scan(&item.ID, &item.CategoryID, &item.Name, &item.Description,
			&item.Price, &item.IsAvailable, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) UpdateFoodItem(ctx context.Context, item *models.FoodItem) error {
	err := r.db.QueryRow(ctx,
		`UPDATE food_items SET category_id = $2, name = $3, description = $4,
		 price = $5, is_available = $6, updated_at = NOW()
		 WHERE id = $1 RETURNING updated_at`,
		item.ID, item.CategoryID, item.Name, item.Description, item.Price, item.IsAvailable).
		Scan(&item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

func (r *Repository) DeleteFoodItem(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "food_items", id)
}

const offerColumns = `id, fooditem_id, name, discount_percentage, start_date, end_date, description`

func scanOffer(row pgx.Row) (*models.SpecialOffer, error) {
	var o models.SpecialOffer
	err := row.Scan(&o.ID, &o.FoodItemID, &o.Name, &o.DiscountPercentage,
		&o.StartDate, &o.EndDate, &o.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) CreateOffer(ctx context.Context, offer *models.SpecialOffer) error {
	err := r.db.Exec(ctx,
		`INSERT INTO special_offers (id, fooditem_id, name, discount_percentage, start_date, end_date, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		offer.ID, offer.FoodItemID, offer.Name, offer.DiscountPercentage,
		offer.StartDate, offer.EndDate, offer.Description)
	if isUniqueViolation(err) {
		// One offer per food item.
		return models.ErrDuplicateName
	}
	return err
}

func (r *Repository) GetOffer(ctx context.Context, id uuid.UUID) (*models.SpecialOffer, error) {
	return scanOffer(r.db.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM special_offers WHERE id = $1`, id))
}

// ActiveOfferForItem returns the offer covering the given instant, or
// ErrNotFound when the item has none in effect.
func (r *Repository) ActiveOfferForItem(ctx context.Context, itemID uuid.UUID, now time.Time) (*models.SpecialOffer, error) {
	return scanOffer(r.db.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM special_offers
		 WHERE fooditem_id = $1 AND start_date <= $2 AND end_date >= $2`,
		itemID, now))
}

func (r *Repository) ListOffers(ctx context.Context) ([]models.SpecialOffer, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+offerColumns+` FROM special_offers ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	offers := []models.SpecialOffer{}
	for rows.Next() {
		var o models.SpecialOffer
		if err := rows.Scan(&o.ID, &o.FoodItemID, &o.Name, &o.DiscountPercentage,
			&o.StartDate, &o.EndDate, &o.Description); err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func (r *Repository) UpdateOffer(ctx context.Context, offer *models.SpecialOffer) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE special_offers SET name = $2, discount_percentage = $3,
		 start_date = $4, end_date = $5, description = $6 WHERE id = $1`,
		offer.ID, offer.Name, offer.DiscountPercentage, offer.StartDate, offer.EndDate, offer.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteOffer(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "special_offers", id)
}

func (r *Repository) CreateTable(ctx context.Context, table *models.DiningTable, qrPNG []byte) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO dining_tables (id, table_number, qr_code) VALUES ($1, $2, $3)
		 RETURNING created_at, updated_at`,
		table.ID, table.TableNumber, qrPNG).Scan(&table.CreatedAt, &table.UpdatedAt)
	if isUniqueViolation(err) {
		return models.ErrDuplicateName
	}
	return err
}

func (r *Repository) GetTable(ctx context.Context, id uuid.UUID) (*models.DiningTable, error) {
	var t models.DiningTable
	err := r.db.QueryRow(ctx,
		`SELECT id, table_number, created_at, updated_at FROM dining_tables WHERE id = $1`,
		id).Scan(&t.ID, &t.TableNumber, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) GetTableQR(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var png []byte
	err := r.db.QueryRow(ctx,
		`SELECT qr_code FROM dining_tables WHERE id = $1`, id).Scan(&png)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && len(png) == 0) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return png, nil
}

func (r *Repository) ListTables(ctx context.Context) ([]models.DiningTable, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, table_number, created_at, updated_at FROM dining_tables ORDER BY table_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []models.DiningTable{}
	for rows.Next() {
		var t models.DiningTable
		if err := rows.Scan(&t.ID, &t.TableNumber, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (r *Repository) UpdateTable(ctx context.Context, table *models.DiningTable, qrPNG []byte) error {
	err := r.db.QueryRow(ctx,
		`UPDATE dining_tables SET table_number = $2, qr_code = $3, updated_at = NOW()
		 WHERE id = $1 RETURNING updated_at`,
		table.ID, table.TableNumber, qrPNG).Scan(&table.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	if isUniqueViolation(err) {
		return models.ErrDuplicateName
	}
	return err
}

func (r *Repository) DeleteTable(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "dining_tables", id)
}

func (r *Repository) deleteByID(ctx context.Context, table string, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
