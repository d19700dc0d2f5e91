package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tastymeals/internal/database"
	"tastymeals/internal/models"
)

// Repository is the pgx-backed cart store.
type Repository struct {
	db *database.DB
}

// NewRepository wraps the shared connection pool.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// GetCartID resolves the caller's cart, creating it if the account
// predates cart provisioning.
func (r *Repository) GetCartID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var cartID uuid.UUID
	err := r.db.QueryRow(ctx,
		`INSERT INTO carts (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING id`, userID).Scan(&cartID)
	return cartID, err
}

// cartItemQuery joins each line to its food item and any offer active
// right now, so unit prices reflect the live catalog.
const cartItemQuery = `
	SELECT ci.id, ci.cart_id, ci.fooditem_id, fi.name, ci.quantity,
	       ROUND(fi.price * (100 - COALESCE(so.discount_percentage, 0)) / 100, 2) AS unit_price,
	       ci.created_at
	FROM cart_items ci
	JOIN food_items fi ON fi.id = ci.fooditem_id
	LEFT JOIN special_offers so ON so.fooditem_id = fi.id
	     AND so.start_date <= NOW() AND so.end_date >= NOW()`

func scanCartItem(row pgx.Row) (*models.CartItem, error) {
	var item models.CartItem
	err := row.Scan(&item.ID, &item.CartID, &item.FoodItemID, &item.Name,
		&item.Quantity, &item.UnitPrice, &item.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) GetCartItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	rows, err := r.db.Query(ctx,
		cartItemQuery+` WHERE ci.cart_id = $1 ORDER BY ci.created_at`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.FoodItemID, &item.Name,
			&item.Quantity, &item.UnitPrice, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) AddItem(ctx context.Context, cartID, foodItemID uuid.UUID, quantity int) (*models.CartItem, error) {
	var itemID uuid.UUID
	err := r.db.QueryRow(ctx,
		`INSERT INTO cart_items (cart_id, fooditem_id, quantity)
		 VALUES ($1, $2, $3) RETURNING id`,
		cartID, foodItemID, quantity).Scan(&itemID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, models.ErrDuplicateCartItem
			case "23503":
				return nil, models.ErrNotFound
			}
		}
		return nil, err
	}
	return r.GetItem(ctx, cartID, itemID)
}

func (r *Repository) GetItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	return scanCartItem(r.db.QueryRow(ctx,
		cartItemQuery+` WHERE ci.id = $1 AND ci.cart_id = $2`, itemID, cartID))
}

func (r *Repository) UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE id = $1 AND cart_id = $2`,
		itemID, cartID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) FoodItemAvailable(ctx context.Context, foodItemID uuid.UUID) (bool, error) {
	var available bool
	err := r.db.QueryRow(ctx,
		`SELECT is_available FROM food_items WHERE id = $1`, foodItemID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, models.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return available, nil
}
