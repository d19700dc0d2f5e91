package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"tastymeals/internal/database"
	"tastymeals/internal/models"
)

// Repository is the pgx-backed order store.
type Repository struct {
	db *database.DB
}

// NewRepository wraps the shared connection pool.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// PlaceOrder snapshots the user's cart into an order inside one
// transaction: read lines at their current discounted prices, insert
// the order and its items, clear the cart. Either all of it happens or
// none of it does.
func (r *Repository) PlaceOrder(ctx context.Context, userID uuid.UUID, diningTableID *uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var cartID uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&cartID)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrEmptyCart
		}
		if err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `
			SELECT ci.fooditem_id, fi.name, ci.quantity,
			       ROUND(fi.price * (100 - COALESCE(so.discount_percentage, 0)) / 100, 2)
			FROM cart_items ci
			JOIN food_items fi ON fi.id = ci.fooditem_id
			LEFT JOIN special_offers so ON so.fooditem_id = fi.id
			     AND so.start_date <= NOW() AND so.end_date >= NOW()
			WHERE ci.cart_id = $1
			ORDER BY ci.created_at`, cartID)
		if err != nil {
			return err
		}

		var items []models.OrderItem
		for rows.Next() {
			var item models.OrderItem
			if err := rows.Scan(&item.FoodItemID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
				rows.Close()
				return err
			}
			items = append(items, item)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(items) == 0 {
			return models.ErrEmptyCart
		}

		order = &models.Order{
			ID:            uuid.New(),
			UserID:        userID,
			DiningTableID: diningTableID,
			Status:        models.OrderUnpaid,
			TotalPrice:    totalOf(items),
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO orders (id, user_id, dining_table_id, status, total_price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at, updated_at`,
			order.ID, order.UserID, order.DiningTableID, order.Status, order.TotalPrice).
			Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return err
		}

		for i := range items {
			items[i].ID = uuid.New()
			items[i].OrderID = order.ID
			_, err = tx.Exec(ctx, `
				INSERT INTO order_items (id, order_id, fooditem_id, name, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				items[i].ID, items[i].OrderID, items[i].FoodItemID,
				items[i].Name, items[i].Quantity, items[i].UnitPrice)
			if err != nil {
				return err
			}
		}
		order.Items = items

		_, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

const orderColumns = `id, user_id, dining_table_id, status, total_price, created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.DiningTableID, &o.Status,
		&o.TotalPrice, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
}

func (r *Repository) GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, fooditem_id, name, quantity, unit_price
		FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.FoodItemID,
			&item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

var orderOrderings = map[string]string{
	"created_at":   "created_at ASC",
	"-created_at":  "created_at DESC",
	"total_price":  "total_price ASC",
	"-total_price": "total_price DESC",
}

func (r *Repository) ListOrders(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []interface{}
	var where []string
	if filter.UserID != uuid.Nil {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	orderBy, ok := orderOrderings[filter.Ordering]
	if !ok {
		orderBy = "created_at DESC"
	}
	query += " ORDER BY " + orderBy

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.DiningTableID, &o.Status,
			&o.TotalPrice, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateOrderStatus applies a guarded transition; the WHERE clause on
// the current status makes concurrent transitions race-safe.
func (r *Repository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, orderID, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

func (r *Repository) DiningTableExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM dining_tables WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}
