package loyalty

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"tastymeals/internal/database"
	"tastymeals/internal/models"
)

// Repository is the pgx-backed loyalty store.
type Repository struct {
	db *database.DB
}

// NewRepository wraps the shared connection pool.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// GetAccount resolves the caller's loyalty account, creating it if the
// account predates loyalty provisioning.
func (r *Repository) GetAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	err := r.db.QueryRow(ctx, `
		INSERT INTO loyalty_accounts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, points`, userID).
		Scan(&account.ID, &account.UserID, &account.Points)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *Repository) ListAccruals(ctx context.Context, userID uuid.UUID) ([]models.LoyaltyTransaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT lt.id, lt.account_id, lt.order_id, lt.amount, lt.points_earned, lt.created_at
		FROM loyalty_transactions lt
		JOIN loyalty_accounts la ON la.id = lt.account_id
		WHERE la.user_id = $1
		ORDER BY lt.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.LoyaltyTransaction{}
	for rows.Next() {
		var t models.LoyaltyTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.OrderID, &t.Amount, &t.PointsEarned, &t.CreatedAt); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *Repository) CreateOption(ctx context.Context, option *models.RedemptionOption) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO redemption_options (id, fooditem_id, points_required, description)
		VALUES ($1, $2, $3, $4) RETURNING created_at`,
		option.ID, option.FoodItemID, option.PointsRequired, option.Description).
		Scan(&option.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			// One option per food item.
			return models.ErrDuplicateName
		case "23503":
			return models.ErrNotFound
		}
	}
	return err
}

const optionColumns = `ro.id, ro.fooditem_id, fi.name, ro.points_required, ro.description, ro.created_at`

func scanOption(row pgx.Row) (*models.RedemptionOption, error) {
	var o models.RedemptionOption
	err := row.Scan(&o.ID, &o.FoodItemID, &o.FoodItemName, &o.PointsRequired, &o.Description, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) GetOption(ctx context.Context, id uuid.UUID) (*models.RedemptionOption, error) {
	return scanOption(r.db.QueryRow(ctx, `
		SELECT `+optionColumns+` FROM redemption_options ro
		JOIN food_items fi ON fi.id = ro.fooditem_id
		WHERE ro.id = $1`, id))
}

func (r *Repository) ListOptions(ctx context.Context) ([]models.RedemptionOption, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+optionColumns+` FROM redemption_options ro
		JOIN food_items fi ON fi.id = ro.fooditem_id
		ORDER BY ro.points_required`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	options := []models.RedemptionOption{}
	for rows.Next() {
		var o models.RedemptionOption
		if err := rows.Scan(&o.ID, &o.FoodItemID, &o.FoodItemName, &o.PointsRequired, &o.Description, &o.CreatedAt); err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

func (r *Repository) UpdateOption(ctx context.Context, option *models.RedemptionOption) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE redemption_options SET points_required = $2, description = $3 WHERE id = $1`,
		option.ID, option.PointsRequired, option.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteOption(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM redemption_options WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Redeem debits the account and materialises the redeemed order in one
// transaction. The account row lock serialises concurrent redemptions
// so the balance can never go negative.
func (r *Repository) Redeem(ctx context.Context, userID, optionID uuid.UUID) (*RedeemResult, error) {
	var result RedeemResult
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var accountID uuid.UUID
		var points int64
		err := tx.QueryRow(ctx,
			`SELECT id, points FROM loyalty_accounts WHERE user_id = $1 FOR UPDATE`, userID).
			Scan(&accountID, &points)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}

		var option models.RedemptionOption
		err = tx.QueryRow(ctx, `
			SELECT ro.id, ro.fooditem_id, fi.name, ro.points_required
			FROM redemption_options ro
			JOIN food_items fi ON fi.id = ro.fooditem_id
			WHERE ro.id = $1`, optionID).
			Scan(&option.ID, &option.FoodItemID, &option.FoodItemName, &option.PointsRequired)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("redemption option: %w", models.ErrNotFound)
		}
		if err != nil {
			return err
		}

		if points < option.PointsRequired {
			return fmt.Errorf("have %d, need %d: %w", points, option.PointsRequired, models.ErrInsufficientPoints)
		}

		_, err = tx.Exec(ctx,
			`UPDATE loyalty_accounts SET points = points - $2 WHERE id = $1`,
			accountID, option.PointsRequired)
		if err != nil {
			return err
		}
		result.RemainingPoints = points - option.PointsRequired

		order := &models.Order{
			ID:         uuid.New(),
			UserID:     userID,
			Status:     models.OrderRedeemed,
			TotalPrice: decimal.Zero,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO orders (id, user_id, status, total_price)
			VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`,
			order.ID, order.UserID, order.Status, order.TotalPrice).
			Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return err
		}

		item := models.OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			FoodItemID: option.FoodItemID,
			Name:       option.FoodItemName,
			Quantity:   1,
			UnitPrice:  decimal.Zero,
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, fooditem_id, name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, item.OrderID, item.FoodItemID, item.Name, item.Quantity, item.UnitPrice)
		if err != nil {
			return err
		}
		order.Items = []models.OrderItem{item}
		result.Order = order

		redemption := &models.RedemptionTransaction{
			ID:             uuid.New(),
			UserID:         userID,
			OptionID:       &option.ID,
			OrderID:        order.ID,
			PointsRedeemed: option.PointsRequired,
			Status:         models.RedemptionPending,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO redemption_transactions (id, user_id, option_id, order_id, points_redeemed, status)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
			redemption.ID, redemption.UserID, redemption.OptionID, redemption.OrderID,
			redemption.PointsRedeemed, redemption.Status).
			Scan(&redemption.CreatedAt)
		if err != nil {
			return err
		}
		result.Transaction = redemption
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

const redemptionColumns = `id, user_id, option_id, order_id, points_redeemed, status, created_at`

func (r *Repository) GetRedemption(ctx context.Context, id uuid.UUID) (*models.RedemptionTransaction, error) {
	var t models.RedemptionTransaction
	err := r.db.QueryRow(ctx,
		`SELECT `+redemptionColumns+` FROM redemption_transactions WHERE id = $1`, id).
		Scan(&t.ID, &t.UserID, &t.OptionID, &t.OrderID, &t.PointsRedeemed, &t.Status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) ListRedemptions(ctx context.Context, userID uuid.UUID, status models.RedemptionStatus) ([]models.RedemptionTransaction, error) {
	query := `SELECT ` + redemptionColumns + ` FROM redemption_transactions`
	var args []interface{}
	var where []string
	if userID != uuid.Nil {
		args = append(args, userID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.RedemptionTransaction{}
	for rows.Next() {
		var t models.RedemptionTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.OptionID, &t.OrderID,
			&t.PointsRedeemed, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *Repository) MarkRedemptionDelivered(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE redemption_transactions SET status = 'delivered'
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already delivered.
		if _, err := r.GetRedemption(ctx, id); err != nil {
			return err
		}
		return models.ErrInvalidTransition
	}
	return nil
}

func (r *Repository) DeleteRedemption(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM redemption_transactions WHERE id = $1 AND status = 'delivered'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
