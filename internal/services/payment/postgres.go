package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tastymeals/internal/database"
	"tastymeals/internal/models"
)

// Repository is the pgx-backed payment store.
type Repository struct {
	db *database.DB
}

// NewRepository wraps the shared connection pool.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

const paymentColumns = `id, order_id, user_id, amount, phone_number, checkout_request_id,
	COALESCE(gateway_receipt, ''), status, created_at, updated_at`

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.PhoneNumber,
		&p.CheckoutRequestID, &p.GatewayReceipt, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, dining_table_id, status, total_price, created_at, updated_at
		FROM orders WHERE id = $1`, orderID).
		Scan(&o.ID, &o.UserID, &o.DiningTableID, &o.Status, &o.TotalPrice, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID))
}

func (r *Repository) GetPaymentByCheckout(ctx context.Context, checkoutRequestID string) (*models.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE checkout_request_id = $1`, checkoutRequestID))
}

func (r *Repository) CreatePayment(ctx context.Context, p *models.Payment) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (id, order_id, user_id, amount, phone_number, checkout_request_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		p.ID, p.OrderID, p.UserID, p.Amount, p.PhoneNumber, p.CheckoutRequestID, p.Status).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		// Two concurrent initiations raced past the existence check; the
		// loser sees the order_id constraint.
		return models.ErrPaymentExists
	}
	return err
}

// ReinitiatePayment resets a failed payment to pending with a new
// checkout reference.
func (r *Repository) ReinitiatePayment(ctx context.Context, paymentID uuid.UUID, phoneNumber, checkoutRequestID string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE payments
		SET phone_number = $2, checkout_request_id = $3, gateway_receipt = NULL,
		    status = 'pending', updated_at = NOW()
		WHERE id = $1 AND status = 'failed'`,
		paymentID, phoneNumber, checkoutRequestID)
	if isUniqueViolation(err) {
		return models.ErrPaymentExists
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

// ConfirmPayment settles one successful gateway result in a single
// transaction. The payment, order and loyalty account rows are locked
// in that order; a payment no longer pending means the message was
// already processed and the call is a no-op.
func (r *Repository) ConfirmPayment(ctx context.Context, checkoutRequestID, gatewayReceipt string) (*ConfirmationResult, error) {
	var result ConfirmationResult
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		payment, err := lockPayment(ctx, tx, checkoutRequestID)
		if err != nil {
			return err
		}
		result.Payment = payment
		if payment.Status != models.PaymentPending {
			result.AlreadyProcessed = true
			return nil
		}

		var orderStatus models.OrderStatus
		err = tx.QueryRow(ctx,
			`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, payment.OrderID).Scan(&orderStatus)
		if err != nil {
			return err
		}
		if orderStatus != models.OrderUnpaid {
			return models.ErrInvalidTransition
		}

		_, err = tx.Exec(ctx, `
			UPDATE payments SET status = 'confirmed', gateway_receipt = $2, updated_at = NOW()
			WHERE id = $1`, payment.ID, gatewayReceipt)
		if err != nil {
			return err
		}
		payment.Status = models.PaymentConfirmed
		payment.GatewayReceipt = gatewayReceipt

		_, err = tx.Exec(ctx, `
			UPDATE orders SET status = 'paid', updated_at = NOW() WHERE id = $1`, payment.OrderID)
		if err != nil {
			return err
		}

		var accountID uuid.UUID
		err = tx.QueryRow(ctx,
			`SELECT id FROM loyalty_accounts WHERE user_id = $1 FOR UPDATE`, payment.UserID).Scan(&accountID)
		if err != nil {
			return err
		}

		points := models.PointsForAmount(payment.Amount)
		result.PointsEarned = points
		if points > 0 {
			_, err = tx.Exec(ctx,
				`UPDATE loyalty_accounts SET points = points + $2 WHERE id = $1`, accountID, points)
			if err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO loyalty_transactions (account_id, order_id, amount, points_earned)
			VALUES ($1, $2, $3, $4)`, accountID, payment.OrderID, payment.Amount, points)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// FailPayment marks a pending payment failed; the order stays unpaid.
func (r *Repository) FailPayment(ctx context.Context, checkoutRequestID string) (*ConfirmationResult, error) {
	var result ConfirmationResult
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		payment, err := lockPayment(ctx, tx, checkoutRequestID)
		if err != nil {
			return err
		}
		result.Payment = payment
		if payment.Status != models.PaymentPending {
			result.AlreadyProcessed = true
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE payments SET status = 'failed', updated_at = NOW() WHERE id = $1`, payment.ID)
		if err != nil {
			return err
		}
		payment.Status = models.PaymentFailed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func lockPayment(ctx context.Context, tx pgx.Tx, checkoutRequestID string) (*models.Payment, error) {
	return scanPayment(tx.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE checkout_request_id = $1 FOR UPDATE`,
		checkoutRequestID))
}
