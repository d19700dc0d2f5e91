package review

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tastymeals/internal/database"
	"tastymeals/internal/models"
)

// Repository is the pgx-backed review store.
type Repository struct {
	db *database.DB
}

// NewRepository wraps the shared connection pool.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
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

func (r *Repository) CreateReview(ctx context.Context, review *models.Review) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO reviews (id, user_id, order_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
		review.ID, review.UserID, review.OrderID, review.Rating, review.Comment).
		Scan(&review.CreatedAt, &review.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return models.ErrDuplicateReview
	}
	return err
}

const reviewColumns = `id, user_id, order_id, rating, comment, created_at, updated_at`

func (r *Repository) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id).
		Scan(&review.ID, &review.UserID, &review.OrderID, &review.Rating,
			&review.Comment, &review.CreatedAt, &review.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *Repository) ListReviews(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var review models.Review
		if err := rows.Scan(&review.ID, &review.UserID, &review.OrderID, &review.Rating,
			&review.Comment, &review.CreatedAt, &review.UpdatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

func (r *Repository) UpdateReview(ctx context.Context, review *models.Review) error {
	err := r.db.QueryRow(ctx, `
		UPDATE reviews SET rating = $2, comment = $3, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`,
		review.ID, review.Rating, review.Comment).Scan(&review.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

func (r *Repository) DeleteReview(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
