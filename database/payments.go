package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"payments-authorizenet/models"
)

var ErrPaymentNotFound = errors.New("payment not found")

const paymentColumns = `id, token, variant, status, total, currency, description,
    billing_first_name, billing_last_name, transaction_id, captured_amount,
    COALESCE(message, ''), success_url, failure_url, created_at, updated_at`

// CreatePayment inserts a new WAITING payment and fills in its id and token.
func (c *Connection) CreatePayment(ctx context.Context, p *models.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	if p.Token == "" {
		p.Token = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = models.PaymentStatusWaiting
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	result, err := c.db.ExecContext(ctx, `
        INSERT INTO payments (
            token, variant, status, total, currency, description,
            billing_first_name, billing_last_name, transaction_id,
            captured_amount, message, success_url, failure_url,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Token, p.Variant, p.Status, p.Total, p.Currency, p.Description,
		p.BillingFirstName, p.BillingLastName, p.TransactionID,
		p.CapturedAmount, p.Message, p.SuccessURL, p.FailureURL,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read payment id: %w", err)
	}
	p.ID = id

	c.log.Info("payment created", "payment_id", p.ID, "token", p.Token, "total", p.Total)
	return nil
}

func (c *Connection) GetPaymentByToken(ctx context.Context, token string) (*models.Payment, error) {
	return c.getPayment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE token = ?`, token)
}

func (c *Connection) getPayment(ctx context.Context, query string, arg interface{}) (*models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p models.Payment
	err := c.db.QueryRowContext(ctx, query, arg).Scan(
		&p.ID,
		&p.Token,
		&p.Variant,
		&p.Status,
		&p.Total,
		&p.Currency,
		&p.Description,
		&p.BillingFirstName,
		&p.BillingLastName,
		&p.TransactionID,
		&p.CapturedAmount,
		&p.Message,
		&p.SuccessURL,
		&p.FailureURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting payment: %w", err)
	}
	if !p.Status.IsValid() {
		return nil, fmt.Errorf("payment %d has unknown status %q", p.ID, p.Status)
	}
	return &p, nil
}

// SavePayment writes every mutable field of p.
func (c *Connection) SavePayment(ctx context.Context, p *models.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.UpdatedAt = time.Now().UTC()
	result, err := c.db.ExecContext(ctx, `
        UPDATE payments
        SET status = ?, total = ?, currency = ?, description = ?,
            billing_first_name = ?, billing_last_name = ?,
            transaction_id = ?, captured_amount = ?, message = ?,
            success_url = ?, failure_url = ?, updated_at = ?
        WHERE id = ?`,
		p.Status, p.Total, p.Currency, p.Description,
		p.BillingFirstName, p.BillingLastName,
		p.TransactionID, p.CapturedAmount, p.Message,
		p.SuccessURL, p.FailureURL, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save payment %d: %w", p.ID, err)
	}
	return checkAffected(result, p.ID)
}

// UpdatePaymentStatus persists only status and message.
func (c *Connection) UpdatePaymentStatus(ctx context.Context, p *models.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.UpdatedAt = time.Now().UTC()
	result, err := c.db.ExecContext(ctx, `
        UPDATE payments
        SET status = ?, message = ?, updated_at = ?
        WHERE id = ?`,
		p.Status, p.Message, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update status of payment %d: %w", p.ID, err)
	}

	c.log.Info("payment status changed", "payment_id", p.ID, "status", p.Status)
	return checkAffected(result, p.ID)
}

func checkAffected(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id %d", ErrPaymentNotFound, id)
	}
	return nil
}
