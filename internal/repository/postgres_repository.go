package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/database"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/service"
)

// PostgresRepository implements service.CampaignRepository using PostgreSQL.
// Amounts are stored as NUMERIC(78,0) and travel as base-10 text.
type PostgresRepository struct {
	db *database.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *database.DB) service.CampaignRepository {
	return &PostgresRepository{
		db: db,
	}
}

const campaignColumns = `id, creator, venue_id, deadline, sell_asset, buy_asset, sell_index, buy_index,
		min_buy, price_limit, dust_recipient, total_pledged, total_bought, total_claimed, total_dust,
		pledged_at_execution, active_pledgers, executed, created_at, executed_at`

// CreateCampaign inserts the campaign and returns the id the database assigned
func (r *PostgresRepository) CreateCampaign(ctx context.Context, c *models.Campaign) (uint64, error) {
	query := `
		INSERT INTO campaigns (creator, venue_id, deadline, sell_asset, buy_asset, sell_index, buy_index,
			min_buy, price_limit, dust_recipient, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	var id uint64
	err := r.db.QueryRowContext(ctx, query,
		c.Creator,
		c.VenueID,
		c.Deadline,
		c.SellAsset,
		c.BuyAsset,
		c.SellIndex,
		c.BuyIndex,
		c.MinBuy.Dec(),
		c.PriceLimit.Dec(),
		c.DustRecipient,
		c.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert campaign: %w", err)
	}

	return id, nil
}

// GetCampaign retrieves one campaign
func (r *PostgresRepository) GetCampaign(ctx context.Context, id uint64) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	var (
		c          models.Campaign
		amounts    [7]string
		executedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.Creator,
		&c.VenueID,
		&c.Deadline,
		&c.SellAsset,
		&c.BuyAsset,
		&c.SellIndex,
		&c.BuyIndex,
		&amounts[0],
		&amounts[1],
		&c.DustRecipient,
		&amounts[2],
		&amounts[3],
		&amounts[4],
		&amounts[5],
		&amounts[6],
		&c.ActivePledgers,
		&c.Executed,
		&c.CreatedAt,
		&executedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign: %w", err)
	}

	targets := []*uint256.Int{&c.MinBuy, &c.PriceLimit, &c.TotalPledged, &c.TotalBought,
		&c.TotalClaimed, &c.TotalDust, &c.PledgedAtExecution}
	for i, target := range targets {
		if err := scanAmount(amounts[i], target); err != nil {
			return nil, fmt.Errorf("campaign %d: %w", id, err)
		}
	}

	c.Deadline = c.Deadline.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	if executedAt.Valid {
		c.ExecutedAt = executedAt.Time.UTC()
	}

	return &c, nil
}

// LoadCampaign implements service.CampaignRepository; the table is the system of record
func (r *PostgresRepository) LoadCampaign(ctx context.Context, id uint64) (*models.Campaign, error) {
	return r.GetCampaign(ctx, id)
}

// CountCampaigns returns the number of campaigns ever created
func (r *PostgresRepository) CountCampaigns(ctx context.Context) (uint64, error) {
	var count uint64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count campaigns: %w", err)
	}
	return count, nil
}

// GetStake returns the pledger's stake, zero when the pledger has none
func (r *PostgresRepository) GetStake(ctx context.Context, id uint64, pledger string) (*uint256.Int, error) {
	query := `SELECT amount FROM contributions WHERE campaign_id = $1 AND pledger = $2`

	var amount string
	err := r.db.QueryRowContext(ctx, query, id, pledger).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query stake: %w", err)
	}

	stake := new(uint256.Int)
	if err := scanAmount(amount, stake); err != nil {
		return nil, err
	}
	return stake, nil
}

// ListContributions returns every stake in the campaign ordered by pledger
func (r *PostgresRepository) ListContributions(ctx context.Context, id uint64) ([]models.Contribution, error) {
	query := `
		SELECT pledger, amount
		FROM contributions
		WHERE campaign_id = $1
		ORDER BY pledger
	`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions: %w", err)
	}
	defer rows.Close()

	contributions := make([]models.Contribution, 0)
	for rows.Next() {
		contribution := models.Contribution{CampaignID: id}
		var amount string
		if err := rows.Scan(&contribution.Pledger, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		if err := scanAmount(amount, &contribution.Amount); err != nil {
			return nil, err
		}
		contributions = append(contributions, contribution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over contribution rows: %w", err)
	}

	return contributions, nil
}

// SaveCampaign updates the aggregates and upserts or deletes the given stakes in one transaction
func (r *PostgresRepository) SaveCampaign(ctx context.Context, c *models.Campaign, stakes ...models.Contribution) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var executedAt sql.NullTime
	if !c.ExecutedAt.IsZero() {
		executedAt = sql.NullTime{Time: c.ExecutedAt, Valid: true}
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE campaigns
		SET total_pledged = $2, total_bought = $3, total_claimed = $4, total_dust = $5,
			pledged_at_execution = $6, active_pledgers = $7, executed = $8, executed_at = $9,
			updated_at = NOW()
		WHERE id = $1
	`,
		c.ID,
		c.TotalPledged.Dec(),
		c.TotalBought.Dec(),
		c.TotalClaimed.Dec(),
		c.TotalDust.Dec(),
		c.PledgedAtExecution.Dec(),
		c.ActivePledgers,
		c.Executed,
		executedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", models.ErrNotFound, c.ID)
	}

	for _, stake := range stakes {
		if stake.CampaignID != c.ID {
			return fmt.Errorf("stake for campaign %d saved with campaign %d", stake.CampaignID, c.ID)
		}
		if stake.Amount.IsZero() {
			_, err = tx.ExecContext(ctx, `DELETE FROM contributions WHERE campaign_id = $1 AND pledger = $2`,
				c.ID, stake.Pledger)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO contributions (campaign_id, pledger, amount)
				VALUES ($1, $2, $3)
				ON CONFLICT (campaign_id, pledger) DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()
			`, c.ID, stake.Pledger, stake.Amount.Dec())
		}
		if err != nil {
			return fmt.Errorf("failed to write stake of %s: %w", stake.Pledger, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit campaign: %w", err)
	}
	return nil
}

// scanAmount parses a NUMERIC column rendered as text
func scanAmount(text string, dst *uint256.Int) error {
	v, err := models.ParseAmount(text)
	if err != nil {
		return fmt.Errorf("failed to parse stored amount: %w", err)
	}
	dst.Set(v)
	return nil
}
