package ratingdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoRowsAffected is returned when an update matched nothing.
	ErrNoRowsAffected = errors.New("no rows affected")
)

// Impl implements Repository using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new rating repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) GetPlayer(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*Player, error) {
	db = r.resolveDB(db)
	player := new(Player)
	err := db.NewSelect().
		Model(player).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

func (r *Impl) GetPlayers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userIDs []sharedtypes.UserID) ([]Player, error) {
	db = r.resolveDB(db)
	var players []Player
	if len(userIDs) == 0 {
		return players, nil
	}
	err := db.NewSelect().
		Model(&players).
		Where("guild_id = ?", guildID).
		Where("user_id IN (?)", bun.In(userIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	return players, nil
}

func (r *Impl) CreatePlayer(ctx context.Context, db bun.IDB, player *Player) error {
	db = r.resolveDB(db)
	if player.RegisteredAt.IsZero() {
		player.RegisteredAt = time.Now().UTC()
	}
	if _, err := db.NewInsert().Model(player).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

func (r *Impl) UpdateDisplayName(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, name string) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Player)(nil)).
		Set("display_name = ?", name).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	return requireRows(res)
}

func (r *Impl) SaveScore(ctx context.Context, db bun.IDB, player *Player) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model(player).
		Column("points", "wins", "losses", "draws", "games_played").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save score for %s: %w", player.UserID, err)
	}
	return requireRows(res)
}

func (r *Impl) CountPlayers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (int, error) {
	db = r.resolveDB(db)
	count, err := db.NewSelect().
		Model((*Player)(nil)).
		Where("guild_id = ?", guildID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return count, nil
}

func (r *Impl) ListTopPlayers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, limit int, only []sharedtypes.UserID) ([]Player, error) {
	db = r.resolveDB(db)
	var players []Player
	q := db.NewSelect().
		Model(&players).
		Where("guild_id = ?", guildID).
		OrderExpr("points DESC, wins DESC, user_id ASC")
	if len(only) > 0 {
		q = q.Where("user_id IN (?)", bun.In(only))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list top players: %w", err)
	}
	return players, nil
}

func (r *Impl) ListRanks(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]Rank, error) {
	db = r.resolveDB(db)
	var ranks []Rank
	err := db.NewSelect().
		Model(&ranks).
		Where("guild_id = ?", guildID).
		Order("threshold ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ranks: %w", err)
	}
	return ranks, nil
}

func (r *Impl) UpsertRank(ctx context.Context, db bun.IDB, rank *Rank) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(rank).
		On("CONFLICT (guild_id, role_id) DO UPDATE").
		Set("threshold = EXCLUDED.threshold").
		Set("win_modifier = EXCLUDED.win_modifier").
		Set("loss_modifier = EXCLUDED.loss_modifier").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert rank: %w", err)
	}
	return nil
}

func (r *Impl) DeleteRank(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) error {
	db = r.resolveDB(db)
	res, err := db.NewDelete().
		Model((*Rank)(nil)).
		Where("guild_id = ?", guildID).
		Where("role_id = ?", roleID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete rank: %w", err)
	}
	return requireRows(res)
}

func (r *Impl) GetCompetition(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (*Competition, error) {
	db = r.resolveDB(db)
	competition := new(Competition)
	err := db.NewSelect().
		Model(competition).
		Where("guild_id = ?", guildID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	return competition, nil
}

func (r *Impl) UpsertCompetition(ctx context.Context, db bun.IDB, competition *Competition) error {
	db = r.resolveDB(db)
	competition.UpdatedAt = time.Now().UTC()
	_, err := db.NewInsert().
		Model(competition).
		On("CONFLICT (guild_id) DO UPDATE").
		Set("default_win_modifier = EXCLUDED.default_win_modifier").
		Set("default_loss_modifier = EXCLUDED.default_loss_modifier").
		Set("allow_negative = EXCLUDED.allow_negative").
		Set("allow_multi_queue = EXCLUDED.allow_multi_queue").
		Set("requeue_delay_seconds = EXCLUDED.requeue_delay_seconds").
		Set("voting_enabled = EXCLUDED.voting_enabled").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert competition: %w", err)
	}
	return nil
}

func (r *Impl) NextManualGameNumber(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (int64, error) {
	db = r.resolveDB(db)
	var last sql.NullInt64
	err := db.NewSelect().
		Model((*ManualGame)(nil)).
		ColumnExpr("MAX(number)").
		Where("guild_id = ?", guildID).
		Scan(ctx, &last)
	if err != nil {
		return 0, fmt.Errorf("failed to get last manual game number: %w", err)
	}
	return last.Int64 + 1, nil
}

func (r *Impl) CreateManualGame(ctx context.Context, db bun.IDB, game *ManualGame, updates []ScoreUpdate) error {
	db = r.resolveDB(db)
	if game.CreatedAt.IsZero() {
		game.CreatedAt = time.Now().UTC()
	}
	if _, err := db.NewInsert().Model(game).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create manual game: %w", err)
	}
	if len(updates) == 0 {
		return nil
	}
	if _, err := db.NewInsert().Model(&updates).Exec(ctx); err != nil {
		return fmt.Errorf("failed to record score updates: %w", err)
	}
	return nil
}

func (r *Impl) GetManualGame(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, number int64) (*ManualGame, []ScoreUpdate, error) {
	db = r.resolveDB(db)
	game := new(ManualGame)
	err := db.NewSelect().
		Model(game).
		Where("guild_id = ?", guildID).
		Where("number = ?", number).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get manual game: %w", err)
	}

	var updates []ScoreUpdate
	err = db.NewSelect().
		Model(&updates).
		Where("guild_id = ?", guildID).
		Where("manual_game_number = ?", number).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get score updates: %w", err)
	}
	return game, updates, nil
}

func (r *Impl) MarkManualGameUndone(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, number int64, at time.Time) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*ManualGame)(nil)).
		Set("undone_at = ?", at).
		Where("guild_id = ?", guildID).
		Where("number = ?", number).
		Where("undone_at IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark manual game undone: %w", err)
	}
	return requireRows(res)
}

func (r *Impl) CreateBan(ctx context.Context, db bun.IDB, ban *Ban) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(ban).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to create ban: %w", err)
	}
	return nil
}

func (r *Impl) ListBans(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) ([]Ban, error) {
	db = r.resolveDB(db)
	var bans []Ban
	err := db.NewSelect().
		Model(&bans).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bans: %w", err)
	}
	return bans, nil
}

func (r *Impl) OverrideBans(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (int, error) {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Ban)(nil)).
		Set("overridden = TRUE").
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Where("overridden = FALSE").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to override bans: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func requireRows(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
