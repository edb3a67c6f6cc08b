package matchmakingdb

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

	// ErrAlreadyExists is returned when inserting a row whose key is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNoRowsAffected is returned when an update or delete matched nothing.
	ErrNoRowsAffected = errors.New("no rows affected")
)

// Impl implements Repository using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new matchmaking repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// --- Lobbies ---

func (r *Impl) CreateLobby(ctx context.Context, db bun.IDB, lobby *Lobby) error {
	db = r.resolveDB(db)
	if lobby.CreatedAt.IsZero() {
		lobby.CreatedAt = time.Now().UTC()
	}
	res, err := db.NewInsert().
		Model(lobby).
		On("CONFLICT (guild_id, channel_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create lobby: %w", err)
	}
	if err := requireRows(res); err != nil {
		return ErrAlreadyExists
	}
	return nil
}

func (r *Impl) GetLobby(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) (*Lobby, error) {
	db = r.resolveDB(db)
	lobby := new(Lobby)
	err := db.NewSelect().
		Model(lobby).
		Where("guild_id = ?", key.GuildID).
		Where("channel_id = ?", key.ChannelID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lobby: %w", err)
	}
	return lobby, nil
}

func (r *Impl) UpdateLobby(ctx context.Context, db bun.IDB, lobby *Lobby) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model(lobby).
		ExcludeColumn("created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update lobby: %w", err)
	}
	return requireRows(res)
}

// DeleteLobby removes the lobby with its maps, queue and games.
func (r *Impl) DeleteLobby(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) error {
	db = r.resolveDB(db)
	children := []interface{}{
		(*GameVote)(nil),
		(*GameScore)(nil),
		(*GamePlayer)(nil),
		(*GameTeam)(nil),
		(*Game)(nil),
		(*QueuedPlayer)(nil),
		(*LobbyMap)(nil),
	}
	for _, model := range children {
		_, err := db.NewDelete().
			Model(model).
			Where("guild_id = ?", key.GuildID).
			Where("channel_id = ?", key.ChannelID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete lobby rows for %T: %w", model, err)
		}
	}
	res, err := db.NewDelete().
		Model((*Lobby)(nil)).
		Where("guild_id = ?", key.GuildID).
		Where("channel_id = ?", key.ChannelID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete lobby: %w", err)
	}
	return requireRows(res)
}

func (r *Impl) ListLobbiesWithTimeout(ctx context.Context, db bun.IDB) ([]Lobby, error) {
	db = r.resolveDB(db)
	var lobbies []Lobby
	err := db.NewSelect().
		Model(&lobbies).
		Where("queue_timeout_seconds > 0").
		Order("guild_id ASC", "channel_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lobbies with timeout: %w", err)
	}
	return lobbies, nil
}

func (r *Impl) ListMaps(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) ([]string, error) {
	db = r.resolveDB(db)
	var names []string
	err := db.NewSelect().
		Model((*LobbyMap)(nil)).
		Column("name").
		Where("guild_id = ?", key.GuildID).
		Where("channel_id = ?", key.ChannelID).
		Order("name ASC").
		Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("failed to list maps: %w", err)
	}
	return names, nil
}

func (r *Impl) AddMap(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, name string) error {
	db = r.resolveDB(db)
	res, err := db.NewInsert().
		Model(&LobbyMap{GuildID: key.GuildID, ChannelID: key.ChannelID, Name: name}).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add map: %w", err)
	}
	if err := requireRows(res); err != nil {
		return ErrAlreadyExists
	}
	return nil
}

func (r *Impl) RemoveMap(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, name string) error {
	db = r.resolveDB(db)
	res, err := db.NewDelete().
		Model((*LobbyMap)(nil)).
		Where("guild_id = ?", key.GuildID).
		Where("channel_id = ?", key.ChannelID).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove map: %w", err)
	}
	return requireRows(res)
}

// --- Queue ---

func (r *Impl) ListQueue(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) ([]QueuedPlayer, error) {
	db = r.resolveDB(db)
	var queue []QueuedPlayer
	err := db.NewSelect().
		Model(&queue).
		Where("guild_id = ?", key.GuildID).
		Where("channel_id = ?", key.ChannelID).
		Order("queued_at ASC", "user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	return queue, nil
}

func (r *Impl) Enqueue(ctx context.Context, db bun.IDB, player *QueuedPlayer) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(player).Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue player: %w", err)
	}
	return nil
}

func (r *Impl) Dequeue(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, userIDs []sharedtypes.UserID) (int, error) {
	db = r.resolveDB(db)
	if len(userIDs) == 0 {
		return 0, nil
	}
	res, err := db.NewDelete().
		Model((*QueuedPlayer)(nil)).
		Where("guild_id = ?", key.GuildID).
		Where("channel_id = ?", key.ChannelID).
		Where("user_id IN (?)", bun.In(userIDs)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to dequeue players: %w", err)
	}
	return rowsAffected(res)
}

func (r *Impl) ClearQueue(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) error {
	db = r.resolveDB(db)
	_, err := db.NewDelete().
		Model((*QueuedPlayer)(nil)).
		Where("guild_id = ?", key.GuildID).
		Where("channel_id = ?", key.ChannelID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

func (r *Impl) QueuedElsewhere(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, userID sharedtypes.UserID) (bool, error) {
	db = r.resolveDB(db)
	exists, err := db.NewSelect().
		Model((*QueuedPlayer)(nil)).
		Where("guild_id = ?", key.GuildID).
		Where("channel_id <> ?", key.ChannelID).
		Where("user_id = ?", userID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check other queues: %w", err)
	}
	return exists, nil
}

// ListQueuedElsewhere returns the queue rows userIDs hold in the guild's other lobbies,
// ordered by lobby.
func (r *Impl) ListQueuedElsewhere(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, userIDs []sharedtypes.UserID) ([]QueuedPlayer, error) {
	db = r.resolveDB(db)
	var rows []QueuedPlayer
	if len(userIDs) == 0 {
		return rows, nil
	}
	err := db.NewSelect().
		Model(&rows).
		Where("guild_id = ?", key.GuildID).
		Where("channel_id <> ?", key.ChannelID).
		Where("user_id IN (?)", bun.In(userIDs)).
		Order("channel_id ASC", "queued_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players queued elsewhere: %w", err)
	}
	return rows, nil
}

// --- Games ---

func (r *Impl) NextGameNumber(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) (sharedtypes.GameNumber, error) {
	db = r.resolveDB(db)
	var last sql.NullInt64
	err := db.NewSelect().
		Model((*Game)(nil)).
		ColumnExpr("MAX(number)").
		Where("guild_id = ?", key.GuildID).
		Where("channel_id = ?", key.ChannelID).
		Scan(ctx, &last)
	if err != nil {
		return 0, fmt.Errorf("failed to get last game number: %w", err)
	}
	return sharedtypes.GameNumber(last.Int64 + 1), nil
}

// GameNumbersInState lists the lobby's games whose state is one of states.
func (r *Impl) GameNumbersInState(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, states ...string) ([]sharedtypes.GameNumber, error) {
	db = r.resolveDB(db)
	var numbers []sharedtypes.GameNumber
	if len(states) == 0 {
		return numbers, nil
	}
	err := db.NewSelect().
		Model((*Game)(nil)).
		Column("number").
		Where("guild_id = ?", key.GuildID).
		Where("channel_id = ?", key.ChannelID).
		Where("state IN (?)", bun.In(states)).
		Order("number ASC").
		Scan(ctx, &numbers)
	if err != nil {
		return nil, fmt.Errorf("failed to list games by state: %w", err)
	}
	return numbers, nil
}

func (r *Impl) LatestGame(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) (*GameRecord, error) {
	db = r.resolveDB(db)
	game := new(Game)
	err := db.NewSelect().
		Model(game).
		Where("guild_id = ?", key.GuildID).
		Where("channel_id = ?", key.ChannelID).
		Order("number DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest game: %w", err)
	}
	return r.loadRecord(ctx, db, game)
}

func (r *Impl) GetGame(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, number sharedtypes.GameNumber) (*GameRecord, error) {
	db = r.resolveDB(db)
	game := new(Game)
	err := db.NewSelect().
		Model(game).
		Where("guild_id = ?", key.GuildID).
		Where("channel_id = ?", key.ChannelID).
		Where("number = ?", number).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return r.loadRecord(ctx, db, game)
}

func (r *Impl) ListGames(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, limit int) ([]Game, error) {
	db = r.resolveDB(db)
	var games []Game
	q := db.NewSelect().
		Model(&games).
		Where("guild_id = ?", key.GuildID).
		Where("channel_id = ?", key.ChannelID).
		Order("number DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

func (r *Impl) loadRecord(ctx context.Context, db bun.IDB, game *Game) (*GameRecord, error) {
	record := &GameRecord{Game: *game}
	children := []struct {
		dest  interface{}
		order string
	}{
		{&record.Teams, "team_number ASC"},
		{&record.Players, "position ASC"},
		{&record.Scores, "user_id ASC"},
		{&record.Votes, "user_id ASC"},
	}
	for _, child := range children {
		err := db.NewSelect().
			Model(child.dest).
			Where("guild_id = ?", game.GuildID).
			Where("channel_id = ?", game.ChannelID).
			Where("game_number = ?", game.Number).
			Order(child.order).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load game rows for %T: %w", child.dest, err)
		}
	}
	return record, nil
}

func (r *Impl) CreateGame(ctx context.Context, db bun.IDB, record *GameRecord) error {
	db = r.resolveDB(db)
	if record.Game.CreatedAt.IsZero() {
		record.Game.CreatedAt = time.Now().UTC()
	}
	if _, err := db.NewInsert().Model(&record.Game).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return r.insertChildren(ctx, db, record)
}

// SaveGame updates the game row and replaces its child rows.
func (r *Impl) SaveGame(ctx context.Context, db bun.IDB, record *GameRecord) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model(&record.Game).
		ExcludeColumn("created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	if err := requireRows(res); err != nil {
		return err
	}

	g := record.Game
	for _, model := range []interface{}{(*GameTeam)(nil), (*GamePlayer)(nil), (*GameScore)(nil), (*GameVote)(nil)} {
		_, err := db.NewDelete().
			Model(model).
			Where("guild_id = ?", g.GuildID).
			Where("channel_id = ?", g.ChannelID).
			Where("game_number = ?", g.Number).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear game rows for %T: %w", model, err)
		}
	}
	return r.insertChildren(ctx, db, record)
}

func (r *Impl) insertChildren(ctx context.Context, db bun.IDB, record *GameRecord) error {
	if len(record.Teams) > 0 {
		if _, err := db.NewInsert().Model(&record.Teams).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert game teams: %w", err)
		}
	}
	if len(record.Players) > 0 {
		if _, err := db.NewInsert().Model(&record.Players).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert game players: %w", err)
		}
	}
	if len(record.Scores) > 0 {
		if _, err := db.NewInsert().Model(&record.Scores).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert game scores: %w", err)
		}
	}
	if len(record.Votes) > 0 {
		if _, err := db.NewInsert().Model(&record.Votes).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert game votes: %w", err)
		}
	}
	return nil
}

// --- Parties ---

func (r *Impl) ListPartyMembers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]PartyMember, error) {
	db = r.resolveDB(db)
	var members []PartyMember
	err := db.NewSelect().
		Model(&members).
		Where("guild_id = ?", guildID).
		Order("host_id ASC", "member_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list party members: %w", err)
	}
	return members, nil
}

func (r *Impl) GetPartyMember(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, memberID sharedtypes.UserID) (*PartyMember, error) {
	db = r.resolveDB(db)
	member := new(PartyMember)
	err := db.NewSelect().
		Model(member).
		Where("guild_id = ?", guildID).
		Where("member_id = ?", memberID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get party member: %w", err)
	}
	return member, nil
}

func (r *Impl) AddPartyMember(ctx context.Context, db bun.IDB, member *PartyMember) error {
	db = r.resolveDB(db)
	res, err := db.NewInsert().
		Model(member).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add party member: %w", err)
	}
	if err := requireRows(res); err != nil {
		return ErrAlreadyExists
	}
	return nil
}

func (r *Impl) RemovePartyMember(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, memberID sharedtypes.UserID) error {
	db = r.resolveDB(db)
	res, err := db.NewDelete().
		Model((*PartyMember)(nil)).
		Where("guild_id = ?", guildID).
		Where("member_id = ?", memberID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove party member: %w", err)
	}
	return requireRows(res)
}

func (r *Impl) DeleteParty(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, hostID sharedtypes.UserID) (int, error) {
	db = r.resolveDB(db)
	res, err := db.NewDelete().
		Model((*PartyMember)(nil)).
		Where("guild_id = ?", guildID).
		Where("host_id = ?", hostID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete party: %w", err)
	}
	return rowsAffected(res)
}

func rowsAffected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func requireRows(res sql.Result) error {
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
