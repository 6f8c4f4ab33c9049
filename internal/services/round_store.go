package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ritz541/iamwheel/internal/config"
	"github.com/ritz541/iamwheel/internal/logger"
	"github.com/ritz541/iamwheel/internal/models"
)

// RoundPatch is a merge update: only non-nil fields change.
type RoundPatch struct {
	Phase      *models.RoundPhase
	JoinTimer  *int
	BreakTimer *int
}

// UserGameView is a completed game annotated with whether the given user won it.
type UserGameView struct {
	models.CompletedGame
	Won bool `json:"won"`
}

// PgRoundStore persists the current round in Postgres and mirrors it into
// a best-effort Redis cache. Postgres is authoritative: every mutation
// goes through a transaction on the current row, and the cache is
// repopulated after the durable write. Cache failures are logged, never
// propagated.
type PgRoundStore struct {
	db     *gorm.DB
	cache  *redis.Client
	ledger *Ledger

	entryFee      int64
	joinDuration  int
	breakDuration int
}

func NewPgRoundStore(db *gorm.DB, cache *redis.Client, ledger *Ledger, cfg *config.Config) *PgRoundStore {
	return &PgRoundStore{
		db:            db,
		cache:         cache,
		ledger:        ledger,
		entryFee:      cfg.EntryFee,
		joinDuration:  cfg.JoinDuration,
		breakDuration: cfg.BreakDuration,
	}
}

func (s *PgRoundStore) EntryFee() int64 {
	return s.entryFee
}

func (s *PgRoundStore) Get(ctx context.Context) (*models.Round, error) {
	if s.cache != nil {
		data, err := s.cache.Get(ctx, KeyCurrentRound).Result()
		if err == nil {
			var round models.Round
			if jerr := json.Unmarshal([]byte(data), &round); jerr == nil {
				return &round, nil
			}
			logger.Warnf("corrupt round cache entry, falling back to database")
		} else if err != redis.Nil {
			logger.Warnf("round cache read failed, falling back to database: %v", err)
		}
	}

	var round models.Round
	err := s.db.WithContext(ctx).First(&round, "current = ?", true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCurrentRound
		}
		return nil, fmt.Errorf("failed to load current round: %w", err)
	}
	if err := round.DecodeParticipants(); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}

	s.writeCache(ctx, &round)
	return &round, nil
}

func (s *PgRoundStore) Update(ctx context.Context, patch RoundPatch) (*models.Round, error) {
	var updated *models.Round
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		round, err := s.lockCurrent(tx)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{}
		if patch.Phase != nil {
			round.Phase = *patch.Phase
			fields["phase"] = *patch.Phase
		}
		if patch.JoinTimer != nil {
			round.JoinTimer = *patch.JoinTimer
			fields["join_timer"] = *patch.JoinTimer
		}
		if patch.BreakTimer != nil {
			round.BreakTimer = *patch.BreakTimer
			fields["break_timer"] = *patch.BreakTimer
		}

		if len(fields) > 0 {
			if err := tx.Model(&models.Round{}).Where("id = ?", round.ID).Updates(fields).Error; err != nil {
				return fmt.Errorf("failed to update round: %w", err)
			}
		}
		updated = round
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.writeCache(ctx, updated)
	return updated, nil
}

// Reset supersedes the current round with a fresh Joining round. The old
// row stays behind as history with its current flag cleared.
func (s *PgRoundStore) Reset(ctx context.Context) (*models.Round, error) {
	fresh := &models.Round{
		ID:           models.NewRoundID(),
		Phase:        models.PhaseJoining,
		JoinTimer:    s.joinDuration,
		BreakTimer:   s.breakDuration,
		Participants: []models.Participant{},
		Current:      true,
		CreatedAt:    time.Now(),
	}
	if err := fresh.EncodeParticipants(); err != nil {
		return nil, fmt.Errorf("failed to encode participants: %w", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Round{}).
			Where("current = ?", true).
			Update("current", false).Error; err != nil {
			return fmt.Errorf("failed to retire current round: %w", err)
		}
		if err := tx.Create(fresh).Error; err != nil {
			return fmt.Errorf("failed to create round: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.writeCache(ctx, fresh)
	return fresh, nil
}

// Join runs the ordered admission checks against the freshest durable
// state under a row lock: phase, duplicate, then balance via the ledger
// debit. The debit, its ledger entry, and the participant append commit
// together or not at all.
func (s *PgRoundStore) Join(ctx context.Context, userID string) (*models.Round, models.Participant, error) {
	var (
		round       *models.Round
		participant models.Participant
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.lockCurrent(tx)
		if err != nil {
			return err
		}
		if !r.Joinable() {
			return ErrRoundNotJoinable
		}
		if r.HasParticipant(userID) {
			return ErrAlreadyJoined
		}

		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		if _, err := s.ledger.debitTx(tx, userID, s.entryFee,
			models.TransactionKindEntryFee, r.ID, "Round entry fee"); err != nil {
			return err
		}

		participant = models.Participant{
			UserID:   userID,
			Username: user.Username,
			Emoji:    models.EmojiForIndex(len(r.Participants)),
		}
		r.Participants = append(r.Participants, participant)
		if err := r.EncodeParticipants(); err != nil {
			return fmt.Errorf("failed to encode participants: %w", err)
		}
		if err := tx.Model(&models.Round{}).
			Where("id = ?", r.ID).
			Update("participants", r.ParticipantsJSON).Error; err != nil {
			return fmt.Errorf("failed to append participant: %w", err)
		}

		round = r
		return nil
	})
	if err != nil {
		return nil, models.Participant{}, err
	}

	s.writeCache(ctx, round)
	return round, participant, nil
}

// SaveOutcome writes the outcome record, one history row per participant,
// and the winner's prize credit in a single transaction. The outcome's
// primary key is the round ID, so a second resolution attempt for the
// same round fails instead of paying twice. Returns the winner's balance
// after the credit.
func (s *PgRoundStore) SaveOutcome(ctx context.Context, game *models.CompletedGame) (int64, error) {
	var winnerBalance int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CompletedGame
		err := tx.Select("id").First(&existing, "id = ?", game.ID).Error
		if err == nil {
			return ErrAlreadyResolved
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check for existing outcome: %w", err)
		}

		if err := game.EncodeParticipants(); err != nil {
			return fmt.Errorf("failed to encode participants: %w", err)
		}
		if err := tx.Create(game).Error; err != nil {
			return fmt.Errorf("failed to write completed game: %w", err)
		}

		for _, p := range game.Participants {
			player := models.GamePlayer{
				RoundID:   game.ID,
				UserID:    p.UserID,
				CreatedAt: game.CreatedAt,
			}
			if p.UserID == game.WinnerID {
				player.Won = true
				player.Prize = game.Prize
			}
			if err := tx.Create(&player).Error; err != nil {
				return fmt.Errorf("failed to write game history: %w", err)
			}
		}

		entry, err := s.ledger.creditTx(tx, game.WinnerID, game.Prize,
			models.TransactionKindPrize, game.ID, fmt.Sprintf("Won round %s", game.ID))
		if err != nil {
			return err
		}
		winnerBalance = entry.BalanceAfter
		return nil
	})
	if err != nil {
		return 0, err
	}
	return winnerBalance, nil
}

func (s *PgRoundStore) RecentGames(ctx context.Context, limit int) ([]models.CompletedGame, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	var games []models.CompletedGame
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent games: %w", err)
	}
	for i := range games {
		if err := games[i].DecodeParticipants(); err != nil {
			return nil, fmt.Errorf("failed to decode participants: %w", err)
		}
	}
	return games, nil
}

func (s *PgRoundStore) UserGames(ctx context.Context, userID string, limit int) ([]UserGameView, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	var players []models.GamePlayer
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load game history: %w", err)
	}
	if len(players) == 0 {
		return []UserGameView{}, nil
	}

	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.RoundID)
	}
	var games []models.CompletedGame
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&games).Error; err != nil {
		return nil, fmt.Errorf("failed to load completed games: %w", err)
	}
	byID := make(map[string]models.CompletedGame, len(games))
	for _, g := range games {
		if err := g.DecodeParticipants(); err != nil {
			return nil, fmt.Errorf("failed to decode participants: %w", err)
		}
		byID[g.ID] = g
	}

	views := make([]UserGameView, 0, len(players))
	for _, p := range players {
		game, ok := byID[p.RoundID]
		if !ok {
			continue
		}
		views = append(views, UserGameView{CompletedGame: game, Won: p.Won})
	}
	return views, nil
}

func (s *PgRoundStore) lockCurrent(tx *gorm.DB) (*models.Round, error) {
	var round models.Round
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&round, "current = ?", true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCurrentRound
		}
		return nil, fmt.Errorf("failed to lock current round: %w", err)
	}
	if err := round.DecodeParticipants(); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}
	return &round, nil
}

func (s *PgRoundStore) writeCache(ctx context.Context, round *models.Round) {
	if s.cache == nil || round == nil {
		return
	}
	data, err := json.Marshal(round)
	if err != nil {
		logger.Warnf("failed to marshal round for cache: %v", err)
		return
	}
	if err := s.cache.Set(ctx, KeyCurrentRound, data, TTLCurrentRound).Err(); err != nil {
		logger.Warnf("round cache write failed: %v", err)
	}
}
