package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"guess-character/internal/db"
	"guess-character/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gorm is the Postgres-backed Store.
type Gorm struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGorm(conn *gorm.DB) *Gorm {
	return &Gorm{db: conn, now: func() time.Time { return time.Now().UTC() }}
}

func (g *Gorm) CreateCharacter(ctx context.Context, in CharacterInput) (domain.Character, error) {
	in, err := in.normalize()
	if err != nil {
		return domain.Character{}, err
	}
	var record db.Character
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkSets(tx, in.SetIDs); err != nil {
			return err
		}
		record, err = g.insertCharacter(tx, in)
		return err
	})
	if err != nil {
		return domain.Character{}, wrap(err)
	}
	return toCharacter(record, true), nil
}

func (g *Gorm) UpsertCharacterByName(ctx context.Context, in CharacterInput) (domain.Character, bool, error) {
	in, err := in.normalize()
	if err != nil {
		return domain.Character{}, false, err
	}
	var (
		record  db.Character
		created bool
	)
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkSets(tx, in.SetIDs); err != nil {
			return err
		}
		err := tx.Where("name = ?", in.Name).Order("created_at").First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			record, err = g.insertCharacter(tx, in)
			return err
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&record).Updates(map[string]any{
			"image_url":  in.ImageURL,
			"updated_at": g.now(),
		}).Error; err != nil {
			return err
		}
		if err := g.replaceWords(tx, record.ID, in.ForbiddenWords); err != nil {
			return err
		}
		if err := g.addMemberships(tx, record.ID, in.SetIDs); err != nil {
			return err
		}
		record, err = loadCharacter(tx, record.ID, true)
		return err
	})
	if err != nil {
		return domain.Character{}, false, wrap(err)
	}
	return toCharacter(record, true), created, nil
}

func (g *Gorm) insertCharacter(tx *gorm.DB, in CharacterInput) (db.Character, error) {
	now := g.now()
	record := db.Character{
		ID:        uuid.NewString(),
		Name:      in.Name,
		ImageURL:  in.ImageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, word := range in.ForbiddenWords {
		record.ForbiddenWords = append(record.ForbiddenWords, db.ForbiddenWord{
			ID:       uuid.NewString(),
			Position: i,
			Word:     word,
		})
	}
	for _, setID := range in.SetIDs {
		record.Memberships = append(record.Memberships, db.CharacterSet{
			ID:         uuid.NewString(),
			SetID:      setID,
			AssignedAt: now,
		})
	}
	if err := tx.Create(&record).Error; err != nil {
		return db.Character{}, err
	}
	return record, nil
}

func (g *Gorm) UpdateCharacter(ctx context.Context, id string, patch CharacterPatch) (domain.Character, error) {
	patch, err := patch.normalize()
	if err != nil {
		return domain.Character{}, err
	}
	if !validID(id) {
		return domain.Character{}, fmt.Errorf("%w: character %s", domain.ErrNotFound, id)
	}
	var record db.Character
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"updated_at": g.now()}
		if patch.Name != nil {
			updates["name"] = *patch.Name
		}
		if patch.ImageURL != nil {
			updates["image_url"] = *patch.ImageURL
		}
		result := tx.Model(&db.Character{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: character %s", domain.ErrNotFound, id)
		}
		if patch.ForbiddenWords != nil {
			if err := g.replaceWords(tx, id, *patch.ForbiddenWords); err != nil {
				return err
			}
		}
		record, err = loadCharacter(tx, id, true)
		return err
	})
	if err != nil {
		return domain.Character{}, wrap(err)
	}
	return toCharacter(record, true), nil
}

func (g *Gorm) replaceWords(tx *gorm.DB, characterID string, words []string) error {
	if err := tx.Where("character_id = ?", characterID).Delete(&db.ForbiddenWord{}).Error; err != nil {
		return err
	}
	if len(words) == 0 {
		return nil
	}
	rows := make([]db.ForbiddenWord, 0, len(words))
	for i, word := range words {
		rows = append(rows, db.ForbiddenWord{
			ID:          uuid.NewString(),
			CharacterID: characterID,
			Position:    i,
			Word:        word,
		})
	}
	return tx.Create(&rows).Error
}

func (g *Gorm) addMemberships(tx *gorm.DB, characterID string, setIDs []string) error {
	if len(setIDs) == 0 {
		return nil
	}
	rows := make([]db.CharacterSet, 0, len(setIDs))
	for _, setID := range setIDs {
		rows = append(rows, db.CharacterSet{
			ID:          uuid.NewString(),
			CharacterID: characterID,
			SetID:       setID,
			AssignedAt:  g.now(),
		})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (g *Gorm) GetCharacter(ctx context.Context, id string) (domain.Character, error) {
	if !validID(id) {
		return domain.Character{}, fmt.Errorf("%w: character %s", domain.ErrNotFound, id)
	}
	record, err := loadCharacter(g.db.WithContext(ctx), id, true)
	if err != nil {
		return domain.Character{}, wrap(err)
	}
	return toCharacter(record, true), nil
}

// ListCharacters returns the newest characters first.
func (g *Gorm) ListCharacters(ctx context.Context, withSets bool) ([]domain.Character, error) {
	var records []db.Character
	query := g.db.WithContext(ctx).Preload("ForbiddenWords", orderWords)
	if withSets {
		query = query.Preload("Memberships", orderMemberships)
	}
	if err := query.Order("created_at DESC").Order("id").Find(&records).Error; err != nil {
		return nil, wrap(err)
	}
	out := make([]domain.Character, 0, len(records))
	for _, record := range records {
		out = append(out, toCharacter(record, withSets))
	}
	return out, nil
}

func (g *Gorm) DeleteCharacter(ctx context.Context, id string) (domain.Character, error) {
	if !validID(id) {
		return domain.Character{}, fmt.Errorf("%w: character %s", domain.ErrNotFound, id)
	}
	var record db.Character
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		record, err = loadCharacter(tx, id, true)
		if err != nil {
			return err
		}
		for _, model := range []any{&db.ForbiddenWord{}, &db.CharacterSet{}, &db.PlayedCharacter{}} {
			if err := tx.Where("character_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&db.Character{}, "id = ?", id).Error
	})
	if err != nil {
		return domain.Character{}, wrap(err)
	}
	return toCharacter(record, true), nil
}

func (g *Gorm) RandomCharacter(ctx context.Context) (domain.Character, error) {
	var record db.Character
	err := g.db.WithContext(ctx).
		Preload("ForbiddenWords", orderWords).
		Order("random()").
		First(&record).Error
	if err != nil {
		return domain.Character{}, wrap(err)
	}
	return toCharacter(record, false), nil
}

func (g *Gorm) SetMemberships(ctx context.Context, characterID string, setIDs []string) (domain.Character, error) {
	ids, err := normalizeIDs(setIDs)
	if err != nil {
		return domain.Character{}, err
	}
	if !validID(characterID) {
		return domain.Character{}, fmt.Errorf("%w: character %s", domain.ErrNotFound, characterID)
	}
	var record db.Character
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&db.Character{}, "id = ?", characterID).Error; err != nil {
			return err
		}
		if err := checkSets(tx, ids); err != nil {
			return err
		}
		if err := tx.Where("character_id = ?", characterID).Delete(&db.CharacterSet{}).Error; err != nil {
			return err
		}
		if err := g.addMemberships(tx, characterID, ids); err != nil {
			return err
		}
		record, err = loadCharacter(tx, characterID, true)
		return err
	})
	if err != nil {
		return domain.Character{}, wrap(err)
	}
	return toCharacter(record, true), nil
}

func (g *Gorm) ListSets(ctx context.Context) ([]domain.Set, error) {
	var records []db.Set
	if err := g.db.WithContext(ctx).Order("lower(name)").Find(&records).Error; err != nil {
		return nil, wrap(err)
	}
	out := make([]domain.Set, 0, len(records))
	for _, record := range records {
		out = append(out, toSet(record))
	}
	return out, nil
}

func (g *Gorm) CreateSet(ctx context.Context, name string) (domain.Set, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return domain.Set{}, err
	}
	record := db.Set{ID: uuid.NewString(), Name: name, CreatedAt: g.now()}
	if err := g.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Set{}, fmt.Errorf("%w: set %q", domain.ErrConflict, name)
		}
		return domain.Set{}, wrap(err)
	}
	return toSet(record), nil
}

func (g *Gorm) RenameSet(ctx context.Context, id, name string) (domain.Set, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return domain.Set{}, err
	}
	if !validID(id) {
		return domain.Set{}, fmt.Errorf("%w: set %s", domain.ErrNotFound, id)
	}
	result := g.db.WithContext(ctx).Model(&db.Set{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return domain.Set{}, fmt.Errorf("%w: set %q", domain.ErrConflict, name)
		}
		return domain.Set{}, wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.Set{}, fmt.Errorf("%w: set %s", domain.ErrNotFound, id)
	}
	var record db.Set
	if err := g.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return domain.Set{}, wrap(err)
	}
	return toSet(record), nil
}

func (g *Gorm) DeleteSet(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: set %s", domain.ErrNotFound, id)
	}
	return wrap(g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("set_id = ?", id).Delete(&db.CharacterSet{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&db.Set{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: set %s", domain.ErrNotFound, id)
		}
		return nil
	}))
}

func (g *Gorm) CreateGame(ctx context.Context, cfg domain.GameConfig) (domain.Game, error) {
	record := db.Game{
		ID:           uuid.NewString(),
		IncludeNoSet: cfg.IncludeNoSet(),
		CreatedAt:    g.now(),
	}
	if !cfg.IsUnrestricted() {
		data, err := json.Marshal(cfg.AllowedSets())
		if err != nil {
			return domain.Game{}, err
		}
		record.AllowedSets = datatypes.JSON(data)
	}
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return g.appendEvent(tx, record.ID, nil, "game_created", cfg)
	})
	if err != nil {
		return domain.Game{}, wrap(err)
	}
	return domain.Game{ID: record.ID, Config: cfg, CreatedAt: record.CreatedAt}, nil
}

func (g *Gorm) GameConfig(ctx context.Context, gameID string) (domain.GameConfig, error) {
	if !validID(gameID) {
		return domain.GameConfig{}, fmt.Errorf("%w: game %s", domain.ErrNotFound, gameID)
	}
	var record db.Game
	if err := g.db.WithContext(ctx).First(&record, "id = ?", gameID).Error; err != nil {
		return domain.GameConfig{}, wrap(err)
	}
	return toGameConfig(record)
}

func (g *Gorm) PlayedCharacterIDs(ctx context.Context, gameID string) (domain.PlayedSet, error) {
	if !validID(gameID) {
		return nil, fmt.Errorf("%w: game %s", domain.ErrNotFound, gameID)
	}
	var ids []string
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&db.Game{}, "id = ?", gameID).Error; err != nil {
			return err
		}
		return tx.Model(&db.PlayedCharacter{}).Where("game_id = ?", gameID).Pluck("character_id", &ids).Error
	})
	if err != nil {
		return nil, wrap(err)
	}
	out := make(domain.PlayedSet, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (g *Gorm) RecordPlayed(ctx context.Context, gameID, characterID string) error {
	if !validID(gameID) {
		return fmt.Errorf("%w: game %s", domain.ErrNotFound, gameID)
	}
	if !validID(characterID) {
		return fmt.Errorf("%w: character %s", domain.ErrNotFound, characterID)
	}
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&db.Game{}, "id = ?", gameID).Error; err != nil {
			return err
		}
		if err := tx.Select("id").First(&db.Character{}, "id = ?", characterID).Error; err != nil {
			return err
		}
		row := db.PlayedCharacter{
			ID:          uuid.NewString(),
			GameID:      gameID,
			CharacterID: characterID,
			PlayedAt:    g.now(),
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			log.Debug().Str("game_id", gameID).Str("character_id", characterID).Msg("played character already recorded")
			return nil
		}
		return g.appendEvent(tx, gameID, &characterID, "character_played", map[string]string{
			"characterId": characterID,
		})
	})
	return wrap(err)
}

func (g *Gorm) appendEvent(tx *gorm.DB, gameID string, characterID *string, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.Create(&db.Event{
		GameID:      gameID,
		CharacterID: characterID,
		Type:        eventType,
		Payload:     datatypes.JSON(data),
		CreatedAt:   g.now(),
	}).Error
}

func loadCharacter(tx *gorm.DB, id string, withSets bool) (db.Character, error) {
	var record db.Character
	query := tx.Preload("ForbiddenWords", orderWords)
	if withSets {
		query = query.Preload("Memberships", orderMemberships)
	}
	if err := query.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return record, fmt.Errorf("%w: character %s", domain.ErrNotFound, id)
		}
		return record, err
	}
	return record, nil
}

func checkSets(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&db.Set{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(ids) {
		return fmt.Errorf("%w: unknown set in %v", domain.ErrNotFound, ids)
	}
	return nil
}

func orderWords(tx *gorm.DB) *gorm.DB {
	return tx.Order("position")
}

func orderMemberships(tx *gorm.DB) *gorm.DB {
	return tx.Order("assigned_at").Order("set_id")
}

func toCharacter(record db.Character, withSets bool) domain.Character {
	out := domain.Character{
		ID:             record.ID,
		Name:           record.Name,
		ImageURL:       record.ImageURL,
		ForbiddenWords: make([]string, 0, len(record.ForbiddenWords)),
		CreatedAt:      record.CreatedAt,
	}
	for _, word := range record.ForbiddenWords {
		out.ForbiddenWords = append(out.ForbiddenWords, word.Word)
	}
	if withSets {
		out.SetIDs = make([]string, 0, len(record.Memberships))
		for _, membership := range record.Memberships {
			out.SetIDs = append(out.SetIDs, membership.SetID)
		}
	}
	return out
}

func toSet(record db.Set) domain.Set {
	return domain.Set{ID: record.ID, Name: record.Name, CreatedAt: record.CreatedAt}
}

// toGameConfig resolves the nullable allowed_sets column into a tagged config.
func toGameConfig(record db.Game) (domain.GameConfig, error) {
	if len(record.AllowedSets) == 0 || string(record.AllowedSets) == "null" {
		return domain.Unrestricted(), nil
	}
	var ids []string
	if err := json.Unmarshal(record.AllowedSets, &ids); err != nil {
		return domain.GameConfig{}, fmt.Errorf("%w: allowed sets: %w", domain.ErrInvalidConfiguration, err)
	}
	return domain.RestrictedTo(ids, record.IncludeNoSet), nil
}

// wrap maps storage failures onto the domain taxonomy. Domain errors pass through.
func wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidConfiguration):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
