package services

import (
	"context"
	"errors"
	"strings"

	"brainshare/internal/models"

	"gorm.io/gorm"
)

// StageForLevel maps an owner's level to a companion stage.
func StageForLevel(level int) int {
	switch {
	case level >= 100:
		return 3
	case level >= 50:
		return 2
	default:
		return 1
	}
}

// ListCompanionTemplates returns the stage 1 templates, one per species.
func (e *Engine) ListCompanionTemplates(ctx context.Context) ([]models.Companion, error) {
	var templates []models.Companion
	if err := e.db.WithContext(ctx).Where("stage = ?", 1).Order("id").Find(&templates).Error; err != nil {
		return nil, storeError("ListCompanionTemplates", err)
	}
	return templates, nil
}

// AdoptCompanion gives userID its one companion, starting at stage 1.
func (e *Engine) AdoptCompanion(ctx context.Context, userID, templateID uint, nickname string) (*models.UserCompanion, error) {
	const op = "AdoptCompanion"
	nickname = strings.TrimSpace(nickname)
	if err := validateField(op, "nickname", nickname, "max=50"); err != nil {
		return nil, err
	}

	var adopted models.UserCompanion
	err := e.transact(ctx, op, func(tx *gorm.DB) error {
		if _, err := lockUser(tx, op, userID); err != nil {
			return err
		}
		var owned int64
		if err := tx.Model(&models.UserCompanion{}).Where("user_id = ?", userID).Count(&owned).Error; err != nil {
			return err
		}
		if owned > 0 {
			return newError(op, ErrAlreadyOwned, "user already has a companion")
		}

		var template models.Companion
		if err := tx.First(&template, templateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(op, ErrNotFound, "companion template not found")
			}
			return err
		}
		if template.Stage != 1 {
			return newError(op, ErrInvalidTemplate, "only stage 1 companions can be adopted")
		}
		if nickname == "" {
			nickname = template.Name
		}

		adopted = models.UserCompanion{
			UserID:         userID,
			CompanionID:    template.ID,
			Nickname:       nickname,
			EvolutionStage: 1,
		}
		if err := tx.Create(&adopted).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newError(op, ErrAlreadyOwned, "user already has a companion")
			}
			return err
		}
		adopted.Companion = template
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("companion adopted", "user_id", userID, "companion", adopted.Companion.Key)
	return &adopted, nil
}

type CompanionView struct {
	Companion models.UserCompanion `json:"companion"`
	// Form is the template of the species at the current stage.
	Form          models.Companion `json:"form"`
	Level         int              `json:"level"`
	Stage         int              `json:"stage"`
	Evolved       bool             `json:"evolved"`
	PreviousStage int              `json:"previous_stage,omitempty"`
}

// ObserveCompanion brings the companion's stage in line with its owner's
// level and reports whether it changed. Stages follow the level both ways.
func (e *Engine) ObserveCompanion(ctx context.Context, userID uint) (*CompanionView, error) {
	const op = "ObserveCompanion"
	var view CompanionView
	err := e.transact(ctx, op, func(tx *gorm.DB) error {
		owner, err := findUser(tx, op, userID)
		if err != nil {
			return err
		}
		var uc models.UserCompanion
		if err := tx.Clauses(forUpdate).Preload("Companion").
			Where("user_id = ?", userID).First(&uc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(op, ErrNotFound, "user has no companion")
			}
			return err
		}

		view.Level = Level(owner.XP)
		view.Stage = StageForLevel(view.Level)
		if uc.EvolutionStage != view.Stage {
			view.Evolved = true
			view.PreviousStage = uc.EvolutionStage
			if err := tx.Model(&models.UserCompanion{}).
				Where("id = ?", uc.ID).
				UpdateColumn("evolution_stage", view.Stage).Error; err != nil {
				return err
			}
			uc.EvolutionStage = view.Stage
		}

		view.Form = uc.Companion
		var form models.Companion
		err = tx.Where("species = ? AND stage = ?", uc.Companion.Species, view.Stage).First(&form).Error
		switch {
		case err == nil:
			view.Form = form
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		view.Companion = uc
		return nil
	})
	if err != nil {
		return nil, err
	}
	if view.Evolved {
		e.log.Info("companion evolved", "user_id", userID, "from", view.PreviousStage, "to", view.Stage)
	}
	return &view, nil
}
