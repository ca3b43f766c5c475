package db

import (
	"errors"
	"fmt"
	"log/slog"

	"brainshare/internal/models"
	"brainshare/internal/utils"

	"gorm.io/gorm"
)

// Achievements is the catalog seeded at startup. Keys are stable program
// identifiers; names are display text.
var Achievements = []models.Achievement{
	{Key: "welcome", Name: "Bem-vindo a Bordo", Description: "Crie sua conta no BrainShare.", XPReward: 50, Icon: "bi-door-open-fill"},
	{Key: "first_post", Name: "Primeira Voz", Description: "Faça sua primeira publicação.", XPReward: 100, Icon: "bi-megaphone-fill"},
	{Key: "influencer", Name: "Influenciador", Description: "Receba 10 curtidas em um post.", XPReward: 300, Icon: "bi-stars"},
	{Key: "helper", Name: "Mão Amiga", Description: "Faça 5 comentários ajudando outros.", XPReward: 150, Icon: "bi-chat-heart-fill"},
	{Key: "scholar", Name: "Erudito", Description: "Chegue ao Nível 5.", XPReward: 500, Icon: "bi-mortarboard-fill"},
}

// Companions holds every species at every stage.
var Companions = []models.Companion{
	{Key: "owl_1", Species: "owl", Name: "Corujinha", Stage: 1, Image: "companions/owl_1.png"},
	{Key: "owl_2", Species: "owl", Name: "Coruja Estudiosa", Stage: 2, Image: "companions/owl_2.png"},
	{Key: "owl_3", Species: "owl", Name: "Coruja Sábia", Stage: 3, Image: "companions/owl_3.png"},
	{Key: "fox_1", Species: "fox", Name: "Filhote de Raposa", Stage: 1, Image: "companions/fox_1.png"},
	{Key: "fox_2", Species: "fox", Name: "Raposa Curiosa", Stage: 2, Image: "companions/fox_2.png"},
	{Key: "fox_3", Species: "fox", Name: "Raposa Mestre", Stage: 3, Image: "companions/fox_3.png"},
	{Key: "dragon_1", Species: "dragon", Name: "Ovo de Dragão", Stage: 1, Image: "companions/dragon_1.png"},
	{Key: "dragon_2", Species: "dragon", Name: "Dragão Jovem", Stage: 2, Image: "companions/dragon_2.png"},
	{Key: "dragon_3", Species: "dragon", Name: "Dragão Ancião", Stage: 3, Image: "companions/dragon_3.png"},
}

// AdminSeed describes the bootstrap administrator. Empty Email skips it.
type AdminSeed struct {
	Email    string
	Password string
}

// Seed inserts catalog rows that are missing. Existing rows are left alone,
// so it is safe to run on every start.
func Seed(gdb *gorm.DB, admin AdminSeed) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		for _, a := range Achievements {
			created, err := firstOrCreate(tx, &a, "key = ?", a.Key)
			if err != nil {
				return fmt.Errorf("seed achievement %s: %w", a.Key, err)
			}
			if created {
				slog.Info("achievement seeded", "key", a.Key, "xp_reward", a.XPReward)
			}
		}
		for _, c := range Companions {
			if _, err := firstOrCreate(tx, &c, "key = ?", c.Key); err != nil {
				return fmt.Errorf("seed companion %s: %w", c.Key, err)
			}
		}
		if admin.Email != "" {
			if err := seedAdmin(tx, admin); err != nil {
				return err
			}
		}
		return nil
	})
}

func seedAdmin(tx *gorm.DB, admin AdminSeed) error {
	var existing models.User
	err := tx.Where("email = ?", admin.Email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("seed admin: %w", err)
	}

	hash, err := utils.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	user := models.User{
		Username: "Admin",
		Email:    admin.Email,
		Password: hash,
		Role:     models.RoleAdmin,
		XP:       5000,
		JobTitle: "Administrador",
	}
	if err := tx.Create(&user).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	slog.Info("admin user created", "email", admin.Email)
	return nil
}

// firstOrCreate inserts row unless a row matching query exists. It reports
// whether an insert happened.
func firstOrCreate(tx *gorm.DB, row any, query string, args ...any) (bool, error) {
	var count int64
	if err := tx.Model(row).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := tx.Create(row).Error; err != nil {
		return false, err
	}
	return true, nil
}
