package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hivetrap/internal/domain"
)

// defaultQuestions are seeded whenever the question table is empty. The
// field ids follow the non-colliding field_<letter><n> convention.
var defaultQuestions = []domain.HoneypotQuestion{
	{Question: "What is the capital of Italy?", FieldID: "field_a1", Answer: "rome"},
	{Question: "What is 2 + 2?", FieldID: "field_b2", Answer: "4"},
	{Question: "What color is the sky on a clear day?", FieldID: "field_c3", Answer: "blue"},
	{Question: "What is Earth's natural satellite called?", FieldID: "field_d4", Answer: "moon"},
	{Question: "What is 10 - 5?", FieldID: "field_e5", Answer: "5"},
	{Question: "In which continent is France located?", FieldID: "field_f6", Answer: "europe"},
	{Question: "What color is the sun?", FieldID: "field_g7", Answer: "yellow"},
	{Question: "What is 3 x 3?", FieldID: "field_h8", Answer: "9"},
	{Question: "What is the capital of France?", FieldID: "field_i9", Answer: "paris"},
	{Question: "What season comes after summer?", FieldID: "field_j10", Answer: "autumn"},
	{Question: "How many days are in a week?", FieldID: "field_k11", Answer: "7"},
	{Question: "What sound does a cat make?", FieldID: "field_l12", Answer: "meow"},
	{Question: "What color is grass?", FieldID: "field_m13", Answer: "green"},
	{Question: "What is 15 divided by 3?", FieldID: "field_n14", Answer: "5"},
	{Question: "In which country is the Eiffel Tower?", FieldID: "field_o15", Answer: "france"},
	{Question: "What is the first month of the year?", FieldID: "field_p16", Answer: "january"},
	{Question: "What sound does a dog make?", FieldID: "field_q17", Answer: "woof"},
	{Question: "How many legs does a cat have?", FieldID: "field_r18", Answer: "4"},
	{Question: "What color is a ripe banana?", FieldID: "field_s19", Answer: "yellow"},
	{Question: "What is 20 + 5?", FieldID: "field_t20", Answer: "25"},
}

func seedDefaultQuestions(db *gorm.DB) error {
	if !db.Migrator().HasTable(&domain.HoneypotQuestion{}) {
		return nil
	}

	var count int64
	if err := db.Model(&domain.HoneypotQuestion{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	questions := make([]domain.HoneypotQuestion, len(defaultQuestions))
	copy(questions, defaultQuestions)

	if err := db.Create(&questions).Error; err != nil {
		return err
	}
	log.Info("Seeded default honeypot questions", "count", len(questions))
	return nil
}

// ListHoneypotQuestions returns every registered decoy question.
func ListHoneypotQuestions(ctx context.Context, db *gorm.DB) ([]domain.HoneypotQuestion, error) {
	var questions []domain.HoneypotQuestion
	if err := db.WithContext(ctx).Order("id").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("list honeypot questions: %w", err)
	}
	return questions, nil
}

// ReplaceHoneypotQuestions swaps the whole question set in one transaction.
// An empty input restores the seeded defaults so the registry never goes
// permanently dark from a bad save.
func ReplaceHoneypotQuestions(ctx context.Context, db *gorm.DB, questions []domain.HoneypotQuestion) error {
	if len(questions) == 0 {
		questions = make([]domain.HoneypotQuestion, len(defaultQuestions))
		copy(questions, defaultQuestions)
	}

	for i := range questions {
		questions[i].ID = 0
		questions[i].Answer = strings.ToLower(strings.TrimSpace(questions[i].Answer))
		questions[i].FieldID = strings.TrimSpace(questions[i].FieldID)
		if questions[i].FieldID == "" || questions[i].Question == "" {
			return fmt.Errorf("replace honeypot questions: entry %d missing field id or question", i)
		}
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&domain.HoneypotQuestion{}).Error; err != nil {
			return fmt.Errorf("clear honeypot questions: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&questions).Error; err != nil {
			return fmt.Errorf("insert honeypot questions: %w", err)
		}
		return nil
	})
}
