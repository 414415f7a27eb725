package resume

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/careerpilot/careerpilot/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &Resume{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	u := models.User{
		Email:        "ada@example.com",
		Username:     "ada@example.com",
		PasswordHash: "x",
		Name:         "Ada Lovelace",
		LinkedinURL:  "https://linkedin.com/in/ada",
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &u
}

func TestGetOrCreate_SeedsDefaultFromUser(t *testing.T) {
	db := openTestDB(t)
	user := testUser(t, db)
	store := NewStore(db)

	row, doc, err := store.GetOrCreate(context.Background(), user)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if row.UserID != user.ID {
		t.Fatalf("row bound to user %d, want %d", row.UserID, user.ID)
	}
	if doc.PersonalInfo.Name != "Ada Lovelace" {
		t.Fatalf("name not seeded: %+v", doc.PersonalInfo)
	}
	if doc.PersonalInfo.Email != "ada@example.com" {
		t.Fatalf("email not seeded: %+v", doc.PersonalInfo)
	}
	if doc.PersonalInfo.Linkedin != "https://linkedin.com/in/ada" {
		t.Fatalf("linkedin not seeded: %+v", doc.PersonalInfo)
	}
}

func TestGetOrCreate_SecondCallIsStable(t *testing.T) {
	db := openTestDB(t)
	user := testUser(t, db)
	store := NewStore(db)

	first, _, err := store.GetOrCreate(context.Background(), user)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, _, err := store.GetOrCreate(context.Background(), user)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("got two rows: %d and %d", first.ID, second.ID)
	}
	if string(first.Content) != string(second.Content) {
		t.Fatalf("content drifted between reads:\n%s\n%s", first.Content, second.Content)
	}

	var count int64
	if err := db.Model(&Resume{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one resume row, got %d", count)
	}
}

func TestGetOrCreate_NormalizesLegacyShapeOnce(t *testing.T) {
	db := openTestDB(t)
	user := testUser(t, db)
	store := NewStore(db)

	legacy := []byte(`{
		"personalInfo": {"name": "Ada Lovelace"},
		"experience": [{"title": "Engineer", "company": "Acme", "dates": "Jan 2020 – Present"}],
		"skills": ["Go", "go", "SQL"]
	}`)
	if err := db.Create(&Resume{UserID: user.ID, Content: legacy}).Error; err != nil {
		t.Fatalf("seed legacy row: %v", err)
	}

	_, doc, err := store.GetOrCreate(context.Background(), user)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if doc.Experience[0].Dates.Start != "Jan 2020" || doc.Experience[0].Dates.End != "Present" {
		t.Fatalf("dates not split: %+v", doc.Experience[0].Dates)
	}
	if doc.Experience[0].ID == "" {
		t.Fatalf("entry id not filled")
	}
	if len(doc.Skills) != 2 {
		t.Fatalf("skills not deduped: %v", doc.Skills)
	}

	// normalization was persisted; a re-read must be byte-for-byte stable
	var stored Resume
	if err := db.Where("user_id = ?", user.ID).First(&stored).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	var roundTrip Document
	if err := json.Unmarshal(stored.Content, &roundTrip); err != nil {
		t.Fatalf("stored content not valid json: %v", err)
	}
	again, _, err := store.GetOrCreate(context.Background(), user)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if string(again.Content) != string(stored.Content) {
		t.Fatalf("second read changed stored bytes")
	}
}

func TestGetOrCreate_LostCreateRaceFallsBackToWinner(t *testing.T) {
	db := openTestDB(t)
	user := testUser(t, db)
	store := NewStore(db)

	// Simulate the loser: the row appears between the lookup and the
	// create, so Create hits the unique index.
	winner, _, err := store.GetOrCreate(context.Background(), user)
	if err != nil {
		t.Fatalf("winner create: %v", err)
	}

	_, _, err = store.createDefault(context.Background(), user)
	if err != nil {
		t.Fatalf("loser should fall back to winner row, got: %v", err)
	}

	var count int64
	if err := db.Model(&Resume{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one row after race, got %d", count)
	}
	_ = winner
}

func TestSave_RewritesWholeDocument(t *testing.T) {
	db := openTestDB(t)
	user := testUser(t, db)
	store := NewStore(db)

	row, doc, err := store.GetOrCreate(context.Background(), user)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}

	doc.Skills = []string{"Go", "Distributed Systems"}
	doc.PersonalInfo.Summary = "Engineer."
	if err := store.Save(context.Background(), row, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, reread, err := store.GetOrCreate(context.Background(), user)
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if reread.PersonalInfo.Summary != "Engineer." {
		t.Fatalf("summary lost: %+v", reread.PersonalInfo)
	}
	if len(reread.Skills) != 2 {
		t.Fatalf("skills lost: %v", reread.Skills)
	}
}
