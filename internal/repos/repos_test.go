package repos

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/learnquest-backend/internal/learning/quiz"
	"github.com/yungbote/learnquest-backend/internal/learning/segment"
	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.UserProfile{}, &types.VideoProgress{}, &types.SegmentQuiz{}, &types.VideoTranscript{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestUserProfileGetOrCreate(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserProfileRepo(db, logger.Nop())
	ctx := context.Background()
	id := uuid.New()

	got, err := repo.GetByID(ctx, nil, id)
	if err != nil || got != nil {
		t.Fatalf("GetByID missing = %v, %v", got, err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		p, err := repo.GetOrCreateForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Level != 1 || p.XP != 0 {
			t.Fatalf("fresh profile=%+v", p)
		}
		p.XP = 25
		return repo.Save(ctx, tx, p)
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	again, err := repo.GetOrCreateForUpdate(ctx, nil, id)
	if err != nil || again.XP != 25 {
		t.Fatalf("second GetOrCreate = %+v, %v", again, err)
	}
}

func TestVideoProgressRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewVideoProgressRepo(db, logger.Nop())
	ctx := context.Background()
	user := uuid.New()

	row, err := repo.GetOrCreateForUpdate(ctx, nil, user, "vid")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	row.CompletedSegments = datatypes.JSONSlice[int]{0, 2}
	row.TotalSegments = 3
	if err := repo.Save(ctx, nil, row); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := repo.Get(ctx, nil, user, "vid")
	if err != nil || loaded == nil {
		t.Fatalf("Get = %v, %v", loaded, err)
	}
	if !loaded.HasSegment(2) || loaded.HasSegment(1) || loaded.TotalSegments != 3 {
		t.Fatalf("loaded=%+v", loaded)
	}
	if missing, _ := repo.Get(ctx, nil, user, "other"); missing != nil {
		t.Fatalf("unexpected row for other video")
	}
	all, err := repo.GetByUserID(ctx, nil, user)
	if err != nil || len(all) != 1 {
		t.Fatalf("GetByUserID = %d, %v", len(all), err)
	}
}

func TestSegmentQuizCreateIfAbsentKeepsFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewSegmentQuizRepo(db, logger.Nop())
	ctx := context.Background()

	first := quiz.Question{Question: "first?", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 1, Explanation: "x"}
	second := quiz.Question{Question: "second?", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 2, Explanation: "y"}

	stored, err := repo.CreateIfAbsent(ctx, nil, &types.SegmentQuiz{VideoID: "vid", SegmentIndex: 0, Question: datatypes.NewJSONType(first), Source: "remote"})
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if stored.Question.Data().Question != "first?" {
		t.Fatalf("stored=%+v", stored.Question.Data())
	}

	again, err := repo.CreateIfAbsent(ctx, nil, &types.SegmentQuiz{VideoID: "vid", SegmentIndex: 0, Question: datatypes.NewJSONType(second), Source: "fallback"})
	if err != nil {
		t.Fatalf("second CreateIfAbsent: %v", err)
	}
	if again.Question.Data().Question != "first?" || again.Source != "remote" {
		t.Fatalf("existing quiz was replaced: %+v", again.Question.Data())
	}

	list, err := repo.ListByVideoID(ctx, nil, "vid")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByVideoID = %d, %v", len(list), err)
	}
}

func TestVideoTranscriptUpsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewVideoTranscriptRepo(db, logger.Nop())
	ctx := context.Background()

	row := &types.VideoTranscript{VideoID: "vid", Provider: "gcp", Words: datatypes.JSONSlice[segment.TimedWord]{{Word: "hello", Start: 1, End: 2}}}
	if err := repo.Upsert(ctx, nil, row); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	update := &types.VideoTranscript{VideoID: "vid", Provider: "gcp", Words: datatypes.JSONSlice[segment.TimedWord]{{Word: "a"}, {Word: "b"}}}
	if err := repo.Upsert(ctx, nil, update); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	got, err := repo.GetByVideoID(ctx, nil, "vid")
	if err != nil || got == nil || len(got.Words) != 2 {
		t.Fatalf("GetByVideoID = %+v, %v", got, err)
	}
}
