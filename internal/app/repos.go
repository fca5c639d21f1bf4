package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/repos"
)

type Repos struct {
	UserProfile     repos.UserProfileRepo
	VideoProgress   repos.VideoProgressRepo
	SegmentQuiz     repos.SegmentQuizRepo
	VideoTranscript repos.VideoTranscriptRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		UserProfile:     repos.NewUserProfileRepo(db, log),
		VideoProgress:   repos.NewVideoProgressRepo(db, log),
		SegmentQuiz:     repos.NewSegmentQuizRepo(db, log),
		VideoTranscript: repos.NewVideoTranscriptRepo(db, log),
	}
}
