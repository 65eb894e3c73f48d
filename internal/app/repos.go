package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/superconnector-backend/internal/data/repos"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type Repos struct {
	Identity repos.IdentityRepo
	Profile  repos.ProfileRepo
	Message  repos.MessageRepo
	Summary  repos.SummaryRepo
	Intro    repos.IntroRepo
	Call     repos.CallRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Identity: repos.NewIdentityRepo(db, log),
		Profile:  repos.NewProfileRepo(db, log),
		Message:  repos.NewMessageRepo(db, log),
		Summary:  repos.NewSummaryRepo(db, log),
		Intro:    repos.NewIntroRepo(db, log),
		Call:     repos.NewCallRepo(db, log),
	}
}
