package repos

import (
	"github.com/yungbote/superconnector-backend/internal/data/repos/calls"
	"github.com/yungbote/superconnector-backend/internal/data/repos/conversation"
	"github.com/yungbote/superconnector-backend/internal/data/repos/identity"
	"github.com/yungbote/superconnector-backend/internal/data/repos/intro"
	"github.com/yungbote/superconnector-backend/internal/data/repos/profile"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type IdentityRepo = identity.IdentityRepo
type ProfileRepo = profile.ProfileRepo
type MessageRepo = conversation.MessageRepo
type SummaryRepo = conversation.SummaryRepo
type IntroRepo = intro.IntroRepo
type CallRepo = calls.CallRepo

const MaxMessageListLimit = conversation.MaxListLimit

func NewIdentityRepo(db *gorm.DB, baseLog *logger.Logger) IdentityRepo {
	return identity.NewIdentityRepo(db, baseLog)
}
func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return profile.NewProfileRepo(db, baseLog)
}
func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return conversation.NewMessageRepo(db, baseLog)
}
func NewSummaryRepo(db *gorm.DB, baseLog *logger.Logger) SummaryRepo {
	return conversation.NewSummaryRepo(db, baseLog)
}
func NewIntroRepo(db *gorm.DB, baseLog *logger.Logger) IntroRepo {
	return intro.NewIntroRepo(db, baseLog)
}
func NewCallRepo(db *gorm.DB, baseLog *logger.Logger) CallRepo {
	return calls.NewCallRepo(db, baseLog)
}
