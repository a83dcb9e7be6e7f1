package models

// Settings is the singleton configuration row.
type Settings struct {
	SetupCompleted bool `gorm:"column:setupCompleted;not null;default:false"`
}

func (Settings) TableName() string {
	return "settings"
}
