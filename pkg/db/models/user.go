package models

// User is the portal identity record. Column names follow the legacy schema.
type User struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    string `gorm:"column:userId;uniqueIndex"`
	Username  string `gorm:"column:username;uniqueIndex"`
	Password  string `gorm:"column:password"`
	GameLevel string `gorm:"column:gameLevel"`
}

func (User) TableName() string {
	return "users"
}
