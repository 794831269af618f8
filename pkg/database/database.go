package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"values_edu_backend/internal/config"
	"values_edu_backend/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.DBName,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "sqlite", "":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
		return sqlite.Open(SQLiteDSN(cfg.Path)), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// SQLiteDSN 开启 WAL 与忙等待，单进程内嵌部署使用
func SQLiteDSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if cfg.LogSQL {
		logLevel = logger.Info
	}

	db, err := open(d, logLevel)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" || cfg.Driver == "" {
		if err := singleConnection(db); err != nil {
			return nil, err
		}
	}

	log.Println("Database connection established")
	return db, nil
}

// OpenSQLite 打开指定路径的 sqlite 库（测试与本地工具使用）
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := open(sqlite.Open(SQLiteDSN(path)), logger.Silent)
	if err != nil {
		return nil, err
	}
	if err := singleConnection(db); err != nil {
		return nil, err
	}
	return db, nil
}

func open(d gorm.Dialector, level logger.LogLevel) (*gorm.DB, error) {
	return gorm.Open(d, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
}

// singleConnection sqlite 写入串行化，与原嵌入式部署的单连接一致
func singleConnection(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	return nil
}

// Models 自动迁移的全部表
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.XPRecord{},
		&model.XPEvent{},
		&model.BadgeDefinition{},
		&model.UserBadge{},
		&model.ProgressRecord{},
		&model.DailySignIn{},
		&model.ClassChallenge{},
		&model.Notification{},
		&model.NotificationSettings{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	log.Println("Database migration completed")
	return SeedBadges(db)
}

// SeedBadges 徽章目录为空时写入默认徽章
func SeedBadges(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.BadgeDefinition{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create(DefaultBadges()).Error
}

func DefaultBadges() []model.BadgeDefinition {
	return []model.BadgeDefinition{
		{Name: "First Step", Description: "Complete your first lesson", Icon: "🌱", Rarity: model.RarityCommon, BadgeType: "learning", ConditionType: model.ConditionLessonCompletion, ConditionValue: `{"count":1}`},
		{Name: "Eager Learner", Description: "Complete 5 lessons", Icon: "📘", Rarity: model.RarityUncommon, BadgeType: "learning", ConditionType: model.ConditionLessonCompletion, ConditionValue: `{"count":5}`},
		{Name: "Values Scholar", Description: "Complete 20 lessons", Icon: "🎓", Rarity: model.RarityRare, BadgeType: "learning", ConditionType: model.ConditionLessonCompletion, ConditionValue: `{"count":20}`},
		{Name: "Perfect Score", Description: "Score 100% on a quiz", Icon: "💯", Rarity: model.RarityUncommon, BadgeType: "quiz", ConditionType: model.ConditionQuizScore, ConditionValue: `{"score":100}`},
		{Name: "Quiz Master", Description: "Score at least 90% on 5 quizzes", Icon: "🧠", Rarity: model.RarityEpic, BadgeType: "quiz", ConditionType: model.ConditionQuizScore, ConditionValue: `{"score":90,"count":5}`},
		{Name: "Consistent Thinker", Description: "Keep a quiz average of 80% over 10 quizzes", Icon: "📈", Rarity: model.RarityRare, BadgeType: "quiz", ConditionType: model.ConditionQuizAverage, ConditionValue: `{"average":80,"minimum_quizzes":10}`},
		{Name: "Week Warrior", Description: "Log in 7 days in a row", Icon: "🔥", Rarity: model.RarityRare, BadgeType: "streak", ConditionType: model.ConditionLoginStreak, ConditionValue: `{"days":7}`},
		{Name: "Habit Builder", Description: "Log in 30 days in a row", Icon: "🏆", Rarity: model.RarityLegendary, BadgeType: "streak", ConditionType: model.ConditionLoginStreak, ConditionValue: `{"days":30}`},
		{Name: "Busy Day", Description: "Complete 3 lessons in one day", Icon: "⚡", Rarity: model.RarityUncommon, BadgeType: "learning", ConditionType: model.ConditionDailyLessons, ConditionValue: `{"count":3}`},
		{Name: "Collector", Description: "Earn 5 badges", Icon: "🎖️", Rarity: model.RarityEpic, BadgeType: "collection", ConditionType: model.ConditionBadgeCollection, ConditionValue: `{"badges_earned":5}`},
		{Name: "Three Day Streak", Description: "Reach a 3 day login streak", Icon: "🗓️", Rarity: model.RarityCommon, BadgeType: "streak", ConditionType: model.ConditionStreak, ConditionValue: `3`},
	}
}
