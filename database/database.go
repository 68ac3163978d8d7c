// Package database 提供数据库连接和管理功能
// 该包负责处理与数据库相关的所有操作，包括：
// - 数据库连接的建立和管理（MySQL / PostgreSQL）
// - 连接池的配置
// - 数据库迁移
// - 提供全局数据库实例
package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dealer_hub/models"
)

// 支持的数据库驱动
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Options 数据库连接参数
type Options struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DB 全局数据库连接实例
// 通过 GetDB() 函数访问
var DB *gorm.DB

// GetDB 返回数据库连接实例
func GetDB() *gorm.DB {
	return DB
}

// SetDB 设置数据库连接
// 主要用于测试场景，允许注入内存数据库
func SetDB(newDB *gorm.DB) {
	DB = newDB
}

// Init 初始化数据库连接，失败时终止程序
func Init(opts Options) {
	db, err := Open(opts)
	if err != nil {
		log.Fatalf("无法连接到数据库: %v", err)
	}
	DB = db
	log.Printf("数据库已成功连接到 %s %s:%s/%s", opts.Driver, opts.Host, opts.Port, opts.Name)
}

// Open 按驱动建立连接并配置连接池
func Open(opts Options) (*gorm.DB, error) {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second, // 慢查询阈值
			LogLevel:                  logger.Warn, // 日志级别
			IgnoreRecordNotFoundError: true,        // 忽略记录未找到的错误
			Colorful:                  true,
		},
	)

	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres:
		sslMode := opts.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		if opts.Port == "" {
			opts.Port = "5432"
		}
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=Asia/Shanghai",
			opts.Host, opts.Port, opts.User, opts.Password, opts.Name, sslMode)
		dialector = postgres.Open(dsn)
	case DriverMySQL, "":
		if opts.Port == "" {
			opts.Port = "3306"
		}
		if err := ensureMySQLDatabase(opts); err != nil {
			return nil, err
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local&collation=utf8mb4_unicode_ci",
			opts.User, opts.Password, opts.Host, opts.Port, opts.Name)
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层数据库连接失败: %w", err)
	}

	// 设置连接池参数
	sqlDB.SetMaxOpenConns(25)                  // 最大打开连接数
	sqlDB.SetMaxIdleConns(10)                  // 最大空闲连接数
	sqlDB.SetConnMaxLifetime(time.Hour)        // 连接最大生存时间
	sqlDB.SetConnMaxIdleTime(30 * time.Minute) // 空闲连接最大生存时间

	return db, nil
}

// ensureMySQLDatabase 先连接MySQL服务器（不指定数据库），数据库不存在时创建
func ensureMySQLDatabase(opts Options) error {
	dsnWithoutDB := fmt.Sprintf("%s:%s@tcp(%s:%s)/?charset=utf8mb4&parseTime=True&loc=Local",
		opts.User, opts.Password, opts.Host, opts.Port)

	tempDB, err := gorm.Open(mysql.Open(dsnWithoutDB), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("连接MySQL服务器失败: %w", err)
	}
	if sqlDB, err := tempDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	createDBSQL := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", opts.Name)
	if err := tempDB.Exec(createDBSQL).Error; err != nil {
		return fmt.Errorf("创建数据库失败: %w", err)
	}
	return nil
}

// AutoMigrate 迁移所有模型，测试中直接对内存库调用
func AutoMigrate(db *gorm.DB) error {
	if db.Dialector.Name() == DriverMySQL {
		db = db.Set("gorm:table_options", "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci")
	}

	// 需要迁移的模型按照依赖关系排序
	return db.AutoMigrate(
		&models.Dealer{},
		&models.DealerToken{},
		&models.ShopOrder{},
		&models.DealerCommission{},
		&models.CommissionPayout{},
		&models.CommissionTransaction{},
	)
}

// Migrate 执行数据库迁移
func Migrate() {
	log.Println("开始数据库迁移...")

	if err := AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	log.Println("数据库迁移成功")
}
