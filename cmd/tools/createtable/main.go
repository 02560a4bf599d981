package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
		  id CHAR(36) NOT NULL,
		  username VARCHAR(64) NOT NULL,
		  email VARCHAR(255) NOT NULL,
		  password_hash VARCHAR(255) NOT NULL,
		  role VARCHAR(16) NOT NULL DEFAULT 'client',
		  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		  PRIMARY KEY (id),
		  UNIQUE KEY ux_users_email (email)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS password_resets (
		  id CHAR(36) NOT NULL,
		  user_id CHAR(36) NOT NULL,
		  token_hash BINARY(32) NOT NULL,
		  expires_at DATETIME(3) NOT NULL,
		  used_at DATETIME(3) NULL,
		  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		  PRIMARY KEY (id),
		  UNIQUE KEY ux_password_resets_token_hash (token_hash),
		  KEY ix_password_resets_user_id (user_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS events (
		  id CHAR(36) NOT NULL,
		  title VARCHAR(100) NOT NULL,
		  description VARCHAR(500) NULL,
		  date DATETIME(3) NOT NULL,
		  location VARCHAR(255) NOT NULL,
		  price INT NOT NULL DEFAULT 0,
		  poster_key VARCHAR(255) NULL,
		  poster_url VARCHAR(512) NULL,
		  created_by CHAR(36) NOT NULL,
		  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		  PRIMARY KEY (id),
		  KEY ix_events_title (title),
		  KEY ix_events_date (date),
		  KEY ix_events_created_by (created_by)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS payments (
		  id CHAR(36) NOT NULL,
		  user_id CHAR(36) NOT NULL,
		  event_id CHAR(36) NULL,
		  amount INT NOT NULL,
		  phone VARCHAR(15) NOT NULL,
		  method VARCHAR(16) NOT NULL DEFAULT 'mpesa',
		  status VARCHAR(16) NOT NULL,
		  merchant_request_id VARCHAR(128) NULL,
		  checkout_request_id VARCHAR(128) NULL,
		  mpesa_receipt_number VARCHAR(64) NULL,
		  failure_reason VARCHAR(255) NULL,
		  raw_callback JSON NULL,
		  idempotency_key VARCHAR(64) NULL,
		  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		  PRIMARY KEY (id),
		  UNIQUE KEY ux_payments_checkout_request_id (checkout_request_id),
		  KEY ix_payments_user_id (user_id),
		  KEY ix_payments_event_id (event_id),
		  KEY ix_payments_status (status),
		  KEY ix_payments_idempotency_key (idempotency_key)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	}

	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			log.Fatalf("Failed: %v", err)
		}
	}

	fmt.Println("✓ Tables created successfully!")
}
