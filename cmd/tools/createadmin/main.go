package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Muhsin-Gun/event-API/internal/modules/users"
)

// Seeds an admin user. Usage:
//
//	go run ./cmd/tools/createadmin [email] [username] [password]
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

	email := arg(1, "admin@example.com")
	username := arg(2, "admin")
	password := arg(3, "admin123")

	var existing users.User
	if err := db.First(&existing, "email = ?", email).Error; err == nil {
		fmt.Printf("User with email %s already exists\n", email)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		log.Fatal(err)
	}

	now := time.Now()
	admin := users.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         users.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Fatal(err)
	}

	fmt.Println("Admin created:", admin.ID)
}

func arg(i int, def string) string {
	if len(os.Args) > i && os.Args[i] != "" {
		return os.Args[i]
	}
	return def
}
