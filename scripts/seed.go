//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hugh/staff-manager/internal/database"
	"github.com/hugh/staff-manager/internal/departments"
	"github.com/hugh/staff-manager/internal/events"
	"github.com/hugh/staff-manager/internal/users"
	"github.com/hugh/staff-manager/pkg/config"
	"github.com/hugh/staff-manager/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)
	ctx := context.Background()

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	if err := database.EnsureRoles(ctx, db); err != nil {
		log.Fatalf("failed to seed roles: %v", err)
	}

	departmentService := departments.NewService(db, events.NopPublisher{}, logger)
	userService := users.NewService(db, departmentService, events.NopPublisher{}, logger)

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "admin123!"
	}

	created, err := userService.EnsureAdmin(ctx, email, password)
	if err != nil {
		log.Fatalf("failed to create admin user: %v", err)
	}
	if created {
		fmt.Printf("Admin user created: %s\n", email)
	} else {
		fmt.Printf("Admin user already exists: %s\n", email)
	}

	existing, err := departmentService.List(ctx)
	if err != nil {
		log.Fatalf("failed to list departments: %v", err)
	}
	if len(existing) > 0 {
		fmt.Println("Departments already seeded")
		return
	}

	eng, err := departmentService.Create(ctx, departments.CreateInput{Name: "Eng"})
	if err != nil {
		log.Fatalf("failed to create department: %v", err)
	}
	backend, err := departmentService.Create(ctx, departments.CreateInput{Name: "Backend", ParentID: eng.ID})
	if err != nil {
		log.Fatalf("failed to create department: %v", err)
	}
	frontend, err := departmentService.Create(ctx, departments.CreateInput{Name: "Frontend", ParentID: eng.ID})
	if err != nil {
		log.Fatalf("failed to create department: %v", err)
	}

	staff := []users.CreateInput{
		{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", UserName: "grace", DepartmentID: backend.ID},
		{FirstName: "Ken", LastName: "Thompson", Email: "ken@example.com", UserName: "ken", DepartmentID: backend.ID},
		{FirstName: "Brendan", LastName: "Eich", Email: "brendan@example.com", UserName: "brendan", DepartmentID: frontend.ID},
	}
	for _, input := range staff {
		input.Password = "password123"
		if _, err := userService.Create(ctx, input); err != nil {
			if errors.Is(err, users.ErrDuplicateEmail) {
				continue
			}
			log.Fatalf("failed to create user %s: %v", input.Email, err)
		}
		fmt.Printf("User created: %s\n", input.Email)
	}
}
