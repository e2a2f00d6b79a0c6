package database

import (
	"fmt"
	"log"
	"os"

	"github.com/pathlearn/lms-api/model"
	"github.com/pathlearn/lms-api/utils/auth"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// RunSeeds seeds the database with an admin account, demo learners, and a
// starter catalog of modules and learning paths.
func RunSeeds(db *gorm.DB) error {
	return NewSeeder(db).SeedAll()
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	// Run seeds in order (respecting foreign key constraints)
	if err := s.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedLearners(); err != nil {
		return fmt.Errorf("failed to seed learners: %w", err)
	}

	if err := s.SeedModules(); err != nil {
		return fmt.Errorf("failed to seed modules: %w", err)
	}

	if err := s.SeedLearningPaths(); err != nil {
		return fmt.Errorf("failed to seed learning paths: %w", err)
	}

	if err := s.SeedAssignments(); err != nil {
		return fmt.Errorf("failed to seed assignments: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// SeedAdminUser creates the default admin user
func (s *Seeder) SeedAdminUser() error {
	// Check if admin already exists
	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Admin user already exists, skipping...")
		return nil
	}

	// Get admin credentials from environment variables
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		log.Println("⚠️  ADMIN_EMAIL and ADMIN_PASSWORD environment variables not set, skipping admin user creation")
		return nil
	}

	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.User{
		Email:        adminEmail,
		PasswordHash: passwordHash,
		Name:         "System Administrator",
		Role:         model.RoleAdmin,
		Status:       model.UserStatusActive,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Created admin user: %s\n", admin.Email)
	return nil
}

// SeedLearners creates a couple of demo learner accounts
func (s *Seeder) SeedLearners() error {
	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", model.RoleLearner).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Learners already exist, skipping...")
		return nil
	}

	passwordHash, err := auth.HashPassword("Learner@123")
	if err != nil {
		return err
	}

	learners := []model.User{
		{Email: "asha@example.com", Name: "Asha Verma", PasswordHash: passwordHash, Role: model.RoleLearner, Status: model.UserStatusActive},
		{Email: "rohit@example.com", Name: "Rohit Nair", PasswordHash: passwordHash, Role: model.RoleLearner, Status: model.UserStatusActive},
		{Email: "pending@example.com", Name: "Pending Learner", PasswordHash: passwordHash, Role: model.RoleLearner, Status: model.UserStatusPending},
	}

	if err := s.db.Create(&learners).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d learner users\n", len(learners))
	return nil
}

// SeedModules creates a starter module catalog with chapters
func (s *Seeder) SeedModules() error {
	var count int64
	if err := s.db.Model(&model.Module{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Modules already exist, skipping...")
		return nil
	}

	modules := []model.Module{
		{
			Title:       "Go Basics",
			Description: "Syntax, types, and control flow.",
			XP:          100,
			Tags:        datatypes.NewJSONSlice([]string{"go", "beginner"}),
			Chapters: []model.Chapter{
				{Position: 1, Title: "Hello, World", Body: "Your first Go program."},
				{Position: 2, Title: "Variables and Types", Body: "Declarations, zero values, conversions."},
				{Position: 3, Title: "Control Flow", Body: "if, for, switch."},
			},
		},
		{
			Title:       "Functions and Methods",
			Description: "Functions, closures, methods, and interfaces.",
			XP:          150,
			Tags:        datatypes.NewJSONSlice([]string{"go", "beginner"}),
			Chapters: []model.Chapter{
				{Position: 1, Title: "Functions", Body: "Parameters, returns, variadics."},
				{Position: 2, Title: "Methods", Body: "Receivers and method sets."},
			},
		},
		{
			Title:       "Concurrency",
			Description: "Goroutines, channels, and sync primitives.",
			XP:          250,
			Tags:        datatypes.NewJSONSlice([]string{"go", "intermediate", "concurrency"}),
			Chapters: []model.Chapter{
				{Position: 1, Title: "Goroutines", Body: "Lightweight threads."},
				{Position: 2, Title: "Channels", Body: "Communication and select."},
				{Position: 3, Title: "sync Package", Body: "Mutexes, WaitGroups, Once."},
			},
		},
		{
			Title:       "Building Web Services",
			Description: "HTTP servers, routing, and middleware.",
			XP:          200,
			Tags:        datatypes.NewJSONSlice([]string{"go", "intermediate", "web"}),
			Chapters: []model.Chapter{
				{Position: 1, Title: "HTTP Handlers", Body: "Request and response basics."},
				{Position: 2, Title: "Middleware", Body: "Composing cross-cutting concerns."},
			},
		},
	}

	if err := s.db.Create(&modules).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d modules\n", len(modules))
	return nil
}

// SeedLearningPaths creates sample learning paths from the seeded modules
func (s *Seeder) SeedLearningPaths() error {
	var count int64
	if err := s.db.Model(&model.LearningPath{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Learning paths already exist, skipping...")
		return nil
	}

	var modules []model.Module
	if err := s.db.Order("created_at ASC, id ASC").Find(&modules).Error; err != nil {
		return err
	}
	if len(modules) < 4 {
		log.Println("⚠️  Not enough modules to seed learning paths, skipping")
		return nil
	}

	paths := []struct {
		path    model.LearningPath
		modules []model.Module
	}{
		{
			path:    model.LearningPath{Title: "Go Foundations", Description: "Start here: the language core."},
			modules: []model.Module{modules[0], modules[1]},
		},
		{
			path:    model.LearningPath{Title: "Backend Engineering", Description: "Concurrency and web services."},
			modules: []model.Module{modules[2], modules[3]},
		},
	}

	for _, p := range paths {
		if err := s.db.Create(&p.path).Error; err != nil {
			return err
		}
		for i, mod := range p.modules {
			member := model.LearningPathModule{
				LearningPathID: p.path.ID,
				ModuleID:       mod.ID,
				Position:       i + 1,
			}
			if err := s.db.Create(&member).Error; err != nil {
				return err
			}
		}
	}

	log.Printf("✅ Created %d learning paths\n", len(paths))
	return nil
}

// SeedAssignments assigns every seeded path to the active demo learners. The
// first path in creation order starts in progress, the rest stay locked.
func (s *Seeder) SeedAssignments() error {
	var count int64
	if err := s.db.Model(&model.PathAssignment{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Assignments already exist, skipping...")
		return nil
	}

	var learners []model.User
	if err := s.db.Where("role = ? AND status = ?", model.RoleLearner, model.UserStatusActive).Find(&learners).Error; err != nil {
		return err
	}

	var paths []model.LearningPath
	if err := s.db.Order("created_at ASC, id ASC").Find(&paths).Error; err != nil {
		return err
	}

	created := 0
	for _, learner := range learners {
		for i, path := range paths {
			status := model.AssignmentStatusLocked
			if i == 0 {
				status = model.AssignmentStatusInProgress
			}
			assignment := model.PathAssignment{
				UserID:           learner.ID,
				LearningPathID:   path.ID,
				Status:           status,
				SequencePosition: i,
			}
			if err := s.db.Create(&assignment).Error; err != nil {
				return err
			}
			created++
		}
	}

	log.Printf("✅ Created %d path assignments\n", created)
	return nil
}
