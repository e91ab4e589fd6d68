package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/mediconnect-health/mediconnect-backend/database"
	"github.com/mediconnect-health/mediconnect-backend/internal/jobs"
	"github.com/mediconnect-health/mediconnect-backend/internal/models"
	"github.com/mediconnect-health/mediconnect-backend/internal/routes"
	"github.com/mediconnect-health/mediconnect-backend/internal/services"
	"github.com/mediconnect-health/mediconnect-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		err := godotenv.Load(".env")
		if err != nil {
			err = godotenv.Load("environments/.env.development")
			if err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}
	}

	// Initialize storage
	var store storage.Store

	// Check if we should use memory store (for testing)
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		memStore := storage.NewMemoryStore()
		seedDemoData(memStore)
		store = memStore
	} else {
		// Connect to database
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		// Run migrations
		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Patient{},
			&models.Doctor{},
			&models.Appointment{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}

	// Initialize Twilio SMS service; the USSD path degrades to demo mode
	// without it
	var smsSender services.SMSSender
	twilioService, err := services.NewTwilioService()
	if err != nil {
		log.Printf("⚠️  Twilio not configured - SMS confirmations will be logged only: %v", err)
	} else {
		smsSender = twilioService
		log.Println("✅ Twilio SMS service initialized")
	}

	// Initialize USSD services
	sessionManager := services.NewSessionManager(services.DefaultSessionTTL)
	ussdService := services.NewUSSDService(store, smsSender, sessionManager)

	// Initialize and start the appointment reminder job
	reminderJob := jobs.NewReminderJob(store, smsSender)
	reminderJob.Start()

	log.Println("✅ All services initialized and scheduled jobs started")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "MediConnect Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Service overview endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		response := fiber.Map{
			"service":     "MediConnect Backend API",
			"version":     "1.0.0",
			"status":      "healthy",
			"environment": getEnvironment(),
			"storage":     getStorageType(),
			"sms": fiber.Map{
				"configured": smsSender != nil,
			},
			"ussd": fiber.Map{
				"sessions": sessionManager.ActiveCount(),
			},
		}

		// Add database status if using database
		if os.Getenv("USE_MEMORY_STORE") != "true" && database.DB != nil {
			sqlDB, err := database.DB.DB()
			dbStatus := "connected"
			if err != nil {
				dbStatus = "error: " + err.Error()
			} else if err := sqlDB.Ping(); err != nil {
				dbStatus = "error: " + err.Error()
			}

			var patientCount, doctorCount, appointmentCount int64
			database.DB.Model(&models.Patient{}).Count(&patientCount)
			database.DB.Model(&models.Doctor{}).Count(&doctorCount)
			database.DB.Model(&models.Appointment{}).Count(&appointmentCount)

			response["database"] = fiber.Map{
				"status":       dbStatus,
				"patients":     patientCount,
				"doctors":      doctorCount,
				"appointments": appointmentCount,
			}
		}

		return c.JSON(response)
	})

	// Setup routes
	routes.SetupRoutes(app, ussdService)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		log.Println("⏹️  Stopping reminder job...")
		reminderJob.Stop()
		log.Println("⏹️  Stopping session sweeper...")
		sessionManager.Stop()
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 MediConnect Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("🌍 Environment: %s", getEnvironment())
	log.Printf("📱 SMS: %s", getSMSStatus(smsSender))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

// seedDemoData loads a few doctors and a test patient so the USSD flows can
// be exercised against the memory store
func seedDemoData(store *storage.MemoryStore) {
	doctors := []*models.Doctor{
		{FirstName: "Kwame", LastName: "Mensah", Specialization: "General Medicine"},
		{FirstName: "Ama", LastName: "Owusu", Specialization: "Pediatrics"},
		{FirstName: "Kofi", LastName: "Asante", Specialization: "Cardiology"},
	}
	for _, doctor := range doctors {
		if _, err := store.CreateDoctor(doctor); err != nil {
			log.Printf("Failed to seed doctor: %v", err)
		}
	}

	demoPhone := os.Getenv("DEMO_PATIENT_PHONE")
	if demoPhone == "" {
		demoPhone = "+233200000000"
	}
	_, err := store.CreatePatient(&models.Patient{
		FirstName: "Test",
		LastName:  "Patient",
		Phone:     demoPhone,
	})
	if err != nil {
		log.Printf("Failed to seed patient: %v", err)
	}

	log.Printf("Seeded %d doctors and demo patient %s", len(doctors), demoPhone)
}

func getEnvironment() string {
	if os.Getenv("INSTANCE_CONNECTION_NAME") != "" {
		return "Production (Cloud Run)"
	}
	return "Development (Local)"
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func getSMSStatus(sms services.SMSSender) string {
	if sms == nil {
		return "Not configured (demo mode)"
	}
	return "Configured"
}
