package main

import (
	"fmt"
	"log"

	"lockproxy/internal/config"
	"lockproxy/internal/db"
	"lockproxy/internal/models"
)

func main() {
	fmt.Println("🔍 Verifying database connection and gateway schema...")

	if err := config.LoadConfig(""); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// InitDB migrates, so every table should exist afterwards
	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database connection: %v", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Ping failed: %v", err)
	}
	fmt.Printf("📋 Connected with driver: %s\n", config.AppConfig.Database.Driver)

	missing := 0
	for _, model := range models.AllModels() {
		if db.DB.Migrator().HasTable(model) {
			fmt.Printf("✅ %T\n", model)
			continue
		}
		fmt.Printf("❌ %T table missing\n", model)
		missing++
	}

	var state models.GatewayState
	if err := db.DB.First(&state).Error; err != nil {
		fmt.Println("⚠️ Gateway state not bootstrapped yet (start the server once)")
	} else {
		fmt.Printf("📋 Gateway mode=%s admin=%s paused=%v latestRequestId=%d\n", state.Mode, state.Admin, state.Paused, state.LatestRequestID)
	}

	if missing > 0 {
		log.Fatalf("%d tables missing", missing)
	}
	fmt.Println("✅ Database verified")
}
