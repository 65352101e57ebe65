//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/lena/certscope/internal/database"
	"github.com/lena/certscope/internal/database/models"
	"github.com/lena/certscope/internal/scheduler"
	"github.com/lena/certscope/internal/store"
	"github.com/lena/certscope/pkg/config"
	"github.com/lena/certscope/pkg/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	name := os.Getenv("SEED_SCAN_NAME")
	hosts := os.Getenv("SEED_SCAN_HOSTS")
	frequency := os.Getenv("SEED_SCAN_FREQUENCY")

	if name == "" {
		name = "Daily public endpoints"
	}
	if hosts == "" {
		hosts = "example.com"
	}
	if frequency == "" {
		frequency = "daily"
	}

	var existing models.ScanDefinition
	err = db.Where("name = ?", name).First(&existing).Error
	if err == nil {
		fmt.Printf("Scan definition already exists: %s\n", name)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("failed to check for existing scan: %v", err)
	}

	scan := &models.ScanDefinition{
		Name:      name,
		Hosts:     splitHosts(hosts),
		Ports:     []int{443},
		Frequency: models.ScanFrequency(frequency),
		Active:    true,
	}

	if err := scheduler.ValidateSchedule(scan); err != nil {
		log.Fatalf("invalid seed schedule: %v", err)
	}

	st := store.NewGormStore(db)
	if err := st.CreateScanDefinition(context.Background(), scan); err != nil {
		log.Fatalf("failed to create scan definition: %v", err)
	}

	fmt.Printf("Scan definition created successfully!\n")
	fmt.Printf("Name: %s\n", scan.Name)
	fmt.Printf("Hosts: %s\n", strings.Join(scan.Hosts, ", "))
	fmt.Printf("Frequency: %s\n", scan.Frequency)
	fmt.Printf("The server arms it on next start.\n")
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
