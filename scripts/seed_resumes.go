package main

import (
	"context"
	"log"
	"os"
	"strings"

	"alfredoptarigan/resume-registry/internal/config"
	"alfredoptarigan/resume-registry/internal/models"
)

func main() {
	log.Println("🚀 Starting resume seeding...")

	// Load configuration
	cfg := config.Load()

	ctx := context.Background()

	store, closeStore, err := config.OpenDocumentStore(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize document store: %v", err)
	}
	defer closeStore()

	existing, err := store.List(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to list resumes: %v", err)
	}

	if len(existing) > 0 {
		log.Printf("✅ Collection already holds %d resumes, nothing to seed", len(existing))
		return
	}

	resumes := []models.ResumeFields{
		{
			Name:          "Ann Carter",
			Email:         "ann.carter@example.com",
			Contact:       "+1 555 0101",
			Address:       "12 Harbor Rd, Portland",
			Skills:        "Go, PostgreSQL, Kubernetes",
			Qualification: "BSc Computer Science",
		},
		{
			Name:          "Bob Nguyen",
			Email:         "bob.nguyen@example.com",
			Contact:       "+1 555 0102",
			Address:       "48 Elm St, Austin",
			Skills:        "React Native, TypeScript",
			Qualification: "BEng Software Engineering",
		},
		{
			Name:          "Chioma Okafor",
			Email:         "chioma.okafor@example.com",
			Contact:       "+234 801 555 0103",
			Address:       "7 Marina, Lagos",
			Skills:        "Data analysis, Python, SQL",
			Qualification: "MSc Statistics",
		},
		{
			Name:          "Dmitri Volkov",
			Email:         "dmitri.volkov@example.com",
			Contact:       "+49 30 5550104",
			Address:       "Unter den Linden 5, Berlin",
			Skills:        "RabbitMQ, distributed systems",
			Qualification: "PhD Computer Engineering",
		},
	}

	successCount := 0
	failCount := 0

	for _, fields := range resumes {
		id, err := store.Create(ctx, fields)
		if err != nil {
			log.Printf("   ❌ Failed to add %s: %v", fields.Name, err)
			failCount++
			continue
		}
		log.Printf("   ✅ Added %s (%s)", fields.Name, id)
		successCount++
	}

	// Summary
	log.Println("\n" + strings.Repeat("=", 60))
	log.Printf("📊 Seeding Summary:")
	log.Printf("   ✅ Successful: %d resumes", successCount)
	log.Printf("   ❌ Failed: %d resumes", failCount)
	log.Println(strings.Repeat("=", 60))

	if failCount > 0 {
		log.Println("⚠️  Some resumes failed to seed. Please check the logs above.")
		os.Exit(1)
	}

	log.Println("✅ All resumes seeded successfully!")
}
