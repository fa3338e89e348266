package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/medina/medina_core/internal/db"
	"github.com/medina/medina_core/internal/graph"
	"github.com/medina/medina_core/internal/store"
)

// graphcheck loads the transit graph once and reports its shape. Run it
// after a data import to verify the routing engine will have something to
// search before restarting the API.
func main() {
	log.Println("Medina Transit - Graph Check Tool")
	log.Println("=================================")

	godotenv.Load()

	log.Println("📡 Connecting to database...")
	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✅ Database connected")

	ctx := context.Background()

	var stopCount, lineCount, scheduleCount int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM stops").Scan(&stopCount); err != nil {
		log.Fatalf("❌ Failed to count stops: %v", err)
	}
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM lines").Scan(&lineCount); err != nil {
		log.Fatalf("❌ Failed to count lines: %v", err)
	}
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM schedules").Scan(&scheduleCount); err != nil {
		log.Fatalf("❌ Failed to count schedules: %v", err)
	}

	log.Printf("📊 Database statistics:")
	log.Printf("   Stops:     %d", stopCount)
	log.Printf("   Lines:     %d", lineCount)
	log.Printf("   Schedules: %d", scheduleCount)

	if stopCount == 0 || lineCount == 0 || scheduleCount == 0 {
		log.Fatalf("❌ No transit data found. Import stops, lines and schedules first!")
	}

	g, err := graph.NewLoader(store.NewGateway(pool)).Load(ctx)
	if err != nil {
		log.Fatalf("❌ Graph load failed: %v", err)
	}

	trips := 0
	for _, r := range g.Routes {
		trips += len(r.Trips)
	}

	log.Printf("📈 Graph statistics:")
	log.Printf("   Stops:     %d", len(g.Stops))
	log.Printf("   Routes:    %d", len(g.Routes))
	log.Printf("   Trips:     %d", trips)
	log.Printf("   Transfers: %d", g.TransferCount())
	log.Println("✅ Graph check complete")
}
