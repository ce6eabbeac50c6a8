//cmd/seeder/main.go
package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lib/pq"

	"github.com/evoflow/backend/internal/db"
	"github.com/evoflow/backend/internal/model"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS campaigns (
        id           TEXT PRIMARY KEY,
        name         TEXT NOT NULL,
        instance     TEXT NOT NULL,
        message      TEXT NOT NULL DEFAULT '',
        recipients   TEXT[] NOT NULL DEFAULT '{}',
        media_url    TEXT NOT NULL DEFAULT '',
        media_name   TEXT NOT NULL DEFAULT '',
        media_mime   TEXT NOT NULL DEFAULT '',
        scheduled_at TIMESTAMPTZ NOT NULL,
        repeat       TEXT NOT NULL DEFAULT 'none',
        status       TEXT NOT NULL DEFAULT 'scheduled',
        sent_count   INT NOT NULL DEFAULT 0,
        failed_count INT NOT NULL DEFAULT 0,
        created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at   TIMESTAMPTZ
    )`,
	`CREATE TABLE IF NOT EXISTS flows (
        id         TEXT PRIMARY KEY,
        name       TEXT NOT NULL,
        instance   TEXT NOT NULL,
        graph      JSONB NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at TIMESTAMPTZ
    )`,
	`CREATE TABLE IF NOT EXISTS contacts (
        id    SERIAL PRIMARY KEY,
        phone TEXT NOT NULL UNIQUE,
        name  TEXT NOT NULL DEFAULT '',
        tag   TEXT NOT NULL DEFAULT ''
    )`,
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	db.Init()
	defer db.DB.Close()

	for _, stmt := range schema {
		if _, err := db.DB.Exec(stmt); err != nil {
			log.Fatalf("failed to apply schema: %v", err)
		}
	}
	fmt.Println("Schema applied")

	seedContacts(db.DB)
	seedCampaign(db.DB)
	seedFlow(db.DB)

	fmt.Println("Database seeding completed successfully!")
}

func seedContacts(conn *sql.DB) {
	contacts := []model.Contact{
		{Phone: "15551230001", Name: "Alice", Tag: "vip"},
		{Phone: "15551230002", Name: "Bob", Tag: "lead"},
		{Phone: "254700111222", Name: "Wanjiku", Tag: "lead"},
	}
	for _, c := range contacts {
		_, err := conn.Exec(
			`INSERT INTO contacts (phone, name, tag) VALUES ($1, $2, $3) ON CONFLICT (phone) DO NOTHING`,
			c.Phone, c.Name, c.Tag,
		)
		if err != nil {
			log.Fatalf("failed to seed contact %s: %v", c.Phone, err)
		}
	}
	fmt.Println("Seeded: contacts")
}

func seedCampaign(conn *sql.DB) {
	_, err := conn.Exec(
		`INSERT INTO campaigns (id, name, instance, message, recipients, scheduled_at, repeat, status)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`,
		uuid.NewString(),
		"Welcome blast",
		"demo-instance",
		"Hello {name}! Thanks for signing up.",
		pq.Array([]string{"15551230001", "15551230002"}),
		time.Now().Add(time.Hour),
		model.RepeatNone,
		model.CampaignScheduled,
	)
	if err != nil {
		log.Fatalf("failed to seed campaign: %v", err)
	}
	fmt.Println("Seeded: campaigns")
}

func seedFlow(conn *sql.DB) {
	graph := map[string]any{
		"nodes": []model.FlowNode{
			{ID: "trigger-1", Kind: model.NodeTrigger, Keywords: "hi, hello"},
			{ID: "message-1", Kind: model.NodeMessage, Text: "Hey! How can we help?"},
			{ID: "delay-1", Kind: model.NodeDelay, Seconds: 5},
			{ID: "message-2", Kind: model.NodeMessage, Text: "An agent will reply shortly."},
		},
		"edges": []model.FlowEdge{
			{Source: "trigger-1", Target: "message-1"},
			{Source: "message-1", Target: "delay-1"},
			{Source: "delay-1", Target: "message-2"},
		},
	}
	raw, err := json.Marshal(graph)
	if err != nil {
		log.Fatal(err)
	}

	_, err = conn.Exec(
		`INSERT INTO flows (id, name, instance, graph) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
		uuid.NewString(), "Greeting auto-reply", "demo-instance", raw,
	)
	if err != nil {
		log.Fatalf("failed to seed flow: %v", err)
	}
	fmt.Println("Seeded: flows")
}
