// testserver starts a batchgate API server over an in-memory backend seeded
// with sample records, for manual and end-to-end testing.
// Usage: go run ./cmd/testserver
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/seantiz/batchgate/internal/api"
	"github.com/seantiz/batchgate/internal/backend"
	"github.com/seantiz/batchgate/internal/backend/memory"
	"github.com/seantiz/batchgate/internal/engine"
	"github.com/seantiz/batchgate/internal/metadata"
	"github.com/seantiz/batchgate/internal/store"
)

func main() {
	addr := ":8080"
	if v := os.Getenv("BATCHGATE_LISTEN_ADDR"); v != "" {
		addr = v
	}

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	reg := metadata.Default()
	be := memory.New(reg)
	be.Seed("articulo", backend.Record{"CodigoA": "1", "ISSN": "0000-0001", "TituloA": "Primer articulo"})
	be.Seed("alumnograduacion", backend.Record{
		"alumnograduacion_id":    "1",
		"alumnograduacion_login": "Marc",
		"alumnograduacion_dni":   "12345678Z",
		"alumnograduacion_email": "marc@example.com",
	})
	be.Seed("ubicacion", backend.Record{"id_site": "1"})

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	eng := engine.NewEngine(db, be, reg, logger)
	defer eng.Wait()
	srv := api.NewServer(addr, db, eng, logger)

	logger.Info("testserver: starting", "addr", addr)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
