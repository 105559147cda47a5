//go:build ignore

package main

import (
	"compress/gzip"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Writes a sample scan batch for cmd/import-scans.
//
//	go run scripts/generate_sample_scans.go
//	go run ./cmd/import-scans -path data/scans/sample.gz
func main() {
	dataDir := "data/scans"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	lines := []string{
		"# username<TAB>scanned text",
		"alice\tLEVELUP:15:Descuento Catan",
		"alice\t20% en accesorios",
		"bob\tLEVELUP:30:Black Friday",
		"bob\tDescuento 12 en poleras",
		"carol\tPROMO-SORPRESA",
		"",
		// duplicate for alice, rejected on import
		"alice\tLEVELUP:15:Descuento Catan",
	}

	filePath := filepath.Join(dataDir, "sample.gz")
	if err := writeBatch(filePath, lines); err != nil {
		log.Fatalf("Failed to create %s: %v", filePath, err)
	}

	fmt.Printf("Created %s with %d lines\n", filePath, len(lines))
}

func writeBatch(filePath string, lines []string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	for _, line := range lines {
		if _, err := fmt.Fprintf(gzipWriter, "%s\n", line); err != nil {
			return fmt.Errorf("failed to write line: %w", err)
		}
	}

	return nil
}
