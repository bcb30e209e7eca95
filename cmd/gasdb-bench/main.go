// gasdb-bench inserts synthetic documents through the full engine stack
// (lock service, file service, master index) and reports throughput.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/driver/localblob"
	"github.com/adfharrison1/gasdb-go/pkg/driver/localkv"
	"github.com/adfharrison1/gasdb-go/pkg/gasdb"
)

// generateRandomName generates a random 6-letter name
func generateRandomName(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	name := make([]byte, 6)
	for i := range name {
		name[i] = letters[rng.Intn(len(letters))]
	}
	// Capitalize first letter
	name[0] = name[0] - 32
	return string(name)
}

func main() {
	var (
		count    = flag.Int("count", 1000, "Number of documents to insert")
		dataDir  = flag.String("data-dir", "", "Data directory (default: a temp directory)")
		collName = flag.String("collection", "users", "Collection to insert into")
		report   = flag.Int("report-every", 100, "Progress report interval")
	)
	flag.Parse()

	if *count <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -count must be greater than 0")
		os.Exit(1)
	}

	dir := *dataDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "gasdb-bench-")
		if err != nil {
			log.Fatalf("Failed to create temp directory: %v", err)
		}
		defer os.RemoveAll(dir)
	}

	blobs, err := localblob.New(filepath.Join(dir, "collections"))
	if err != nil {
		log.Fatalf("Failed to open blob store: %v", err)
	}
	props := localkv.New(filepath.Join(dir, "gasdb_properties.json"))
	db := gasdb.Open(blobs, props)

	ctx := context.Background()
	coll, err := db.Collection(ctx, *collName)
	if err != nil {
		log.Fatalf("Failed to open collection %q: %v", *collName, err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	log.Printf("INFO: Inserting %d documents into collection '%s' under %s", *count, *collName, dir)

	start := time.Now()
	for i := 0; i < *count; i++ {
		name := generateRandomName(rng)
		doc := domain.Document{
			"name":  name,
			"age":   rng.Intn(82) + 18,
			"email": fmt.Sprintf("%s%d@example.com", name, i),
		}
		if _, err := coll.InsertOne(ctx, doc); err != nil {
			log.Fatalf("Insert %d failed: %v", i, err)
		}
		if *report > 0 && (i+1)%*report == 0 {
			log.Printf("INFO: Inserted %d/%d documents", i+1, *count)
		}
	}
	elapsed := time.Since(start)

	total, err := coll.CountDocuments(ctx, nil)
	if err != nil {
		log.Fatalf("Count failed: %v", err)
	}

	fmt.Printf("Inserted %d documents in %s (%.1f docs/sec), collection now holds %d\n",
		*count, elapsed.Round(time.Millisecond), float64(*count)/elapsed.Seconds(), total)
}
