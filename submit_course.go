//go:build manual
// +build manual

// Quick end-to-end test of call submission against a live node
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adrianncovaci/uni-chain/internal/chain"
	"github.com/adrianncovaci/uni-chain/internal/identity"
	"github.com/adrianncovaci/uni-chain/internal/types"
)

func main() {
	nodeURL := os.Getenv("NODE_URL")
	if nodeURL == "" {
		nodeURL = "ws://127.0.0.1:9944"
	}

	runID := uuid.NewString()
	fmt.Printf("Testing course submission against %s (run %s)\n", nodeURL, runID)

	id, err := identity.LoadOrCreateIdentity("unichain_key.pem")
	if err != nil {
		log.Fatalf("Failed to load identity: %v", err)
	}
	fmt.Printf("Account: %s\n", id.Account())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := chain.Dial(ctx, nodeURL, id)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	// Count the courses before minting so the effect is visible
	pairs, err := client.EntryPairs(ctx, types.PalletName, types.CoursesMap)
	if err != nil {
		log.Fatalf("Failed to enumerate courses: %v", err)
	}
	fmt.Printf("Courses before: %d\n", len(pairs))

	done := make(chan struct{})
	fmt.Println("\nSubmitting createCourse...")
	err = client.SubmitAndWatch(ctx, types.NewCreateCall(), func(status string) {
		fmt.Printf("  %s\n", status)
		if strings.HasPrefix(status, "Finalized.") ||
			strings.HasPrefix(status, "Transaction failed") ||
			strings.HasPrefix(status, "Transaction dropped") {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		log.Fatalf("Failed to submit: %v", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		log.Fatal("Timed out waiting for finalization")
	}

	pairs, err = client.EntryPairs(ctx, types.PalletName, types.CoursesMap)
	if err != nil {
		log.Fatalf("Failed to re-enumerate courses: %v", err)
	}
	fmt.Printf("\nCourses after: %d\n", len(pairs))
	fmt.Println("✅ Submission test complete!")
}
