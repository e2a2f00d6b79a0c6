package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/pathlearn/lms-api/database"
)

// progressaudit scans path assignments for states the progression engine
// should never produce and optionally repairs locked first assignments.
func main() {
	repair := flag.Bool("repair", false, "unlock first-in-sequence assignments that are stuck locked")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	store, err := database.Start()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	total := 0

	checks := []func() ([]database.AssignmentAuditRow, error){
		store.FindStaleInProgress,
		store.FindIncompleteCompleted,
		store.FindLockedFirstAssignments,
	}
	for _, check := range checks {
		rows, err := check()
		if err != nil {
			log.Fatalf("Audit query failed: %v", err)
		}
		for _, row := range rows {
			fmt.Printf("assignment=%d user=%d (%s) path=%d status=%s: %s\n",
				row.AssignmentID, row.UserID, row.UserEmail, row.LearningPathID, row.Status, row.Problem)
		}
		total += len(rows)
	}

	if total == 0 {
		fmt.Println("No assignment inconsistencies found.")
		return
	}

	fmt.Printf("Found %d inconsistent assignments.\n", total)

	if *repair {
		repaired, err := store.PromoteFirstAssignments()
		if err != nil {
			log.Fatalf("Repair failed: %v", err)
		}
		fmt.Printf("Unlocked %d first-in-sequence assignments.\n", repaired)
	} else {
		fmt.Println("Run with -repair to unlock stuck first assignments.")
	}
}
