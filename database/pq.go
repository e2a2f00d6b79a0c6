package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
	"github.com/pathlearn/lms-api/config"
)

// PostgreSQLStore is a raw database/sql store used by maintenance tooling
// (cmd/progressaudit). The API server uses GORMStore.
type PostgreSQLStore struct {
	db *sql.DB
}

func Start() (*PostgreSQLStore, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	connectStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv.DB_HOST, getEnv.DB_PORT, getEnv.DB_USER_NAME, getEnv.DB_PASSWORD, getEnv.DB_NAME, getEnv.DB_SSL_MODE)

	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		fmt.Println("Unable to Start PostgreSQL Database.")
		return nil, err
	}

	log.Println("Successfully connected to PostgreSQL Database.")
	return &PostgreSQLStore{
		db: db,
	}, nil
}

// Init is a no-op for the raw store; migrations run through GORMStore.
func (s *PostgreSQLStore) Init() error {
	return nil
}

func (s *PostgreSQLStore) Close() error {
	log.Println("Closing PostgreSQL Database.")
	return s.db.Close()
}

// HealthCheck verifies the database connection is alive
func (s *PostgreSQLStore) HealthCheck() error {
	return s.db.Ping()
}

// GetDB returns the raw *sql.DB
func (s *PostgreSQLStore) GetDB() interface{} {
	return s.db
}

// AssignmentAuditRow is one invariant violation found by the audit queries.
type AssignmentAuditRow struct {
	AssignmentID   uint
	UserID         uint
	UserEmail      string
	LearningPathID uint
	Status         string
	Problem        string
}

// FindStaleInProgress finds in_progress assignments whose member modules are
// all completed. These indicate a missed completion cascade.
func (s *PostgreSQLStore) FindStaleInProgress() ([]AssignmentAuditRow, error) {
	const query = `
		SELECT pa.id, pa.user_id, u.email, pa.learning_path_id, pa.status
		FROM path_assignments pa
		JOIN users u ON u.id = pa.user_id
		WHERE pa.deleted_at IS NULL
		  AND pa.status = 'in_progress'
		  AND NOT EXISTS (
			SELECT 1 FROM learning_path_modules lpm
			WHERE lpm.learning_path_id = pa.learning_path_id
			  AND NOT EXISTS (
				SELECT 1 FROM module_progress mp
				WHERE mp.user_id = pa.user_id
				  AND mp.module_id = lpm.module_id
				  AND mp.completed
				  AND mp.deleted_at IS NULL
			  )
		  );
	`
	return s.auditQuery(query, "all member modules completed but assignment still in_progress")
}

// FindIncompleteCompleted finds completed assignments with at least one
// member module missing a completion record.
func (s *PostgreSQLStore) FindIncompleteCompleted() ([]AssignmentAuditRow, error) {
	const query = `
		SELECT pa.id, pa.user_id, u.email, pa.learning_path_id, pa.status
		FROM path_assignments pa
		JOIN users u ON u.id = pa.user_id
		WHERE pa.deleted_at IS NULL
		  AND pa.status = 'completed'
		  AND EXISTS (
			SELECT 1 FROM learning_path_modules lpm
			WHERE lpm.learning_path_id = pa.learning_path_id
			  AND NOT EXISTS (
				SELECT 1 FROM module_progress mp
				WHERE mp.user_id = pa.user_id
				  AND mp.module_id = lpm.module_id
				  AND mp.completed
				  AND mp.deleted_at IS NULL
			  )
		  );
	`
	return s.auditQuery(query, "assignment completed but member modules are missing progress")
}

// FindLockedFirstAssignments finds users whose first assignment in sequence
// is still locked. The first path must always be startable.
func (s *PostgreSQLStore) FindLockedFirstAssignments() ([]AssignmentAuditRow, error) {
	const query = `
		SELECT pa.id, pa.user_id, u.email, pa.learning_path_id, pa.status
		FROM path_assignments pa
		JOIN users u ON u.id = pa.user_id
		WHERE pa.deleted_at IS NULL
		  AND pa.status = 'locked'
		  AND pa.sequence_position = (
			SELECT MIN(p2.sequence_position) FROM path_assignments p2
			WHERE p2.user_id = pa.user_id AND p2.deleted_at IS NULL
		  );
	`
	return s.auditQuery(query, "first assignment in sequence is locked")
}

// PromoteFirstAssignments unlocks every user's first assignment. Returns the
// number of rows repaired.
func (s *PostgreSQLStore) PromoteFirstAssignments() (int64, error) {
	const query = `
		UPDATE path_assignments pa
		SET status = 'in_progress', updated_at = NOW()
		WHERE pa.deleted_at IS NULL
		  AND pa.status = 'locked'
		  AND pa.sequence_position = (
			SELECT MIN(p2.sequence_position) FROM path_assignments p2
			WHERE p2.user_id = pa.user_id AND p2.deleted_at IS NULL
		  );
	`
	res, err := s.db.Exec(query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgreSQLStore) auditQuery(query, problem string) ([]AssignmentAuditRow, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []AssignmentAuditRow{}
	for rows.Next() {
		var row AssignmentAuditRow
		if err := rows.Scan(&row.AssignmentID, &row.UserID, &row.UserEmail, &row.LearningPathID, &row.Status); err != nil {
			return nil, err
		}
		row.Problem = problem
		results = append(results, row)
	}

	return results, rows.Err()
}
