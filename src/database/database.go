package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/pulsemetrics/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateUserTable()
	migrateMetricsTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		auth_provider TEXT DEFAULT 'local',
		is_email_verified BOOLEAN DEFAULT FALSE,
		email_verification_token TEXT,
		email_verification_token_expires_at TIMESTAMP,
		password_reset_token TEXT,
		password_reset_token_expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		mrr REAL NOT NULL,
		users INTEGER NOT NULL,
		churn REAL NOT NULL,
		new_users INTEGER NOT NULL,
		revenue REAL NOT NULL,
		uploaded_at TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);
	CREATE INDEX IF NOT EXISTS idx_metrics_user_date ON metrics(user_id, date);

	CREATE TABLE IF NOT EXISTS insights (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL UNIQUE,
		payload TEXT NOT NULL,
		generated_at TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// tableColumns returns the existing column set of a table, or nil when the
// table does not exist yet (fresh database, nothing to migrate).
func tableColumns(table string) map[string]bool {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&tableName)
	if err != nil {
		if err != sql.ErrNoRows && logger.L != nil {
			logger.L.Error("Error checking for table", "table", table, "error", err)
		}
		return nil
	}

	rows, err := DB.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema", "table", table, "error", err)
		}
		return nil
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info", "table", table, "error", err)
			}
			return nil
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info", "table", table, "error", err)
		}
		return nil
	}
	return columnExists
}

func addColumn(table, definition, column string) {
	_, err := DB.Exec("ALTER TABLE " + table + " ADD COLUMN " + definition)
	if err != nil {
		logger.L.Error("Error adding column", "table", table, "column", column, "error", err)
	} else {
		logger.L.Info("Added column", "table", table, "column", column)
	}
}

func migrateUserTable() {
	columnExists := tableColumns("users")
	if columnExists == nil {
		return
	}

	if !columnExists["auth_provider"] {
		addColumn("users", "auth_provider TEXT DEFAULT 'local'", "auth_provider")
	}
	if !columnExists["is_email_verified"] {
		addColumn("users", "is_email_verified BOOLEAN DEFAULT FALSE", "is_email_verified")
	}
	if !columnExists["email_verification_token"] {
		addColumn("users", "email_verification_token TEXT", "email_verification_token")
	}
	if !columnExists["email_verification_token_expires_at"] {
		addColumn("users", "email_verification_token_expires_at TIMESTAMP", "email_verification_token_expires_at")
	}
	if !columnExists["password_reset_token"] {
		addColumn("users", "password_reset_token TEXT", "password_reset_token")
	}
	if !columnExists["password_reset_token_expires_at"] {
		addColumn("users", "password_reset_token_expires_at TIMESTAMP", "password_reset_token_expires_at")
	}
}

func migrateMetricsTable() {
	columnExists := tableColumns("metrics")
	if columnExists == nil {
		return
	}

	if !columnExists["new_users"] {
		addColumn("metrics", "new_users INTEGER NOT NULL DEFAULT 0", "new_users")
	}
	if !columnExists["uploaded_at"] {
		addColumn("metrics", "uploaded_at TIMESTAMP", "uploaded_at")
	}
}
