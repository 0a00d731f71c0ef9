package database

const (
	schemaSQLite = `
		CREATE TABLE IF NOT EXISTS plates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			plate_number TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			image_path TEXT
		)
	`

	schemaMySQL = `
		CREATE TABLE IF NOT EXISTS plates (
			id INT AUTO_INCREMENT PRIMARY KEY,
			plate_number VARCHAR(64),
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			image_path VARCHAR(512)
		)
	`

	schemaPostgres = `
		CREATE TABLE IF NOT EXISTS plates (
			id BIGSERIAL PRIMARY KEY,
			plate_number TEXT,
			timestamp TIMESTAMP DEFAULT (NOW() AT TIME ZONE 'utc'),
			image_path TEXT
		)
	`
)
