package recognitionRepository

const (
	queryCreatePlate = `
		INSERT INTO plates (
			plate_number,
			image_path
		) VALUES (
			:plate_number,
			:image_path
		)
	`

	queryGetPlateByID = `
		SELECT
			id,
			plate_number,
			timestamp,
			image_path
		FROM plates
		WHERE id = :id
	`

	queryListPlates = `
		SELECT
			id,
			plate_number,
			timestamp,
			image_path
		FROM plates
	`

	queryListPlatesOrder = `
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`
)

// Stored timestamps are UTC at second precision on every dialect.
const timestampLayout = "2006-01-02 15:04:05"
