package recognitionRepository

import (
	"PlateRecognizer/internal/api/recognition"
	"PlateRecognizer/internal/entity"
	contextPkg "PlateRecognizer/pkg/context"
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type PlateDB struct {
	ID          int64          `db:"id"`
	PlateNumber sql.NullString `db:"plate_number"`
	Timestamp   sql.NullTime   `db:"timestamp"`
	ImagePath   sql.NullString `db:"image_path"`
}

func (r *plateRepository) CreatePlate(c context.Context, plate entity.Plate) (int64, error) {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"plate_number": plate.PlateNumber,
		"image_path":   plate.ImagePath,
	}

	q := queryCreatePlate
	returning := r.q.DriverName() == "postgres"
	if returning {
		q += " RETURNING id"
	}

	query, args, err := sqlx.Named(q, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreatePlate")
		return 0, err
	}
	query = r.q.Rebind(query)

	var id int64
	if returning {
		err = r.q.QueryRowxContext(c, query, args...).Scan(&id)
	} else {
		var res sql.Result
		res, err = r.q.ExecContext(c, query, args...)
		if err == nil {
			id, err = res.LastInsertId()
		}
	}
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating plate record")
		return 0, err
	}

	r.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"id":         id,
		"plate":      plate.PlateNumber,
		"driver":     r.q.DriverName(),
	}).Info("Saved plate record")

	return id, nil
}

func (r *plateRepository) GetPlateByID(c context.Context, id int64) (entity.Plate, error) {
	requestID := contextPkg.GetRequestID(c)
	var plate PlateDB

	query, args, err := sqlx.Named(queryGetPlateByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetPlateByID named query preparation err")
		return entity.Plate{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&plate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"id":         id,
			}).Warn("GetPlateByID no rows found")
			return entity.Plate{}, recognition.ErrPlateNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetPlateByID execution err")
		return entity.Plate{}, err
	}

	return r.makePlate(plate), nil
}

func (r *plateRepository) ListPlates(c context.Context, filter recognition.PlateFilter) ([]entity.Plate, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []PlateDB

	var conds []string
	var params []interface{}
	if len(filter.Plates) > 0 {
		conds = append(conds, "plate_number IN (?)")
		params = append(params, filter.Plates)
	}
	if filter.From != nil {
		conds = append(conds, "timestamp >= ?")
		params = append(params, filter.From.UTC().Format(timestampLayout))
	}
	if filter.To != nil {
		conds = append(conds, "timestamp <= ?")
		params = append(params, filter.To.UTC().Format(timestampLayout))
	}
	params = append(params, filter.Limit, filter.Offset)

	q := queryListPlates
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += queryListPlatesOrder

	query, args, err := sqlx.In(q, params...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListPlates query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListPlates execution err")
		return nil, err
	}

	plates := make([]entity.Plate, 0, len(rows))
	for _, row := range rows {
		plates = append(plates, r.makePlate(row))
	}

	return plates, nil
}

func (r *plateRepository) makePlate(p PlateDB) entity.Plate {
	plate := entity.Plate{
		ID:          p.ID,
		PlateNumber: p.PlateNumber.String,
	}
	if p.Timestamp.Valid {
		plate.Timestamp = p.Timestamp.Time.UTC()
	}
	if p.ImagePath.Valid {
		path := p.ImagePath.String
		plate.ImagePath = &path
	}
	return plate
}
