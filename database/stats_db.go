package database

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// DailyWorkRow is one (dataset, day) slice of a user's labeling throughput,
// joined with the dataset name for display.
type DailyWorkRow struct {
	Date               string `json:"date"`
	DatasetID          int64  `json:"dataset_id"`
	DatasetName        string `json:"dataset_name"`
	ImagesLabeled      int    `json:"images_labeled"`
	AnnotationsCreated int    `json:"annotations_created"`
}

// WorkTotals is a user's all-time throughput across every dataset.
type WorkTotals struct {
	ImagesLabeled      int `json:"images_labeled"`
	AnnotationsCreated int `json:"annotations_created"`
}

// ListUserWorkStatistics returns a user's per-dataset daily work rows,
// most recent day first, limited to the given number of rows.
func ListUserWorkStatistics(db *sql.DB, userID uint, limit uint64) ([]DailyWorkRow, error) {
	queryBuilder := psql.Select("ws.date", "ws.dataset_id", "d.name", "ws.images_labeled", "ws.annotations_created").
		From("work_statistics ws").
		Join("datasets d ON d.id = ws.dataset_id").
		Where(sq.Eq{"ws.user_id": userID}).
		OrderBy("ws.date DESC", "ws.dataset_id ASC").
		Limit(limit)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for ListUserWorkStatistics: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query work statistics for user %d: %w", userID, err)
	}
	defer rows.Close()

	var result []DailyWorkRow
	for rows.Next() {
		var row DailyWorkRow
		if err := rows.Scan(&row.Date, &row.DatasetID, &row.DatasetName, &row.ImagesLabeled, &row.AnnotationsCreated); err != nil {
			return nil, fmt.Errorf("failed to scan work statistic row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// GetUserWorkTotals sums a user's throughput across all datasets and days.
func GetUserWorkTotals(db *sql.DB, userID uint) (WorkTotals, error) {
	queryBuilder := psql.Select(
		"COALESCE(SUM(images_labeled), 0)",
		"COALESCE(SUM(annotations_created), 0)").
		From("work_statistics").
		Where(sq.Eq{"user_id": userID})

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return WorkTotals{}, fmt.Errorf("failed to build SQL query for GetUserWorkTotals: %w", err)
	}

	var totals WorkTotals
	err = db.QueryRow(sqlStr, args...).Scan(&totals.ImagesLabeled, &totals.AnnotationsCreated)
	if err != nil {
		return WorkTotals{}, fmt.Errorf("failed to query work totals for user %d: %w", userID, err)
	}
	return totals, nil
}
