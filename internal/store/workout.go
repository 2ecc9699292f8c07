package store

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// DateLayout is the layout of Workout.Date.
const DateLayout = "2006-01-02"

// Workout is one finished workout session.
type Workout struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Date             string    `json:"date"`
	ExerciseType     string    `json:"exercise_type"`
	Reps             int       `json:"reps"`
	DurationMinutes  float64   `json:"duration_minutes"`
	FormScore        float64   `json:"form_score"`
	CaloriesEstimate float64   `json:"calories_estimate"`
}

// WorkoutStats aggregates the workouts of a time window.
type WorkoutStats struct {
	TotalWorkouts int     `json:"total_workouts"`
	TotalReps     int     `json:"total_reps"`
	TotalDuration float64 `json:"total_duration"`
	AvgFormScore  float64 `json:"avg_form_score"`
	BestFormScore float64 `json:"best_form_score"`
	TotalCalories float64 `json:"total_calories"`
}

// ProgressPoint aggregates one exercise over one day.
type ProgressPoint struct {
	Date      string  `json:"date"`
	Reps      int     `json:"reps"`
	Duration  float64 `json:"duration"`
	FormScore float64 `json:"form_score"`
	Count     int     `json:"count"`
}

// WeeklySummary aggregates the workouts since Monday.
type WeeklySummary struct {
	WorkoutsThisWeek      int     `json:"workouts_this_week"`
	TotalRepsThisWeek     int     `json:"total_reps_this_week"`
	TotalDurationThisWeek float64 `json:"total_duration_this_week"`
	AvgFormScoreThisWeek  float64 `json:"avg_form_score_this_week"`
}

// WorkoutRepository provides access to the workout log.
type WorkoutRepository struct {
	db    *sql.DB
	stats *cache.Cache
	now   func() time.Time
}

// Workouts returns the workout repository for this store.
func (s *Store) Workouts() *WorkoutRepository {
	return &WorkoutRepository{db: s.db, stats: s.stats, now: s.now}
}

// Log appends a workout. ID, Timestamp and Date are filled in when empty.
func (r *WorkoutRepository) Log(w *Workout) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.Timestamp.IsZero() {
		w.Timestamp = r.now()
	}
	if w.Date == "" {
		w.Date = w.Timestamp.Format(DateLayout)
	}
	if w.Reps < 0 {
		return fmt.Errorf("negative reps: %d", w.Reps)
	}

	_, err := r.db.Exec(
		`INSERT INTO workouts (id, timestamp_ms, date, exercise_type, reps, duration_minutes, form_score, calories_estimate)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Timestamp.UnixMilli(), w.Date, w.ExerciseType, w.Reps,
		w.DurationMinutes, w.FormScore, w.CaloriesEstimate,
	)
	if err != nil {
		return err
	}

	r.stats.Flush()
	return nil
}

const workoutColumns = `id, timestamp_ms, date, exercise_type, reps, duration_minutes, form_score, calories_estimate`

// List returns every workout, oldest first.
func (r *WorkoutRepository) List() ([]*Workout, error) {
	return r.query(`SELECT `+workoutColumns+` FROM workouts ORDER BY timestamp_ms ASC`)
}

// Recent returns the workouts of the last days days, oldest first.
func (r *WorkoutRepository) Recent(days int) ([]*Workout, error) {
	return r.query(
		`SELECT `+workoutColumns+` FROM workouts WHERE timestamp_ms >= ? ORDER BY timestamp_ms ASC`,
		r.cutoff(days).UnixMilli(),
	)
}

func (r *WorkoutRepository) query(q string, args ...any) ([]*Workout, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workouts []*Workout
	for rows.Next() {
		w := &Workout{}
		var ts int64
		err := rows.Scan(&w.ID, &ts, &w.Date, &w.ExerciseType, &w.Reps,
			&w.DurationMinutes, &w.FormScore, &w.CaloriesEstimate)
		if err != nil {
			return nil, err
		}
		w.Timestamp = time.UnixMilli(ts)
		workouts = append(workouts, w)
	}

	return workouts, rows.Err()
}

// Stats aggregates the workouts of the last days days. An empty exercise
// covers all exercises.
func (r *WorkoutRepository) Stats(exercise string, days int) (WorkoutStats, error) {
	key := fmt.Sprintf("stats:%s:%d", exercise, days)
	if cached, ok := r.stats.Get(key); ok {
		return cached.(WorkoutStats), nil
	}

	var st WorkoutStats
	err := r.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(reps), 0), COALESCE(SUM(duration_minutes), 0),
		        COALESCE(AVG(form_score), 0), COALESCE(MAX(form_score), 0), COALESCE(SUM(calories_estimate), 0)
		 FROM workouts
		 WHERE timestamp_ms >= ? AND (? = '' OR exercise_type = ?)`,
		r.cutoff(days).UnixMilli(), exercise, exercise,
	).Scan(&st.TotalWorkouts, &st.TotalReps, &st.TotalDuration,
		&st.AvgFormScore, &st.BestFormScore, &st.TotalCalories)
	if err != nil {
		return WorkoutStats{}, err
	}

	st.TotalDuration = round(st.TotalDuration, 2)
	st.AvgFormScore = round(st.AvgFormScore, 1)
	st.TotalCalories = round(st.TotalCalories, 1)

	r.stats.SetDefault(key, st)
	return st, nil
}

// Progress returns per-day totals of one exercise over the last days days,
// ordered by date.
func (r *WorkoutRepository) Progress(exercise string, days int) ([]ProgressPoint, error) {
	rows, err := r.db.Query(
		`SELECT date, SUM(reps), SUM(duration_minutes), AVG(form_score), COUNT(*)
		 FROM workouts
		 WHERE timestamp_ms >= ? AND exercise_type = ?
		 GROUP BY date ORDER BY date ASC`,
		r.cutoff(days).UnixMilli(), exercise,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []ProgressPoint{}
	for rows.Next() {
		var p ProgressPoint
		if err := rows.Scan(&p.Date, &p.Reps, &p.Duration, &p.FormScore, &p.Count); err != nil {
			return nil, err
		}
		p.Duration = round(p.Duration, 2)
		p.FormScore = round(p.FormScore, 1)
		points = append(points, p)
	}

	return points, rows.Err()
}

// WeeklySummary aggregates the workouts since Monday 00:00 of the current week.
func (r *WorkoutRepository) WeeklySummary() (WeeklySummary, error) {
	var ws WeeklySummary
	err := r.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(reps), 0), COALESCE(SUM(duration_minutes), 0), COALESCE(AVG(form_score), 0)
		 FROM workouts WHERE timestamp_ms >= ?`,
		StartOfWeek(r.now()).UnixMilli(),
	).Scan(&ws.WorkoutsThisWeek, &ws.TotalRepsThisWeek, &ws.TotalDurationThisWeek, &ws.AvgFormScoreThisWeek)
	if err != nil {
		return WeeklySummary{}, err
	}

	ws.TotalDurationThisWeek = round(ws.TotalDurationThisWeek, 2)
	ws.AvgFormScoreThisWeek = round(ws.AvgFormScoreThisWeek, 1)
	return ws, nil
}

// ExportCSV writes every workout as CSV with a header row.
func (r *WorkoutRepository) ExportCSV(w io.Writer) error {
	workouts, err := r.List()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"id", "timestamp", "date", "exercise_type", "reps",
		"duration_minutes", "form_score", "calories_estimate",
	}); err != nil {
		return err
	}

	for _, wo := range workouts {
		err := cw.Write([]string{
			wo.ID,
			wo.Timestamp.UTC().Format(time.RFC3339),
			wo.Date,
			wo.ExerciseType,
			strconv.Itoa(wo.Reps),
			strconv.FormatFloat(wo.DurationMinutes, 'f', -1, 64),
			strconv.FormatFloat(wo.FormScore, 'f', -1, 64),
			strconv.FormatFloat(wo.CaloriesEstimate, 'f', -1, 64),
		})
		if err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Clear deletes every workout and returns how many were removed.
func (r *WorkoutRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM workouts`)
	if err != nil {
		return 0, err
	}
	r.stats.Flush()
	return result.RowsAffected()
}

func (r *WorkoutRepository) cutoff(days int) time.Time {
	return r.now().AddDate(0, 0, -days)
}

// StartOfWeek returns Monday 00:00 of the week containing t, in t's location.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
