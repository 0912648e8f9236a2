package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teleclinic/telehealth-backend/internal/db"
)

// simulate hammers the booking endpoint with deliberately overlapping slot
// choices and verifies afterwards that no slot ended up double-booked.

type simConfig struct {
	apiBaseURL  string
	duration    time.Duration
	workers     int
	slotLimit   int
	postgresDSN string
}

type slotTarget struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Date      string
	StartTime string
}

type metrics struct {
	total     int64
	booked    int64
	conflicts int64
	errors    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *metrics) record(latency time.Duration, status int) {
	atomic.AddInt64(&m.total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.booked, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.conflicts, 1)
	default:
		atomic.AddInt64(&m.errors, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *metrics) percentile(p float64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := simConfig{
		apiBaseURL:  envOr("API_BASE_URL", "http://127.0.0.1:8080"),
		duration:    durationOr("SIM_DURATION", 30*time.Second),
		workers:     intOr("SIM_WORKERS", 20),
		slotLimit:   intOr("SIM_SLOT_LIMIT", 50),
		postgresDSN: os.Getenv("POSTGRES_DSN"),
	}
	if cfg.postgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.postgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	slots, patients, err := loadTargets(context.Background(), pool, cfg.slotLimit)
	if err != nil {
		log.Fatalf("load targets: %v", err)
	}
	if len(slots) == 0 || len(patients) == 0 {
		log.Fatal("no free slots or patients, run cmd/seed first")
	}
	log.Printf("simulating with %d slots, %d patients, %d workers for %s",
		len(slots), len(patients), cfg.workers, cfg.duration)

	var m metrics
	runCtx, stop := context.WithTimeout(context.Background(), cfg.duration)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < cfg.workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			worker(runCtx, cfg.apiBaseURL, slots, patients, &m, rand.New(rand.NewSource(seed)))
		}(time.Now().UnixNano() + int64(i))
	}
	wg.Wait()

	fmt.Println("--- simulation summary ---")
	fmt.Printf("requests:  %d\n", atomic.LoadInt64(&m.total))
	fmt.Printf("booked:    %d\n", atomic.LoadInt64(&m.booked))
	fmt.Printf("conflicts: %d\n", atomic.LoadInt64(&m.conflicts))
	fmt.Printf("errors:    %d\n", atomic.LoadInt64(&m.errors))
	fmt.Printf("p50:       %s\n", m.percentile(0.50))
	fmt.Printf("p95:       %s\n", m.percentile(0.95))
	fmt.Printf("p99:       %s\n", m.percentile(0.99))

	doubleBooked, err := countDoubleBooked(context.Background(), pool)
	if err != nil {
		log.Fatalf("verify double-booking: %v", err)
	}
	fmt.Printf("slots with more than one active consultation: %d\n", doubleBooked)
	if doubleBooked > 0 {
		os.Exit(1)
	}
}

func worker(ctx context.Context, baseURL string, slots []slotTarget, patients []uuid.UUID, m *metrics, rng *rand.Rand) {
	client := &http.Client{Timeout: 10 * time.Second}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Small slot pool on purpose so workers collide on the same slots.
		slot := slots[rng.Intn(len(slots))]
		patient := patients[rng.Intn(len(patients))]

		body, _ := json.Marshal(map[string]string{
			"patient_id":        patient.String(),
			"doctor_id":         slot.DoctorID.String(),
			"availability_id":   slot.ID.String(),
			"consultation_date": slot.Date,
			"start_time":        slot.StartTime,
		})

		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/consultations/book", bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.record(time.Since(start), 0)
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		m.record(time.Since(start), resp.StatusCode)
	}
}

func loadTargets(ctx context.Context, pool *pgxpool.Pool, slotLimit int) ([]slotTarget, []uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, doctor_id, available_date, to_char(start_time, 'HH24:MI')
		FROM availability_slots
		WHERE status = 'free'
		  AND available_date > CURRENT_DATE
		ORDER BY available_date ASC, start_time ASC
		LIMIT $1
	`, slotLimit)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var slots []slotTarget
	for rows.Next() {
		var s slotTarget
		var date time.Time
		if err := rows.Scan(&s.ID, &s.DoctorID, &date, &s.StartTime); err != nil {
			return nil, nil, err
		}
		s.Date = date.Format("2006-01-02")
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	prows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT 500`)
	if err != nil {
		return nil, nil, err
	}
	defer prows.Close()

	var patients []uuid.UUID
	for prows.Next() {
		var id uuid.UUID
		if err := prows.Scan(&id); err != nil {
			return nil, nil, err
		}
		patients = append(patients, id)
	}
	if err := prows.Err(); err != nil {
		return nil, nil, err
	}

	return slots, patients, nil
}

func countDoubleBooked(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var count int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM (
			SELECT availability_id
			FROM consultations
			WHERE status <> 'cancelled' AND availability_id IS NOT NULL
			GROUP BY availability_id
			HAVING count(*) > 1
		) dupes
	`).Scan(&count)
	return count, err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
