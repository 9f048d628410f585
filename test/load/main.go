package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DonorPayload is a fully paid enrollment, so every accepted request
// consumes one slot of the target seva.
type DonorPayload struct {
	SevaID      string `json:"seva_id"`
	DonorName   string `json:"donor_name"`
	PaymentMode string `json:"payment_mode"`
	TotalAmount string `json:"total_amount"`
	PaidAmount  string `json:"paid_amount"`
}

type LoadTestConfig struct {
	BaseURL           string
	Token             string
	SevaID            string
	Amount            string
	Requests          int
	ConcurrentWorkers int
}

// Stats splits outcomes the way the booking API reports them: 201 booked,
// 409 seva full, anything else an error.
type Stats struct {
	booked        atomic.Int64
	full          atomic.Int64
	errorCount    atomic.Int64
	responseTimes []float64
	mu            sync.Mutex
}

func (s *Stats) addResponseTime(d float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responseTimes = append(s.responseTimes, d)
}

func (s *Stats) sortedResponseTimes() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	times := make([]float64, len(s.responseTimes))
	copy(times, s.responseTimes)
	sort.Float64s(times)
	return times
}

func sendRequest(client *http.Client, config LoadTestConfig, n int, stats *Stats) {
	body, _ := json.Marshal(DonorPayload{
		SevaID:      config.SevaID,
		DonorName:   "load donor " + strconv.Itoa(n),
		PaymentMode: "Cash",
		TotalAmount: config.Amount,
		PaidAmount:  config.Amount,
	})

	start := time.Now()
	req, err := http.NewRequest(http.MethodPost, config.BaseURL+"/api/v1/donors", bytes.NewReader(body))
	if err != nil {
		stats.errorCount.Add(1)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+config.Token)

	resp, err := client.Do(req)
	stats.addResponseTime(time.Since(start).Seconds())
	if err != nil {
		stats.errorCount.Add(1)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusCreated:
		stats.booked.Add(1)
	case http.StatusConflict:
		stats.full.Add(1)
	default:
		stats.errorCount.Add(1)
	}
}

func worker(client *http.Client, config LoadTestConfig, stats *Stats, jobs <-chan int, wg *sync.WaitGroup) {
	defer wg.Done()
	for n := range jobs {
		sendRequest(client, config, n, stats)
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	i := int(float64(len(sorted)) * p)
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

func fetchSeva(client *http.Client, config LoadTestConfig) (booked, total int64, err error) {
	req, err := http.NewRequest(http.MethodGet, config.BaseURL+"/api/v1/sevas/"+config.SevaID, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+config.Token)
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	var seva struct {
		TotalSlots  int64 `json:"total_slots"`
		BookedSlots int64 `json:"booked_slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&seva); err != nil {
		return 0, 0, err
	}
	return seva.BookedSlots, seva.TotalSlots, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func main() {
	config := LoadTestConfig{
		BaseURL:           strings.TrimRight(getEnvOrDefault("TARGET_URL", "http://localhost:8080"), "/"),
		Token:             os.Getenv("TOKEN"),
		SevaID:            os.Getenv("SEVA_ID"),
		Amount:            getEnvOrDefault("AMOUNT", "1001"),
		Requests:          getEnvIntOrDefault("REQUESTS", 500),
		ConcurrentWorkers: getEnvIntOrDefault("CONCURRENT_WORKERS", 50),
	}
	if config.Token == "" || config.SevaID == "" {
		fmt.Println("TOKEN and SEVA_ID are required")
		os.Exit(2)
	}

	fmt.Println("Starting booking contention test...")
	fmt.Printf("Target: %s seva %s\n", config.BaseURL, config.SevaID)
	fmt.Printf("Requests: %d with %d workers\n", config.Requests, config.ConcurrentWorkers)
	fmt.Println(strings.Repeat("-", 50))

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        config.ConcurrentWorkers,
			MaxIdleConnsPerHost: config.ConcurrentWorkers,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: 30 * time.Second,
	}

	bookedBefore, totalSlots, err := fetchSeva(client, config)
	if err != nil {
		fmt.Printf("could not read seva: %v\n", err)
		os.Exit(1)
	}

	stats := &Stats{}
	jobs := make(chan int, config.ConcurrentWorkers)
	var wg sync.WaitGroup
	for i := 0; i < config.ConcurrentWorkers; i++ {
		wg.Add(1)
		go worker(client, config, stats, jobs, &wg)
	}

	start := time.Now()
	for i := 0; i < config.Requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	duration := time.Since(start).Seconds()

	bookedAfter, _, err := fetchSeva(client, config)
	if err != nil {
		fmt.Printf("could not re-read seva: %v\n", err)
		os.Exit(1)
	}

	times := stats.sortedResponseTimes()
	booked, full, failed := stats.booked.Load(), stats.full.Load(), stats.errorCount.Load()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("BOOKING CONTENTION RESULTS")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Duration: %.2f seconds (%.1f req/s)\n", duration, float64(config.Requests)/duration)
	fmt.Printf("Booked (201): %d\n", booked)
	fmt.Printf("Seva full (409): %d\n", full)
	fmt.Printf("Other failures: %d\n", failed)
	fmt.Printf("Slots: %d -> %d of %d\n", bookedBefore, bookedAfter, totalSlots)
	fmt.Printf("\nResponse times:\n")
	fmt.Printf("  P50: %.2f ms\n", percentile(times, 0.50)*1000)
	fmt.Printf("  P95: %.2f ms\n", percentile(times, 0.95)*1000)
	fmt.Printf("  P99: %.2f ms\n", percentile(times, 0.99)*1000)

	if bookedAfter-bookedBefore != booked || bookedAfter > totalSlots {
		fmt.Println("\nFAIL: booked slots do not match accepted enrollments")
		os.Exit(1)
	}
	fmt.Println("\nOK: every accepted enrollment holds exactly one slot")
}
