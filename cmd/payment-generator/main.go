package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
)

// paymentRequest matches the shape the payment gateway expects.
type paymentRequest struct {
	CardNumber string  `json:"card_number"`
	Amount     float64 `json:"amount"`
	Name       string  `json:"name"`
}

var testCards = []string{
	"4111111111111111",
	"4000123456789010",
	"5500000000000004",
	"340000000000009",
}

func main() {
	baseURL := flag.String("target", "http://localhost:8080", "Base URL of the payment service")
	rps := flag.Int("rps", 20, "Requests per second")
	username := flag.String("username", "customer", "Login used to obtain a token")
	flag.Parse()

	token, err := login(*baseURL, *username)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	log.Printf("Starting generator: target=%s, rps=%d\n", *baseURL, *rps)

	ticker := time.NewTicker(time.Second / time.Duration(*rps))
	defer ticker.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ticker.C:
			// Send in a goroutine so slow responses do not block the ticker.
			go sendRequest(*baseURL, token)
		case <-ctx.Done():
			log.Println("Shutting down generator...")
			return
		}
	}
}

func login(baseURL, username string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"username": username})
	resp, err := http.Post(baseURL+"/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected login status %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Token, nil
}

func sendRequest(baseURL, token string) {
	reqBody := paymentRequest{
		CardNumber: testCards[rand.Intn(len(testCards))],
		// Roughly one in ten payments lands above the stop limit, and a
		// few are invalid on purpose to exercise the validation path.
		Amount: randomAmount(),
		Name:   faker.Name(),
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		log.Printf("ERROR: failed to marshal request: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/payments", bytes.NewReader(payload))
	if err != nil {
		log.Printf("ERROR: failed to build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-Id", uuid.New().String())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("ERROR: request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		log.Printf("WARN: server error: %s", resp.Status)
	}
}

func randomAmount() float64 {
	switch n := rand.Intn(100); {
	case n < 5:
		return -float64(rand.Intn(100)) // invalid
	case n < 15:
		return 10000 + rand.Float64()*20000 // over the stop limit
	default:
		return 1 + rand.Float64()*999
	}
}
