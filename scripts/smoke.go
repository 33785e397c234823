//go:build ignore
// +build ignore

// Package main provides a manual smoke test for the library API.
//
// Usage:
//
//	go run ./scripts/smoke.go
//
// Or against a non-default server:
//
//	SERVER_ADDR=http://host:port go run ./scripts/smoke.go
//
// What it does:
//  1. Logs in as the seeded regular user.
//  2. Picks the first available book and borrows it.
//  3. Verifies the book disappeared from the available list.
//  4. Returns the book and verifies it is available again.
//
// Prerequisites:
//   - Server must be running with the demo seed loaded (default startup).

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

var client = &http.Client{Timeout: 10 * time.Second}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	fmt.Printf("=== Library Smoke Test ===\n")
	fmt.Printf("Server : %s\n\n", serverAddr)

	// 1. Login.
	var identity struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	post(serverAddr+"/auth/login", map[string]string{
		"email":    "user@example.com",
		"password": "password123",
	}, &identity)
	fmt.Printf("Logged in as %s (%s)\n", identity.Name, identity.ID)

	// 2. Borrow the first available book.
	var available []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	get(serverAddr+"/books/available", &available)
	if len(available) == 0 {
		log.Fatal("no available books — was the server started with the demo seed?")
	}
	book := available[0]
	fmt.Printf("Borrowing %q (%s)\n", book.Title, book.ID)

	var issue struct {
		ID string `json:"id"`
	}
	post(serverAddr+"/books/"+book.ID+"/borrow", nil, &issue)
	fmt.Printf("Issue created: %s\n", issue.ID)

	// 3. The book must be gone from the available list.
	get(serverAddr+"/books/available", &available)
	for _, b := range available {
		if b.ID == book.ID {
			log.Fatalf("FAIL: book %s still listed as available after borrow", book.ID)
		}
	}
	fmt.Println("Book no longer listed as available.")

	// 4. Return it.
	var returned struct {
		ReturnDate *string `json:"return_date"`
	}
	post(serverAddr+"/issues/"+issue.ID+"/return", nil, &returned)
	if returned.ReturnDate == nil {
		log.Fatal("FAIL: return date not set after return")
	}
	fmt.Printf("Returned at %s\n", *returned.ReturnDate)

	get(serverAddr+"/books/available", &available)
	found := false
	for _, b := range available {
		if b.ID == book.ID {
			found = true
		}
	}
	if !found {
		log.Fatalf("FAIL: book %s not available after return", book.ID)
	}

	fmt.Println("\nAll checks passed.")
}

func post(url string, body interface{}, out interface{}) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("marshal request for %s: %v", url, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(http.MethodPost, url, reader)
	if err != nil {
		log.Fatalf("build request for %s: %v", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	do(req, out)
}

func get(url string, out interface{}) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		log.Fatalf("build request for %s: %v", url, err)
	}
	do(req, out)
}

func do(req *http.Request, out interface{}) {
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		log.Fatalf("%s %s: status %d: %s", req.Method, req.URL, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			log.Fatalf("%s %s: bad JSON: %s", req.Method, req.URL, raw)
		}
	}
}
