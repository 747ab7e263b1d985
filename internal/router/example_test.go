package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/patric-chuzhbe/userauth/internal/db/memorystorage"
	"github.com/patric-chuzhbe/userauth/internal/ipchecker"
	"github.com/patric-chuzhbe/userauth/internal/logger"
	"github.com/patric-chuzhbe/userauth/internal/models"
	"github.com/patric-chuzhbe/userauth/internal/passwords"
	"github.com/patric-chuzhbe/userauth/internal/router"
	"github.com/patric-chuzhbe/userauth/internal/service"
)

func setupExampleServer() *httptest.Server {
	if err := logger.Init("error"); err != nil {
		panic(err)
	}

	db, err := memorystorage.New()
	if err != nil {
		panic(err)
	}

	checker, err := ipchecker.New("")
	if err != nil {
		panic(err)
	}

	return httptest.NewServer(router.New(
		service.New(db, passwords.Bcrypt{Cost: 4}),
		router.Options{
			AllowedOrigins: []string{"*"},
			IPChecker:      checker,
		},
	))
}

func post(url string, payload interface{}) (int, string) {
	body, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}

	return resp.StatusCode, strings.TrimSpace(string(b))
}

func ExampleRouter_GetApihealth() {
	server := setupExampleServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println(strings.TrimSpace(string(b)))

	// Output:
	// Status Code: 200
	// {"ok":true,"message":"API is running"}
}

func ExampleRouter_PostApiregister() {
	server := setupExampleServer()
	defer server.Close()

	request := models.RegisterRequest{
		Username:        "alice",
		FirstName:       "Alice",
		ImageURL:        "http://x/a.png",
		Password:        "abc123",
		ConfirmPassword: "abc123",
	}

	status, body := post(server.URL+"/api/register", request)
	fmt.Println("Status Code:", status)
	fmt.Println(body)

	status, _ = post(server.URL+"/api/register", request)
	fmt.Println("Status Code:", status)

	// Output:
	// Status Code: 200
	// {"ok":true,"message":"registered successfully"}
	// Status Code: 409
}

func ExampleRouter_PostApilogin() {
	server := setupExampleServer()
	defer server.Close()

	post(server.URL+"/api/register", models.RegisterRequest{
		Username:        "alice",
		FirstName:       "Alice",
		ImageURL:        "http://x/a.png",
		Password:        "abc123",
		ConfirmPassword: "abc123",
	})

	status, body := post(server.URL+"/api/login", models.LoginRequest{Username: "alice", Password: "abc123"})
	fmt.Println("Status Code:", status)
	fmt.Println(body)

	status, body = post(server.URL+"/api/login", models.LoginRequest{Username: "alice", Password: "wrong1"})
	fmt.Println("Status Code:", status)
	fmt.Println(body)

	// Output:
	// Status Code: 200
	// {"ok":true,"user":{"username":"alice","firstName":"Alice","imageUrl":"http://x/a.png"}}
	// Status Code: 401
	// {"ok":false,"message":"invalid username or password"}
}
