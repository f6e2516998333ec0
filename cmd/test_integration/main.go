package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
)

// Drives a running server through register, upload and results. The server
// must use the in-memory identity provider or accept new sign-ups.

var baseURL = "http://localhost:8080"

const sampleCSV = `NACCID,BIRTHYR,SEX,EDUC,UDSBENTC,MOCATRAI,AMNDEM,NACCPPAG,AMYLPET,DYSILL,DYSILLIF
P001,1950,1,12,1,0,0,1,0,0,0
P002,1940,2,16,1,0,1,1,0,0,0
`

func main() {
	if u := os.Getenv("COGNISCAN_SERVER_URL"); u != "" {
		baseURL = u
	}
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	jar, _ := cookiejar.New(nil)
	client := &http.Client{
		Jar:     jar,
		Timeout: 30 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	fmt.Println("1. Health...")
	check("Health", expect(client.Get(baseURL+"/health"))(http.StatusOK))

	fmt.Println("2. Registering...")
	email := "smoke-" + uuid.NewString()[:8] + "@example.com"
	form := url.Values{
		"name":            {"Smoke Test"},
		"email":           {email},
		"password":        {"password123"},
		"confirmPassword": {"password123"},
	}
	check("Register", expect(client.PostForm(baseURL+"/auth/register", form))(http.StatusSeeOther))

	fmt.Println("3. Uploading dataset...")
	body, contentType := multipartCSV("patients.csv", sampleCSV)
	check("Upload", expect(client.Post(baseURL+"/dashboard/predict", contentType, body))(http.StatusSeeOther))

	fmt.Println("4. Waiting for results...")
	deadline := time.Now().Add(2 * time.Minute)
	for {
		var state struct {
			Snapshot struct {
				Generation uint64 `json:"generation"`
				State      string `json:"state"`
				Outcome    string `json:"outcome"`
			} `json:"snapshot"`
			CanViewResults bool `json:"canViewResults"`
		}
		if err := getJSON(client, "/api/state", &state); err != nil {
			fail("State", err)
		}
		if state.Snapshot.Generation > 0 && state.Snapshot.State == "idle" && state.Snapshot.Outcome != "idle" {
			if !state.CanViewResults {
				fail("Prediction", fmt.Errorf("finished as %s without results", state.Snapshot.Outcome))
			}
			break
		}
		if time.Now().After(deadline) {
			fail("Prediction", fmt.Errorf("still %s after deadline", state.Snapshot.State))
		}
		time.Sleep(time.Second)
	}
	fmt.Println("PASSED: Prediction")

	fmt.Println("5. Fetching results...")
	var page struct {
		Total   int               `json:"total"`
		Records []json.RawMessage `json:"records"`
	}
	if err := getJSON(client, "/api/results", &page); err != nil {
		fail("Results", err)
	}
	if page.Total != 2 {
		fail("Results", fmt.Errorf("expected 2 patients, got %d", page.Total))
	}
	fmt.Println("PASSED: Results")
}

func multipartCSV(name, content string) (io.Reader, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", name)
	_, _ = io.WriteString(fw, content)
	_ = mw.WriteField("visualize", "off")
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func expect(resp *http.Response, err error) func(int) error {
	return func(status int) error {
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != status {
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("status %d, want %d: %s", resp.StatusCode, status, b)
		}
		return nil
	}
}

func getJSON(client *http.Client, path string, v any) error {
	resp, err := client.Get(baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, b)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func check(step string, err error) {
	if err != nil {
		fail(step, err)
	}
	fmt.Println("PASSED: " + step)
}

func fail(step string, err error) {
	fmt.Printf("FAILED: %s: %v\n", step, err)
	os.Exit(1)
}
