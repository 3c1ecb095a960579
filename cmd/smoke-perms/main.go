// Command smoke-perms exercises a running sentra-api end to end: it creates
// an organization and a member, flips a permission, and verifies both the
// resolved set and the audit trail.
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

func main() {
	log.SetFlags(0)
	baseURL := os.Getenv("SENTRA_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	adminID := os.Getenv("SENTRA_ADMIN_ID")
	if adminID == "" {
		adminID = "admin-1"
	}

	client := &http.Client{Timeout: 10 * time.Second}

	var tokenResp struct {
		Token string `json:"token"`
	}
	request(client, http.MethodPost, baseURL+"/v1/auth/token", "", map[string]any{
		"user_id": adminID,
		"name":    "Smoke Admin",
	}, http.StatusOK, &tokenResp)
	token := tokenResp.Token

	suffix := time.Now().UnixNano()
	var org struct {
		ID string `json:"id"`
	}
	request(client, http.MethodPost, baseURL+"/v1/organizations", token, map[string]any{
		"name": fmt.Sprintf("Smoke Org %d", suffix),
	}, http.StatusCreated, &org)

	var user struct {
		ID string `json:"id"`
	}
	request(client, http.MethodPost, baseURL+"/v1/organizations/"+org.ID+"/users", token, map[string]any{
		"email": fmt.Sprintf("smoke-%d@example.org", suffix),
	}, http.StatusCreated, &user)

	var set struct {
		Flags            map[string]bool `json:"flags"`
		InheritedFromOrg bool            `json:"inherited_from_org"`
	}
	request(client, http.MethodPut, baseURL+"/v1/users/"+user.ID+"/permissions/generateAIReports", token, map[string]any{
		"value": true,
		"note":  "smoke test",
	}, http.StatusOK, &set)
	if set.InheritedFromOrg {
		log.Fatal("expected override after user-level change")
	}
	if !set.Flags["generateAIReports"] {
		log.Fatal("expected generateAIReports on")
	}

	var page struct {
		Entries []struct {
			Action  string `json:"action"`
			UserID  string `json:"user_id"`
			Changes []struct {
				Key string `json:"key"`
			} `json:"changes"`
		} `json:"entries"`
	}
	request(client, http.MethodGet, baseURL+"/v1/audit/entries?user_id="+user.ID, token, nil, http.StatusOK, &page)
	if len(page.Entries) != 1 {
		log.Fatalf("expected 1 audit entry for user, got %d", len(page.Entries))
	}
	entry := page.Entries[0]
	if entry.Action != "update" || len(entry.Changes) != 1 || entry.Changes[0].Key != "generateAIReports" {
		log.Fatalf("unexpected audit entry: %+v", entry)
	}

	fmt.Printf("✅ permissions smoke test passed: org=%s user=%s\n", org.ID, user.ID)
}

func request(client *http.Client, method, url, token string, body any, wantStatus int, out any) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		log.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(resp.Body)
		log.Fatalf("%s %s: status %d, body %s", method, url, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode %s response: %v", url, err)
		}
	}
}
