//go:build ignore

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const (
	baseURL   = "http://localhost:3000/api"
	userToken = "" // paste a fresh JWT before running
)

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{} // No timeout: tool rounds can run long
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	color.Cyan("Starting SheetGrid Chat API Test\n")

	// 1. Create a session
	color.Yellow("\n1. Create Chat Session")
	resp, body, err := sendRequest("POST", "/chatbot/v1/session", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var createResp struct {
		Data struct {
			Id string `json:"id"`
		} `json:"data"`
	}
	json.Unmarshal(body, &createResp)
	sessionId := createResp.Data.Id
	fmt.Println("Session:", sessionId)

	// 2. Ask the assistant to write a cell
	color.Yellow("\n2. Send Chat (set A1)")
	chatReq := map[string]interface{}{
		"chat_session_id": sessionId,
		"chat":            "Set cell A1 to the value 42",
	}
	resp, body, err = sendRequest("POST", "/chatbot/v1/chat", userToken, chatReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var chatResp map[string]interface{}
	json.Unmarshal(body, &chatResp)
	prettyPrint(chatResp)

	// 3. Fetch history
	color.Yellow("\n3. Get Chat History")
	resp, body, err = sendRequest("GET", "/chatbot/v1/session/"+sessionId+"/history", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var histResp map[string]interface{}
	json.Unmarshal(body, &histResp)
	prettyPrint(histResp)

	// 4. Export the workbook
	color.Yellow("\n4. Export Workbook")
	resp, body, err = sendRequest("GET", "/workbook/v1/export", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s (%d bytes)", resp.Status, len(body))

	// 5. Delete the session
	color.Yellow("\n5. Delete Session")
	delReq := map[string]interface{}{"chat_session_id": sessionId}
	resp, body, err = sendRequest("DELETE", "/chatbot/v1/session", userToken, delReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var delResp map[string]interface{}
	json.Unmarshal(body, &delResp)
	prettyPrint(delResp)

	color.Cyan("\nDone.")
}
