package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tazhate/familyschedule/internal/logger"
)

// MCPServer exposes the schedule API as MCP tools over stdio.
type MCPServer struct {
	apiURL      string
	apiUsername string
	apiPassword string
	httpClient  *http.Client
}

func NewMCPServer(apiURL, username, password string) *MCPServer {
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	return &MCPServer{
		apiURL:      strings.TrimSuffix(apiURL, "/"),
		apiUsername: username,
		apiPassword: password,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Run answers one JSON-RPC message per line until in is exhausted.
func (s *MCPServer) Run(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	enc := json.NewEncoder(out)

	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			var req JSONRPCRequest
			if uerr := json.Unmarshal([]byte(line), &req); uerr != nil {
				logger.Warn("bad json-rpc message", "err", uerr)
				if werr := enc.Encode(rpcError(nil, codeParseError, "Parse error")); werr != nil {
					return werr
				}
			} else if resp, ok := s.handleRequest(req); ok {
				if werr := enc.Encode(resp); werr != nil {
					return werr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// handleRequest returns false for notifications, which get no response.
func (s *MCPServer) handleRequest(req JSONRPCRequest) (JSONRPCResponse, bool) {
	if req.ID == nil || strings.HasPrefix(req.Method, "notifications/") {
		return JSONRPCResponse{}, false
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req), true
	case "ping":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{}}, true
	case "tools/list":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: ToolsListResult{Tools: tools()}}, true
	case "tools/call":
		return s.handleToolsCall(req), true
	default:
		return rpcError(req.ID, codeMethodNotFound, "Method not found"), true
	}
}

func (s *MCPServer) handleInitialize(req JSONRPCRequest) JSONRPCResponse {
	result := InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		ServerInfo: serverInfo{Name: "familyschedule-mcp", Version: "1.0.0"},
	}
	return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

var weekProps = map[string]Property{
	"week":   {Type: "integer", Description: "ISO week number (optional, default current week)"},
	"year":   {Type: "integer", Description: "ISO week-numbering year (optional)"},
	"offset": {Type: "integer", Description: "Weeks relative to the current week, e.g. 1 for next week"},
}

func tools() []Tool {
	return []Tool{
		{
			Name:        "familyschedule_week",
			Description: "Get the week grid: days, dates and positioned activity blocks.",
			InputSchema: InputSchema{Type: "object", Properties: weekProps},
		},
		{
			Name:        "familyschedule_list_activities",
			Description: "List activities of one week, or every activity when no week is given.",
			InputSchema: InputSchema{Type: "object", Properties: weekProps},
		},
		{
			Name:        "familyschedule_create_activity",
			Description: "Create an activity on one or more days of a week. Fails with a conflict when a participant is already busy.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"name":             {Type: "string", Description: "Activity name"},
					"icon":             {Type: "string", Description: "Emoji icon (optional)"},
					"days":             {Type: "array", Description: "Days, e.g. Måndag or Monday", Items: &Property{Type: "string"}},
					"participants":     {Type: "array", Description: "Family member ids", Items: &Property{Type: "string"}},
					"startTime":        {Type: "string", Description: "Start HH:MM"},
					"endTime":          {Type: "string", Description: "End HH:MM"},
					"location":         {Type: "string", Description: "Location (optional)"},
					"notes":            {Type: "string", Description: "Notes (optional)"},
					"week":             {Type: "integer", Description: "ISO week (optional, default current)"},
					"year":             {Type: "integer", Description: "ISO year (optional)"},
					"recurring":        {Type: "boolean", Description: "Repeat weekly until recurringEndDate"},
					"recurringEndDate": {Type: "string", Description: "Last date YYYY-MM-DD for recurring activities"},
				},
				Required: []string{"name", "days", "participants", "startTime", "endTime"},
			},
		},
		{
			Name:        "familyschedule_delete_activity",
			Description: "Delete one activity by id.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"id": {Type: "string", Description: "Activity id"}},
				Required:   []string{"id"},
			},
		},
		{
			Name:        "familyschedule_delete_series",
			Description: "Delete every occurrence of a recurring activity.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"seriesId": {Type: "string", Description: "Series id"}},
				Required:   []string{"seriesId"},
			},
		},
		{
			Name:        "familyschedule_paste_week",
			Description: "Copy all activities of one week into another week.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"fromWeek": {Type: "integer", Description: "Source ISO week"},
					"fromYear": {Type: "integer", Description: "Source ISO year"},
					"toWeek":   {Type: "integer", Description: "Target ISO week"},
					"toYear":   {Type: "integer", Description: "Target ISO year"},
				},
				Required: []string{"fromWeek", "fromYear", "toWeek", "toYear"},
			},
		},
		{
			Name:        "familyschedule_members",
			Description: "List the family members and their ids.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		},
		{
			Name:        "familyschedule_export_ics",
			Description: "Export one week as iCalendar text.",
			InputSchema: InputSchema{Type: "object", Properties: weekProps},
		},
	}
}

func (s *MCPServer) handleToolsCall(req JSONRPCRequest) JSONRPCResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return rpcError(req.ID, codeInvalidParams, "Invalid params")
	}
	args := params.Arguments

	var result string
	var isError bool

	switch params.Name {
	case "familyschedule_week":
		result, isError = s.apiGet("/api/week" + weekQuery(args))
	case "familyschedule_list_activities":
		result, isError = s.apiGet("/api/activities" + weekQuery(args))
	case "familyschedule_create_activity":
		result, isError = s.apiRequest(http.MethodPost, "/api/activities", args)
	case "familyschedule_delete_activity":
		result, isError = s.apiRequest(http.MethodDelete, "/api/activity/"+url.PathEscape(stringArg(args, "id")), nil)
	case "familyschedule_delete_series":
		result, isError = s.apiRequest(http.MethodDelete, "/api/series/"+url.PathEscape(stringArg(args, "seriesId")), nil)
	case "familyschedule_paste_week":
		result, isError = s.apiRequest(http.MethodPost, "/api/paste", args)
	case "familyschedule_members":
		result, isError = s.apiGet("/api/members")
	case "familyschedule_export_ics":
		result, isError = s.apiGet("/api/export.ics" + weekQuery(args))
	default:
		result = "Unknown tool: " + params.Name
		isError = true
	}

	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: ToolCallResult{
			Content: []ContentBlock{{Type: "text", Text: result}},
			IsError: isError,
		},
	}
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// weekQuery renders week, year and offset arguments as a query string.
func weekQuery(args map[string]interface{}) string {
	q := url.Values{}
	for _, key := range []string{"week", "year", "offset"} {
		v, ok := args[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			q.Set(key, fmt.Sprintf("%d", int(n)))
		default:
			q.Set(key, fmt.Sprintf("%v", n))
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (s *MCPServer) apiGet(path string) (string, bool) {
	return s.apiRequest(http.MethodGet, path, nil)
}

func (s *MCPServer) apiRequest(method, path string, body interface{}) (string, bool) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Sprintf("Error encoding arguments: %v", err), true
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, s.apiURL+path, reqBody)
	if err != nil {
		return fmt.Sprintf("Error creating request: %v", err), true
	}

	if s.apiUsername != "" {
		req.SetBasicAuth(s.apiUsername, s.apiPassword)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Sprintf("Error making request: %v", err), true
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Error reading response: %v", err), true
	}

	var apiResp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return string(respBody), resp.StatusCode >= 400
	}

	if !apiResp.Success {
		msg := fmt.Sprintf("API Error (%d): %s", resp.StatusCode, apiResp.Error)
		if len(apiResp.Data) > 0 {
			msg += "\n" + string(apiResp.Data)
		}
		return msg, true
	}

	var prettyData bytes.Buffer
	if err := json.Indent(&prettyData, apiResp.Data, "", "  "); err != nil {
		return string(apiResp.Data), false
	}
	return prettyData.String(), false
}

func main() {
	_ = godotenv.Load()

	// stdout carries the protocol; logs go to stderr.
	if err := logger.Init(logger.Config{Dir: os.Getenv("LOG_DIR")}); err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
	}

	server := NewMCPServer(
		os.Getenv("FAMILYSCHEDULE_API_URL"),
		os.Getenv("FAMILYSCHEDULE_API_USERNAME"),
		os.Getenv("FAMILYSCHEDULE_API_PASSWORD"),
	)
	if err := server.Run(os.Stdin, os.Stdout); err != nil {
		logger.Fatal("mcp server stopped", "err", err)
	}
}
