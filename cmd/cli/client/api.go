package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/calleye/internal/alert"
	"github.com/calleye/internal/models"
	"github.com/spf13/viper"
)

type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *APIClient) doRequest(method, path string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := viper.GetString("token"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s", apiErr.Error)
		}
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return data, nil
}

func (c *APIClient) Login(username, password string) (string, error) {
	data, err := c.doRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *APIClient) ListAlerts(status string) ([]models.Alert, error) {
	path := "/api/v1/alerts"
	if status != "" {
		path += "?status=" + status
	}
	data, err := c.doRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var alerts []models.Alert
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (c *APIClient) CreateAlert(a *models.Alert) (*models.Alert, error) {
	data, err := c.doRequest(http.MethodPost, "/api/v1/alerts", a)
	if err != nil {
		return nil, err
	}

	var created models.Alert
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *APIClient) ListHistory() ([]models.AlertHistory, error) {
	data, err := c.doRequest(http.MethodGet, "/api/v1/history", nil)
	if err != nil {
		return nil, err
	}

	var history []models.AlertHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (c *APIClient) AcknowledgeHistory(id uint) (*models.AlertHistory, error) {
	return c.historyAction(id, "acknowledge")
}

func (c *APIClient) ResolveHistory(id uint) (*models.AlertHistory, error) {
	return c.historyAction(id, "resolve")
}

func (c *APIClient) historyAction(id uint, action string) (*models.AlertHistory, error) {
	data, err := c.doRequest(http.MethodPut, fmt.Sprintf("/api/v1/history/%d/%s", id, action), nil)
	if err != nil {
		return nil, err
	}

	var entry models.AlertHistory
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *APIClient) EvaluateAlert(id uint) (*alert.Result, error) {
	data, err := c.doRequest(http.MethodPost, fmt.Sprintf("/api/v1/alerts/%d/evaluate", id), nil)
	if err != nil {
		return nil, err
	}

	var result alert.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *APIClient) EvaluateAll() (*alert.BatchResult, error) {
	data, err := c.doRequest(http.MethodPost, "/api/v1/evaluate-all", nil)
	if err != nil {
		return nil, err
	}

	var batch alert.BatchResult
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}
