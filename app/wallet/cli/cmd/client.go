package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

var client = http.Client{Timeout: 10 * time.Second}

// errorResponse is the body the node returns for failed requests.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func get(path string, out any) error {
	resp, err := client.Get(url + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decode(resp, out)
}

func post(path string, in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}

	resp, err := client.Post(url+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decode(resp, out)
}

// decode reads the body into out. Admission rejections come back as a 400
// carrying the response instead of an error.
func decode(resp *http.Response, out any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var er errorResponse
		if err := json.Unmarshal(body, &er); err != nil || er.Error == "" {
			if resp.StatusCode == http.StatusBadRequest && out != nil {
				return json.Unmarshal(body, out)
			}
			return fmt.Errorf("%s: %s", resp.Status, body)
		}

		if len(er.Fields) > 0 {
			return fmt.Errorf("%s: %s: %v", resp.Status, er.Error, er.Fields)
		}
		return fmt.Errorf("%s: %s", resp.Status, er.Error)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
